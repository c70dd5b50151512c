package sqlite

import (
	"context"
	"fmt"
	"time"

	syncErrors "github.com/c0deZ3R0/readsync/errors"
	"github.com/c0deZ3R0/readsync/record"
)

const defaultPullLimit = 500

// Cursor marks a position in (last_updated, id) order. The zero Cursor is
// before every record, including those with an unknown update time.
type Cursor struct {
	UpdatedAt time.Time `json:"updatedAt"`
	ID        string    `json:"id"`
}

// IsZero reports whether c is the start of the table.
func (c Cursor) IsZero() bool {
	return c.UpdatedAt.IsZero() && c.ID == ""
}

func (c Cursor) key() int64 {
	if c.UpdatedAt.IsZero() {
		return 0
	}
	return c.UpdatedAt.UTC().UnixNano()
}

// Pull returns up to limit records that sort after since, oldest update
// first, and the cursor to resume from. When nothing is left the returned
// cursor equals since.
func (s *Store) Pull(ctx context.Context, since Cursor, limit int) ([]record.Record, Cursor, error) {
	if err := s.checkOpen(); err != nil {
		return nil, since, err
	}
	if limit <= 0 {
		limit = defaultPullLimit
	}

	var query string
	var args []any
	if since.IsZero() {
		query = fmt.Sprintf(`SELECT %s FROM %s ORDER BY last_updated ASC, id ASC LIMIT ?`, columns, s.table)
		args = []any{limit}
	} else {
		query = fmt.Sprintf(`SELECT %s FROM %s
			WHERE last_updated > ? OR (last_updated = ? AND id > ?)
			ORDER BY last_updated ASC, id ASC LIMIT ?`, columns, s.table)
		key := since.key()
		args = []any{key, key, since.ID, limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, since, syncErrors.WrapOpComponent(err, opPull, component)
	}
	defer rows.Close()

	out, err := scanRecords(rows)
	if err != nil {
		return nil, since, syncErrors.WrapOpComponent(err, opPull, component)
	}
	if len(out) == 0 {
		return nil, since, nil
	}

	last := out[len(out)-1]
	return out, Cursor{UpdatedAt: last.LastUpdated, ID: last.ID}, nil
}

// PullAll drains the table from since in pages of pageSize and returns the
// records with the final cursor.
func (s *Store) PullAll(ctx context.Context, since Cursor, pageSize int) ([]record.Record, Cursor, error) {
	var all []record.Record
	cur := since
	for {
		page, next, err := s.Pull(ctx, cur, pageSize)
		if err != nil {
			return nil, cur, err
		}
		if len(page) == 0 {
			return all, cur, nil
		}
		all = append(all, page...)
		cur = next
	}
}
