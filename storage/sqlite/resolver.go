package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/c0deZ3R0/readsync/conflict"
	syncErrors "github.com/c0deZ3R0/readsync/errors"
	"github.com/c0deZ3R0/readsync/record"
	"github.com/c0deZ3R0/readsync/synckit"
)

// Resolution is one persisted conflict decision.
type Resolution struct {
	Seq          int64
	RecordID     string
	ConflictType conflict.Type
	Strategy     conflict.Strategy
	Resolved     bool
	Detail       string
}

// HandleConflicts implements synckit.ConflictHandler against the stored
// target rows. USE_HIGHER_PROGRESS keeps the larger progress value and
// USE_LATEST_TIMESTAMP keeps the later update time. A RESOLVE_SEQUENTIALLY
// composite is resolved when all of its sub-conflicts are. Every other
// conflict is left for manual review. Each decision is recorded, and every
// value written is returned in Values so the SYNC stage keeps it.
func (s *Store) HandleConflicts(ctx context.Context, report *conflict.Report) (res *synckit.ConflictResolution, err error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	res = &synckit.ConflictResolution{Success: true}
	if report == nil || !report.HasConflicts {
		return res, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, syncErrors.WrapOpComponent(err, opResolve, component)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	audit, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (record_id, conflict_type, strategy, resolved, detail) VALUES (?, ?, ?, ?, ?)`, s.resolutions))
	if err != nil {
		return nil, syncErrors.WrapOpComponent(err, opResolve, component)
	}
	defer audit.Close()

	for _, item := range report.Items {
		for _, c := range item.Conflicts {
			resolved, detail, values, err := s.resolve(ctx, tx, c)
			if err != nil {
				return nil, syncErrors.WrapOpComponent(fmt.Errorf("record %s: %w", c.RecordID, err), opResolve, component)
			}
			res.Values = append(res.Values, values...)
			if _, err = audit.ExecContext(ctx, c.RecordID, string(c.Type), string(c.Strategy), resolved, detail); err != nil {
				return nil, syncErrors.WrapOpComponent(err, opResolve, component)
			}
			if resolved {
				res.Resolved++
			} else {
				res.Unresolved++
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, syncErrors.WrapOpComponent(err, opResolve, component)
	}

	s.logger.InfoContext(ctx, "conflicts handled",
		slog.Int("resolved", res.Resolved),
		slog.Int("unresolved", res.Unresolved))
	return res, nil
}

func (s *Store) resolve(ctx context.Context, tx *sql.Tx, c conflict.Conflict) (bool, string, []synckit.ResolvedValue, error) {
	if !c.AutoResolvable {
		return false, "manual review required", nil, nil
	}

	switch c.Strategy {
	case conflict.UseHigherProgress:
		src, sok := c.Source.(float64)
		tgt, tok := c.Target.(float64)
		if !sok || !tok {
			return false, "progress values missing", nil, nil
		}
		keep := max(src, tgt)
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			`UPDATE %s SET progress = ?, written_at = CURRENT_TIMESTAMP WHERE id = ?`, s.table), keep, c.RecordID); err != nil {
			return false, "", nil, err
		}
		return true, fmt.Sprintf("progress set to %.1f", keep),
			[]synckit.ResolvedValue{{RecordID: c.RecordID, Field: record.FieldProgress, Value: keep}}, nil

	case conflict.UseLatestTimestamp:
		src, sok := c.Source.(time.Time)
		tgt, tok := c.Target.(time.Time)
		if !sok || !tok {
			return false, "timestamps missing", nil, nil
		}
		keep := src
		if tgt.After(src) {
			keep = tgt
		}
		keep = keep.UTC()
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			`UPDATE %s SET last_updated = ?, written_at = CURRENT_TIMESTAMP WHERE id = ?`, s.table), keep.UnixNano(), c.RecordID); err != nil {
			return false, "", nil, err
		}
		return true, "last update set to " + keep.Format(time.RFC3339Nano),
			[]synckit.ResolvedValue{{RecordID: c.RecordID, Field: record.FieldLastUpdated, Value: keep}}, nil

	case conflict.ResolveSequentially:
		if c.Truncated > 0 {
			return false, fmt.Sprintf("%d sub-conflicts were truncated", c.Truncated), nil, nil
		}
		// Sub-conflicts resolved before a failing one stay written.
		var values []synckit.ResolvedValue
		for _, sub := range c.SubConflicts {
			ok, detail, v, err := s.resolve(ctx, tx, sub)
			values = append(values, v...)
			if err != nil || !ok {
				return false, string(sub.Type) + ": " + detail, values, err
			}
		}
		return true, fmt.Sprintf("%d sub-conflicts resolved", len(c.SubConflicts)), values, nil
	}
	return false, "no automatic strategy for " + string(c.Strategy), nil, nil
}

// Resolutions returns the decisions recorded for recordID, oldest first.
func (s *Store) Resolutions(ctx context.Context, recordID string) ([]Resolution, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT seq, record_id, conflict_type, strategy, resolved, COALESCE(detail, '') FROM %s WHERE record_id = ? ORDER BY seq ASC`,
		s.resolutions), recordID)
	if err != nil {
		return nil, syncErrors.WrapOpComponent(err, opResolve, component)
	}
	defer rows.Close()

	var out []Resolution
	for rows.Next() {
		var r Resolution
		var ct, st string
		if err := rows.Scan(&r.Seq, &r.RecordID, &ct, &st, &r.Resolved, &r.Detail); err != nil {
			return nil, syncErrors.WrapOpComponent(err, opResolve, component)
		}
		r.ConflictType = conflict.Type(ct)
		r.Strategy = conflict.Strategy(st)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, syncErrors.WrapOpComponent(err, opResolve, component)
	}
	return out, nil
}
