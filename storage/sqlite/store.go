// Package sqlite provides a SQLite-backed reading-state target. Store applies
// change sets written by the strategy processor, reports on its own
// integrity and persists conflict-resolution decisions.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	stdSync "sync"
	"time"

	"github.com/c0deZ3R0/readsync/compare"
	syncErrors "github.com/c0deZ3R0/readsync/errors"
	"github.com/c0deZ3R0/readsync/logging"
	"github.com/c0deZ3R0/readsync/record"
	"github.com/c0deZ3R0/readsync/strategy"
	"github.com/c0deZ3R0/readsync/synckit"

	// Go SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// Operation constants for consistent error reporting
const (
	opUpsert    syncErrors.Operation = "sqlite.Upsert"
	opDelete    syncErrors.Operation = "sqlite.Delete"
	opLoad      syncErrors.Operation = "sqlite.Load"
	opGet       syncErrors.Operation = "sqlite.Get"
	opIntegrity syncErrors.Operation = "sqlite.ValidateDataIntegrity"
	opStats     syncErrors.Operation = "sqlite.GetStatistics"
	opResolve   syncErrors.Operation = "sqlite.HandleConflicts"
	opPull      syncErrors.Operation = "sqlite.Pull"

	component = "storage/sqlite"
)

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrStoreClosed      = errors.New("store is closed")
	ErrInvalidTableName = errors.New("table name must be a plain SQL identifier")
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Compile-time checks for the collaborator interfaces Store serves.
var (
	_ strategy.Applier         = (*Store)(nil)
	_ synckit.IntegrityChecker = (*Store)(nil)
	_ synckit.ConflictHandler  = (*Store)(nil)
)

// Config holds configuration options for the Store.
//
// DefaultConfig enables WAL mode, a 5s busy timeout and a pool of 25 open
// and 5 idle connections.
type Config struct {
	// DataSourceName is the SQLite file path or URI, e.g. "file:state.db".
	DataSourceName string

	// EnableWAL appends _journal_mode=WAL to DataSourceName.
	EnableWAL bool

	// BusyTimeout is how long a writer waits on a locked database.
	BusyTimeout time.Duration

	// Logger defaults to the logging package's default logger.
	Logger *slog.Logger

	// TableName defaults to "reading_state". Conflict decisions go to
	// "<TableName>_resolutions".
	TableName string

	MaxOpenConns    int           // Default: 25
	MaxIdleConns    int           // Default: 5
	ConnMaxLifetime time.Duration // Default: 1h
	ConnMaxIdleTime time.Duration // Default: 5m
}

func (c *Config) setDefaults() {
	if c.TableName == "" {
		c.TableName = "reading_state"
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = 5 * time.Second
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.ConnMaxIdleTime == 0 {
		c.ConnMaxIdleTime = 5 * time.Minute
	}
	// Every connection to :memory: opens a separate database.
	if isMemory(c.DataSourceName) {
		c.MaxOpenConns = 1
		c.MaxIdleConns = 1
		c.ConnMaxLifetime = 0
		c.ConnMaxIdleTime = 0
		c.EnableWAL = false
	}
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

func (c *Config) dsn() string {
	var params []string
	if c.EnableWAL && !strings.Contains(c.DataSourceName, "_journal_mode=") {
		params = append(params, "_journal_mode=WAL")
	}
	if !strings.Contains(c.DataSourceName, "_busy_timeout=") {
		params = append(params, fmt.Sprintf("_busy_timeout=%d", c.BusyTimeout.Milliseconds()))
	}
	if len(params) == 0 {
		return c.DataSourceName
	}
	sep := "?"
	if strings.Contains(c.DataSourceName, "?") {
		sep = "&"
	}
	return c.DataSourceName + sep + strings.Join(params, "&")
}

// DefaultConfig returns a Config with production defaults for dataSourceName.
func DefaultConfig(dataSourceName string) *Config {
	config := &Config{
		DataSourceName: dataSourceName,
		EnableWAL:      true,
	}
	config.setDefaults()
	return config
}

// NewWithDataSource is a convenience constructor
func NewWithDataSource(dataSourceName string) (*Store, error) {
	return New(DefaultConfig(dataSourceName))
}

// Store is a reading-state table in a SQLite database. It is safe for
// concurrent use.
type Store struct {
	db          *sql.DB
	mu          stdSync.RWMutex
	closed      bool
	logger      *slog.Logger
	table       string
	resolutions string
}

// New opens the database described by config and creates the schema.
func New(config *Config) (*Store, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	config.setDefaults()

	if config.DataSourceName == "" {
		return nil, fmt.Errorf("DataSourceName is required")
	}
	if !tableNamePattern.MatchString(config.TableName) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTableName, config.TableName)
	}

	logger := logging.ComponentLogger(config.Logger, "sqlite-store")
	logger.InfoContext(context.Background(), "Opening SQLite database",
		slog.String("data_source", config.DataSourceName),
		slog.Bool("wal_enabled", config.EnableWAL),
	)

	db, err := sql.Open("sqlite3", config.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}

	store := &Store{
		db:          db,
		logger:      logger,
		table:       config.TableName,
		resolutions: config.TableName + "_resolutions",
	}
	if err := store.setupSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to setup database schema: %w", err)
	}

	logger.InfoContext(context.Background(), "SQLite store initialized",
		slog.String("table_name", store.table),
		slog.Int("max_open_conns", config.MaxOpenConns),
	)
	return store, nil
}

// setupSchema creates the state and resolution tables if they don't exist.
// last_updated holds Unix nanoseconds; 0 means unknown.
func (s *Store) setupSchema() error {
	query := fmt.Sprintf(`
    CREATE TABLE IF NOT EXISTS %[1]s (
        id              TEXT PRIMARY KEY,
        title           TEXT NOT NULL DEFAULT '',
        authors         TEXT NOT NULL DEFAULT '[]',
        progress        REAL NOT NULL DEFAULT 0,
        last_updated    INTEGER NOT NULL DEFAULT 0,
        platform        TEXT NOT NULL DEFAULT '',
        extra           TEXT,
        written_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_%[1]s_last_updated ON %[1]s (last_updated, id);
    CREATE TABLE IF NOT EXISTS %[2]s (
        seq             INTEGER PRIMARY KEY AUTOINCREMENT,
        record_id       TEXT NOT NULL,
        conflict_type   TEXT NOT NULL,
        strategy        TEXT NOT NULL,
        resolved        INTEGER NOT NULL,
        detail          TEXT,
        created_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_%[2]s_record ON %[2]s (record_id);
    `, s.table, s.resolutions)
	_, err := s.db.Exec(query)
	return err
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Upsert inserts or replaces records in one transaction. A record without an
// id fails the whole batch as invalid input.
func (s *Store) Upsert(ctx context.Context, records []record.Record) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if !r.HasID() {
			return syncErrors.NewInvalidInput(opUpsert, errors.New("record id is required"))
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return syncErrors.WrapOpComponent(err, opUpsert, component)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, title, authors, progress, last_updated, platform, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			authors = excluded.authors,
			progress = excluded.progress,
			last_updated = excluded.last_updated,
			platform = excluded.platform,
			extra = excluded.extra,
			written_at = CURRENT_TIMESTAMP`, s.table))
	if err != nil {
		return syncErrors.WrapOpComponent(err, opUpsert, component)
	}
	defer stmt.Close()

	for _, r := range records {
		rw, err := toRow(r)
		if err != nil {
			return syncErrors.WrapOpComponent(err, opUpsert, component)
		}
		if _, err = stmt.ExecContext(ctx, rw.id, rw.title, rw.authors, rw.progress, rw.lastUpdated, rw.platform, rw.extra); err != nil {
			return syncErrors.WrapOpComponent(fmt.Errorf("record %s: %w", r.ID, err), opUpsert, component)
		}
	}

	if err = tx.Commit(); err != nil {
		return syncErrors.WrapOpComponent(err, opUpsert, component)
	}
	return nil
}

// Delete removes the records with the given ids. Missing ids are ignored.
func (s *Store) Delete(ctx context.Context, ids []string) (err error) {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return syncErrors.WrapOpComponent(err, opDelete, component)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.table))
	if err != nil {
		return syncErrors.WrapOpComponent(err, opDelete, component)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err = stmt.ExecContext(ctx, id); err != nil {
			return syncErrors.WrapOpComponent(err, opDelete, component)
		}
	}
	if err = tx.Commit(); err != nil {
		return syncErrors.WrapOpComponent(err, opDelete, component)
	}
	return nil
}

// ApplyAdded implements strategy.Applier.
func (s *Store) ApplyAdded(ctx context.Context, records []record.Record) error {
	return s.Upsert(ctx, records)
}

// ApplyModified implements strategy.Applier by writing the source side of
// every change.
func (s *Store) ApplyModified(ctx context.Context, changes []compare.ModifiedRecord) error {
	records := make([]record.Record, len(changes))
	for i, c := range changes {
		records[i] = c.Source
	}
	return s.Upsert(ctx, records)
}

// ApplyDeleted implements strategy.Applier.
func (s *Store) ApplyDeleted(ctx context.Context, records []record.Record) error {
	return s.Delete(ctx, record.IDs(records))
}

// Load returns every record ordered by id. An empty table yields an empty,
// non-nil slice.
func (s *Store) Load(ctx context.Context) ([]record.Record, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM %s ORDER BY id ASC`, columns, s.table))
	if err != nil {
		return nil, syncErrors.WrapOpComponent(err, opLoad, component)
	}
	defer rows.Close()

	out, err := scanRecords(rows)
	if err != nil {
		return nil, syncErrors.WrapOpComponent(err, opLoad, component)
	}
	if out == nil {
		out = []record.Record{}
	}
	return out, nil
}

// Get returns the record with id, or ErrRecordNotFound.
func (s *Store) Get(ctx context.Context, id string) (record.Record, error) {
	if err := s.checkOpen(); err != nil {
		return record.Record{}, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE id = ?`, columns, s.table), id)
	if err != nil {
		return record.Record{}, syncErrors.WrapOpComponent(err, opGet, component)
	}
	defer rows.Close()

	out, err := scanRecords(rows)
	if err != nil {
		return record.Record{}, syncErrors.WrapOpComponent(err, opGet, component)
	}
	if len(out) == 0 {
		return record.Record{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return out[0], nil
}

// ValidateDataIntegrity runs SQLite's integrity check and rejects rows that
// could not have been written through Upsert.
func (s *Store) ValidateDataIntegrity(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	var result string
	if err := s.db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return syncErrors.WrapOpComponent(err, opIntegrity, component)
	}
	if result != "ok" {
		return syncErrors.WrapOpComponent(fmt.Errorf("integrity check failed: %s", result), opIntegrity, component)
	}

	var invalid int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE id = '' OR progress < 0 OR json_valid(authors) = 0`, s.table)).Scan(&invalid)
	if err != nil {
		return syncErrors.WrapOpComponent(err, opIntegrity, component)
	}
	if invalid > 0 {
		return syncErrors.WrapOpComponent(fmt.Errorf("%d invalid rows in %s", invalid, s.table), opIntegrity, component)
	}
	return nil
}

// GetStatistics reports row counts and connection pool usage.
func (s *Store) GetStatistics(ctx context.Context) (map[string]any, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var records, resolutions, resolved int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&records); err != nil {
		return nil, syncErrors.WrapOpComponent(err, opStats, component)
	}
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT COUNT(*), COALESCE(SUM(resolved), 0) FROM %s`, s.resolutions)).Scan(&resolutions, &resolved); err != nil {
		return nil, syncErrors.WrapOpComponent(err, opStats, component)
	}

	platforms := map[string]int{}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT platform, COUNT(*) FROM %s GROUP BY platform ORDER BY platform`, s.table))
	if err != nil {
		return nil, syncErrors.WrapOpComponent(err, opStats, component)
	}
	defer rows.Close()
	for rows.Next() {
		var platform string
		var n int
		if err := rows.Scan(&platform, &n); err != nil {
			return nil, syncErrors.WrapOpComponent(err, opStats, component)
		}
		platforms[platform] = n
	}
	if err := rows.Err(); err != nil {
		return nil, syncErrors.WrapOpComponent(err, opStats, component)
	}

	pool := s.db.Stats()
	return map[string]any{
		"table":                s.table,
		"records":              records,
		"platforms":            platforms,
		"resolutions":          resolutions,
		"resolutions_resolved": resolved,
		"open_connections":     pool.OpenConnections,
		"in_use":               pool.InUse,
	}, nil
}

// Stats returns database statistics for monitoring
func (s *Store) Stats() sql.DBStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return sql.DBStats{}
	}
	return s.db.Stats()
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

const columns = `id, title, authors, progress, last_updated, platform, extra`

type row struct {
	id          string
	title       string
	authors     string
	progress    float64
	lastUpdated int64
	platform    string
	extra       sql.NullString
}

func toRow(r record.Record) (row, error) {
	authors := r.Authors
	if authors == nil {
		authors = []string{}
	}
	authorsJSON, err := json.Marshal(authors)
	if err != nil {
		return row{}, fmt.Errorf("failed to marshal authors: %w", err)
	}

	out := row{
		id:       r.ID,
		title:    r.Title,
		authors:  string(authorsJSON),
		progress: r.Progress,
		platform: r.Platform,
	}
	if !r.LastUpdated.IsZero() {
		out.lastUpdated = r.LastUpdated.UTC().UnixNano()
	}
	if len(r.Extra) > 0 {
		extraJSON, err := json.Marshal(r.Extra)
		if err != nil {
			return row{}, fmt.Errorf("failed to marshal extra fields: %w", err)
		}
		out.extra = sql.NullString{String: string(extraJSON), Valid: true}
	}
	return out, nil
}

func (r row) record() (record.Record, error) {
	out := record.Record{
		ID:       r.id,
		Title:    r.title,
		Progress: r.progress,
		Platform: r.platform,
	}
	if err := json.Unmarshal([]byte(r.authors), &out.Authors); err != nil {
		return record.Record{}, fmt.Errorf("record %s: failed to decode authors: %w", r.id, err)
	}
	if len(out.Authors) == 0 {
		out.Authors = nil
	}
	if r.lastUpdated != 0 {
		out.LastUpdated = time.Unix(0, r.lastUpdated).UTC()
	}
	if r.extra.Valid && r.extra.String != "" {
		if err := json.Unmarshal([]byte(r.extra.String), &out.Extra); err != nil {
			return record.Record{}, fmt.Errorf("record %s: failed to decode extra fields: %w", r.id, err)
		}
	}
	return out, nil
}

// scanRecords is a helper to scan sql.Rows selected with columns.
func scanRecords(rows *sql.Rows) ([]record.Record, error) {
	var out []record.Record
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.title, &r.authors, &r.progress, &r.lastUpdated, &r.platform, &r.extra); err != nil {
			return nil, fmt.Errorf("failed to scan record row: %w", err)
		}
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return out, nil
}
