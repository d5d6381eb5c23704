package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// ErrCacheMiss is returned when no catalog has been cached yet.
var ErrCacheMiss = errors.New("catalog cache is empty")

// Fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS drift_runs (
  id             INTEGER PRIMARY KEY,
  ran_at         TEXT NOT NULL,
  total_updates  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS price_changes (
  id             INTEGER PRIMARY KEY,
  run_id         INTEGER NOT NULL REFERENCES drift_runs(id),
  occurred_at    TEXT NOT NULL,
  category       TEXT NOT NULL,
  item_id        TEXT NOT NULL,
  name           TEXT,
  old_price      INTEGER NOT NULL,
  new_price      INTEGER NOT NULL,
  change         INTEGER NOT NULL,
  change_percent REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_changes_time ON price_changes(occurred_at);
CREATE INDEX IF NOT EXISTS idx_changes_item ON price_changes(category, item_id, occurred_at);
CREATE TABLE IF NOT EXISTS catalog_cache (
  id          INTEGER PRIMARY KEY CHECK (id = 1),
  document    BLOB NOT NULL,
  fetched_at  TEXT NOT NULL
);
    `); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// RecordRun stores a drift run and its changes in one transaction.
func (d *DB) RecordRun(ctx context.Context, at time.Time, changes []PriceChange) (runID int64, err error) {
	ts := at.UTC().Format(timeLayout)

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `INSERT INTO drift_runs(ran_at, total_updates) VALUES(?, ?)`, ts, len(changes))
	if err != nil {
		return 0, err
	}
	if runID, err = res.LastInsertId(); err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO price_changes(run_id, occurred_at, category, item_id, name, old_price, new_price, change, change_percent) VALUES(?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, c := range changes {
		if _, err = stmt.ExecContext(ctx, runID, ts, c.Category, c.ID, nullIfEmpty(c.Name), c.OldPrice, c.NewPrice, c.Change, c.ChangePercent); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// HistoryOptions filters ListChanges.
type HistoryOptions struct {
	Category string
	ItemID   string
	Since    time.Time
	Limit    int
}

// ListChanges returns recorded changes, most recent first.
func (d *DB) ListChanges(ctx context.Context, opts HistoryOptions) ([]HistoryEntry, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	if opts.Category != "" && opts.Category != "all" {
		where += " AND category = ?"
		args = append(args, opts.Category)
	}
	if opts.ItemID != "" {
		where += " AND item_id = ?"
		args = append(args, opts.ItemID)
	}
	if !opts.Since.IsZero() {
		where += " AND occurred_at >= ?"
		args = append(args, opts.Since.UTC().Format(timeLayout))
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	q := "SELECT run_id, occurred_at, category, item_id, name, old_price, new_price, change, change_percent FROM price_changes " + where + " ORDER BY occurred_at DESC, id DESC LIMIT ?"
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		var occurredAt string
		var name sql.NullString
		if err := rows.Scan(&e.RunID, &occurredAt, &e.Category, &e.ID, &name, &e.OldPrice, &e.NewPrice, &e.Change, &e.ChangePercent); err != nil {
			return nil, err
		}
		e.OccurredAt = parseTime(occurredAt)
		e.Name = name.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRuns returns the most recent N runs.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.QueryContext(ctx, "SELECT id, ran_at, total_updates FROM drift_runs ORDER BY ran_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var ranAt string
		if err := rows.Scan(&r.ID, &ranAt, &r.TotalUpdates); err != nil {
			return nil, err
		}
		r.RanAt = parseTime(ranAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (d *DB) GetStats(ctx context.Context) ([]CategoryStats, error) {
	query := `
		SELECT
			category,
			COUNT(*),
			SUM(CASE WHEN change > 0 THEN 1 ELSE 0 END),
			SUM(CASE WHEN change < 0 THEN 1 ELSE 0 END),
			AVG(change_percent),
			MAX(occurred_at)
		FROM
			price_changes
		GROUP BY
			category
		ORDER BY
			category;
	`
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []CategoryStats
	for rows.Next() {
		var s CategoryStats
		var last string
		if err := rows.Scan(&s.Category, &s.Changes, &s.Increases, &s.Decreases, &s.AvgChangePct, &last); err != nil {
			return nil, err
		}
		s.LastChangedAt = parseTime(last)
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// GetCatalog returns the cached catalog document and when it was fetched.
func (d *DB) GetCatalog(ctx context.Context) ([]byte, time.Time, error) {
	var doc []byte
	var fetchedAt string
	err := d.sql.QueryRowContext(ctx, "SELECT document, fetched_at FROM catalog_cache WHERE id = 1").Scan(&doc, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrCacheMiss
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	return doc, parseTime(fetchedAt), nil
}

// PutCatalog replaces the cached catalog document.
func (d *DB) PutCatalog(ctx context.Context, doc []byte, fetchedAt time.Time) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO catalog_cache(id, document, fetched_at) VALUES(1, ?, ?)
ON CONFLICT(id) DO UPDATE SET document = excluded.document, fetched_at = excluded.fetched_at`, doc, fetchedAt.UTC().Format(timeLayout))
	return err
}

// ClearCatalog drops the cached catalog.
func (d *DB) ClearCatalog(ctx context.Context) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM catalog_cache")
	return err
}

func parseTime(s string) time.Time {
	// Try our own layout, then SQLite CURRENT_TIMESTAMP format
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
