package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/roleautomator/jamfroles/pkg/privileges"
	_ "modernc.org/sqlite"
)

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
CREATE TABLE IF NOT EXISTS runs (
  id               TEXT PRIMARY KEY,
  started_at       TEXT NOT NULL,
  privilege_count  INTEGER NOT NULL,
  endpoint_count   INTEGER NOT NULL,
  change_count     INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS privileges (
  surface        TEXT NOT NULL,
  name           TEXT NOT NULL,
  category       TEXT NOT NULL,
  run_id         TEXT NOT NULL,
  first_seen_at  TEXT NOT NULL,
  last_seen_at   TEXT NOT NULL,
  PRIMARY KEY(surface, name)
);
CREATE TABLE IF NOT EXISTS privilege_changes (
  id                 INTEGER PRIMARY KEY,
  occurred_at        TEXT NOT NULL,
  run_id             TEXT NOT NULL,
  surface            TEXT NOT NULL,
  name               TEXT NOT NULL,
  category           TEXT NOT NULL,
  previous_category  TEXT,
  change_type        TEXT NOT NULL CHECK (change_type IN ('added','recategorized','removed'))
);
CREATE INDEX IF NOT EXISTS idx_changes_time ON privilege_changes(occurred_at);
CREATE INDEX IF NOT EXISTS idx_changes_run ON privilege_changes(run_id);
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

// RecordRun stores the privileges seen by a sync and logs what changed since
// the previous one. The very first run only populates the table.
func (d *DB) RecordRun(ctx context.Context, at time.Time, db *privileges.Database) (res *RunResult, err error) {
	runID := uuid.NewString()
	stamp := at.UTC().Format(time.RFC3339)

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existingMap := make(map[string]string)
	rows, err := tx.QueryContext(ctx, "SELECT surface, name, category FROM privileges")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var surface, name, category string
		if err = rows.Scan(&surface, &name, &category); err != nil {
			rows.Close()
			return nil, err
		}
		existingMap[identityKey(surface, name)] = category
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}

	res = &RunResult{
		Run:      Run{ID: runID, StartedAt: at.UTC(), PrivilegeCount: len(db.Privileges), EndpointCount: len(db.Endpoints)},
		FirstRun: len(existingMap) == 0,
	}

	for _, r := range db.Privileges {
		key := identityKey(string(r.Surface), r.Name)
		prevCat, existed := existingMap[key]

		if !existed {
			_, err = tx.ExecContext(ctx, `INSERT INTO privileges(surface, name, category, run_id, first_seen_at, last_seen_at) VALUES(?,?,?,?,?,?)`, string(r.Surface), r.Name, r.Category, runID, stamp, stamp)
			if err != nil {
				return nil, err
			}
			if !res.FirstRun {
				res.Changes = append(res.Changes, Change{OccurredAt: at.UTC(), RunID: runID, Surface: string(r.Surface), Name: r.Name, Category: r.Category, ChangeType: ChangeAdded})
			}
			continue
		}

		_, err = tx.ExecContext(ctx, `UPDATE privileges SET category = ?, run_id = ?, last_seen_at = ? WHERE surface = ? AND name = ?`, r.Category, runID, stamp, string(r.Surface), r.Name)
		if err != nil {
			return nil, err
		}
		if prevCat != r.Category {
			res.Changes = append(res.Changes, Change{OccurredAt: at.UTC(), RunID: runID, Surface: string(r.Surface), Name: r.Name, Category: r.Category, PreviousCategory: prevCat, ChangeType: ChangeRecategorized})
		}
	}

	// Sweep: privileges not touched in this run were removed from the docs
	staleRows, err := tx.QueryContext(ctx, "SELECT surface, name, category FROM privileges WHERE run_id != ? ORDER BY surface, name", runID)
	if err != nil {
		return nil, err
	}
	var removed []Change
	for staleRows.Next() {
		c := Change{OccurredAt: at.UTC(), RunID: runID, ChangeType: ChangeRemoved}
		if err = staleRows.Scan(&c.Surface, &c.Name, &c.Category); err != nil {
			staleRows.Close()
			return nil, err
		}
		removed = append(removed, c)
	}
	if err = staleRows.Close(); err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		if _, err = tx.ExecContext(ctx, `DELETE FROM privileges WHERE run_id != ?`, runID); err != nil {
			return nil, err
		}
		res.Changes = append(res.Changes, removed...)
	}

	for _, c := range res.Changes {
		_, err = tx.ExecContext(ctx, `INSERT INTO privilege_changes(occurred_at, run_id, surface, name, category, previous_category, change_type) VALUES(?,?,?,?,?,?,?)`, stamp, runID, c.Surface, c.Name, c.Category, nullIfEmpty(c.PreviousCategory), c.ChangeType)
		if err != nil {
			return nil, err
		}
	}

	res.Run.Changes = len(res.Changes)
	_, err = tx.ExecContext(ctx, `INSERT INTO runs(id, started_at, privilege_count, endpoint_count, change_count) VALUES(?,?,?,?,?)`, runID, stamp, res.Run.PrivilegeCount, res.Run.EndpointCount, res.Run.Changes)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

// ListRecentChanges returns the most recent N changes, newest first.
func (d *DB) ListRecentChanges(ctx context.Context, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT occurred_at, run_id, surface, name, category, previous_category, change_type FROM privilege_changes ORDER BY occurred_at DESC, id DESC LIMIT ?"
	rows, err := d.sql.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var c Change
		var occurredAt string
		var prev sql.NullString
		if err := rows.Scan(&occurredAt, &c.RunID, &c.Surface, &c.Name, &c.Category, &prev, &c.ChangeType); err != nil {
			return nil, err
		}
		c.OccurredAt = parseTime(occurredAt)
		c.PreviousCategory = prev.String
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}

// ListRuns returns the most recent N runs, newest first.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := d.sql.QueryContext(ctx, "SELECT id, started_at, privilege_count, endpoint_count, change_count FROM runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt string
		if err := rows.Scan(&r.ID, &startedAt, &r.PrivilegeCount, &r.EndpointCount, &r.Changes); err != nil {
			return nil, err
		}
		r.StartedAt = parseTime(startedAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func identityKey(surface, name string) string {
	return fmt.Sprintf("%s|%s", surface, name)
}

// parseTime accepts RFC3339 and SQLite's CURRENT_TIMESTAMP format.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
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
