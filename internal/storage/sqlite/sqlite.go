// Package sqlite implements run persistence on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/siftlabs/sift/internal/storage"
	"github.com/siftlabs/sift/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	created_at      TEXT NOT NULL,
	source          TEXT NOT NULL,
	total_records   INTEGER NOT NULL,
	failed_records  INTEGER NOT NULL,
	skipped_records INTEGER NOT NULL,
	pattern_count   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS patterns (
	run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	pattern_id INTEGER NOT NULL,
	data       TEXT NOT NULL,
	PRIMARY KEY (run_id, pattern_id)
);

CREATE TABLE IF NOT EXISTS plans (
	run_id TEXT PRIMARY KEY REFERENCES runs(id) ON DELETE CASCADE,
	data   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// SQLiteStorage implements storage.Storage on a local SQLite database.
// Pattern sets and plans are stored as JSON documents; the run header is
// columnar so listing stays cheap.
type SQLiteStorage struct {
	db *sql.DB
}

var _ storage.Storage = (*SQLiteStorage)(nil)

// New opens (creating if needed) the run database at path.
func New(path string) (*SQLiteStorage, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// WAL mode for concurrent readers while a run is being saved.
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// SaveRun persists the run header, pattern set, and plan in one transaction.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *storage.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run is missing an id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, source, total_records, failed_records, skipped_records, pattern_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(time.RFC3339Nano), run.Source,
		run.TotalRecords, run.FailedRecords, run.SkippedRecords, run.PatternCount)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	for i := range run.Patterns {
		p := &run.Patterns[i]
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal pattern %d: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO patterns (run_id, pattern_id, data) VALUES (?, ?, ?)`,
			run.ID, p.ID, string(data)); err != nil {
			return fmt.Errorf("failed to insert pattern %d: %w", p.ID, err)
		}
	}

	planData, err := json.Marshal(run.Plan)
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO plans (run_id, data) VALUES (?, ?)`,
		run.ID, string(planData)); err != nil {
		return fmt.Errorf("failed to insert plan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun loads one run in full.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*storage.Run, error) {
	run, err := s.scanRun(s.db.QueryRowContext(ctx, `
		SELECT id, created_at, source, total_records, failed_records, skipped_records, pattern_count
		FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM patterns WHERE run_id = ? ORDER BY pattern_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns for run %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan pattern row: %w", err)
		}
		var p types.Pattern
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pattern: %w", err)
		}
		run.Patterns = append(run.Patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pattern rows: %w", err)
	}

	var planData string
	err = s.db.QueryRowContext(ctx, `SELECT data FROM plans WHERE run_id = ?`, id).Scan(&planData)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to load plan for run %s: %w", id, err)
	}
	if err == nil {
		if err := json.Unmarshal([]byte(planData), &run.Plan); err != nil {
			return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
		}
	}
	return run, nil
}

// ListRuns returns run headers, newest first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]*storage.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, source, total_records, failed_records, skipped_records, pattern_count
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*storage.Run
	for rows.Next() {
		run, err := s.scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run rows: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run; patterns and plan cascade.
func (s *SQLiteStorage) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStorage) scanRun(row rowScanner) (*storage.Run, error) {
	var run storage.Run
	var createdAt string
	if err := row.Scan(&run.ID, &createdAt, &run.Source,
		&run.TotalRecords, &run.FailedRecords, &run.SkippedRecords, &run.PatternCount); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at %q: %w", createdAt, err)
	}
	run.CreatedAt = t
	return &run, nil
}
