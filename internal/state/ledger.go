// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package state keeps a local SQLite ledger of batch runs. The migration
// log remains the canonical record; the ledger exists so the status command
// can answer "how did the last run go" without re-parsing logs.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/blob2pdf/pkg/types"
)

// Ledger records per-file results for one run at a time.
type Ledger struct {
	db    *sql.DB
	runID int64
}

// Open opens or creates the ledger database at path and starts a new run.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	if err := l.beginRun(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// OpenForReading opens the ledger without starting a run, for status
// queries.
func OpenForReading(path string) (*Ledger, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no ledger at %s: %w", path, err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error { return l.db.Close() }

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id),
			key TEXT NOT NULL,
			outcome TEXT NOT NULL,
			category TEXT,
			error TEXT,
			elapsed_ms INTEGER,
			completed_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run_id ON results(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func (l *Ledger) beginRun() error {
	res, err := l.db.Exec(`INSERT INTO runs (started_at) VALUES (?)`,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("starting run: %w", err)
	}
	l.runID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading run id: %w", err)
	}
	return nil
}

// Record stores one terminal file result under the current run.
func (l *Ledger) Record(key string, res types.ConversionResult) error {
	_, err := l.db.Exec(
		`INSERT INTO results (run_id, key, outcome, category, error, elapsed_ms, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.runID, key, string(res.Outcome), string(res.Category), res.Message,
		res.Elapsed.Milliseconds(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording %s: %w", key, err)
	}
	return nil
}

// RunSummary aggregates one run's results.
type RunSummary struct {
	RunID      int64
	StartedAt  time.Time
	ByOutcome  map[string]int
	ByCategory map[string]int
	Total      int
}

// LastRunSummary summarizes the most recent run with any results, or the
// most recent run if none have results.
func (l *Ledger) LastRunSummary() (*RunSummary, error) {
	var (
		runID   int64
		started string
	)
	err := l.db.QueryRow(
		`SELECT r.id, r.started_at FROM runs r
		 ORDER BY (SELECT COUNT(*) FROM results WHERE run_id = r.id) > 0 DESC, r.id DESC
		 LIMIT 1`).Scan(&runID, &started)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("ledger has no runs")
	}
	if err != nil {
		return nil, fmt.Errorf("reading runs: %w", err)
	}

	sum := &RunSummary{
		RunID:      runID,
		ByOutcome:  map[string]int{},
		ByCategory: map[string]int{},
	}
	if ts, err := time.Parse(time.RFC3339, started); err == nil {
		sum.StartedAt = ts
	}

	rows, err := l.db.Query(
		`SELECT outcome, category, COUNT(*) FROM results
		 WHERE run_id = ? GROUP BY outcome, category`, runID)
	if err != nil {
		return nil, fmt.Errorf("reading results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome, category string
		var n int
		if err := rows.Scan(&outcome, &category, &n); err != nil {
			return nil, fmt.Errorf("scanning results: %w", err)
		}
		sum.ByOutcome[outcome] += n
		if category != "" {
			sum.ByCategory[category] += n
		}
		sum.Total += n
	}
	return sum, rows.Err()
}
