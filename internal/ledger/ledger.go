// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger persists run outcomes in a SQLite database so success
// and failure counts can be tallied across many invocations. One row per
// bucket harvested or file annotated.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Stage identifiers for ledger rows.
const (
	StageHarvest  = "harvest"
	StageAnnotate = "annotate"
)

// Status values for ledger rows.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Store manages the run-ledger SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger database at path, creating the parent
// directory and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS outcomes (
		rowid INTEGER PRIMARY KEY AUTOINCREMENT,
		stage TEXT NOT NULL,
		unit TEXT NOT NULL,
		status TEXT NOT NULL,
		records INTEGER NOT NULL,
		finished_at TEXT NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_outcomes_stage ON outcomes(stage)`)
	return err
}

// Record appends one outcome row. unit names the bucket or file; records
// is the count of records harvested or newly scored.
func (s *Store) Record(ctx context.Context, stage, unit, status string, records int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outcomes (stage, unit, status, records, finished_at) VALUES (?, ?, ?, ?, ?)`,
		stage, unit, status, records, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording outcome for %s: %w", unit, err)
	}
	return nil
}

// Tally holds outcome counts for one stage.
type Tally struct {
	OK      int
	Skipped int
	Failed  int
	Records int
}

// Tally aggregates all recorded outcomes for stage.
func (s *Store) Tally(ctx context.Context, stage string) (Tally, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(records), 0) FROM outcomes WHERE stage = ? GROUP BY status`,
		stage,
	)
	if err != nil {
		return Tally{}, fmt.Errorf("querying tally: %w", err)
	}
	defer rows.Close()

	var t Tally
	for rows.Next() {
		var status string
		var count, records int
		if err := rows.Scan(&status, &count, &records); err != nil {
			return Tally{}, fmt.Errorf("scanning tally row: %w", err)
		}
		t.Records += records
		switch status {
		case StatusOK:
			t.OK = count
		case StatusSkipped:
			t.Skipped = count
		case StatusFailed:
			t.Failed = count
		}
	}
	return t, rows.Err()
}
