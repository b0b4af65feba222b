// Package history persists a journal of finished trim runs in SQLite.
// Dialogue sessions are deliberately memory-only; the journal exists so an
// operator can see what the bot did after the fact.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"clipd/internal/config"
)

// Outcome is the terminal state of one pipeline run.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// Record is one journal row.
type Record struct {
	ID          int64
	UserID      int64
	ChatID      int64
	FileName    string
	Start       float64
	End         float64
	Duration    float64
	OutputBytes int64
	Outcome     Outcome
	FailureKind string
	Detail      string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Summary aggregates journal counts.
type Summary struct {
	Total     int
	Completed int
	Failed    int
}

const schema = `
CREATE TABLE IF NOT EXISTS trim_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    chat_id INTEGER NOT NULL,
    file_name TEXT NOT NULL,
    start_seconds REAL NOT NULL,
    end_seconds REAL NOT NULL,
    duration_seconds REAL NOT NULL,
    output_bytes INTEGER NOT NULL DEFAULT 0,
    outcome TEXT NOT NULL,
    failure_kind TEXT NOT NULL DEFAULT '',
    detail TEXT NOT NULL DEFAULT '',
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trim_runs_finished_at ON trim_runs(finished_at);
`

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "history.db"))
}

// OpenPath opens the journal at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Append inserts one finished run.
func (s *Store) Append(ctx context.Context, rec Record) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO trim_runs (
            user_id, chat_id, file_name,
            start_seconds, end_seconds, duration_seconds,
            output_bytes, outcome, failure_kind, detail,
            started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID,
		rec.ChatID,
		rec.FileName,
		rec.Start,
		rec.End,
		rec.Duration,
		rec.OutputBytes,
		string(rec.Outcome),
		rec.FailureKind,
		rec.Detail,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert trim run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, user_id, chat_id, file_name,
                start_seconds, end_seconds, duration_seconds,
                output_bytes, outcome, failure_kind, detail,
                started_at, finished_at
         FROM trim_runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query trim runs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var outcome, startedAt, finishedAt string
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.ChatID, &rec.FileName,
			&rec.Start, &rec.End, &rec.Duration,
			&rec.OutputBytes, &outcome, &rec.FailureKind, &rec.Detail,
			&startedAt, &finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan trim run: %w", err)
		}
		rec.Outcome = Outcome(outcome)
		rec.StartedAt = parseTime(startedAt)
		rec.FinishedAt = parseTime(finishedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Summarize aggregates counts per outcome.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM trim_runs GROUP BY outcome`)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize trim runs: %w", err)
	}
	defer rows.Close()

	var summary Summary
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return Summary{}, fmt.Errorf("scan summary: %w", err)
		}
		summary.Total += count
		switch Outcome(outcome) {
		case OutcomeCompleted:
			summary.Completed = count
		case OutcomeFailed:
			summary.Failed = count
		}
	}
	return summary, rows.Err()
}

func parseTime(value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}
