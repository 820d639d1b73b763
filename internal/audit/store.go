// Package audit keeps finished runs in a SQLite database.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"reactagent/internal/agent"
)

// ErrNotFound is returned by Load for an unknown run ID.
var ErrNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	goal TEXT NOT NULL,
	outcome TEXT NOT NULL,
	iterations INTEGER NOT NULL,
	max_iterations INTEGER NOT NULL,
	verdict TEXT,
	failure TEXT,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
	run_id TEXT NOT NULL,
	ordinal INTEGER NOT NULL,
	iteration INTEGER NOT NULL,
	kind TEXT NOT NULL,
	payload TEXT NOT NULL,
	PRIMARY KEY (run_id, ordinal),
	FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Store persists reports and their histories.
type Store struct {
	db   *sql.DB
	path string
}

// RunSummary is one line of the run list.
type RunSummary struct {
	RunID      string           `json:"run_id"`
	Goal       agent.Goal       `json:"goal"`
	Outcome    agent.RunOutcome `json:"outcome"`
	Iterations int              `json:"iterations"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Open creates the database file and its directory when missing.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create audit directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	// A single connection keeps :memory: databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes a report and its history. Saving the same run again replaces it.
func (s *Store) Save(ctx context.Context, report *agent.Report) error {
	if report == nil || report.RunID == "" {
		return errors.New("report has no run ID")
	}
	verdict, err := nullableJSON(report.Verdict)
	if err != nil {
		return fmt.Errorf("failed to encode verdict: %w", err)
	}
	failure, err := nullableJSON(report.Failure)
	if err != nil {
		return fmt.Errorf("failed to encode failure: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, report.RunID); err != nil {
		return fmt.Errorf("failed to replace run: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, goal, outcome, iterations, max_iterations, verdict, failure, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, string(report.Goal), string(report.Outcome), report.Iterations, report.MaxIterations,
		verdict, failure, formatTime(report.StartedAt), formatTime(report.FinishedAt))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (run_id, ordinal, iteration, kind, payload) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for _, entry := range report.History {
		payload, err := agent.MarshalEntry(entry)
		if err != nil {
			return err
		}
		meta := entry.Meta()
		if _, err := stmt.ExecContext(ctx, report.RunID, meta.Ordinal, meta.Iteration, string(entry.Kind()), string(payload)); err != nil {
			return fmt.Errorf("failed to insert entry %d: %w", meta.Ordinal, err)
		}
	}
	return tx.Commit()
}

// Load returns the report saved under runID with its full history.
func (s *Store) Load(ctx context.Context, runID string) (*agent.Report, error) {
	var (
		report                agent.Report
		goal, outcome         string
		verdict, failure      sql.NullString
		startedAt, finishedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, goal, outcome, iterations, max_iterations, verdict, failure, started_at, finished_at
		FROM runs WHERE id = ?`, runID).
		Scan(&report.RunID, &goal, &outcome, &report.Iterations, &report.MaxIterations,
			&verdict, &failure, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	report.Goal = agent.Goal(goal)
	report.Outcome = agent.RunOutcome(outcome)
	if report.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if report.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, err
	}
	if verdict.Valid {
		report.Verdict = &agent.Verdict{}
		if err := json.Unmarshal([]byte(verdict.String), report.Verdict); err != nil {
			return nil, fmt.Errorf("failed to decode verdict: %w", err)
		}
	}
	if failure.Valid {
		report.Failure = &agent.OracleFailure{}
		if err := json.Unmarshal([]byte(failure.String), report.Failure); err != nil {
			return nil, fmt.Errorf("failed to decode failure: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM entries WHERE run_id = ? ORDER BY ordinal`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	report.History = []agent.Entry{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		entry, err := agent.UnmarshalEntry([]byte(payload))
		if err != nil {
			return nil, err
		}
		report.History = append(report.History, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &report, nil
}

// List returns the most recent runs first. A non-positive limit lists everything.
func (s *Store) List(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `SELECT id, goal, outcome, iterations, started_at, finished_at FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			run                   RunSummary
			goal, outcome         string
			startedAt, finishedAt string
		)
		if err := rows.Scan(&run.RunID, &goal, &outcome, &run.Iterations, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		run.Goal = agent.Goal(goal)
		run.Outcome = agent.RunOutcome(outcome)
		if run.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if run.FinishedAt, err = parseTime(finishedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func nullableJSON(v any) (sql.NullString, error) {
	switch value := v.(type) {
	case *agent.Verdict:
		if value == nil {
			return sql.NullString{}, nil
		}
	case *agent.OracleFailure:
		if value == nil {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// Times are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
