// Package sources keeps a health ledger of the news sources searched by
// each run.
package sources

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrSourceNotFound is returned when a source has no ledger entry.
var ErrSourceNotFound = errors.New("source not found")

// Outcome summarizes one run's search tasks against a single source.
type Outcome struct {
	Source    string
	Tasks     int
	Failed    int
	NoContent int
	Stubs     int
	LastError string
}

// AllFailed reports whether every task against the source failed.
func (o Outcome) AllFailed() bool {
	return o.Tasks > 0 && o.Failed == o.Tasks
}

// Health is the accumulated record of a source across runs.
type Health struct {
	Source        string     `json:"source"`
	Runs          int        `json:"runs"`
	TasksRun      int        `json:"tasks_run"`
	TasksFailed   int        `json:"tasks_failed"`
	NoContent     int        `json:"no_content"`
	StubsFound    int        `json:"stubs_found"`
	FailureStreak int        `json:"failure_streak"` // Consecutive runs where every task failed
	LastError     *string    `json:"last_error,omitempty"`
	LastRunID     string     `json:"last_run_id"`
	LastRunAt     time.Time  `json:"last_run_at"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
}

// Filter narrows List results.
type Filter struct {
	FailingOnly bool // Only sources with a non-zero failure streak
	Limit       int
}

// HealthStore manages the source health ledger using SQLite.
type HealthStore struct {
	db *sql.DB
}

// NewHealthStore creates a new health store with the given database path.
func NewHealthStore(dbPath string) (*HealthStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &HealthStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the source_health table if it doesn't exist.
func (s *HealthStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS source_health (
		source TEXT PRIMARY KEY,
		runs INTEGER NOT NULL DEFAULT 0,
		tasks_run INTEGER NOT NULL DEFAULT 0,
		tasks_failed INTEGER NOT NULL DEFAULT 0,
		no_content INTEGER NOT NULL DEFAULT 0,
		stubs_found INTEGER NOT NULL DEFAULT 0,
		failure_streak INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		last_run_id TEXT NOT NULL,
		last_run_at TEXT NOT NULL,
		last_success_at TEXT
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *HealthStore) Close() error {
	return s.db.Close()
}

// RecordRun folds one run's outcomes into the ledger in a single
// transaction.
func (s *HealthStore) RecordRun(runID string, at time.Time, outcomes []Outcome) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT INTO source_health (
		source, runs, tasks_run, tasks_failed, no_content, stubs_found,
		failure_streak, last_error, last_run_id, last_run_at, last_success_at
	) VALUES (?, 1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(source) DO UPDATE SET
		runs = runs + 1,
		tasks_run = tasks_run + excluded.tasks_run,
		tasks_failed = tasks_failed + excluded.tasks_failed,
		no_content = no_content + excluded.no_content,
		stubs_found = stubs_found + excluded.stubs_found,
		failure_streak = CASE WHEN excluded.failure_streak > 0 THEN failure_streak + 1 ELSE 0 END,
		last_error = COALESCE(excluded.last_error, last_error),
		last_run_id = excluded.last_run_id,
		last_run_at = excluded.last_run_at,
		last_success_at = COALESCE(excluded.last_success_at, last_success_at)
	`

	for _, o := range outcomes {
		streak := 0
		var lastSuccess *time.Time
		if o.AllFailed() {
			streak = 1
		} else {
			lastSuccess = &at
		}

		var lastError any
		if o.LastError != "" {
			lastError = o.LastError
		}

		_, err := tx.Exec(query,
			o.Source, o.Tasks, o.Failed, o.NoContent, o.Stubs,
			streak, lastError, runID, formatTime(&at), formatTime(lastSuccess),
		)
		if err != nil {
			return fmt.Errorf("failed to record %s: %w", o.Source, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// Get returns the ledger entry for a source.
func (s *HealthStore) Get(source string) (*Health, error) {
	rows, err := s.query("WHERE source = ?", source)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrSourceNotFound
	}
	return &rows[0], nil
}

// List returns ledger entries ordered by source name.
func (s *HealthStore) List(filter Filter) ([]Health, error) {
	var whereClauses []string
	if filter.FailingOnly {
		whereClauses = append(whereClauses, "failure_streak > 0")
	}

	clause := ""
	if len(whereClauses) > 0 {
		clause = "WHERE " + strings.Join(whereClauses, " AND ")
	}
	clause += " ORDER BY source"
	if filter.Limit > 0 {
		clause += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	return s.query(clause)
}

func (s *HealthStore) query(clause string, args ...any) ([]Health, error) {
	query := `
		SELECT source, runs, tasks_run, tasks_failed, no_content, stubs_found,
		       failure_streak, last_error, last_run_id, last_run_at, last_success_at
		FROM source_health
	` + clause

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query source health: %w", err)
	}
	defer rows.Close()

	var result []Health
	for rows.Next() {
		var h Health
		var lastRunAt string
		var lastError, lastSuccessAt sql.NullString

		err := rows.Scan(
			&h.Source, &h.Runs, &h.TasksRun, &h.TasksFailed, &h.NoContent,
			&h.StubsFound, &h.FailureStreak, &lastError, &h.LastRunID,
			&lastRunAt, &lastSuccessAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source health: %w", err)
		}

		h.LastRunAt = parseTime(lastRunAt)
		if lastError.Valid {
			h.LastError = &lastError.String
		}
		if lastSuccessAt.Valid {
			t := parseTime(lastSuccessAt.String)
			h.LastSuccessAt = &t
		}
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate source health: %w", err)
	}

	return result, nil
}

// Helper functions for time formatting
func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	// Strip monotonic clock for consistent storage and comparisons
	return t.Truncate(0).Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	// Try RFC3339Nano first, fall back to RFC3339 for compatibility
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	// Strip monotonic clock for consistent comparisons
	return t.Truncate(0)
}
