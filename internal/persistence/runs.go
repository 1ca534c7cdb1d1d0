package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordRun appends a run to the journal. An empty ID is filled with a new UUID.
// Runs are append-only.
func (s *SQLiteStore) RecordRun(ctx context.Context, run Run) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	var sessionID sql.NullString
	if run.SessionID != "" {
		sessionID = sql.NullString{String: run.SessionID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_runs (id, session_id, task, kind, outcome, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, sessionID, run.Task, run.Kind, run.Outcome, run.Error,
		run.StartedAt.UnixNano(), run.FinishedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record run of %s: %w", run.Task, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. A limit <= 0 returns all runs.
// Returns empty slice (not nil) if there are no runs.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	// rowid breaks ties between runs finishing in the same nanosecond
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(session_id, ''), task, kind, outcome, error, started_at, finished_at
		FROM task_runs
		ORDER BY finished_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			run               Run
			started, finished int64
		)
		if err := rows.Scan(&run.ID, &run.SessionID, &run.Task, &run.Kind, &run.Outcome, &run.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = time.Unix(0, started)
		run.FinishedAt = time.Unix(0, finished)
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// CountRuns counts runs of task with the given outcome. Empty arguments match everything.
func (s *SQLiteStore) CountRuns(ctx context.Context, task, outcome string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM task_runs
		WHERE (? = '' OR task = ?) AND (? = '' OR outcome = ?)
	`, task, task, outcome, outcome).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}
