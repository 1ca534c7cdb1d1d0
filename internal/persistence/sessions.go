package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StartSession opens a journal session for one executor lifetime and returns its ID.
func (s *SQLiteStore) StartSession(ctx context.Context, source string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, source, started_at)
		VALUES (?, ?, ?)
	`, id, source, time.Now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}
	return id, nil
}

// EndSession stamps the end time of a session.
func (s *SQLiteStore) EndSession(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET ended_at = ? WHERE id = ?
	`, time.Now().UnixNano(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session not found: %s", sessionID)
	}
	return nil
}

// GetSession retrieves a session.
// Returns a wrapped sql.ErrNoRows if the session does not exist.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		sess             Session
		started, stopped int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source, started_at, ended_at
		FROM sessions
		WHERE id = ?
	`, sessionID).Scan(&sess.ID, &sess.Source, &started, &stopped)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no session %q: %w", sessionID, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	sess.StartedAt = time.Unix(0, started)
	if stopped != 0 {
		sess.EndedAt = time.Unix(0, stopped)
	}
	return &sess, nil
}
