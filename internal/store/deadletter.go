package store

import (
	"database/sql"
	"fmt"
	"time"
)

// DeadLetter is a chat notification that could not be delivered. Target is
// the channel or user id the message was addressed to.
type DeadLetter struct {
	ID          string
	Target      string
	Message     string
	Error       string
	CreatedAt   int64 // unix ms
	RetryCount  int
	NextRetryAt int64 // unix ms, 0 = given up
	ResolvedAt  int64 // unix ms, 0 = unresolved
}

// SaveDeadLetter inserts or updates a dead letter.
func (s *Store) SaveDeadLetter(dl *DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dl.CreatedAt == 0 {
		dl.CreatedAt = time.Now().UnixMilli()
	}

	query := `
	INSERT OR REPLACE INTO dead_letters (id, target, message, error, created_at, retry_count, next_retry_at, resolved_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		dl.ID, dl.Target, dl.Message, dl.Error, dl.CreatedAt, dl.RetryCount,
		sql.NullInt64{Int64: dl.NextRetryAt, Valid: dl.NextRetryAt != 0},
		sql.NullInt64{Int64: dl.ResolvedAt, Valid: dl.ResolvedAt != 0},
	)
	if err != nil {
		return fmt.Errorf("failed to save dead letter: %w", err)
	}
	return nil
}

// ListRetryable returns unresolved dead letters whose retry time has come.
func (s *Store) ListRetryable(limit int) ([]*DeadLetter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UnixMilli()
	query := `
	SELECT id, target, message, error, created_at, retry_count, next_retry_at, resolved_at
	FROM dead_letters
	WHERE resolved_at IS NULL AND next_retry_at IS NOT NULL AND next_retry_at <= ?
	ORDER BY next_retry_at ASC
	LIMIT ?
	`

	rows, err := s.db.Query(query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list retryable dead letters: %w", err)
	}
	defer rows.Close()

	var letters []*DeadLetter
	for rows.Next() {
		dl := &DeadLetter{}
		var nextRetry, resolved sql.NullInt64
		if err := rows.Scan(&dl.ID, &dl.Target, &dl.Message, &dl.Error,
			&dl.CreatedAt, &dl.RetryCount, &nextRetry, &resolved); err != nil {
			return nil, fmt.Errorf("failed to scan dead letter: %w", err)
		}
		dl.NextRetryAt = nextRetry.Int64
		dl.ResolvedAt = resolved.Int64
		letters = append(letters, dl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dead letters: %w", err)
	}
	return letters, nil
}

// IncrementRetry bumps the retry counter and schedules the next attempt.
// A zero nextRetryAt marks the letter as given up.
func (s *Store) IncrementRetry(id string, nextRetryAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `UPDATE dead_letters SET retry_count = retry_count + 1, next_retry_at = ? WHERE id = ?`
	_, err := s.db.Exec(query, sql.NullInt64{Int64: nextRetryAt, Valid: nextRetryAt != 0}, id)
	if err != nil {
		return fmt.Errorf("failed to increment dead letter retry: %w", err)
	}
	return nil
}

// ResolveDeadLetter marks a dead letter as delivered.
func (s *Store) ResolveDeadLetter(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE dead_letters SET resolved_at = ? WHERE id = ?`, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to resolve dead letter: %w", err)
	}
	return nil
}
