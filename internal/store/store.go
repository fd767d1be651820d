// Package store persists the set of session IDs that already have
// notifications scheduled. Records are insert-only: never updated, never
// deleted. A session's presence here is the sole source of truth for
// "already handled", which is what keeps restarts from double-scheduling.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lvaldez/pitwall/internal/config"
)

// Store provides access to the scheduled-session records.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store over an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema idempotently creates the scheduled_sessions table. Startup
// must not continue if this fails: without the table every cycle would
// re-schedule every session.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+config.ScheduledSessionsTable+` (
			session_id   TEXT PRIMARY KEY,
			scheduled_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// IsScheduled reports whether a session already has a record.
func (s *Store) IsScheduled(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+config.ScheduledSessionsTable+` WHERE session_id = $1)`,
		sessionID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check scheduled %s: %w", sessionID, err)
	}
	return exists, nil
}

// MarkScheduled records a session as handled. Inserting an ID that is
// already present is a silent no-op, so seeing the same session twice in
// one cycle (or re-marking after a retry) is harmless.
func (s *Store) MarkScheduled(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+config.ScheduledSessionsTable+` (session_id)
		VALUES ($1)
		ON CONFLICT (session_id) DO NOTHING`,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("mark scheduled %s: %w", sessionID, err)
	}
	return nil
}

// CountScheduled returns the total number of recorded sessions.
func (s *Store) CountScheduled(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM `+config.ScheduledSessionsTable,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count scheduled: %w", err)
	}
	return count, nil
}
