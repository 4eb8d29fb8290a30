package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/edtools/proctor/internal/session"
	"github.com/edtools/proctor/pkg/database"
)

const sessionsSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	thread_id  UUID PRIMARY KEY,
	state      JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore persists checkpoints in a shared PostgreSQL instance,
// suitable for running multiple controller processes against one
// checkpoint store. Each thread occupies a single JSONB row.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore wraps an open database system and ensures the
// sessions table exists. Connection lifecycle (ping, close) remains the
// database system's responsibility.
func NewPostgresStore(ctx context.Context, sys database.System, logger *slog.Logger) (*PostgresStore, error) {
	db := sys.Connection()
	if _, err := db.ExecContext(ctx, sessionsSchema); err != nil {
		return nil, fmt.Errorf("ensure sessions table: %w", err)
	}

	return &PostgresStore{
		db:     db,
		logger: logger.With("system", "checkpoint"),
	}, nil
}

func (s *PostgresStore) Load(ctx context.Context, threadID uuid.UUID) (*session.State, error) {
	var data []byte

	q := "SELECT state FROM sessions WHERE thread_id = $1"
	if err := s.db.QueryRowContext(ctx, q, threadID).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: thread %s", ErrNotFound, threadID)
		}
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	var state session.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return &state, nil
}

func (s *PostgresStore) Save(ctx context.Context, state *session.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	q := `
		INSERT INTO sessions (thread_id, state)
		VALUES ($1, $2)
		ON CONFLICT (thread_id)
		DO UPDATE SET state = EXCLUDED.state, updated_at = now()`

	if _, err := s.db.ExecContext(ctx, q, state.ThreadID, data); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	s.logger.Debug("checkpoint saved", "thread_id", state.ThreadID, "bytes", len(data))
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, threadID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE thread_id = $1", threadID); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// Close is a no-op; the owning database system closes the connection
// through its lifecycle hooks.
func (s *PostgresStore) Close() error {
	return nil
}
