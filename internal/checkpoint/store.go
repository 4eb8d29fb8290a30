// Package checkpoint persists Turn State between conversational turns.
// The controller holds no long-lived state between process invocations;
// every turn loads the thread's state from a Store and saves the merged
// result before emitting messages.
package checkpoint

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/edtools/proctor/internal/session"
)

// ErrNotFound is returned when no checkpoint exists for a thread.
var ErrNotFound = errors.New("checkpoint not found")

// Store is the external checkpoint store abstraction, keyed by thread.
type Store interface {
	Load(ctx context.Context, threadID uuid.UUID) (*session.State, error)
	Save(ctx context.Context, state *session.State) error
	Delete(ctx context.Context, threadID uuid.UUID) error
	Close() error
}

// LoadOrCreate returns the thread's persisted state, or a fresh empty
// state when none exists yet.
func LoadOrCreate(ctx context.Context, store Store, threadID uuid.UUID) (*session.State, error) {
	state, err := store.Load(ctx, threadID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return session.New(threadID), nil
		}
		return nil, err
	}
	return state, nil
}
