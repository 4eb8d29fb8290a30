package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/edtools/proctor/internal/session"
)

// MemoryStore keeps checkpoints in process memory. State is copied on
// both save and load so callers never share a mutable record.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[uuid.UUID][]byte
}

// NewMemoryStore creates an empty in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[uuid.UUID][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, threadID uuid.UUID) (*session.State, error) {
	s.mu.RLock()
	data, ok := s.states[threadID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: thread %s", ErrNotFound, threadID)
	}

	var state session.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return &state, nil
}

func (s *MemoryStore) Save(_ context.Context, state *session.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	s.mu.Lock()
	s.states[state.ThreadID] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, threadID uuid.UUID) error {
	s.mu.Lock()
	delete(s.states, threadID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
