package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/edtools/proctor/internal/session"
)

const badgerKeyPrefix = "thread/"

// BadgerStore persists checkpoints in an embedded BadgerDB instance.
// It is the default backend for local single-process runs.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// NewBadgerStore opens (or creates) a BadgerDB at path. An empty path
// opens an in-memory instance.
func NewBadgerStore(path string, logger *slog.Logger) (*BadgerStore, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}

	return &BadgerStore{
		db:     db,
		logger: logger.With("system", "checkpoint"),
	}, nil
}

func (s *BadgerStore) Load(_ context.Context, threadID uuid.UUID) (*session.State, error) {
	var data []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(threadID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
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

func (s *BadgerStore) Save(_ context.Context, state *session.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(state.ThreadID), data)
	})
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	s.logger.Debug("checkpoint saved", "thread_id", state.ThreadID, "bytes", len(data))
	return nil
}

func (s *BadgerStore) Delete(_ context.Context, threadID uuid.UUID) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(threadID))
	})
	if err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func badgerKey(threadID uuid.UUID) []byte {
	return []byte(badgerKeyPrefix + threadID.String())
}
