package config

import (
	"fmt"
	"os"

	"github.com/edtools/proctor/pkg/database"
)

// Checkpoint store backends.
const (
	BackendMemory   = "memory"
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
)

const (
	EnvCheckpointBackend = "PROCTOR_CHECKPOINT_BACKEND"
	EnvCheckpointPath    = "PROCTOR_CHECKPOINT_PATH"
)

// CheckpointConfig selects where Turn State persists between turns.
type CheckpointConfig struct {
	Backend  string          `toml:"backend"`
	Path     string          `toml:"path"`
	Database database.Config `toml:"database"`
}

// Merge overwrites non-zero fields from overlay.
func (c *CheckpointConfig) Merge(overlay *CheckpointConfig) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
	c.Database.Merge(&overlay.Database)
}

// Finalize applies defaults, environment overrides, and validation.
// The database sub-config is only finalized for the postgres backend.
func (c *CheckpointConfig) Finalize(env *database.Env) error {
	if c.Backend == "" {
		c.Backend = BackendBadger
	}
	if c.Path == "" {
		c.Path = "data/checkpoints"
	}

	if v := os.Getenv(EnvCheckpointBackend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(EnvCheckpointPath); v != "" {
		c.Path = v
	}

	switch c.Backend {
	case BackendMemory, BackendBadger:
		return nil
	case BackendPostgres:
		if err := c.Database.Finalize(env); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown checkpoint backend %q", c.Backend)
	}
}
