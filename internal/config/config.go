// Package config loads the proctor configuration in three phases: the
// base config.toml (if present), an environment overlay selected by
// PROCTOR_ENV, and environment variable overrides, finalized with
// defaults and validation.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/edtools/proctor/pkg/database"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvProctorEnv             = "PROCTOR_ENV"
	EnvProctorShutdownTimeout = "PROCTOR_SHUTDOWN_TIMEOUT"
	EnvProctorVersion         = "PROCTOR_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "PROCTOR_DB_HOST",
	Port:            "PROCTOR_DB_PORT",
	Name:            "PROCTOR_DB_NAME",
	User:            "PROCTOR_DB_USER",
	Password:        "PROCTOR_DB_PASSWORD",
	SSLMode:         "PROCTOR_DB_SSL_MODE",
	MaxOpenConns:    "PROCTOR_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "PROCTOR_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "PROCTOR_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "PROCTOR_DB_CONN_TIMEOUT",
}

// Config is the root configuration for the proctor CLI.
type Config struct {
	Agent           AgentConfig      `toml:"agent"`
	Service         ServiceConfig    `toml:"service"`
	Checkpoint      CheckpointConfig `toml:"checkpoint"`
	Workflow        WorkflowConfig   `toml:"workflow"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
}

// Env returns the PROCTOR_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvProctorEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment
// overlay, and finalizes all values. Without a config.toml, defaults
// and environment variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Agent.Merge(&overlay.Agent)
	c.Service.Merge(&overlay.Service)
	c.Checkpoint.Merge(&overlay.Checkpoint)
	c.Workflow.Merge(&overlay.Workflow)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Service.Finalize(); err != nil {
		return fmt.Errorf("service: %w", err)
	}
	if err := c.Checkpoint.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := c.Workflow.Finalize(); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvProctorShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvProctorVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvProctorEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
