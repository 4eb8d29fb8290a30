package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Environment variables for the grading service connection. The bare
// MCP_SERVER_PATH name is kept for compatibility with existing grading
// service deployments.
const (
	EnvServiceCommand = "PROCTOR_SERVICE_COMMAND"
	EnvServiceArgs    = "PROCTOR_SERVICE_ARGS"
	EnvMCPServerPath  = "MCP_SERVER_PATH"
)

// ServiceConfig describes how to launch the grading service's MCP
// stdio server. When only ServerPath is set, the server is launched as
// a python script.
type ServiceConfig struct {
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	ServerPath     string   `toml:"server_path"`
	StartupTimeout string   `toml:"startup_timeout"`
}

// Merge overwrites non-zero fields from overlay.
func (c *ServiceConfig) Merge(overlay *ServiceConfig) {
	if overlay.Command != "" {
		c.Command = overlay.Command
	}
	if len(overlay.Args) > 0 {
		c.Args = overlay.Args
	}
	if overlay.ServerPath != "" {
		c.ServerPath = overlay.ServerPath
	}
	if overlay.StartupTimeout != "" {
		c.StartupTimeout = overlay.StartupTimeout
	}
}

// Finalize applies defaults, environment overrides, and validation.
func (c *ServiceConfig) Finalize() error {
	if c.StartupTimeout == "" {
		c.StartupTimeout = "30s"
	}

	if v := os.Getenv(EnvServiceCommand); v != "" {
		c.Command = v
	}
	if v := os.Getenv(EnvServiceArgs); v != "" {
		c.Args = strings.Fields(v)
	}
	if v := os.Getenv(EnvMCPServerPath); v != "" {
		c.ServerPath = v
	}

	if c.Command == "" && c.ServerPath != "" {
		c.Command = "python"
		c.Args = []string{c.ServerPath}
	}

	if _, err := time.ParseDuration(c.StartupTimeout); err != nil {
		return fmt.Errorf("invalid startup_timeout: %w", err)
	}
	return nil
}

// StartupTimeoutDuration returns StartupTimeout as a time.Duration.
func (c *ServiceConfig) StartupTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.StartupTimeout)
	return d
}

// Configured reports whether a server launch command is available.
func (c *ServiceConfig) Configured() bool {
	return c.Command != ""
}
