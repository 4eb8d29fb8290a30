package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvWorkflowMaxIterations      = "PROCTOR_WORKFLOW_MAX_ITERATIONS"
	EnvWorkflowValidateIterations = "PROCTOR_WORKFLOW_VALIDATE_ITERATIONS"
	EnvWorkflowEmailIterations    = "PROCTOR_WORKFLOW_EMAIL_ITERATIONS"
)

// WorkflowConfig caps the agents' tool-calling loops.
type WorkflowConfig struct {
	MaxIterations      int `toml:"max_iterations"`
	ValidateIterations int `toml:"validate_iterations"`
	EmailIterations    int `toml:"email_iterations"`
}

// Merge overwrites non-zero fields from overlay.
func (c *WorkflowConfig) Merge(overlay *WorkflowConfig) {
	if overlay.MaxIterations > 0 {
		c.MaxIterations = overlay.MaxIterations
	}
	if overlay.ValidateIterations > 0 {
		c.ValidateIterations = overlay.ValidateIterations
	}
	if overlay.EmailIterations > 0 {
		c.EmailIterations = overlay.EmailIterations
	}
}

// Finalize applies defaults, environment overrides, and validation.
func (c *WorkflowConfig) Finalize() error {
	if c.MaxIterations == 0 {
		c.MaxIterations = 10
	}
	if c.ValidateIterations == 0 {
		c.ValidateIterations = 20
	}
	if c.EmailIterations == 0 {
		c.EmailIterations = 20
	}

	overrideInt(EnvWorkflowMaxIterations, &c.MaxIterations)
	overrideInt(EnvWorkflowValidateIterations, &c.ValidateIterations)
	overrideInt(EnvWorkflowEmailIterations, &c.EmailIterations)

	for name, v := range map[string]int{
		"max_iterations":      c.MaxIterations,
		"validate_iterations": c.ValidateIterations,
		"email_iterations":    c.EmailIterations,
	} {
		if v < 1 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	return nil
}

func overrideInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}
