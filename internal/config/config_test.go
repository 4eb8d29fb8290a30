package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearProctorEnv blanks every environment override the loader reads so
// tests start from a known state.
func clearProctorEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvProctorEnv, EnvProctorShutdownTimeout, EnvProctorVersion,
		EnvServiceCommand, EnvServiceArgs, EnvMCPServerPath,
		EnvCheckpointBackend, EnvCheckpointPath,
		EnvWorkflowMaxIterations, EnvWorkflowValidateIterations, EnvWorkflowEmailIterations,
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	clearProctorEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ShutdownTimeout != "30s" {
		t.Errorf("ShutdownTimeout = %q, want 30s", cfg.ShutdownTimeout)
	}
	if cfg.ShutdownTimeoutDuration() != 30*time.Second {
		t.Errorf("ShutdownTimeoutDuration = %v", cfg.ShutdownTimeoutDuration())
	}
	if cfg.Checkpoint.Backend != BackendBadger {
		t.Errorf("Checkpoint.Backend = %q, want badger", cfg.Checkpoint.Backend)
	}
	if cfg.Checkpoint.Path != "data/checkpoints" {
		t.Errorf("Checkpoint.Path = %q", cfg.Checkpoint.Path)
	}
	if cfg.Workflow.MaxIterations != 10 {
		t.Errorf("Workflow.MaxIterations = %d, want 10", cfg.Workflow.MaxIterations)
	}
	if cfg.Workflow.ValidateIterations != 20 || cfg.Workflow.EmailIterations != 20 {
		t.Errorf("Workflow = %+v, want 20/20 correction budgets", cfg.Workflow)
	}
	if cfg.Service.Configured() {
		t.Error("service should not be configured without command or path")
	}
	if cfg.Env() != "local" {
		t.Errorf("Env() = %q, want local", cfg.Env())
	}
}

func TestLoadBaseConfig(t *testing.T) {
	clearProctorEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	writeConfig(t, dir, BaseConfigFile, `
shutdown_timeout = "10s"
version = "1.2.3"

[agent]
xai_model = "grok-4"

[service]
command = "python3"
args = ["server.py"]

[checkpoint]
backend = "memory"

[workflow]
max_iterations = 5
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ShutdownTimeout != "10s" || cfg.Version != "1.2.3" {
		t.Errorf("root = %+v", cfg)
	}
	if cfg.Agent.XAIModel != "grok-4" {
		t.Errorf("Agent.XAIModel = %q", cfg.Agent.XAIModel)
	}
	if cfg.Service.Command != "python3" || len(cfg.Service.Args) != 1 {
		t.Errorf("Service = %+v", cfg.Service)
	}
	if cfg.Checkpoint.Backend != BackendMemory {
		t.Errorf("Checkpoint.Backend = %q", cfg.Checkpoint.Backend)
	}
	if cfg.Workflow.MaxIterations != 5 {
		t.Errorf("Workflow.MaxIterations = %d, want 5", cfg.Workflow.MaxIterations)
	}
}

func TestLoadEnvironmentOverlay(t *testing.T) {
	clearProctorEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	writeConfig(t, dir, BaseConfigFile, `
shutdown_timeout = "10s"

[checkpoint]
backend = "memory"
`)
	writeConfig(t, dir, "config.staging.toml", `
[checkpoint]
backend = "badger"
path = "/var/proctor/checkpoints"
`)
	t.Setenv(EnvProctorEnv, "staging")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Overlay wins for what it sets; base survives elsewhere.
	if cfg.Checkpoint.Backend != BackendBadger {
		t.Errorf("Checkpoint.Backend = %q, want overlay value", cfg.Checkpoint.Backend)
	}
	if cfg.Checkpoint.Path != "/var/proctor/checkpoints" {
		t.Errorf("Checkpoint.Path = %q", cfg.Checkpoint.Path)
	}
	if cfg.ShutdownTimeout != "10s" {
		t.Errorf("ShutdownTimeout = %q, want base value", cfg.ShutdownTimeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearProctorEnv(t)
	t.Chdir(t.TempDir())

	t.Setenv(EnvProctorShutdownTimeout, "5s")
	t.Setenv(EnvCheckpointBackend, BackendMemory)
	t.Setenv(EnvWorkflowMaxIterations, "3")
	t.Setenv(EnvMCPServerPath, "/opt/grading/server.py")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ShutdownTimeout != "5s" {
		t.Errorf("ShutdownTimeout = %q, want 5s", cfg.ShutdownTimeout)
	}
	if cfg.Checkpoint.Backend != BackendMemory {
		t.Errorf("Checkpoint.Backend = %q, want memory", cfg.Checkpoint.Backend)
	}
	if cfg.Workflow.MaxIterations != 3 {
		t.Errorf("Workflow.MaxIterations = %d, want 3", cfg.Workflow.MaxIterations)
	}

	// A bare server path launches as a python script.
	if cfg.Service.Command != "python" {
		t.Errorf("Service.Command = %q, want python", cfg.Service.Command)
	}
	if len(cfg.Service.Args) != 1 || cfg.Service.Args[0] != "/opt/grading/server.py" {
		t.Errorf("Service.Args = %v", cfg.Service.Args)
	}
	if !cfg.Service.Configured() {
		t.Error("service should be configured via MCP_SERVER_PATH")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearProctorEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	tests := []struct {
		name    string
		content string
	}{
		{"bad shutdown timeout", `shutdown_timeout = "soon"`},
		{"unknown backend", "[checkpoint]\nbackend = \"etcd\""},
		{"negative iterations", "[workflow]\nmax_iterations = -2"},
		{"bad startup timeout", "[service]\nstartup_timeout = \"forever\""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			writeConfig(t, dir, BaseConfigFile, tc.content)
			if _, err := Load(); err == nil {
				t.Error("Load accepted invalid config")
			}
		})
	}
}

func TestAgentOverrides(t *testing.T) {
	agent := AgentConfig{XAIModel: "grok-4", AnthropicModel: "claude"}
	overrides := agent.Overrides()

	if overrides.XAI != "grok-4" || overrides.Anthropic != "claude" || overrides.OpenAI != "" {
		t.Errorf("Overrides = %+v", overrides)
	}
}
