package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Client is the black-box model invocation interface: given a system
// instruction, the accumulated conversation, and the declared operations
// for the current phase, it returns user-facing text and zero or more
// tool calls.
type Client interface {
	Invoke(ctx context.Context, system string, conversation []Message, tools []ToolSpec) (*Response, error)
	Provider() string
	Model() string
}

// Environment variables consulted during provider resolution.
const (
	EnvXAIKey         = "XAI_API_KEY"
	EnvXAIModel       = "XAI_MODEL"
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvOpenAIModel    = "OPENAI_MODEL"
	EnvAnthropicKey   = "ANTHROPIC_API_KEY"
	EnvAnthropicModel = "ANTHROPIC_MODEL"
)

// Default models per provider when no override is set.
const (
	DefaultXAIModel       = "grok-2-1212"
	DefaultOpenAIModel    = "gpt-4o"
	DefaultAnthropicModel = "claude-3-5-sonnet-20241022"

	xaiBaseURL = "https://api.x.ai/v1"
)

// ModelOverrides supplies per-provider model names from configuration.
// An override takes precedence over the provider default; the model
// environment variable takes precedence over both.
type ModelOverrides struct {
	XAI       string
	OpenAI    string
	Anthropic string
}

// FromEnv resolves a Client from available credentials. The preference
// order is fixed: xAI, then OpenAI, then Anthropic. Resolution happens
// once per process, not per call.
func FromEnv(logger *slog.Logger) (Client, error) {
	return Resolve(ModelOverrides{}, logger)
}

// Resolve is FromEnv with configuration-supplied model overrides.
func Resolve(overrides ModelOverrides, logger *slog.Logger) (Client, error) {
	if key := os.Getenv(EnvXAIKey); key != "" {
		model := envOr(EnvXAIModel, overrides.XAI, DefaultXAIModel)
		logger.Info("model provider resolved", "provider", "xai", "model", model)
		return newOpenAIClient("xai", key, xaiBaseURL, model), nil
	}

	if key := os.Getenv(EnvOpenAIKey); key != "" {
		model := envOr(EnvOpenAIModel, overrides.OpenAI, DefaultOpenAIModel)
		logger.Info("model provider resolved", "provider", "openai", "model", model)
		return newOpenAIClient("openai", key, "", model), nil
	}

	if key := os.Getenv(EnvAnthropicKey); key != "" {
		model := envOr(EnvAnthropicModel, overrides.Anthropic, DefaultAnthropicModel)
		logger.Info("model provider resolved", "provider", "anthropic", "model", model)
		return newAnthropicClient(key, model), nil
	}

	return nil, fmt.Errorf(
		"%w: set %s, %s, or %s",
		ErrNoCredentials, EnvXAIKey, EnvOpenAIKey, EnvAnthropicKey,
	)
}

func envOr(key string, fallbacks ...string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	for _, fb := range fallbacks {
		if fb != "" {
			return fb
		}
	}
	return ""
}
