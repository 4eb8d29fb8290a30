package config

import "github.com/edtools/proctor/internal/llm"

// AgentConfig carries per-provider model overrides. Credentials are
// environment-only and never appear in config files; provider
// preference order is fixed in the llm package.
type AgentConfig struct {
	XAIModel       string `toml:"xai_model"`
	OpenAIModel    string `toml:"openai_model"`
	AnthropicModel string `toml:"anthropic_model"`
}

// Merge overwrites non-zero fields from overlay.
func (c *AgentConfig) Merge(overlay *AgentConfig) {
	if overlay.XAIModel != "" {
		c.XAIModel = overlay.XAIModel
	}
	if overlay.OpenAIModel != "" {
		c.OpenAIModel = overlay.OpenAIModel
	}
	if overlay.AnthropicModel != "" {
		c.AnthropicModel = overlay.AnthropicModel
	}
}

// Overrides converts the section into llm model overrides.
func (c *AgentConfig) Overrides() llm.ModelOverrides {
	return llm.ModelOverrides{
		XAI:       c.XAIModel,
		OpenAI:    c.OpenAIModel,
		Anthropic: c.AnthropicModel,
	}
}
