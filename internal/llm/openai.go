package llm

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// openaiClient serves both OpenAI and xAI; the latter exposes an
// OpenAI-compatible API reached through a base URL override.
type openaiClient struct {
	client   *openai.Client
	provider string
	model    string
}

func newOpenAIClient(provider, apiKey, baseURL, model string) *openaiClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &openaiClient{
		client:   openai.NewClientWithConfig(cfg),
		provider: provider,
		model:    model,
	}
}

func (c *openaiClient) Provider() string { return c.provider }
func (c *openaiClient) Model() string    { return c.model }

func (c *openaiClient) Invoke(
	ctx context.Context,
	system string,
	conversation []Message,
	tools []ToolSpec,
) (*Response, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: encodeOpenAIMessages(system, conversation),
		Tools:    encodeOpenAITools(tools),
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvokeFailed, c.provider, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyResponse, c.provider)
	}

	return decodeOpenAIMessage(resp.Choices[0].Message)
}

func encodeOpenAIMessages(system string, conversation []Message) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(conversation)+1)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, m := range conversation {
		messages = append(messages, encodeOpenAIMessage(m))
	}

	return messages
}

func encodeOpenAIMessage(m Message) openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{
		Role:       string(m.Role),
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
	}

	if m.Role == RoleTool {
		msg.Name = m.Name
	}

	for _, call := range m.ToolCalls {
		args, err := json.Marshal(call.Arguments)
		if err != nil {
			args = []byte("{}")
		}

		msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
			ID:   call.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      call.Name,
				Arguments: string(args),
			},
		})
	}

	return msg
}

func encodeOpenAITools(tools []ToolSpec) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}

	encoded := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		encoded = append(encoded, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	return encoded
}

func decodeOpenAIMessage(m openai.ChatCompletionMessage) (*Response, error) {
	resp := &Response{Content: m.Content}

	for _, call := range m.ToolCalls {
		args := map[string]any{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("decode arguments for %s: %w", call.Function.Name, err)
			}
		}

		resp.ToolCalls = append(resp.ToolCalls, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: args,
		})
	}

	return resp, nil
}
