package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 4096

type anthropicClient struct {
	client anthropic.Client
	model  string
}

func newAnthropicClient(apiKey, model string) *anthropicClient {
	return &anthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (c *anthropicClient) Provider() string { return "anthropic" }
func (c *anthropicClient) Model() string    { return c.model }

func (c *anthropicClient) Invoke(
	ctx context.Context,
	system string,
	conversation []Message,
	tools []ToolSpec,
) (*Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: anthropicMaxTokens,
		Messages:  encodeAnthropicMessages(conversation),
		Tools:     encodeAnthropicTools(tools),
	}

	if system != "" {
		params.System = []anthropic.TextBlockParam{
			{Type: "text", Text: system},
		}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: anthropic: %w", ErrInvokeFailed, err)
	}

	return decodeAnthropicMessage(msg)
}

// encodeAnthropicMessages maps the neutral conversation onto Anthropic's
// block structure: tool results become tool_result blocks inside user
// messages, and assistant tool calls become tool_use blocks.
func encodeAnthropicMessages(conversation []Message) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(conversation))

	for _, m := range conversation {
		switch m.Role {
		case RoleAssistant:
			blocks := []anthropic.ContentBlockParamUnion{}
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, call := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, call.Arguments, call.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		case RoleTool:
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false),
			))
		default:
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(m.Content),
			))
		}
	}

	return messages
}

func encodeAnthropicTools(tools []ToolSpec) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	encoded := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		encoded = append(encoded, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: encodeAnthropicSchema(t.Parameters),
			},
		})
	}

	return encoded
}

func encodeAnthropicSchema(parameters map[string]any) anthropic.ToolInputSchemaParam {
	schema := anthropic.ToolInputSchemaParam{}

	if props, ok := parameters["properties"]; ok {
		schema.Properties = props
	}

	if raw, ok := parameters["required"].([]any); ok {
		required := make([]string, 0, len(raw))
		for _, r := range raw {
			if s, ok := r.(string); ok {
				required = append(required, s)
			}
		}
		schema.Required = required
	} else if required, ok := parameters["required"].([]string); ok {
		schema.Required = required
	}

	return schema
}

func decodeAnthropicMessage(msg *anthropic.Message) (*Response, error) {
	resp := &Response{}

	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			if resp.Content != "" {
				resp.Content += "\n"
			}
			resp.Content += b.Text
		case anthropic.ToolUseBlock:
			args := map[string]any{}
			if len(b.Input) > 0 {
				if err := json.Unmarshal(b.Input, &args); err != nil {
					return nil, fmt.Errorf("decode arguments for %s: %w", b.Name, err)
				}
			}

			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: args,
			})
		}
	}

	return resp, nil
}
