package llm

import (
	"encoding/json"
	"slices"
)

// Role identifies the author of a conversation message.
type Role string

// Valid message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

var roles = []Role{
	RoleSystem,
	RoleUser,
	RoleAssistant,
	RoleTool,
}

// UnmarshalJSON validates that the decoded string is a known role value.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := Role(raw)
	if !slices.Contains(roles, v) {
		return ErrInvalidRole
	}
	*r = v
	return nil
}

// ToolCall is a single operation invocation requested by the model.
// Arguments is a string-keyed mapping of JSON-compatible values.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Message is one role-tagged entry in a conversation log. Assistant
// messages may carry tool calls; tool messages carry the result of a
// single call identified by ToolCallID.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolSpec declares an operation the model may invoke. Parameters is a
// JSON Schema object describing the argument mapping.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Response is the model's answer to a single invocation: user-facing text
// plus zero or more tool calls to execute.
type Response struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// UserMessage constructs a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage constructs an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage constructs a tool-result message for the given call.
func ToolMessage(callID, name, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: callID,
		Name:       name,
	}
}
