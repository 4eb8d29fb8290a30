// Package grading is the controller's client for the external
// document-processing/grading service, reached over MCP stdio. The
// controller never implements OCR, evaluation, or persistence itself;
// it only knows each operation's name, inputs, and result shape.
package grading

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/edtools/proctor/internal/llm"
)

// Service exposes the grading-service operations the workflow consumes:
// tool discovery with schemas, and single-operation execution.
type Service interface {
	Tools(ctx context.Context) ([]llm.ToolSpec, error)
	Call(ctx context.Context, name string, args map[string]any) (string, error)
	Close() error
}

type mcpService struct {
	client *client.Client
	logger *slog.Logger
}

// Connect launches the grading service over stdio and completes the MCP
// initialize handshake.
func Connect(ctx context.Context, command string, args []string, logger *slog.Logger) (Service, error) {
	c, err := client.NewStdioMCPClient(command, nil, args...)
	if err != nil {
		return nil, fmt.Errorf("start grading service: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "proctor",
		Version: "0.1.0",
	}

	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, fmt.Errorf("initialize grading service: %w", err)
	}

	logger.Info("grading service connected", "command", command)

	return &mcpService{
		client: c,
		logger: logger.With("system", "grading"),
	}, nil
}

// Tools lists the service's declared operations as provider-neutral
// specs. Optional-parameter quirks are smoothed here: dpi and use_ocr
// are dropped from required lists so the model never has to reason
// about rendering defaults (Call injects them).
func (s *mcpService) Tools(ctx context.Context) ([]llm.ToolSpec, error) {
	result, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list grading tools: %w", err)
	}

	specs := make([]llm.ToolSpec, 0, len(result.Tools))
	for _, t := range result.Tools {
		required := slices.Clone(t.InputSchema.Required)
		switch t.Name {
		case OpBatchProcess:
			required = slices.DeleteFunc(required, func(r string) bool { return r == "dpi" })
		case OpConvertPDF:
			required = slices.DeleteFunc(required, func(r string) bool { return r == "use_ocr" })
		}

		specs = append(specs, llm.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			Parameters: map[string]any{
				"type":       "object",
				"properties": t.InputSchema.Properties,
				"required":   required,
			},
		})
	}

	return specs, nil
}

// Call executes one operation and returns its textual result. A result
// the service flags as an error is returned as a Go error so the tool
// invoker can surface it into the conversation.
func (s *mcpService) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	args = injectDefaults(name, args)

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := s.client.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", name, err)
	}

	text := contentText(result.Content)
	if result.IsError {
		return "", fmt.Errorf("call %s: %s", name, text)
	}

	if text == "" {
		text = "Tool executed successfully (no output)"
	}

	s.logger.Debug("grading operation executed", "operation", name)
	return text, nil
}

func (s *mcpService) Close() error {
	return s.client.Close()
}

// injectDefaults supplies server-side defaults the schema marks
// optional: omitting them entirely causes validation failures on some
// service revisions, and the model is told never to pass nulls.
func injectDefaults(name string, args map[string]any) map[string]any {
	if args == nil {
		args = map[string]any{}
	}

	switch name {
	case OpBatchProcess:
		if v, ok := args["dpi"]; !ok || v == nil {
			args["dpi"] = 300
		}
	case OpConvertPDF:
		if v, ok := args["use_ocr"]; !ok || v == nil {
			args["use_ocr"] = false
		}
	}

	return args
}

func contentText(content []mcp.Content) string {
	var sb strings.Builder
	for _, item := range content {
		if tc, ok := item.(mcp.TextContent); ok {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}
