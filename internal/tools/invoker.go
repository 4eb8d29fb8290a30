package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/edtools/proctor/internal/llm"
)

// Invoker executes a single model-requested tool call against the
// registry. Every outcome (unknown name, invalid arguments, execution
// failure) is normalized to a textual result message so the model can
// self-correct on the next loop iteration.
type Invoker struct {
	registry *Registry
	logger   *slog.Logger
}

// NewInvoker creates an invoker over the registry.
func NewInvoker(registry *Registry, logger *slog.Logger) *Invoker {
	return &Invoker{
		registry: registry,
		logger:   logger.With("system", "tools"),
	}
}

// Dispatch runs one tool call and returns a tool-role message holding
// its textual result. It never returns an error and never panics.
func (i *Invoker) Dispatch(ctx context.Context, call llm.ToolCall) llm.Message {
	tool, ok := i.registry.Lookup(call.Name)
	if !ok {
		i.logger.Warn("unknown tool requested", "tool", call.Name)
		return llm.ToolMessage(call.ID, call.Name, fmt.Sprintf("Tool %s not found", call.Name))
	}

	if err := validateArguments(tool.Spec, call.Arguments); err != nil {
		i.logger.Warn("tool arguments rejected", "tool", call.Name, "error", err)
		return llm.ToolMessage(call.ID, call.Name,
			fmt.Sprintf("Error executing %s: %s", call.Name, err))
	}

	result, err := i.run(ctx, tool, call.Arguments)
	if err != nil {
		i.logger.Warn("tool execution failed", "tool", call.Name, "error", err)
		return llm.ToolMessage(call.ID, call.Name,
			fmt.Sprintf("Error executing %s: %s", call.Name, err))
	}

	i.logger.Debug("tool executed", "tool", call.Name)
	return llm.ToolMessage(call.ID, call.Name, result)
}

// run wraps the tool executable with panic recovery; a panicking tool
// is reported as an execution failure, not a crashed turn.
func (i *Invoker) run(ctx context.Context, tool Tool, args map[string]any) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return tool.Run(ctx, args)
}

// validateArguments checks the call arguments against the tool's JSON
// schema. Tools declared without parameters accept anything.
func validateArguments(spec llm.ToolSpec, args map[string]any) error {
	if spec.Parameters == nil {
		return nil
	}

	if args == nil {
		args = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(spec.Parameters),
		gojsonschema.NewGoLoader(args),
	)
	if err != nil {
		// Malformed schemas are a declaration bug, not a model error;
		// let the call through rather than blocking the phase.
		return nil
	}

	if !result.Valid() {
		var details []string
		for _, violation := range result.Errors() {
			details = append(details, violation.String())
		}
		return fmt.Errorf("invalid arguments: %s", strings.Join(details, "; "))
	}

	return nil
}
