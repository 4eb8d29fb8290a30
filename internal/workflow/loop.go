package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/edtools/proctor/internal/llm"
	"github.com/edtools/proctor/internal/prompts"
	"github.com/edtools/proctor/internal/session"
	"github.com/edtools/proctor/internal/tools"
)

// CompletionToolName is the internal operation an agent invokes on
// itself to mark its work done and choose the next routing step.
const CompletionToolName = "complete_grading_workflow"

func completionToolSpec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        CompletionToolName,
		Description: "Complete the grading workflow and set routing for the next step. Call this once the current stage's work is finished.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"job_id": map[string]any{
					"type":        "string",
					"description": "The job id from the grading process",
				},
				"route_to_email": map[string]any{
					"type":        "boolean",
					"description": "Whether to continue to email distribution (true) or end (false)",
				},
			},
			"required": []string{"job_id", "route_to_email"},
		},
	}
}

// toolObserver inspects one executed tool call so an agent can extract
// identifiers and flip completion flags from success payloads. A
// non-nil return marks the loop complete after the current batch.
type toolObserver func(call llm.ToolCall, result string, failed bool) *Completion

type loopConfig struct {
	stage    prompts.Stage
	system   string
	registry *tools.Registry

	// completion advertises the completion-signal tool to the model;
	// the loop intercepts it instead of dispatching.
	completion bool
	observe    toolObserver

	// inject fills missing or empty call arguments before dispatch;
	// the email agent uses it to pin the job id on every call.
	inject map[string]any
}

// runLoop drives one bounded tool-calling loop: invoke the model,
// execute any requested calls sequentially in the issued order, feed
// results back, and repeat until the model stops calling tools, a
// completion signal fires, or the iteration budget is exhausted. It
// returns the conversation delta and the completion payload, if any.
func (rt *Runtime) runLoop(ctx context.Context, cfg loopConfig, conversation []llm.Message) ([]llm.Message, *Completion, error) {
	invoker := tools.NewInvoker(cfg.registry, rt.Logger)

	specs := cfg.registry.Specs()
	if cfg.completion {
		specs = append(specs, completionToolSpec())
	}

	budget := rt.Budgets.forStage(cfg.stage)
	var delta []llm.Message
	var completion *Completion

	for iteration := 0; iteration < budget; iteration++ {
		resp, err := rt.Client.Invoke(ctx, cfg.system, append(conversation, delta...), specs)
		if err != nil {
			return delta, completion, fmt.Errorf("%w: %w", ErrAgentFailed, err)
		}

		delta = append(delta, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		if len(resp.ToolCalls) == 0 {
			break
		}

		for _, call := range resp.ToolCalls {
			if cfg.completion && call.Name == CompletionToolName {
				comp, msg := captureCompletion(call)
				completion = comp
				delta = append(delta, msg)
				continue
			}

			for key, value := range cfg.inject {
				if current, ok := call.Arguments[key]; !ok || current == nil || current == "" {
					if call.Arguments == nil {
						call.Arguments = make(map[string]any, len(cfg.inject))
					}
					call.Arguments[key] = value
				}
			}

			msg := invoker.Dispatch(ctx, call)
			delta = append(delta, msg)

			if cfg.observe != nil {
				if comp := cfg.observe(call, msg.Content, isToolFailure(call.Name, msg.Content)); comp != nil {
					completion = comp
				}
			}
		}

		// Remaining calls in the batch were executed; now honor the
		// completion signal.
		if completion != nil {
			break
		}
	}

	rt.Logger.Debug("agent loop finished",
		"stage", cfg.stage,
		"messages", len(delta),
		"completed", completion != nil,
	)

	return delta, completion, nil
}

func captureCompletion(call llm.ToolCall) (*Completion, llm.Message) {
	comp := &Completion{}
	if v, ok := call.Arguments["job_id"].(string); ok {
		comp.JobID = v
	}
	if v, ok := call.Arguments["route_to_email"].(bool); ok {
		comp.RouteToEmail = v
	}

	text := fmt.Sprintf("Workflow complete for job_id=%s", comp.JobID)
	if comp.RouteToEmail {
		text = fmt.Sprintf("Routing configured: proceeding to email distribution with job_id=%s", comp.JobID)
	}

	return comp, llm.ToolMessage(call.ID, call.Name, text)
}

// isToolFailure recognizes the invoker's normalized failure results.
func isToolFailure(name, result string) bool {
	return strings.HasPrefix(result, fmt.Sprintf("Error executing %s:", name)) ||
		result == fmt.Sprintf("Tool %s not found", name)
}

// failureFragment converts an internal agent failure into a well-formed
// state fragment: an apology in the conversation and a terminal next
// step. No error crosses the turn boundary.
func failureFragment(err error) *session.Fragment {
	return &session.Fragment{
		Messages: []llm.Message{
			llm.AssistantMessage(fmt.Sprintf(
				"I ran into a problem while working on that: %s. Please try again.", err)),
		},
		NextStep: session.Ptr(session.RouteEnd),
	}
}
