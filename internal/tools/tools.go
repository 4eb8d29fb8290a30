// Package tools provides the declared-operation registry and the
// invoker that executes model-requested tool calls with failure
// isolation: no error or panic from a tool crosses the turn boundary.
package tools

import (
	"context"

	"github.com/edtools/proctor/internal/llm"
)

// RunFunc executes one operation with a string-keyed argument mapping
// and returns a textual result.
type RunFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool pairs an operation declaration with its executable.
type Tool struct {
	Spec llm.ToolSpec
	Run  RunFunc
}

// Registry holds the declared operations for one phase agent.
type Registry struct {
	ordered []Tool
	byName  map[string]Tool
}

// NewRegistry creates a registry from the given tools. Later tools with
// a duplicate name replace earlier ones.
func NewRegistry(ts ...Tool) *Registry {
	r := &Registry{byName: make(map[string]Tool, len(ts))}
	for _, t := range ts {
		r.Add(t)
	}
	return r
}

// Add registers a tool, replacing any existing tool of the same name.
func (r *Registry) Add(t Tool) {
	if _, exists := r.byName[t.Spec.Name]; !exists {
		r.ordered = append(r.ordered, t)
	} else {
		for i := range r.ordered {
			if r.ordered[i].Spec.Name == t.Spec.Name {
				r.ordered[i] = t
				break
			}
		}
	}
	r.byName[t.Spec.Name] = t
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Specs returns the declared operation specs in registration order.
func (r *Registry) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(r.ordered))
	for _, t := range r.ordered {
		specs = append(specs, t.Spec)
	}
	return specs
}
