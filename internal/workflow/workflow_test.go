package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/edtools/proctor/internal/checkpoint"
	"github.com/edtools/proctor/internal/grading"
	"github.com/edtools/proctor/internal/llm"
)

// scriptedClient replays a fixed sequence of model responses and
// records every invocation. An exhausted script fails the invocation,
// which surfaces as a test failure wherever an agent calls the model
// more often than the scenario allows.
type scriptedClient struct {
	mu          sync.Mutex
	responses   []llm.Response
	err         error
	invocations []invocation
}

type invocation struct {
	system       string
	conversation []llm.Message
	tools        []llm.ToolSpec
}

func (c *scriptedClient) Invoke(_ context.Context, system string, conversation []llm.Message, specs []llm.ToolSpec) (*llm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invocations = append(c.invocations, invocation{system, conversation, specs})

	if c.err != nil {
		return nil, c.err
	}
	if len(c.responses) == 0 {
		return nil, errors.New("scripted client: no responses remaining")
	}

	resp := c.responses[0]
	c.responses = c.responses[1:]
	return &resp, nil
}

func (c *scriptedClient) Provider() string { return "scripted" }
func (c *scriptedClient) Model() string    { return "scripted" }

func (c *scriptedClient) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.invocations)
}

type serviceCall struct {
	name string
	args map[string]any
}

// fakeService satisfies grading.Service with canned per-operation
// result queues; an exhausted queue answers with a generic success.
type fakeService struct {
	mu      sync.Mutex
	specs   []llm.ToolSpec
	results map[string][]string
	calls   []serviceCall
}

func (s *fakeService) Tools(context.Context) ([]llm.ToolSpec, error) {
	return s.specs, nil
}

func (s *fakeService) Call(_ context.Context, name string, args map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, serviceCall{name: name, args: args})

	queue := s.results[name]
	if len(queue) == 0 {
		return `{"status": "ok"}`, nil
	}
	s.results[name] = queue[1:]
	return queue[0], nil
}

func (s *fakeService) Close() error { return nil }

func (s *fakeService) callNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.calls))
	for _, c := range s.calls {
		names = append(names, c.name)
	}
	return names
}

var _ grading.Service = (*fakeService)(nil)

// opSpecs builds schemaless tool specs for the named operations.
func opSpecs(names ...string) []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(names))
	for _, name := range names {
		specs = append(specs, llm.ToolSpec{Name: name, Description: name})
	}
	return specs
}

func newTestRuntime(client llm.Client, service grading.Service) *Runtime {
	return &Runtime{
		Client:  client,
		Grading: service,
		Store:   checkpoint.NewMemoryStore(),
		Budgets: DefaultBudgets(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func textResponse(content string) llm.Response {
	return llm.Response{Content: content}
}

func callResponse(content string, calls ...llm.ToolCall) llm.Response {
	return llm.Response{Content: content, ToolCalls: calls}
}

func call(id, name string, args map[string]any) llm.ToolCall {
	return llm.ToolCall{ID: id, Name: name, Arguments: args}
}
