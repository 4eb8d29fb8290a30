package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/edtools/proctor/internal/checkpoint"
	"github.com/edtools/proctor/internal/llm"
	"github.com/edtools/proctor/internal/session"
)

// Turn dispatches one user message through the routing graph: load the
// thread's state, append the message, run the router and exactly one
// agent (plus the same-turn email branch when a completion signal
// routes there), persist the merged state, and return the assistant
// replies produced this turn.
func (rt *Runtime) Turn(ctx context.Context, threadID uuid.UUID, message string) (*TurnResult, error) {
	ts, err := checkpoint.LoadOrCreate(ctx, rt.Store, threadID)
	if err != nil {
		return nil, fmt.Errorf("load turn state: %w", err)
	}

	ts.Messages = append(ts.Messages, llm.UserMessage(message))
	replyFrom := len(ts.Messages)

	graph, err := rt.buildGraph()
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	initial := state.New(nil)
	initial = initial.Set(KeyTurnState, *ts)

	final, err := graph.Execute(ctx, initial)
	if err != nil {
		return nil, fmt.Errorf("execute turn: %w", err)
	}

	merged, err := extractTurnState(final)
	if err != nil {
		return nil, err
	}

	if err := rt.Store.Save(ctx, merged); err != nil {
		return nil, fmt.Errorf("save turn state: %w", err)
	}

	var replies []string
	for _, m := range merged.Messages[replyFrom:] {
		if m.Role == llm.RoleAssistant && m.Content != "" {
			replies = append(replies, m.Content)
		}
	}

	rt.Logger.Info("turn complete",
		"thread_id", threadID,
		"phase", merged.CurrentPhase,
		"job_id", merged.JobID,
		"replies", len(replies),
	)

	return &TurnResult{State: merged, Replies: replies}, nil
}

func (rt *Runtime) buildGraph() (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("proctor-turn")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	agents := map[string]agentFunc{
		nodeGather:      rt.gather,
		nodePrepare:     rt.prepare,
		nodeValidate:    rt.validate,
		nodeScrub:       rt.scrub,
		nodeEvaluate:    rt.evaluate,
		nodeReport:      rt.report,
		nodeTestGrading: rt.testGrading,
		nodeGeneral:     rt.general,
		nodeEmail:       rt.email,
	}

	if err := graph.AddNode(nodeRouter, routerNode(rt)); err != nil {
		return nil, err
	}
	for name, fn := range agents {
		if err := graph.AddNode(name, agentNode(rt, name, fn)); err != nil {
			return nil, err
		}
	}
	if err := graph.AddNode(nodeEnd, endNode()); err != nil {
		return nil, err
	}

	// router → the agent it selected, or straight to end.
	for name := range agents {
		if err := graph.AddEdge(nodeRouter, name, dispatchTo(name)); err != nil {
			return nil, err
		}
	}
	if err := graph.AddEdge(nodeRouter, nodeEnd, dispatchTo(nodeEnd)); err != nil {
		return nil, err
	}

	// report and test grading branch into email distribution in the
	// same turn when their completion signal asked for it.
	for _, name := range []string{nodeReport, nodeTestGrading} {
		if err := graph.AddEdge(name, nodeEmail, routedToEmail); err != nil {
			return nil, err
		}
		if err := graph.AddEdge(name, nodeEnd, state.Not(routedToEmail)); err != nil {
			return nil, err
		}
	}

	// Every other agent ends the turn.
	for _, name := range []string{
		nodeGather, nodePrepare, nodeValidate, nodeScrub,
		nodeEvaluate, nodeGeneral, nodeEmail,
	} {
		if err := graph.AddEdge(name, nodeEnd, nil); err != nil {
			return nil, err
		}
	}

	if err := graph.SetEntryPoint(nodeRouter); err != nil {
		return nil, err
	}
	if err := graph.SetExitPoint(nodeEnd); err != nil {
		return nil, err
	}

	return graph, nil
}

type agentFunc func(ctx context.Context, ts *session.State) (*session.Fragment, error)

func routerNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		ts, err := extractTurnState(s)
		if err != nil {
			return s, err
		}

		node, frag, err := rt.route(ctx, ts)
		if err != nil {
			return s, fmt.Errorf("router: %w", err)
		}

		if err := ts.Merge(frag); err != nil {
			return s, fmt.Errorf("router: merge fragment: %w", err)
		}

		s = s.Set(KeyTurnState, *ts)
		s = s.Set(KeyDispatch, node)
		return s, nil
	})
}

// agentNode wraps an agent so that no internal failure crosses the
// turn boundary: setup errors become a user-visible apology with a
// terminal next step; only a fragment that violates the merge
// invariants fails the turn.
func agentNode(rt *Runtime, name string, fn agentFunc) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		ts, err := extractTurnState(s)
		if err != nil {
			return s, err
		}

		frag, err := fn(ctx, ts)
		if err != nil {
			rt.Logger.Error("agent failed", "agent", name, "error", err)
			frag = failureFragment(err)
		}

		if err := ts.Merge(frag); err != nil {
			return s, fmt.Errorf("%s: merge fragment: %w", name, err)
		}

		return s.Set(KeyTurnState, *ts), nil
	})
}

func endNode() state.StateNode {
	return state.NewFunctionNode(func(_ context.Context, s state.State) (state.State, error) {
		return s, nil
	})
}

func dispatchTo(name string) func(state.State) bool {
	return func(s state.State) bool {
		v, ok := s.Get(KeyDispatch)
		return ok && v == name
	}
}

func routedToEmail(s state.State) bool {
	ts, err := extractTurnState(s)
	return err == nil && ts.NextStep == session.RouteEmail
}

func extractTurnState(s state.State) (*session.State, error) {
	val, ok := s.Get(KeyTurnState)
	if !ok {
		return nil, ErrMissingTurnState
	}

	ts, ok := val.(session.State)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected type %T", ErrMissingTurnState, val)
	}

	return &ts, nil
}
