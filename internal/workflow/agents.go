package workflow

import (
	"context"
	"fmt"

	"github.com/edtools/proctor/internal/grading"
	"github.com/edtools/proctor/internal/llm"
	"github.com/edtools/proctor/internal/prompts"
	"github.com/edtools/proctor/internal/session"
	"github.com/edtools/proctor/internal/staging"
)

// email distributes feedback for the completed job. The job id is
// fixed at prompt construction and injected into every tool call; a
// missing job id short-circuits with no tool call attempted.
func (rt *Runtime) email(ctx context.Context, ts *session.State) (*session.Fragment, error) {
	if ts.JobID == "" {
		return &session.Fragment{
			Messages: []llm.Message{llm.AssistantMessage(
				"Error: no job id was provided from the grading workflow. " +
					"Please complete a grading task first before attempting to send emails.")},
			NextStep: session.Ptr(session.RouteEnd),
		}, nil
	}

	registry, err := rt.serviceRegistry(ctx, grading.ToolsetEmail)
	if err != nil {
		return nil, err
	}

	system, err := composeSystem(prompts.StageEmail, ts)
	if err != nil {
		return nil, err
	}

	frag := &session.Fragment{}
	return rt.phaseLoop(ctx, loopConfig{
		stage:    prompts.StageEmail,
		system:   system,
		registry: registry,
		inject:   map[string]any{"job_id": ts.JobID},
	}, ts, frag, nil), nil
}

// testGrading is the single-agent pipeline for scanned tests and
// bubble sheets: the full grading toolset in one loop, finished by the
// completion signal.
func (rt *Runtime) testGrading(ctx context.Context, ts *session.State) (*session.Fragment, error) {
	registry, err := rt.serviceRegistry(ctx, grading.ToolsetGrading, staging.LocalTools()...)
	if err != nil {
		return nil, err
	}

	system, err := composeSystem(prompts.StageTestGrading, ts)
	if err != nil {
		return nil, err
	}

	frag := &session.Fragment{}
	return rt.phaseLoop(ctx, loopConfig{
		stage:      prompts.StageTestGrading,
		system:     system,
		registry:   registry,
		completion: true,
	}, ts, frag, func(comp *Completion) {
		if comp.JobID != "" {
			frag.JobID = session.Ptr(comp.JobID)
		}
		if comp.RouteToEmail {
			frag.NextStep = session.Ptr(session.RouteEmail)
		} else {
			frag.NextStep = session.Ptr(session.RouteEnd)
		}
	}), nil
}

// general answers questions that need no tools: one model call, one
// reply.
func (rt *Runtime) general(ctx context.Context, ts *session.State) (*session.Fragment, error) {
	system, err := composeSystem(prompts.StageGeneral, nil)
	if err != nil {
		return nil, err
	}

	resp, err := rt.Client.Invoke(ctx, system, ts.Messages, nil)
	if err != nil {
		rt.Logger.Error("general agent failed", "error", err)
		return &session.Fragment{
			Messages: []llm.Message{llm.AssistantMessage(fmt.Sprintf(
				"I ran into a problem answering that: %s. Please try again.", err))},
			NextStep: session.Ptr(session.RouteEnd),
		}, nil
	}

	return &session.Fragment{
		Messages: []llm.Message{llm.AssistantMessage(resp.Content)},
		NextStep: session.Ptr(session.RouteEnd),
	}, nil
}
