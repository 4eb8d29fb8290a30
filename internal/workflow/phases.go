package workflow

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/edtools/proctor/internal/grading"
	"github.com/edtools/proctor/internal/llm"
	"github.com/edtools/proctor/internal/prompts"
	"github.com/edtools/proctor/internal/session"
	"github.com/edtools/proctor/internal/staging"
	"github.com/edtools/proctor/internal/tools"
	"github.com/edtools/proctor/pkg/formatting"
)

// serviceRegistry builds the declared-operation registry for an agent:
// the grading service's tools filtered by the agent's allow-list, plus
// any local tools.
func (rt *Runtime) serviceRegistry(ctx context.Context, ts grading.Toolset, extra ...tools.Tool) (*tools.Registry, error) {
	specs, err := rt.Grading.Tools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list grading tools: %w", err)
	}

	registry := tools.NewRegistry(extra...)
	for _, spec := range grading.Filter(specs, ts) {
		registry.Add(tools.Tool{
			Spec: spec,
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				return rt.Grading.Call(ctx, spec.Name, args)
			},
		})
	}

	return registry, nil
}

// phaseLoop runs an agent's bounded loop and folds the outcome into the
// fragment. Loop failures become a user-visible apology rather than an
// error; every invocation yields a well-formed fragment.
func (rt *Runtime) phaseLoop(ctx context.Context, cfg loopConfig, ts *session.State, frag *session.Fragment, onComplete func(*Completion)) *session.Fragment {
	delta, completion, err := rt.runLoop(ctx, cfg, ts.Messages)
	frag.Messages = append(frag.Messages, delta...)

	if err != nil {
		rt.Logger.Error("agent loop failed", "stage", cfg.stage, "error", err)
		frag.Messages = append(frag.Messages, llm.AssistantMessage(fmt.Sprintf(
			"I ran into a problem while working on that: %s. Please try again.", err)))
	} else if completion != nil && onComplete != nil {
		onComplete(completion)
	}

	if frag.NextStep == nil {
		frag.NextStep = session.Ptr(session.RouteEnd)
	}
	return frag
}

// advanceTo is the idempotent re-entry shortcut: a phase whose work is
// already recorded complete skips its loop and hands off immediately.
func advanceTo(next session.Phase) *session.Fragment {
	return &session.Fragment{
		CurrentPhase: session.Ptr(next),
		NextStep:     session.Ptr(session.RouteEnd),
	}
}

// gather collects the rubric, question, and optional reading materials,
// then creates the grading job. Only a successful job creation
// populates JobID and advances the phase.
func (rt *Runtime) gather(ctx context.Context, ts *session.State) (*session.Fragment, error) {
	if ts.JobID != "" {
		return advanceTo(session.PhasePrepare), nil
	}

	registry, err := rt.serviceRegistry(ctx, grading.ToolsetGather, staging.LocalTools()...)
	if err != nil {
		return nil, err
	}

	frag := &session.Fragment{}
	observe := func(call llm.ToolCall, result string, failed bool) *Completion {
		if failed {
			return nil
		}

		switch {
		case strings.Contains(call.Name, grading.OpCreateJob):
			if rubric := stringArg(call.Arguments, "rubric", "rubric_text"); rubric != "" {
				frag.RubricText = session.Ptr(rubric)
			}
			if question := stringArg(call.Arguments, "question", "question_text", "essay_question"); question != "" {
				frag.QuestionText = session.Ptr(question)
			}
			if topic := stringArg(call.Arguments, "topic", "knowledge_base_topic"); topic != "" {
				frag.KnowledgeBaseTopic = session.Ptr(topic)
			}
			if id := extractJobID(result); id != "" {
				frag.JobID = session.Ptr(id)
				return &Completion{JobID: id}
			}

		case strings.Contains(call.Name, grading.OpAddToKB):
			frag.MaterialsAddedToKB = session.Ptr(true)
			if topic := stringArg(call.Arguments, "topic", "knowledge_base_topic"); topic != "" {
				frag.KnowledgeBaseTopic = session.Ptr(topic)
			}
		}
		return nil
	}

	system, err := composeSystem(prompts.StageGather, ts)
	if err != nil {
		return nil, err
	}

	return rt.phaseLoop(ctx, loopConfig{
		stage:    prompts.StageGather,
		system:   system,
		registry: registry,
		observe:  observe,
	}, ts, frag, func(*Completion) {
		frag.CurrentPhase = session.Ptr(session.PhasePrepare)
	}), nil
}

// prepare stages the uploaded essays and submits them for extraction
// with the existing job. It never creates a second job: job creation is
// not in its allow-list, and a missing JobID sends the thread back to
// the gather phase.
func (rt *Runtime) prepare(ctx context.Context, ts *session.State) (*session.Fragment, error) {
	if ts.JobID == "" {
		return &session.Fragment{
			Messages: []llm.Message{llm.AssistantMessage(
				"I need to set up the grading job before processing essays. Let's collect your rubric and essay question first.")},
			CurrentPhase: session.Ptr(session.PhaseGather),
			NextStep:     session.Ptr(session.RouteEnd),
		}, nil
	}

	if ts.OCRComplete {
		return advanceTo(session.PhaseValidate), nil
	}

	registry, err := rt.serviceRegistry(ctx, grading.ToolsetPrepare, staging.LocalTools()...)
	if err != nil {
		return nil, err
	}

	frag := &session.Fragment{}
	observe := func(call llm.ToolCall, result string, failed bool) *Completion {
		if failed {
			return nil
		}

		switch {
		case call.Name == "prepare_files_for_grading":
			if staged, err := formatting.Parse[staging.Result](result); err == nil && staged.DirectoryPath != "" {
				frag.CleanDirectoryPath = session.Ptr(staged.DirectoryPath)
			}

		case strings.Contains(call.Name, grading.OpBatchProcess):
			frag.OCRComplete = session.Ptr(true)
			if count := extractStudentCount(result); count > 0 {
				frag.StudentCount = session.Ptr(count)
			}
			return &Completion{JobID: ts.JobID}
		}
		return nil
	}

	system, err := composeSystem(prompts.StagePrepare, ts)
	if err != nil {
		return nil, err
	}

	return rt.phaseLoop(ctx, loopConfig{
		stage:    prompts.StagePrepare,
		system:   system,
		registry: registry,
		observe:  observe,
	}, ts, frag, func(*Completion) {
		frag.CurrentPhase = session.Ptr(session.PhaseValidate)
	}), nil
}

// validate drives the detected-name correction sub-loop: corrections
// applied with correct_detected_name are re-validated in the same turn
// until the service reports a validated status or the budget is hit.
func (rt *Runtime) validate(ctx context.Context, ts *session.State) (*session.Fragment, error) {
	if ts.ValidationComplete {
		return advanceTo(session.PhaseScrub), nil
	}

	registry, err := rt.serviceRegistry(ctx, grading.ToolsetValidate)
	if err != nil {
		return nil, err
	}

	frag := &session.Fragment{}
	observe := func(call llm.ToolCall, result string, failed bool) *Completion {
		if failed || !strings.Contains(call.Name, grading.OpValidateNames) {
			return nil
		}

		status, count := parseValidation(result)
		if count > 0 {
			frag.StudentCount = session.Ptr(count)
		}
		if status == "validated" {
			frag.ValidationComplete = session.Ptr(true)
			return &Completion{JobID: ts.JobID}
		}
		return nil
	}

	system, err := composeSystem(prompts.StageValidate, ts)
	if err != nil {
		return nil, err
	}

	return rt.phaseLoop(ctx, loopConfig{
		stage:    prompts.StageValidate,
		system:   system,
		registry: registry,
		observe:  observe,
	}, ts, frag, func(*Completion) {
		frag.CurrentPhase = session.Ptr(session.PhaseScrub)
	}), nil
}

// scrub anonymizes the processed essays with a single idempotent call.
func (rt *Runtime) scrub(ctx context.Context, ts *session.State) (*session.Fragment, error) {
	if ts.ScrubbingComplete {
		return advanceTo(session.PhaseEvaluate), nil
	}

	registry, err := rt.serviceRegistry(ctx, grading.ToolsetScrub)
	if err != nil {
		return nil, err
	}

	frag := &session.Fragment{}
	observe := func(call llm.ToolCall, result string, failed bool) *Completion {
		if failed || !strings.Contains(call.Name, grading.OpScrubJob) {
			return nil
		}
		frag.ScrubbingComplete = session.Ptr(true)
		return &Completion{JobID: ts.JobID}
	}

	system, err := composeSystem(prompts.StageScrub, ts)
	if err != nil {
		return nil, err
	}

	return rt.phaseLoop(ctx, loopConfig{
		stage:    prompts.StageScrub,
		system:   system,
		registry: registry,
		observe:  observe,
	}, ts, frag, func(*Completion) {
		frag.CurrentPhase = session.Ptr(session.PhaseEvaluate)
	}), nil
}

// evaluate retrieves knowledge-base context when materials were indexed
// during gather, then runs the evaluation call. The rubric itself is
// resolved by the grading service from the job record.
func (rt *Runtime) evaluate(ctx context.Context, ts *session.State) (*session.Fragment, error) {
	if ts.EvaluationComplete {
		return advanceTo(session.PhaseReport), nil
	}

	registry, err := rt.serviceRegistry(ctx, grading.ToolsetEvaluate)
	if err != nil {
		return nil, err
	}

	frag := &session.Fragment{}
	observe := func(call llm.ToolCall, result string, failed bool) *Completion {
		if failed {
			return nil
		}

		switch {
		case strings.Contains(call.Name, grading.OpQueryKB):
			if result != "" {
				frag.ContextMaterial = session.Ptr(result)
			}

		case strings.Contains(call.Name, grading.OpEvaluateJob):
			frag.EvaluationComplete = session.Ptr(true)
			return &Completion{JobID: ts.JobID}
		}
		return nil
	}

	system, err := composeSystem(prompts.StageEvaluate, ts)
	if err != nil {
		return nil, err
	}

	return rt.phaseLoop(ctx, loopConfig{
		stage:    prompts.StageEvaluate,
		system:   system,
		registry: registry,
		observe:  observe,
	}, ts, frag, func(*Completion) {
		frag.CurrentPhase = session.Ptr(session.PhaseReport)
	}), nil
}

// report generates and downloads the grading artifacts, then fires the
// completion signal carrying the job id. The signal is expected in the
// same response that asks the teacher about email distribution, with
// route_to_email=false as the placeholder, so JobID survives into the
// next turn regardless of the answer.
func (rt *Runtime) report(ctx context.Context, ts *session.State) (*session.Fragment, error) {
	registry, err := rt.serviceRegistry(ctx, grading.ToolsetReport)
	if err != nil {
		return nil, err
	}

	frag := &session.Fragment{}

	system, err := composeSystem(prompts.StageReport, ts)
	if err != nil {
		return nil, err
	}

	return rt.phaseLoop(ctx, loopConfig{
		stage:      prompts.StageReport,
		system:     system,
		registry:   registry,
		completion: true,
	}, ts, frag, func(comp *Completion) {
		frag.CurrentPhase = session.Ptr(session.PhaseNone)
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

var jobIDPattern = regexp.MustCompile(`(?i)job[_ ]?id["':=\s]+([A-Za-z0-9_-]+)`)

type jobPayload struct {
	JobID string `json:"job_id"`
}

// extractJobID pulls the assigned job identifier out of a job-creation
// result, preferring a structured payload over pattern matching.
func extractJobID(result string) string {
	if parsed, err := formatting.Parse[jobPayload](result); err == nil && parsed.JobID != "" {
		return parsed.JobID
	}

	if m := jobIDPattern.FindStringSubmatch(result); m != nil {
		return m[1]
	}
	return ""
}

type validationPayload struct {
	Status       string `json:"status"`
	StudentCount int    `json:"student_count"`
}

func parseValidation(result string) (string, int) {
	if parsed, err := formatting.Parse[validationPayload](result); err == nil {
		return strings.ToLower(parsed.Status), parsed.StudentCount
	}

	if strings.Contains(strings.ToLower(result), `"status": "validated"`) {
		return "validated", 0
	}
	return "", 0
}

type batchPayload struct {
	StudentCount int `json:"student_count"`
	Students     int `json:"students"`
}

func extractStudentCount(result string) int {
	parsed, err := formatting.Parse[batchPayload](result)
	if err != nil {
		return 0
	}
	if parsed.StudentCount > 0 {
		return parsed.StudentCount
	}
	return parsed.Students
}

// stringArg returns the first non-empty string argument among keys.
func stringArg(args map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := args[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
