package workflow

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/edtools/proctor/internal/grading"
	"github.com/edtools/proctor/internal/llm"
	"github.com/edtools/proctor/internal/session"
)

func TestTurnEssayWorkflowProgression(t *testing.T) {
	ctx := context.Background()
	threadID := uuid.New()

	service := &fakeService{
		specs: opSpecs(grading.OpCreateJob, grading.OpAddToKB, grading.OpConvertPDF, grading.OpBatchProcess),
		results: map[string][]string{
			grading.OpCreateJob: {`{"job_id": "job-123", "status": "created"}`},
		},
	}
	client := &scriptedClient{responses: []llm.Response{
		// Turn 1: classification, then the gather agent asks for inputs.
		textResponse(`{"route": "essay_grading", "reason": "teacher wants essays graded"}`),
		textResponse("Please share your grading rubric and the essay question."),
		// Turn 2: gather resumes without classification and creates the job.
		callResponse("Setting up your grading job.", call("c1", grading.OpCreateJob, map[string]any{
			"rubric_text": "thesis, evidence, clarity",
			"question":    "What caused the conflict?",
		})),
		// Turn 3: prepare resumes without classification.
		textResponse("Upload the essay files and I will process them."),
	}}
	rt := newTestRuntime(client, service)

	// Turn 1: routed into the essay workflow.
	result, err := rt.Turn(ctx, threadID, "I have 30 essays to grade")
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if result.State.CurrentPhase != session.PhaseGather {
		t.Fatalf("after turn 1 CurrentPhase = %q, want gather", result.State.CurrentPhase)
	}
	if len(result.Replies) != 2 {
		t.Errorf("turn 1 replies = %v, want acknowledgment plus gather question", result.Replies)
	}
	if client.count() != 2 {
		t.Errorf("turn 1 model invocations = %d, want 2", client.count())
	}

	// Turn 2: phase resume, job creation, advance to prepare.
	result, err = rt.Turn(ctx, threadID, "Rubric: thesis, evidence, clarity. Question: what caused the conflict?")
	if err != nil {
		t.Fatalf("turn 2: %v", err)
	}
	if result.State.JobID != "job-123" {
		t.Errorf("JobID = %q, want job-123", result.State.JobID)
	}
	if result.State.CurrentPhase != session.PhasePrepare {
		t.Errorf("after turn 2 CurrentPhase = %q, want prepare", result.State.CurrentPhase)
	}
	if result.State.RubricText == "" {
		t.Error("rubric not captured from job creation")
	}
	if client.count() != 3 {
		t.Errorf("turn 2 model invocations = %d, want 1 (no re-classification)", client.count()-2)
	}

	// Turn 3: prepare resumes directly, still no re-classification.
	result, err = rt.Turn(ctx, threadID, "the essays are in /tmp/essays")
	if err != nil {
		t.Fatalf("turn 3: %v", err)
	}
	if result.State.CurrentPhase != session.PhasePrepare {
		t.Errorf("after turn 3 CurrentPhase = %q, want prepare", result.State.CurrentPhase)
	}
	if result.State.JobID != "job-123" {
		t.Errorf("JobID = %q, want job-123 preserved across turns", result.State.JobID)
	}
	if client.count() != 4 {
		t.Errorf("turn 3 model invocations = %d, want 1", client.count()-3)
	}

	// Only one job was ever created.
	var creations int
	for _, name := range service.callNames() {
		if name == grading.OpCreateJob {
			creations++
		}
	}
	if creations != 1 {
		t.Errorf("create-job calls = %d, want exactly 1", creations)
	}
}

func TestTurnReportBranchesToEmailSameTurn(t *testing.T) {
	ctx := context.Background()
	threadID := uuid.New()

	service := &fakeService{
		specs: opSpecs(grading.OpGradebook, grading.OpStudentFeedback, grading.OpDownloadReports, grading.OpSendEmails),
		results: map[string][]string{
			grading.OpSendEmails: {`{"status": "sent", "emails": 5}`},
		},
	}
	client := &scriptedClient{responses: []llm.Response{
		// Report phase finishes and routes to email distribution.
		callResponse("Reports downloaded.", call("c1", CompletionToolName, map[string]any{
			"job_id":         "job-9",
			"route_to_email": true,
		})),
		// Email agent sends in the same turn.
		callResponse("Sending the feedback emails.", call("c2", grading.OpSendEmails, map[string]any{})),
		textResponse("All feedback emails have been sent."),
	}}
	rt := newTestRuntime(client, service)

	seed := session.New(threadID)
	seed.JobID = "job-9"
	seed.CurrentPhase = session.PhaseReport
	seed.OCRComplete = true
	seed.ValidationComplete = true
	seed.ScrubbingComplete = true
	seed.EvaluationComplete = true
	if err := rt.Store.Save(ctx, seed); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	result, err := rt.Turn(ctx, threadID, "looks good, wrap it up")
	if err != nil {
		t.Fatalf("turn: %v", err)
	}

	var sent bool
	for _, c := range service.calls {
		if c.name == grading.OpSendEmails {
			sent = true
			if c.args["job_id"] != "job-9" {
				t.Errorf("send args = %+v, want job-9 injected", c.args)
			}
		}
	}
	if !sent {
		t.Error("email distribution did not run in the same turn")
	}

	if result.State.CurrentPhase != session.PhaseNone {
		t.Errorf("CurrentPhase = %q, want cleared after report", result.State.CurrentPhase)
	}
	if result.State.JobID != "job-9" {
		t.Errorf("JobID = %q, want job-9 preserved", result.State.JobID)
	}

	var confirmed bool
	for _, reply := range result.Replies {
		if strings.Contains(reply, "emails have been sent") {
			confirmed = true
		}
	}
	if !confirmed {
		t.Errorf("replies = %v, want send confirmation", result.Replies)
	}
}

func TestTurnEmailWithoutJobIsTerminal(t *testing.T) {
	ctx := context.Background()

	service := &fakeService{specs: opSpecs(grading.OpSendEmails)}
	client := &scriptedClient{responses: []llm.Response{
		textResponse(`{"route": "email_distribution", "reason": "wants emails sent"}`),
	}}
	rt := newTestRuntime(client, service)

	result, err := rt.Turn(ctx, uuid.New(), "email the feedback to my students")
	if err != nil {
		t.Fatalf("turn: %v", err)
	}

	var explained bool
	for _, reply := range result.Replies {
		if strings.Contains(reply, "no job id") {
			explained = true
		}
	}
	if !explained {
		t.Errorf("replies = %v, want missing-job explanation", result.Replies)
	}
	if len(service.calls) != 0 {
		t.Errorf("service calls = %v, want none", service.callNames())
	}
	if result.State.NextStep != session.RouteEnd {
		t.Errorf("NextStep = %q, want END", result.State.NextStep)
	}
}

func TestTurnGeneralQuestion(t *testing.T) {
	ctx := context.Background()

	client := &scriptedClient{responses: []llm.Response{
		textResponse(`{"route": "general", "reason": "conceptual question"}`),
		textResponse("A rubric describes the criteria used to score student work."),
	}}
	rt := newTestRuntime(client, &fakeService{})

	result, err := rt.Turn(ctx, uuid.New(), "what is a rubric?")
	if err != nil {
		t.Fatalf("turn: %v", err)
	}

	if len(result.Replies) != 2 {
		t.Fatalf("replies = %v, want acknowledgment plus answer", result.Replies)
	}
	if !strings.Contains(result.Replies[1], "criteria") {
		t.Errorf("answer = %q", result.Replies[1])
	}
	if result.State.CurrentPhase != session.PhaseNone {
		t.Errorf("CurrentPhase = %q, general route must not start a workflow", result.State.CurrentPhase)
	}
}

func TestTurnPersistsMergedState(t *testing.T) {
	ctx := context.Background()
	threadID := uuid.New()

	client := &scriptedClient{responses: []llm.Response{
		textResponse(`{"route": "general", "reason": "greeting"}`),
		textResponse("Hello! How can I help with grading today?"),
	}}
	rt := newTestRuntime(client, &fakeService{})

	if _, err := rt.Turn(ctx, threadID, "hi"); err != nil {
		t.Fatalf("turn: %v", err)
	}

	persisted, err := rt.Store.Load(ctx, threadID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// user message, acknowledgment, answer
	if len(persisted.Messages) != 3 {
		t.Errorf("persisted messages = %d, want 3", len(persisted.Messages))
	}
	if persisted.Messages[0].Role != llm.RoleUser || persisted.Messages[0].Content != "hi" {
		t.Errorf("first message = %+v", persisted.Messages[0])
	}
}
