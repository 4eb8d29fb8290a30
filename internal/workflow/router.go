package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/edtools/proctor/internal/llm"
	"github.com/edtools/proctor/internal/prompts"
	"github.com/edtools/proctor/internal/session"
	"github.com/edtools/proctor/pkg/formatting"
)

// Positive keywords that indicate email-distribution intent once a
// grading job exists. Single-word confirmations are deliberately
// included; "ok" alone expresses consent to the email question the
// report phase just asked.
var emailKeywords = []string{
	"email", "send", "distribute", "mail",
	"yes", "yeah", "yep", "sure", "ok", "okay",
}

// Negation words that veto the email heuristic.
var negationKeywords = []string{
	"no", "not", "don't", "dont", "never", "skip", "later", "stop", "cancel",
}

// EmailIntent reports whether a message expresses intent to distribute
// feedback by email: a positive keyword present and no negation word.
func EmailIntent(message string) bool {
	lower := strings.ToLower(message)

	for _, word := range strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z' || r == '\'')
	}) {
		for _, neg := range negationKeywords {
			if word == neg {
				return false
			}
		}
	}

	for _, kw := range emailKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var ackMessages = map[session.Route]string{
	session.RouteEssayGrading: "I'd be happy to help you grade those essays!",
	session.RouteTestGrading:  "I'll help you grade those tests!",
	session.RouteGeneral:      "I'm here to help with your question.",
	session.RouteEmail:        "Great! Let me help you distribute these via email.",
}

var phaseNodes = map[session.Phase]string{
	session.PhaseGather:   nodeGather,
	session.PhasePrepare:  nodePrepare,
	session.PhaseValidate: nodeValidate,
	session.PhaseScrub:    nodeScrub,
	session.PhaseEvaluate: nodeEvaluate,
	session.PhaseReport:   nodeReport,
}

var routeNodes = map[session.Route]string{
	session.RouteEssayGrading: nodeGather,
	session.RouteTestGrading:  nodeTestGrading,
	session.RouteGeneral:      nodeGeneral,
	session.RouteEmail:        nodeEmail,
	session.RouteEnd:          nodeEnd,
}

// route selects the agent for this turn. Precedence: resume an
// in-progress phase without a model call and without a greeting; then
// the email heuristic when a job exists; then structured model
// classification over the closed route set.
func (rt *Runtime) route(ctx context.Context, ts *session.State) (string, *session.Fragment, error) {
	if node, ok := phaseNodes[ts.CurrentPhase]; ok {
		rt.Logger.Debug("resuming phase", "phase", ts.CurrentPhase)
		return node, &session.Fragment{}, nil
	}

	if ts.JobID != "" && EmailIntent(lastUserMessage(ts)) {
		rt.Logger.Debug("email heuristic matched", "job_id", ts.JobID)
		return nodeEmail, ackFragment(session.RouteEmail), nil
	}

	decision, err := rt.classify(ctx, ts)
	if err != nil {
		rt.Logger.Error("routing classification failed", "error", err)
		return nodeEnd, &session.Fragment{
			Messages: []llm.Message{llm.AssistantMessage(
				"I wasn't able to work out what you need just now. Could you rephrase that?")},
			NextStep: session.Ptr(session.RouteEnd),
		}, nil
	}

	node, ok := routeNodes[decision.Route]
	if !ok {
		node = nodeGeneral
		decision.Route = session.RouteGeneral
	}

	frag := ackFragment(decision.Route)
	if node == nodeGather {
		// Entering the essay workflow: mark the phase so subsequent
		// turns resume it without re-classification.
		frag.CurrentPhase = session.Ptr(session.PhaseGather)
	}

	rt.Logger.Debug("routing decision", "route", decision.Route, "reason", decision.Reason)
	return node, frag, nil
}

func (rt *Runtime) classify(ctx context.Context, ts *session.State) (*RouteDecision, error) {
	system, err := composeSystem(prompts.StageRouter, nil)
	if err != nil {
		return nil, err
	}

	resp, err := rt.Client.Invoke(ctx, system, ts.Messages, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRouteFailed, err)
	}

	decision, err := formatting.Parse[RouteDecision](resp.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRouteFailed, err)
	}

	return &decision, nil
}

func ackFragment(route session.Route) *session.Fragment {
	ack, ok := ackMessages[route]
	if !ok {
		ack = "Let me help you with that."
	}
	return &session.Fragment{
		Messages: []llm.Message{llm.AssistantMessage(ack)},
	}
}

func lastUserMessage(ts *session.State) string {
	for i := len(ts.Messages) - 1; i >= 0; i-- {
		if ts.Messages[i].Role == llm.RoleUser {
			return ts.Messages[i].Content
		}
	}
	return ""
}
