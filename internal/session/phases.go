package session

import (
	"encoding/json"
	"slices"
)

// Phase represents a stage of the essay-grading workflow.
type Phase string

// Valid workflow phases. PhaseNone marks a thread with no workflow in
// progress.
const (
	PhaseNone     Phase = ""
	PhaseGather   Phase = "gather"
	PhasePrepare  Phase = "prepare"
	PhaseValidate Phase = "validate"
	PhaseScrub    Phase = "scrub"
	PhaseEvaluate Phase = "evaluate"
	PhaseReport   Phase = "report"
)

var phases = []Phase{
	PhaseGather,
	PhasePrepare,
	PhaseValidate,
	PhaseScrub,
	PhaseEvaluate,
	PhaseReport,
}

// Phases returns the ordered list of essay workflow phases.
func Phases() []Phase {
	return phases
}

// ParsePhase validates a string as a known workflow phase. The empty
// string parses to PhaseNone. Returns ErrInvalidPhase otherwise.
func ParsePhase(s string) (Phase, error) {
	if s == "" {
		return PhaseNone, nil
	}
	v := Phase(s)
	if !slices.Contains(phases, v) {
		return PhaseNone, ErrInvalidPhase
	}
	return v, nil
}

// Successor returns the phase that follows p in the essay workflow.
// The report phase has no successor; it returns PhaseNone and false.
func (p Phase) Successor() (Phase, bool) {
	idx := slices.Index(phases, p)
	if idx == -1 || idx == len(phases)-1 {
		return PhaseNone, false
	}
	return phases[idx+1], true
}

// Route identifies which agent handles the current turn. It is the
// transient per-turn routing field set by the router or by a completing
// agent, and consumed by the dispatcher's conditional edges.
type Route string

// Valid routes. RouteEnd terminates the turn.
const (
	RouteEssayGrading Route = "essay_grading"
	RouteTestGrading  Route = "test_grading"
	RouteGeneral      Route = "general"
	RouteEmail        Route = "email_distribution"
	RouteEnd          Route = "END"
)

var routes = []Route{
	RouteEssayGrading,
	RouteTestGrading,
	RouteGeneral,
	RouteEmail,
	RouteEnd,
}

// ParseRoute validates a string as a known route.
// Returns ErrInvalidRoute if the value is not recognized.
func ParseRoute(s string) (Route, error) {
	v := Route(s)
	if !slices.Contains(routes, v) {
		return "", ErrInvalidRoute
	}
	return v, nil
}

// UnmarshalJSON validates that the decoded string is a known route value.
func (r *Route) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseRoute(raw)
	if err != nil {
		return err
	}
	*r = v
	return nil
}
