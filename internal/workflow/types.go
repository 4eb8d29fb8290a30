package workflow

import (
	"github.com/edtools/proctor/internal/session"
)

// Graph state bag keys. TurnState travels through the graph as a
// session.State value under a single key; the router's agent selection
// travels under the dispatch key.
const (
	KeyTurnState = "turn_state"
	KeyDispatch  = "dispatch"
)

// Graph node names.
const (
	nodeRouter      = "router"
	nodeGather      = "gather"
	nodePrepare     = "prepare"
	nodeValidate    = "validate"
	nodeScrub       = "scrub"
	nodeEvaluate    = "evaluate"
	nodeReport      = "report"
	nodeTestGrading = "test_grading"
	nodeGeneral     = "general"
	nodeEmail       = "email"
	nodeEnd         = "end"
)

// Completion is the payload captured when an agent signals that its
// work is done, carrying what the next stage needs.
type Completion struct {
	JobID        string
	RouteToEmail bool
}

// RouteDecision is the structured classification the router extracts
// from the model when no phase is in progress and the email heuristic
// does not apply.
type RouteDecision struct {
	Route  session.Route `json:"route"`
	Reason string        `json:"reason"`
}

// TurnResult is the outcome of dispatching one user turn: the merged,
// persisted state and the assistant messages produced this turn.
type TurnResult struct {
	State   *session.State
	Replies []string
}
