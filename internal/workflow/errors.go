package workflow

import "errors"

// Domain errors for turn execution.
var (
	ErrMissingTurnState = errors.New("turn state missing from graph state")
	ErrRouteFailed      = errors.New("routing decision failed")
	ErrAgentFailed      = errors.New("agent invocation failed")
)
