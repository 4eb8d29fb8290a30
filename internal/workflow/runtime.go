// Package workflow implements the conversational routing layer and the
// finite-state essay grading controller: the router, the phase agents
// with their bounded tool-calling loops, and the dispatcher graph that
// runs exactly one agent per user turn.
package workflow

import (
	"log/slog"

	"github.com/edtools/proctor/internal/checkpoint"
	"github.com/edtools/proctor/internal/grading"
	"github.com/edtools/proctor/internal/llm"
	"github.com/edtools/proctor/internal/prompts"
)

// Budgets caps the tool-calling loop iterations per agent. Agents that
// expect multi-round human correction dialogs get the larger budget.
type Budgets struct {
	Default  int
	Validate int
	Email    int
}

// DefaultBudgets returns the standard iteration caps.
func DefaultBudgets() Budgets {
	return Budgets{
		Default:  10,
		Validate: 20,
		Email:    20,
	}
}

func (b Budgets) forStage(stage prompts.Stage) int {
	switch stage {
	case prompts.StageValidate:
		return b.Validate
	case prompts.StageEmail:
		return b.Email
	default:
		return b.Default
	}
}

// Runtime bundles the collaborators the router and phase agents
// require. It is constructed by composition code from configuration.
type Runtime struct {
	Client  llm.Client
	Grading grading.Service
	Store   checkpoint.Store
	Budgets Budgets
	Logger  *slog.Logger
}
