// Package prompts holds the system instructions for the router and
// every conversational stage of the grading workflow.
package prompts

import (
	"encoding/json"
	"slices"
)

// Stage represents a conversational stage that instructions target.
type Stage string

// Valid conversational stages.
const (
	StageRouter      Stage = "router"
	StageGather      Stage = "gather"
	StagePrepare     Stage = "prepare"
	StageValidate    Stage = "validate"
	StageScrub       Stage = "scrub"
	StageEvaluate    Stage = "evaluate"
	StageReport      Stage = "report"
	StageEmail       Stage = "email"
	StageTestGrading Stage = "test_grading"
	StageGeneral     Stage = "general"
)

var stages = []Stage{
	StageRouter,
	StageGather,
	StagePrepare,
	StageValidate,
	StageScrub,
	StageEvaluate,
	StageReport,
	StageEmail,
	StageTestGrading,
	StageGeneral,
}

// Stages returns the list of valid conversational stages.
func Stages() []Stage {
	return stages
}

// UnmarshalJSON validates that the decoded string is a known stage value.
func (s *Stage) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := Stage(raw)
	if !slices.Contains(stages, v) {
		return ErrInvalidStage
	}
	*s = v
	return nil
}

// ParseStage validates a string as a known conversational stage.
// Returns ErrInvalidStage if the value is not recognized.
func ParseStage(s string) (Stage, error) {
	v := Stage(s)
	if !slices.Contains(stages, v) {
		return "", ErrInvalidStage
	}
	return v, nil
}
