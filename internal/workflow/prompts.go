package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/edtools/proctor/internal/prompts"
	"github.com/edtools/proctor/internal/session"
)

// stateSummary is the slice of Turn State shared with the model so an
// agent can resume mid-workflow without re-asking for what it has.
type stateSummary struct {
	JobID              string        `json:"job_id,omitempty"`
	CurrentPhase       session.Phase `json:"current_phase,omitempty"`
	RubricText         string        `json:"rubric_text,omitempty"`
	QuestionText       string        `json:"question_text,omitempty"`
	KnowledgeBaseTopic string        `json:"knowledge_base_topic,omitempty"`
	MaterialsAddedToKB bool          `json:"materials_added_to_kb"`
	OCRComplete        bool          `json:"ocr_complete"`
	ValidationComplete bool          `json:"validation_complete"`
	ScrubbingComplete  bool          `json:"scrubbing_complete"`
	EvaluationComplete bool          `json:"evaluation_complete"`
	StudentCount       int           `json:"student_count,omitempty"`
	CleanDirectoryPath string        `json:"clean_directory_path,omitempty"`
	EssayFormat        string        `json:"essay_format,omitempty"`
}

// composeSystem builds an agent's system prompt from the stage
// instructions and the running workflow state. When state is nil the
// prompt contains only the instructions.
func composeSystem(stage prompts.Stage, ts *session.State) (string, error) {
	instructions, err := prompts.Instructions(stage)
	if err != nil {
		return "", fmt.Errorf("load instructions for %s: %w", stage, err)
	}

	if ts == nil {
		return instructions, nil
	}

	summary := stateSummary{
		JobID:              ts.JobID,
		CurrentPhase:       ts.CurrentPhase,
		RubricText:         ts.RubricText,
		QuestionText:       ts.QuestionText,
		KnowledgeBaseTopic: ts.KnowledgeBaseTopic,
		MaterialsAddedToKB: ts.MaterialsAddedToKB,
		OCRComplete:        ts.OCRComplete,
		ValidationComplete: ts.ValidationComplete,
		ScrubbingComplete:  ts.ScrubbingComplete,
		EvaluationComplete: ts.EvaluationComplete,
		StudentCount:       ts.StudentCount,
		CleanDirectoryPath: ts.CleanDirectoryPath,
		EssayFormat:        ts.EssayFormat,
	}

	stateJSON, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize workflow state: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\nCurrent workflow state:\n\n")
	sb.Write(stateJSON)

	return sb.String(), nil
}
