package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/edtools/proctor/internal/llm"
)

// State is the Turn State for one conversation thread. It is owned by
// the dispatcher and mutated only by merging fragments returned from
// phase agents, never in place.
type State struct {
	ThreadID uuid.UUID `json:"thread_id"`

	// Messages is the ordered, append-only conversation log. The
	// controller never truncates it.
	Messages []llm.Message `json:"messages"`

	// CurrentPhase tracks the in-progress essay workflow phase;
	// PhaseNone when no workflow is active.
	CurrentPhase Phase `json:"current_phase"`

	// NextStep is the transient per-turn routing field consumed by the
	// dispatcher.
	NextStep Route `json:"next_step"`

	// JobID is assigned by the grading service when a job is created.
	// Once set it is never cleared for the remainder of the thread.
	JobID string `json:"job_id"`

	// Gathered materials; each is set at most once per workflow run.
	RubricText         string `json:"rubric_text"`
	QuestionText       string `json:"question_text"`
	KnowledgeBaseTopic string `json:"knowledge_base_topic"`
	ContextMaterial    string `json:"context_material"`

	// Monotonic completion flags; once true, a resumed phase agent
	// treats re-entry as a no-op and advances immediately.
	MaterialsAddedToKB bool `json:"materials_added_to_kb"`
	OCRComplete        bool `json:"ocr_complete"`
	ValidationComplete bool `json:"validation_complete"`
	ScrubbingComplete  bool `json:"scrubbing_complete"`
	EvaluationComplete bool `json:"evaluation_complete"`

	// Advisory metadata for display and tool-call argument construction.
	StudentCount       int    `json:"student_count"`
	CleanDirectoryPath string `json:"clean_directory_path"`
	EssayFormat        string `json:"essay_format"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates an empty State for a thread.
func New(threadID uuid.UUID) *State {
	now := time.Now().UTC()
	return &State{
		ThreadID:  threadID,
		NextStep:  RouteEnd,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Fragment is the partial state update returned by an agent at the end
// of its turn. Nil pointer fields leave the corresponding State field
// unchanged; Messages are appended.
type Fragment struct {
	Messages []llm.Message

	CurrentPhase *Phase
	NextStep     *Route
	JobID        *string

	RubricText         *string
	QuestionText       *string
	KnowledgeBaseTopic *string
	ContextMaterial    *string

	MaterialsAddedToKB *bool
	OCRComplete        *bool
	ValidationComplete *bool
	ScrubbingComplete  *bool
	EvaluationComplete *bool

	StudentCount       *int
	CleanDirectoryPath *string
	EssayFormat        *string
}

// Merge applies a fragment to the state, enforcing the monotonic-field
// invariants: JobID and gathered materials are never overwritten with
// empty values once set, and completion flags never regress to false.
// A violating fragment leaves the state untouched and returns an error.
func (s *State) Merge(f *Fragment) error {
	if f == nil {
		return nil
	}

	if err := s.validateMerge(f); err != nil {
		return err
	}

	s.Messages = append(s.Messages, f.Messages...)

	if f.CurrentPhase != nil {
		s.CurrentPhase = *f.CurrentPhase
	}
	if f.NextStep != nil {
		s.NextStep = *f.NextStep
	}
	if f.JobID != nil && *f.JobID != "" {
		s.JobID = *f.JobID
	}

	applyText(&s.RubricText, f.RubricText)
	applyText(&s.QuestionText, f.QuestionText)
	applyText(&s.KnowledgeBaseTopic, f.KnowledgeBaseTopic)
	applyText(&s.ContextMaterial, f.ContextMaterial)

	applyFlag(&s.MaterialsAddedToKB, f.MaterialsAddedToKB)
	applyFlag(&s.OCRComplete, f.OCRComplete)
	applyFlag(&s.ValidationComplete, f.ValidationComplete)
	applyFlag(&s.ScrubbingComplete, f.ScrubbingComplete)
	applyFlag(&s.EvaluationComplete, f.EvaluationComplete)

	if f.StudentCount != nil && *f.StudentCount > 0 {
		s.StudentCount = *f.StudentCount
	}
	if f.CleanDirectoryPath != nil && *f.CleanDirectoryPath != "" {
		s.CleanDirectoryPath = *f.CleanDirectoryPath
	}
	if f.EssayFormat != nil && *f.EssayFormat != "" {
		s.EssayFormat = *f.EssayFormat
	}

	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *State) validateMerge(f *Fragment) error {
	if f.JobID != nil && *f.JobID == "" && s.JobID != "" {
		return ErrJobIDCleared
	}

	materials := []struct {
		name    string
		current string
		next    *string
	}{
		{"rubric_text", s.RubricText, f.RubricText},
		{"question_text", s.QuestionText, f.QuestionText},
		{"knowledge_base_topic", s.KnowledgeBaseTopic, f.KnowledgeBaseTopic},
	}

	for _, m := range materials {
		if m.next != nil && *m.next == "" && m.current != "" {
			return fmt.Errorf("%w: %s", ErrMaterialCleared, m.name)
		}
	}

	flags := []struct {
		name    string
		current bool
		next    *bool
	}{
		{"materials_added_to_kb", s.MaterialsAddedToKB, f.MaterialsAddedToKB},
		{"ocr_complete", s.OCRComplete, f.OCRComplete},
		{"validation_complete", s.ValidationComplete, f.ValidationComplete},
		{"scrubbing_complete", s.ScrubbingComplete, f.ScrubbingComplete},
		{"evaluation_complete", s.EvaluationComplete, f.EvaluationComplete},
	}

	for _, fl := range flags {
		if fl.next != nil && !*fl.next && fl.current {
			return fmt.Errorf("%w: %s", ErrFieldRegression, fl.name)
		}
	}

	return nil
}

func applyText(dst *string, src *string) {
	if src != nil && *src != "" {
		*dst = *src
	}
}

func applyFlag(dst *bool, src *bool) {
	if src != nil && *src {
		*dst = true
	}
}

// Ptr returns a pointer to v; convenience for fragment construction.
func Ptr[T any](v T) *T {
	return &v
}
