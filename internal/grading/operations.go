package grading

import (
	"strings"

	"github.com/edtools/proctor/internal/llm"
)

// Canonical operation names on the grading service. These are this
// system's integration detail, not a frozen wire contract; allow-list
// filtering matches by substring so minor service renames keep working.
// Exported so agents can recognize specific operations in tool results.
const (
	OpCreateJob       = "create_job_with_materials"
	OpAddToKB         = "add_to_knowledge_base"
	OpQueryKB         = "query_knowledge_base"
	OpBatchProcess    = "batch_process_documents"
	OpConvertPDF      = "convert_pdf_to_text"
	OpJobStatistics   = "get_job_statistics"
	OpValidateNames   = "validate_student_names"
	OpCorrectName     = "correct_detected_name"
	OpScrubJob        = "scrub_processed_job"
	OpEvaluateJob     = "evaluate_job"
	OpGradebook       = "generate_gradebook"
	OpStudentFeedback = "generate_student_feedback"
	OpDownloadReports = "download_reports_locally"
	OpSendEmails      = "send_student_feedback_emails"
)

// Toolset identifies a per-agent allow-listed subset of operations.
type Toolset string

// Valid toolsets. ToolsetGrading is the full pipeline surface used by
// the single-agent test grading expert.
const (
	ToolsetGather   Toolset = "gather"
	ToolsetPrepare  Toolset = "prepare"
	ToolsetValidate Toolset = "validate"
	ToolsetScrub    Toolset = "scrub"
	ToolsetEvaluate Toolset = "evaluate"
	ToolsetReport   Toolset = "report"
	ToolsetEmail    Toolset = "email"
	ToolsetGrading  Toolset = "grading"
)

// allowlists maps each toolset to the operation-name keywords permitted
// for that agent. Phase separation is enforced here: an agent never
// sees operations outside its phase.
var allowlists = map[Toolset][]string{
	ToolsetGather: {
		OpCreateJob,
		OpAddToKB,
		OpConvertPDF,
	},
	ToolsetPrepare: {
		OpBatchProcess,
	},
	ToolsetValidate: {
		OpJobStatistics,
		OpValidateNames,
		OpCorrectName,
	},
	ToolsetScrub: {
		OpJobStatistics,
		OpScrubJob,
	},
	ToolsetEvaluate: {
		OpQueryKB,
		OpEvaluateJob,
	},
	ToolsetReport: {
		OpGradebook,
		OpStudentFeedback,
		OpDownloadReports,
	},
	ToolsetEmail: {
		OpSendEmails,
	},
	ToolsetGrading: {
		OpCreateJob,
		OpBatchProcess,
		OpConvertPDF,
		OpJobStatistics,
		OpValidateNames,
		OpCorrectName,
		OpScrubJob,
		OpEvaluateJob,
		OpGradebook,
		OpStudentFeedback,
		OpDownloadReports,
	},
}

// Filter returns the subset of tools permitted for a toolset.
func Filter(tools []llm.ToolSpec, ts Toolset) []llm.ToolSpec {
	keywords, ok := allowlists[ts]
	if !ok {
		return nil
	}

	var filtered []llm.ToolSpec
	for _, t := range tools {
		name := strings.ToLower(t.Name)
		for _, kw := range keywords {
			if strings.Contains(name, kw) {
				filtered = append(filtered, t)
				break
			}
		}
	}
	return filtered
}
