package models

import "time"

// StageName identifies one of the nine fixed pipeline stages.
type StageName string

const (
	StageIntentAnalysis      StageName = "intent_analysis"
	StageRetrievalParams     StageName = "retrieval_params"
	StageRetrieval           StageName = "retrieval"
	StageRetrievalEvaluation StageName = "retrieval_evaluation"
	StageAgentSelection      StageName = "agent_selection"
	StageResponseGeneration  StageName = "response_generation"
	StageGroundingEvaluation StageName = "grounding_evaluation"
	StageOutputValidation    StageName = "output_validation"
	StageMetricsRecording    StageName = "metrics_recording"
)

// StageOrder is the fixed execution order of the pipeline stages.
var StageOrder = []StageName{
	StageIntentAnalysis,
	StageRetrievalParams,
	StageRetrieval,
	StageRetrievalEvaluation,
	StageAgentSelection,
	StageResponseGeneration,
	StageGroundingEvaluation,
	StageOutputValidation,
	StageMetricsRecording,
}

// IsValid checks if the stage name is one of the nine fixed stages.
func (s StageName) IsValid() bool {
	for _, known := range StageOrder {
		if s == known {
			return true
		}
	}
	return false
}

// StageResult captures the outcome of a single stage execution.
// Data carries the stage-specific payload; Error is the captured failure
// string (stages never propagate panics or raw errors past the runner).
type StageResult struct {
	Stage      StageName `json:"stage"`
	Success    bool      `json:"success"`
	DurationMs int64     `json:"duration_ms"`
	Data       any       `json:"data,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// RetrievalParams are the tunable knobs passed to the Retriever collaborator.
type RetrievalParams struct {
	DenseWeight         float64 `json:"dense_weight"`
	SparseWeight        float64 `json:"sparse_weight"`
	FuzzyWeight         float64 `json:"fuzzy_weight"`
	TopK                int     `json:"top_k"`
	RerankThreshold     float64 `json:"rerank_threshold"`
	GraphExpansionDepth int     `json:"graph_expansion_depth"`
}

// RetrievedDocument is one passage returned by the Retriever with its
// relevance score.
type RetrievedDocument struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Source  string  `json:"source,omitempty"`
	Score   float64 `json:"score"`
}

// RetrievalMetrics is the composite relevance judgment over one retrieval
// attempt. OverallScore is in [0,1].
type RetrievalMetrics struct {
	OverallScore float64 `json:"overall_score"`
	MeanScore    float64 `json:"mean_score"`
	TopScore     float64 `json:"top_score"`
	Coverage     float64 `json:"coverage"`
	Documents    int     `json:"documents"`
}

// GroundingResult reports how well the generated answer is supported by the
// retrieved passages.
type GroundingResult struct {
	OverallGroundingScore float64  `json:"overall_grounding_score"`
	GroundedClaims        []string `json:"grounded_claims"`
	UngroundedClaims      []string `json:"ungrounded_claims"`
}

// ValidationResult reports output-format checks and any auto-corrections.
// CorrectedOutput is non-empty when the validator rewrote the answer.
type ValidationResult struct {
	Valid           bool     `json:"valid"`
	Errors          []string `json:"errors,omitempty"`
	Corrections     []string `json:"corrections,omitempty"`
	CorrectedOutput string   `json:"corrected_output,omitempty"`
}

// PipelineResult is the complete outcome of one nine-stage pipeline run.
type PipelineResult struct {
	Query               string            `json:"query"`
	Answer              string            `json:"answer,omitempty"`
	Sources             []string          `json:"sources,omitempty"`
	Classification      *Classification   `json:"classification,omitempty"`
	RetrievalParams     *RetrievalParams  `json:"retrieval_params,omitempty"`
	RetrievalMetrics    *RetrievalMetrics `json:"retrieval_metrics,omitempty"`
	GroundingResult     *GroundingResult  `json:"grounding_result,omitempty"`
	ValidationResult    *ValidationResult `json:"validation_result,omitempty"`
	SelectedAgent       string            `json:"selected_agent,omitempty"`
	StageResults        []StageResult     `json:"stage_results"`
	TotalDurationMs     int64             `json:"total_duration_ms"`
	QualityGatePassed   bool              `json:"quality_gate_passed"`
	UsedFallback        bool              `json:"used_fallback"`
	RequiresHumanReview bool              `json:"requires_human_review"`
	ReviewReasons       []string          `json:"review_reasons,omitempty"`
	Success             bool              `json:"success"`
	CompletedAt         time.Time         `json:"completed_at"`
}
