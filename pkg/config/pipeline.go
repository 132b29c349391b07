package config

import (
	"time"

	"github.com/smartquery/qrouter/pkg/models"
)

// PipelineConfig contains quality gates, retry policy, and per-stage
// enable flags for the nine-stage pipeline.
type PipelineConfig struct {
	// MinRetrievalQuality is the retrieval-evaluation gate. A composite
	// score below this fails the quality gate and may trigger the
	// fallback retry.
	MinRetrievalQuality float64 `yaml:"min_retrieval_quality"`

	// MinGroundingScore is the grounding gate. A score below this flags
	// the result for human review.
	MinGroundingScore float64 `yaml:"min_grounding_score"`

	// MaxUngroundedClaims is the largest tolerated number of answer claims
	// without support in the retrieved sources.
	MaxUngroundedClaims int `yaml:"max_ungrounded_claims"`

	// EnableFallbackOnLowQuality enables the single expanded-parameter
	// retrieval retry when the quality gate fails.
	EnableFallbackOnLowQuality bool `yaml:"enable_fallback_on_low_quality"`

	// MaxRetrievalRetries caps retrieval attempts. Only the retrieval
	// stage retries; a value <= 1 disables the fallback retry.
	MaxRetrievalRetries int `yaml:"max_retrieval_retries"`

	// StageTimeout is the per-collaborator-call deadline.
	StageTimeout time.Duration `yaml:"-"`

	// Stages holds the nine per-stage enable flags.
	Stages StageFlags `yaml:"-"`

	// ForbiddenPatterns are substrings removed from answers by the output
	// validator.
	ForbiddenPatterns []string `yaml:"forbidden_patterns"`
}

// StageFlags enables or disables individual pipeline stages.
// Disabled stages are skipped without a stage result.
type StageFlags struct {
	IntentAnalysis      bool
	RetrievalParams     bool
	Retrieval           bool
	RetrievalEvaluation bool
	AgentSelection      bool
	ResponseGeneration  bool
	GroundingEvaluation bool
	OutputValidation    bool
	MetricsRecording    bool
}

// Enabled reports whether the given stage is enabled.
func (f StageFlags) Enabled(stage models.StageName) bool {
	switch stage {
	case models.StageIntentAnalysis:
		return f.IntentAnalysis
	case models.StageRetrievalParams:
		return f.RetrievalParams
	case models.StageRetrieval:
		return f.Retrieval
	case models.StageRetrievalEvaluation:
		return f.RetrievalEvaluation
	case models.StageAgentSelection:
		return f.AgentSelection
	case models.StageResponseGeneration:
		return f.ResponseGeneration
	case models.StageGroundingEvaluation:
		return f.GroundingEvaluation
	case models.StageOutputValidation:
		return f.OutputValidation
	case models.StageMetricsRecording:
		return f.MetricsRecording
	default:
		return false
	}
}

// AllStagesEnabled returns flags with every stage on.
func AllStagesEnabled() StageFlags {
	return StageFlags{
		IntentAnalysis:      true,
		RetrievalParams:     true,
		Retrieval:           true,
		RetrievalEvaluation: true,
		AgentSelection:      true,
		ResponseGeneration:  true,
		GroundingEvaluation: true,
		OutputValidation:    true,
		MetricsRecording:    true,
	}
}

// DefaultPipelineConfig returns the built-in pipeline defaults.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		MinRetrievalQuality:        0.5,
		MinGroundingScore:          0.6,
		MaxUngroundedClaims:        2,
		EnableFallbackOnLowQuality: true,
		MaxRetrievalRetries:        2,
		StageTimeout:               30 * time.Second,
		Stages:                     AllStagesEnabled(),
	}
}
