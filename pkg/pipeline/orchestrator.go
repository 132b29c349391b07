package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/smartquery/qrouter/pkg/classifier"
	"github.com/smartquery/qrouter/pkg/collab"
	"github.com/smartquery/qrouter/pkg/config"
	"github.com/smartquery/qrouter/pkg/models"
	"github.com/smartquery/qrouter/pkg/selector"
)

// PerfSink receives pipeline outcomes for performance-record updates.
type PerfSink interface {
	Observe(ctx context.Context, agent, taskType string, outcome models.Outcome) error
}

// Orchestrator runs the nine stages in fixed order with the documented
// short-circuits: stages 1, 3, and 6 abort the pipeline on failure, all
// others are captured and execution continues.
type Orchestrator struct {
	retriever collab.Retriever
	generator collab.Generator
	selector  *selector.Selector
	perf      PerfSink
	cfg       *config.PipelineConfig
	now       func() time.Time
}

// NewOrchestrator creates the pipeline orchestrator. perf may be nil, in
// which case metrics recording is a no-op success.
func NewOrchestrator(retriever collab.Retriever, generator collab.Generator, sel *selector.Selector, perf PerfSink, cfg *config.PipelineConfig) *Orchestrator {
	return &Orchestrator{
		retriever: retriever,
		generator: generator,
		selector:  sel,
		perf:      perf,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run executes the pipeline for one query. The returned result is always
// non-nil and carries every executed stage's outcome.
func (o *Orchestrator) Run(ctx context.Context, query string) *models.PipelineResult {
	start := o.now()
	result := &models.PipelineResult{
		Query:             query,
		QualityGatePassed: true,
	}
	defer func() {
		result.TotalDurationMs = o.now().Sub(start).Milliseconds()
		result.CompletedAt = o.now()
	}()

	var (
		docs      []models.RetrievedDocument
		params    = DefaultRetrievalParams()
		selection selector.Selection
	)

	// Stage 1: intent_analysis. Fatal.
	if aborted := o.runFatal(ctx, result, models.StageIntentAnalysis, func(context.Context) (any, error) {
		rc := classifier.Classify(query)
		if rc.WordCount == 0 {
			return nil, fmt.Errorf("query is empty after normalization")
		}
		result.Classification = &models.Classification{
			Category:   rc.Category,
			Features:   rc.Features,
			Complexity: rc.Complexity,
		}
		return result.Classification, nil
	}); aborted {
		return result
	}

	// Stage 2: retrieval_params. Non-fatal, defaults on failure.
	o.runStage(ctx, result, models.StageRetrievalParams, func(context.Context) (any, error) {
		params = DeriveRetrievalParams(result.Classification)
		result.RetrievalParams = &params
		return params, nil
	})

	// Stage 3: retrieval. Fatal.
	if aborted := o.runFatal(ctx, result, models.StageRetrieval, func(sctx context.Context) (any, error) {
		var err error
		docs, err = o.retrieve(sctx, query, params)
		return len(docs), err
	}); aborted {
		return result
	}

	// Stage 4: retrieval_evaluation. Non-fatal; may retry retrieval once
	// with expanded parameters.
	o.runStage(ctx, result, models.StageRetrievalEvaluation, func(sctx context.Context) (any, error) {
		metrics := EvaluateRetrieval(query, docs)
		// The gate records the first attempt's judgment; a successful
		// fallback improves the inputs downstream but does not rewrite it.
		result.QualityGatePassed = metrics.OverallScore >= o.cfg.MinRetrievalQuality
		if !result.QualityGatePassed && o.fallbackAllowed() {
			expanded := ExpandForFallback(params)
			retryDocs, err := o.retrieve(sctx, query, expanded)
			if err != nil {
				slog.Warn("Fallback retrieval failed, keeping first attempt", "error", err)
			} else {
				retryMetrics := EvaluateRetrieval(query, retryDocs)
				if retryMetrics.OverallScore > metrics.OverallScore {
					docs, metrics = retryDocs, retryMetrics
					params = expanded
					result.RetrievalParams = &params
				}
			}
			result.UsedFallback = true
		}
		result.RetrievalMetrics = metrics
		return metrics, nil
	})

	// Stage 5: agent_selection. Non-fatal.
	o.runStage(ctx, result, models.StageAgentSelection, func(sctx context.Context) (any, error) {
		rc := classifier.RuleClassification{
			Category:   result.Classification.Category,
			Features:   result.Classification.Features,
			Complexity: result.Classification.Complexity,
		}
		selection = o.selector.Select(sctx, rc, false)
		result.SelectedAgent = selection.Worker
		result.Classification.Confidence = selection.Confidence
		return selection, nil
	})

	// Stage 6: response_generation. Fatal.
	if aborted := o.runFatal(ctx, result, models.StageResponseGeneration, func(sctx context.Context) (any, error) {
		answer, err := o.generator.Generate(sctx, query, docs)
		if err != nil {
			return nil, err
		}
		result.Answer = answer
		for _, doc := range docs {
			if doc.Source != "" {
				result.Sources = append(result.Sources, doc.Source)
			}
		}
		return len(answer), nil
	}); aborted {
		return result
	}

	// Stage 7: grounding_evaluation. Non-fatal.
	o.runStage(ctx, result, models.StageGroundingEvaluation, func(context.Context) (any, error) {
		grounding := EvaluateGrounding(result.Answer, docs)
		result.GroundingResult = grounding
		if grounding.OverallGroundingScore < o.cfg.MinGroundingScore {
			o.flagReview(result, fmt.Sprintf("grounding score %.2f below minimum %.2f",
				grounding.OverallGroundingScore, o.cfg.MinGroundingScore))
		}
		if len(grounding.UngroundedClaims) > o.cfg.MaxUngroundedClaims {
			o.flagReview(result, fmt.Sprintf("%d ungrounded claims exceed limit of %d",
				len(grounding.UngroundedClaims), o.cfg.MaxUngroundedClaims))
		}
		return grounding, nil
	})

	// Stage 8: output_validation. Non-fatal.
	o.runStage(ctx, result, models.StageOutputValidation, func(context.Context) (any, error) {
		validation := ValidateOutput(result.Answer, o.cfg.ForbiddenPatterns)
		result.ValidationResult = validation
		if validation.CorrectedOutput != "" {
			result.Answer = validation.CorrectedOutput
		}
		if !validation.Valid {
			for _, e := range validation.Errors {
				o.flagReview(result, "output validation: "+e)
			}
		}
		return validation, nil
	})

	if ctx.Err() == nil {
		result.Success = true
	}

	// Stage 9: metrics_recording. Non-fatal.
	o.runStage(ctx, result, models.StageMetricsRecording, func(sctx context.Context) (any, error) {
		if o.perf == nil || result.SelectedAgent == "" {
			return nil, nil
		}
		quality := 0.0
		if result.GroundingResult != nil {
			quality = result.GroundingResult.OverallGroundingScore
		}
		outcome := models.Outcome{
			Success:   result.QualityGatePassed && !result.RequiresHumanReview,
			LatencyMs: float64(o.now().Sub(start).Milliseconds()),
			Quality:   quality,
			At:        o.now(),
		}
		return nil, o.perf.Observe(sctx, result.SelectedAgent, string(result.Classification.Category), outcome)
	})

	return result
}

// runStage executes a non-fatal stage, honoring the per-stage enable flag
// and cancellation. Returns whether the stage ran successfully.
func (o *Orchestrator) runStage(ctx context.Context, result *models.PipelineResult, name models.StageName, fn StageFunc) bool {
	if !o.cfg.Stages.Enabled(name) {
		return false
	}
	if o.cancelled(ctx, result) {
		return false
	}
	sr := RunStage(ctx, name, fn)
	result.StageResults = append(result.StageResults, sr)
	if !sr.Success {
		slog.Warn("Pipeline stage failed, continuing", "stage", name, "error", sr.Error)
	}
	return sr.Success
}

// runFatal executes a fatal stage. Returns true when the pipeline must
// abort, with the failure recorded in review reasons.
func (o *Orchestrator) runFatal(ctx context.Context, result *models.PipelineResult, name models.StageName, fn StageFunc) bool {
	if !o.cfg.Stages.Enabled(name) {
		return false
	}
	if o.cancelled(ctx, result) {
		return true
	}
	sr := RunStage(ctx, name, fn)
	result.StageResults = append(result.StageResults, sr)
	if !sr.Success {
		result.Success = false
		o.flagReview(result, fmt.Sprintf("stage %s failed: %s", name, sr.Error))
		return true
	}
	return false
}

// cancelled checks for context cancellation between stages.
func (o *Orchestrator) cancelled(ctx context.Context, result *models.PipelineResult) bool {
	if ctx.Err() == nil {
		return false
	}
	result.Success = false
	result.RequiresHumanReview = true
	for _, reason := range result.ReviewReasons {
		if reason == "cancelled" {
			return true
		}
	}
	result.ReviewReasons = append(result.ReviewReasons, "cancelled")
	return true
}

func (o *Orchestrator) flagReview(result *models.PipelineResult, reason string) {
	result.RequiresHumanReview = true
	result.ReviewReasons = append(result.ReviewReasons, reason)
}

func (o *Orchestrator) fallbackAllowed() bool {
	return o.cfg.EnableFallbackOnLowQuality && o.cfg.MaxRetrievalRetries > 1
}

// retrieve calls the retriever with the per-stage timeout applied.
func (o *Orchestrator) retrieve(ctx context.Context, query string, params models.RetrievalParams) ([]models.RetrievedDocument, error) {
	if o.retriever == nil {
		return nil, collab.ErrNotConfigured
	}
	if o.cfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.StageTimeout)
		defer cancel()
	}
	return o.retriever.Retrieve(ctx, query, params)
}
