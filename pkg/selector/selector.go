// Package selector picks the execution backend for a classified query and,
// when a backend has interchangeable workers, chooses among them with an
// epsilon-greedy bandit over persisted performance history.
package selector

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/smartquery/qrouter/pkg/classifier"
	"github.com/smartquery/qrouter/pkg/config"
	"github.com/smartquery/qrouter/pkg/models"
)

const (
	explorationConfidencePenalty = 0.8
	lowCostBonus                 = 1.2

	scoreWeightQuality = 0.6
	scoreWeightSuccess = 0.3
	scoreWeightSpeed   = 0.1

	calibrationWeightBaseline = 0.7
	calibrationWeightHistory  = 0.3

	// speedBonusFloorMs is the latency at which the speed bonus reaches 0.
	speedBonusFloorMs = 10_000
)

// PerfStore reads performance history for (agent, task type) pairs. A nil
// record means no history yet. Store failures are non-fatal for selection.
type PerfStore interface {
	Get(ctx context.Context, agent string, taskType string) (*models.PerformanceRecord, error)
}

// Selection is the outcome of one backend + worker pick.
type Selection struct {
	Backend    models.Backend
	Worker     string
	Confidence float64
	Reasoning  string
	Explored   bool
}

// Selector maps categories to backends and runs the worker-pool bandit.
type Selector struct {
	workers         *config.WorkerRegistry
	perf            PerfStore
	epsilon         float64
	minExplorations int
	rng             *rand.Rand
}

// NewSelector creates a selector. perf may be nil, in which case every
// worker looks unsampled and the bandit degrades to pool-order choice.
func NewSelector(workers *config.WorkerRegistry, perf PerfStore, cfg *config.RouterConfig) *Selector {
	return &Selector{
		workers:         workers,
		perf:            perf,
		epsilon:         cfg.Epsilon,
		minExplorations: cfg.MinExplorations,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// MapBackend applies the deterministic category rules and returns the
// backend, its baseline confidence, and the human-readable reasoning.
func MapBackend(category models.Category, features models.FeatureSet, complexity models.Complexity) (models.Backend, float64, string) {
	switch category {
	case models.CategoryResearch:
		return models.BackendAdaptiveIterative, 0.90,
			"research queries need iterative retrieval with external data"
	case models.CategoryDocumentAnalysis:
		if features.Has(models.FeatureMultiDocument) {
			return models.BackendMultiAgentSequential, 0.85,
				"multi-document analysis runs best as a sequential worker chain"
		}
		return models.BackendAdaptiveIterative, 0.80,
			"single-document analysis benefits from iterative refinement"
	case models.CategoryMultiStep:
		if complexity == models.ComplexityComplex {
			return models.BackendAdaptiveIterative, 0.85,
				"complex multi-step task needs adaptive iteration"
		}
		return models.BackendMultiAgentSequential, 0.75,
			"multi-step task handled by the sequential worker chain"
	case models.CategoryEntityExtraction:
		return models.BackendMultiAgentSequential, 0.80,
			"structured extraction runs as a sequential worker chain"
	case models.CategoryConversational:
		return models.BackendDirectRetrieval, 0.95,
			"conversational query answered with a single direct pass"
	default:
		if complexity == models.ComplexitySimple {
			return models.BackendDirectRetrieval, 0.90,
				"simple lookup answered with a single direct pass"
		}
		return models.BackendDirectRetrieval, 0.75,
			"document lookup answered with a single direct pass"
	}
}

// Select picks the backend for the classification and a worker from its
// pool. Exploration multiplies the baseline confidence by 0.8.
func (s *Selector) Select(ctx context.Context, c classifier.RuleClassification, preferLowCost bool) Selection {
	backend, confidence, reasoning := MapBackend(c.Category, c.Features, c.Complexity)
	confidence = s.calibrateConfidence(ctx, backend, c.Category, confidence)
	worker, explored := s.PickWorker(ctx, backend, c.Category, preferLowCost)
	if explored {
		confidence = clamp01(confidence * explorationConfidencePenalty)
	}
	return Selection{
		Backend:    backend,
		Worker:     worker,
		Confidence: confidence,
		Reasoning:  reasoning,
		Explored:   explored,
	}
}

// calibrateConfidence folds feedback-driven history for the (backend,
// category) pair into the mapping's baseline confidence. The mapping table
// itself never changes at runtime; only its confidence moves, and only once
// the pair has at least the exploration minimum of observations.
func (s *Selector) calibrateConfidence(ctx context.Context, backend models.Backend, category models.Category, baseline float64) float64 {
	rec := s.lookup(ctx, string(backend), string(category))
	if rec == nil || rec.Total < int64(s.minExplorations) {
		return baseline
	}
	return clamp01(calibrationWeightBaseline*baseline + calibrationWeightHistory*rec.EWMAQuality)
}

// PickWorker chooses a worker from the backend's pool. With probability
// epsilon it explores an under-sampled worker (total observations below the
// exploration minimum); otherwise it exploits the highest composite score.
// Returns whether the exploration branch was taken.
func (s *Selector) PickWorker(ctx context.Context, backend models.Backend, category models.Category, preferLowCost bool) (string, bool) {
	pool := s.workers.Pool(backend)
	if len(pool) == 0 {
		return string(backend), false
	}
	if len(pool) == 1 {
		return pool[0].Name, false
	}

	records := make([]*models.PerformanceRecord, len(pool))
	for i, w := range pool {
		records[i] = s.lookup(ctx, w.Name, string(category))
	}

	if s.rng.Float64() < s.epsilon {
		if name, ok := s.pickUnderSampled(pool, records); ok {
			return name, true
		}
	}

	best := 0
	bestScore := -1.0
	for i, w := range pool {
		score := compositeScore(records[i])
		if preferLowCost && w.LowCost {
			score *= lowCostBonus
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return pool[best].Name, false
}

func (s *Selector) lookup(ctx context.Context, agent, taskType string) *models.PerformanceRecord {
	if s.perf == nil {
		return nil
	}
	rec, err := s.perf.Get(ctx, agent, taskType)
	if err != nil {
		slog.Warn("Performance store unavailable, treating worker as unsampled",
			"agent", agent, "task_type", taskType, "error", err)
		return nil
	}
	return rec
}

// pickUnderSampled returns a random worker with fewer observations than the
// exploration minimum, or false when every worker is sufficiently sampled.
func (s *Selector) pickUnderSampled(pool []config.WorkerConfig, records []*models.PerformanceRecord) (string, bool) {
	var candidates []int
	for i := range pool {
		if records[i] == nil || records[i].Total < int64(s.minExplorations) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return pool[candidates[s.rng.Intn(len(candidates))]].Name, true
}

// compositeScore ranks a worker by quality, success rate, and speed.
func compositeScore(rec *models.PerformanceRecord) float64 {
	if rec == nil || rec.Total == 0 {
		return 0
	}
	speedBonus := 1 - rec.EWMALatencyMs/speedBonusFloorMs
	if speedBonus < 0 {
		speedBonus = 0
	}
	return scoreWeightQuality*rec.EWMAQuality +
		scoreWeightSuccess*rec.SuccessRate() +
		scoreWeightSpeed*speedBonus
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
