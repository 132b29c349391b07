// Package router implements the top-level routing operations: single and
// batch query routing, classification, feedback integration, and
// decision-log analytics.
package router

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smartquery/qrouter/pkg/cache"
	"github.com/smartquery/qrouter/pkg/classifier"
	"github.com/smartquery/qrouter/pkg/collab"
	"github.com/smartquery/qrouter/pkg/config"
	"github.com/smartquery/qrouter/pkg/models"
	"github.com/smartquery/qrouter/pkg/selector"
)

const (
	llmFallbackPenalty = 0.8
	llmFallbackPrefix  = "rule-based fallback: "

	forcedReasoning = "backend forced by request"
)

// RouteOptions are the per-call knobs accepted by Route and RouteBatch.
type RouteOptions struct {
	UserID           string         `json:"user_id,omitempty"`
	SessionID        string         `json:"session_id,omitempty"`
	ForceBackend     models.Backend `json:"force_backend,omitempty"`
	IncludeReasoning bool           `json:"include_reasoning,omitempty"`
	UseLLM           bool           `json:"use_llm,omitempty"`
}

// Router coordinates fingerprinting, cache lookup, classification, backend
// selection, and decision logging for each query.
type Router struct {
	fingerprinter *classifier.Fingerprinter
	cache         *cache.RoutingCache
	selector      *selector.Selector
	classifierLLM collab.ClassifierLLM
	decisions     DecisionStore
	perf          PerfStore
	cfg           *config.RouterConfig
	now           func() time.Time
}

// NewRouter creates a router. classifierLLM, decisions, and perf may be nil;
// the corresponding features degrade per their non-fatal contracts.
func NewRouter(
	fingerprinter *classifier.Fingerprinter,
	routingCache *cache.RoutingCache,
	sel *selector.Selector,
	classifierLLM collab.ClassifierLLM,
	decisions DecisionStore,
	perf PerfStore,
	cfg *config.RouterConfig,
) *Router {
	return &Router{
		fingerprinter: fingerprinter,
		cache:         routingCache,
		selector:      sel,
		classifierLLM: classifierLLM,
		decisions:     decisions,
		perf:          perf,
		cfg:           cfg,
		now:           time.Now,
	}
}

// Route produces a routing decision for one query. Exactly one decision-log
// record is written per returned request ID; cache and log failures never
// fail the call.
func (r *Router) Route(ctx context.Context, query string, opts RouteOptions) (*models.RoutingDecision, error) {
	start := r.now()

	if strings.TrimSpace(query) == "" {
		return nil, NewValidationError("query", "query must not be empty")
	}
	if opts.ForceBackend != "" && !opts.ForceBackend.IsValid() {
		return nil, NewValidationError("force_backend", "unknown backend '"+string(opts.ForceBackend)+"'")
	}

	decision := &models.RoutingDecision{
		RequestID: uuid.NewString(),
		Query:     query,
		CreatedAt: start,
	}

	if opts.ForceBackend != "" {
		decision.Backend = opts.ForceBackend
		decision.Confidence = 1.0
		decision.Reasoning = forcedReasoning
		r.finish(ctx, decision, start, opts)
		return decision, nil
	}

	fp := r.fingerprinter.Fingerprint(ctx, query, r.cfg.UseSemanticCache)

	if hit := r.cache.Lookup(ctx, fp); hit != nil {
		entry := hit.Entry
		decision.Backend = entry.Backend
		decision.Confidence = entry.Confidence
		decision.Reasoning = entry.Reasoning
		decision.Classification = entry.Classification()
		decision.SuggestedTools = entry.SuggestedTools
		decision.FromCache = true
		r.finishWithEntry(ctx, decision, start, opts, entry.ID)
		return decision, nil
	}

	r.classifyAndSelect(ctx, query, opts, decision)

	if entry := r.cache.Put(ctx, fp, decision); entry != nil {
		r.finishWithEntry(ctx, decision, start, opts, entry.ID)
		return decision, nil
	}
	r.finish(ctx, decision, start, opts)
	return decision, nil
}

// classifyAndSelect fills the decision from the LLM-assisted path when
// requested, falling back to the deterministic path on any LLM failure.
func (r *Router) classifyAndSelect(ctx context.Context, query string, opts RouteOptions, decision *models.RoutingDecision) {
	rc := classifier.Classify(query)

	if opts.UseLLM && r.classifierLLM != nil {
		raw, err := r.classifierLLM.ClassifyQuery(ctx, query, classifier.ClassificationSchema)
		if err == nil {
			if parsed, perr := classifier.ParseLLMClassification(raw); perr == nil {
				decision.Backend = parsed.Backend
				decision.Confidence = parsed.Confidence
				decision.Reasoning = parsed.Reasoning
				decision.SuggestedTools = parsed.SuggestedTools
				decision.Classification = &models.Classification{
					Category:   rc.Category,
					Features:   rc.Features,
					Complexity: rc.Complexity,
					Confidence: parsed.Confidence,
				}
				return
			} else {
				err = perr
			}
		}
		slog.Warn("LLM classification failed, using rule-based fallback", "error", err)
		r.ruleBasedDecision(ctx, rc, opts, decision)
		decision.Confidence = clamp01(decision.Confidence * llmFallbackPenalty)
		decision.Reasoning = llmFallbackPrefix + decision.Reasoning
		decision.Classification.Confidence = decision.Confidence
		return
	}

	r.ruleBasedDecision(ctx, rc, opts, decision)
}

func (r *Router) ruleBasedDecision(ctx context.Context, rc classifier.RuleClassification, opts RouteOptions, decision *models.RoutingDecision) {
	sel := r.selector.Select(ctx, rc, false)
	decision.Backend = sel.Backend
	decision.Confidence = sel.Confidence
	decision.Reasoning = sel.Reasoning
	decision.Classification = &models.Classification{
		Category:   rc.Category,
		Features:   rc.Features,
		Complexity: rc.Complexity,
		Confidence: sel.Confidence,
	}
}

// ClassificationReport is the Classify operation's response.
type ClassificationReport struct {
	Category         models.Category   `json:"category"`
	Features         []string          `json:"features"`
	Complexity       models.Complexity `json:"complexity"`
	SuggestedBackend models.Backend    `json:"suggested_backend"`
}

// Classify runs the deterministic classifier without touching the cache or
// the decision log.
func (r *Router) Classify(query string) (*ClassificationReport, error) {
	if strings.TrimSpace(query) == "" {
		return nil, NewValidationError("query", "query must not be empty")
	}
	rc := classifier.Classify(query)
	backend, _, _ := selector.MapBackend(rc.Category, rc.Features, rc.Complexity)
	return &ClassificationReport{
		Category:         rc.Category,
		Features:         rc.Features.Strings(),
		Complexity:       rc.Complexity,
		SuggestedBackend: backend,
	}, nil
}

// finish stamps the routing time and writes the decision-log record.
func (r *Router) finish(ctx context.Context, decision *models.RoutingDecision, start time.Time, opts RouteOptions) {
	r.finishWithEntry(ctx, decision, start, opts, "")
}

func (r *Router) finishWithEntry(ctx context.Context, decision *models.RoutingDecision, start time.Time, opts RouteOptions, cacheEntryID string) {
	decision.RoutingTimeMs = r.now().Sub(start).Milliseconds()

	// The log keeps the full reasoning even when the response omits it.
	fullReasoning := decision.Reasoning
	if !opts.IncludeReasoning {
		decision.Reasoning = ""
	}

	if r.decisions == nil {
		return
	}
	record := &models.DecisionRecord{
		RequestID:      decision.RequestID,
		Query:          decision.Query,
		Backend:        decision.Backend,
		Confidence:     decision.Confidence,
		Reasoning:      fullReasoning,
		SuggestedTools: decision.SuggestedTools,
		FromCache:      decision.FromCache,
		CacheEntryID:   cacheEntryID,
		RoutingTimeMs:  decision.RoutingTimeMs,
		CreatedAt:      decision.CreatedAt,
	}
	if decision.Classification != nil {
		record.Category = decision.Classification.Category
		record.Complexity = decision.Classification.Complexity
		record.Features = decision.Classification.Features.Strings()
	}
	if err := r.decisions.Append(ctx, record); err != nil {
		slog.Warn("Failed to append decision log record", "request_id", decision.RequestID, "error", err)
		if opts.IncludeReasoning {
			decision.Reasoning = strings.TrimSpace(decision.Reasoning + " (decision log unavailable)")
		}
	}
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
