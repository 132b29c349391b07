package router_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartquery/qrouter/pkg/cache"
	"github.com/smartquery/qrouter/pkg/classifier"
	"github.com/smartquery/qrouter/pkg/collab"
	"github.com/smartquery/qrouter/pkg/config"
	"github.com/smartquery/qrouter/pkg/models"
	"github.com/smartquery/qrouter/pkg/router"
	"github.com/smartquery/qrouter/pkg/selector"
	"github.com/smartquery/qrouter/pkg/services"
)

type fakeLLM struct {
	response string
	err      error
	calls    int
}

func (f *fakeLLM) ClassifyQuery(context.Context, string, string) (string, error) {
	f.calls++
	return f.response, f.err
}

type testEnv struct {
	router     *router.Router
	decisions  *services.MemoryDecisionStore
	perf       *services.MemoryPerfStore
	cacheStore *services.MemoryCacheStore
}

func newTestEnv(llm *fakeLLM) *testEnv {
	cfg := config.DefaultRouterConfig()
	cacheStore := services.NewMemoryCacheStore()
	decisions := services.NewMemoryDecisionStore()
	perf := services.NewMemoryPerfStore()

	sel := selector.NewSelector(config.DefaultWorkerRegistry(), perf, cfg)
	routingCache := cache.NewRoutingCache(cacheStore, cfg)
	fingerprinter := classifier.NewFingerprinter(nil)

	var classifierLLM collab.ClassifierLLM
	if llm != nil {
		classifierLLM = llm
	}

	r := router.NewRouter(fingerprinter, routingCache, sel, classifierLLM, decisions, perf, cfg)
	return &testEnv{router: r, decisions: decisions, perf: perf, cacheStore: cacheStore}
}

func TestRoute_EmptyQuery(t *testing.T) {
	env := newTestEnv(nil)

	_, err := env.router.Route(context.Background(), "   \t ", router.RouteOptions{})
	var verr *router.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "query", verr.Field)
}

func TestRoute_Scenarios(t *testing.T) {
	tests := []struct {
		query         string
		category      models.Category
		backend       models.Backend
		minConfidence float64
	}{
		{"What is our vacation policy?", models.CategoryDocumentLookup, models.BackendDirectRetrieval, 0.7},
		{"What are the current California insurance regulations?", models.CategoryResearch, models.BackendAdaptiveIterative, 0.8},
		{"Compare all these contracts and identify differences", models.CategoryDocumentAnalysis, models.BackendMultiAgentSequential, 0.8},
		{"Hello", models.CategoryConversational, models.BackendDirectRetrieval, 0.9},
		{"Extract the names and phone numbers from this contract", models.CategoryEntityExtraction, models.BackendMultiAgentSequential, 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			env := newTestEnv(nil)
			decision, err := env.router.Route(context.Background(), tt.query, router.RouteOptions{})
			require.NoError(t, err)

			assert.Equal(t, tt.backend, decision.Backend)
			assert.GreaterOrEqual(t, decision.Confidence, tt.minConfidence)
			assert.False(t, decision.FromCache)
			assert.NotEmpty(t, decision.RequestID)
			require.NotNil(t, decision.Classification)
			assert.Equal(t, tt.category, decision.Classification.Category)
		})
	}
}

func TestRoute_SecondCallHitsCache(t *testing.T) {
	env := newTestEnv(nil)
	ctx := context.Background()

	first, err := env.router.Route(ctx, "What is our vacation policy?", router.RouteOptions{})
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	// Case and whitespace variations hit the same entry.
	second, err := env.router.Route(ctx, "what IS our  vacation policy?", router.RouteOptions{})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Backend, second.Backend)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.NotEqual(t, first.RequestID, second.RequestID)
}

func TestRoute_EveryCallLogsOneDecision(t *testing.T) {
	env := newTestEnv(nil)
	ctx := context.Background()

	first, err := env.router.Route(ctx, "What is our vacation policy?", router.RouteOptions{})
	require.NoError(t, err)
	second, err := env.router.Route(ctx, "What is our vacation policy?", router.RouteOptions{})
	require.NoError(t, err)

	firstRec, err := env.decisions.Get(ctx, first.RequestID)
	require.NoError(t, err)
	require.NotNil(t, firstRec)
	assert.False(t, firstRec.FromCache)
	assert.NotEmpty(t, firstRec.CacheEntryID)

	secondRec, err := env.decisions.Get(ctx, second.RequestID)
	require.NoError(t, err)
	require.NotNil(t, secondRec)
	assert.True(t, secondRec.FromCache)
	// The hit record links the same entry the miss inserted.
	assert.Equal(t, firstRec.CacheEntryID, secondRec.CacheEntryID)
}

func TestRoute_ForceBackend(t *testing.T) {
	env := newTestEnv(&fakeLLM{response: "should never be called"})
	ctx := context.Background()

	decision, err := env.router.Route(ctx, "What is our vacation policy?", router.RouteOptions{
		ForceBackend:     models.BackendMultiAgentSequential,
		IncludeReasoning: true,
		UseLLM:           true,
	})
	require.NoError(t, err)

	assert.Equal(t, models.BackendMultiAgentSequential, decision.Backend)
	assert.Equal(t, 1.0, decision.Confidence)
	assert.Equal(t, "backend forced by request", decision.Reasoning)
	assert.Nil(t, decision.Classification)

	// Forced decisions are logged but never cached, and skip the LLM.
	record, err := env.decisions.Get(ctx, decision.RequestID)
	require.NoError(t, err)
	require.NotNil(t, record)
	stats, err := env.cacheStore.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalEntries)

	followUp, err := env.router.Route(ctx, "What is our vacation policy?", router.RouteOptions{})
	require.NoError(t, err)
	assert.False(t, followUp.FromCache)
}

func TestRoute_InvalidForceBackend(t *testing.T) {
	env := newTestEnv(nil)

	_, err := env.router.Route(context.Background(), "query", router.RouteOptions{ForceBackend: "mystery"})
	var verr *router.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "force_backend", verr.Field)
}

func TestRoute_LLMClassification(t *testing.T) {
	llm := &fakeLLM{response: `{"backend":"adaptive_iterative","confidence":0.93,"reasoning":"needs deep research","suggested_tools":["web_search"]}`}
	env := newTestEnv(llm)

	decision, err := env.router.Route(context.Background(), "What is our vacation policy?", router.RouteOptions{
		UseLLM:           true,
		IncludeReasoning: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, llm.calls)
	assert.Equal(t, models.BackendAdaptiveIterative, decision.Backend)
	assert.Equal(t, 0.93, decision.Confidence)
	assert.Equal(t, "needs deep research", decision.Reasoning)
	assert.Equal(t, []string{"web_search"}, decision.SuggestedTools)
	require.NotNil(t, decision.Classification)
	assert.Equal(t, models.CategoryDocumentLookup, decision.Classification.Category)
}

func TestRoute_LLMFailureFallsBackToRules(t *testing.T) {
	tests := []struct {
		name string
		llm  *fakeLLM
	}{
		{"transport error", &fakeLLM{err: errors.New("connection refused")}},
		{"unparseable response", &fakeLLM{response: "no json here"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(tt.llm)

			decision, err := env.router.Route(context.Background(), "What is our vacation policy?", router.RouteOptions{
				UseLLM:           true,
				IncludeReasoning: true,
			})
			require.NoError(t, err)

			assert.Equal(t, models.BackendDirectRetrieval, decision.Backend)
			assert.InDelta(t, 0.90*0.8, decision.Confidence, 1e-9)
			assert.True(t, strings.HasPrefix(decision.Reasoning, "rule-based fallback: "))
		})
	}
}

func TestRoute_ReasoningOmittedByDefault(t *testing.T) {
	env := newTestEnv(nil)

	decision, err := env.router.Route(context.Background(), "What is our vacation policy?", router.RouteOptions{})
	require.NoError(t, err)
	assert.Empty(t, decision.Reasoning)

	// The log still carries the full reasoning.
	record, err := env.decisions.Get(context.Background(), decision.RequestID)
	require.NoError(t, err)
	assert.NotEmpty(t, record.Reasoning)
}

func TestClassify(t *testing.T) {
	env := newTestEnv(nil)

	report, err := env.router.Classify("Compare all these contracts and identify differences")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryDocumentAnalysis, report.Category)
	assert.Equal(t, models.BackendMultiAgentSequential, report.SuggestedBackend)
	assert.Contains(t, report.Features, "multi_document")

	_, err = env.router.Classify("  ")
	assert.Error(t, err)
}

func TestFeedback(t *testing.T) {
	env := newTestEnv(nil)
	ctx := context.Background()

	decision, err := env.router.Route(ctx, "What is our vacation policy?", router.RouteOptions{})
	require.NoError(t, err)

	t.Run("missing request_id is a no-op", func(t *testing.T) {
		resp, err := env.router.Feedback(ctx, models.Feedback{Verdict: models.VerdictPositive})
		require.NoError(t, err)
		assert.False(t, resp.OK)
	})

	t.Run("unknown request_id mutates nothing", func(t *testing.T) {
		resp, err := env.router.Feedback(ctx, models.Feedback{
			RequestID: "does-not-exist",
			Verdict:   models.VerdictPositive,
		})
		require.NoError(t, err)
		assert.False(t, resp.OK)

		rec, err := env.perf.Get(ctx, string(decision.Backend), string(models.CategoryDocumentLookup))
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("invalid verdict", func(t *testing.T) {
		_, err := env.router.Feedback(ctx, models.Feedback{RequestID: decision.RequestID, Verdict: "meh"})
		var verr *router.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("valid feedback amends log and performance", func(t *testing.T) {
		resp, err := env.router.Feedback(ctx, models.Feedback{
			RequestID:        decision.RequestID,
			Verdict:          models.VerdictNegative,
			Comment:          "wrong backend",
			CorrectedBackend: models.BackendAdaptiveIterative,
		})
		require.NoError(t, err)
		assert.True(t, resp.OK)

		record, err := env.decisions.Get(ctx, decision.RequestID)
		require.NoError(t, err)
		assert.Equal(t, models.VerdictNegative, record.Verdict)
		assert.Equal(t, "wrong backend", record.Comment)
		assert.Equal(t, models.BackendAdaptiveIterative, record.CorrectedBackend)

		rec, err := env.perf.Get(ctx, string(decision.Backend), string(models.CategoryDocumentLookup))
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, int64(1), rec.Total)
		assert.Equal(t, int64(0), rec.Successes)
	})
}

func TestRouteBatch(t *testing.T) {
	env := newTestEnv(nil)
	ctx := context.Background()

	// Prime the cache so one batch member hits it.
	_, err := env.router.Route(ctx, "Hello", router.RouteOptions{})
	require.NoError(t, err)

	queries := []string{
		"What is our vacation policy?",
		"hello",
		"",
		"Extract the names and phone numbers from this contract",
	}
	result := env.router.RouteBatch(ctx, queries, router.RouteOptions{})

	assert.Equal(t, 4, result.TotalQueries)
	require.Len(t, result.Results, 4)

	require.NotNil(t, result.Results[0].Decision)
	assert.Equal(t, models.BackendDirectRetrieval, result.Results[0].Decision.Backend)

	require.NotNil(t, result.Results[1].Decision)
	assert.True(t, result.Results[1].Decision.FromCache)

	assert.Nil(t, result.Results[2].Decision)
	assert.NotEmpty(t, result.Results[2].Error)

	require.NotNil(t, result.Results[3].Decision)
	assert.Equal(t, models.BackendMultiAgentSequential, result.Results[3].Decision.Backend)

	assert.Equal(t, 1, result.CacheHits)
	assert.GreaterOrEqual(t, result.ProcessingTimeMs, int64(0))
}

func TestAnalytics(t *testing.T) {
	env := newTestEnv(nil)
	ctx := context.Background()

	_, err := env.router.Analytics(ctx, "5m")
	assert.Error(t, err)

	first, err := env.router.Route(ctx, "What is our vacation policy?", router.RouteOptions{})
	require.NoError(t, err)
	_, err = env.router.Route(ctx, "What is our vacation policy?", router.RouteOptions{})
	require.NoError(t, err)
	_, err = env.router.Route(ctx, "What are the current California insurance regulations?", router.RouteOptions{})
	require.NoError(t, err)

	_, err = env.router.Feedback(ctx, models.Feedback{RequestID: first.RequestID, Verdict: models.VerdictPositive})
	require.NoError(t, err)

	report, err := env.router.Analytics(ctx, "1h")
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalDecisions)
	assert.Equal(t, 1, report.CacheHits)
	assert.InDelta(t, 1.0/3.0, report.CacheHitRate, 1e-9)
	assert.Equal(t, 2, report.BackendDistribution[models.BackendDirectRetrieval])
	assert.Equal(t, 1, report.BackendDistribution[models.BackendAdaptiveIterative])
	assert.Equal(t, 1, report.PositiveFeedback)
	assert.Greater(t, report.AverageConfidence, 0.0)
}

func TestAnalyticsPeriods(t *testing.T) {
	for period, window := range router.AnalyticsPeriods {
		assert.Greater(t, window, time.Duration(0), period)
	}
}
