package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartquery/qrouter/pkg/models"
)

func TestDefaultRouterConfig(t *testing.T) {
	cfg := DefaultRouterConfig()

	assert.Equal(t, 168*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 0.85, cfg.SimilarityThreshold)
	assert.True(t, cfg.UseSemanticCache)
	assert.Equal(t, 0.1, cfg.Epsilon)
	assert.Equal(t, 5, cfg.MinExplorations)
	assert.Equal(t, 16, cfg.BatchMaxConcurrency)
}

func TestDefaultPipelineConfig(t *testing.T) {
	cfg := DefaultPipelineConfig()

	assert.Equal(t, 0.5, cfg.MinRetrievalQuality)
	assert.Equal(t, 0.6, cfg.MinGroundingScore)
	assert.Equal(t, 2, cfg.MaxUngroundedClaims)
	assert.True(t, cfg.EnableFallbackOnLowQuality)
	assert.Equal(t, 2, cfg.MaxRetrievalRetries)
	assert.Equal(t, 30*time.Second, cfg.StageTimeout)

	for _, stage := range models.StageOrder {
		assert.True(t, cfg.Stages.Enabled(stage), "stage %s should default to enabled", stage)
	}
}

func TestInitialize_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 168*time.Hour, cfg.Router.CacheTTL)
	assert.Equal(t, 0.5, cfg.Pipeline.MinRetrievalQuality)
	assert.NotEmpty(t, cfg.Workers.Pool(models.BackendDirectRetrieval))
}

func TestInitialize_LoadsYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "qrouter.yaml", `
router:
  cache_ttl: 24h
  similarity_threshold: 0.9
  epsilon: 0.2
pipeline:
  min_grounding_score: 0.7
  stage_timeout: 10s
  stages:
    grounding_evaluation: false
collaborators:
  retriever_url: http://retriever:8000
  request_timeout: 5s
retention:
  cleanup_interval: 30m
  decision_retention: 168h
workers:
  adaptive_iterative:
    - name: adaptive-1
    - name: adaptive-2
      low_cost: true
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.Router.CacheTTL)
	assert.Equal(t, 0.9, cfg.Router.SimilarityThreshold)
	assert.Equal(t, 0.2, cfg.Router.Epsilon)
	// Unset values keep defaults
	assert.Equal(t, 5, cfg.Router.MinExplorations)

	assert.Equal(t, 0.7, cfg.Pipeline.MinGroundingScore)
	assert.Equal(t, 10*time.Second, cfg.Pipeline.StageTimeout)
	assert.False(t, cfg.Pipeline.Stages.Enabled(models.StageGroundingEvaluation))
	assert.True(t, cfg.Pipeline.Stages.Enabled(models.StageRetrieval))

	assert.Equal(t, "http://retriever:8000", cfg.Collaborators.RetrieverURL)
	assert.Equal(t, 5*time.Second, cfg.Collaborators.RequestTimeout)

	assert.Equal(t, 30*time.Minute, cfg.Retention.CleanupInterval)
	assert.Equal(t, 168*time.Hour, cfg.Retention.DecisionRetention)

	pool := cfg.WorkersFor(models.BackendAdaptiveIterative)
	require.Len(t, pool, 2)
	assert.Equal(t, "adaptive-1", pool[0].Name)
	assert.True(t, pool[1].LowCost)
}

func TestInitialize_LocalOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "qrouter.yaml", `
router:
  epsilon: 0.2
  min_explorations: 10
`)
	writeConfig(t, dir, "qrouter.local.yaml", `
router:
  epsilon: 0.05
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 0.05, cfg.Router.Epsilon)
	// Base value survives where local file is silent
	assert.Equal(t, 10, cfg.Router.MinExplorations)
}

func TestInitialize_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "similarity threshold above 1",
			yaml: "router:\n  similarity_threshold: 1.5\n",
		},
		{
			name: "negative epsilon",
			yaml: "router:\n  epsilon: -0.1\n",
		},
		{
			name: "zero min explorations",
			yaml: "router:\n  min_explorations: 0\n",
		},
		{
			name: "bad cache ttl",
			yaml: "router:\n  cache_ttl: nonsense\n",
		},
		{
			name: "grounding score above 1",
			yaml: "pipeline:\n  min_grounding_score: 2\n",
		},
		{
			name: "duplicate worker names",
			yaml: "workers:\n  direct_retrieval:\n    - name: w\n    - name: w\n",
		},
		{
			name: "bad retention interval",
			yaml: "retention:\n  cleanup_interval: sometimes\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, "qrouter.yaml", tt.yaml)

			_, err := Initialize(context.Background(), dir)
			assert.Error(t, err)
		})
	}
}

func TestWorkerRegistry(t *testing.T) {
	reg := NewWorkerRegistry(map[models.Backend][]WorkerConfig{
		models.BackendDirectRetrieval: {{Name: "d1"}, {Name: "d2"}},
	})

	assert.Equal(t, 2, reg.Len())
	assert.Len(t, reg.Pool(models.BackendDirectRetrieval), 2)
	assert.Nil(t, reg.Pool(models.BackendAdaptiveIterative))
}

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
