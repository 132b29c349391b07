package config

import "time"

// RouterConfig contains routing cache, bandit, and batch dispatch settings.
type RouterConfig struct {
	// CacheTTL is how long a cache entry stays valid after insertion.
	CacheTTL time.Duration `yaml:"-"`

	// SimilarityThreshold is the minimum cosine similarity for a
	// similarity-tier cache hit. Inclusive: exactly-threshold counts.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// UseSemanticCache enables the embedding similarity tier. When false,
	// only exact-hash lookups are performed and no embeddings are computed.
	UseSemanticCache bool `yaml:"use_semantic_cache"`

	// Epsilon is the bandit exploration rate for worker selection.
	Epsilon float64 `yaml:"epsilon"`

	// MinExplorations is the sample count below which a worker is
	// considered under-explored and eligible for forced exploration.
	MinExplorations int `yaml:"min_explorations"`

	// BatchMaxConcurrency bounds concurrent routing calls in a batch.
	BatchMaxConcurrency int `yaml:"batch_max_concurrency"`
}

// DefaultRouterConfig returns the built-in router defaults.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		CacheTTL:            168 * time.Hour,
		SimilarityThreshold: 0.85,
		UseSemanticCache:    true,
		Epsilon:             0.1,
		MinExplorations:     5,
		BatchMaxConcurrency: 16,
	}
}
