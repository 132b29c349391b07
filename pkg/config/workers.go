package config

import (
	"sort"

	"github.com/smartquery/qrouter/pkg/models"
)

// WorkerConfig describes one interchangeable worker behind a backend.
type WorkerConfig struct {
	// Name is the worker identifier used as the performance-record key.
	Name string `yaml:"name"`

	// LowCost marks the worker eligible for the cost-preference bonus.
	LowCost bool `yaml:"low_cost"`
}

// WorkerRegistry maps each backend to its configured worker pool.
// Immutable after construction.
type WorkerRegistry struct {
	pools map[models.Backend][]WorkerConfig
}

// NewWorkerRegistry builds a registry from the per-backend pools.
func NewWorkerRegistry(pools map[models.Backend][]WorkerConfig) *WorkerRegistry {
	if pools == nil {
		pools = make(map[models.Backend][]WorkerConfig)
	}
	return &WorkerRegistry{pools: pools}
}

// Pool returns the workers configured for the backend. A nil or empty
// result means the backend has a single implicit worker named after it.
func (r *WorkerRegistry) Pool(backend models.Backend) []WorkerConfig {
	return r.pools[backend]
}

// Len returns the total number of configured workers across all backends.
func (r *WorkerRegistry) Len() int {
	n := 0
	for _, pool := range r.pools {
		n += len(pool)
	}
	return n
}

// Backends returns the configured backends in sorted order.
func (r *WorkerRegistry) Backends() []models.Backend {
	out := make([]models.Backend, 0, len(r.pools))
	for b := range r.pools {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultWorkerRegistry returns single-worker pools named after each backend.
func DefaultWorkerRegistry() *WorkerRegistry {
	return NewWorkerRegistry(map[models.Backend][]WorkerConfig{
		models.BackendAdaptiveIterative:    {{Name: "adaptive-1", LowCost: false}},
		models.BackendMultiAgentSequential: {{Name: "sequential-1", LowCost: false}},
		models.BackendDirectRetrieval:      {{Name: "direct-1", LowCost: true}},
	})
}
