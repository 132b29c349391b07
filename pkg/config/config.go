// Package config loads and validates qrouter configuration from YAML,
// merging user-provided values over built-in defaults.
package config

import (
	"github.com/smartquery/qrouter/pkg/models"
)

// Config is the umbrella configuration object returned by Initialize()
// and passed to the router, pipeline, and API server.
type Config struct {
	configDir string

	// Router holds cache, bandit, and batch dispatch settings.
	Router *RouterConfig

	// Pipeline holds quality gates, retry policy, and per-stage flags.
	Pipeline *PipelineConfig

	// Collaborators holds endpoints and timeouts for external services.
	Collaborators *CollaboratorsConfig

	// Retention holds the background cleanup loop settings.
	Retention *RetentionConfig

	// Workers is the registry of interchangeable worker pools per backend.
	Workers *WorkerRegistry
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// WorkersFor returns the worker pool configured for the given backend.
// This is a convenience method that wraps WorkerRegistry.Pool().
func (c *Config) WorkersFor(backend models.Backend) []WorkerConfig {
	return c.Workers.Pool(backend)
}

// Stats contains statistics about loaded configuration for startup logging.
type Stats struct {
	Workers       int
	Collaborators int
	StagesEnabled int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() Stats {
	s := Stats{}
	if c.Workers != nil {
		s.Workers = c.Workers.Len()
	}
	if c.Collaborators != nil {
		s.Collaborators = c.Collaborators.configured()
	}
	if c.Pipeline != nil {
		for _, stage := range models.StageOrder {
			if c.Pipeline.Stages.Enabled(stage) {
				s.StagesEnabled++
			}
		}
	}
	return s
}
