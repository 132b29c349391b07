package config

import "fmt"

// Validator performs range and consistency checks on a loaded Config.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given config.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll runs every validation pass and returns the first failure.
func (v *Validator) ValidateAll() error {
	if err := v.validateRouter(); err != nil {
		return err
	}
	if err := v.validatePipeline(); err != nil {
		return err
	}
	if err := v.validateCollaborators(); err != nil {
		return err
	}
	if err := v.validateRetention(); err != nil {
		return err
	}
	return v.validateWorkers()
}

func (v *Validator) validateRouter() error {
	r := v.cfg.Router
	if r == nil {
		return NewValidationError("router", "router configuration is nil")
	}
	if r.CacheTTL <= 0 {
		return NewValidationError("router.cache_ttl", "must be positive")
	}
	if r.SimilarityThreshold < 0 || r.SimilarityThreshold > 1 {
		return NewValidationError("router.similarity_threshold", "must be in [0, 1]")
	}
	if r.Epsilon < 0 || r.Epsilon > 1 {
		return NewValidationError("router.epsilon", "must be in [0, 1]")
	}
	if r.MinExplorations < 1 {
		return NewValidationError("router.min_explorations", "must be at least 1")
	}
	if r.BatchMaxConcurrency < 1 {
		return NewValidationError("router.batch_max_concurrency", "must be at least 1")
	}
	return nil
}

func (v *Validator) validatePipeline() error {
	p := v.cfg.Pipeline
	if p == nil {
		return NewValidationError("pipeline", "pipeline configuration is nil")
	}
	if p.MinRetrievalQuality < 0 || p.MinRetrievalQuality > 1 {
		return NewValidationError("pipeline.min_retrieval_quality", "must be in [0, 1]")
	}
	if p.MinGroundingScore < 0 || p.MinGroundingScore > 1 {
		return NewValidationError("pipeline.min_grounding_score", "must be in [0, 1]")
	}
	if p.MaxUngroundedClaims < 0 {
		return NewValidationError("pipeline.max_ungrounded_claims", "must be non-negative")
	}
	if p.MaxRetrievalRetries < 0 {
		return NewValidationError("pipeline.max_retrieval_retries", "must be non-negative")
	}
	if p.StageTimeout <= 0 {
		return NewValidationError("pipeline.stage_timeout", "must be positive")
	}
	return nil
}

func (v *Validator) validateCollaborators() error {
	c := v.cfg.Collaborators
	if c == nil {
		return NewValidationError("collaborators", "collaborators configuration is nil")
	}
	if c.RequestTimeout <= 0 {
		return NewValidationError("collaborators.request_timeout", "must be positive")
	}
	if c.EmbeddingDim < 1 {
		return NewValidationError("collaborators.embedding_dim", "must be at least 1")
	}
	return nil
}

func (v *Validator) validateRetention() error {
	r := v.cfg.Retention
	if r == nil {
		return NewValidationError("retention", "retention configuration is nil")
	}
	if r.CleanupInterval <= 0 {
		return NewValidationError("retention.cleanup_interval", "must be positive")
	}
	if r.DecisionRetention <= 0 {
		return NewValidationError("retention.decision_retention", "must be positive")
	}
	return nil
}

func (v *Validator) validateWorkers() error {
	w := v.cfg.Workers
	if w == nil {
		return NewValidationError("workers", "worker registry is nil")
	}
	for _, backend := range w.Backends() {
		seen := make(map[string]bool)
		for _, worker := range w.Pool(backend) {
			if worker.Name == "" {
				return NewValidationError(
					fmt.Sprintf("workers.%s", backend), "worker name must not be empty")
			}
			if seen[worker.Name] {
				return NewValidationError(
					fmt.Sprintf("workers.%s", backend),
					fmt.Sprintf("duplicate worker name '%s'", worker.Name))
			}
			seen[worker.Name] = true
		}
	}
	return nil
}
