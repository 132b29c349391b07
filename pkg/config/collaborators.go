package config

import "time"

// CollaboratorsConfig holds endpoints and timeouts for the external
// services the core depends on. Empty URLs disable the corresponding
// collaborator (the router degrades per the stage's fatality contract).
type CollaboratorsConfig struct {
	// EmbedderURL is the embedding service endpoint. Empty disables the
	// similarity cache tier regardless of use_semantic_cache.
	EmbedderURL string `yaml:"embedder_url"`

	// RetrieverURL is the retrieval service endpoint.
	RetrieverURL string `yaml:"retriever_url"`

	// GeneratorURL is the answer generation service endpoint.
	GeneratorURL string `yaml:"generator_url"`

	// ClassifierLLMURL is the LLM-assisted classifier endpoint. Empty
	// disables LLM classification; the rule-based path always remains.
	ClassifierLLMURL string `yaml:"classifier_llm_url"`

	// RequestTimeout is the deadline applied to each collaborator call.
	RequestTimeout time.Duration `yaml:"-"`

	// EmbeddingDim is the expected embedding vector length. Vectors of a
	// different length are rejected as embedder errors.
	EmbeddingDim int `yaml:"embedding_dim"`
}

// configured counts non-empty collaborator endpoints.
func (c *CollaboratorsConfig) configured() int {
	n := 0
	for _, url := range []string{c.EmbedderURL, c.RetrieverURL, c.GeneratorURL, c.ClassifierLLMURL} {
		if url != "" {
			n++
		}
	}
	return n
}

// DefaultCollaboratorsConfig returns the built-in collaborator defaults.
func DefaultCollaboratorsConfig() *CollaboratorsConfig {
	return &CollaboratorsConfig{
		RequestTimeout: 30 * time.Second,
		EmbeddingDim:   768,
	}
}
