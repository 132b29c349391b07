package collab

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/smartquery/qrouter/pkg/config"
	"github.com/smartquery/qrouter/pkg/models"
)

// ErrNotConfigured is returned by a client whose endpoint URL is empty.
var ErrNotConfigured = errors.New("collaborator not configured")

// Retriever fetches passages relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, params models.RetrievalParams) ([]models.RetrievedDocument, error)
}

// Generator produces an answer from a query and its supporting passages.
type Generator interface {
	Generate(ctx context.Context, query string, documents []models.RetrievedDocument) (string, error)
}

// ClassifierLLM submits a query plus the expected JSON schema and returns
// the raw model response for parsing.
type ClassifierLLM interface {
	ClassifyQuery(ctx context.Context, query, schema string) (string, error)
}

// Clients bundles the configured collaborator clients. Nil members mean the
// collaborator is disabled.
type Clients struct {
	Embedder      *EmbedderClient
	Retriever     *RetrieverClient
	Generator     *GeneratorClient
	ClassifierLLM *ClassifierLLMClient
}

// NewClients builds clients for every collaborator with a configured URL.
func NewClients(cfg *config.CollaboratorsConfig) *Clients {
	httpClient := newHTTPClient(cfg.RequestTimeout)
	clients := &Clients{}
	if cfg.EmbedderURL != "" {
		clients.Embedder = &EmbedderClient{http: httpClient, url: cfg.EmbedderURL, dim: cfg.EmbeddingDim}
	}
	if cfg.RetrieverURL != "" {
		clients.Retriever = &RetrieverClient{http: httpClient, url: cfg.RetrieverURL}
	}
	if cfg.GeneratorURL != "" {
		clients.Generator = &GeneratorClient{http: httpClient, url: cfg.GeneratorURL}
	}
	if cfg.ClassifierLLMURL != "" {
		clients.ClassifierLLM = &ClassifierLLMClient{http: httpClient, url: cfg.ClassifierLLMURL}
	}
	return clients
}

// EmbedderClient calls the embedding service. Implements
// classifier.Embedder.
type EmbedderClient struct {
	http *http.Client
	url  string
	dim  int
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed returns the embedding vector for the text. Vectors whose length
// differs from the configured dimension are rejected.
func (c *EmbedderClient) Embed(ctx context.Context, text string) ([]float64, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	var resp embedResponse
	if err := postJSON(ctx, c.http, c.url, embedRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	if c.dim > 0 && len(resp.Embedding) != c.dim {
		return nil, fmt.Errorf("embedder returned %d dimensions, expected %d", len(resp.Embedding), c.dim)
	}
	return resp.Embedding, nil
}

// RetrieverClient calls the retrieval service.
type RetrieverClient struct {
	http *http.Client
	url  string
}

type retrieveRequest struct {
	Query  string                 `json:"query"`
	Params models.RetrievalParams `json:"params"`
}

type retrieveResponse struct {
	Documents []models.RetrievedDocument `json:"documents"`
}

func (c *RetrieverClient) Retrieve(ctx context.Context, query string, params models.RetrievalParams) ([]models.RetrievedDocument, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	var resp retrieveResponse
	if err := postJSON(ctx, c.http, c.url, retrieveRequest{Query: query, Params: params}, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

// GeneratorClient calls the answer generation service.
type GeneratorClient struct {
	http *http.Client
	url  string
}

type generateRequest struct {
	Query     string                     `json:"query"`
	Documents []models.RetrievedDocument `json:"documents"`
}

type generateResponse struct {
	Answer string `json:"answer"`
}

func (c *GeneratorClient) Generate(ctx context.Context, query string, documents []models.RetrievedDocument) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}
	var resp generateResponse
	if err := postJSON(ctx, c.http, c.url, generateRequest{Query: query, Documents: documents}, &resp); err != nil {
		return "", err
	}
	if resp.Answer == "" {
		return "", errors.New("generator returned an empty answer")
	}
	return resp.Answer, nil
}

// ClassifierLLMClient calls the LLM-assisted classification service.
type ClassifierLLMClient struct {
	http *http.Client
	url  string
}

type classifyRequest struct {
	Query  string `json:"query"`
	Schema string `json:"schema"`
}

type classifyResponse struct {
	Response string `json:"response"`
}

func (c *ClassifierLLMClient) ClassifyQuery(ctx context.Context, query, schema string) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}
	var resp classifyResponse
	if err := postJSON(ctx, c.http, c.url, classifyRequest{Query: query, Schema: schema}, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}
