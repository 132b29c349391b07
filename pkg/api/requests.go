package api

import "github.com/smartquery/qrouter/pkg/models"

// RouteRequest is the body of POST /api/v1/route. Query validation happens
// in the router so the error message is uniform across transports.
type RouteRequest struct {
	Query            string         `json:"query"`
	UserID           string         `json:"user_id"`
	SessionID        string         `json:"session_id"`
	ForceBackend     models.Backend `json:"force_backend"`
	IncludeReasoning bool           `json:"include_reasoning"`
	UseLLM           bool           `json:"use_llm"`
}

// BatchRouteRequest is the body of POST /api/v1/route/batch. The option
// fields are shared by every query in the batch.
type BatchRouteRequest struct {
	Queries          []string       `json:"queries"`
	UserID           string         `json:"user_id"`
	SessionID        string         `json:"session_id"`
	ForceBackend     models.Backend `json:"force_backend"`
	IncludeReasoning bool           `json:"include_reasoning"`
	UseLLM           bool           `json:"use_llm"`
}

// ClassifyRequest is the body of POST /api/v1/classify.
type ClassifyRequest struct {
	Query string `json:"query"`
}

// AnswerRequest is the body of POST /api/v1/answer.
type AnswerRequest struct {
	Query string `json:"query"`
}
