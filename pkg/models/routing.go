// Package models defines the shared domain types passed between the
// classifier, cache, selector, pipeline, and stores.
package models

import (
	"encoding/json"
	"time"
)

// Fingerprint is the deterministic identifier derived from a query for cache
// lookup. ExactHash is stable across case and internal-whitespace variations
// of the same query. Embedding is present only when the caller requested
// similarity-tier lookup and the embedder was reachable.
type Fingerprint struct {
	NormalizedText string
	ExactHash      string
	Embedding      []float64
}

// FeatureSet is a duplicate-free, order-insensitive set of detected features.
type FeatureSet map[Feature]bool

// Has reports whether the feature is present.
func (s FeatureSet) Has(f Feature) bool { return s[f] }

// List returns the features in stable vocabulary order.
func (s FeatureSet) List() []Feature {
	order := []Feature{
		FeatureMultiDocument,
		FeatureExternalDataNeeded,
		FeatureComplexReasoning,
		FeatureEntityExtraction,
		FeatureConversational,
		FeatureSimpleLookup,
	}
	out := make([]Feature, 0, len(s))
	for _, f := range order {
		if s[f] {
			out = append(out, f)
		}
	}
	return out
}

// Strings returns the features in stable order as plain strings.
func (s FeatureSet) Strings() []string {
	list := s.List()
	out := make([]string, len(list))
	for i, f := range list {
		out[i] = string(f)
	}
	return out
}

// MarshalJSON renders the set as its stable-ordered string list.
func (s FeatureSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON rebuilds the set from a string list, dropping unknowns.
func (s *FeatureSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = FeatureSetFromStrings(raw)
	return nil
}

// FeatureSetFromStrings rebuilds a FeatureSet from stored string form.
// Unknown strings are dropped.
func FeatureSetFromStrings(raw []string) FeatureSet {
	s := make(FeatureSet, len(raw))
	for _, r := range raw {
		f := Feature(r)
		switch f {
		case FeatureMultiDocument, FeatureExternalDataNeeded, FeatureComplexReasoning,
			FeatureEntityExtraction, FeatureConversational, FeatureSimpleLookup:
			s[f] = true
		}
	}
	return s
}

// Classification is the full output of the rule-based (or LLM-assisted)
// classifier for one query.
type Classification struct {
	Category   Category   `json:"category"`
	Features   FeatureSet `json:"features"`
	Complexity Complexity `json:"complexity"`
	Confidence float64    `json:"confidence"`
}

// RoutingDecision is the result returned to the caller for a single query.
type RoutingDecision struct {
	RequestID      string          `json:"request_id"`
	Query          string          `json:"query"`
	Backend        Backend         `json:"backend"`
	Confidence     float64         `json:"confidence"`
	Reasoning      string          `json:"reasoning,omitempty"`
	Classification *Classification `json:"classification,omitempty"`
	SuggestedTools []string        `json:"suggested_tools,omitempty"`
	RoutingTimeMs  int64           `json:"routing_time_ms"`
	FromCache      bool            `json:"from_cache"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Feedback is an explicit user judgment on a prior routing decision,
// addressed by request ID.
type Feedback struct {
	RequestID        string  `json:"request_id"`
	Verdict          Verdict `json:"verdict"`
	Comment          string  `json:"comment,omitempty"`
	CorrectedBackend Backend `json:"corrected_backend,omitempty"`
}

// DecisionRecord is one append-only decision-log row. It mirrors
// RoutingDecision plus the linking cache entry ID and the mutable
// feedback fields amended after the fact.
type DecisionRecord struct {
	RequestID        string
	Query            string
	Backend          Backend
	Confidence       float64
	Reasoning        string
	Category         Category
	Complexity       Complexity
	Features         []string
	SuggestedTools   []string
	FromCache        bool
	CacheEntryID     string
	RoutingTimeMs    int64
	Verdict          Verdict
	Comment          string
	CorrectedBackend Backend
	CreatedAt        time.Time
}
