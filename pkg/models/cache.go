package models

import "time"

// CacheEntry is one stored routing result, addressable by exact hash and
// (when an embedding is present) by cosine similarity.
//
// Invariants: ExpiresAt > CreatedAt; HitCount is monotonically
// non-decreasing; an entry with Active == false is never returned by lookups.
type CacheEntry struct {
	ID             string
	ExactHash      string
	Embedding      []float64
	Backend        Backend
	Confidence     float64
	Category       Category
	Complexity     Complexity
	Features       []string
	Reasoning      string
	SuggestedTools []string
	HitCount       int64
	Active         bool
	CreatedAt      time.Time
	ExpiresAt      time.Time
	LastHitAt      time.Time
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// Classification rebuilds the cached classification carried by the entry.
func (e *CacheEntry) Classification() *Classification {
	return &Classification{
		Category:   e.Category,
		Features:   FeatureSetFromStrings(e.Features),
		Complexity: e.Complexity,
		Confidence: e.Confidence,
	}
}

// CacheStats is the aggregate view returned by the admin API.
type CacheStats struct {
	TotalEntries        int64   `json:"total_entries"`
	TotalHits           int64   `json:"total_hits"`
	AverageHitsPerEntry float64 `json:"average_hits_per_entry"`
}
