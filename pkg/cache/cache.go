// Package cache implements the two-tier routing cache: exact-hash lookups
// backed by a store, with an optional embedding-similarity tier on top.
// Store failures are absorbed; the router treats them as misses.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/smartquery/qrouter/pkg/config"
	"github.com/smartquery/qrouter/pkg/models"
)

// Store is the persistence backend for cache entries.
type Store interface {
	// GetByHash returns the active, unexpired entry for the hash, or nil.
	GetByHash(ctx context.Context, exactHash string, now time.Time) (*models.CacheEntry, error)

	// ListEmbedded returns all active, unexpired entries carrying an
	// embedding, for similarity scans.
	ListEmbedded(ctx context.Context, now time.Time) ([]*models.CacheEntry, error)

	// RecordHit atomically increments hit_count and stamps last_hit_at.
	RecordHit(ctx context.Context, id string, at time.Time) error

	// Upsert inserts the entry, or replaces the existing entry with the
	// same exact hash. Hit counts never carry over on replacement.
	Upsert(ctx context.Context, entry *models.CacheEntry) error

	// Prune deletes expired entries, or every entry when expiredOnly is
	// false. Returns the number of rows removed.
	Prune(ctx context.Context, expiredOnly bool, now time.Time) (int64, error)

	// Stats aggregates entry and hit counts.
	Stats(ctx context.Context) (*models.CacheStats, error)
}

// Tier identifies which cache tier produced a hit.
type Tier string

const (
	TierExact      Tier = "exact"
	TierSimilarity Tier = "similarity"
)

// Hit is a successful lookup with its provenance.
type Hit struct {
	Entry      *models.CacheEntry
	Tier       Tier
	Similarity float64
}

// RoutingCache wraps the store with the two-tier lookup policy.
type RoutingCache struct {
	store     Store
	ttl       time.Duration
	threshold float64
	semantic  bool
	now       func() time.Time
}

// NewRoutingCache creates the cache layer over the given store.
func NewRoutingCache(store Store, cfg *config.RouterConfig) *RoutingCache {
	return &RoutingCache{
		store:     store,
		ttl:       cfg.CacheTTL,
		threshold: cfg.SimilarityThreshold,
		semantic:  cfg.UseSemanticCache,
		now:       time.Now,
	}
}

// Lookup tries the exact tier, then the similarity tier when the fingerprint
// carries an embedding. A hit increments the matched entry's hit count.
// Returns nil on miss; store failures are logged and treated as misses.
func (c *RoutingCache) Lookup(ctx context.Context, fp models.Fingerprint) *Hit {
	now := c.now()

	entry, err := c.store.GetByHash(ctx, fp.ExactHash, now)
	if err != nil {
		slog.Warn("Cache store unavailable on exact lookup, treating as miss", "error", err)
		return nil
	}
	if entry != nil {
		c.recordHit(ctx, entry, now)
		return &Hit{Entry: entry, Tier: TierExact, Similarity: 1}
	}

	if !c.semantic || len(fp.Embedding) == 0 {
		return nil
	}
	return c.similarityLookup(ctx, fp.Embedding, now)
}

// similarityLookup scans embedded entries and returns the most similar one
// at or above the threshold.
func (c *RoutingCache) similarityLookup(ctx context.Context, embedding []float64, now time.Time) *Hit {
	entries, err := c.store.ListEmbedded(ctx, now)
	if err != nil {
		slog.Warn("Cache store unavailable on similarity scan, treating as miss", "error", err)
		return nil
	}

	var best *models.CacheEntry
	bestSim := c.threshold
	for _, entry := range entries {
		sim := CosineSimilarity(embedding, entry.Embedding)
		if sim > bestSim || (best == nil && sim == bestSim) {
			best, bestSim = entry, sim
		}
	}
	if best == nil {
		return nil
	}

	c.recordHit(ctx, best, now)
	return &Hit{Entry: best, Tier: TierSimilarity, Similarity: bestSim}
}

func (c *RoutingCache) recordHit(ctx context.Context, entry *models.CacheEntry, now time.Time) {
	if err := c.store.RecordHit(ctx, entry.ID, now); err != nil {
		slog.Warn("Failed to record cache hit", "entry_id", entry.ID, "error", err)
		return
	}
	entry.HitCount++
	entry.LastHitAt = now
}

// Put stores a freshly classified decision. Failure is logged and swallowed;
// the caller's decision stands either way.
func (c *RoutingCache) Put(ctx context.Context, fp models.Fingerprint, decision *models.RoutingDecision) *models.CacheEntry {
	now := c.now()
	entry := &models.CacheEntry{
		ID:             uuid.NewString(),
		ExactHash:      fp.ExactHash,
		Embedding:      fp.Embedding,
		Backend:        decision.Backend,
		Confidence:     decision.Confidence,
		Reasoning:      decision.Reasoning,
		SuggestedTools: decision.SuggestedTools,
		Active:         true,
		CreatedAt:      now,
		ExpiresAt:      now.Add(c.ttl),
	}
	if decision.Classification != nil {
		entry.Category = decision.Classification.Category
		entry.Complexity = decision.Classification.Complexity
		entry.Features = decision.Classification.Features.Strings()
	}

	if err := c.store.Upsert(ctx, entry); err != nil {
		slog.Warn("Failed to store cache entry", "exact_hash", fp.ExactHash, "error", err)
		return nil
	}
	return entry
}

// Prune removes expired entries, or all entries when expiredOnly is false.
func (c *RoutingCache) Prune(ctx context.Context, expiredOnly bool) (int64, error) {
	return c.store.Prune(ctx, expiredOnly, c.now())
}

// Stats returns aggregate cache statistics.
func (c *RoutingCache) Stats(ctx context.Context) (*models.CacheStats, error) {
	return c.store.Stats(ctx)
}
