package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartquery/qrouter/pkg/config"
	"github.com/smartquery/qrouter/pkg/models"
)

type memStore struct {
	entries map[string]*models.CacheEntry // keyed by exact hash
	failAll bool
	hits    int
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]*models.CacheEntry)}
}

func (m *memStore) GetByHash(_ context.Context, exactHash string, now time.Time) (*models.CacheEntry, error) {
	if m.failAll {
		return nil, errors.New("store down")
	}
	e, ok := m.entries[exactHash]
	if !ok || !e.Active || e.Expired(now) {
		return nil, nil
	}
	return e, nil
}

func (m *memStore) ListEmbedded(_ context.Context, now time.Time) ([]*models.CacheEntry, error) {
	if m.failAll {
		return nil, errors.New("store down")
	}
	var out []*models.CacheEntry
	for _, e := range m.entries {
		if e.Active && !e.Expired(now) && len(e.Embedding) > 0 {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) RecordHit(_ context.Context, id string, at time.Time) error {
	if m.failAll {
		return errors.New("store down")
	}
	m.hits++
	return nil
}

func (m *memStore) Upsert(_ context.Context, entry *models.CacheEntry) error {
	if m.failAll {
		return errors.New("store down")
	}
	m.entries[entry.ExactHash] = entry
	return nil
}

func (m *memStore) Prune(_ context.Context, expiredOnly bool, now time.Time) (int64, error) {
	var removed int64
	for hash, e := range m.entries {
		if !expiredOnly || e.Expired(now) {
			delete(m.entries, hash)
			removed++
		}
	}
	return removed, nil
}

func (m *memStore) Stats(_ context.Context) (*models.CacheStats, error) {
	return &models.CacheStats{TotalEntries: int64(len(m.entries))}, nil
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
}

func newTestCache(store Store) *RoutingCache {
	c := NewRoutingCache(store, config.DefaultRouterConfig())
	c.now = fixedNow
	return c
}

func entry(hash string, embedding []float64, expiresAt time.Time) *models.CacheEntry {
	return &models.CacheEntry{
		ID:        "id-" + hash,
		ExactHash: hash,
		Embedding: embedding,
		Backend:   models.BackendDirectRetrieval,
		Active:    true,
		CreatedAt: fixedNow().Add(-time.Hour),
		ExpiresAt: expiresAt,
	}
}

func TestLookup_ExactHit(t *testing.T) {
	store := newMemStore()
	store.entries["h1"] = entry("h1", nil, fixedNow().Add(time.Hour))
	c := newTestCache(store)

	hit := c.Lookup(context.Background(), models.Fingerprint{ExactHash: "h1"})
	require.NotNil(t, hit)
	assert.Equal(t, TierExact, hit.Tier)
	assert.Equal(t, 1.0, hit.Similarity)
	assert.Equal(t, int64(1), hit.Entry.HitCount)
	assert.Equal(t, 1, store.hits)
}

func TestLookup_ExpiredEntryMisses(t *testing.T) {
	store := newMemStore()
	store.entries["h1"] = entry("h1", nil, fixedNow().Add(-time.Minute))
	c := newTestCache(store)

	assert.Nil(t, c.Lookup(context.Background(), models.Fingerprint{ExactHash: "h1"}))
}

func TestLookup_SimilarityHit(t *testing.T) {
	store := newMemStore()
	store.entries["close"] = entry("close", []float64{1, 0.1, 0}, fixedNow().Add(time.Hour))
	store.entries["far"] = entry("far", []float64{0, 1, 0}, fixedNow().Add(time.Hour))
	c := newTestCache(store)

	hit := c.Lookup(context.Background(), models.Fingerprint{
		ExactHash: "miss",
		Embedding: []float64{1, 0, 0},
	})
	require.NotNil(t, hit)
	assert.Equal(t, TierSimilarity, hit.Tier)
	assert.Equal(t, "id-close", hit.Entry.ID)
	assert.Greater(t, hit.Similarity, 0.85)
}

func TestLookup_SimilarityBelowThresholdMisses(t *testing.T) {
	store := newMemStore()
	store.entries["far"] = entry("far", []float64{0, 1, 0}, fixedNow().Add(time.Hour))
	c := newTestCache(store)

	hit := c.Lookup(context.Background(), models.Fingerprint{
		ExactHash: "miss",
		Embedding: []float64{1, 0, 0},
	})
	assert.Nil(t, hit)
}

func TestLookup_ExactThresholdCountsAsHit(t *testing.T) {
	store := newMemStore()
	store.entries["e"] = entry("e", []float64{1, 0}, fixedNow().Add(time.Hour))
	c := newTestCache(store)
	c.threshold = 1.0

	hit := c.Lookup(context.Background(), models.Fingerprint{
		ExactHash: "miss",
		Embedding: []float64{2, 0},
	})
	require.NotNil(t, hit)
	assert.Equal(t, 1.0, hit.Similarity)
}

func TestLookup_NoEmbeddingSkipsSimilarityTier(t *testing.T) {
	store := newMemStore()
	store.entries["e"] = entry("e", []float64{1, 0}, fixedNow().Add(time.Hour))
	c := newTestCache(store)

	assert.Nil(t, c.Lookup(context.Background(), models.Fingerprint{ExactHash: "miss"}))
}

func TestLookup_SemanticDisabledSkipsSimilarityTier(t *testing.T) {
	store := newMemStore()
	store.entries["e"] = entry("e", []float64{1, 0}, fixedNow().Add(time.Hour))
	cfg := config.DefaultRouterConfig()
	cfg.UseSemanticCache = false
	c := NewRoutingCache(store, cfg)
	c.now = fixedNow

	assert.Nil(t, c.Lookup(context.Background(), models.Fingerprint{
		ExactHash: "miss",
		Embedding: []float64{1, 0},
	}))
}

func TestLookup_StoreFailureIsAMiss(t *testing.T) {
	store := newMemStore()
	store.failAll = true
	c := newTestCache(store)

	assert.Nil(t, c.Lookup(context.Background(), models.Fingerprint{ExactHash: "h1"}))
}

func TestPut_StoresEntryWithTTL(t *testing.T) {
	store := newMemStore()
	c := newTestCache(store)

	decision := &models.RoutingDecision{
		Backend:    models.BackendAdaptiveIterative,
		Confidence: 0.9,
		Reasoning:  "research query",
		Classification: &models.Classification{
			Category:   models.CategoryResearch,
			Complexity: models.ComplexitySimple,
			Features:   models.FeatureSet{models.FeatureExternalDataNeeded: true},
		},
	}
	stored := c.Put(context.Background(), models.Fingerprint{ExactHash: "h1"}, decision)

	require.NotNil(t, stored)
	assert.NotEmpty(t, stored.ID)
	assert.True(t, stored.Active)
	assert.Equal(t, int64(0), stored.HitCount)
	assert.Equal(t, fixedNow().Add(168*time.Hour), stored.ExpiresAt)
	assert.Equal(t, models.CategoryResearch, stored.Category)
	assert.Equal(t, []string{"external_data_needed"}, stored.Features)
}

func TestPut_DuplicateHashReplaces(t *testing.T) {
	store := newMemStore()
	c := newTestCache(store)
	fp := models.Fingerprint{ExactHash: "h1"}

	first := c.Put(context.Background(), fp, &models.RoutingDecision{Backend: models.BackendDirectRetrieval})
	first.HitCount = 3
	second := c.Put(context.Background(), fp, &models.RoutingDecision{Backend: models.BackendAdaptiveIterative})

	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, int64(0), store.entries["h1"].HitCount)
	assert.Equal(t, models.BackendAdaptiveIterative, store.entries["h1"].Backend)
}

func TestPut_StoreFailureIsSwallowed(t *testing.T) {
	store := newMemStore()
	store.failAll = true
	c := newTestCache(store)

	assert.Nil(t, c.Put(context.Background(), models.Fingerprint{ExactHash: "h1"}, &models.RoutingDecision{}))
}

func TestPrune(t *testing.T) {
	store := newMemStore()
	store.entries["old"] = entry("old", nil, fixedNow().Add(-time.Hour))
	store.entries["new"] = entry("new", nil, fixedNow().Add(time.Hour))
	c := newTestCache(store)

	removed, err := c.Prune(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	removed, err = c.Prune(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Empty(t, store.entries)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"scaled", []float64{1, 0}, []float64{5, 0}, 1},
		{"length mismatch", []float64{1, 0}, []float64{1}, 0},
		{"empty", nil, nil, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}
