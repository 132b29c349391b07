// Package services provides the store implementations behind the router:
// postgres-backed stores for production and mutex-guarded in-memory stores
// for tests and cacheless deployments.
package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/smartquery/qrouter/pkg/models"
	"github.com/smartquery/qrouter/pkg/router"
)

// MemoryCacheStore is an in-memory cache.Store keyed by exact hash.
type MemoryCacheStore struct {
	mu      sync.Mutex
	entries map[string]*models.CacheEntry
}

// NewMemoryCacheStore creates an empty in-memory cache store.
func NewMemoryCacheStore() *MemoryCacheStore {
	return &MemoryCacheStore{entries: make(map[string]*models.CacheEntry)}
}

func (s *MemoryCacheStore) GetByHash(_ context.Context, exactHash string, now time.Time) (*models.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[exactHash]
	if !ok || !entry.Active || entry.Expired(now) {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

func (s *MemoryCacheStore) ListEmbedded(_ context.Context, now time.Time) ([]*models.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.CacheEntry
	for _, entry := range s.entries {
		if entry.Active && !entry.Expired(now) && len(entry.Embedding) > 0 {
			copied := *entry
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *MemoryCacheStore) RecordHit(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.entries {
		if entry.ID == id {
			entry.HitCount++
			entry.LastHitAt = at
			return nil
		}
	}
	return nil
}

func (s *MemoryCacheStore) Upsert(_ context.Context, entry *models.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *entry
	s.entries[entry.ExactHash] = &copied
	return nil
}

func (s *MemoryCacheStore) Prune(_ context.Context, expiredOnly bool, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for hash, entry := range s.entries {
		if !expiredOnly || entry.Expired(now) {
			delete(s.entries, hash)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryCacheStore) Stats(_ context.Context) (*models.CacheStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &models.CacheStats{TotalEntries: int64(len(s.entries))}
	for _, entry := range s.entries {
		stats.TotalHits += entry.HitCount
	}
	if stats.TotalEntries > 0 {
		stats.AverageHitsPerEntry = float64(stats.TotalHits) / float64(stats.TotalEntries)
	}
	return stats, nil
}

// MemoryDecisionStore is an in-memory append-only decision log.
type MemoryDecisionStore struct {
	mu      sync.Mutex
	records map[string]*models.DecisionRecord
}

// NewMemoryDecisionStore creates an empty in-memory decision log.
func NewMemoryDecisionStore() *MemoryDecisionStore {
	return &MemoryDecisionStore{records: make(map[string]*models.DecisionRecord)}
}

func (s *MemoryDecisionStore) Append(_ context.Context, record *models.DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *record
	s.records[record.RequestID] = &copied
	return nil
}

func (s *MemoryDecisionStore) Amend(_ context.Context, requestID string, patch router.DecisionPatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[requestID]
	if !ok {
		return false, nil
	}
	record.Verdict = patch.Verdict
	record.Comment = patch.Comment
	record.CorrectedBackend = patch.CorrectedBackend
	return true, nil
}

func (s *MemoryDecisionStore) Get(_ context.Context, requestID string) (*models.DecisionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[requestID]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (s *MemoryDecisionStore) QueryRange(_ context.Context, from, to time.Time) ([]*models.DecisionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.DecisionRecord
	for _, record := range s.records {
		if !record.CreatedAt.Before(from) && record.CreatedAt.Before(to) {
			copied := *record
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryDecisionStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, record := range s.records {
		if record.CreatedAt.Before(cutoff) {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}

// MemoryPerfStore is an in-memory performance-record store keyed by
// (agent, task type).
type MemoryPerfStore struct {
	mu      sync.Mutex
	records map[string]*models.PerformanceRecord
}

// NewMemoryPerfStore creates an empty in-memory performance store.
func NewMemoryPerfStore() *MemoryPerfStore {
	return &MemoryPerfStore{records: make(map[string]*models.PerformanceRecord)}
}

func perfKey(agent, taskType string) string {
	return agent + "\x00" + taskType
}

func (s *MemoryPerfStore) Get(_ context.Context, agent, taskType string) (*models.PerformanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[perfKey(agent, taskType)]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (s *MemoryPerfStore) Record(_ context.Context, agent, taskType string, outcome models.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := perfKey(agent, taskType)
	record, ok := s.records[key]
	if !ok {
		record = &models.PerformanceRecord{Agent: agent, TaskType: taskType}
		s.records[key] = record
	}
	record.Observe(outcome.Success, outcome.LatencyMs, outcome.Quality, outcome.At)
	return nil
}

// Observe adapts the store to the pipeline's metrics sink.
func (s *MemoryPerfStore) Observe(ctx context.Context, agent, taskType string, outcome models.Outcome) error {
	return s.Record(ctx, agent, taskType, outcome)
}
