package router

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/smartquery/qrouter/pkg/models"
)

// BatchItem is one query's outcome within a batch. Error is set when the
// query failed; the rest of the batch is unaffected.
type BatchItem struct {
	Decision *models.RoutingDecision `json:"decision,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// BatchResult aggregates a RouteBatch call.
type BatchResult struct {
	Results          []BatchItem `json:"results"`
	TotalQueries     int         `json:"total_queries"`
	CacheHits        int         `json:"cache_hits"`
	ProcessingTimeMs int64       `json:"processing_time_ms"`
}

// RouteBatch routes all queries concurrently under the configured
// concurrency bound. Output order matches input order; a failed query
// carries its error in place without failing the batch.
func (r *Router) RouteBatch(ctx context.Context, queries []string, opts RouteOptions) *BatchResult {
	start := r.now()
	result := &BatchResult{
		Results:      make([]BatchItem, len(queries)),
		TotalQueries: len(queries),
	}

	limit := int64(r.cfg.BatchMaxConcurrency)
	if limit < 1 {
		limit = 1
	}
	sem := semaphore.NewWeighted(limit)

	var wg sync.WaitGroup
	for i, query := range queries {
		if err := sem.Acquire(ctx, 1); err != nil {
			result.Results[i] = BatchItem{Error: "cancelled"}
			continue
		}
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			defer sem.Release(1)
			decision, err := r.Route(ctx, query, opts)
			if err != nil {
				result.Results[i] = BatchItem{Error: err.Error()}
				return
			}
			result.Results[i] = BatchItem{Decision: decision}
		}(i, query)
	}
	wg.Wait()

	for _, item := range result.Results {
		if item.Decision != nil && item.Decision.FromCache {
			result.CacheHits++
		}
	}
	result.ProcessingTimeMs = r.now().Sub(start).Milliseconds()
	return result
}
