package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartquery/qrouter/pkg/models"
)

const cacheEntryColumns = `id, exact_hash, embedding, backend, confidence, category, complexity,
	features, reasoning, suggested_tools, hit_count, active, created_at, expires_at, last_hit_at`

// PostgresCacheStore persists cache entries in the cache_entries table.
type PostgresCacheStore struct {
	pool *pgxpool.Pool
}

// NewPostgresCacheStore creates a cache store over the pool.
func NewPostgresCacheStore(pool *pgxpool.Pool) *PostgresCacheStore {
	return &PostgresCacheStore{pool: pool}
}

func (s *PostgresCacheStore) GetByHash(ctx context.Context, exactHash string, now time.Time) (*models.CacheEntry, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+cacheEntryColumns+`
		FROM cache_entries
		WHERE exact_hash = $1 AND active AND expires_at > $2`,
		exactHash, now)
	entry, err := scanCacheEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry by hash: %w", err)
	}
	return entry, nil
}

func (s *PostgresCacheStore) ListEmbedded(ctx context.Context, now time.Time) ([]*models.CacheEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+cacheEntryColumns+`
		FROM cache_entries
		WHERE active AND expires_at > $1 AND embedding IS NOT NULL`,
		now)
	if err != nil {
		return nil, fmt.Errorf("failed to list embedded cache entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.CacheEntry
	for rows.Next() {
		entry, err := scanCacheEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *PostgresCacheStore) RecordHit(ctx context.Context, id string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE cache_entries
		SET hit_count = hit_count + 1, last_hit_at = $2
		WHERE id = $1`,
		id, at)
	if err != nil {
		return fmt.Errorf("failed to record cache hit: %w", err)
	}
	return nil
}

// Upsert inserts the entry. A concurrent insert for the same exact hash is
// resolved by replacing the existing row; the hit count starts over.
func (s *PostgresCacheStore) Upsert(ctx context.Context, entry *models.CacheEntry) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO cache_entries (`+cacheEntryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (exact_hash) DO UPDATE SET
			id = EXCLUDED.id,
			embedding = EXCLUDED.embedding,
			backend = EXCLUDED.backend,
			confidence = EXCLUDED.confidence,
			category = EXCLUDED.category,
			complexity = EXCLUDED.complexity,
			features = EXCLUDED.features,
			reasoning = EXCLUDED.reasoning,
			suggested_tools = EXCLUDED.suggested_tools,
			hit_count = EXCLUDED.hit_count,
			active = EXCLUDED.active,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at,
			last_hit_at = EXCLUDED.last_hit_at`,
		entry.ID, entry.ExactHash, entry.Embedding, entry.Backend, entry.Confidence,
		entry.Category, entry.Complexity, entry.Features, entry.Reasoning,
		entry.SuggestedTools, entry.HitCount, entry.Active, entry.CreatedAt,
		entry.ExpiresAt, nullableTime(entry.LastHitAt))
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}
	return nil
}

func (s *PostgresCacheStore) Prune(ctx context.Context, expiredOnly bool, now time.Time) (int64, error) {
	var query string
	var args []any
	if expiredOnly {
		query = `DELETE FROM cache_entries WHERE expires_at <= $1`
		args = []any{now}
	} else {
		query = `DELETE FROM cache_entries`
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresCacheStore) Stats(ctx context.Context) (*models.CacheStats, error) {
	stats := &models.CacheStats{}
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(hit_count), 0) FROM cache_entries`).
		Scan(&stats.TotalEntries, &stats.TotalHits)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate cache stats: %w", err)
	}
	if stats.TotalEntries > 0 {
		stats.AverageHitsPerEntry = float64(stats.TotalHits) / float64(stats.TotalEntries)
	}
	return stats, nil
}

func scanCacheEntry(row pgx.Row) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	var lastHit *time.Time
	err := row.Scan(
		&entry.ID, &entry.ExactHash, &entry.Embedding, &entry.Backend,
		&entry.Confidence, &entry.Category, &entry.Complexity, &entry.Features,
		&entry.Reasoning, &entry.SuggestedTools, &entry.HitCount, &entry.Active,
		&entry.CreatedAt, &entry.ExpiresAt, &lastHit)
	if err != nil {
		return nil, err
	}
	if lastHit != nil {
		entry.LastHitAt = *lastHit
	}
	return &entry, nil
}

// nullableTime maps the zero time to SQL NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
