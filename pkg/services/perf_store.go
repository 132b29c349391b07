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

// PostgresPerfStore persists per-(agent, task type) performance records.
// Updates are read-modify-write; concurrent outcomes on the same key
// resolve last-writer-wins on the EWMA values.
type PostgresPerfStore struct {
	pool *pgxpool.Pool
}

// NewPostgresPerfStore creates a performance store over the pool.
func NewPostgresPerfStore(pool *pgxpool.Pool) *PostgresPerfStore {
	return &PostgresPerfStore{pool: pool}
}

func (s *PostgresPerfStore) Get(ctx context.Context, agent, taskType string) (*models.PerformanceRecord, error) {
	var record models.PerformanceRecord
	var lastAt *time.Time
	err := s.pool.QueryRow(ctx, `SELECT agent, task_type, total, successes, ewma_latency_ms, ewma_quality, last_at
		FROM performance_records
		WHERE agent = $1 AND task_type = $2`,
		agent, taskType).
		Scan(&record.Agent, &record.TaskType, &record.Total, &record.Successes,
			&record.EWMALatencyMs, &record.EWMAQuality, &lastAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get performance record: %w", err)
	}
	if lastAt != nil {
		record.LastAt = *lastAt
	}
	return &record, nil
}

func (s *PostgresPerfStore) Record(ctx context.Context, agent, taskType string, outcome models.Outcome) error {
	record, err := s.Get(ctx, agent, taskType)
	if err != nil {
		return err
	}
	if record == nil {
		record = &models.PerformanceRecord{Agent: agent, TaskType: taskType}
	}
	record.Observe(outcome.Success, outcome.LatencyMs, outcome.Quality, outcome.At)

	_, err = s.pool.Exec(ctx, `INSERT INTO performance_records
		(agent, task_type, total, successes, ewma_latency_ms, ewma_quality, last_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (agent, task_type) DO UPDATE SET
			total = EXCLUDED.total,
			successes = EXCLUDED.successes,
			ewma_latency_ms = EXCLUDED.ewma_latency_ms,
			ewma_quality = EXCLUDED.ewma_quality,
			last_at = EXCLUDED.last_at`,
		record.Agent, record.TaskType, record.Total, record.Successes,
		record.EWMALatencyMs, record.EWMAQuality, record.LastAt)
	if err != nil {
		return fmt.Errorf("failed to record performance outcome: %w", err)
	}
	return nil
}

// Observe adapts the store to the pipeline's metrics sink.
func (s *PostgresPerfStore) Observe(ctx context.Context, agent, taskType string, outcome models.Outcome) error {
	return s.Record(ctx, agent, taskType, outcome)
}
