package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartquery/qrouter/pkg/models"
	"github.com/smartquery/qrouter/pkg/router"
)

const decisionColumns = `request_id, query, backend, confidence, reasoning, category, complexity,
	features, suggested_tools, from_cache, cache_entry_id, routing_time_ms,
	verdict, comment, corrected_backend, created_at`

// PostgresDecisionStore persists the append-only decision log.
type PostgresDecisionStore struct {
	pool *pgxpool.Pool
}

// NewPostgresDecisionStore creates a decision store over the pool.
func NewPostgresDecisionStore(pool *pgxpool.Pool) *PostgresDecisionStore {
	return &PostgresDecisionStore{pool: pool}
}

func (s *PostgresDecisionStore) Append(ctx context.Context, record *models.DecisionRecord) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO decision_log (`+decisionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		record.RequestID, record.Query, record.Backend, record.Confidence,
		record.Reasoning, record.Category, record.Complexity, record.Features,
		record.SuggestedTools, record.FromCache, record.CacheEntryID,
		record.RoutingTimeMs, record.Verdict, record.Comment,
		record.CorrectedBackend, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append decision record: %w", err)
	}
	return nil
}

func (s *PostgresDecisionStore) Amend(ctx context.Context, requestID string, patch router.DecisionPatch) (bool, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE decision_log
		SET verdict = $2, comment = $3, corrected_backend = $4
		WHERE request_id = $1`,
		requestID, patch.Verdict, patch.Comment, patch.CorrectedBackend)
	if err != nil {
		return false, fmt.Errorf("failed to amend decision record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresDecisionStore) Get(ctx context.Context, requestID string) (*models.DecisionRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+decisionColumns+`
		FROM decision_log WHERE request_id = $1`, requestID)
	record, err := scanDecisionRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get decision record: %w", err)
	}
	return record, nil
}

func (s *PostgresDecisionStore) QueryRange(ctx context.Context, from, to time.Time) ([]*models.DecisionRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+decisionColumns+`
		FROM decision_log
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query decision records: %w", err)
	}
	defer rows.Close()

	var records []*models.DecisionRecord
	for rows.Next() {
		record, err := scanDecisionRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// DeleteBefore removes decision records created before the cutoff. Used by
// the retention loop; feedback on removed records becomes a no-op.
func (s *PostgresDecisionStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM decision_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old decision records: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanDecisionRecord(row pgx.Row) (*models.DecisionRecord, error) {
	var record models.DecisionRecord
	err := row.Scan(
		&record.RequestID, &record.Query, &record.Backend, &record.Confidence,
		&record.Reasoning, &record.Category, &record.Complexity, &record.Features,
		&record.SuggestedTools, &record.FromCache, &record.CacheEntryID,
		&record.RoutingTimeMs, &record.Verdict, &record.Comment,
		&record.CorrectedBackend, &record.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &record, nil
}
