package router

import (
	"context"
	"time"

	"github.com/smartquery/qrouter/pkg/models"
)

// DecisionStore is the append-only decision log. Append failures are
// non-fatal for routing; the decision is still returned to the caller.
type DecisionStore interface {
	Append(ctx context.Context, record *models.DecisionRecord) error

	// Amend applies the feedback patch to the record with the request ID.
	// Returns false when no such record exists.
	Amend(ctx context.Context, requestID string, patch DecisionPatch) (bool, error)

	// Get returns the record for the request ID, or nil.
	Get(ctx context.Context, requestID string) (*models.DecisionRecord, error)

	// QueryRange returns records with created_at in [from, to).
	QueryRange(ctx context.Context, from, to time.Time) ([]*models.DecisionRecord, error)
}

// DecisionPatch holds the mutable feedback fields of a decision record.
type DecisionPatch struct {
	Verdict          models.Verdict
	Comment          string
	CorrectedBackend models.Backend
}

// PerfStore persists performance records and serves bandit reads.
type PerfStore interface {
	Get(ctx context.Context, agent, taskType string) (*models.PerformanceRecord, error)
	Record(ctx context.Context, agent, taskType string, outcome models.Outcome) error
}
