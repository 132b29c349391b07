// Package cleanup provides data retention for the routing cache and the
// decision log.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/smartquery/qrouter/pkg/config"
)

// CachePruner removes cache entries; expiredOnly true limits removal to
// entries past their TTL.
type CachePruner interface {
	Prune(ctx context.Context, expiredOnly bool) (int64, error)
}

// DecisionTrimmer removes decision-log records created before a cutoff.
type DecisionTrimmer interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service periodically enforces retention policies:
//   - Removes expired cache entries (never active ones)
//   - Deletes decision-log records older than the retention window
//
// All operations are idempotent and safe to run from multiple replicas.
type Service struct {
	config    *config.RetentionConfig
	cache     CachePruner
	decisions DecisionTrimmer
	now       func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new retention service.
func NewService(cfg *config.RetentionConfig, cache CachePruner, decisions DecisionTrimmer) *Service {
	return &Service{
		config:    cfg,
		cache:     cache,
		decisions: decisions,
		now:       time.Now,
	}
}

// Start launches the background retention loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Retention service started",
		"cleanup_interval", s.config.CleanupInterval,
		"decision_retention", s.config.DecisionRetention)
}

// Stop signals the retention loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Retention service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.pruneExpiredEntries(ctx)
	s.trimDecisionLog(ctx)
}

func (s *Service) pruneExpiredEntries(ctx context.Context) {
	count, err := s.cache.Prune(ctx, true)
	if err != nil {
		slog.Error("Retention: cache prune failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: removed expired cache entries", "count", count)
	}
}

func (s *Service) trimDecisionLog(ctx context.Context) {
	cutoff := s.now().Add(-s.config.DecisionRetention)
	count, err := s.decisions.DeleteBefore(ctx, cutoff)
	if err != nil {
		slog.Error("Retention: decision log trim failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: deleted old decision records", "count", count, "cutoff", cutoff)
	}
}
