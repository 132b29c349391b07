package router

import (
	"context"
	"time"

	"github.com/smartquery/qrouter/pkg/models"
)

// AnalyticsPeriods are the accepted analytics time windows.
var AnalyticsPeriods = map[string]time.Duration{
	"1h":  time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// AnalyticsReport aggregates decision-log records over a time window.
type AnalyticsReport struct {
	Period               string                   `json:"period"`
	TotalDecisions       int                      `json:"total_decisions"`
	CacheHits            int                      `json:"cache_hits"`
	CacheHitRate         float64                  `json:"cache_hit_rate"`
	BackendDistribution  map[models.Backend]int   `json:"backend_distribution"`
	CategoryDistribution map[models.Category]int  `json:"category_distribution"`
	AverageConfidence    float64                  `json:"average_confidence"`
	AverageRoutingTimeMs float64                  `json:"average_routing_time_ms"`
	PositiveFeedback     int                      `json:"positive_feedback"`
	NegativeFeedback     int                      `json:"negative_feedback"`
}

// Analytics aggregates routing decisions over the named period.
func (r *Router) Analytics(ctx context.Context, period string) (*AnalyticsReport, error) {
	window, ok := AnalyticsPeriods[period]
	if !ok {
		return nil, NewValidationError("time_period", "must be one of 1h, 24h, 7d, 30d")
	}
	if r.decisions == nil {
		return nil, NewValidationError("time_period", "decision log unavailable")
	}

	now := r.now()
	records, err := r.decisions.QueryRange(ctx, now.Add(-window), now)
	if err != nil {
		return nil, err
	}

	report := &AnalyticsReport{
		Period:               period,
		TotalDecisions:       len(records),
		BackendDistribution:  make(map[models.Backend]int),
		CategoryDistribution: make(map[models.Category]int),
	}
	if len(records) == 0 {
		return report, nil
	}

	var confidenceSum, routingSum float64
	for _, rec := range records {
		report.BackendDistribution[rec.Backend]++
		if rec.Category != "" {
			report.CategoryDistribution[rec.Category]++
		}
		if rec.FromCache {
			report.CacheHits++
		}
		switch rec.Verdict {
		case models.VerdictPositive:
			report.PositiveFeedback++
		case models.VerdictNegative:
			report.NegativeFeedback++
		}
		confidenceSum += rec.Confidence
		routingSum += float64(rec.RoutingTimeMs)
	}
	report.CacheHitRate = float64(report.CacheHits) / float64(len(records))
	report.AverageConfidence = confidenceSum / float64(len(records))
	report.AverageRoutingTimeMs = routingSum / float64(len(records))
	return report, nil
}
