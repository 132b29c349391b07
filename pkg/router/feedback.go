package router

import (
	"context"
	"log/slog"

	"github.com/smartquery/qrouter/pkg/models"
)

// FeedbackResponse reports whether a feedback submission was applied.
type FeedbackResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Feedback amends the decision-log record for the request and folds the
// verdict into the matching performance record. Feedback for an unknown
// request ID mutates nothing and returns ok = false.
func (r *Router) Feedback(ctx context.Context, fb models.Feedback) (*FeedbackResponse, error) {
	if fb.RequestID == "" {
		return &FeedbackResponse{OK: false, Message: "missing request_id"}, nil
	}
	if !fb.Verdict.IsValid() {
		return nil, NewValidationError("verdict", "verdict must be 'positive' or 'negative'")
	}
	if fb.CorrectedBackend != "" && !fb.CorrectedBackend.IsValid() {
		return nil, NewValidationError("corrected_backend", "unknown backend '"+string(fb.CorrectedBackend)+"'")
	}
	if r.decisions == nil {
		return &FeedbackResponse{OK: false, Message: "decision log unavailable"}, nil
	}

	record, err := r.decisions.Get(ctx, fb.RequestID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &FeedbackResponse{OK: false, Message: "unknown request_id"}, nil
	}

	applied, err := r.decisions.Amend(ctx, fb.RequestID, DecisionPatch{
		Verdict:          fb.Verdict,
		Comment:          fb.Comment,
		CorrectedBackend: fb.CorrectedBackend,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return &FeedbackResponse{OK: false, Message: "unknown request_id"}, nil
	}

	r.recordVerdict(ctx, record, fb)

	if fb.CorrectedBackend != "" {
		// Calibration signal only; the deterministic mapping is never
		// rewritten at runtime.
		slog.Info("Backend correction received",
			"request_id", fb.RequestID,
			"category", record.Category,
			"chosen_backend", record.Backend,
			"corrected_backend", fb.CorrectedBackend)
	}

	return &FeedbackResponse{OK: true, Message: "feedback recorded"}, nil
}

// recordVerdict updates the performance record for the decision's backend
// and category. Quality is 1 for a positive verdict and 0 otherwise; the
// routing latency stands in for the pipeline latency on cache-path
// decisions.
func (r *Router) recordVerdict(ctx context.Context, record *models.DecisionRecord, fb models.Feedback) {
	if r.perf == nil {
		return
	}
	quality := 0.0
	if fb.Verdict == models.VerdictPositive {
		quality = 1.0
	}
	outcome := models.Outcome{
		Success:   fb.Verdict == models.VerdictPositive,
		LatencyMs: float64(record.RoutingTimeMs),
		Quality:   quality,
		At:        r.now(),
	}
	if err := r.perf.Record(ctx, string(record.Backend), string(record.Category), outcome); err != nil {
		slog.Warn("Failed to update performance record from feedback",
			"request_id", fb.RequestID, "error", err)
	}
}
