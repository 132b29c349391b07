package models

import "time"

// EWMAAlpha is the weight given to the newest observation when updating
// exponentially weighted moving averages on performance records.
const EWMAAlpha = 0.3

// PerformanceRecord tracks the outcome history for one (agent, task type)
// pair. Invariant: Successes <= Total; both are non-decreasing.
type PerformanceRecord struct {
	Agent         string
	TaskType      string
	Total         int64
	Successes     int64
	EWMALatencyMs float64
	EWMAQuality   float64
	LastAt        time.Time
}

// SuccessRate returns Successes/Total, or 0 for an empty record.
func (r *PerformanceRecord) SuccessRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Successes) / float64(r.Total)
}

// Observe folds one outcome into the record using EWMA with alpha = 0.3.
// The first observation seeds the averages directly.
func (r *PerformanceRecord) Observe(success bool, latencyMs, quality float64, at time.Time) {
	if r.Total == 0 {
		r.EWMALatencyMs = latencyMs
		r.EWMAQuality = quality
	} else {
		r.EWMALatencyMs = EWMAAlpha*latencyMs + (1-EWMAAlpha)*r.EWMALatencyMs
		r.EWMAQuality = EWMAAlpha*quality + (1-EWMAAlpha)*r.EWMAQuality
	}
	r.Total++
	if success {
		r.Successes++
	}
	r.LastAt = at
}

// Outcome is one pipeline result fed back into a performance record.
type Outcome struct {
	Success   bool
	LatencyMs float64
	Quality   float64
	At        time.Time
}
