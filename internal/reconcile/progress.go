package reconcile

import "time"

const (
	defaultProgressCap   = 95
	defaultProgressTotal = 4 * time.Minute
)

// Estimator maps elapsed wall-clock time to a bounded synthetic completion
// percentage for display while a job is in flight. The value is never
// persisted and never used to decide actual completion; the ceiling stays
// below 100 so the final step is reserved for a confirmed result.
type Estimator struct {
	cap   int
	total time.Duration
}

// NewEstimator builds an estimator that grows linearly to capPercent over
// total elapsed time. Out-of-range inputs fall back to defaults.
func NewEstimator(capPercent int, total time.Duration) Estimator {
	if capPercent <= 0 || capPercent >= 100 {
		capPercent = defaultProgressCap
	}
	if total <= 0 {
		total = defaultProgressTotal
	}
	return Estimator{cap: capPercent, total: total}
}

// Estimate returns the synthetic percent complete for the given elapsed time.
func (e Estimator) Estimate(elapsed time.Duration) int {
	if elapsed <= 0 {
		return 0
	}
	if elapsed >= e.total {
		return e.cap
	}
	return int(int64(e.cap) * int64(elapsed) / int64(e.total))
}

// EstimateAt derives the percent from submission time, so concurrent viewers
// and process restarts produce consistent values without shared state.
func (e Estimator) EstimateAt(submittedAt, now time.Time) int {
	return e.Estimate(now.Sub(submittedAt))
}
