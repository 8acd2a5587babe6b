package reconcile

import (
	"testing"
	"time"
)

func TestEstimateZeroElapsed(t *testing.T) {
	e := NewEstimator(95, 4*time.Minute)
	if got := e.Estimate(0); got != 0 {
		t.Fatalf("Estimate(0) = %d, want 0", got)
	}
	if got := e.Estimate(-time.Second); got != 0 {
		t.Fatalf("Estimate(-1s) = %d, want 0", got)
	}
}

func TestEstimateMonotonicAndCapped(t *testing.T) {
	e := NewEstimator(95, 4*time.Minute)
	prev := -1
	for elapsed := time.Duration(0); elapsed <= 10*time.Minute; elapsed += 5 * time.Second {
		got := e.Estimate(elapsed)
		if got < prev {
			t.Fatalf("Estimate(%s) = %d decreased from %d", elapsed, got, prev)
		}
		if got > 95 {
			t.Fatalf("Estimate(%s) = %d exceeds cap", elapsed, got)
		}
		prev = got
	}
}

func TestEstimateReachesCapAtTotal(t *testing.T) {
	e := NewEstimator(90, 2*time.Minute)
	if got := e.Estimate(2 * time.Minute); got != 90 {
		t.Fatalf("Estimate(total) = %d, want 90", got)
	}
	if got := e.Estimate(time.Hour); got != 90 {
		t.Fatalf("Estimate(beyond total) = %d, want 90", got)
	}
}

func TestEstimateLinearMidpoint(t *testing.T) {
	e := NewEstimator(90, 2*time.Minute)
	if got := e.Estimate(time.Minute); got != 45 {
		t.Fatalf("Estimate(half) = %d, want 45", got)
	}
}

func TestEstimateAtIsPureInSubmissionTime(t *testing.T) {
	e := NewEstimator(95, 4*time.Minute)
	submitted := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now := submitted.Add(90 * time.Second)
	first := e.EstimateAt(submitted, now)
	second := e.EstimateAt(submitted, now)
	if first != second {
		t.Fatalf("same inputs gave %d then %d", first, second)
	}
	if first != e.Estimate(90*time.Second) {
		t.Fatalf("EstimateAt = %d, Estimate = %d", first, e.Estimate(90*time.Second))
	}
}

func TestNewEstimatorRejectsBadCap(t *testing.T) {
	for _, bad := range []int{0, -5, 100, 250} {
		e := NewEstimator(bad, time.Minute)
		if got := e.Estimate(time.Hour); got >= 100 {
			t.Fatalf("cap %d produced %d, want below 100", bad, got)
		}
	}
}
