// Package breaker implements CircuitBreaker, the state machine coordinating
// a rolling FaultDetector and a cooldown-driven HalfOpenRetryResolver,
// grounded on the teacher's cbreaker package (renamed from its
// standby/tripped/recovering vocabulary to the spec's
// Closed/Open/HalfOpen).
package breaker

import (
	"github.com/vulcand/resilience/errs"
	"github.com/vulcand/resilience/outcome"
)

// FaultDetector computes a rolling failure ratio from an outcome.Tracker's
// success/failure counts. Below MinSamples total observations it reports
// healthy regardless of ratio, avoiding trips on a cold or lightly-loaded
// window.
type FaultDetector struct {
	tracker    *outcome.Tracker
	minSamples int64
	threshold  float64
}

// NewFaultDetector creates a detector reading tracker's rolling counts.
// threshold is the failure ratio (0,1] at or above which the detector
// reports unhealthy.
func NewFaultDetector(tracker *outcome.Tracker, minSamples int64, threshold float64) (*FaultDetector, error) {
	if minSamples <= 0 {
		return nil, errs.NewInvalidArgument("minSamples must be > 0, got %d", minSamples)
	}
	if threshold <= 0 || threshold > 1 {
		return nil, errs.NewInvalidArgument("threshold must be in (0,1], got %f", threshold)
	}
	return &FaultDetector{tracker: tracker, minSamples: minSamples, threshold: threshold}, nil
}

// Unhealthy reports whether the rolling failure ratio has reached the
// configured threshold, given at least minSamples observations.
func (f *FaultDetector) Unhealthy() bool {
	success := f.tracker.SuccessCount()
	failure := f.tracker.FailureCount()

	total := success + failure
	if total < f.minSamples {
		return false
	}

	return f.Ratio() >= f.threshold
}

// Ratio returns the current rolling failure ratio; 0 when there is no data.
func (f *FaultDetector) Ratio() float64 {
	success := f.tracker.SuccessCount()
	failure := f.tracker.FailureCount()

	total := success + failure
	if total == 0 {
		return 0
	}

	return float64(failure) / float64(total)
}
