// Package outcome implements SuccessFailureTracker: it wraps a call and
// records its terminal outcome (ok/err) as both a rolling and a cumulative
// count, without ever swallowing the error.
package outcome

import (
	"sync/atomic"

	"github.com/vulcand/resilience/clock"
	"github.com/vulcand/resilience/rolling"
)

// Tracker records success/failure outcomes. Rolling counts feed windowed
// consumers like breaker.FaultDetector; cumulative counts are independent
// monotonic totals that survive Reset, following the teacher's RTMetrics
// split between rolling counters and plain totals.
type Tracker struct {
	success *rolling.Counter
	failure *rolling.Counter

	cumulativeSuccess int64
	cumulativeFailure int64
}

// New creates a Tracker with n buckets over windowMs milliseconds.
func New(n int, windowMs int64, c clock.Clock) (*Tracker, error) {
	if c == nil {
		c = clock.System()
	}

	success, err := rolling.NewCounter(n, windowMs, c)
	if err != nil {
		return nil, err
	}
	failure, err := rolling.NewCounter(n, windowMs, c)
	if err != nil {
		return nil, err
	}

	return &Tracker{success: success, failure: failure}, nil
}

// Success records one rolling and cumulative success.
func (t *Tracker) Success() {
	t.success.Record()
	atomic.AddInt64(&t.cumulativeSuccess, 1)
}

// Failure records one rolling and cumulative failure.
func (t *Tracker) Failure() {
	t.failure.Record()
	atomic.AddInt64(&t.cumulativeFailure, 1)
}

// Call runs fn, recording a failure if it returns a non-nil error and a
// success otherwise. fn's error is returned unchanged.
func (t *Tracker) Call(fn func() error) error {
	err := fn()
	if err != nil {
		t.Failure()
	} else {
		t.Success()
	}
	return err
}

// SuccessCount returns the rolling success count.
func (t *Tracker) SuccessCount() int64 { return t.success.Count() }

// FailureCount returns the rolling failure count.
func (t *Tracker) FailureCount() int64 { return t.failure.Count() }

// CumulativeSuccessCount returns the all-time success count; survives Reset.
func (t *Tracker) CumulativeSuccessCount() int64 {
	return atomic.LoadInt64(&t.cumulativeSuccess)
}

// CumulativeFailureCount returns the all-time failure count; survives Reset.
func (t *Tracker) CumulativeFailureCount() int64 {
	return atomic.LoadInt64(&t.cumulativeFailure)
}

// Reset clears only the rolling buckets. Cumulative counters are untouched,
// per spec.md's open-question resolution in §9.
func (t *Tracker) Reset() {
	t.success.Reset()
	t.failure.Reset()
}

// Snapshot implements reporter.Collector.
func (t *Tracker) Snapshot() map[string]int64 {
	return map[string]int64{
		"successRolling":    t.SuccessCount(),
		"failureRolling":    t.FailureCount(),
		"successCumulative": t.CumulativeSuccessCount(),
		"failureCumulative": t.CumulativeFailureCount(),
	}
}
