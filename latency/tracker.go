// Package latency implements LatencyTracker: it wraps a timed unit of work,
// records the observed duration into a summarizing rolling window, and
// never alters the caller's result or error.
package latency

import (
	"time"

	"github.com/vulcand/resilience/clock"
	"github.com/vulcand/resilience/logging"
	"github.com/vulcand/resilience/rolling"
)

// SampleMetrics is the rolling summary exposed by a Tracker: count, sum,
// min, and max over the current window.
type SampleMetrics struct {
	Count int64
	Sum   time.Duration
	Min   time.Duration
	Max   time.Duration
}

// Tracker records observed call durations into a rolling window. Count and
// sum are backed by Counting/Summing bucket stores; min and max by the
// Min/Max bucket store variants (see SPEC_FULL.md §4.1). A rolling HDR
// histogram on the side, ported from the teacher's
// memmetrics.RollingHDRHistogram, backs Quantile.
type Tracker struct {
	clock clock.Clock
	log   logging.Logger

	count *rolling.Window
	sum   *rolling.Window
	max   *rolling.Window
	min   *rolling.Window
	hist  *rollingHistogram
}

// Option configures a Tracker at construction.
type Option func(*Tracker) error

// Logger sets the Tracker's logger.
func Logger(l logging.Logger) Option {
	return func(t *Tracker) error {
		t.log = l
		return nil
	}
}

// New creates a Tracker with n buckets over windowMs milliseconds.
func New(n int, windowMs int64, c clock.Clock, opts ...Option) (*Tracker, error) {
	if c == nil {
		c = clock.System()
	}

	count, err := rolling.NewWindow(rolling.Counting, n, windowMs, c)
	if err != nil {
		return nil, err
	}
	sum, err := rolling.NewWindow(rolling.Summing, n, windowMs, c)
	if err != nil {
		return nil, err
	}
	maxW, err := rolling.NewWindow(rolling.Max, n, windowMs, c)
	if err != nil {
		return nil, err
	}
	minW, err := rolling.NewWindow(rolling.Min, n, windowMs, c)
	if err != nil {
		return nil, err
	}

	t := &Tracker{
		clock: c,
		log:   &logging.NoopLogger{},
		count: count,
		sum:   sum,
		max:   maxW,
		min:   minW,
		hist:  newRollingHistogram(histLow, histHigh, histSigFigs, histRollingPeriod, histBucketCount, c),
	}

	for _, o := range opts {
		if err := o(t); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Observe records an already-measured duration.
func (t *Tracker) Observe(d time.Duration) {
	ns := int64(d)

	t.count.Record(1)
	t.sum.Record(ns)
	t.max.Record(ns)
	t.min.Record(ns)

	if err := t.hist.recordLatency(d); err != nil {
		t.log.Error("failed to record latency into histogram: %v", err)
	}
}

// Time runs fn, measuring its duration with the injected clock, and
// returns fn's error unchanged — Time never alters the caller's result or
// error propagation.
func (t *Tracker) Time(fn func() error) error {
	start := t.clock.Now()
	err := fn()
	t.Observe(t.clock.Now().Sub(start))
	return err
}

// Metrics returns the rolling count/sum/min/max over the current window.
func (t *Tracker) Metrics() SampleMetrics {
	count := t.count.Total()

	return SampleMetrics{
		Count: count,
		Sum:   time.Duration(t.sum.Total()),
		Min:   time.Duration(t.min.Total()),
		Max:   time.Duration(t.max.Total()),
	}
}

// Quantile returns the latency at quantile q (0..1) merged across all of
// the rolling histogram's buckets, independent of the count/sum/min/max
// window.
func (t *Tracker) Quantile(q float64) time.Duration {
	return t.hist.quantile(q)
}

// Reset clears the rolling buckets and the histogram.
func (t *Tracker) Reset() {
	t.count.Reset()
	t.sum.Reset()
	t.max.Reset()
	t.min.Reset()
	t.hist.reset()
}

// Snapshot implements reporter.Collector.
func (t *Tracker) Snapshot() map[string]int64 {
	m := t.Metrics()
	return map[string]int64{
		"count":  m.Count,
		"sumNs":  int64(m.Sum),
		"minNs":  int64(m.Min),
		"maxNs":  int64(m.Max),
		"p99Ns":  int64(t.Quantile(0.99)),
	}
}
