package latency

import (
	"errors"
	"time"

	hdr "github.com/HdrHistogram/hdrhistogram-go"

	"github.com/vulcand/resilience/clock"
)

// histogram is a tiny wrapper around hdrhistogram-go, ported from the
// teacher's memmetrics.HDRHistogram, trimmed to what the latency tracker's
// quantile view needs.
type histogram struct {
	low, high int64
	sigfigs   int
	h         *hdr.Histogram
}

func newHistogram(low, high int64, sigfigs int) *histogram {
	return &histogram{low: low, high: high, sigfigs: sigfigs, h: hdr.New(low, high, sigfigs)}
}

func (h *histogram) recordMicros(v, n int64) error {
	return h.h.RecordValues(v, n)
}

func (h *histogram) reset() {
	h.h.Reset()
}

func (h *histogram) merge(o *histogram) error {
	if o == nil {
		return errors.New("other is nil")
	}
	h.h.Merge(o.h)
	return nil
}

func (h *histogram) valueAtQuantile(q float64) int64 {
	return h.h.ValueAtQuantile(q)
}

// rollingHistogram holds bucketCount histograms and rotates to the next one
// every period, following the teacher's RollingHDRHistogram. Merged()
// combines all live buckets into one histogram for quantile queries.
type rollingHistogram struct {
	idx       int
	lastRoll  time.Time
	period    time.Duration
	low, high int64
	sigfigs   int
	buckets   []*histogram
	clock     clock.Clock
}

func newRollingHistogram(low, high int64, sigfigs int, period time.Duration, bucketCount int, c clock.Clock) *rollingHistogram {
	buckets := make([]*histogram, bucketCount)
	for i := range buckets {
		buckets[i] = newHistogram(low, high, sigfigs)
	}
	return &rollingHistogram{
		period:   period,
		low:      low,
		high:     high,
		sigfigs:  sigfigs,
		buckets:  buckets,
		clock:    c,
		lastRoll: c.Now(),
	}
}

func (r *rollingHistogram) rotate() {
	r.idx = (r.idx + 1) % len(r.buckets)
	r.buckets[r.idx].reset()
}

func (r *rollingHistogram) current() *histogram {
	if r.clock.Now().Sub(r.lastRoll) >= r.period {
		r.rotate()
		r.lastRoll = r.clock.Now()
	}
	return r.buckets[r.idx]
}

func (r *rollingHistogram) recordLatency(d time.Duration) error {
	return r.current().recordMicros(int64(d/time.Microsecond), 1)
}

func (r *rollingHistogram) reset() {
	r.idx = 0
	r.lastRoll = r.clock.Now()
	for _, b := range r.buckets {
		b.reset()
	}
}

func (r *rollingHistogram) merged() (*histogram, error) {
	m := newHistogram(r.low, r.high, r.sigfigs)
	for _, b := range r.buckets {
		if err := m.merge(b); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// quantile returns the latency at quantile q (0..1) across all live
// buckets, with microsecond precision.
func (r *rollingHistogram) quantile(q float64) time.Duration {
	m, err := r.merged()
	if err != nil {
		return 0
	}
	return time.Duration(m.valueAtQuantile(q)) * time.Microsecond
}

const (
	histLow            = 1
	histHigh           = 3600000000 // 1 hour, in microseconds
	histSigFigs        = 2          // ~1% precision
	histBucketCount    = 6
	histRollingPeriod  = 10 * time.Second
)
