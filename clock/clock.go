// Package clock provides the injectable time source used by every rolling
// metrics collector in this module. Production code uses the real wall
// clock; tests freeze it so bucket rotation is deterministic.
package clock

import (
	"time"

	"github.com/mailgun/timetools"
)

// Clock is the millisecond time source every rolling structure reads
// through. Never call time.Now directly from a collector; go through a
// Clock so tests can freeze and advance it. The Clock returned by System
// reads wall-clock time and is not monotonic: it moves backward if the
// system clock is set back.
type Clock interface {
	// NowMs returns the current time as milliseconds since the Unix epoch.
	NowMs() int64
	// Now returns the current time, for callers that need a time.Time
	// (opened_at timestamps, cooldown comparisons).
	Now() time.Time
}

// real wraps a timetools.TimeProvider, the teacher's own clock abstraction,
// so production code and tests share one family of time providers.
type real struct {
	tp timetools.TimeProvider
}

func (r *real) NowMs() int64 {
	return r.tp.UtcNow().UnixNano() / int64(time.Millisecond)
}

func (r *real) Now() time.Time {
	return r.tp.UtcNow()
}

// New wraps an existing timetools.TimeProvider as a Clock. Use this in
// tests with a *timetools.FreezedTime to get deterministic rotation.
func New(tp timetools.TimeProvider) Clock {
	return &real{tp: tp}
}

// System returns a Clock backed by the real wall clock.
func System() Clock {
	return &real{tp: &timetools.RealTime{}}
}
