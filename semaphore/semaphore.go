// Package semaphore implements CountingSemaphore: bounded permits with a
// non-blocking try-acquire, no queueing, and no fairness guarantees,
// grounded on the teacher's connlimit package (a mutex-guarded counter per
// token), simplified to a single bounded counter.
package semaphore

import (
	"sync"
	"sync/atomic"

	"github.com/vulcand/resilience/clock"
	"github.com/vulcand/resilience/errs"
	"github.com/vulcand/resilience/logging"
	"github.com/vulcand/resilience/rolling"
)

// Semaphore is a bounded, non-blocking counting semaphore.
type Semaphore struct {
	mu        sync.Mutex
	capacity  int64
	available int64

	name               string
	rejectedRolling    *rolling.Counter
	cumulativeRejected int64

	log logging.Logger
}

// Option configures a Semaphore at construction.
type Option func(*Semaphore) error

// Name sets the gate name surfaced in RejectedError.
func Name(name string) Option {
	return func(s *Semaphore) error {
		s.name = name
		return nil
	}
}

// Logger sets the Semaphore's logger.
func Logger(l logging.Logger) Option {
	return func(s *Semaphore) error {
		s.log = l
		return nil
	}
}

// New creates a Semaphore with the given permit capacity, backed by a
// rolling rejection counter with n buckets over windowMs milliseconds.
func New(capacity int64, n int, windowMs int64, c clock.Clock, opts ...Option) (*Semaphore, error) {
	if capacity <= 0 {
		return nil, errs.NewInvalidArgument("capacity must be > 0, got %d", capacity)
	}
	if c == nil {
		c = clock.System()
	}

	rejected, err := rolling.NewCounter(n, windowMs, c)
	if err != nil {
		return nil, err
	}

	s := &Semaphore{
		capacity:        capacity,
		available:       capacity,
		name:            "semaphore",
		rejectedRolling: rejected,
		log:             &logging.NoopLogger{},
	}

	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// TryAcquire decrements the permit counter if a permit is available and
// returns nil; otherwise it records a rejection and returns a
// *errs.RejectedError. It never blocks.
func (s *Semaphore) TryAcquire() error {
	s.mu.Lock()
	if s.available <= 0 {
		s.mu.Unlock()

		s.rejectedRolling.Record()
		atomic.AddInt64(&s.cumulativeRejected, 1)
		s.log.Debug("%s: rejected, capacity=%d", s.name, s.capacity)

		return errs.NewRejected(s.name, s.Counters())
	}

	s.available--
	s.mu.Unlock()

	return nil
}

// Release returns a permit, never raising available above capacity.
func (s *Semaphore) Release() {
	s.mu.Lock()
	if s.available < s.capacity {
		s.available++
	}
	s.mu.Unlock()
}

// Do tries to acquire a permit, runs fn if it succeeds, and always releases
// the permit afterward. If no permit is available, fn is not run and Do
// returns a *errs.RejectedError.
func (s *Semaphore) Do(fn func() error) error {
	if err := s.TryAcquire(); err != nil {
		return err
	}
	defer s.Release()
	return fn()
}

// Available returns the current number of free permits.
func (s *Semaphore) Available() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// Capacity returns the configured permit capacity.
func (s *Semaphore) Capacity() int64 {
	return s.capacity
}

// Inflight returns capacity - available; at any quiescent point,
// available + inflight == capacity.
func (s *Semaphore) Inflight() int64 {
	return s.Capacity() - s.Available()
}

// Counters returns a point-in-time view used both by RejectedError and by
// Snapshot.
func (s *Semaphore) Counters() map[string]int64 {
	return map[string]int64{
		"available":          s.Available(),
		"capacity":           s.capacity,
		"rejectedRolling":    s.rejectedRolling.Count(),
		"rejectedCumulative": atomic.LoadInt64(&s.cumulativeRejected),
	}
}

// Reset clears the rolling rejection counter. The cumulative counter and
// the available-permit count are untouched.
func (s *Semaphore) Reset() {
	s.rejectedRolling.Reset()
}

// Snapshot implements reporter.Collector.
func (s *Semaphore) Snapshot() map[string]int64 {
	return s.Counters()
}
