package breaker

import (
	"time"

	"github.com/vulcand/resilience/clock"
	"github.com/vulcand/resilience/errs"
	"github.com/vulcand/resilience/semaphore"
)

// HalfOpenRetryResolver decides when an Open breaker may admit a single
// probe call. It is built on top of semaphore.Semaphore with capacity 1:
// acquiring the permit *is* "admit exactly one probe", and releasing it
// after the probe resolves is what lets the next Open->HalfOpen cycle
// admit another one.
type HalfOpenRetryResolver struct {
	cooldown  time.Duration
	clock     clock.Clock
	probeGate *semaphore.Semaphore
}

// NewHalfOpenRetryResolver creates a resolver with the given cooldown.
func NewHalfOpenRetryResolver(cooldown time.Duration, c clock.Clock) (*HalfOpenRetryResolver, error) {
	if cooldown <= 0 {
		return nil, errs.NewInvalidArgument("cooldown must be > 0, got %s", cooldown)
	}
	if c == nil {
		c = clock.System()
	}

	// A single-bucket rolling window: the probe gate does not need rolling
	// rejection granularity of its own, only the capacity-1 try-acquire
	// semantics.
	gate, err := semaphore.New(1, 1, 60000, c, semaphore.Name("breaker-probe"))
	if err != nil {
		return nil, err
	}

	return &HalfOpenRetryResolver{cooldown: cooldown, clock: c, probeGate: gate}, nil
}

// cooldownElapsed reports whether enough time has passed since openedAt to
// attempt a probe.
func (h *HalfOpenRetryResolver) cooldownElapsed(openedAt time.Time) bool {
	return h.clock.Now().Sub(openedAt) >= h.cooldown
}

// release returns the probe permit, allowing a future cycle to admit
// another single probe.
func (h *HalfOpenRetryResolver) release() {
	h.probeGate.Release()
}
