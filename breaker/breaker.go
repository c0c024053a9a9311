package breaker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/vulcand/resilience/clock"
	"github.com/vulcand/resilience/errs"
	"github.com/vulcand/resilience/logging"
	"github.com/vulcand/resilience/outcome"
	"github.com/vulcand/resilience/rolling"
)

// State is one of the three CircuitBreaker states.
type State int32

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// SideEffect is a hook run on a state transition. Grounded on the teacher's
// cbreaker.SideEffect/Webhook pair, generalized away from HTTP: any action
// (paging, alerting, draining a connection pool) can be plugged in here. It
// always runs asynchronously, outside any breaker lock, and its error (if
// any) is only logged, never propagated — a misbehaving hook must not be
// able to wedge the breaker.
type SideEffect func() error

// CircuitBreaker guards a call behind a FaultDetector and a
// HalfOpenRetryResolver, transitioning Closed -> Open -> HalfOpen -> Closed
// (or back to Open on a failed probe) per admission outcome.
type CircuitBreaker struct {
	mu       sync.Mutex
	state    State
	openedAt time.Time

	clock    clock.Clock
	detector *FaultDetector
	resolver *HalfOpenRetryResolver
	tracker  *outcome.Tracker

	shortCircuited           *rolling.Counter
	cumulativeShortCircuited int64

	onOpen   SideEffect
	onClosed SideEffect

	log logging.Logger
}

// Option configures a CircuitBreaker at construction.
type Option func(*CircuitBreaker) error

// Logger sets the breaker's logger.
func Logger(l logging.Logger) Option {
	return func(cb *CircuitBreaker) error {
		cb.log = l
		return nil
	}
}

// OnOpen registers a hook run when the breaker trips Closed -> Open.
func OnOpen(fn SideEffect) Option {
	return func(cb *CircuitBreaker) error {
		cb.onOpen = fn
		return nil
	}
}

// OnClosed registers a hook run when a successful probe closes the breaker.
func OnClosed(fn SideEffect) Option {
	return func(cb *CircuitBreaker) error {
		cb.onClosed = fn
		return nil
	}
}

// New creates a CircuitBreaker. minSamples and threshold parameterize the
// FaultDetector; cooldown parameterizes the HalfOpenRetryResolver; n and
// windowMs size the rolling success/failure and short-circuit counters.
func New(minSamples int64, threshold float64, cooldown time.Duration, n int, windowMs int64, c clock.Clock, opts ...Option) (*CircuitBreaker, error) {
	if c == nil {
		c = clock.System()
	}

	tracker, err := outcome.New(n, windowMs, c)
	if err != nil {
		return nil, err
	}
	detector, err := NewFaultDetector(tracker, minSamples, threshold)
	if err != nil {
		return nil, err
	}
	resolver, err := NewHalfOpenRetryResolver(cooldown, c)
	if err != nil {
		return nil, err
	}
	shortCircuited, err := rolling.NewCounter(n, windowMs, c)
	if err != nil {
		return nil, err
	}

	cb := &CircuitBreaker{
		state:          Closed,
		clock:          c,
		detector:       detector,
		resolver:       resolver,
		tracker:        tracker,
		shortCircuited: shortCircuited,
		log:            &logging.NoopLogger{},
	}

	for _, o := range opts {
		if err := o(cb); err != nil {
			return nil, err
		}
	}

	return cb, nil
}

// Allow reports whether a call may proceed, driving the Closed -> Open and
// Open -> HalfOpen transitions as a side effect. Callers that get an
// admitted call back must report its outcome via Do, or manually via
// ReportSuccess/ReportFailure.
func (cb *CircuitBreaker) Allow() (bool, error) {
	cb.mu.Lock()

	var toFire SideEffect

	if cb.state == Closed {
		if !cb.detector.Unhealthy() {
			cb.mu.Unlock()
			return true, nil
		}

		cb.openedAt = cb.clock.Now()
		cb.state = Open
		cb.log.Warn("breaker: tripped open, failure ratio %.2f", cb.detector.Ratio())
		toFire = cb.onOpen
	}

	admitted := false
	var rejErr error

	switch cb.state {
	case Open:
		if !cb.resolver.cooldownElapsed(cb.openedAt) {
			cb.recordShortCircuitLocked()
			rejErr = errs.NewRejected("breaker", cb.countersLocked())
		} else if err := cb.resolver.probeGate.TryAcquire(); err != nil {
			// Another goroutine already holds the single probe permit for
			// this cycle; this admission is simply rejected, not counted
			// as short-circuited (the breaker isn't Open anymore by the
			// glossary's definition once cooldown has elapsed).
			rejErr = errs.NewRejected("breaker", cb.countersLocked())
		} else {
			cb.state = HalfOpen
			cb.log.Info("breaker: half-open, admitting single probe")
			admitted = true
		}
	case HalfOpen:
		// A probe is already in flight, reject everything else.
		rejErr = errs.NewRejected("breaker", cb.countersLocked())
	}

	cb.mu.Unlock()
	cb.fire(toFire)

	if rejErr != nil {
		return false, rejErr
	}
	return admitted, nil
}

// Do runs fn if Allow admits the call, reports its outcome, and returns
// fn's error unchanged. If the call is rejected, fn is never invoked and
// Do returns the *errs.RejectedError from Allow.
func (cb *CircuitBreaker) Do(fn func() error) error {
	admitted, err := cb.Allow()
	if !admitted {
		return err
	}

	result := fn()
	if result != nil {
		cb.ReportFailure()
	} else {
		cb.ReportSuccess()
	}
	return result
}

// ReportSuccess records a successful call outcome. If the breaker was
// HalfOpen (this was the probe), it closes and resets the rolling
// failure history.
func (cb *CircuitBreaker) ReportSuccess() {
	cb.tracker.Success()

	cb.mu.Lock()
	var toFire SideEffect
	if cb.state == HalfOpen {
		cb.state = Closed
		cb.resolver.release()
		cb.tracker.Reset()
		cb.log.Info("breaker: closed after successful probe")
		toFire = cb.onClosed
	}
	cb.mu.Unlock()

	cb.fire(toFire)
}

// ReportFailure records a failed call outcome. If the breaker was HalfOpen
// (this was the probe), it reopens and refreshes opened_at, restarting the
// cooldown — also firing onOpen, matching the teacher's setState, which
// fires its tripped-state hook on every entry into the tripped state, not
// only the first.
func (cb *CircuitBreaker) ReportFailure() {
	cb.tracker.Failure()

	cb.mu.Lock()
	var toFire SideEffect
	if cb.state == HalfOpen {
		cb.state = Open
		cb.openedAt = cb.clock.Now()
		cb.resolver.release()
		cb.log.Warn("breaker: probe failed, reopening")
		toFire = cb.onOpen
	}
	cb.mu.Unlock()

	cb.fire(toFire)
}

func (cb *CircuitBreaker) recordShortCircuitLocked() {
	cb.shortCircuited.Record()
	atomic.AddInt64(&cb.cumulativeShortCircuited, 1)
}

// fire runs fn asynchronously, outside any breaker lock, logging (not
// propagating) its error. Grounded on the teacher's
// CircuitBreaker.exec.
func (cb *CircuitBreaker) fire(fn SideEffect) {
	if fn == nil {
		return
	}
	go func() {
		if err := fn(); err != nil {
			cb.log.Error("breaker: side effect failed: %v", err)
		}
	}()
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) countersLocked() map[string]int64 {
	return map[string]int64{
		"state":                    int64(cb.state),
		"shortCircuitedRolling":    cb.shortCircuited.Count(),
		"shortCircuitedCumulative": atomic.LoadInt64(&cb.cumulativeShortCircuited),
		"successRolling":           cb.tracker.SuccessCount(),
		"failureRolling":           cb.tracker.FailureCount(),
	}
}

// Counters returns a point-in-time view of the breaker's state.
func (cb *CircuitBreaker) Counters() map[string]int64 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.countersLocked()
}

// Reset clears the rolling failure-ratio history and short-circuit
// counter, without changing the current state.
func (cb *CircuitBreaker) Reset() {
	cb.tracker.Reset()
	cb.shortCircuited.Reset()
}

// Snapshot implements reporter.Collector.
func (cb *CircuitBreaker) Snapshot() map[string]int64 {
	return cb.Counters()
}
