// Package pool implements BoundedThreadPool: a fixed worker pool with a
// bounded, non-blocking submission queue and an optional per-call timeout.
// Submission is the only primitive in this toolkit that may block the
// caller: enqueueing never blocks, but Submit then waits for the task's
// result, bounded by the per-call timeout when one is given.
package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vulcand/resilience/clock"
	"github.com/vulcand/resilience/errs"
	"github.com/vulcand/resilience/logging"
	"github.com/vulcand/resilience/rolling"
)

// Task is a unit of work submitted to the pool. It should respect ctx's
// deadline for cooperative cancellation after a timeout.
type Task func(ctx context.Context) error

type job struct {
	ctx     context.Context
	fn      Task
	result  chan error
	started chan struct{}
}

// Pool is a fixed-worker, bounded-queue thread pool.
type Pool struct {
	workers int
	queue   chan job
	wg      sync.WaitGroup
	closing chan struct{}
	closed  int32

	// shutdownMu keeps "check closed and enqueue" in Submit and "flip
	// closed and signal closing" in Shutdown mutually exclusive, so no
	// Submit can enqueue a job after Shutdown has started tearing down —
	// a job enqueued past that point could sit forever unserviced, since
	// worker() exits on closing before necessarily draining the queue.
	shutdownMu sync.RWMutex

	submitted int64
	completed int64

	rejectedRolling    *rolling.Counter
	cumulativeRejected int64
	timeoutRolling     *rolling.Counter
	cumulativeTimeout  int64

	log logging.Logger
}

// Option configures a Pool at construction.
type Option func(*Pool) error

// Logger sets the Pool's logger.
func Logger(l logging.Logger) Option {
	return func(p *Pool) error {
		p.log = l
		return nil
	}
}

// New creates a Pool with the given fixed worker count and bounded queue
// capacity. Rejection and timeout counters roll over n buckets spanning
// windowMs milliseconds.
func New(workers, queueCapacity, n int, windowMs int64, c clock.Clock, opts ...Option) (*Pool, error) {
	if workers <= 0 {
		return nil, errs.NewInvalidArgument("workers must be > 0, got %d", workers)
	}
	if queueCapacity < 0 {
		return nil, errs.NewInvalidArgument("queue capacity must be >= 0, got %d", queueCapacity)
	}
	if c == nil {
		c = clock.System()
	}

	rejected, err := rolling.NewCounter(n, windowMs, c)
	if err != nil {
		return nil, err
	}
	timedOut, err := rolling.NewCounter(n, windowMs, c)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		workers:         workers,
		queue:           make(chan job, queueCapacity),
		closing:         make(chan struct{}),
		rejectedRolling: rejected,
		timeoutRolling:  timedOut,
		log:             &logging.NoopLogger{},
	}

	for _, o := range opts {
		if err := o(p); err != nil {
			return nil, err
		}
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p, nil
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.closing:
			return
		case j, ok := <-p.queue:
			if !ok {
				return
			}

			// Pre-start cancellation: if the deadline already passed while
			// the task waited in queue, drop it without running — the
			// caller has already observed (or will observe) a timeout.
			select {
			case <-j.ctx.Done():
				continue
			default:
			}

			close(j.started)
			err := j.fn(j.ctx)
			atomic.AddInt64(&p.completed, 1)

			select {
			case j.result <- err:
			default:
			}
		}
	}
}

// Submit enqueues fn if the queue has space, otherwise rejects immediately.
// A timeout of 0 means wait indefinitely for a worker to run fn and
// complete. A positive timeout bounds the wait: if fn has not started by
// the deadline it is cancelled (never run) and Submit returns a
// *errs.TimeoutError; if it had already started, ctx is canceled
// (best-effort interrupt) and Submit still returns a *errs.TimeoutError
// once fn observes the cancellation and returns.
func (p *Pool) Submit(fn Task, timeout time.Duration) error {
	ctx := context.Background()
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	j := job{ctx: ctx, fn: fn, result: make(chan error, 1), started: make(chan struct{})}

	enqueued, err := p.tryEnqueue(j)
	if err != nil {
		return err
	}
	if !enqueued {
		p.rejectedRolling.Record()
		atomic.AddInt64(&p.cumulativeRejected, 1)
		p.log.Debug("pool: rejected, queue full (capacity=%d)", cap(p.queue))
		return errs.NewRejected("pool", p.Counters())
	}

	if timeout <= 0 {
		return <-j.result
	}

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		p.timeoutRolling.Record()
		atomic.AddInt64(&p.cumulativeTimeout, 1)

		select {
		case <-j.started:
			<-j.result // drain: fn already running, wait for its best-effort exit
			return errs.NewTimeout("task exceeded %s after starting", timeout)
		default:
			return errs.NewTimeout("task did not start within %s", timeout)
		}
	}
}

// tryEnqueue enqueues j unless the pool is shut down or the queue is full.
// It holds shutdownMu for only the check-and-enqueue step, not for the
// (potentially long or unbounded) wait on j.result that follows in Submit.
func (p *Pool) tryEnqueue(j job) (enqueued bool, err error) {
	p.shutdownMu.RLock()
	defer p.shutdownMu.RUnlock()

	if atomic.LoadInt32(&p.closed) == 1 {
		return false, errs.NewRejected("pool", p.Counters())
	}

	select {
	case p.queue <- j:
		atomic.AddInt64(&p.submitted, 1)
		return true, nil
	default:
		return false, nil
	}
}

// Shutdown stops accepting new work and waits up to wait for in-flight and
// queued workers to drain. Workers that are blocked inside a task are not
// forcibly killed — Go has no preemptive goroutine cancellation — so
// Shutdown can return a timeout if a task ignores its context. Any job
// still sitting in the queue once workers have stopped pulling from it is
// canceled rather than left to strand a Submit(timeout<=0) caller forever.
func (p *Pool) Shutdown(wait time.Duration) error {
	if !atomic.CompareAndSwapInt32(&p.closed, 0, 1) {
		return nil
	}

	// Block until any Submit already past the closed check finishes
	// enqueuing, so close(p.closing) never races a fresh arrival into the
	// queue.
	p.shutdownMu.Lock()
	close(p.closing)
	p.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var shutdownErr error
	select {
	case <-done:
	case <-time.After(wait):
		shutdownErr = errs.NewTimeout("shutdown did not complete within %s", wait)
	}

	p.cancelRemaining()

	return shutdownErr
}

// cancelRemaining drains whatever is left in the queue and delivers each
// job a Rejected error instead of running it. When Shutdown's wait timed
// out, a worker still inside a task may take a queued job once that task
// returns; such a job runs normally. worker()'s select races <-p.closing against <-p.queue and Go
// picks pseudo-randomly between two ready cases, so a worker can exit via
// closing while jobs remain queued; without this pass those jobs would
// never be serviced and a Submit(timeout<=0) caller blocked on <-j.result
// would hang forever.
func (p *Pool) cancelRemaining() {
	for {
		select {
		case j, ok := <-p.queue:
			if !ok {
				return
			}
			select {
			case j.result <- errs.NewRejected("pool", p.Counters()):
			default:
			}
		default:
			return
		}
	}
}

// Counters returns a point-in-time view of the pool's state.
func (p *Pool) Counters() map[string]int64 {
	return map[string]int64{
		"workers":            int64(p.workers),
		"queueCapacity":      int64(cap(p.queue)),
		"queueLen":           int64(len(p.queue)),
		"submitted":          atomic.LoadInt64(&p.submitted),
		"completed":          atomic.LoadInt64(&p.completed),
		"rejectedRolling":    p.rejectedRolling.Count(),
		"rejectedCumulative": atomic.LoadInt64(&p.cumulativeRejected),
		"timeoutRolling":     p.timeoutRolling.Count(),
		"timeoutCumulative":  atomic.LoadInt64(&p.cumulativeTimeout),
	}
}

// Reset clears the rolling rejection and timeout counters.
func (p *Pool) Reset() {
	p.rejectedRolling.Reset()
	p.timeoutRolling.Reset()
}

// Snapshot implements reporter.Collector.
func (p *Pool) Snapshot() map[string]int64 {
	return p.Counters()
}
