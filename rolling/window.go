package rolling

import (
	"sync"

	"github.com/vulcand/resilience/clock"
	"github.com/vulcand/resilience/errs"
)

// IRollingCount is the one published wire-level contract of this package:
// a plain rolling counter, with no value argument on Record since a
// Counting store ignores it. Implementations must preserve the array
// length N across calls and must never share the returned buffer with
// subsequent writes — callers get a copy.
type IRollingCount interface {
	Record()
	Reset()
	// GetAllElements returns a length-N snapshot, index 0 the oldest
	// bucket in the window, index N-1 the current bucket.
	GetAllElements() []int64
	// GetPreviousElements is GetAllElements with the current bucket
	// zeroed in the returned copy.
	GetPreviousElements() []int64
}

// Window owns one Store of length N plus a current-bucket cursor and a
// bucket epoch, rotating buckets on tick boundaries. It is the general
// building block behind rolling.Counter, latency.Tracker, and
// outcome.Tracker.
type Window struct {
	mu            sync.Mutex
	store         *Store
	n             int
	bucketWidthMs int64
	clock         clock.Clock

	lastTick int64
	cursor   int
}

// NewWindow creates a rolling window over n buckets spanning windowMs
// milliseconds; windowMs must be an exact multiple of n. c may be nil, in
// which case the system clock is used.
func NewWindow(kind Kind, n int, windowMs int64, c clock.Clock) (*Window, error) {
	if n <= 0 {
		return nil, errs.NewInvalidArgument("bucket count N must be > 0, got %d", n)
	}
	if windowMs <= 0 {
		return nil, errs.NewInvalidArgument("window duration must be > 0ms, got %d", windowMs)
	}
	if windowMs%int64(n) != 0 {
		return nil, errs.NewInvalidArgument("window duration %dms must be an exact multiple of bucket count %d", windowMs, n)
	}

	store, err := NewStore(kind, n)
	if err != nil {
		return nil, err
	}

	if c == nil {
		c = clock.System()
	}

	w := &Window{
		store:         store,
		n:             n,
		bucketWidthMs: windowMs / int64(n),
		clock:         c,
	}
	w.lastTick = w.tickNow()

	return w, nil
}

func (w *Window) tickNow() int64 {
	return w.clock.NowMs() / w.bucketWidthMs
}

// rotateLocked advances the cursor and clears crossed cells if the current
// tick has moved past lastTick. Must be called with w.mu held. A full
// sweep is capped at N clears; a backward or zero clock delta performs no
// rotation at all.
func (w *Window) rotateLocked() {
	tickNow := w.tickNow()
	delta := tickNow - w.lastTick
	if delta <= 0 {
		return
	}

	skip := delta
	if skip > int64(w.n) {
		skip = int64(w.n)
	}

	for i := int64(0); i < skip; i++ {
		w.cursor = (w.cursor + 1) % w.n
		w.store.resetCell(w.cursor)
	}

	w.lastTick = tickNow
}

// Record rotates if needed and records v into the now-current bucket. The
// rotation and the record happen under the same short critical section, so
// no writer can observe a record landing in a bucket its own rotation
// should have cleared.
func (w *Window) Record(v int64) {
	w.mu.Lock()
	w.rotateLocked()
	w.store.Record(w.cursor, v)
	w.mu.Unlock()
}

// reorderOldestFirst maps the store's physical ring layout (indexed by
// cursor) onto the public index convention: index 0 is the oldest bucket,
// index N-1 is the current one.
func reorderOldestFirst(raw []int64, cursor int) []int64 {
	n := len(raw)
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		out[i] = raw[(cursor+1+i)%n]
	}
	return out
}

// GetAll applies any pending rotation, then returns a length-N snapshot
// ordered oldest-first.
func (w *Window) GetAll() []int64 {
	w.mu.Lock()
	w.rotateLocked()
	cursor := w.cursor
	w.mu.Unlock()

	return reorderOldestFirst(w.store.Snapshot(), cursor)
}

// GetPrevious is GetAll with the current bucket (index N-1) cleared back
// to its empty value in the returned copy; the underlying store is
// untouched.
func (w *Window) GetPrevious() []int64 {
	all := w.GetAll()
	if len(all) > 0 {
		all[len(all)-1] = w.store.emptyValue()
	}
	return all
}

// ReduceAll applies the store's reduce rule to a single-element list
// containing GetAll's snapshot, so callers can combine windows from
// multiple collectors with the store's own combination rule.
func (w *Window) ReduceAll() ([]int64, error) {
	return w.store.Reduce([][]int64{w.GetAll()})
}

// ReducePrevious is ReduceAll over GetPrevious's snapshot.
func (w *Window) ReducePrevious() ([]int64, error) {
	return w.store.Reduce([][]int64{w.GetPrevious()})
}

// Total combines GetAll's snapshot per the store's kind: sum for
// Counting/Summing, max for Max, min for Min — the rolling aggregate over
// the whole window. A Min-kind window with no observations at all returns
// 0, not the internal empty-cell sentinel.
func (w *Window) Total() int64 {
	all := w.GetAll()

	switch w.store.kind {
	case Max:
		var m int64
		for i, v := range all {
			if i == 0 || v > m {
				m = v
			}
		}
		return m
	case Min:
		found := false
		var m int64
		for _, v := range all {
			if v == emptyCellValue {
				continue
			}
			if !found || v < m {
				m = v
				found = true
			}
		}
		if !found {
			return 0
		}
		return m
	default: // Counting, Summing
		var total int64
		for _, v := range all {
			total += v
		}
		return total
	}
}

// Reset clears the store and realigns the epoch to the current tick.
// Cumulative counters, if any, live outside Window and are untouched.
func (w *Window) Reset() {
	w.mu.Lock()
	w.store.Reset()
	w.cursor = 0
	w.lastTick = w.tickNow()
	w.mu.Unlock()
}

// Len returns N.
func (w *Window) Len() int {
	return w.n
}

// Counter is a Counting-kind Window exposing the public IRollingCount
// contract (record ignores its value, so Record takes none).
type Counter struct {
	w *Window
}

// NewCounter creates a rolling counter with n buckets over windowMs
// milliseconds.
func NewCounter(n int, windowMs int64, c clock.Clock) (*Counter, error) {
	w, err := NewWindow(Counting, n, windowMs, c)
	if err != nil {
		return nil, err
	}
	return &Counter{w: w}, nil
}

// Record increments the current bucket.
func (c *Counter) Record() { c.w.Record(1) }

// Reset clears the rolling buckets.
func (c *Counter) Reset() { c.w.Reset() }

// GetAllElements returns the oldest-first length-N snapshot.
func (c *Counter) GetAllElements() []int64 { return c.w.GetAll() }

// GetPreviousElements is GetAllElements with the current bucket zeroed.
func (c *Counter) GetPreviousElements() []int64 { return c.w.GetPrevious() }

// Count returns the rolling sum over the window.
func (c *Counter) Count() int64 { return c.w.Total() }

var _ IRollingCount = (*Counter)(nil)
