// Package rolling implements the fixed-capacity circular buffer of
// time-sliced buckets that every other primitive in this module records
// into, plus the time-bucketed RollingWindow façade built on top of it.
//
// This is the core of the toolkit: lock-free per-cell updates (atomic
// increment, add, or CAS-max/CAS-min) with rotation handled by a short
// critical section, following the teacher's memmetrics.RollingCounter
// design.
package rolling

import (
	"math"
	"sync/atomic"

	"github.com/vulcand/resilience/errs"
)

// Kind selects a bucket store's update/reduce rule.
type Kind int

const (
	// Counting ignores the recorded value and increments the cell by 1.
	Counting Kind = iota
	// Summing adds the recorded value to the cell.
	Summing
	// Max raises the cell to the maximum of its current value and the
	// recorded value, via a CAS retry loop. The cell never decreases.
	Max
	// Min lowers the cell to the minimum of its current value and the
	// recorded value, via a CAS retry loop. The cell never increases.
	// Cells start at math.MaxInt64 ("no observation yet") rather than 0,
	// since 0 would otherwise masquerade as a real, and usually wrong,
	// minimum.
	Min
)

// emptyCellValue is the zero-observation sentinel for a Min-kind store's
// cells; every other kind zero-initializes normally.
const emptyCellValue = int64(math.MaxInt64)

// Store is a fixed-length sequence of atomically-updated cells. Its
// record/reduce behavior is determined by Kind. Every cell is
// independently updatable; |cells| == N for the life of the store.
type Store struct {
	kind  Kind
	cells []int64
}

// NewStore creates a Store of the given kind with n cells. Min-kind cells
// start at emptyCellValue; every other kind starts zeroed.
func NewStore(kind Kind, n int) (*Store, error) {
	if n <= 0 {
		return nil, errs.NewInvalidArgument("bucket count must be > 0, got %d", n)
	}
	s := &Store{kind: kind, cells: make([]int64, n)}
	if kind == Min {
		for i := range s.cells {
			s.cells[i] = emptyCellValue
		}
	}
	return s, nil
}

// Len returns the fixed cell count N.
func (s *Store) Len() int {
	return len(s.cells)
}

// Record applies this store's update rule to cell i.
func (s *Store) Record(i int, v int64) {
	switch s.kind {
	case Counting:
		atomic.AddInt64(&s.cells[i], 1)
	case Summing:
		atomic.AddInt64(&s.cells[i], v)
	case Max:
		casMax(&s.cells[i], v)
	case Min:
		casMin(&s.cells[i], v)
	}
}

// casMax raises *addr to max(*addr, v) via a CAS retry loop. It exits as
// soon as v <= the current value or the CAS lands; a CAS failure just means
// a concurrent writer beat us to it and is retried, never reported.
func casMax(addr *int64, v int64) {
	for {
		prev := atomic.LoadInt64(addr)
		if v <= prev {
			return
		}
		if atomic.CompareAndSwapInt64(addr, prev, v) {
			return
		}
	}
}

// casMin lowers *addr to min(*addr, v) via a CAS retry loop, symmetric with
// casMax.
func casMin(addr *int64, v int64) {
	for {
		prev := atomic.LoadInt64(addr)
		if v >= prev {
			return
		}
		if atomic.CompareAndSwapInt64(addr, prev, v) {
			return
		}
	}
}

// resetCell clears a single cell back to its empty value (emptyCellValue
// for Min, 0 for every other kind). Used by Window rotation to clear
// crossed buckets; idempotent, so concurrent rotations racing on the same
// cell are harmless.
func (s *Store) resetCell(i int) {
	atomic.StoreInt64(&s.cells[i], s.emptyValue())
}

// emptyValue is the value a just-reset, no-observations-yet cell holds.
func (s *Store) emptyValue() int64 {
	if s.kind == Min {
		return emptyCellValue
	}
	return 0
}

// Snapshot returns a fresh length-N array with each cell's current value.
// Reads are per-cell atomic loads with no global barrier: the result may
// straddle concurrent updates to different cells. That is intentional (see
// package rolling doc and spec §5) — rolling metrics tolerate ±1 bucket
// jitter rather than pay for a globally atomic snapshot.
func (s *Store) Snapshot() []int64 {
	out := make([]int64, len(s.cells))
	for i := range s.cells {
		out[i] = atomic.LoadInt64(&s.cells[i])
	}
	return out
}

// Reset sets every cell back to its empty value (emptyCellValue for Min, 0
// for every other kind).
func (s *Store) Reset() {
	v := s.emptyValue()
	for i := range s.cells {
		atomic.StoreInt64(&s.cells[i], v)
	}
}

// Reduce combines zero or more length-N arrays element-wise per this
// store's variant (sum for Counting/Summing, max for Max, min for Min). An
// empty input yields a zero-length array. All inputs must share the first
// input's length, or Reduce fails with InvalidArgumentError — it never
// truncates.
func (s *Store) Reduce(colls [][]int64) ([]int64, error) {
	if len(colls) == 0 {
		return []int64{}, nil
	}

	n := len(colls[0])
	out := make([]int64, n)

	switch s.kind {
	case Max:
		copy(out, colls[0])
		for _, c := range colls[1:] {
			if len(c) != n {
				return nil, errs.NewInvalidArgument("reduce: mismatched array length %d, want %d", len(c), n)
			}
			for i, v := range c {
				if v > out[i] {
					out[i] = v
				}
			}
		}
	case Min:
		copy(out, colls[0])
		for _, c := range colls[1:] {
			if len(c) != n {
				return nil, errs.NewInvalidArgument("reduce: mismatched array length %d, want %d", len(c), n)
			}
			for i, v := range c {
				if v < out[i] {
					out[i] = v
				}
			}
		}
	default: // Counting, Summing
		for _, c := range colls {
			if len(c) != n {
				return nil, errs.NewInvalidArgument("reduce: mismatched array length %d, want %d", len(c), n)
			}
			for i, v := range c {
				out[i] += v
			}
		}
	}

	return out, nil
}
