package semaphore

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mailgun/timetools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulcand/resilience/clock"
	"github.com/vulcand/resilience/errs"
)

func newFrozen() clock.Clock {
	return clock.New(&timetools.FreezedTime{CurrentTime: time.Unix(0, 0)})
}

// S5 — Semaphore reject: capacity 2, three concurrent holders; the third
// returns Rejected and the rejected-rolling counter reads 1.
func TestSemaphoreScenarioS5(t *testing.T) {
	s, err := New(2, 4, 4000, newFrozen())
	require.NoError(t, err)

	require.NoError(t, s.TryAcquire())
	require.NoError(t, s.TryAcquire())

	err = s.TryAcquire()
	require.Error(t, err)

	var rejected *errs.RejectedError
	require.ErrorAs(t, err, &rejected)

	assert.EqualValues(t, 1, s.Counters()["rejectedRolling"])
}

func TestSemaphoreConservationAtQuiescence(t *testing.T) {
	s, err := New(3, 4, 4000, newFrozen())
	require.NoError(t, err)

	require.NoError(t, s.TryAcquire())
	require.NoError(t, s.TryAcquire())

	assert.Equal(t, s.Capacity(), s.Available()+s.Inflight())

	s.Release()
	s.Release()

	assert.Equal(t, s.Capacity(), s.Available())
}

func TestSemaphoreDoRunsFnAndAlwaysReleases(t *testing.T) {
	s, err := New(1, 4, 4000, newFrozen())
	require.NoError(t, err)

	sentinel := errors.New("boom")
	err = s.Do(func() error { return sentinel })
	require.ErrorIs(t, err, sentinel)

	assert.Equal(t, int64(1), s.Available())
}

func TestSemaphoreConcurrentAcquireNeverExceedsCapacity(t *testing.T) {
	s, err := New(5, 4, 4000, newFrozen())
	require.NoError(t, err)

	var wg sync.WaitGroup
	var succeeded, errCount int32

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.TryAcquire(); err != nil {
				atomic.AddInt32(&errCount, 1)
				return
			}
			atomic.AddInt32(&succeeded, 1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, int64(succeeded), int64(5))
	assert.EqualValues(t, 50, succeeded+errCount)
}
