package outcome

import (
	"errors"
	"testing"
	"time"

	"github.com/mailgun/timetools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulcand/resilience/clock"
)

func TestTrackerCallRecordsSuccessAndFailure(t *testing.T) {
	ft := &timetools.FreezedTime{CurrentTime: time.Unix(0, 0)}
	c := clock.New(ft)

	tr, err := New(4, 4000, c)
	require.NoError(t, err)

	sentinel := errors.New("boom")

	require.NoError(t, tr.Call(func() error { return nil }))
	require.ErrorIs(t, tr.Call(func() error { return sentinel }), sentinel)

	assert.EqualValues(t, 1, tr.SuccessCount())
	assert.EqualValues(t, 1, tr.FailureCount())
	assert.EqualValues(t, 1, tr.CumulativeSuccessCount())
	assert.EqualValues(t, 1, tr.CumulativeFailureCount())
}

func TestTrackerResetPreservesCumulative(t *testing.T) {
	ft := &timetools.FreezedTime{CurrentTime: time.Unix(0, 0)}
	c := clock.New(ft)

	tr, err := New(4, 4000, c)
	require.NoError(t, err)

	tr.Success()
	tr.Failure()
	tr.Reset()

	assert.EqualValues(t, 0, tr.SuccessCount())
	assert.EqualValues(t, 0, tr.FailureCount())
	assert.EqualValues(t, 1, tr.CumulativeSuccessCount())
	assert.EqualValues(t, 1, tr.CumulativeFailureCount())
}
