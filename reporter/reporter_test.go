package reporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulcand/resilience/clock"
	"github.com/vulcand/resilience/outcome"
	"github.com/vulcand/resilience/semaphore"
)

func TestReporterSnapshotPrefixesByName(t *testing.T) {
	c := clock.System()
	sem, err := semaphore.New(2, 4, 4000, c)
	require.NoError(t, err)
	tr, err := outcome.New(4, 4000, c)
	require.NoError(t, err)

	r := New()
	require.NoError(t, r.Register("gate", sem))
	require.NoError(t, r.Register("calls", tr))

	require.NoError(t, sem.TryAcquire())
	tr.Success()

	snap := r.Snapshot()
	assert.EqualValues(t, 1, snap["gate.capacity"]-snap["gate.available"])
	assert.EqualValues(t, 1, snap["calls.successRolling"])
}

func TestReporterRegisterRejectsEmptyNameOrNilCollector(t *testing.T) {
	r := New()
	sem, err := semaphore.New(1, 4, 4000, clock.System())
	require.NoError(t, err)

	assert.Error(t, r.Register("", sem))
	assert.Error(t, r.Register("x", nil))
}

func TestReporterRegisterReplacesInPlace(t *testing.T) {
	r := New()
	sem1, err := semaphore.New(1, 4, 4000, clock.System())
	require.NoError(t, err)
	sem2, err := semaphore.New(5, 4, 4000, clock.System())
	require.NoError(t, err)

	require.NoError(t, r.Register("gate", sem1))
	require.NoError(t, r.Register("other", sem2))
	require.NoError(t, r.Register("gate", sem2))

	assert.Equal(t, []string{"gate", "other"}, r.Names())
	assert.EqualValues(t, 5, r.Snapshot()["gate.capacity"])
}

func TestReporterDeregisterRemovesCollector(t *testing.T) {
	r := New()
	sem, err := semaphore.New(1, 4, 4000, clock.System())
	require.NoError(t, err)

	require.NoError(t, r.Register("gate", sem))
	r.Deregister("gate")

	assert.Empty(t, r.Names())
	assert.Empty(t, r.Snapshot())
}

func TestReporterSnapshotEmptyReporterYieldsEmptyMap(t *testing.T) {
	r := New()
	assert.Empty(t, r.Snapshot())
}
