package rolling

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulcand/resilience/errs"
)

func TestStoreCountingRecordAndSnapshot(t *testing.T) {
	s, err := NewStore(Counting, 4)
	require.NoError(t, err)

	s.Record(0, 99) // value ignored for Counting
	s.Record(0, 1)
	s.Record(2, 1)

	assert.Equal(t, []int64{2, 0, 1, 0}, s.Snapshot())
}

func TestStoreSummingRecord(t *testing.T) {
	s, err := NewStore(Summing, 3)
	require.NoError(t, err)

	s.Record(1, 5)
	s.Record(1, 3)

	assert.Equal(t, []int64{0, 8, 0}, s.Snapshot())
}

func TestStoreMaxMonotonic(t *testing.T) {
	s, err := NewStore(Max, 2)
	require.NoError(t, err)

	s.Record(0, 5)
	s.Record(0, 3) // lower value must not decrease the cell
	s.Record(0, 7)

	assert.Equal(t, []int64{7, 0}, s.Snapshot())
}

func TestStoreMinMonotonic(t *testing.T) {
	s, err := NewStore(Min, 2)
	require.NoError(t, err)

	assert.Equal(t, []int64{emptyCellValue, emptyCellValue}, s.Snapshot())

	s.Record(0, 100)
	s.Record(0, 50) // lower value must win
	s.Record(0, 200)

	assert.Equal(t, []int64{50, emptyCellValue}, s.Snapshot())
}

func TestStoreMinResetRestoresEmptyValue(t *testing.T) {
	s, err := NewStore(Min, 2)
	require.NoError(t, err)

	s.Record(0, 50)
	s.resetCell(0)

	assert.Equal(t, []int64{emptyCellValue, emptyCellValue}, s.Snapshot())

	s.Record(0, 50)
	s.Reset()

	assert.Equal(t, []int64{emptyCellValue, emptyCellValue}, s.Snapshot())
}

func TestStoreReduceMin(t *testing.T) {
	minStore, err := NewStore(Min, 2)
	require.NoError(t, err)

	out, err := minStore.Reduce([][]int64{{5, 9}, {3, 12}})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 9}, out)
}

func TestStoreResetZeroesAllCells(t *testing.T) {
	s, err := NewStore(Summing, 3)
	require.NoError(t, err)

	s.Record(0, 1)
	s.Record(1, 2)
	s.Reset()

	assert.Equal(t, []int64{0, 0, 0}, s.Snapshot())
}

func TestStoreReduceEmptyYieldsZeroLength(t *testing.T) {
	s, err := NewStore(Summing, 3)
	require.NoError(t, err)

	out, err := s.Reduce(nil)
	require.NoError(t, err)
	assert.Len(t, out, 0)
}

func TestStoreReduceIdempotence(t *testing.T) {
	a := []int64{1, 2, 3}

	summing, err := NewStore(Summing, 3)
	require.NoError(t, err)
	out, err := summing.Reduce([][]int64{a})
	require.NoError(t, err)
	assert.Equal(t, a, out)

	out, err = summing.Reduce([][]int64{a, {0, 0, 0}})
	require.NoError(t, err)
	assert.Equal(t, a, out)

	maxStore, err := NewStore(Max, 3)
	require.NoError(t, err)
	out, err = maxStore.Reduce([][]int64{a})
	require.NoError(t, err)
	assert.Equal(t, a, out)

	out, err = maxStore.Reduce([][]int64{a, {0, 0, 0}})
	require.NoError(t, err)
	assert.Equal(t, a, out)
}

func TestStoreReduceSumAndMax(t *testing.T) {
	counting, err := NewStore(Counting, 2)
	require.NoError(t, err)
	out, err := counting.Reduce([][]int64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 6}, out)

	maxStore, err := NewStore(Max, 2)
	require.NoError(t, err)
	out, err = maxStore.Reduce([][]int64{{1, 9}, {3, 4}})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 9}, out)
}

func TestStoreReduceMismatchedLengthsFail(t *testing.T) {
	s, err := NewStore(Summing, 2)
	require.NoError(t, err)

	_, err = s.Reduce([][]int64{{1, 2}, {1, 2, 3}})
	require.Error(t, err)
	var invalidArg *errs.InvalidArgumentError
	assert.True(t, errors.As(err, &invalidArg))
}

func TestNewStoreRejectsNonPositiveLength(t *testing.T) {
	_, err := NewStore(Counting, 0)
	require.Error(t, err)
}
