package ingest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Tally/internal/domain/measurement"
)

func valuesBatch(vals ...float64) []measurement.Record {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]measurement.Record, len(vals))
	for i, v := range vals {
		out[i] = rec(base.Add(time.Duration(i)*time.Minute), 1, v)
	}
	return out
}

func TestMedian(t *testing.T) {
	st, err := Aggregate(valuesBatch(9, 3, 1, 6, 3, 8, 7))
	require.NoError(t, err)
	assert.Equal(t, 6.0, st.MedianValue)

	st, err = Aggregate(valuesBatch(4, 1, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, 2.5, st.MedianValue)

	st, err = Aggregate(valuesBatch(42))
	require.NoError(t, err)
	assert.Equal(t, 42.0, st.MedianValue)
}

func TestAggregate_Demo(t *testing.T) {
	batch := []measurement.Record{
		rec(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), 2.5, 20),
		rec(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), 1.5, 10),
	}
	st, err := Aggregate(batch)
	require.NoError(t, err)

	assert.Equal(t, Stats{
		ElapsedSeconds:       7200,
		FirstOperationStart:  time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		AverageExecutionTime: 2,
		AverageValue:         15,
		MedianValue:          15,
		MaxValue:             20,
		MinValue:             10,
		RowCount:             2,
	}, st)
}

func TestAggregate_FractionalElapsed(t *testing.T) {
	batch := []measurement.Record{
		rec(time.Date(2024, 1, 1, 0, 0, 0, 500_000_000, time.UTC), 1, 1),
		rec(time.Date(2024, 1, 1, 0, 0, 2, 0, time.UTC), 1, 1),
	}
	st, err := Aggregate(batch)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, st.ElapsedSeconds, 1e-9)
}

func TestAggregate_Empty(t *testing.T) {
	_, err := Aggregate(nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestAggregate_NonFinite(t *testing.T) {
	_, err := Aggregate(valuesBatch(1, math.NaN()))
	assert.ErrorIs(t, err, ErrNonFinite)

	_, err = Aggregate(valuesBatch(math.MaxFloat64, math.MaxFloat64))
	assert.ErrorIs(t, err, ErrNonFinite)
}
