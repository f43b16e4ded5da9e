package ingest

import (
	"errors"
	"math"
	"slices"
	"time"

	"github.com/NordCoder/Tally/internal/domain/measurement"
)

var (
	ErrEmptyBatch = errors.New("cannot aggregate an empty batch")
	ErrNonFinite  = errors.New("non-finite value in batch")
)

type Stats struct {
	ElapsedSeconds       float64
	FirstOperationStart  time.Time
	AverageExecutionTime float64
	AverageValue         float64
	MedianValue          float64
	MaxValue             float64
	MinValue             float64
	RowCount             int
}

// Aggregate reduces a validated batch. It never returns zeroed stats:
// an empty batch is ErrEmptyBatch and a NaN/Inf anywhere is ErrNonFinite.
func Aggregate(records []measurement.Record) (Stats, error) {
	n := len(records)
	if n == 0 {
		return Stats{}, ErrEmptyBatch
	}

	values := make([]float64, n)
	minTS, maxTS := records[0].Timestamp, records[0].Timestamp
	var sumExec, sumValue float64
	for i := range records {
		r := &records[i]
		if !finite(r.ExecutionTime) || !finite(r.Value) {
			return Stats{}, ErrNonFinite
		}
		if r.Timestamp.Before(minTS) {
			minTS = r.Timestamp
		}
		if r.Timestamp.After(maxTS) {
			maxTS = r.Timestamp
		}
		sumExec += r.ExecutionTime
		sumValue += r.Value
		values[i] = r.Value
	}
	slices.Sort(values)

	st := Stats{
		ElapsedSeconds:       secondsBetween(minTS, maxTS),
		FirstOperationStart:  minTS.UTC(),
		AverageExecutionTime: sumExec / float64(n),
		AverageValue:         sumValue / float64(n),
		MedianValue:          median(values),
		MaxValue:             values[n-1],
		MinValue:             values[0],
		RowCount:             n,
	}
	if !finite(st.AverageExecutionTime) || !finite(st.AverageValue) || !finite(st.MedianValue) {
		return Stats{}, ErrNonFinite
	}
	return st, nil
}

// median expects sorted input.
func median(sorted []float64) float64 {
	n := len(sorted)
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// secondsBetween avoids time.Duration, which overflows past ~292 years.
func secondsBetween(from, to time.Time) float64 {
	secs := float64(to.Unix() - from.Unix())
	nanos := float64(to.Nanosecond() - from.Nanosecond())
	return secs + nanos/1e9
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
