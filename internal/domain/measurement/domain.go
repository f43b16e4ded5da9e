package measurement

import (
	"time"

	"github.com/google/uuid"
)

const MaxFileNameLen = 256

// Record is one ingested row of a measurement file.
type Record struct {
	ID            uuid.UUID `json:"id"`
	FileName      string    `json:"file_name"`
	Timestamp     time.Time `json:"timestamp"`
	ExecutionTime float64   `json:"execution_time"`
	Value         float64   `json:"value"`
	CreatedAt     time.Time `json:"created_at"`
}

// Summary is the aggregate computed over the current record set of one file.
type Summary struct {
	ID                   uuid.UUID `json:"id"`
	FileName             string    `json:"file_name"`
	ElapsedSeconds       float64   `json:"elapsed_seconds"`
	FirstOperationStart  time.Time `json:"first_operation_start"`
	AverageExecutionTime float64   `json:"average_execution_time"`
	AverageValue         float64   `json:"average_value"`
	MedianValue          float64   `json:"median_value"`
	MaxValue             float64   `json:"max_value"`
	MinValue             float64   `json:"min_value"`
	RowCount             int       `json:"row_count"`
	CreatedAt            time.Time `json:"created_at"`
}

// SummaryFilter narrows a summary listing. Nil fields are not applied; ranges are inclusive.
type SummaryFilter struct {
	FileName                 *string
	StartFrom                *time.Time
	StartTo                  *time.Time
	AverageValueFrom         *float64
	AverageValueTo           *float64
	AverageExecutionTimeFrom *float64
	AverageExecutionTimeTo   *float64
}

func (f SummaryFilter) Match(s *Summary) bool {
	switch {
	case f.FileName != nil && s.FileName != *f.FileName:
		return false
	case f.StartFrom != nil && s.FirstOperationStart.Before(*f.StartFrom):
		return false
	case f.StartTo != nil && s.FirstOperationStart.After(*f.StartTo):
		return false
	case f.AverageValueFrom != nil && s.AverageValue < *f.AverageValueFrom:
		return false
	case f.AverageValueTo != nil && s.AverageValue > *f.AverageValueTo:
		return false
	case f.AverageExecutionTimeFrom != nil && s.AverageExecutionTime < *f.AverageExecutionTimeFrom:
		return false
	case f.AverageExecutionTimeTo != nil && s.AverageExecutionTime > *f.AverageExecutionTimeTo:
		return false
	}
	return true
}
