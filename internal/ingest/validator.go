package ingest

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/NordCoder/Tally/internal/domain/measurement"
)

const DefaultMaxRows = 10000

var DefaultMinDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

type ViolationCode string

const (
	ViolationTooFewRows            ViolationCode = "too_few_rows"
	ViolationTooManyRows           ViolationCode = "too_many_rows"
	ViolationTimestampInFuture     ViolationCode = "timestamp_in_future"
	ViolationTimestampTooEarly     ViolationCode = "timestamp_too_early"
	ViolationNegativeExecutionTime ViolationCode = "negative_execution_time"
	ViolationNegativeValue         ViolationCode = "negative_value"
	ViolationFileNameInvalid       ViolationCode = "file_name_invalid"
)

// Violation is one failed rule. Row is 1-based; 0 means the rule applies to the whole batch.
type Violation struct {
	Code    ViolationCode `json:"code"`
	Row     int           `json:"row,omitempty"`
	Message string        `json:"message"`
}

type ValidatorConfig struct {
	MaxRows int
	MinDate time.Time
}

type Validator struct {
	maxRows int
	minDate time.Time
	clk     func() time.Time
}

func NewValidator(cfg ValidatorConfig, clk func() time.Time) *Validator {
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = DefaultMaxRows
	}
	if cfg.MinDate.IsZero() {
		cfg.MinDate = DefaultMinDate
	}
	if clk == nil {
		clk = func() time.Time { return time.Now().UTC() }
	}
	return &Validator{maxRows: cfg.MaxRows, minDate: cfg.MinDate.UTC(), clk: clk}
}

// Validate applies every rule to every row and returns all violations, in row order
// after the batch-level ones. An empty result means the batch is valid.
func (v *Validator) Validate(records []measurement.Record) []Violation {
	var out []Violation

	if len(records) < 1 {
		out = append(out, Violation{Code: ViolationTooFewRows, Message: "file must contain at least 1 row"})
	}
	if len(records) > v.maxRows {
		out = append(out, Violation{
			Code:    ViolationTooManyRows,
			Message: fmt.Sprintf("file cannot contain more than %d rows", v.maxRows),
		})
	}

	now := v.clk()
	minDate := v.minDate.Format(time.DateOnly)
	for i := range records {
		r := &records[i]
		row := i + 1
		if r.Timestamp.After(now) {
			out = append(out, rowViolation(ViolationTimestampInFuture, row, "timestamp cannot be in the future"))
		}
		if r.Timestamp.Before(v.minDate) {
			out = append(out, rowViolation(ViolationTimestampTooEarly, row, "timestamp cannot be earlier than "+minDate))
		}
		if r.ExecutionTime < 0 {
			out = append(out, rowViolation(ViolationNegativeExecutionTime, row, "execution time cannot be negative"))
		}
		if r.Value < 0 {
			out = append(out, rowViolation(ViolationNegativeValue, row, "value cannot be negative"))
		}
	}
	return out
}

// ValidateFileName checks the grouping key before any parsing happens.
func ValidateFileName(name string) []Violation {
	switch {
	case strings.TrimSpace(name) == "":
		return []Violation{{Code: ViolationFileNameInvalid, Message: "file name is required"}}
	case utf8.RuneCountInString(name) > measurement.MaxFileNameLen:
		return []Violation{{
			Code:    ViolationFileNameInvalid,
			Message: fmt.Sprintf("file name cannot be longer than %d characters", measurement.MaxFileNameLen),
		}}
	}
	return nil
}

func rowViolation(code ViolationCode, row int, msg string) Violation {
	return Violation{Code: code, Row: row, Message: fmt.Sprintf("row %d: %s", row, msg)}
}

func violationMessages(vs []Violation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Message)
	}
	return out
}
