package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/NordCoder/Tally/internal/domain/measurement"
)

const (
	TimestampPattern = "YYYY-MM-DDTHH-mm-ss.ffffZ"
	timestampLayout  = "2006-01-02T15-04-05.0000Z"

	fieldSeparator = ";"
	fieldCount     = 3
	maxLineBytes   = 1 << 20
	byteOrderMark  = "\uFEFF"
)

var (
	timestampRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}\.\d{4}Z$`)
	decimalRe   = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

	fieldNames = [fieldCount]string{"timestamp", "execution time", "value"}
)

type ErrorCode string

const (
	CodeColumnCount  ErrorCode = "column_count"
	CodeMissingValue ErrorCode = "missing_value"
	CodeBadTimestamp ErrorCode = "bad_timestamp"
	CodeBadNumber    ErrorCode = "bad_number"
	CodeLineTooLong  ErrorCode = "line_too_long"
)

// ParseError pins a malformed input line. Line is 1-based and counts blank lines.
type ParseError struct {
	Line   int
	Field  string
	Code   ErrorCode
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Parser turns `<timestamp>;<executionTime>;<value>` lines into records.
type Parser struct{}

func NewParser() *Parser { return &Parser{} }

// Parse reads every line of r. The first malformed line aborts with a *ParseError;
// read failures of r are returned unchanged.
func (p *Parser) Parse(r io.Reader, fileName string) ([]measurement.Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		out    []measurement.Record
		lineNo int
	)
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if lineNo == 1 {
			line = strings.TrimPrefix(line, byteOrderMark)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := parseLine(line, lineNo)
		if err != nil {
			return nil, err
		}
		rec.FileName = fileName
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, &ParseError{
				Line:   lineNo + 1,
				Code:   CodeLineTooLong,
				Reason: fmt.Sprintf("line exceeds %d bytes", maxLineBytes),
			}
		}
		return nil, fmt.Errorf("read input: %w", err)
	}
	return out, nil
}

func parseLine(line string, lineNo int) (measurement.Record, error) {
	parts := strings.Split(line, fieldSeparator)
	if len(parts) != fieldCount {
		return measurement.Record{}, &ParseError{
			Line:   lineNo,
			Code:   CodeColumnCount,
			Reason: fmt.Sprintf("expected %d columns, got %d", fieldCount, len(parts)),
		}
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return measurement.Record{}, &ParseError{
				Line:   lineNo,
				Field:  fieldNames[i],
				Code:   CodeMissingValue,
				Reason: fmt.Sprintf("missing %s (all three values must be present: timestamp, execution time, value)", fieldNames[i]),
			}
		}
	}

	ts, err := parseTimestamp(parts[0])
	if err != nil {
		return measurement.Record{}, &ParseError{
			Line:   lineNo,
			Field:  fieldNames[0],
			Code:   CodeBadTimestamp,
			Reason: fmt.Sprintf("invalid timestamp %q, expected format %s", parts[0], TimestampPattern),
		}
	}

	var nums [2]float64
	for i := 1; i < fieldCount; i++ {
		v, ok := parseDecimal(parts[i])
		if !ok {
			return measurement.Record{}, &ParseError{
				Line:   lineNo,
				Field:  fieldNames[i],
				Code:   CodeBadNumber,
				Reason: fmt.Sprintf("invalid %s %q, expected a decimal number", fieldNames[i], parts[i]),
			}
		}
		nums[i-1] = v
	}

	return measurement.Record{
		Timestamp:     ts,
		ExecutionTime: nums[0],
		Value:         nums[1],
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if !timestampRe.MatchString(s) {
		return time.Time{}, errors.New("pattern mismatch")
	}
	t, err := time.ParseInLocation(timestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func parseDecimal(s string) (float64, bool) {
	if !decimalRe.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
