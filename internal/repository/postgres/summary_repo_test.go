package postgres

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Tally/internal/domain/measurement"
)

func TestSummaryListQuery_NoFilter(t *testing.T) {
	q, args := summaryListQuery(measurement.SummaryFilter{})
	assert.NotContains(t, q, "WHERE")
	assert.True(t, strings.HasSuffix(q, "ORDER BY created_at DESC, id DESC;"))
	assert.Empty(t, args)
}

func TestSummaryListQuery_AllFilters(t *testing.T) {
	name := "a.csv"
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	avLo, avHi, exLo, exHi := 1.0, 2.0, 3.0, 4.0

	q, args := summaryListQuery(measurement.SummaryFilter{
		FileName:                 &name,
		StartFrom:                &from,
		StartTo:                  &to,
		AverageValueFrom:         &avLo,
		AverageValueTo:           &avHi,
		AverageExecutionTimeFrom: &exLo,
		AverageExecutionTimeTo:   &exHi,
	})

	assert.Contains(t, q, "WHERE file_name = $1 AND first_operation_start >= $2 AND first_operation_start <= $3"+
		" AND average_value >= $4 AND average_value <= $5"+
		" AND average_execution_time >= $6 AND average_execution_time <= $7")
	assert.Equal(t, []any{name, from, to, avLo, avHi, exLo, exHi}, args)
}

func TestSummaryListQuery_Partial(t *testing.T) {
	hi := 9.5
	q, args := summaryListQuery(measurement.SummaryFilter{AverageValueTo: &hi})
	assert.Contains(t, q, "WHERE average_value <= $1\n")
	assert.Equal(t, []any{hi}, args)
}

func TestParseIsolation(t *testing.T) {
	for in, want := range map[string]pgx.TxIsoLevel{
		"":                pgx.ReadCommitted,
		"read_committed":  pgx.ReadCommitted,
		"Repeatable Read": pgx.RepeatableRead,
		"serializable":    pgx.Serializable,
	} {
		got, err := ParseIsolation(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseIsolation("read uncommitted")
	assert.Error(t, err)
}

func TestMapPgErr(t *testing.T) {
	err := mapPgErr(&pgconn.PgError{Code: pgUniqueViolation})
	assert.ErrorIs(t, err, ErrConflict)

	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr))

	assert.ErrorIs(t, mapPgErr(&pgconn.PgError{Code: pgCheckViolation}), ErrConstraint)
	assert.ErrorIs(t, mapPgErr(pgx.ErrNoRows), ErrNotFound)

	other := errors.New("x")
	assert.Equal(t, other, mapPgErr(other))
}
