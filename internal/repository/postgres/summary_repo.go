package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/Tally/internal/domain/measurement"
)

type SummaryRepo struct{ db *DB }

func NewSummaryRepo(db *DB) *SummaryRepo { return &SummaryRepo{db: db} }

var _ measurement.SummaryRepo = (*SummaryRepo)(nil)

const (
	qInsertSummary = `
INSERT INTO summaries (
    id, file_name, elapsed_seconds, first_operation_start, average_execution_time,
    average_value, median_value, max_value, min_value, row_count, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`

	qDeleteSummary = `DELETE FROM summaries WHERE file_name = $1;`

	qSelectSummaries = `
SELECT id, file_name, elapsed_seconds, first_operation_start, average_execution_time,
       average_value, median_value, max_value, min_value, row_count, created_at
FROM summaries`
)

func (r *SummaryRepo) Insert(ctx context.Context, s *measurement.Summary) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err := r.db.execQueryer(ctx).Exec(ctx, qInsertSummary,
		s.ID, s.FileName, s.ElapsedSeconds, s.FirstOperationStart, s.AverageExecutionTime,
		s.AverageValue, s.MedianValue, s.MaxValue, s.MinValue, s.RowCount, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert summary: %w", mapPgErr(err))
	}
	return nil
}

func (r *SummaryRepo) DeleteByFileName(ctx context.Context, fileName string) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qDeleteSummary, fileName)
	if err != nil {
		return 0, fmt.Errorf("delete summary: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SummaryRepo) List(ctx context.Context, f measurement.SummaryFilter) ([]measurement.Summary, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query, args := summaryListQuery(f)
	rows, err := r.db.execQueryer(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (measurement.Summary, error) {
		var s measurement.Summary
		err := row.Scan(&s.ID, &s.FileName, &s.ElapsedSeconds, &s.FirstOperationStart, &s.AverageExecutionTime,
			&s.AverageValue, &s.MedianValue, &s.MaxValue, &s.MinValue, &s.RowCount, &s.CreatedAt)
		s.FirstOperationStart = s.FirstOperationStart.UTC()
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan summaries: %w", err)
	}
	return out, nil
}

// summaryListQuery appends one inclusive predicate per set filter field.
func summaryListQuery(f measurement.SummaryFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if f.FileName != nil {
		add("file_name = ?", *f.FileName)
	}
	if f.StartFrom != nil {
		add("first_operation_start >= ?", *f.StartFrom)
	}
	if f.StartTo != nil {
		add("first_operation_start <= ?", *f.StartTo)
	}
	if f.AverageValueFrom != nil {
		add("average_value >= ?", *f.AverageValueFrom)
	}
	if f.AverageValueTo != nil {
		add("average_value <= ?", *f.AverageValueTo)
	}
	if f.AverageExecutionTimeFrom != nil {
		add("average_execution_time >= ?", *f.AverageExecutionTimeFrom)
	}
	if f.AverageExecutionTimeTo != nil {
		add("average_execution_time <= ?", *f.AverageExecutionTimeTo)
	}

	var sb strings.Builder
	sb.WriteString(qSelectSummaries)
	if len(conds) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	sb.WriteString("\nORDER BY created_at DESC, id DESC;")
	return sb.String(), args
}
