package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/Tally/internal/domain/measurement"
)

type RecordRepo struct{ db *DB }

func NewRecordRepo(db *DB) *RecordRepo { return &RecordRepo{db: db} }

var _ measurement.RecordRepo = (*RecordRepo)(nil)

var recordColumns = []string{"id", "file_name", "ts", "execution_time", "value", "created_at"}

const (
	qDeleteRecords = `DELETE FROM measurement_records WHERE file_name = $1;`

	qLastRecords = `
SELECT id, file_name, ts, execution_time, value, created_at
FROM (
    SELECT id, file_name, ts, execution_time, value, created_at
    FROM measurement_records
    WHERE file_name = $1
    ORDER BY ts DESC, id DESC
    LIMIT $2
) last
ORDER BY ts ASC, id ASC;`
)

// InsertBatch streams records with COPY; inside a transaction the rows are
// visible only to that transaction until commit.
func (r *RecordRepo) InsertBatch(ctx context.Context, records []measurement.Record) error {
	if len(records) == 0 {
		return nil
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	n, err := r.db.execQueryer(ctx).CopyFrom(ctx,
		pgx.Identifier{"measurement_records"},
		recordColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			rec := &records[i]
			return []any{rec.ID, rec.FileName, rec.Timestamp, rec.ExecutionTime, rec.Value, rec.CreatedAt}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy records: %w", mapPgErr(err))
	}
	if n != int64(len(records)) {
		return fmt.Errorf("copy records: wrote %d of %d", n, len(records))
	}
	return nil
}

func (r *RecordRepo) DeleteByFileName(ctx context.Context, fileName string) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qDeleteRecords, fileName)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *RecordRepo) LastByFileName(ctx context.Context, fileName string, limit int) ([]measurement.Record, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := r.db.execQueryer(ctx).Query(ctx, qLastRecords, fileName, lim)
	if err != nil {
		return nil, fmt.Errorf("last records: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (measurement.Record, error) {
		var rec measurement.Record
		err := row.Scan(&rec.ID, &rec.FileName, &rec.Timestamp, &rec.ExecutionTime, &rec.Value, &rec.CreatedAt)
		rec.Timestamp = rec.Timestamp.UTC()
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}
	return out, nil
}
