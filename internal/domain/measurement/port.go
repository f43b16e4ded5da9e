package measurement

import "context"

// RecordRepo stores raw rows. Calls made with a transactional context join that transaction.
type RecordRepo interface {
	InsertBatch(ctx context.Context, records []Record) error
	DeleteByFileName(ctx context.Context, fileName string) (int64, error)
	LastByFileName(ctx context.Context, fileName string, limit int) ([]Record, error)
}

type SummaryRepo interface {
	Insert(ctx context.Context, s *Summary) error
	DeleteByFileName(ctx context.Context, fileName string) (int64, error)
	List(ctx context.Context, f SummaryFilter) ([]Summary, error)
}
