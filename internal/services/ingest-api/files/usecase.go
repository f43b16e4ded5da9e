package files

import (
	"context"
	"errors"
	"path"

	"github.com/NordCoder/Tally/internal/domain/measurement"
)

var ErrNoData = errors.New("no data")

const DefaultLastValues = 10

// Usecase is the read side: summary browsing and the tail of one file's records.
type Usecase struct {
	records   measurement.RecordRepo
	summaries measurement.SummaryRepo
	lastN     int
}

func NewUsecase(records measurement.RecordRepo, summaries measurement.SummaryRepo, lastN int) *Usecase {
	if lastN <= 0 {
		lastN = DefaultLastValues
	}
	return &Usecase{records: records, summaries: summaries, lastN: lastN}
}

func (u *Usecase) Results(ctx context.Context, f measurement.SummaryFilter) ([]measurement.Summary, error) {
	return u.summaries.List(ctx, f)
}

// LastValues returns the newest records of fileName in ascending time order.
// A name without an extension is looked up as "<name>.csv".
func (u *Usecase) LastValues(ctx context.Context, fileName string) ([]measurement.Record, error) {
	name := NormalizeFileName(fileName)
	recs, err := u.records.LastByFileName(ctx, name, u.lastN)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNoData
	}
	return recs, nil
}

func NormalizeFileName(name string) string {
	if path.Ext(name) == "" {
		return name + ".csv"
	}
	return name
}
