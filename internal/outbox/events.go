package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NordCoder/Tally/internal/domain/measurement"
	"github.com/NordCoder/Tally/internal/domain/outbox"
)

// SummaryEvents records a KindSummaryReplaced row in the caller's transaction,
// so the notification exists exactly when the summary it describes was committed.
type SummaryEvents struct {
	repo outbox.Repository
}

func NewSummaryEvents(repo outbox.Repository) *SummaryEvents { return &SummaryEvents{repo: repo} }

func (e *SummaryEvents) SummaryReplaced(ctx context.Context, s *measurement.Summary) error {
	data, err := json.Marshal(outbox.SummaryReplacedPayload{
		SummaryID:            s.ID.String(),
		FileName:             s.FileName,
		RowCount:             s.RowCount,
		ElapsedSeconds:       s.ElapsedSeconds,
		FirstOperationStart:  s.FirstOperationStart,
		AverageExecutionTime: s.AverageExecutionTime,
		AverageValue:         s.AverageValue,
		MedianValue:          s.MedianValue,
		MaxValue:             s.MaxValue,
		MinValue:             s.MinValue,
		CreatedAt:            s.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal summary payload: %w", err)
	}
	return e.repo.Enqueue(ctx, "summary:"+s.ID.String(), outbox.KindSummaryReplaced, data)
}
