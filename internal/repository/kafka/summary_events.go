package kafka

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/NordCoder/Tally/internal/domain/outbox"
)

// SummaryEventsKafka publishes summary notifications keyed by file name,
// so every generation of one file lands on the same partition in order.
type SummaryEventsKafka struct {
	p *Producer
}

func NewSummaryEventsKafka(p *Producer) *SummaryEventsKafka { return &SummaryEventsKafka{p: p} }

func (e *SummaryEventsKafka) PublishSummaryReplaced(ctx context.Context, s outbox.SummaryReplacedPayload) error {
	msg, err := summaryStruct(s)
	if err != nil {
		return err
	}
	return e.p.PublishProto(ctx, []byte(s.FileName), msg)
}

func summaryStruct(s outbox.SummaryReplacedPayload) (*structpb.Struct, error) {
	msg, err := structpb.NewStruct(map[string]any{
		"summary_id":             s.SummaryID,
		"file_name":              s.FileName,
		"row_count":              s.RowCount,
		"elapsed_seconds":        s.ElapsedSeconds,
		"first_operation_start":  s.FirstOperationStart.UTC().Format(time.RFC3339Nano),
		"average_execution_time": s.AverageExecutionTime,
		"average_value":          s.AverageValue,
		"median_value":           s.MedianValue,
		"max_value":              s.MaxValue,
		"min_value":              s.MinValue,
		"created_at":             s.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("build summary struct: %w", err)
	}
	return msg, nil
}
