package outbox

import (
	"context"
	"time"
)

type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusSuccess    Status = "SUCCESS"
)

type Kind int

const (
	KindSummaryReplaced Kind = 1
)

func (k Kind) String() string {
	switch k {
	case KindSummaryReplaced:
		return "summary_replaced"
	default:
		return "unknown"
	}
}

// SummaryReplacedPayload is the JSON body stored for KindSummaryReplaced.
type SummaryReplacedPayload struct {
	SummaryID            string    `json:"summary_id"`
	FileName             string    `json:"file_name"`
	RowCount             int       `json:"row_count"`
	ElapsedSeconds       float64   `json:"elapsed_seconds"`
	FirstOperationStart  time.Time `json:"first_operation_start"`
	AverageExecutionTime float64   `json:"average_execution_time"`
	AverageValue         float64   `json:"average_value"`
	MedianValue          float64   `json:"median_value"`
	MaxValue             float64   `json:"max_value"`
	MinValue             float64   `json:"min_value"`
	CreatedAt            time.Time `json:"created_at"`
}

type Message struct {
	IdempotencyKey string
	Kind           Kind
	Data           []byte
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Tracestate     string
	Traceparent    string
	Baggage        string
}

type Repository interface {
	// Enqueue joins the transaction in ctx, if any.
	Enqueue(ctx context.Context, key string, kind Kind, data []byte) error

	PickBatch(ctx context.Context, batch int, inProgressTTL time.Duration) ([]Message, error)

	MarkSuccess(ctx context.Context, keys []string) error
}

type KindHandler func(ctx context.Context, data []byte) error

type GlobalHandler func(kind Kind) (KindHandler, error)
