package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/NordCoder/Tally/internal/domain/outbox"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestSummaryEvents_Publish(t *testing.T) {
	w := &fakeWriter{}
	ev := NewSummaryEventsKafka(newProducer(w, "measurements.summary.replaced"))

	err := ev.PublishSummaryReplaced(context.Background(), outbox.SummaryReplacedPayload{
		SummaryID:           "0b7c5d1e-0000-4000-8000-000000000001",
		FileName:            "demo.csv",
		RowCount:            2,
		ElapsedSeconds:      7200,
		FirstOperationStart: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		AverageValue:        15,
		MedianValue:         15,
		MaxValue:            20,
		MinValue:            10,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("demo.csv"), w.msgs[0].Key)

	var got structpb.Struct
	require.NoError(t, proto.Unmarshal(w.msgs[0].Value, &got))
	fields := got.GetFields()
	assert.Equal(t, "demo.csv", fields["file_name"].GetStringValue())
	assert.Equal(t, 2.0, fields["row_count"].GetNumberValue())
	assert.Equal(t, 7200.0, fields["elapsed_seconds"].GetNumberValue())
	assert.Equal(t, "2024-01-15T10:00:00Z", fields["first_operation_start"].GetStringValue())
}

func TestProducer_WriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := newProducer(&fakeWriter{err: boom}, "t")
	err := p.PublishProto(context.Background(), []byte("k"), &structpb.Struct{})
	assert.ErrorIs(t, err, boom)
}

func TestCarrierHeaders(t *testing.T) {
	h := mapCarrierHeaders{}
	h.Set("traceparent", "00-abc-def-01")
	assert.Equal(t, "00-abc-def-01", h.Get("traceparent"))
	assert.Equal(t, []string{"traceparent"}, h.Keys())

	kh := h.ToKafka()
	require.Len(t, kh, 1)
	assert.Equal(t, []byte("00-abc-def-01"), kh[0].Value)
}
