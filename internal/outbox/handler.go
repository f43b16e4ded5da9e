package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"

	"github.com/NordCoder/Tally/internal/domain/outbox"
	"github.com/NordCoder/Tally/internal/obs/retry"
)

// SummaryPublisher is the broker side of KindSummaryReplaced.
type SummaryPublisher interface {
	PublishSummaryReplaced(ctx context.Context, p outbox.SummaryReplacedPayload) error
}

var (
	outboxHandlerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_handler_latency_seconds",
		Help:    "Latency of outbox handlers including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	outboxHandlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_handler_errors_total",
		Help: "Errors in outbox handlers (after retries).",
	}, []string{"kind"})
)

func instrument(kind string, h outbox.KindHandler, pol retry.Policy) outbox.KindHandler {
	tr := otel.Tracer("outbox.handler")
	if pol.Name == "" {
		pol.Name = "outbox_" + kind
	}
	h = WrapKindHandler(h, pol)
	return func(ctx context.Context, data []byte) error {
		ctx, span := tr.Start(ctx, "outbox.handle "+kind)
		defer span.End()

		start := time.Now()
		err := h(ctx, data)
		outboxHandlerLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			outboxHandlerErrors.WithLabelValues(kind).Inc()
		}
		return err
	}
}

func MakeGlobalOutboxHandler(pub SummaryPublisher, pol retry.Policy) outbox.GlobalHandler {
	return func(kind outbox.Kind) (outbox.KindHandler, error) {
		switch kind {
		case outbox.KindSummaryReplaced:
			base := func(ctx context.Context, data []byte) error {
				var p outbox.SummaryReplacedPayload
				if err := json.Unmarshal(data, &p); err != nil {
					return fmt.Errorf("unmarshal summary-replaced payload: %w", err)
				}
				return pub.PublishSummaryReplaced(ctx, p)
			}
			return instrument(kind.String(), base, pol), nil
		default:
			return nil, fmt.Errorf("unsupported outbox kind: %d", kind)
		}
	}
}
