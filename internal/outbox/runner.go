package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NordCoder/Tally/internal/domain/outbox"
	"github.com/NordCoder/Tally/internal/obs"
)

var (
	mPicked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_picked_total", Help: "Messages picked into processing.",
	})
	mOk = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_processed_ok_total", Help: "Messages processed successfully.",
	})
	mErr = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_processed_err_total", Help: "Handler errors.",
	})
	mTickDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "outbox_tick_duration_seconds", Help: "Tick duration.",
		Buckets: prometheus.DefBuckets,
	})
	mBatchSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_last_batch_size", Help: "Size of last picked batch.",
	})
)

type RunnerConfig struct {
	Workers       int
	BatchSize     int
	WaitTime      time.Duration
	InProgressTTL time.Duration
}

// Runner relays committed outbox rows to their handlers. Delivery is at least once:
// a row stays IN_PROGRESS until marked and is picked again after InProgressTTL.
type Runner struct {
	log      *zap.Logger
	repo     outbox.Repository
	dispatch outbox.GlobalHandler
	cfg      RunnerConfig
}

func NewOutboxRunner(log *zap.Logger, repo outbox.Repository, dispatch outbox.GlobalHandler, cfg RunnerConfig) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.WaitTime <= 0 {
		cfg.WaitTime = time.Second
	}
	if cfg.InProgressTTL <= 0 {
		cfg.InProgressTTL = time.Minute
	}
	return &Runner{log: log.With(zap.String("component", "outbox.runner")), repo: repo, dispatch: dispatch, cfg: cfg}
}

// Run blocks until ctx is done and every worker has returned.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go r.worker(ctx, i, &wg)
	}
	wg.Wait()
}

func (r *Runner) worker(ctx context.Context, id int, wg *sync.WaitGroup) {
	defer wg.Done()
	log := r.log.With(zap.Int("worker", id))
	log.Info("outbox worker started", zap.Duration("wait", r.cfg.WaitTime))

	ticker := time.NewTicker(r.cfg.WaitTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("outbox worker stop")
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick picks one batch, dispatches it and marks the delivered keys.
// It returns how many messages were delivered.
func (r *Runner) Tick(ctx context.Context) int {
	t0 := time.Now()
	defer func() { mTickDur.Observe(time.Since(t0).Seconds()) }()

	tr := otel.Tracer("outbox.runner")
	prop := otel.GetTextMapPropagator()

	ctxSpan, span := tr.Start(ctx, "outbox.tick")
	defer span.End()
	span.SetAttributes(
		attribute.Int("batch.limit", r.cfg.BatchSize),
		attribute.String("in_progress_ttl", r.cfg.InProgressTTL.String()),
	)

	messages, err := r.repo.PickBatch(ctxSpan, r.cfg.BatchSize, r.cfg.InProgressTTL)
	if err != nil {
		span.RecordError(err)
		mErr.Inc()
		obs.WithTrace(ctxSpan, r.log).Error("outbox pick error", zap.Error(err))
		return 0
	}
	mPicked.Add(float64(len(messages)))
	mBatchSize.Set(float64(len(messages)))

	okKeys := make([]string, 0, len(messages))
	for _, m := range messages {
		parent := prop.Extract(ctx, propagation.MapCarrier{
			"traceparent": m.Traceparent,
			"tracestate":  m.Tracestate,
			"baggage":     m.Baggage,
		})
		msgCtx, msgSpan := tr.Start(parent, "outbox.dispatch",
			trace.WithLinks(trace.LinkFromContext(ctxSpan)),
			trace.WithAttributes(
				attribute.String("outbox.key", m.IdempotencyKey),
				attribute.String("outbox.kind", m.Kind.String()),
			),
		)

		if err := r.deliver(msgCtx, m); err != nil {
			msgSpan.RecordError(err)
			mErr.Inc()
			obs.WithTrace(msgCtx, r.log).Error("outbox delivery failed",
				zap.String("key", m.IdempotencyKey),
				zap.Stringer("kind", m.Kind),
				zap.Error(err))
			msgSpan.End()
			continue
		}
		msgSpan.End()
		okKeys = append(okKeys, m.IdempotencyKey)
		mOk.Inc()
	}

	if err := r.repo.MarkSuccess(ctxSpan, okKeys); err != nil {
		span.RecordError(err)
		mErr.Inc()
		obs.WithTrace(ctxSpan, r.log).Error("mark success error", zap.Error(err))
		return 0
	}
	return len(okKeys)
}

func (r *Runner) deliver(ctx context.Context, m outbox.Message) error {
	handler, err := r.dispatch(m.Kind)
	if err != nil {
		return err
	}
	return handler(ctx, m.Data)
}
