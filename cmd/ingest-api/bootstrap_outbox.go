package main

import (
	"context"
	"errors"

	"go.uber.org/zap"

	config "github.com/NordCoder/Tally/internal/config/ingest-api"
	"github.com/NordCoder/Tally/internal/ingest"
	"github.com/NordCoder/Tally/internal/obs/retry"
	outboxsvc "github.com/NordCoder/Tally/internal/outbox"
	kafkax "github.com/NordCoder/Tally/internal/repository/kafka"
)

// initOutbox returns the pipeline's event sink, a blocking relay loop and
// the producer closer. With the outbox disabled all of them are no-ops.
func initOutbox(ctx context.Context, cfg *config.Config, st *storage, logger *zap.Logger) (ingest.SummaryEvents, func(context.Context), func() error, error) {
	if !cfg.Outbox.Enable {
		return nil, func(context.Context) {}, func() error { return nil }, nil
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil, nil, errors.New("outbox enabled without kafka brokers")
	}

	if err := kafkax.EnsureTopic(ctx, cfg.Kafka.Brokers, kafkax.TopicSpec{
		Name:              cfg.Kafka.Topic,
		NumPartitions:     cfg.Kafka.Partitions,
		ReplicationFactor: cfg.Kafka.ReplicationFactor,
	}, logger); err != nil {
		logger.Warn("ensure topic failed; relying on auto-create", zap.Error(err))
	}

	producer := kafkax.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(logger)
	pub := kafkax.NewSummaryEventsKafka(producer)
	runner := outboxsvc.NewOutboxRunner(logger, st.outbox,
		outboxsvc.MakeGlobalOutboxHandler(pub, retry.DefaultKafkaPolicy(logger)),
		outboxsvc.RunnerConfig{
			Workers:       cfg.Outbox.Workers,
			BatchSize:     cfg.Outbox.BatchSize,
			WaitTime:      cfg.Outbox.WaitTime,
			InProgressTTL: cfg.Outbox.InProgressTTL,
		},
	)
	return outboxsvc.NewSummaryEvents(st.outbox), runner.Run, producer.Close, nil
}
