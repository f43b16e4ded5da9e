package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	config "github.com/NordCoder/Tally/internal/config/ingest-api"
	"github.com/NordCoder/Tally/internal/obs"
	kafkax "github.com/NordCoder/Tally/internal/repository/kafka"
)

// kafka-init creates the summary topic ahead of the first ingest-api start.
func main() {
	cfgPath := pflag.StringP("config", "c", "config/ingest-api.yaml", "path to config file")
	extra := pflag.StringSlice("topic", nil, "additional topics to create")
	wait := pflag.Duration("wait", 60*time.Second, "overall timeout")
	pflag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}
	logger, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if len(cfg.Kafka.Brokers) == 0 {
		logger.Error("no kafka brokers configured")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *wait)
	defer cancel()

	topics := append([]string{cfg.Kafka.Topic}, *extra...)
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		err := kafkax.EnsureTopic(ctx, cfg.Kafka.Brokers, kafkax.TopicSpec{
			Name:              t,
			NumPartitions:     cfg.Kafka.Partitions,
			ReplicationFactor: cfg.Kafka.ReplicationFactor,
			MaxWait:           *wait,
		}, logger)
		if err != nil {
			logger.Fatal("ensure topic", zap.String("topic", t), zap.Error(err))
		}
		logger.Info("topic ready", zap.String("topic", t))
	}
	logger.Info("kafka-init ok")
}
