package kafka

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type TopicSpec struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	MaxWait           time.Duration
}

// EnsureTopic creates spec.Name through the controller and waits until its
// partitions are visible. An existing topic is not an error.
func EnsureTopic(ctx context.Context, brokers []string, spec TopicSpec, log *zap.Logger) error {
	if len(brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if spec.NumPartitions <= 0 {
		spec.NumPartitions = 1
	}
	if spec.ReplicationFactor <= 0 {
		spec.ReplicationFactor = 1
	}
	if spec.MaxWait <= 0 {
		spec.MaxWait = 5 * time.Second
	}
	log = log.With(zap.String("topic", spec.Name))

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		log.Warn("kafka dial failed", zap.Error(err))
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		log.Warn("kafka controller", zap.Error(err))
		return err
	}
	cc, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		log.Warn("kafka dial controller", zap.Error(err))
		return err
	}
	defer cc.Close()

	if err := cc.CreateTopics(kafka.TopicConfig{
		Topic:             spec.Name,
		NumPartitions:     spec.NumPartitions,
		ReplicationFactor: spec.ReplicationFactor,
	}); err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		log.Debug("create topic", zap.Error(err))
	}

	wctx, cancel := context.WithTimeout(ctx, spec.MaxWait)
	defer cancel()
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		if ps, err := conn.ReadPartitions(spec.Name); err == nil && len(ps) > 0 {
			log.Info("topic ready", zap.Int("partitions", len(ps)))
			return nil
		}
		select {
		case <-wctx.Done():
			log.Warn("topic not confirmed ready in time")
			return nil
		case <-tick.C:
		}
	}
}
