package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// DefaultKafkaPolicy retries publishes with capped exponential backoff.
// Cancellation is never retried.
func DefaultKafkaPolicy(log *zap.Logger) Policy {
	if log == nil {
		log = zap.NewNop()
	}
	return Policy{
		Attempts: 6,
		Backoff:  ExpoJitter{Base: 200 * time.Millisecond, Max: 30 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		},
		OnAttempt: func(i int, err error) {
			log.Warn("outbox retry", zap.Int("attempt", i+1), zap.Error(err))
		},
		OnExhaust: func(err error) {
			if !errors.Is(err, context.Canceled) {
				log.Error("outbox retries exhausted", zap.Error(err))
			}
		},
	}
}
