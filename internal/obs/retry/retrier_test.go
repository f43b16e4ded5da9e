package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	}, Policy{Name: "t_ok", Attempts: 5, Backoff: Constant(time.Millisecond)})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_Exhausted(t *testing.T) {
	boom := errors.New("boom")
	var attempts []int
	var exhausted error
	err := Do(context.Background(), func() error { return boom }, Policy{
		Name:      "t_exhaust",
		Attempts:  3,
		OnAttempt: func(i int, _ error) { attempts = append(attempts, i) },
		OnExhaust: func(err error) { exhausted = err },
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{0, 1, 2}, attempts)
	assert.ErrorIs(t, exhausted, boom)
}

func TestDo_NotRetryable(t *testing.T) {
	calls := 0
	perm := errors.New("permanent")
	err := Do(context.Background(), func() error { calls++; return perm }, Policy{
		Attempts:  5,
		Retryable: func(err error) bool { return !errors.Is(err, perm) },
	})
	assert.ErrorIs(t, err, perm)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, func() error {
		calls++
		cancel()
		return errors.New("x")
	}, Policy{Attempts: 5, Backoff: Constant(time.Hour)})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestExpoJitter(t *testing.T) {
	b := ExpoJitter{Base: 100 * time.Millisecond, Max: time.Second}
	assert.Equal(t, 100*time.Millisecond, b.Next(0))
	assert.Equal(t, 400*time.Millisecond, b.Next(2))
	assert.Equal(t, time.Second, b.Next(10))

	j := ExpoJitter{Base: 100 * time.Millisecond, Jitter: 0.2}
	for i := 0; i < 20; i++ {
		d := j.Next(0)
		assert.GreaterOrEqual(t, d, 80*time.Millisecond)
		assert.LessOrEqual(t, d, 120*time.Millisecond)
	}
}

func TestDefaultKafkaPolicy(t *testing.T) {
	p := DefaultKafkaPolicy(nil)
	assert.True(t, p.Retryable(errors.New("x")))
	assert.False(t, p.Retryable(context.Canceled))
}
