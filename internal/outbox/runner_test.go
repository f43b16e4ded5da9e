package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/NordCoder/Tally/internal/domain/measurement"
	"github.com/NordCoder/Tally/internal/domain/outbox"
	"github.com/NordCoder/Tally/internal/obs/retry"
	"github.com/NordCoder/Tally/internal/repository/memory"
)

type fakePublisher struct {
	got  []outbox.SummaryReplacedPayload
	fail int
}

func (f *fakePublisher) PublishSummaryReplaced(_ context.Context, p outbox.SummaryReplacedPayload) error {
	if f.fail > 0 {
		f.fail--
		return errors.New("broker unavailable")
	}
	f.got = append(f.got, p)
	return nil
}

func enqueueSummary(t *testing.T, repo outbox.Repository, file string) *measurement.Summary {
	t.Helper()
	s := &measurement.Summary{ID: uuid.New(), FileName: file, RowCount: 2, AverageValue: 15}
	require.NoError(t, NewSummaryEvents(repo).SummaryReplaced(context.Background(), s))
	return s
}

func TestRunner_DeliversAndMarks(t *testing.T) {
	store := memory.New()
	repo := store.Outbox()
	pub := &fakePublisher{}
	s := enqueueSummary(t, repo, "demo.csv")

	r := NewOutboxRunner(zaptest.NewLogger(t), repo, MakeGlobalOutboxHandler(pub, retry.Policy{Attempts: 1}), RunnerConfig{})
	assert.Equal(t, 1, r.Tick(context.Background()))

	require.Len(t, pub.got, 1)
	assert.Equal(t, s.ID.String(), pub.got[0].SummaryID)
	assert.Equal(t, "demo.csv", pub.got[0].FileName)
	assert.Equal(t, 15.0, pub.got[0].AverageValue)

	msgs := repo.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, outbox.StatusSuccess, msgs[0].Status)

	assert.Zero(t, r.Tick(context.Background()))
}

func TestRunner_RetriesThenSucceeds(t *testing.T) {
	store := memory.New()
	repo := store.Outbox()
	pub := &fakePublisher{fail: 2}
	enqueueSummary(t, repo, "a.csv")

	pol := retry.Policy{Attempts: 3, Backoff: retry.Constant(time.Millisecond)}
	r := NewOutboxRunner(zaptest.NewLogger(t), repo, MakeGlobalOutboxHandler(pub, pol), RunnerConfig{})
	assert.Equal(t, 1, r.Tick(context.Background()))
	assert.Len(t, pub.got, 1)
}

func TestRunner_FailureLeavesInProgress(t *testing.T) {
	store := memory.New()
	repo := store.Outbox()
	pub := &fakePublisher{fail: 10}
	enqueueSummary(t, repo, "a.csv")

	r := NewOutboxRunner(zaptest.NewLogger(t), repo, MakeGlobalOutboxHandler(pub, retry.Policy{Attempts: 1}), RunnerConfig{})
	assert.Zero(t, r.Tick(context.Background()))

	msgs := repo.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, outbox.StatusInProgress, msgs[0].Status)
}

func TestGlobalHandler(t *testing.T) {
	h := MakeGlobalOutboxHandler(&fakePublisher{}, retry.Policy{Attempts: 5, Backoff: retry.Constant(time.Hour)})

	_, err := h(outbox.Kind(99))
	require.Error(t, err)

	kh, err := h(outbox.KindSummaryReplaced)
	require.NoError(t, err)

	start := time.Now()
	err = kh(context.Background(), []byte("{not json"))
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	repo := memory.New().Outbox()
	r := NewOutboxRunner(zaptest.NewLogger(t), repo, MakeGlobalOutboxHandler(&fakePublisher{}, retry.Policy{}),
		RunnerConfig{Workers: 2, WaitTime: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}
