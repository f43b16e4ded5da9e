package memory

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/NordCoder/Tally/internal/domain/measurement"
	"github.com/NordCoder/Tally/internal/domain/outbox"
)

var (
	ErrConflict = errors.New("conflict")
	ErrBatch    = errors.New("batch must be > 0")
)

type RecordRepo struct{ s *Store }

var _ measurement.RecordRepo = (*RecordRepo)(nil)

func (r *RecordRepo) InsertBatch(ctx context.Context, records []measurement.Record) error {
	if len(records) == 0 {
		return nil
	}
	byFile := make(map[string][]measurement.Record)
	var order []string
	for _, rec := range records {
		if _, ok := byFile[rec.FileName]; !ok {
			order = append(order, rec.FileName)
		}
		byFile[rec.FileName] = append(byFile[rec.FileName], rec)
	}
	return r.s.view(ctx, func(st *state) error {
		for _, name := range order {
			st.records[name] = slices.Concat(st.records[name], byFile[name])
		}
		return nil
	})
}

func (r *RecordRepo) DeleteByFileName(ctx context.Context, fileName string) (int64, error) {
	var n int64
	err := r.s.view(ctx, func(st *state) error {
		n = int64(len(st.records[fileName]))
		delete(st.records, fileName)
		return nil
	})
	return n, err
}

// LastByFileName returns the newest limit records by timestamp, oldest first.
func (r *RecordRepo) LastByFileName(ctx context.Context, fileName string, limit int) ([]measurement.Record, error) {
	var out []measurement.Record
	err := r.s.view(ctx, func(st *state) error {
		out = slices.Clone(st.records[fileName])
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b measurement.Record) int { return a.Timestamp.Compare(b.Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type SummaryRepo struct{ s *Store }

var _ measurement.SummaryRepo = (*SummaryRepo)(nil)

func (r *SummaryRepo) Insert(ctx context.Context, s *measurement.Summary) error {
	return r.s.view(ctx, func(st *state) error {
		if _, ok := st.summaries[s.FileName]; ok {
			return ErrConflict
		}
		st.summaries[s.FileName] = *s
		return nil
	})
}

func (r *SummaryRepo) DeleteByFileName(ctx context.Context, fileName string) (int64, error) {
	var n int64
	err := r.s.view(ctx, func(st *state) error {
		if _, ok := st.summaries[fileName]; ok {
			n = 1
			delete(st.summaries, fileName)
		}
		return nil
	})
	return n, err
}

// List orders by creation time, newest first.
func (r *SummaryRepo) List(ctx context.Context, f measurement.SummaryFilter) ([]measurement.Summary, error) {
	var out []measurement.Summary
	err := r.s.view(ctx, func(st *state) error {
		for _, s := range st.summaries {
			if f.Match(&s) {
				out = append(out, s)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b measurement.Summary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.FileName, a.FileName)
	})
	return out, err
}

type OutboxRepo struct {
	s   *Store
	now func() time.Time
}

var _ outbox.Repository = (*OutboxRepo)(nil)

func (r *OutboxRepo) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func (r *OutboxRepo) Enqueue(ctx context.Context, key string, kind outbox.Kind, data []byte) error {
	now := r.clock()
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return r.s.view(ctx, func(st *state) error {
		if _, ok := st.outbox[key]; ok {
			return nil
		}
		st.outbox[key] = outbox.Message{
			IdempotencyKey: key,
			Kind:           kind,
			Data:           slices.Clone(data),
			Status:         outbox.StatusCreated,
			CreatedAt:      now,
			UpdatedAt:      now,
			Traceparent:    carrier.Get("traceparent"),
			Tracestate:     carrier.Get("tracestate"),
			Baggage:        carrier.Get("baggage"),
		}
		st.order = append(st.order, key)
		return nil
	})
}

func (r *OutboxRepo) PickBatch(ctx context.Context, batch int, inProgressTTL time.Duration) ([]outbox.Message, error) {
	if batch <= 0 {
		return nil, ErrBatch
	}
	now := r.clock()
	var out []outbox.Message
	err := r.s.view(ctx, func(st *state) error {
		for _, key := range st.order {
			if len(out) == batch {
				break
			}
			m := st.outbox[key]
			stale := m.Status == outbox.StatusInProgress && m.UpdatedAt.Before(now.Add(-inProgressTTL))
			if m.Status != outbox.StatusCreated && !stale {
				continue
			}
			m.Status = outbox.StatusInProgress
			m.UpdatedAt = now
			st.outbox[key] = m
			out = append(out, m)
		}
		return nil
	})
	return out, err
}

func (r *OutboxRepo) MarkSuccess(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	now := r.clock()
	return r.s.view(ctx, func(st *state) error {
		for _, key := range keys {
			if m, ok := st.outbox[key]; ok {
				m.Status = outbox.StatusSuccess
				m.UpdatedAt = now
				st.outbox[key] = m
			}
		}
		return nil
	})
}

// Messages returns a copy of the queue in enqueue order.
func (r *OutboxRepo) Messages() []outbox.Message {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]outbox.Message, 0, len(r.s.cur.order))
	for _, key := range r.s.cur.order {
		out = append(out, r.s.cur.outbox[key])
	}
	return out
}
