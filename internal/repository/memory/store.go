// Package memory is an in-process store used by tests and by the service when
// storage.driver is "memory". Transactions are serialised: WithTx holds the
// store lock for its whole duration and works on a private copy of the state.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/NordCoder/Tally/internal/domain/measurement"
	"github.com/NordCoder/Tally/internal/domain/outbox"
	"github.com/NordCoder/Tally/internal/domain/tx"
)

type state struct {
	records   map[string][]measurement.Record
	summaries map[string]measurement.Summary
	outbox    map[string]outbox.Message
	order     []string
}

func newState() *state {
	return &state{
		records:   map[string][]measurement.Record{},
		summaries: map[string]measurement.Summary{},
		outbox:    map[string]outbox.Message{},
	}
}

// clone is shallow per key; writers always replace slices instead of mutating them.
func (s *state) clone() *state {
	return &state{
		records:   maps.Clone(s.records),
		summaries: maps.Clone(s.summaries),
		outbox:    maps.Clone(s.outbox),
		order:     append([]string(nil), s.order...),
	}
}

type Store struct {
	mu  sync.Mutex
	cur *state

	// FailCommit, when set, is returned by the next commit instead of applying it.
	FailCommit error
}

func New() *Store { return &Store{cur: newState()} }

var _ tx.Transactor = (*Store)(nil)

type txKey struct{}

type txState struct {
	store *Store
	st    *state
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if t, ok := ctx.Value(txKey{}).(*txState); ok && t.store == s {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &txState{store: s, st: s.cur.clone()}
	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return fmt.Errorf("function execution error: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if s.FailCommit != nil {
		err := s.FailCommit
		s.FailCommit = nil
		return fmt.Errorf("commit: %w", err)
	}
	s.cur = t.st
	return nil
}

// view runs fn against the transaction in ctx, or against committed state under the lock.
func (s *Store) view(ctx context.Context, fn func(st *state) error) error {
	if t, ok := ctx.Value(txKey{}).(*txState); ok && t.store == s {
		return fn(t.st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.cur)
}

func (s *Store) Records() *RecordRepo   { return &RecordRepo{s: s} }
func (s *Store) Summaries() *SummaryRepo { return &SummaryRepo{s: s} }
func (s *Store) Outbox() *OutboxRepo     { return &OutboxRepo{s: s} }
