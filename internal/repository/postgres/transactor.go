package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/NordCoder/Tally/internal/domain/tx"
)

var _ tx.Transactor = (*transactorImpl)(nil)

type transactorImpl struct {
	db         *DB
	logger     *zap.Logger
	connClosed func(pgx.Tx) bool
}

func NewTransactor(db *DB, logger *zap.Logger) *transactorImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &transactorImpl{
		db:         db,
		logger:     logger,
		connClosed: txConnClosed,
	}
}

// WithTx joins a transaction already in ctx; otherwise it begins one at the
// configured isolation level and owns commit and rollback. Rollback runs on a
// context detached from ctx so a cancelled request still releases its locks.
func (t *transactorImpl) WithTx(ctx context.Context, function func(ctx context.Context) error) error {
	if _, err := extractTx(ctx); err == nil {
		return function(ctx)
	}

	pgTx, err := t.db.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: t.db.Isolation})
	if err != nil {
		return fmt.Errorf("can not begin transaction, error: %w", err)
	}
	ctxWithTx := context.WithValue(ctx, txInjector{}, pgTx)

	if err := function(ctxWithTx); err != nil {
		return t.rollback(ctx, pgTx, fmt.Errorf("function execution error: %w", err))
	}

	if err := pgTx.Commit(ctx); err != nil {
		t.logger.Error("commit", zap.Error(err))
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// rollback undoes pgTx after a failed function. Only a rollback that fails on a
// live connection leaves the outcome unknown; when pgx has already closed the
// connection (cancelled or timed-out statement) the server aborted the tx with it.
func (t *transactorImpl) rollback(ctx context.Context, pgTx pgx.Tx, cause error) error {
	timeout := t.db.RollbackTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	rbErr := pgTx.Rollback(rctx)
	switch {
	case rbErr == nil, errors.Is(rbErr, pgx.ErrTxClosed):
		return cause
	case t.connClosed(pgTx):
		t.logger.Warn("rollback on closed connection", zap.Error(rbErr), zap.NamedError("cause", cause))
		return cause
	}
	t.logger.Error("rollback", zap.Error(rbErr), zap.NamedError("cause", cause))
	return &tx.RollbackError{Cause: cause, Err: rbErr}
}

func txConnClosed(pgTx pgx.Tx) bool {
	c := pgTx.Conn()
	return c == nil || c.IsClosed()
}

type txInjector struct{}

var ErrTxNotFound = errors.New("tx not found in context")

func extractTx(ctx context.Context) (pgx.Tx, error) {
	tx, ok := ctx.Value(txInjector{}).(pgx.Tx)
	if !ok {
		return nil, ErrTxNotFound
	}
	return tx, nil
}

type execQueryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

func (db *DB) execQueryer(ctx context.Context) execQueryer {
	if tx, err := extractTx(ctx); err == nil && tx != nil {
		return tx
	}
	return db.Pool
}
