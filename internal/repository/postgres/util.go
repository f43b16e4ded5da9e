package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrConstraint = errors.New("constraint violation")
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
	pgNotNull         = "23502"
)

// mapPgErr folds constraint failures into the package sentinels, keeping the original in the chain.
func mapPgErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return errors.Join(ErrConflict, err)
	case pgCheckViolation, pgNotNull:
		return errors.Join(ErrConstraint, err)
	default:
		return err
	}
}
