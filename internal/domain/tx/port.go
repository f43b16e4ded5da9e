package tx

import (
	"context"
	"fmt"
)

// Transactor runs fn inside one transaction carried by the context passed to fn.
// A nil return from fn commits; any error rolls back and is returned wrapped.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RollbackError reports that undoing a failed transaction failed too,
// so the store state is unknown.
type RollbackError struct {
	Cause error
	Err   error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback failed: %v (cause: %v)", e.Err, e.Cause)
}

func (e *RollbackError) Unwrap() []error { return []error{e.Err, e.Cause} }
