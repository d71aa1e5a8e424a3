package engine

import (
	"context"
	"errors"
	"fmt"
)

// ExecutionError wraps a failure to run generated SQL against the target
// database.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("SQL execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func (e *ExecutionError) Retryable() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// IsRetryable reports whether any error in the chain marks itself as a
// transient failure worth retrying.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	return errors.As(err, &r) && r.Retryable()
}
