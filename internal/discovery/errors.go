package discovery

import (
	"context"
	"errors"
	"fmt"
)

// ConnectionError reports a failure to reach or authenticate against the
// target database. The engine maps it to an error response rather than a
// degraded lane result.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Retryable reports whether the failure was a timeout rather than a
// configuration problem.
func (e *ConnectionError) Retryable() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// DiscoveryError reports an introspection failure that could not be
// contained to a single table.
type DiscoveryError struct {
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("schema discovery failed: %v", e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

func (e *DiscoveryError) Retryable() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}
