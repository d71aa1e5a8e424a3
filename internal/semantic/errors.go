// Package semantic ranks stored document fragments against a query by
// embedding similarity.
package semantic

import (
	"context"
	"errors"
	"fmt"
)

// SearchError reports an embedding or fragment-store failure during search.
type SearchError struct {
	Err error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("document search failed: %v", e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// Retryable reports whether the failure was a timeout.
func (e *SearchError) Retryable() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}
