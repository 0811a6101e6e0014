// Package collab defines the collaborator boundary: every external
// capability (place lookup, weather, web search, scoring) is invoked
// through the uniform Caller contract, and Adapter wraps a Caller with
// caching, retry, and rate limiting. The workflow core is agnostic to
// which concrete service backs each operation; an in-process heuristic and
// a remote API look the same from a stage's point of view.
package collab

import (
	"context"
	"errors"
	"fmt"
)

// Caller performs one collaborator operation.
//
// Implementations may block on network I/O and should honor ctx
// cancellation. Returned results must be gob-encodable when used behind a
// caching Adapter.
type Caller interface {
	Call(ctx context.Context, operation string, params map[string]any) (any, error)
}

// CallerFunc adapts a function to the Caller interface.
type CallerFunc func(ctx context.Context, operation string, params map[string]any) (any, error)

func (f CallerFunc) Call(ctx context.Context, operation string, params map[string]any) (any, error) {
	return f(ctx, operation, params)
}

// UnavailableError is returned when a collaborator call keeps failing after
// all retry attempts are exhausted. Stages record it on the run state and
// return a best-effort partial result instead of aborting the run.
type UnavailableError struct {
	Collaborator string
	Operation    string
	Attempts     int
	Err          error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("collaborator %s: %s unavailable after %d attempt(s): %v",
		e.Collaborator, e.Operation, e.Attempts, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err marks an exhausted collaborator call.
func IsUnavailable(err error) bool {
	var u *UnavailableError
	return errors.As(err, &u)
}
