// Package wait provides the bounded polling primitive every higher component suspends on.
package wait

import (
	"context"
	"fmt"
	"time"

	"github.com/xkilldash9x/courier-cli/api/schemas"
)

// DefaultPollInterval is used when a caller passes a non-positive interval.
const DefaultPollInterval = 300 * time.Millisecond

// Condition is polled until it reports true. It must be idempotent and free of side effects,
// and should return promptly; the context is handed through so browser queries stay cancellable.
type Condition func(ctx context.Context) bool

// Until evaluates cond immediately and then once per interval until it reports true or
// timeout has elapsed. A timeout yields (false, nil). Cancellation of ctx is checked at the
// top of every iteration and during every sleep, and is reported as an error wrapping both
// schemas.ErrCancelled and the context's own error, never as a plain false.
func Until(ctx context.Context, timeout, interval time.Duration, cond Condition) (bool, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	start := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			return false, Cancelled(err)
		}
		if cond(ctx) {
			return true, nil
		}
		if time.Since(start) >= timeout {
			return false, nil
		}

		if err := Sleep(ctx, interval); err != nil {
			return false, err
		}
	}
}

// Any returns a Condition that is true when at least one of conds is true, evaluated in order.
func Any(conds ...Condition) Condition {
	return func(ctx context.Context) bool {
		for _, c := range conds {
			if c(ctx) {
				return true
			}
		}
		return false
	}
}

// Sleep pauses for d, returning early with a cancellation error if ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return Cancelled(ctx.Err())
	case <-t.C:
		return nil
	}
}

// Cancelled wraps a context error so callers can match on schemas.ErrCancelled as well as
// context.Canceled / context.DeadlineExceeded.
func Cancelled(cause error) error {
	if cause == nil {
		cause = context.Canceled
	}
	return fmt.Errorf("%w: %w", schemas.ErrCancelled, cause)
}
