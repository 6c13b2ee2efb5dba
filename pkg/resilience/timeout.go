package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TimeoutError reports an operation that ran past its own limit, as opposed
// to the caller's context ending.
type TimeoutError struct {
	Op    string
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: exceeded %v limit", e.Op, e.Limit)
}

func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// IsTimeout reports whether err carries a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// WithTimeout runs fn under a context that expires after limit. A
// non-positive limit runs fn directly. fn keeps running in the background
// if it ignores its context; its result is then discarded.
func WithTimeout(ctx context.Context, limit time.Duration, op string, fn func(ctx context.Context) error) error {
	if limit <= 0 {
		return fn(ctx)
	}
	tctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- fn(tctx)
	}()

	var err error
	select {
	case err = <-done:
	case <-tctx.Done():
		err = tctx.Err()
	}
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("%s: %w", op, ctx.Err())
	case tctx.Err() != nil && errors.Is(err, context.DeadlineExceeded):
		return &TimeoutError{Op: op, Limit: limit}
	default:
		return err
	}
}
