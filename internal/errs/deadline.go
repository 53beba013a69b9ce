package errs

import (
	"context"
	"time"
)

// DeadlineCall wraps a single outbound RPC with a cancellation deadline
// of d. Fails with ErrTimeout if fn has not returned within d. On
// success, the deadline's cancellation state is released immediately
// (via the deferred cancel, same as a plain context.WithTimeout caller
// would do).
func DeadlineCall[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)

	go func() {
		val, err := fn(cctx)
		done <- result{val, err}
	}()

	select {
	case <-cctx.Done():
		return zero, ErrTimeout
	case r := <-done:
		return r.val, r.err
	}
}
