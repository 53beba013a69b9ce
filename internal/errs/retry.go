package errs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy configures Retry. The default (one retry, 30s/15s
// deadlines, exponential backoff starting at 500ms) matches §4.1.
type RetryPolicy struct {
	MaxAttempts      int           // default 2 (first attempt + 1 retry)
	FirstDeadline    time.Duration // default 30s
	RetryDeadline    time.Duration // default 15s
	InitialDelay     time.Duration // default 500ms
	Multiplier       float64       // default 2.0
	OnRetry          func(attempt int, err error, delay time.Duration)
}

// DefaultRetryPolicy returns §4.1's default retry policy: one retry,
// 30s then 15s deadlines (budget <= 45s), 500ms/1000ms/... backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   2,
		FirstDeadline: 30 * time.Second,
		RetryDeadline: 15 * time.Second,
		InitialDelay:  500 * time.Millisecond,
		Multiplier:    2.0,
	}
}

// Retry invokes fn up to policy.MaxAttempts times. Retry is taken only
// when the prior error is classified retryable by IsRetryable; a
// permanent (client 4xx non-429) error returns immediately.
func Retry[T any](ctx context.Context, policy RetryPolicy, logger *zap.Logger, fn func(context.Context) (T, error)) (T, error) {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var zero T
	var lastErr error
	delay := policy.InitialDelay

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		deadline := policy.FirstDeadline
		if attempt > 0 {
			deadline = policy.RetryDeadline

			if policy.OnRetry != nil {
				policy.OnRetry(attempt, lastErr, delay)
			}
			logger.Debug("retrying call", zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * policy.Multiplier)
		}

		val, err := DeadlineCall(ctx, deadline, fn)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}
	}

	return zero, fmt.Errorf("retry exhausted after %d attempts: %w", policy.MaxAttempts, lastErr)
}
