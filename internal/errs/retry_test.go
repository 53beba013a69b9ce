package errs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRetrySucceedsFirstTry(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 2, FirstDeadline: time.Second, RetryDeadline: time.Second, InitialDelay: time.Millisecond, Multiplier: 2}

	calls := 0
	val, err := Retry(context.Background(), policy, zap.NewNop(), func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, 1, calls)
}

func TestRetryRetriesOnRetryableThenSucceeds(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 2, FirstDeadline: time.Second, RetryDeadline: time.Second, InitialDelay: time.Millisecond, Multiplier: 2}

	calls := 0
	val, err := Retry(context.Background(), policy, zap.NewNop(), func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, NewUpstreamError(503, "temporarily unavailable")
		}
		return 7, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 7, val)
	assert.Equal(t, 2, calls)
}

func TestRetryDoesNotRetryPermanentError(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 2, FirstDeadline: time.Second, RetryDeadline: time.Second, InitialDelay: time.Millisecond, Multiplier: 2}

	calls := 0
	_, err := Retry(context.Background(), policy, zap.NewNop(), func(ctx context.Context) (int, error) {
		calls++
		return 0, NewUpstreamError(400, "bad request")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsRetryableClassification(t *testing.T) {
	assert.True(t, IsRetryable(ErrTimeout))
	assert.True(t, IsRetryable(NewUpstreamError(429, "rate limited")))
	assert.True(t, IsRetryable(NewUpstreamError(500, "server error")))
	assert.False(t, IsRetryable(NewUpstreamError(404, "not found")))
}
