package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryQueue_SucceedsOnRetry(t *testing.T) {
	t.Parallel()

	q := NewRetryQueue(filepath.Join(t.TempDir(), "failed.jsonl"), nil)
	now := time.Now()

	delivered := false
	marked := false
	q.Enqueue(1, "Team sync", "time_1h", func(ctx context.Context) error {
		delivered = true
		return nil
	}, func(ctx context.Context) error {
		marked = true
		return nil
	}, errors.New("no connection"), now)

	require.Equal(t, 1, q.Size())

	// Not yet due.
	q.Drain(context.Background(), now)
	require.Equal(t, 1, q.Size())

	q.Drain(context.Background(), now.Add(RetryBackoff[0]+time.Second))
	require.Equal(t, 0, q.Size())
	require.True(t, delivered)
	require.True(t, marked)
}

func TestRetryQueue_GivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "failed-reminders.jsonl")
	q := NewRetryQueue(path, nil)
	now := time.Now()

	q.Enqueue(7, "Overdue bill", "time_24h", func(ctx context.Context) error {
		return errors.New("still down")
	}, func(ctx context.Context) error { return nil }, errors.New("no connection"), now)

	at := now
	for i := 0; i < MaxRetryAttempts; i++ {
		at = at.Add(time.Hour)
		q.Drain(context.Background(), at)
	}

	require.Equal(t, 0, q.Size())
	require.Equal(t, 1, q.FailedCount())

	body, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec FailedReminderRecord
	require.NoError(t, json.Unmarshal(body[:len(body)-1], &rec))
	require.Equal(t, int64(7), rec.EventID)
	require.Equal(t, "Overdue bill", rec.EventTitle)
}
