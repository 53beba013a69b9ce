package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/argus-assistant/argus/internal/errs"
)

// RetryBackoff is the fixed per-attempt backoff schedule (§4.8: "60s,
// 300s, 900s").
var RetryBackoff = []time.Duration{60 * time.Second, 300 * time.Second, 900 * time.Second}

// MaxRetryAttempts is the number of retries before a delivery is
// given up on and appended to failed-reminders.jsonl (§4.8: "On the
// third failure").
const MaxRetryAttempts = 3

// FailedReminderRecord is one line of failed-reminders.jsonl (§6).
type FailedReminderRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	EventID     int64     `json:"eventId"`
	EventTitle  string    `json:"eventTitle"`
	TriggerType string    `json:"triggerType"`
	Attempts    int       `json:"attempts"`
	LastError   string    `json:"lastError"`
}

// retryItem is one pending redelivery (§4.8: "{payload, attempt,
// nextRetryAt, mark-fn}"). It is process-local and not persisted —
// a restart drops the queue along with every Non-goal this implies
// (§1: "durable queues ... best-effort").
type retryItem struct {
	eventID     int64
	eventTitle  string
	triggerType string
	deliver     func(ctx context.Context) error
	markFn      func(ctx context.Context) error
	attempt     int // 0-based count of failures so far
	firstAttempt time.Time
	nextRetryAt time.Time
	lastErr     string
}

// RetryQueue is the scheduler's in-memory retry list. §5 requires its
// mutable state be "serialized under a mutex or equivalent
// single-writer discipline" since scanDueReminders, scanTimeTriggers,
// and scanSnoozeExpiry run as independent goroutines and all reach it.
type RetryQueue struct {
	mu                  sync.Mutex
	items               []*retryItem
	failedRemindersPath string
	failedCount         int
	logger              *zap.Logger
}

// FailedCount reports how many items have been given up on since
// startup (§6: /api/health "scheduler.failedReminderCount").
func (q *RetryQueue) FailedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.failedCount
}

// NewRetryQueue builds an empty retry queue writing final failures to
// failedRemindersPath (default "data/failed-reminders.jsonl").
func NewRetryQueue(failedRemindersPath string, logger *zap.Logger) *RetryQueue {
	if failedRemindersPath == "" {
		failedRemindersPath = "data/failed-reminders.jsonl"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryQueue{failedRemindersPath: failedRemindersPath, logger: logger.With(zap.String("component", "retry_queue"))}
}

// Enqueue adds a first-failure delivery for later retry.
func (q *RetryQueue) Enqueue(eventID int64, eventTitle, triggerType string, deliver func(context.Context) error, markFn func(context.Context) error, lastErr error, now time.Time) {
	item := &retryItem{
		eventID: eventID, eventTitle: eventTitle, triggerType: triggerType,
		deliver: deliver, markFn: markFn,
		attempt: 1, firstAttempt: now,
		nextRetryAt: now.Add(RetryBackoff[0]),
	}
	if lastErr != nil {
		item.lastErr = lastErr.Error()
	}
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
}

// Size reports how many items are currently queued (§6: /api/health
// "scheduler.retryQueueSize").
func (q *RetryQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain retries every item whose nextRetryAt has passed (§4.8: "The
// queue is drained inside the 30-s due-reminders loop"). On success the
// mark-fn runs and the item is dropped. On a third failure the payload
// is appended to failed-reminders.jsonl and the item is dropped;
// otherwise it is rescheduled at the next backoff step (§8 invariant 7).
func (q *RetryQueue) Drain(ctx context.Context, now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	remaining := q.items[:0]
	for _, item := range q.items {
		if now.Before(item.nextRetryAt) {
			remaining = append(remaining, item)
			continue
		}

		if err := item.deliver(ctx); err != nil {
			item.lastErr = err.Error()
			item.attempt++
			if item.attempt >= MaxRetryAttempts {
				q.giveUp(item, now)
				continue
			}
			item.nextRetryAt = item.firstAttempt.Add(durationSum(item.attempt))
			remaining = append(remaining, item)
			continue
		}

		if item.markFn != nil {
			if err := item.markFn(ctx); err != nil {
				q.logger.Warn("retry mark-fn failed after successful delivery",
					zap.Int64("eventId", item.eventID), zap.Error(err))
			}
		}
	}
	q.items = remaining
}

func durationSum(attempts int) time.Duration {
	var total time.Duration
	for i := 0; i < attempts && i < len(RetryBackoff); i++ {
		total += RetryBackoff[i]
	}
	return total
}

func (q *RetryQueue) giveUp(item *retryItem, now time.Time) {
	record := FailedReminderRecord{
		Timestamp: now, EventID: item.eventID, EventTitle: item.eventTitle,
		TriggerType: item.triggerType, Attempts: item.attempt, LastError: item.lastErr,
	}
	if err := errs.AppendFailedReminder(q.failedRemindersPath, record, q.logger); err != nil {
		q.logger.Error("failed to write failed-reminders record", zap.Error(err))
	}
	q.failedCount++
}
