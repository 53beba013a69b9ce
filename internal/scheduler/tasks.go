package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/argus-assistant/argus/internal/model"
)

// qualifiesForTrigger is the event-status gate a time-trigger's target
// must pass before a notification is attempted (§4.8: "only if status
// in {pending, scheduled, discovered, reminded}"). Triggers for events
// outside this set are marked fired without delivery (the "defensive
// path" of §8 invariant 2).
func qualifiesForTrigger(status model.EventStatus) bool {
	switch status.Normalize() {
	case model.StatusDiscovered, model.StatusScheduled, model.StatusReminded, model.StatusPending:
		return true
	default:
		return false
	}
}

// scanTimeTriggers is the 60s task (§4.8 row 1).
func (s *Scheduler) scanTimeTriggers(ctx context.Context) {
	cutoff := time.Now().Add(s.cfg.LookaheadWindow).Unix()

	triggers, err := s.triggers.PendingTimeTriggers(ctx, cutoff)
	if err != nil {
		s.logger.Warn("time trigger scan failed", zap.Error(err))
		return
	}

	for _, t := range triggers {
		ev, err := s.events.Get(ctx, t.EventID)
		if err != nil {
			s.logger.Warn("time trigger event lookup failed", zap.Int64("eventId", t.EventID), zap.Error(err))
			continue
		}

		if !qualifiesForTrigger(ev.Status) {
			s.markFired(ctx, t.ID)
			continue
		}

		deliverFn := s.deliver(ctx, *ev, model.PopupEventReminder)
		markFn := func(ctx context.Context) error { return s.triggers.MarkFired(ctx, t.ID) }

		if err := deliverFn(ctx); err != nil {
			s.retryQueue.Enqueue(ev.ID, ev.Title, string(t.Kind), deliverFn, markFn, err, time.Now())
			continue
		}
		s.markFired(ctx, t.ID)
	}
}

func (s *Scheduler) markFired(ctx context.Context, triggerID int64) {
	if err := s.triggers.MarkFired(ctx, triggerID); err != nil {
		s.logger.Warn("mark-fired failed", zap.Int64("triggerId", triggerID), zap.Error(err))
	}
}

// scanDueReminders is the 30s task (§4.8 row 2). The retry queue is
// drained here, inside this same loop, per §4.8's explicit statement.
func (s *Scheduler) scanDueReminders(ctx context.Context) {
	now := time.Now()

	events, err := s.events.DueReminders(ctx, now.Unix())
	if err != nil {
		s.logger.Warn("due reminder scan failed", zap.Error(err))
	} else {
		for _, ev := range events {
			deliverFn := s.deliver(ctx, ev, model.PopupEventReminder)
			markFn := func(ctx context.Context) error {
				return s.events.UpdateStatus(ctx, ev.ID, model.StatusReminded)
			}

			if err := deliverFn(ctx); err != nil {
				s.retryQueue.Enqueue(ev.ID, ev.Title, "reminder_time", deliverFn, markFn, err, now)
				continue
			}
			if err := markFn(ctx); err != nil {
				s.logger.Warn("reminded transition failed", zap.Int64("eventId", ev.ID), zap.Error(err))
			}
		}
	}

	s.retryQueue.Drain(ctx, now)
}

// scanSnoozeExpiry is the 30s task (§4.8 row 3).
func (s *Scheduler) scanSnoozeExpiry(ctx context.Context) {
	now := time.Now()

	events, err := s.events.SnoozeExpired(ctx, now.Unix())
	if err != nil {
		s.logger.Warn("snooze expiry scan failed", zap.Error(err))
		return
	}

	for _, ev := range events {
		deliverFn := s.deliver(ctx, ev, model.PopupSnoozeReminder)
		markFn := func(ctx context.Context) error {
			return s.events.UpdateStatus(ctx, ev.ID, model.StatusDiscovered)
		}

		if err := deliverFn(ctx); err != nil {
			s.retryQueue.Enqueue(ev.ID, ev.Title, "snooze_expiry", deliverFn, markFn, err, now)
			continue
		}
		if err := markFn(ctx); err != nil {
			s.logger.Warn("snooze-expiry transition failed", zap.Int64("eventId", ev.ID), zap.Error(err))
		}
	}
}
