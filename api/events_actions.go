package api

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/argus-assistant/argus/internal/model"
	"github.com/argus-assistant/argus/internal/transport"
)

// eventActionKind is one of the eight popup-button actions an event
// can receive (§6: POST /api/events/:id/{action}).
type eventActionKind string

const (
	actionComplete      eventActionKind = "complete"
	actionSetReminder   eventActionKind = "set-reminder"
	actionSnooze        eventActionKind = "snooze"
	actionIgnore        eventActionKind = "ignore"
	actionDismiss       eventActionKind = "dismiss"
	actionAcknowledge   eventActionKind = "acknowledge"
	actionConfirmUpdate eventActionKind = "confirm-update"
	actionContextURL    eventActionKind = "context-url"
)

// confirmUpdateBody is the payload for the confirm-update action: the
// only call site allowed to apply a pending modify-action's changes.
type confirmUpdateBody struct {
	Changes map[string]any `json:"changes"`
}

// contextURLBody is the payload for the context-url action, which
// always records URL as the event's context URL and, when Permanent is
// set, also stores a long-lived dismissal that suppresses future
// context reminders for it.
type contextURLBody struct {
	URL       string `json:"url"`
	Permanent bool   `json:"permanent"`
}

// eventAction returns a handler that loads the path event ID, performs
// kind's store transition, and broadcasts the matching envelope.
func (h *handlers) eventAction(kind eventActionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := parseID(r)
		if err != nil {
			writeError(w, h.d.Logger, err)
			return
		}

		ev, err := h.d.Events.Get(ctx, id)
		if err != nil {
			writeError(w, h.d.Logger, NotFound("event not found"))
			return
		}

		var msgKind transport.MessageKind

		switch kind {
		case actionComplete:
			if err := h.d.Events.UpdateStatus(ctx, id, model.StatusCompleted); err != nil {
				writeError(w, h.d.Logger, err)
				return
			}
			ev.Status = model.StatusCompleted
			msgKind = transport.KindEventCompleted

		case actionSetReminder:
			if ev.EventTime == nil {
				writeError(w, h.d.Logger, BadRequest("event has no event time to schedule from"))
				return
			}
			now := time.Now().Unix()
			reminderTime := model.ReminderTimeForSchedule(*ev.EventTime, now)
			if err := h.d.Events.UpdateReminderTime(ctx, id, reminderTime); err != nil {
				writeError(w, h.d.Logger, err)
				return
			}
			if err := h.d.Events.UpdateStatus(ctx, id, model.StatusScheduled); err != nil {
				writeError(w, h.d.Logger, err)
				return
			}
			if h.d.Triggers != nil {
				if err := h.d.Triggers.ScheduleTriggers(ctx, id, *ev.EventTime, now); err != nil {
					h.d.Logger.Warn("schedule triggers failed", zap.Error(err))
				}
			}
			ev.Status = model.StatusScheduled
			ev.ReminderTime = reminderTime
			msgKind = transport.KindEventScheduled

		case actionSnooze:
			minutes := 30
			if raw := r.URL.Query().Get("minutes"); raw != "" {
				if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
					minutes = parsed
				}
			}
			newTime := time.Now().Add(time.Duration(minutes) * time.Minute).Unix()
			if err := h.d.Events.UpdateReminderTime(ctx, id, &newTime); err != nil {
				writeError(w, h.d.Logger, err)
				return
			}
			if err := h.d.Events.UpdateStatus(ctx, id, model.StatusSnoozed); err != nil {
				writeError(w, h.d.Logger, err)
				return
			}
			ev.Status = model.StatusSnoozed
			ev.ReminderTime = &newTime
			msgKind = transport.KindEventSnoozed

		case actionIgnore:
			if err := h.d.Events.UpdateStatus(ctx, id, model.StatusIgnored); err != nil {
				writeError(w, h.d.Logger, err)
				return
			}
			ev.Status = model.StatusIgnored
			msgKind = transport.KindEventIgnored

		case actionDismiss:
			if err := h.d.Events.IncrementDismissCount(ctx, id); err != nil {
				writeError(w, h.d.Logger, err)
				return
			}
			ev.DismissCount++
			msgKind = transport.KindEventDismissed

		case actionAcknowledge:
			msgKind = transport.KindEventAcknowledged

		case actionConfirmUpdate:
			var body confirmUpdateBody
			if err := decodeJSON(w, r, &body, 1<<20); err != nil {
				writeError(w, h.d.Logger, err)
				return
			}
			if err := h.d.Events.ApplyChanges(ctx, id, body.Changes); err != nil {
				writeError(w, h.d.Logger, err)
				return
			}
			ev, err = h.d.Events.Get(ctx, id)
			if err != nil {
				writeError(w, h.d.Logger, err)
				return
			}
			msgKind = transport.KindEventUpdated

		case actionContextURL:
			var body contextURLBody
			if err := decodeJSON(w, r, &body, 1<<20); err != nil {
				writeError(w, h.d.Logger, err)
				return
			}
			if body.Permanent && h.d.Triggers != nil {
				dismissedUntil := time.Now().Add(100 * 365 * 24 * time.Hour).Unix()
				dismissal := model.ContextDismissal{
					EventID:        id,
					URLPattern:     body.URL,
					DismissedUntil: dismissedUntil,
				}
				if err := h.d.Triggers.UpsertDismissal(ctx, dismissal); err != nil {
					writeError(w, h.d.Logger, err)
					return
				}
			}
			if err := h.d.Events.ApplyChanges(ctx, id, map[string]any{"context_url": body.URL}); err != nil {
				writeError(w, h.d.Logger, err)
				return
			}
			ev.ContextURL = body.URL
			msgKind = transport.KindEventDismissed

		default:
			writeError(w, h.d.Logger, NewError(ErrInternal, http.StatusInternalServerError, "unknown action"))
			return
		}

		if h.d.Broadcaster != nil {
			_ = h.d.Broadcaster.Send(ctx, transport.Envelope{Type: msgKind, Event: ev})
		}

		writeJSON(w, http.StatusOK, ev)
	}
}

// parseID extracts and validates the {id} path value as an int64.
func parseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, BadRequest("invalid event id")
	}
	return id, nil
}
