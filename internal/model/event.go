// Package model defines the core domain entities: messages, events,
// triggers, contacts, context dismissals, and push subscriptions.
package model

import (
	"strings"
	"time"
)

// EventType classifies the kind of thing an Event represents.
type EventType string

const (
	EventMeeting        EventType = "meeting"
	EventDeadline       EventType = "deadline"
	EventReminder       EventType = "reminder"
	EventTravel         EventType = "travel"
	EventTask           EventType = "task"
	EventSubscription   EventType = "subscription"
	EventRecommendation EventType = "recommendation"
	EventOther          EventType = "other"
)

// EventStatus is the event's position in its lifecycle state machine.
type EventStatus string

const (
	StatusDiscovered EventStatus = "discovered"
	StatusScheduled  EventStatus = "scheduled"
	StatusSnoozed    EventStatus = "snoozed"
	StatusIgnored    EventStatus = "ignored"
	StatusReminded   EventStatus = "reminded"
	StatusCompleted  EventStatus = "completed"
	StatusExpired    EventStatus = "expired"
	// StatusPending is a legacy alias for StatusDiscovered, accepted on
	// read but never written.
	StatusPending EventStatus = "pending"
)

// Normalize collapses the legacy "pending" alias to "discovered".
func (s EventStatus) Normalize() EventStatus {
	if s == StatusPending {
		return StatusDiscovered
	}
	return s
}

// ActiveStatuses are the statuses eligible for search and duplicate
// detection (§3: "excluded from active search ... {completed, expired,
// ignored}").
var ActiveStatuses = map[EventStatus]bool{
	StatusDiscovered: true,
	StatusScheduled:  true,
	StatusSnoozed:    true,
	StatusReminded:   true,
	StatusPending:    true,
}

// IsActive reports whether the event participates in search and
// duplicate detection.
func (s EventStatus) IsActive() bool {
	return ActiveStatuses[s.Normalize()]
}

// SearchableStatuses is the status set HybridSearch filters to (§4.5,
// §8 invariant 1). The time-trigger scan uses its own check
// (qualifiesForTrigger in internal/scheduler), which also admits
// reminded events.
var SearchableStatuses = map[EventStatus]bool{
	StatusPending:    true,
	StatusScheduled:  true,
	StatusDiscovered: true,
}

// EmbeddingDimension is the fixed embedding vector length (§3).
const EmbeddingDimension = 768

// Event is the central entity of the system.
type Event struct {
	ID            int64       `json:"id" gorm:"primaryKey;autoIncrement:false"`
	MessageID     *string     `json:"messageId,omitempty" gorm:"index"`
	EventType     EventType   `json:"eventType" gorm:"index"`
	Title         string      `json:"title"`
	Description   string      `json:"description,omitempty"`
	Location      string      `json:"location,omitempty"`
	Keywords      string      `json:"keywords,omitempty"` // comma-separated
	Participants  string      `json:"participants,omitempty"`
	EventTime     *int64      `json:"eventTime,omitempty"`    // unix seconds, nullable
	ReminderTime  *int64      `json:"reminderTime,omitempty"` // unix seconds, nullable
	Embedding     []float32   `json:"-" gorm:"-"`             // indexed separately, see internal/store
	ContextURL    string      `json:"contextUrl,omitempty" gorm:"index"`
	Status        EventStatus `json:"status" gorm:"index"`
	DismissCount  int         `json:"dismissCount"`
	SenderName    string      `json:"senderName,omitempty"`
	Confidence    float64     `json:"confidence"`
	CreatedAt     int64       `json:"createdAt" gorm:"index"`
	HasEmbedding  bool        `json:"hasEmbedding" gorm:"index"`
}

// TableName pins the GORM table name regardless of struct renames.
func (Event) TableName() string { return "events" }

// NormalizedTitle folds case, strips punctuation/quote/dash variants, and
// trims whitespace, per §3's duplicate-suppression rule.
func NormalizedTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch r {
		case '\'', '‘', '’', '`',
			'-', '‐', '‑', '‒', '–', '—',
			'"', '“', '”',
			'.', ',', '!', '?', ';', ':':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// IsShortTitle reports whether a normalized title has at most two words,
// which requires exact-equality duplicate matching per §3.
func IsShortTitle(normalized string) bool {
	return len(strings.Fields(normalized)) <= 2
}

// DuplicateWindow is the lookback window for duplicate suppression.
const DuplicateWindow = 48 * time.Hour

// ReminderTimeForSchedule computes reminder_time for a scheduled event
// per invariant 3 (§8): the earliest of {event_time-24h, -1h, -15m}
// strictly greater than now, or nil if none qualify.
func ReminderTimeForSchedule(eventTime, now int64) *int64 {
	offsets := []int64{86400, 3600, 900}
	best := int64(-1)
	for _, off := range offsets {
		t := eventTime - off
		if t > now {
			if best == -1 || t < best {
				best = t
			}
		}
	}
	if best == -1 {
		return nil
	}
	return &best
}

// ConflictWindow is the ± window used by the conflict check (§4.5).
const ConflictWindow = 60 * time.Minute
