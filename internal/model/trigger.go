package model

// TriggerKind enumerates every trigger-kind string the store accepts on
// read (open question 2). Only the canonical four are ever written.
type TriggerKind string

const (
	TriggerTime24h TriggerKind = "time_24h"
	TriggerTime1h  TriggerKind = "time_1h"
	TriggerTime15m TriggerKind = "time_15m"
	TriggerURL     TriggerKind = "url"

	// Legacy/alternate spellings accepted at read time only.
	TriggerTimeLegacy      TriggerKind = "time"
	TriggerReminder24h     TriggerKind = "reminder_24h"
	TriggerReminder1hr     TriggerKind = "reminder_1hr"
	TriggerReminder15m     TriggerKind = "reminder_15m"
)

// ReadableTriggerKinds is the full set of kinds the scheduler's
// time-trigger scan must recognize on read (§4.8, open question 2).
var ReadableTriggerKinds = []TriggerKind{
	TriggerTime24h, TriggerTime1h, TriggerTime15m,
	TriggerTimeLegacy, TriggerReminder24h, TriggerReminder1hr, TriggerReminder15m,
}

// CanonicalTimeKinds are the only time-kinds ever written at insert time.
var CanonicalTimeKinds = []TriggerKind{TriggerTime24h, TriggerTime1h, TriggerTime15m}

// Trigger is an immutable-once-fired (event, kind, value) tuple.
type Trigger struct {
	ID         int64       `json:"id" gorm:"primaryKey;autoIncrement:false"`
	EventID    int64       `json:"eventId" gorm:"index"`
	Kind       TriggerKind `json:"kind" gorm:"column:trigger_type;index"`
	Value      string      `json:"value" gorm:"column:trigger_value"`
	IsFired    bool        `json:"isFired" gorm:"index"`
	FireCount  int         `json:"fireCount"`
}

// TableName pins the GORM table name.
func (Trigger) TableName() string { return "triggers" }

// ContextDismissal suppresses a context reminder for a url-pattern for a
// fixed duration (§3).
type ContextDismissal struct {
	EventID         int64  `json:"eventId" gorm:"primaryKey;autoIncrement:false"`
	URLPattern      string `json:"urlPattern" gorm:"primaryKey"`
	DismissedUntil  int64  `json:"dismissedUntil"`
}

// TableName pins the GORM table name.
func (ContextDismissal) TableName() string { return "context_dismissals" }

// DismissalDuration is how long a context dismissal suppresses a
// reminder (§3: "Suppresses a context reminder for 30 minutes").
const DismissalDuration = 30 * 60 // seconds

// PushSubscription is an opaque browser push token, stored in the
// push-subscriptions collection (a Redis hash keyed by token; see
// internal/store).
type PushSubscription struct {
	Token     string `json:"token"`
	CreatedAt int64  `json:"createdAt"`
}
