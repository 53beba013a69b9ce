package model

// EventAction distinguishes a brand-new proposed event from a proposed
// edit to an existing one (§4.6 step 6, open question 3).
type EventAction string

const (
	EventActionCreate EventAction = "create"
	EventActionModify EventAction = "modify"
)

// ProposedEvent is what the LLM (or the T2 heuristic analyzer) returns
// from event extraction, before duplicate-checking and persistence.
type ProposedEvent struct {
	EventType     EventType   `json:"eventType"`
	Title         string      `json:"title"`
	Description   string      `json:"description,omitempty"`
	EventTimeISO  string      `json:"eventTime,omitempty"` // ISO-8601 or empty
	Location      string      `json:"location,omitempty"`
	Participants  string      `json:"participants,omitempty"`
	Keywords      string      `json:"keywords,omitempty"`
	Confidence    float64     `json:"confidence"`
	Action        EventAction `json:"eventAction"`
	TargetEventID *int64      `json:"targetEventId,omitempty"`
}

// ActionKind is the classification of an inbound action message (§4.4,
// §4.6 step 5).
type ActionKind string

const (
	ActionComplete ActionKind = "complete"
	ActionCancel   ActionKind = "cancel"
	ActionIgnoreEv ActionKind = "ignore"
	ActionPostpone ActionKind = "postpone"
	ActionModifyEv ActionKind = "modify"
	ActionNone     ActionKind = "none"
)

// DetectedAction is the result of action detection (§4.4, §4.6 step 5).
type DetectedAction struct {
	Action          ActionKind `json:"action"`
	TargetEventID   *int64     `json:"targetEventId,omitempty"`
	Confidence      float64    `json:"confidence"`
	SnoozeMinutes   int        `json:"snoozeMinutes,omitempty"`
	ProposedChanges map[string]any `json:"proposedChanges,omitempty"`
}

// CandidateEvent is the trimmed event projection handed to action
// detection and event extraction as context (§4.6 step 5: "id + title +
// event_type + keywords").
type CandidateEvent struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	EventType   EventType `json:"eventType"`
	Keywords    string    `json:"keywords"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
}

// PendingConfirmation is emitted when event_action = modify; the server
// broadcasts an update_confirm popup and never applies the change until
// /api/events/:id/confirm-update (open question 3).
type PendingConfirmation struct {
	TargetEventID   int64          `json:"targetEventId"`
	ProposedChanges map[string]any `json:"proposedChanges"`
}

// Conflict describes another scheduled event within ±60 minutes (§4.5).
type Conflict struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	EventTime int64  `json:"eventTime"`
}
