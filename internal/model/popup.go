package model

// PopupType enumerates the eight static blueprint templates (§4.7).
type PopupType string

const (
	PopupEventDiscovery  PopupType = "event_discovery"
	PopupEventReminder   PopupType = "event_reminder"
	PopupContextReminder PopupType = "context_reminder"
	PopupConflictWarning PopupType = "conflict_warning"
	PopupInsightCard     PopupType = "insight_card"
	PopupSnoozeReminder  PopupType = "snooze_reminder"
	PopupUpdateConfirm   PopupType = "update_confirm"
	PopupFormMismatch    PopupType = "form_mismatch"
)

// HeaderClass is the popup's visual header family.
type HeaderClass string

const (
	HeaderDiscovery HeaderClass = "discovery"
	HeaderReminder  HeaderClass = "reminder"
	HeaderContext   HeaderClass = "context"
	HeaderConflict  HeaderClass = "conflict"
	HeaderInsight   HeaderClass = "insight"
)

// ButtonStyle is the visual emphasis of a popup button.
type ButtonStyle string

const (
	ButtonPrimary   ButtonStyle = "primary"
	ButtonSecondary ButtonStyle = "secondary"
	ButtonDanger    ButtonStyle = "danger"
)

// ButtonAction is one of the recognized client actions (§6).
type ButtonAction string

const (
	ActionSetReminder      ButtonAction = "set-reminder"
	ActionSnooze           ButtonAction = "snooze"
	ActionIgnore           ButtonAction = "ignore"
	ActionAcknowledge      ButtonAction = "acknowledge"
	ActionDone             ButtonAction = "done"
	ActionCompleteButton   ButtonAction = "complete"
	ActionDismiss          ButtonAction = "dismiss"
	ActionDismissTemp      ButtonAction = "dismiss-temp"
	ActionDismissPermanent ButtonAction = "dismiss-permanent"
	ActionDelete           ButtonAction = "delete"
	ActionViewDay          ButtonAction = "view-day"
)

// PopupButton is one action button on a popup blueprint.
type PopupButton struct {
	Text   string       `json:"text"`
	Action ButtonAction `json:"action"`
	Style  ButtonStyle  `json:"style"`
}

// PopupBlueprint is the UI-independent record produced by §4.7.
type PopupBlueprint struct {
	Icon        string        `json:"icon"`
	HeaderClass HeaderClass   `json:"headerClass"`
	Title       string        `json:"title"`
	Subtitle    string        `json:"subtitle,omitempty"`
	Body        string        `json:"body"`
	Question    *string       `json:"question,omitempty"`
	Buttons     []PopupButton `json:"buttons"`
	PopupType   PopupType     `json:"popupType"`
}
