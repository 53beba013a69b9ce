package heuristics

import (
	"fmt"

	"github.com/argus-assistant/argus/internal/model"
)

// GeneratePopupBlueprint renders one of the eight static templates
// (§4.7) for the given event. The caller supplies the fields that vary
// per instance (title, subtitle, body detail); everything else —
// icon, header class, button set — is fixed by popupType.
func GeneratePopupBlueprint(popupType model.PopupType, event model.Event, detail string) model.PopupBlueprint {
	switch popupType {
	case model.PopupEventDiscovery:
		return model.PopupBlueprint{
			Icon:        "sparkles",
			HeaderClass: model.HeaderDiscovery,
			Title:       "New event detected",
			Subtitle:    string(event.EventType),
			Body:        event.Title,
			Buttons: []model.PopupButton{
				{Text: "Set reminder", Action: model.ActionSetReminder, Style: model.ButtonPrimary},
				{Text: "Ignore", Action: model.ActionIgnore, Style: model.ButtonSecondary},
			},
			PopupType: popupType,
		}

	case model.PopupEventReminder:
		return model.PopupBlueprint{
			Icon:        "bell",
			HeaderClass: model.HeaderReminder,
			Title:       "Reminder",
			Body:        event.Title,
			Buttons: []model.PopupButton{
				{Text: "Done", Action: model.ActionDone, Style: model.ButtonPrimary},
				{Text: "Snooze", Action: model.ActionSnooze, Style: model.ButtonSecondary},
				{Text: "Dismiss", Action: model.ActionDismiss, Style: model.ButtonDanger},
			},
			PopupType: popupType,
		}

	case model.PopupContextReminder:
		return model.PopupBlueprint{
			Icon:        "link",
			HeaderClass: model.HeaderContext,
			Title:       "Related to this page",
			Body:        fmt.Sprintf("%s (%s)", event.Title, detail),
			Buttons: []model.PopupButton{
				{Text: "Acknowledge", Action: model.ActionAcknowledge, Style: model.ButtonPrimary},
				{Text: "Dismiss for now", Action: model.ActionDismissTemp, Style: model.ButtonSecondary},
				{Text: "Don't show again", Action: model.ActionDismissPermanent, Style: model.ButtonDanger},
			},
			PopupType: popupType,
		}

	case model.PopupConflictWarning:
		return model.PopupBlueprint{
			Icon:        "alert-triangle",
			HeaderClass: model.HeaderConflict,
			Title:       "Possible scheduling conflict",
			Subtitle:    detail,
			Body:        event.Title,
			Buttons: []model.PopupButton{
				{Text: "View day", Action: model.ActionViewDay, Style: model.ButtonPrimary},
				{Text: "Dismiss", Action: model.ActionDismiss, Style: model.ButtonSecondary},
			},
			PopupType: popupType,
		}

	case model.PopupInsightCard:
		return model.PopupBlueprint{
			Icon:        "lightbulb",
			HeaderClass: model.HeaderInsight,
			Title:       "Heads up",
			Body:        detail,
			Buttons: []model.PopupButton{
				{Text: "Dismiss", Action: model.ActionDismiss, Style: model.ButtonSecondary},
			},
			PopupType: popupType,
		}

	case model.PopupSnoozeReminder:
		return model.PopupBlueprint{
			Icon:        "clock",
			HeaderClass: model.HeaderReminder,
			Title:       "Snoozed reminder is back",
			Body:        event.Title,
			Buttons: []model.PopupButton{
				{Text: "Done", Action: model.ActionDone, Style: model.ButtonPrimary},
				{Text: "Snooze again", Action: model.ActionSnooze, Style: model.ButtonSecondary},
				{Text: "Dismiss", Action: model.ActionDismiss, Style: model.ButtonDanger},
			},
			PopupType: popupType,
		}

	case model.PopupUpdateConfirm:
		question := fmt.Sprintf("Update %q with: %s?", event.Title, detail)
		return model.PopupBlueprint{
			Icon:        "pencil",
			HeaderClass: model.HeaderContext,
			Title:       "Confirm update",
			Body:        detail,
			Question:    &question,
			Buttons: []model.PopupButton{
				{Text: "Confirm", Action: model.ActionAcknowledge, Style: model.ButtonPrimary},
				{Text: "Dismiss", Action: model.ActionDismiss, Style: model.ButtonSecondary},
			},
			PopupType: popupType,
		}

	case model.PopupFormMismatch:
		return model.PopupBlueprint{
			Icon:        "alert-circle",
			HeaderClass: model.HeaderContext,
			Title:       "This form doesn't match",
			Body:        detail,
			Buttons: []model.PopupButton{
				{Text: "Dismiss", Action: model.ActionDismiss, Style: model.ButtonSecondary},
			},
			PopupType: popupType,
		}

	default:
		return model.PopupBlueprint{
			Icon:        "info",
			HeaderClass: model.HeaderInsight,
			Title:       "Notice",
			Body:        detail,
			Buttons: []model.PopupButton{
				{Text: "Dismiss", Action: model.ActionDismiss, Style: model.ButtonSecondary},
			},
			PopupType: popupType,
		}
	}
}
