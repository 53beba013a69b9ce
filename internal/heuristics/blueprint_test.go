package heuristics

import (
	"testing"

	"github.com/argus-assistant/argus/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePopupBlueprintAllEightTemplatesProduceButtons(t *testing.T) {
	types := []model.PopupType{
		model.PopupEventDiscovery,
		model.PopupEventReminder,
		model.PopupContextReminder,
		model.PopupConflictWarning,
		model.PopupInsightCard,
		model.PopupSnoozeReminder,
		model.PopupUpdateConfirm,
		model.PopupFormMismatch,
	}

	event := model.Event{ID: 1, Title: "Dentist appointment", EventType: model.EventTask}

	for _, pt := range types {
		bp := GeneratePopupBlueprint(pt, event, "some detail")
		assert.Equal(t, pt, bp.PopupType)
		assert.NotEmpty(t, bp.Buttons)
		assert.NotEmpty(t, bp.Icon)
	}
}

func TestGeneratePopupBlueprintUpdateConfirmSetsQuestion(t *testing.T) {
	event := model.Event{ID: 1, Title: "Dentist appointment"}
	bp := GeneratePopupBlueprint(model.PopupUpdateConfirm, event, "move to 5pm")
	require.NotNil(t, bp.Question)
	assert.Contains(t, *bp.Question, "Dentist appointment")
}
