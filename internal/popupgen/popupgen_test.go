package popupgen

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/argus-assistant/argus/internal/llmclient"
	"github.com/argus-assistant/argus/internal/model"
	"github.com/argus-assistant/argus/internal/tier"
)

func TestGenerate_UsesLLMBlueprintWhenTier1AndWellFormed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"icon\":\"sparkles\",\"headerClass\":\"discovery\",\"title\":\"Dinner tonight\",\"body\":\"Dinner with Alex at 7pm\",\"buttons\":[{\"text\":\"Set reminder\",\"action\":\"set-reminder\",\"style\":\"primary\"}]}"}}],"usage":{"prompt_tokens":5,"completion_tokens":5}}`))
	}))
	defer srv.Close()

	client := llmclient.New(llmclient.Config{BaseURL: srv.URL, ChatModel: "gpt-test"}, nil)
	orchestrator := tier.New(tier.Config{Mode: tier.ModeForceT1}, zap.NewNop())

	bp := Generate(t.Context(), orchestrator, client, model.PopupEventDiscovery, model.Event{Title: "Dinner with Alex"}, "Dinner with Alex", nil)

	assert.Equal(t, "Dinner tonight", bp.Title)
	assert.Equal(t, model.PopupEventDiscovery, bp.PopupType)
	require.Len(t, bp.Buttons, 1)
	assert.Equal(t, model.ActionSetReminder, bp.Buttons[0].Action)
}

func TestGenerate_FallsBackToStaticTemplateOnLLMFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := llmclient.New(llmclient.Config{BaseURL: srv.URL, ChatModel: "gpt-test"}, nil)
	orchestrator := tier.New(tier.Config{Mode: tier.ModeForceT1}, zap.NewNop())

	bp := Generate(t.Context(), orchestrator, client, model.PopupEventDiscovery, model.Event{Title: "Dinner with Alex"}, "Dinner with Alex", nil)

	assert.Equal(t, "New event detected", bp.Title)
	assert.Equal(t, model.PopupEventDiscovery, bp.PopupType)
}

func TestGenerate_FallsBackToStaticTemplateOnMalformedReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"not json"}}],"usage":{}}`))
	}))
	defer srv.Close()

	client := llmclient.New(llmclient.Config{BaseURL: srv.URL, ChatModel: "gpt-test"}, nil)
	orchestrator := tier.New(tier.Config{Mode: tier.ModeForceT1}, zap.NewNop())

	bp := Generate(t.Context(), orchestrator, client, model.PopupEventReminder, model.Event{Title: "Dentist"}, "Dentist", nil)

	assert.Equal(t, "Reminder", bp.Title)
}

func TestGenerate_SkipsLLMWhenNotTier1(t *testing.T) {
	orchestrator := tier.New(tier.Config{Mode: tier.ModeForceT3}, zap.NewNop())
	client := llmclient.New(llmclient.Config{BaseURL: "http://127.0.0.1:0"}, nil)

	bp := Generate(t.Context(), orchestrator, client, model.PopupEventReminder, model.Event{Title: "Dentist"}, "Dentist", nil)

	assert.Equal(t, "Reminder", bp.Title)
}

func TestGenerate_NilLLMAlwaysUsesStaticTemplate(t *testing.T) {
	orchestrator := tier.New(tier.Config{Mode: tier.ModeForceT1}, zap.NewNop())

	bp := Generate(t.Context(), orchestrator, nil, model.PopupSnoozeReminder, model.Event{Title: "Standup"}, "Standup", nil)

	assert.Equal(t, model.PopupSnoozeReminder, bp.PopupType)
}
