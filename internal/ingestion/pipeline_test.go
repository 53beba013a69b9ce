package ingestion

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	glebarezsqlite "github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/argus-assistant/argus/internal/errs"
	"github.com/argus-assistant/argus/internal/llmclient"
	"github.com/argus-assistant/argus/internal/model"
	"github.com/argus-assistant/argus/internal/store"
	"github.com/argus-assistant/argus/internal/tier"
	"github.com/argus-assistant/argus/internal/transport"
)

func setupPipelineDeps(t *testing.T) (*store.MessageStore, *store.EventStore) {
	t.Helper()
	db, err := gorm.Open(glebarezsqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, store.AutoMigrate(db))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	events, err := store.NewEventStore(t.Context(), db, rdb, 0.5)
	require.NoError(t, err)

	return store.NewMessageStore(db), events
}

func newTestPipeline(t *testing.T, mode tier.Mode, llm *llmclient.Client) (*Pipeline, *store.EventStore) {
	t.Helper()
	messages, events := setupPipelineDeps(t)
	orch := tier.New(tier.Config{Mode: mode}, nil)
	dead := errs.NewDeadLetterLog(filepath.Join(t.TempDir(), "dead-letter.jsonl"), nil)
	broadcaster := transport.New(nil)

	p := New(Config{ProcessOwnMessages: true, SkipGroupMessages: false},
		messages, events, orch, llm, nil, nil, broadcaster, dead, nil)
	return p, events
}

func webhookJSON(externalID, chatID, content string, fromMe bool, ts int64) []byte {
	body := `{
		"event": "messages.upsert",
		"data": {
			"key": {"remoteJid": "` + chatID + `", "fromMe": ` + boolStr(fromMe) + `, "id": "` + externalID + `"},
			"pushName": "Tester",
			"message": {"conversation": "` + content + `"},
			"messageTimestamp": ` + strconv.FormatInt(ts, 10) + `
		}
	}`
	return []byte(body)
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func TestProcessWebhookSkipsNonUpsertEvent(t *testing.T) {
	p, _ := newTestPipeline(t, tier.ModeForceT2, nil)
	summary, err := p.ProcessWebhook(t.Context(), []byte(`{"event":"connection.update","data":{"key":{"id":"x"}}}`))
	require.NoError(t, err)
	assert.True(t, summary.Skipped)
}

func TestProcessWebhookSkipsGreeting(t *testing.T) {
	p, _ := newTestPipeline(t, tier.ModeForceT2, nil)
	summary, err := p.ProcessWebhook(t.Context(), webhookJSON("m1", "chat1@s.whatsapp.net", "hi", false, 1770500000))
	require.NoError(t, err)
	assert.True(t, summary.Skipped)
}

func TestProcessWebhookHeuristicExtractionInsertsEvent(t *testing.T) {
	p, events := newTestPipeline(t, tier.ModeForceT2, nil)

	summary, err := p.ProcessWebhook(t.Context(), webhookJSON(
		"m2", "chat1@s.whatsapp.net", "lets meet tomorrow at 5pm", false, 1770500001,
	))
	require.NoError(t, err)
	require.Len(t, summary.InsertedEvents, 1)

	inserted := summary.InsertedEvents[0].Event
	assert.Equal(t, model.StatusDiscovered, inserted.Status)
	require.NotNil(t, inserted.EventTime)

	stored, err := events.Get(t.Context(), inserted.ID)
	require.NoError(t, err)
	assert.Equal(t, inserted.Title, stored.Title)
}

func TestProcessWebhookDuplicateWithin48hIsSkipped(t *testing.T) {
	p, _ := newTestPipeline(t, tier.ModeForceT2, nil)

	first, err := p.ProcessWebhook(t.Context(), webhookJSON(
		"m3", "chat1@s.whatsapp.net", "lets meet tomorrow at 5pm", false, 1770500001,
	))
	require.NoError(t, err)
	require.Len(t, first.InsertedEvents, 1)

	second, err := p.ProcessWebhook(t.Context(), webhookJSON(
		"m4", "chat1@s.whatsapp.net", "lets meet tomorrow at 5pm", false, 1770500010,
	))
	require.NoError(t, err)
	assert.Empty(t, second.InsertedEvents)
}

func TestProcessWebhookActionCompleteTransitionsTargetEvent(t *testing.T) {
	p, events := newTestPipeline(t, tier.ModeForceT2, nil)

	created, err := p.ProcessWebhook(t.Context(), webhookJSON(
		"m5", "chat1@s.whatsapp.net", "my netflix subscription renews soon", false, 1770500001,
	))
	require.NoError(t, err)
	require.Len(t, created.InsertedEvents, 1)
	targetID := created.InsertedEvents[0].Event.ID

	summary, err := p.ProcessWebhook(t.Context(), webhookJSON(
		"m6", "chat1@s.whatsapp.net", "done cancelling netflix", false, 1770500100,
	))
	require.NoError(t, err)
	require.NotNil(t, summary.ActionPerformed)
	assert.Equal(t, model.ActionComplete, summary.ActionPerformed.Action)

	stored, err := events.Get(t.Context(), targetID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, stored.Status)
}

func TestProcessWebhookOwnMessageSkippedWhenDisabled(t *testing.T) {
	messages, events := setupPipelineDeps(t)
	orch := tier.New(tier.Config{Mode: tier.ModeForceT2}, nil)
	dead := errs.NewDeadLetterLog(filepath.Join(t.TempDir(), "dead-letter.jsonl"), nil)
	broadcaster := transport.New(nil)
	p := New(Config{ProcessOwnMessages: false}, messages, events, orch, nil, nil, nil, broadcaster, dead, nil)

	summary, err := p.ProcessWebhook(t.Context(), webhookJSON(
		"m7", "chat1@s.whatsapp.net", "lets meet tomorrow at 5pm", true, 1770500001,
	))
	require.NoError(t, err)
	assert.True(t, summary.Skipped)
}

func TestProcessWebhookLLMTierUsesOpenAICompatibleServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat/completions":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"[]"}}],"usage":{"prompt_tokens":10,"completion_tokens":2}}`))
		case "/embeddings":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := llmclient.New(llmclient.Config{BaseURL: srv.URL, ChatModel: "gpt-test"}, nil)
	p, _ := newTestPipeline(t, tier.ModeForceT1, client)

	summary, err := p.ProcessWebhook(t.Context(), webhookJSON(
		"m8", "chat1@s.whatsapp.net", "just chatting about nothing in particular here", false, 1770500001,
	))
	require.NoError(t, err)
	assert.Empty(t, summary.InsertedEvents)
}
