package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	glebarezsqlite "github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/argus-assistant/argus/internal/contextmatch"
	"github.com/argus-assistant/argus/internal/errs"
	"github.com/argus-assistant/argus/internal/ingestion"
	"github.com/argus-assistant/argus/internal/store"
	"github.com/argus-assistant/argus/internal/tier"
	"github.com/argus-assistant/argus/internal/transport"
)

// setupIngestionHandlers wires a real pipeline and matcher (no LLM
// client, so everything runs through the heuristic/T3 tier).
func setupIngestionHandlers(t *testing.T) *handlers {
	db, err := gorm.Open(glebarezsqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, store.AutoMigrate(db))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	events, err := store.NewEventStore(t.Context(), db, rdb, 0.5)
	require.NoError(t, err)
	messages := store.NewMessageStore(db)

	orchestrator := tier.New(tier.DefaultConfig(), zap.NewNop())
	broadcaster := transport.New(zap.NewNop())
	t.Cleanup(func() { _ = broadcaster.Close() })
	deadLetter := errs.NewDeadLetterLog(filepath.Join(t.TempDir(), "dead-letter.jsonl"), zap.NewNop())

	pipeline := ingestion.New(ingestion.Config{}, messages, events, orchestrator, nil, nil, nil, broadcaster, deadLetter, zap.NewNop())
	matcher := contextmatch.New(events, orchestrator, nil, 50, 90, zap.NewNop())

	return &handlers{d: &Deps{
		Events:       events,
		Orchestrator: orchestrator,
		Pipeline:     pipeline,
		Matcher:      matcher,
		Logger:       zap.NewNop(),
	}}
}

func TestWebhook_RejectsInvalidShape(t *testing.T) {
	h := setupIngestionHandlers(t)

	r := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader([]byte(`{"nonsense":true}`)))
	w := httptest.NewRecorder()
	h.webhook(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhook_SkipsNonUpsertEvent(t *testing.T) {
	h := setupIngestionHandlers(t)

	payload := []byte(`{"event":"connection.update","instance":"x","data":{"key":{"remoteJid":"1","fromMe":false,"id":"abc"}}}`)
	r := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	h.webhook(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var got skippedBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Skipped)
}

func TestWebhook_ProcessesUpsertEvent(t *testing.T) {
	h := setupIngestionHandlers(t)

	payload := []byte(`{"event":"messages.upsert","instance":"x","data":{"key":{"remoteJid":"15551234567@s.whatsapp.net","fromMe":false,"id":"msg-1"},"pushName":"Alex","message":{"conversation":"just chatting, nothing to remember"},"messageTimestamp":1700000000}}`)
	r := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	h.webhook(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestContextCheck_RequiresURL(t *testing.T) {
	h := setupIngestionHandlers(t)

	r := httptest.NewRequest(http.MethodPost, "/api/context-check", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	h.contextCheck(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContextCheck_ReturnsMatchResult(t *testing.T) {
	h := setupIngestionHandlers(t)

	body := []byte(`{"url":"https://example.com/flights/123","title":"Flight booking","keywords":"flight,travel"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/context-check", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.contextCheck(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var got contextmatch.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
}

func TestChat_RequiresQuery(t *testing.T) {
	h := setupIngestionHandlers(t)

	r := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	h.chat(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChat_FallsBackToHeuristicReply(t *testing.T) {
	h := setupIngestionHandlers(t)

	body := []byte(`{"query":"what do I have going on today"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.chat(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var got chatReplyBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.NotEmpty(t, got.Response)
}

func TestFormCheck_ReturnsResult(t *testing.T) {
	h := setupIngestionHandlers(t)

	body := []byte(`{"fieldValue":"","fieldType":"email"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/form-check", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.formCheck(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}
