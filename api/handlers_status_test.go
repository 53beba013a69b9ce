package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	glebarezsqlite "github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/argus-assistant/argus/internal/cache"
	"github.com/argus-assistant/argus/internal/contextmatch"
	"github.com/argus-assistant/argus/internal/store"
	"github.com/argus-assistant/argus/internal/tier"
)

// setupStatusHandlers wires real stores plus the orchestrator and
// matcher so stats/health/ai-status can be exercised without mocks.
func setupStatusHandlers(t *testing.T) *handlers {
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
	triggers := store.NewTriggerStore(db)
	pushSubs := store.NewPushSubscriptionStore(rdb)
	backup := store.NewBackup(events, messages, triggers, pushSubs)

	orchestrator := tier.New(tier.DefaultConfig(), zap.NewNop())
	matcher := contextmatch.New(events, orchestrator, nil, 50, 90, zap.NewNop())
	aiCache := cache.NewResponseCache(10, time.Hour)

	return &handlers{d: &Deps{
		Events:       events,
		Backup:       backup,
		Orchestrator: orchestrator,
		Matcher:      matcher,
		AICache:      aiCache,
		Logger:       zap.NewNop(),
	}}
}

func TestStats_ReturnsCounts(t *testing.T) {
	h := setupStatusHandlers(t)

	r := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()
	h.stats(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var got store.Counts
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
}

func TestHealth_ReportsOK(t *testing.T) {
	h := setupStatusHandlers(t)

	r := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	h.health(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var got healthBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "ok", got.Status)
}

func TestHealth_NilSchedulerLeavesZeroValues(t *testing.T) {
	h := setupStatusHandlers(t)
	h.d.Scheduler = nil

	r := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	h.health(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var got healthBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 0, got.Scheduler.RetryQueueSize)
}

func TestAIStatus_ReportsModeAndCache(t *testing.T) {
	h := setupStatusHandlers(t)

	r := httptest.NewRequest(http.MethodGet, "/api/ai-status", nil)
	w := httptest.NewRecorder()
	h.aiStatus(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var got aiStatusBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.NotEmpty(t, got.Mode)
	assert.Equal(t, 10, got.CacheCapacity)
}
