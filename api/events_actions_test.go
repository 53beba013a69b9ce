package api

import (
	"bytes"
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

	"github.com/argus-assistant/argus/internal/model"
	"github.com/argus-assistant/argus/internal/store"
	"github.com/argus-assistant/argus/internal/transport"
)

// setupActionHandlers extends setupEventsHandlers with a trigger store
// and a live broadcaster, since the reminder/context-url actions reach
// into both.
func setupActionHandlers(t *testing.T) *handlers {
	db, err := gorm.Open(glebarezsqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, store.AutoMigrate(db))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	events, err := store.NewEventStore(t.Context(), db, rdb, 0.5)
	require.NoError(t, err)
	triggers := store.NewTriggerStore(db)
	broadcaster := transport.New(zap.NewNop())
	t.Cleanup(func() { _ = broadcaster.Close() })

	return &handlers{d: &Deps{
		Events:      events,
		Triggers:    triggers,
		Broadcaster: broadcaster,
		Logger:      zap.NewNop(),
	}}
}

func TestEventAction_SetReminder_RequiresEventTime(t *testing.T) {
	h := setupActionHandlers(t)

	ev := &model.Event{Title: "No time set", EventType: model.EventTask, Status: model.StatusDiscovered}
	require.NoError(t, h.d.Events.Insert(t.Context(), ev))

	r := httptest.NewRequest(http.MethodPost, "/api/events/1/set-reminder", nil)
	r.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	h.eventAction(actionSetReminder)(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventAction_SetReminder_SchedulesFromEventTime(t *testing.T) {
	h := setupActionHandlers(t)

	eventTime := time.Now().Add(2 * time.Hour).Unix()
	ev := &model.Event{Title: "Flight", EventType: model.EventTravel, Status: model.StatusDiscovered, EventTime: &eventTime}
	require.NoError(t, h.d.Events.Insert(t.Context(), ev))

	r := httptest.NewRequest(http.MethodPost, "/api/events/1/set-reminder", nil)
	r.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	h.eventAction(actionSetReminder)(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var got model.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, model.StatusScheduled, got.Status)
	require.NotNil(t, got.ReminderTime)
}

func TestEventAction_Snooze_DefaultsTo30Minutes(t *testing.T) {
	h := setupActionHandlers(t)

	ev := &model.Event{Title: "Call back", EventType: model.EventReminder, Status: model.StatusDiscovered}
	require.NoError(t, h.d.Events.Insert(t.Context(), ev))

	before := time.Now().Add(29 * time.Minute).Unix()

	r := httptest.NewRequest(http.MethodPost, "/api/events/1/snooze", nil)
	r.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	h.eventAction(actionSnooze)(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var got model.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, model.StatusSnoozed, got.Status)
	require.NotNil(t, got.ReminderTime)
	assert.Greater(t, *got.ReminderTime, before)
}

func TestEventAction_Snooze_HonorsMinutesParam(t *testing.T) {
	h := setupActionHandlers(t)

	ev := &model.Event{Title: "Call back", EventType: model.EventReminder, Status: model.StatusDiscovered}
	require.NoError(t, h.d.Events.Insert(t.Context(), ev))

	r := httptest.NewRequest(http.MethodPost, "/api/events/1/snooze?minutes=5", nil)
	r.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	h.eventAction(actionSnooze)(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var got model.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NotNil(t, got.ReminderTime)
	assert.LessOrEqual(t, *got.ReminderTime, time.Now().Add(6*time.Minute).Unix())
}

func TestEventAction_Ignore(t *testing.T) {
	h := setupActionHandlers(t)

	ev := &model.Event{Title: "Spam-ish", EventType: model.EventOther, Status: model.StatusDiscovered}
	require.NoError(t, h.d.Events.Insert(t.Context(), ev))

	r := httptest.NewRequest(http.MethodPost, "/api/events/1/ignore", nil)
	r.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	h.eventAction(actionIgnore)(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var got model.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, model.StatusIgnored, got.Status)
}

func TestEventAction_Acknowledge_LeavesStatusUnchanged(t *testing.T) {
	h := setupActionHandlers(t)

	ev := &model.Event{Title: "FYI", EventType: model.EventOther, Status: model.StatusDiscovered}
	require.NoError(t, h.d.Events.Insert(t.Context(), ev))

	r := httptest.NewRequest(http.MethodPost, "/api/events/1/acknowledge", nil)
	r.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	h.eventAction(actionAcknowledge)(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var got model.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, model.StatusDiscovered, got.Status)
}

func TestEventAction_ConfirmUpdate_AppliesChanges(t *testing.T) {
	h := setupActionHandlers(t)

	ev := &model.Event{Title: "Meeting", EventType: model.EventMeeting, Status: model.StatusDiscovered}
	require.NoError(t, h.d.Events.Insert(t.Context(), ev))

	body := []byte(`{"changes":{"title":"Meeting (moved)"}}`)
	r := httptest.NewRequest(http.MethodPost, "/api/events/1/confirm-update", bytes.NewReader(body))
	r.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	h.eventAction(actionConfirmUpdate)(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var got model.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Meeting (moved)", got.Title)
}

func TestEventAction_ContextURL_RecordsURL(t *testing.T) {
	h := setupActionHandlers(t)

	ev := &model.Event{Title: "Booking", EventType: model.EventTravel, Status: model.StatusDiscovered}
	require.NoError(t, h.d.Events.Insert(t.Context(), ev))

	body := []byte(`{"url":"https://example.com/booking/42"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/events/1/context-url", bytes.NewReader(body))
	r.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	h.eventAction(actionContextURL)(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var got model.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "https://example.com/booking/42", got.ContextURL)
}

func TestEventAction_ContextURL_PermanentCreatesDismissal(t *testing.T) {
	h := setupActionHandlers(t)

	ev := &model.Event{Title: "Booking", EventType: model.EventTravel, Status: model.StatusDiscovered}
	require.NoError(t, h.d.Events.Insert(t.Context(), ev))

	body := []byte(`{"url":"https://example.com/booking/42","permanent":true}`)
	r := httptest.NewRequest(http.MethodPost, "/api/events/1/context-url", bytes.NewReader(body))
	r.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	h.eventAction(actionContextURL)(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	dismissals, err := h.d.Triggers.ListAllDismissals(t.Context())
	require.NoError(t, err)
	require.Len(t, dismissals, 1)
	assert.Equal(t, "https://example.com/booking/42", dismissals[0].URLPattern)
}

func TestEventAction_UnknownEventID(t *testing.T) {
	h := setupActionHandlers(t)

	r := httptest.NewRequest(http.MethodPost, "/api/events/999/complete", nil)
	r.SetPathValue("id", "999")
	w := httptest.NewRecorder()
	h.eventAction(actionComplete)(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
