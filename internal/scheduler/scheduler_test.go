package scheduler

import (
	"testing"
	"time"

	glebarezsqlite "github.com/glebarez/sqlite"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/argus-assistant/argus/internal/model"
	"github.com/argus-assistant/argus/internal/store"
	"github.com/argus-assistant/argus/internal/transport"
)

func setupScheduler(t *testing.T) *Scheduler {
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
	triggers := store.NewTriggerStore(db)
	messages := store.NewMessageStore(db)
	pushSubs := store.NewPushSubscriptionStore(rdb)
	backup := store.NewBackup(events, messages, triggers, pushSubs)

	cfg := DefaultConfig()
	cfg.FailedRemindersPath = t.TempDir() + "/failed-reminders.jsonl"
	cfg.BackupDir = t.TempDir() + "/backups"

	return New(cfg, events, triggers, backup, nil, nil, transport.New(nil), nil)
}

func TestScheduler_ScanDueRemindersEnqueuesRetryWithoutConnection(t *testing.T) {
	s := setupScheduler(t)

	now := time.Now().Unix()
	ev := &model.Event{
		Title: "Dentist", EventType: model.EventTask, Status: model.StatusScheduled,
		EventTime: &now, ReminderTime: &now,
	}
	require.NoError(t, s.events.Insert(t.Context(), ev))

	s.scanDueReminders(t.Context())

	require.Equal(t, 1, s.retryQueue.Size())

	got, err := s.events.Get(t.Context(), ev.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusScheduled, got.Status)
}

func TestScheduler_ScanTimeTriggersSkipsDisqualifiedStatus(t *testing.T) {
	s := setupScheduler(t)

	ev := &model.Event{Title: "Stale", EventType: model.EventTask, Status: model.StatusCompleted}
	require.NoError(t, s.events.Insert(t.Context(), ev))

	past := time.Now().Add(-time.Minute).Unix()
	trig := &model.Trigger{EventID: ev.ID, Kind: model.TriggerTime1h, Value: "0"}
	require.NoError(t, s.triggers.Insert(t.Context(), trig))
	_ = past

	s.scanTimeTriggers(t.Context())

	require.Equal(t, 0, s.retryQueue.Size())
}

func TestScheduler_Status(t *testing.T) {
	s := setupScheduler(t)
	status := s.Status()
	require.Equal(t, 0, status.RetryQueueSize)
	require.Equal(t, 0, status.FailedReminderCount)
}
