package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	glebarezsqlite "github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/argus-assistant/argus/internal/model"
	"github.com/argus-assistant/argus/internal/store"
)

// setupBackupHandlers wires a Backup facade over real stores and a
// scratch directory standing in for the backup directory.
func setupBackupHandlers(t *testing.T) (*handlers, string) {
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

	dir := t.TempDir()
	return &handlers{d: &Deps{
		Events:    events,
		Backup:    backup,
		BackupDir: dir,
		Logger:    zap.NewNop(),
	}}, dir
}

func TestBackupExport_WritesAttachment(t *testing.T) {
	h, _ := setupBackupHandlers(t)

	ev := &model.Event{Title: "Export me", EventType: model.EventTask, Status: model.StatusDiscovered}
	require.NoError(t, h.d.Events.Insert(t.Context(), ev))

	r := httptest.NewRequest(http.MethodGet, "/api/backup/export", nil)
	w := httptest.NewRecorder()
	h.backupExport(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "argus-backup-")

	var doc store.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, int64(1), doc.Counts.Events)
}

func TestBackupList_EmptyDir(t *testing.T) {
	h, _ := setupBackupHandlers(t)

	r := httptest.NewRequest(http.MethodGet, "/api/backup/list", nil)
	w := httptest.NewRecorder()
	h.backupList(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var got []backupFileInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Empty(t, got)
}

func TestBackupList_FiltersNonMatchingNames(t *testing.T) {
	h, dir := setupBackupHandlers(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "argus-backup-2026-07-30.json"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))

	r := httptest.NewRequest(http.MethodGet, "/api/backup/list", nil)
	w := httptest.NewRecorder()
	h.backupList(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var got []backupFileInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "argus-backup-2026-07-30.json", got[0].Name)
}

func TestBackupImport_RequiresDocument(t *testing.T) {
	h, _ := setupBackupHandlers(t)

	r := httptest.NewRequest(http.MethodPost, "/api/backup/import", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	h.backupImport(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBackupImport_MergesEvents(t *testing.T) {
	h, _ := setupBackupHandlers(t)

	doc := store.Document{
		Version: store.BackupVersion,
		Indices: store.Indices{
			Events: []model.Event{
				{Title: "Imported", EventType: model.EventTask, Status: model.StatusDiscovered},
			},
		},
	}
	payload, err := json.Marshal(backupImportBody{Backup: &doc, Mode: store.ImportMerge})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/api/backup/import", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	h.backupImport(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	list, err := h.d.Events.List(t.Context(), "", 50, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestBackupRestore_RejectsBadFilename(t *testing.T) {
	h, _ := setupBackupHandlers(t)

	r := httptest.NewRequest(http.MethodPost, "/api/backup/restore/../../etc/passwd", nil)
	r.SetPathValue("filename", "../../etc/passwd")
	w := httptest.NewRecorder()
	h.backupRestore(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBackupRestore_NotFound(t *testing.T) {
	h, _ := setupBackupHandlers(t)

	r := httptest.NewRequest(http.MethodPost, "/api/backup/restore/argus-backup-2026-01-01.json", nil)
	r.SetPathValue("filename", "argus-backup-2026-01-01.json")
	w := httptest.NewRecorder()
	h.backupRestore(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBackupRestore_ReplacesFromFile(t *testing.T) {
	h, dir := setupBackupHandlers(t)

	ev := &model.Event{Title: "Stale", EventType: model.EventTask, Status: model.StatusDiscovered}
	require.NoError(t, h.d.Events.Insert(t.Context(), ev))

	doc := store.Document{
		Version: store.BackupVersion,
		Indices: store.Indices{
			Events: []model.Event{
				{Title: "From file", EventType: model.EventTask, Status: model.StatusDiscovered},
			},
		},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "argus-backup-2026-07-31.json"), raw, 0o644))

	r := httptest.NewRequest(http.MethodPost, "/api/backup/restore/argus-backup-2026-07-31.json", nil)
	r.SetPathValue("filename", "argus-backup-2026-07-31.json")
	w := httptest.NewRecorder()
	h.backupRestore(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	list, err := h.d.Events.List(t.Context(), "", 50, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "From file", list[0].Title)
}
