package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/argus-assistant/argus/internal/store"
)

// backupFilenamePattern enforces the "argus-backup-YYYY-MM-DD.json"
// shape (§6: "Filename must match argus-backup-YYYY-MM-DD.json").
var backupFilenamePattern = regexp.MustCompile(`^argus-backup-\d{4}-\d{2}-\d{2}\.json$`)

func (h *handlers) backupExport(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	doc, err := h.d.Backup.ExportAll(r.Context(), now.Format(time.RFC3339), "api.export")
	if err != nil {
		writeError(w, h.d.Logger, NewError(ErrInternal, http.StatusInternalServerError, "backup export failed"))
		return
	}

	filename := fmt.Sprintf("argus-backup-%s.json", now.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(doc)
}

type backupFileInfo struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	ModTime string `json:"modTime"`
}

func (h *handlers) backupList(w http.ResponseWriter, r *http.Request) {
	dir := h.d.BackupDir
	if dir == "" {
		dir = "data/backups"
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		writeJSON(w, http.StatusOK, []backupFileInfo{})
		return
	}

	files := make([]backupFileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !backupFilenamePattern.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, backupFileInfo{
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime().UTC().Format(time.RFC3339),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name > files[j].Name })
	writeJSON(w, http.StatusOK, files)
}

// backupImportMaxBytes is the §6 "50 MB body limit" for POST
// /api/backup/import.
const backupImportMaxBytes = 50 << 20

type backupImportBody struct {
	Backup  *store.Document   `json:"backup"`
	Mode    store.ImportMode  `json:"mode"`
	Indices []string          `json:"indices,omitempty"`
}

func (h *handlers) backupImport(w http.ResponseWriter, r *http.Request) {
	var body backupImportBody
	if err := decodeJSON(w, r, &body, backupImportMaxBytes); err != nil {
		writeError(w, h.d.Logger, err)
		return
	}
	if body.Backup == nil {
		writeError(w, h.d.Logger, BadRequest("backup document is required"))
		return
	}
	if body.Mode == "" {
		body.Mode = store.ImportMerge
	}

	if err := h.d.Backup.ImportFromBackup(r.Context(), body.Backup, body.Mode, body.Indices); err != nil {
		writeError(w, h.d.Logger, NewError(ErrInternal, http.StatusInternalServerError, "backup import failed"))
		return
	}
	writeJSON(w, http.StatusOK, body.Backup.Counts)
}

func (h *handlers) backupRestore(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if !backupFilenamePattern.MatchString(filename) {
		writeError(w, h.d.Logger, BadRequest("filename must match argus-backup-YYYY-MM-DD.json"))
		return
	}

	dir := h.d.BackupDir
	if dir == "" {
		dir = "data/backups"
	}

	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		writeError(w, h.d.Logger, NotFound("backup file not found"))
		return
	}

	var doc store.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		writeError(w, h.d.Logger, BadRequest("backup file is not valid JSON"))
		return
	}

	if err := h.d.Backup.ImportFromBackup(r.Context(), &doc, store.ImportReplace, nil); err != nil {
		writeError(w, h.d.Logger, NewError(ErrInternal, http.StatusInternalServerError, "backup restore failed"))
		return
	}
	writeJSON(w, http.StatusOK, doc.Counts)
}
