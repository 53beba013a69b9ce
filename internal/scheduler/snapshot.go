package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// backupFilePrefix names every snapshot this scheduler writes, used
// both to generate new filenames and to recognize stale ones for
// pruning.
const backupFilePrefix = "argus-backup-"

// runSnapshot is the daily-snapshot task (§4.8 row 4): the first run
// happens after cfg.SnapshotFirstDelay, then every cfg.SnapshotPeriod
// thereafter, each run exporting the full backup document to
// cfg.BackupDir and pruning files older than cfg.SnapshotRetention days.
func (s *Scheduler) runSnapshot(ctx context.Context) error {
	timer := time.NewTimer(s.cfg.SnapshotFirstDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			s.takeSnapshot(ctx)
			timer.Reset(s.cfg.SnapshotPeriod)
		}
	}
}

func (s *Scheduler) takeSnapshot(ctx context.Context) {
	if s.backup == nil {
		return
	}

	now := time.Now().UTC()
	doc, err := s.backup.ExportAll(ctx, now.Format(time.RFC3339), "scheduler.snapshot")
	if err != nil {
		s.logger.Warn("snapshot export failed", zap.Error(err))
		return
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		s.logger.Warn("snapshot marshal failed", zap.Error(err))
		return
	}

	if err := os.MkdirAll(s.cfg.BackupDir, 0o755); err != nil {
		s.logger.Warn("snapshot mkdir failed", zap.Error(err))
		return
	}

	name := fmt.Sprintf("%s%s.json", backupFilePrefix, now.Format("2006-01-02"))
	path := filepath.Join(s.cfg.BackupDir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		s.logger.Warn("snapshot write failed", zap.Error(err))
		return
	}

	s.logger.Info("snapshot written", zap.String("path", path), zap.Int64("events", doc.Counts.Events))
	s.pruneSnapshots(now)
}

// pruneSnapshots removes backup files older than cfg.SnapshotRetention
// days (§6: "BACKUP_RETENTION_DAYS").
func (s *Scheduler) pruneSnapshots(now time.Time) {
	if s.cfg.SnapshotRetention <= 0 {
		return
	}

	entries, err := os.ReadDir(s.cfg.BackupDir)
	if err != nil {
		s.logger.Warn("snapshot prune readdir failed", zap.Error(err))
		return
	}

	cutoff := now.AddDate(0, 0, -s.cfg.SnapshotRetention)

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), backupFilePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(s.cfg.BackupDir, entry.Name())
			if err := os.Remove(path); err != nil {
				s.logger.Warn("snapshot prune remove failed", zap.String("path", path), zap.Error(err))
			}
		}
	}
}
