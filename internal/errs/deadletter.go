package errs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeadLetterMaxBytes is the rotation threshold (§4.1: "exceeds 10 MB").
const DeadLetterMaxBytes = 10 * 1024 * 1024

// DeadLetterEntry is one line of the dead-letter file.
type DeadLetterEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Operation string    `json:"operation"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error"`
	Stack     string    `json:"stack,omitempty"`
}

// DeadLetterLog is an append-only JSONL file with size-based rotation.
// Rotation is intentionally racy under concurrent writers (§5: "at most
// one spurious rotation" is tolerable).
type DeadLetterLog struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewDeadLetterLog opens (creating directories as needed) a dead-letter
// log at path, defaulting to "data/dead-letter.jsonl" per §6.
func NewDeadLetterLog(path string, logger *zap.Logger) *DeadLetterLog {
	if path == "" {
		path = filepath.Join("data", "dead-letter.jsonl")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeadLetterLog{path: path, logger: logger.With(zap.String("component", "dead_letter_log"))}
}

// Append writes one JSON line to the dead-letter log, rotating to
// ".old" first if the file has exceeded DeadLetterMaxBytes.
func (d *DeadLetterLog) Append(operation string, data any, cause error, stack string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		d.logger.Error("dead letter mkdir failed", zap.Error(err))
		return
	}

	if info, err := os.Stat(d.path); err == nil && info.Size() > DeadLetterMaxBytes {
		oldPath := d.path + ".old"
		if err := os.Rename(d.path, oldPath); err != nil {
			d.logger.Warn("dead letter rotation failed", zap.Error(err))
		}
	}

	entry := DeadLetterEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Operation: operation,
		Data:      data,
		Stack:     stack,
	}
	if cause != nil {
		entry.Error = cause.Error()
	}

	line, err := json.Marshal(entry)
	if err != nil {
		d.logger.Error("dead letter marshal failed", zap.Error(err))
		return
	}
	line = append(line, '\n')

	f, err := os.OpenFile(d.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		d.logger.Error("dead letter open failed", zap.Error(err))
		return
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		d.logger.Error("dead letter write failed", zap.Error(err))
	}
}

// AppendFailedReminder writes one line to a retry-final-failure file
// (e.g. "data/failed-reminders.jsonl"), same JSONL + rotation shape.
func AppendFailedReminder(path string, record any, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed reminders mkdir: %w", err)
	}
	if info, err := os.Stat(path); err == nil && info.Size() > DeadLetterMaxBytes {
		_ = os.Rename(path, path+".old")
	}
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed reminders marshal: %w", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed reminders open: %w", err)
	}
	defer f.Close()

	_, err = f.Write(line)
	return err
}
