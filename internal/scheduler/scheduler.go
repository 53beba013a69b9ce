// Package scheduler implements the Scheduler (§4.8): four periodic
// tasks on a single shared timeline — time-triggers, due-reminders,
// snooze-expiry, and a daily snapshot — plus the process-local retry
// queue they share. Grounded on the teacher's internal/server.Manager
// lifecycle (Start/Shutdown/WaitForShutdown), applied here to
// background tickers coordinated with golang.org/x/sync/errgroup
// instead of an HTTP listener.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/argus-assistant/argus/internal/llmclient"
	"github.com/argus-assistant/argus/internal/model"
	"github.com/argus-assistant/argus/internal/popupgen"
	"github.com/argus-assistant/argus/internal/store"
	"github.com/argus-assistant/argus/internal/tier"
	"github.com/argus-assistant/argus/internal/transport"
)

// Config carries the scheduler's tunables (§4.8, §6).
type Config struct {
	TimeTriggerPeriod   time.Duration // default 60s
	DueReminderPeriod   time.Duration // default 30s
	SnoozeExpiryPeriod  time.Duration // default 30s
	SnapshotPeriod      time.Duration // default 24h
	SnapshotFirstDelay  time.Duration // default 60s
	SnapshotRetention   int           // default 7 days
	LookaheadWindow     time.Duration // default 5min, §4.8: "<= now + 5 min"
	FailedRemindersPath string
	BackupDir           string
}

// DefaultConfig returns §4.8/§6's defaults.
func DefaultConfig() Config {
	return Config{
		TimeTriggerPeriod:   60 * time.Second,
		DueReminderPeriod:   30 * time.Second,
		SnoozeExpiryPeriod:  30 * time.Second,
		SnapshotPeriod:      24 * time.Hour,
		SnapshotFirstDelay:  60 * time.Second,
		SnapshotRetention:   7,
		LookaheadWindow:     5 * time.Minute,
		FailedRemindersPath: "data/failed-reminders.jsonl",
		BackupDir:           "data/backups",
	}
}

// Scheduler owns the four periodic tasks (§4.8) and the retry queue
// they share; the tasks run on separate goroutines and the queue's own
// mutex serializes access to it.
type Scheduler struct {
	cfg Config

	events   *store.EventStore
	triggers *store.TriggerStore
	backup   *store.Backup

	orchestrator *tier.Orchestrator
	llm          *llmclient.Client

	broadcaster *transport.Broadcaster
	retryQueue  *RetryQueue
	logger      *zap.Logger
}

// New builds a Scheduler from its collaborators. llm and orchestrator
// may be nil, in which case deliver always falls back to the static
// popup templates (§4.7).
func New(cfg Config, events *store.EventStore, triggers *store.TriggerStore, backup *store.Backup, orchestrator *tier.Orchestrator, llm *llmclient.Client, broadcaster *transport.Broadcaster, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TimeTriggerPeriod <= 0 {
		cfg = DefaultConfig()
	}
	return &Scheduler{
		cfg:          cfg,
		events:       events,
		triggers:     triggers,
		backup:       backup,
		orchestrator: orchestrator,
		llm:          llm,
		broadcaster:  broadcaster,
		retryQueue:   NewRetryQueue(cfg.FailedRemindersPath, logger),
		logger:       logger.With(zap.String("component", "scheduler")),
	}
}

// Status is the scheduler's contribution to /api/health (§6).
type Status struct {
	RetryQueueSize     int `json:"retryQueueSize"`
	FailedReminderCount int `json:"failedReminderCount"`
}

// Status reports the scheduler's current retry-queue/failure counters.
func (s *Scheduler) Status() Status {
	return Status{RetryQueueSize: s.retryQueue.Size(), FailedReminderCount: s.retryQueue.FailedCount()}
}

// Run launches all four tasks and blocks until ctx is cancelled or one
// task returns an error (§5: "no task pins a CPU"; each task suspends
// on its own ticker).
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.runPeriodic(ctx, s.cfg.TimeTriggerPeriod, s.scanTimeTriggers) })
	g.Go(func() error { return s.runPeriodic(ctx, s.cfg.DueReminderPeriod, s.scanDueReminders) })
	g.Go(func() error { return s.runPeriodic(ctx, s.cfg.SnoozeExpiryPeriod, s.scanSnoozeExpiry) })
	g.Go(func() error { return s.runSnapshot(ctx) })

	return g.Wait()
}

func (s *Scheduler) runPeriodic(ctx context.Context, period time.Duration, task func(context.Context)) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			task(ctx)
		}
	}
}

// deliver sends a notification envelope for an event and fails when no
// client is attached (§4.9: fire-and-forget, but the scheduler treats
// an absent consumer as a delivery failure so S6's retry/failed-
// reminders scenario is observable).
func (s *Scheduler) deliver(ctx context.Context, ev model.Event, popupType model.PopupType) func(context.Context) error {
	return func(ctx context.Context) error {
		if !s.broadcaster.HasConnection() {
			return fmt.Errorf("no active duplex connection")
		}
		blueprint := popupgen.Generate(ctx, s.orchestrator, s.llm, popupType, ev, ev.Title, s.logger)
		return s.broadcaster.Send(ctx, transport.Envelope{
			Type: transport.KindTrigger, Event: &ev, PopupType: &popupType, Popup: &blueprint,
		})
	}
}
