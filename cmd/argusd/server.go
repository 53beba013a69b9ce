package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/argus-assistant/argus/api"
	"github.com/argus-assistant/argus/config"
	"github.com/argus-assistant/argus/internal/cache"
	"github.com/argus-assistant/argus/internal/contextmatch"
	"github.com/argus-assistant/argus/internal/errs"
	"github.com/argus-assistant/argus/internal/ingestion"
	"github.com/argus-assistant/argus/internal/llmclient"
	"github.com/argus-assistant/argus/internal/metrics"
	"github.com/argus-assistant/argus/internal/scheduler"
	internalserver "github.com/argus-assistant/argus/internal/server"
	"github.com/argus-assistant/argus/internal/store"
	"github.com/argus-assistant/argus/internal/tier"
	"github.com/argus-assistant/argus/internal/transport"
)

// Server wires every collaborator package into the running process:
// storage, tiering, caching, ingestion, the background scheduler, and
// the HTTP surface, then owns graceful shutdown of all of them.
// Grounded on the teacher's cmd/agentflow/server.go, trimmed of its
// hot-reload manager and config-API handler since argusd reloads
// config only on process restart.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	db  *gorm.DB
	rdb *redis.Client

	httpManager *internalserver.Manager
	scheduler   *scheduler.Scheduler
	broadcaster *transport.Broadcaster

	schedulerCancel context.CancelFunc
	wg              sync.WaitGroup
}

// NewServer constructs every collaborator and assembles the HTTP
// router, but does not start listening yet.
func NewServer(cfg *config.Config, logger *zap.Logger, db *gorm.DB) (*Server, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	alpha := cfg.HybridAlpha
	if alpha <= 0 {
		alpha = 0.5
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()
	events, err := store.NewEventStore(initCtx, db, rdb, alpha)
	if err != nil {
		return nil, fmt.Errorf("build event store: %w", err)
	}
	messages := store.NewMessageStore(db)
	triggers := store.NewTriggerStore(db)
	pushSubs := store.NewPushSubscriptionStore(rdb)
	backup := store.NewBackup(events, messages, triggers, pushSubs)

	tierCfg := tier.DefaultConfig()
	if cfg.AITierMode != "" {
		tierCfg.Mode = tier.Mode(cfg.AITierMode)
	}
	if cfg.AICooldownBaseSec > 0 {
		tierCfg.BaseCooldown = time.Duration(cfg.AICooldownBaseSec) * time.Second
	}
	orchestrator := tier.New(tierCfg, logger)

	var llm *llmclient.Client
	if cfg.LLM.APIKey != "" {
		llm = llmclient.New(llmclient.Config{
			APIKey:       cfg.LLM.APIKey,
			BaseURL:      cfg.LLM.BaseURL,
			ChatModel:    cfg.LLM.ChatModel,
			EmbedModel:   cfg.LLM.EmbedModel,
			Organization: cfg.LLM.Organization,
			HTTPTimeout:  cfg.LLM.Timeout,
		}, logger)
	}

	cacheTTL := time.Duration(cfg.AICacheTTLSec) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	cacheSize := cfg.AICacheMaxSize
	if cacheSize <= 0 {
		cacheSize = 500
	}
	actionCache := cache.NewResponseCache(cacheSize, cacheTTL)
	extractCache := cache.NewResponseCache(cacheSize, cacheTTL)
	aiCache := cache.NewResponseCache(cacheSize, cacheTTL)

	broadcaster := transport.New(logger)

	deadLetter := errs.NewDeadLetterLog("data/dead-letter.jsonl", logger)

	pipeline := ingestion.New(ingestion.Config{
		ProcessOwnMessages: cfg.ProcessOwnMessages,
		SkipGroupMessages:  cfg.SkipGroupMessages,
	}, messages, events, orchestrator, llm, actionCache, extractCache, broadcaster, deadLetter, logger)

	matchCacheCapacity := cfg.MatchCacheCapacity
	if matchCacheCapacity <= 0 {
		matchCacheCapacity = 200
	}
	matcher := contextmatch.New(events, orchestrator, llm, matchCacheCapacity, cfg.HotWindowDays, logger)

	backupDir := "data/backups"
	schedCfg := scheduler.DefaultConfig()
	schedCfg.BackupDir = backupDir
	if cfg.BackupRetentionDays > 0 {
		schedCfg.SnapshotRetention = cfg.BackupRetentionDays
	}
	sched := scheduler.New(schedCfg, events, triggers, backup, orchestrator, llm, broadcaster, logger)

	collector := metrics.NewCollector("argus", logger)

	router := api.NewRouter(&api.Deps{
		Config:       cfg,
		Pipeline:     pipeline,
		Matcher:      matcher,
		Events:       events,
		Messages:     messages,
		Triggers:     triggers,
		Backup:       backup,
		Orchestrator: orchestrator,
		LLM:          llm,
		Scheduler:    sched,
		AICache:      aiCache,
		BackupDir:    backupDir,
		Broadcaster:  broadcaster,
		Metrics:      collector,
		Logger:       logger,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpManager := internalserver.NewManager(router, addr, cfg.Server, logger)

	return &Server{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		rdb:         rdb,
		httpManager: httpManager,
		scheduler:   sched,
		broadcaster: broadcaster,
	}, nil
}

// Start begins serving HTTP and runs the scheduler's periodic loops in
// the background.
func (s *Server) Start() error {
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.schedulerCancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.scheduler.Run(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("scheduler stopped unexpectedly", zap.Error(err))
		}
	}()

	return nil
}

// WaitForShutdown blocks until SIGINT/SIGTERM or a fatal HTTP error,
// then tears every collaborator down in reverse build order.
func (s *Server) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-s.httpManager.Errors():
		if err != nil {
			s.logger.Error("http server exited unexpectedly", zap.Error(err))
		}
	}

	s.shutdown()
}

func (s *Server) shutdown() {
	shutdownTimeout := s.cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpManager.Shutdown(ctx); err != nil {
		s.logger.Error("http shutdown error", zap.Error(err))
	}

	if s.schedulerCancel != nil {
		s.schedulerCancel()
	}
	s.wg.Wait()

	if err := s.broadcaster.Close(); err != nil {
		s.logger.Warn("broadcaster close error", zap.Error(err))
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Warn("database close error", zap.Error(err))
		}
	}
	if err := s.rdb.Close(); err != nil {
		s.logger.Warn("redis close error", zap.Error(err))
	}

	s.logger.Info("all components stopped")
}
