package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/argus-assistant/argus/config"
	"github.com/argus-assistant/argus/internal/cache"
	"github.com/argus-assistant/argus/internal/contextmatch"
	"github.com/argus-assistant/argus/internal/ingestion"
	"github.com/argus-assistant/argus/internal/llmclient"
	"github.com/argus-assistant/argus/internal/metrics"
	"github.com/argus-assistant/argus/internal/scheduler"
	"github.com/argus-assistant/argus/internal/store"
	"github.com/argus-assistant/argus/internal/tier"
	"github.com/argus-assistant/argus/internal/transport"
)

// Deps collects every collaborator the HTTP surface calls into. One
// Deps is built once at process startup and shared by every handler,
// mirroring the teacher's handler-struct-holds-its-dependencies shape
// (api/handlers/*.go each take a *deps.Container-like struct).
type Deps struct {
	Config *config.Config

	Pipeline *ingestion.Pipeline
	Matcher  *contextmatch.Matcher

	Events   *store.EventStore
	Messages *store.MessageStore
	Triggers *store.TriggerStore
	Backup   *store.Backup

	Orchestrator *tier.Orchestrator
	LLM          *llmclient.Client
	Scheduler    *scheduler.Scheduler
	AICache      *cache.ResponseCache
	BackupDir    string

	Broadcaster *transport.Broadcaster
	Metrics     *metrics.Collector

	Logger *zap.Logger
}

// NewRouter builds the complete HTTP handler: the stdlib 1.22+
// method+path ServeMux wrapped in the middleware chain (§5, §7).
func NewRouter(d *Deps) http.Handler {
	mux := http.NewServeMux()

	h := &handlers{d: d}

	mux.HandleFunc("POST /api/webhook/{rest...}", h.webhook)
	mux.HandleFunc("POST /api/webhook", h.webhook)
	mux.HandleFunc("POST /api/context-check", h.contextCheck)
	mux.HandleFunc("POST /api/chat", h.chat)
	mux.HandleFunc("POST /api/form-check", h.formCheck)

	mux.HandleFunc("GET /api/events", h.listEvents)
	mux.HandleFunc("GET /api/events/day/{day}", h.eventsByDay)
	mux.HandleFunc("GET /api/events/status/{status}", h.eventsByStatus)
	mux.HandleFunc("GET /api/events/{id}", h.getEvent)
	mux.HandleFunc("PATCH /api/events/{id}", h.patchEvent)
	mux.HandleFunc("DELETE /api/events/{id}", h.deleteEvent)

	mux.HandleFunc("POST /api/events/{id}/complete", h.eventAction(actionComplete))
	mux.HandleFunc("POST /api/events/{id}/set-reminder", h.eventAction(actionSetReminder))
	mux.HandleFunc("POST /api/events/{id}/snooze", h.eventAction(actionSnooze))
	mux.HandleFunc("POST /api/events/{id}/ignore", h.eventAction(actionIgnore))
	mux.HandleFunc("POST /api/events/{id}/dismiss", h.eventAction(actionDismiss))
	mux.HandleFunc("POST /api/events/{id}/acknowledge", h.eventAction(actionAcknowledge))
	mux.HandleFunc("POST /api/events/{id}/confirm-update", h.eventAction(actionConfirmUpdate))
	mux.HandleFunc("POST /api/events/{id}/context-url", h.eventAction(actionContextURL))

	mux.HandleFunc("GET /api/stats", h.stats)
	mux.HandleFunc("GET /api/health", h.health)
	mux.HandleFunc("GET /api/ai-status", h.aiStatus)

	mux.HandleFunc("GET /api/backup/export", h.backupExport)
	mux.HandleFunc("GET /api/backup/list", h.backupList)
	mux.HandleFunc("POST /api/backup/import", h.backupImport)
	mux.HandleFunc("POST /api/backup/restore/{filename}", h.backupRestore)

	mux.HandleFunc("GET /ws", h.duplexChannel)
	mux.Handle("GET /metrics", promhttp.Handler())

	return Chain(mux,
		Recovery(d.Logger),
		RequestID(),
		RequestLogger(d.Logger),
		MetricsMiddleware(d.Metrics),
		OTelTracing(),
		SecurityHeaders(),
		CORS(nil),
		RateLimiter(d.Config.Server.RateLimitRPS, d.Config.Server.RateLimitBurst, d.Logger),
	)
}

// handlers holds Deps for every method receiver in this package.
type handlers struct {
	d *Deps
}
