// Package metrics provides Prometheus instrumentation for the server.
// This package is internal and should not be imported by external
// projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector holds every metric the server records, grouped by the
// subsystem that owns it, generalized from the teacher's
// internal/metrics.Collector (HTTP/LLM/agent/cache/db groups)
// to this server's ingestion/tier/scheduler/search/transport domains.
type Collector struct {
	// HTTP metrics.
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Ingestion metrics.
	messagesIngestedTotal  *prometheus.CounterVec
	webhookDuration        *prometheus.HistogramVec
	duplicatesSuppressed   prometheus.Counter
	conflictsDetectedTotal prometheus.Counter

	// Tier-orchestrator metrics.
	tierRequestsTotal *prometheus.CounterVec
	tierDuration      *prometheus.HistogramVec
	tierEscalations   *prometheus.CounterVec

	// Scheduler metrics.
	triggersFiredTotal      *prometheus.CounterVec
	retryQueueSize          prometheus.Gauge
	failedRemindersTotal    prometheus.Counter
	snapshotDuration        prometheus.Histogram

	// Context-matcher/search metrics.
	matchCacheHits   prometheus.Counter
	matchCacheMisses prometheus.Counter
	matchConfidence  prometheus.Histogram

	// Transport metrics.
	broadcastSendsTotal *prometheus.CounterVec
	activeConnections   prometheus.Gauge

	logger *zap.Logger
}

// NewCollector registers every metric under namespace and returns the
// Collector that records them.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{logger: logger.With(zap.String("component", "metrics"))}

	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.messagesIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_ingested_total",
			Help:      "Total number of chat messages ingested",
		},
		[]string{"outcome"}, // proposed, duplicate, no_event, error
	)

	c.webhookDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_duration_seconds",
			Help:      "Webhook ingestion pipeline duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 45},
		},
		[]string{"event_type"},
	)

	c.duplicatesSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_events_suppressed_total",
			Help:      "Total number of proposed events suppressed as duplicates",
		},
	)

	c.conflictsDetectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_conflicts_detected_total",
			Help:      "Total number of scheduling conflicts detected",
		},
	)

	c.tierRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_requests_total",
			Help:      "Total number of tier-orchestrated calls by tier and outcome",
		},
		[]string{"tier", "outcome"},
	)

	c.tierDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tier_request_duration_seconds",
			Help:      "Tier-orchestrated call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"tier"},
	)

	c.tierEscalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_escalations_total",
			Help:      "Total number of tier escalations (T1->T2, T1->T3)",
		},
		[]string{"to_tier"},
	)

	c.triggersFiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_fired_total",
			Help:      "Total number of scheduler triggers fired",
		},
		[]string{"kind"},
	)

	c.retryQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "retry_queue_size",
			Help:      "Current number of items in the scheduler retry queue",
		},
	)

	c.failedRemindersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failed_reminders_total",
			Help:      "Total number of reminders given up on after max retries",
		},
	)

	c.snapshotDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backup_snapshot_duration_seconds",
			Help:      "Daily backup snapshot export duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	c.matchCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_match_cache_hits_total",
			Help:      "Total number of context-matcher result cache hits",
		},
	)

	c.matchCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_match_cache_misses_total",
			Help:      "Total number of context-matcher result cache misses",
		},
	)

	c.matchConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "context_match_confidence",
			Help:      "Confidence of matched context-check results",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	c.broadcastSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_sends_total",
			Help:      "Total number of duplex-channel broadcast attempts",
		},
		[]string{"outcome"}, // sent, no_connection, error
	)

	c.activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_duplex_connections",
			Help:      "Whether a duplex-channel client is currently connected (0 or 1)",
		},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordHTTPRequest records one completed HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordIngestion records one webhook-triggered ingestion pass.
func (c *Collector) RecordIngestion(eventType, outcome string, duration time.Duration) {
	c.messagesIngestedTotal.WithLabelValues(outcome).Inc()
	c.webhookDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

// RecordDuplicateSuppressed increments the duplicate-suppression counter.
func (c *Collector) RecordDuplicateSuppressed() {
	c.duplicatesSuppressed.Inc()
}

// RecordConflictDetected increments the scheduling-conflict counter.
func (c *Collector) RecordConflictDetected() {
	c.conflictsDetectedTotal.Inc()
}

// RecordTierCall records one tier.WithFallback invocation.
func (c *Collector) RecordTierCall(tier, outcome string, duration time.Duration) {
	c.tierRequestsTotal.WithLabelValues(tier, outcome).Inc()
	c.tierDuration.WithLabelValues(tier).Observe(duration.Seconds())
}

// RecordTierEscalation records an orchestrator tier escalation.
func (c *Collector) RecordTierEscalation(toTier string) {
	c.tierEscalations.WithLabelValues(toTier).Inc()
}

// RecordTriggerFired records one scheduler trigger delivery.
func (c *Collector) RecordTriggerFired(kind string) {
	c.triggersFiredTotal.WithLabelValues(kind).Inc()
}

// SetRetryQueueSize reports the scheduler's current retry-queue depth.
func (c *Collector) SetRetryQueueSize(n int) {
	c.retryQueueSize.Set(float64(n))
}

// RecordFailedReminder records one reminder given up on after retries.
func (c *Collector) RecordFailedReminder() {
	c.failedRemindersTotal.Inc()
}

// RecordSnapshot records one daily-backup snapshot export.
func (c *Collector) RecordSnapshot(duration time.Duration) {
	c.snapshotDuration.Observe(duration.Seconds())
}

// RecordMatchCache records a context-matcher result-cache hit or miss.
func (c *Collector) RecordMatchCache(hit bool) {
	if hit {
		c.matchCacheHits.Inc()
		return
	}
	c.matchCacheMisses.Inc()
}

// RecordMatchConfidence records a context-check match's confidence.
func (c *Collector) RecordMatchConfidence(confidence float64) {
	c.matchConfidence.Observe(confidence)
}

// RecordBroadcastSend records one duplex-channel send attempt.
func (c *Collector) RecordBroadcastSend(outcome string) {
	c.broadcastSendsTotal.WithLabelValues(outcome).Inc()
}

// SetActiveConnections reports whether a duplex client is attached.
func (c *Collector) SetActiveConnections(connected bool) {
	if connected {
		c.activeConnections.Set(1)
		return
	}
	c.activeConnections.Set(0)
}

func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
