package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.tierRequestsTotal)
	assert.NotNil(t, collector.triggersFiredTotal)
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordHTTPRequest("GET", "/api/events", 200, 50*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/api/events", "2xx")))
}

func TestCollector_RecordTierCallAndEscalation(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordTierCall("1", "success", 200*time.Millisecond)
	collector.RecordTierEscalation("2")

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.tierRequestsTotal.WithLabelValues("1", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.tierEscalations.WithLabelValues("2")))
}

func TestCollector_SchedulerGauges(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.SetRetryQueueSize(3)
	collector.RecordFailedReminder()
	collector.RecordTriggerFired("time_1h")

	assert.Equal(t, float64(3), testutil.ToFloat64(collector.retryQueueSize))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.failedRemindersTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.triggersFiredTotal.WithLabelValues("time_1h")))
}

func TestCollector_MatchCacheAndBroadcast(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordMatchCache(true)
	collector.RecordMatchCache(false)
	collector.RecordBroadcastSend("no_connection")
	collector.SetActiveConnections(true)

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.matchCacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.matchCacheMisses))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.broadcastSendsTotal.WithLabelValues("no_connection")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.activeConnections))
}
