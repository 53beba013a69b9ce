package api

import (
	"net/http"
)

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.d.Backup.GetStats(r.Context())
	if err != nil {
		writeError(w, h.d.Logger, NewError(ErrInternal, http.StatusInternalServerError, "failed to compute stats"))
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

type healthBody struct {
	Status    string         `json:"status"`
	AITier    int            `json:"aiTier"`
	Scheduler schedulerBody  `json:"scheduler"`
	MatchCache int           `json:"matchCache"`
}

type schedulerBody struct {
	RetryQueueSize      int `json:"retryQueueSize"`
	FailedReminderCount int `json:"failedReminderCount"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	snap := h.d.Orchestrator.Snapshot()

	var schedStatus schedulerBody
	if h.d.Scheduler != nil {
		s := h.d.Scheduler.Status()
		schedStatus = schedulerBody{RetryQueueSize: s.RetryQueueSize, FailedReminderCount: s.FailedReminderCount}
	}

	matchCache := 0
	if h.d.Matcher != nil {
		matchCache = h.d.Matcher.CacheSize()
	}

	writeJSON(w, http.StatusOK, healthBody{
		Status:     "ok",
		AITier:     int(snap.CurrentTier),
		Scheduler:  schedStatus,
		MatchCache: matchCache,
	})
}

type aiStatusBody struct {
	Mode              string  `json:"mode"`
	CurrentTier       int     `json:"currentTier"`
	ConsecutiveFails  int     `json:"consecutiveFails"`
	CooldownRemaining float64 `json:"cooldownRemainingSec"`
	CacheSize         int     `json:"cacheSize"`
	CacheCapacity     int     `json:"cacheCapacity"`
	CacheHits         int64   `json:"cacheHits"`
	CacheMisses       int64   `json:"cacheMisses"`
}

func (h *handlers) aiStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.d.Orchestrator.Snapshot()

	body := aiStatusBody{
		Mode:              string(snap.Mode),
		CurrentTier:       int(snap.CurrentTier),
		ConsecutiveFails:  snap.ConsecutiveFails,
		CooldownRemaining: snap.CooldownRemaining.Seconds(),
	}

	if h.d.AICache != nil {
		size, capacity, hits, misses := h.d.AICache.Stats()
		body.CacheSize = size
		body.CacheCapacity = capacity
		body.CacheHits = hits
		body.CacheMisses = misses
	}

	writeJSON(w, http.StatusOK, body)
}
