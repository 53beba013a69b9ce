package cache

import (
	"time"
)

// ResponseCache is the Tier-3 cache/safe-default fallback for LLM calls
// (§4.2, §4.3). It is a thin, semantically-named wrapper over LRU so
// call sites in internal/tier read as "the T3 cache" rather than a bare
// generic cache.
type ResponseCache struct {
	lru *LRU
}

// NewResponseCache builds a response cache from AI_CACHE_MAX_SIZE and
// AI_CACHE_TTL_SEC (§6).
func NewResponseCache(maxSize int, ttl time.Duration) *ResponseCache {
	return &ResponseCache{lru: New(maxSize, ttl)}
}

// Get looks up fnName's cached result for input, or reports a miss.
func (r *ResponseCache) Get(fnName, input string) (any, bool) {
	return r.lru.Get(HashKey(fnName, input))
}

// Set stores fnName's result for input.
func (r *ResponseCache) Set(fnName, input string, value any) {
	r.lru.Set(HashKey(fnName, input), value)
}

// Stats exposes size/capacity/hit/miss counters for /api/ai-status.
func (r *ResponseCache) Stats() (size, capacity int, hits, misses int64) {
	return r.lru.Stats()
}
