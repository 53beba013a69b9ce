package contextmatch

import (
	"container/list"
	"sync"
	"time"
)

// resultCacheCapacity is the default FIFO eviction bound (§4.10 step 6:
// "default 200").
const resultCacheCapacity = 200

// resultCacheTTL is the match-result cache lifetime (§4.10 step 2).
const resultCacheTTL = 10 * time.Minute

// cachedResult is one TTL-stamped Match, the unit stored per canonical
// URL.
type cachedResult struct {
	key       string
	result    Result
	expiresAt time.Time
}

// resultCache is a FIFO-eviction, TTL-expiring cache keyed by canonical
// URL (§4.10 step 2 and 6). Unlike internal/cache's LRU, eviction order
// here is insertion order, not recency — the spec names it "FIFO"
// explicitly.
type resultCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = oldest
}

func newResultCache(capacity int) *resultCache {
	if capacity <= 0 {
		capacity = resultCacheCapacity
	}
	return &resultCache{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the cached result for key if present, regardless of
// whether it has expired — callers needing freshness call GetFresh.
func (c *resultCache) Get(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return Result{}, false
	}
	return el.Value.(*cachedResult).result, true
}

// GetFresh returns the cached result only if it has not yet expired
// (§4.10 step 2: "on hit return cached result").
func (c *resultCache) GetFresh(key string, now time.Time) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return Result{}, false
	}
	cr := el.Value.(*cachedResult)
	if now.After(cr.expiresAt) {
		return Result{}, false
	}
	return cr.result, true
}

// Set inserts or replaces key's cached result, evicting the oldest
// entry if the cache is at capacity (§4.10 step 6).
func (c *resultCache) Set(key string, result Result, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*cachedResult).result = result
		el.Value.(*cachedResult).expiresAt = now.Add(resultCacheTTL)
		c.order.MoveToBack(el)
		return
	}

	if len(c.items) >= c.capacity {
		oldest := c.order.Front()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cachedResult).key)
		}
	}

	cr := &cachedResult{key: key, result: result, expiresAt: now.Add(resultCacheTTL)}
	c.items[key] = c.order.PushBack(cr)
}

// Len reports the current cache size, for /api/health's matchCache field.
func (c *resultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
