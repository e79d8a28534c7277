package feeds

import (
	"sync"
	"time"
)

// cacheEntry holds one cached value with its freshness bounds.
type cacheEntry[T any] struct {
	value     T
	storedAt  time.Time
	expiresAt time.Time
}

// ttlCache is a per-key cache with two read modes: fresh (age <= ttl) and
// stale (age <= staleWindow), the latter used only when a live fetch fails.
type ttlCache[T any] struct {
	mu          sync.RWMutex
	entries     map[string]cacheEntry[T]
	ttl         time.Duration
	staleWindow time.Duration
	now         func() time.Time
}

func newTTLCache[T any](ttl, staleWindow time.Duration, now func() time.Time) *ttlCache[T] {
	if now == nil {
		now = time.Now
	}
	if staleWindow < ttl {
		staleWindow = ttl
	}
	return &ttlCache[T]{
		entries:     make(map[string]cacheEntry[T]),
		ttl:         ttl,
		staleWindow: staleWindow,
		now:         now,
	}
}

// fresh returns the value when its age is within the TTL.
func (c *ttlCache[T]) fresh(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiresAt) {
		var zero T
		return zero, false
	}
	return entry.value, true
}

// stale returns the value when its age is within the stale window. Only for
// use after a live fetch has failed.
func (c *ttlCache[T]) stale(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.storedAt) > c.staleWindow {
		var zero T
		return zero, false
	}
	return entry.value, true
}

func (c *ttlCache[T]) put(key string, value T) {
	now := c.now()
	c.mu.Lock()
	c.entries[key] = cacheEntry[T]{value: value, storedAt: now, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()
}
