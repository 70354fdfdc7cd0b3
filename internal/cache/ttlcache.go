package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	savedAt time.Time
}

// TTLCache is a process-local map whose entries expire after a fixed TTL.
// Eviction is purely age based: once the cache grows past maxEntries, the
// next Set sweeps out everything older than the TTL. There is no LRU and no
// cross-instance coordination.
type TTLCache[V any] struct {
	mu         sync.Mutex
	entries    map[string]entry[V]
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// New creates a TTLCache with the given TTL and sweep threshold
func New[V any](ttl time.Duration, maxEntries int) *TTLCache[V] {
	return &TTLCache[V]{
		entries:    make(map[string]entry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached value and true when a fresh entry exists.
// Stale entries are treated as misses but left for the sweep.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.savedAt) > c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, sweeping stale entries first when the cache
// has grown past its threshold
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.sweepLocked()
	}
	c.entries[key] = entry[V]{value: value, savedAt: c.now()}
}

// Sweep removes every entry older than the TTL and returns how many were
// dropped
func (c *TTLCache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked()
}

func (c *TTLCache[V]) sweepLocked() int {
	cutoff := c.now().Add(-c.ttl)
	removed := 0
	for k, e := range c.entries {
		if e.savedAt.Before(cutoff) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the current number of entries, stale included
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
