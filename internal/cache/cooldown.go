package cache

import (
	"fmt"
	"time"
)

// Cooldown suppresses repeat firings for the same (entity, kind) pair within
// a fixed window. It shares the TTL map design with TTLCache and is just as
// instance-scoped: in a multi-instance deployment each process keeps its own
// suppression state.
type Cooldown struct {
	cache *TTLCache[time.Time]
}

// NewCooldown creates a cooldown tracker with the given suppression window
func NewCooldown(window time.Duration, maxEntries int) *Cooldown {
	return &Cooldown{cache: New[time.Time](window, maxEntries)}
}

// Allow reports whether the (entityID, kind) pair may fire now, recording
// the firing when it is allowed
func (c *Cooldown) Allow(entityID, kind string) bool {
	key := fmt.Sprintf("%s:%s", entityID, kind)
	if _, suppressed := c.cache.Get(key); suppressed {
		return false
	}
	c.cache.Set(key, time.Now())
	return true
}
