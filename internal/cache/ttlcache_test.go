package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReturnsFreshEntry(t *testing.T) {
	c := New[string](time.Minute, 10)
	c.Set("k", "v")

	got, ok := c.Get("k")

	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestGetMissesUnknownKey(t *testing.T) {
	c := New[string](time.Minute, 10)

	got, ok := c.Get("nope")

	assert.False(t, ok)
	assert.Equal(t, "", got)
}

func TestGetTreatsExpiredEntryAsMiss(t *testing.T) {
	current := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	c := New[int](time.Minute, 10)
	c.now = func() time.Time { return current }

	c.Set("k", 42)

	current = current.Add(61 * time.Second)
	_, ok := c.Get("k")

	assert.False(t, ok)
	// Stale entries are left for the sweep, not removed on read
	assert.Equal(t, 1, c.Len())
}

func TestSetOverwritesAndRefreshes(t *testing.T) {
	current := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	c := New[int](time.Minute, 10)
	c.now = func() time.Time { return current }

	c.Set("k", 1)
	current = current.Add(50 * time.Second)
	c.Set("k", 2)
	current = current.Add(50 * time.Second)

	got, ok := c.Get("k")

	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestSetSweepsWhenOverThreshold(t *testing.T) {
	current := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	c := New[int](time.Minute, 3)
	c.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("old-%d", i), i)
	}
	assert.Equal(t, 3, c.Len())

	current = current.Add(2 * time.Minute)
	c.Set("fresh", 99)

	assert.Equal(t, 1, c.Len())
	got, ok := c.Get("fresh")
	require.True(t, ok)
	assert.Equal(t, 99, got)
}

func TestSweepDropsOnlyStaleEntries(t *testing.T) {
	current := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	c := New[int](time.Minute, 10)
	c.now = func() time.Time { return current }

	c.Set("stale", 1)
	current = current.Add(2 * time.Minute)
	c.Set("fresh", 2)

	removed := c.Sweep()

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("fresh")
	assert.True(t, ok)
}

func TestCooldownSuppressesWithinWindow(t *testing.T) {
	c := NewCooldown(time.Hour, 10)

	assert.True(t, c.Allow("p1", "LOW_STOCK"))
	assert.False(t, c.Allow("p1", "LOW_STOCK"))
}

func TestCooldownKeysAreIndependent(t *testing.T) {
	c := NewCooldown(time.Hour, 10)

	assert.True(t, c.Allow("p1", "LOW_STOCK"))
	assert.True(t, c.Allow("p1", "OUT_OF_STOCK"))
	assert.True(t, c.Allow("p2", "LOW_STOCK"))
}

func TestCooldownReArmsAfterWindow(t *testing.T) {
	current := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	c := NewCooldown(time.Minute, 10)
	c.cache.now = func() time.Time { return current }

	assert.True(t, c.Allow("p1", "LOW_STOCK"))
	current = current.Add(2 * time.Minute)
	assert.True(t, c.Allow("p1", "LOW_STOCK"))
}
