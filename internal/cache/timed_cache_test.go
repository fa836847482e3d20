package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimedCache_SetGet(t *testing.T) {
	c := New[string]("test", time.Minute)

	c.Set("k", "value")
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "value", got)
}

func TestTimedCache_MissOnUnknownKey(t *testing.T) {
	c := New[int]("test", time.Minute)

	got, ok := c.Get("nope")
	assert.False(t, ok)
	assert.Zero(t, got)
}

func TestTimedCache_ExpiryBehavesAsMiss(t *testing.T) {
	c := New[int]("test", 10*time.Millisecond)

	c.Set("k", 7)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry should be evicted on read")
}

func TestTimedCache_SetReplacesAndRefreshes(t *testing.T) {
	c := New[int]("test", 50*time.Millisecond)

	c.Set("k", 1)
	time.Sleep(30 * time.Millisecond)
	c.Set("k", 2)
	time.Sleep(30 * time.Millisecond)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestTimedCache_EvictExpired(t *testing.T) {
	c := New[int]("test", 10*time.Millisecond)

	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)
	c.Set("c", 3)

	evicted := c.EvictExpired()
	assert.Equal(t, 2, evicted)
	assert.Equal(t, 1, c.Len())
}

func TestTimedCache_Clear(t *testing.T) {
	c := New[int]("test", time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	assert.Equal(t, 0, c.Len())
}

func TestTimedCache_Stats(t *testing.T) {
	c := New[int]("fixtures", 900*time.Second)
	c.Set("a", 1)

	stats := c.Stats()
	assert.Equal(t, "fixtures", stats.Partition)
	assert.Equal(t, 1, stats.LiveEntries)
	assert.Equal(t, 900.0, stats.TTLSeconds)
}

func TestKey_Deterministic(t *testing.T) {
	assert.Equal(t, Key(1, "a", true), Key(1, "a", true))
	assert.NotEqual(t, Key(1, "a"), Key("a", 1))
}

func TestNamedKey_OrderIndependent(t *testing.T) {
	a := NamedKey(map[string]any{"team": 5, "lookahead": 3, "round": 10})
	b := NamedKey(map[string]any{"round": 10, "team": 5, "lookahead": 3})
	assert.Equal(t, a, b)

	c := NamedKey(map[string]any{"team": 6, "lookahead": 3, "round": 10})
	assert.NotEqual(t, a, c)
}
