package cache

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/fasthash/fnv1a"
	"github.com/sirupsen/logrus"

	"github.com/davidkorenblit/fpl-assistant/pkg/logger"
)

// cleanInterval limits how often EvictExpired does a full sweep when invoked
// opportunistically from Set.
const cleanInterval = 5 * time.Minute

type entry[V any] struct {
	storedAt time.Time
	value    V
}

// TimedCache is an in-process key/value store where every entry carries its
// insertion timestamp and the whole partition shares one time-to-live.
// Lookups of expired entries behave as misses and evict the stale entry.
// There is no size-based eviction. Safe for concurrent use.
type TimedCache[V any] struct {
	mu        sync.Mutex
	name      string
	ttl       time.Duration
	entries   map[string]entry[V]
	lastClean time.Time
	logger    *logrus.Entry
}

// Stats is a diagnostic snapshot of one cache partition.
type Stats struct {
	Partition   string    `json:"partition"`
	LiveEntries int       `json:"live_entries"`
	TTLSeconds  float64   `json:"ttl_seconds"`
	LastClean   time.Time `json:"last_clean"`
}

// New creates a named cache partition with the given time-to-live.
func New[V any](name string, ttl time.Duration) *TimedCache[V] {
	return &TimedCache[V]{
		name:      name,
		ttl:       ttl,
		entries:   make(map[string]entry[V]),
		lastClean: time.Now(),
		logger:    logger.WithComponent("timed_cache").WithField("partition", name),
	}
}

// Get returns the cached value for key if it was stored less than the TTL ago.
// An expired entry is removed and reported as a miss.
func (c *TimedCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if time.Since(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the current time, replacing any prior entry.
func (c *TimedCache[V]) Set(key string, value V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{storedAt: time.Now(), value: value}
	needsClean := time.Since(c.lastClean) >= cleanInterval
	c.mu.Unlock()

	if needsClean {
		c.EvictExpired()
	}
}

// Clear drops every entry in the partition.
func (c *TimedCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Len reports the number of entries currently held, expired or not.
func (c *TimedCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// EvictExpired removes every entry older than the TTL and returns how many
// were dropped.
func (c *TimedCache[V]) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	now := time.Now()
	for key, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			delete(c.entries, key)
			evicted++
		}
	}
	c.lastClean = now

	if evicted > 0 {
		c.logger.WithFields(logrus.Fields{
			"evicted":   evicted,
			"remaining": len(c.entries),
		}).Debug("Expired cache entries evicted")
	}
	return evicted
}

// Stats returns the diagnostic snapshot for this partition.
func (c *TimedCache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Partition:   c.name,
		LiveEntries: len(c.entries),
		TTLSeconds:  c.ttl.Seconds(),
		LastClean:   c.lastClean,
	}
}

// Key derives a deterministic cache key from positional arguments.
func Key(args ...any) string {
	var b strings.Builder
	for _, a := range args {
		fmt.Fprintf(&b, "%v|", a)
	}
	return strconv.FormatUint(fnv1a.HashString64(b.String()), 16)
}

// NamedKey derives a deterministic cache key from keyword-style arguments.
// Names are sorted before hashing so semantically identical calls collide
// regardless of argument order.
func NamedKey(kv map[string]any) string {
	names := make([]string, 0, len(kv))
	for name := range kv {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s=%v|", name, kv[name])
	}
	return strconv.FormatUint(fnv1a.HashString64(b.String()), 16)
}
