// Package cache is a bounded, time-windowed in-memory cache for upstream
// list responses. Entries past their TTL are misses for Get but stay
// readable through Stale until swept or evicted.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/itamdash/internal/clock"
)

const (
	DefaultTTL           = 5 * time.Minute
	DefaultMaxEntries    = 200
	DefaultSweepInterval = 5 * time.Minute
)

// Per-resource TTLs used by the dashboard service.
const (
	TicketsTTL    = 2 * time.Minute
	UsersTTL      = 5 * time.Minute
	UserAssetsTTL = 10 * time.Minute
	TelemetryTTL  = time.Minute
)

// Options configure a Cache. Zero values fall back to the defaults.
type Options struct {
	TTL           time.Duration
	MaxEntries    int
	SweepInterval time.Duration
	Clock         clock.Clock
}

type entry[V any] struct {
	value    V
	storedAt time.Time
	ttl      time.Duration
}

// Entry is a cached value together with the time it was stored.
type Entry[V any] struct {
	Value    V
	StoredAt time.Time
	Fresh    bool
}

// Cache maps string keys to values of type V. It is safe for concurrent
// use.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	opts    Options
}

// New creates a cache with the given options.
func New[V any](opts Options) *Cache[V] {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return &Cache[V]{entries: make(map[string]entry[V]), opts: opts}
}

func (c *Cache[V]) fresh(e entry[V], now time.Time) bool {
	return now.Sub(e.storedAt) < e.ttl
}

// Get returns the value stored under key if it is still within its TTL.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !c.fresh(e, c.opts.Clock.Now()) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Stale returns the entry stored under key regardless of its age.
func (c *Cache[V]) Stale(key string) (Entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Entry[V]{}, false
	}
	return Entry[V]{Value: e.value, StoredAt: e.storedAt, Fresh: c.fresh(e, c.opts.Clock.Now())}, true
}

// Set stores v under key with the default TTL.
func (c *Cache[V]) Set(key string, v V) {
	c.SetTTL(key, v, c.opts.TTL)
}

// SetTTL stores v under key with a specific TTL, replacing any previous
// entry. When the cache is full the oldest entry is evicted.
func (c *Cache[V]) SetTTL(key string, v V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.opts.TTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.opts.MaxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = entry[V]{value: v, storedAt: c.opts.Clock.Now(), ttl: ttl}
}

func (c *Cache[V]) evictOldestLocked() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for k, e := range c.entries {
		if !found || e.storedAt.Before(oldestAt) || (e.storedAt.Equal(oldestAt) && k < oldestKey) {
			oldestKey, oldestAt, found = k, e.storedAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}

// InvalidateAll drops every entry.
func (c *Cache[V]) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
}

// InvalidatePrefix drops every entry whose key starts with prefix and
// returns how many were removed.
func (c *Cache[V]) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of entries, fresh or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep removes expired entries and returns how many were removed.
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.Clock.Now()
	n := 0
	for k, e := range c.entries {
		if !c.fresh(e, now) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Run sweeps the cache periodically until ctx is done.
func (c *Cache[V]) Run(ctx context.Context) {
	ticker := c.opts.Clock.NewTicker(c.opts.SweepInterval)
	defer ticker.Stop()

	log := zerolog.Ctx(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				log.Debug().Int("removed", n).Msg("cache sweep")
			}
		}
	}
}
