package apiclient

import (
	"strings"
	"sync"
	"time"
)

// cacheEntry is replaced wholesale on every write.
type cacheEntry struct {
	data      any
	timestamp time.Time
	ttl       time.Duration
}

func (e cacheEntry) fresh(now time.Time) bool {
	return now.Sub(e.timestamp) <= e.ttl
}

// responseCache holds parsed GET results keyed by canonical URL.
type responseCache struct {
	enabled    bool
	defaultTTL time.Duration
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

func newResponseCache(enabled bool, ttl time.Duration, now func() time.Time) *responseCache {
	return &responseCache{
		enabled:    enabled,
		defaultTTL: ttl,
		now:        now,
		entries:    make(map[string]cacheEntry),
	}
}

// get returns the stored value if it is still fresh. Stale entries are evicted.
func (c *responseCache) get(key string) (any, bool) {
	if !c.enabled {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !entry.fresh(c.now()) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.data, true
}

// set stores data under key; a non-positive ttl falls back to the default.
func (c *responseCache) set(key string, data any, ttl time.Duration) {
	if !c.enabled {
		return
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{data: data, timestamp: c.now(), ttl: ttl}
	c.mu.Unlock()
}

func (c *responseCache) remove(key string) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *responseCache) clear() {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// clearExpired sweeps all entries and returns how many were evicted.
func (c *responseCache) clearExpired() int {
	if !c.enabled {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if !entry.fresh(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// removeContaining deletes every key that contains substr.
func (c *responseCache) removeContaining(substr string) int {
	if !c.enabled {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.Contains(key, substr) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// remaining returns the time left before key expires, or zero.
func (c *responseCache) remaining(key string) time.Duration {
	if !c.enabled {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return 0
	}
	left := entry.ttl - c.now().Sub(entry.timestamp)
	if left < 0 {
		return 0
	}
	return left
}

func (c *responseCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
