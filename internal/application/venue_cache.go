package application

import (
	"strings"
	"sync"
	"time"
)

// venueCache stores recently computed venue suggestions to avoid repeated
// aggregation queries for identical prefixes while schedules remain
// unchanged. Any schedule write flushes it.
type venueCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]venueCacheEntry
}

type venueCacheEntry struct {
	summaries []VenueSummary
	expiresAt time.Time
}

func newVenueCache(ttl time.Duration, maxEntries int, now func() time.Time) *venueCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &venueCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]venueCacheEntry),
	}
}

func (c *venueCache) Get(prefix string) ([]VenueSummary, bool) {
	if c == nil {
		return nil, false
	}
	key := strings.ToLower(prefix)
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneVenueSummaries(entry.summaries), true
}

func (c *venueCache) Set(prefix string, summaries []VenueSummary) {
	if c == nil {
		return
	}
	key := strings.ToLower(prefix)
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			c.evictOldestLocked()
		}
	}
	c.entries[key] = venueCacheEntry{
		summaries: cloneVenueSummaries(summaries),
		expiresAt: c.now().Add(c.ttl),
	}
}

// Flush drops every entry. Called after any write that can change venue
// usage counts.
func (c *venueCache) Flush() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]venueCacheEntry)
	c.mu.Unlock()
}

func (c *venueCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for key, entry := range c.entries {
		if first || entry.expiresAt.Before(oldest) {
			oldestKey = key
			oldest = entry.expiresAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

func cloneVenueSummaries(summaries []VenueSummary) []VenueSummary {
	if summaries == nil {
		return nil
	}
	out := make([]VenueSummary, len(summaries))
	copy(out, summaries)
	return out
}
