// Package dedup provides the in-memory, best-effort duplicate-detection
// cache. Entries live for a fixed TTL anchored to the first sighting; the
// cache never survives a restart.
package dedup

import (
	"sync"
	"time"
)

const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 50_000

	// sweepBatch bounds how many queue entries one call may evict, so a
	// single caller never holds the lock for a full scan.
	sweepBatch = 256
)

type entry struct {
	fingerprint string
	firstSeen   time.Time
}

// Cache maps event fingerprints to their first-seen time. The
// check-then-insert in CheckAndRecord is a single critical section: two
// concurrent deliveries of the same fingerprint can never both observe
// "not duplicate".
type Cache struct {
	mu         sync.Mutex
	entries    map[string]time.Time
	queue      []entry // insertion order, oldest first
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func New(ttl time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		entries:    make(map[string]time.Time),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// CheckAndRecord reports whether fingerprint was already seen within the TTL
// window, recording it atomically when it was not. A duplicate hit does not
// refresh the first-seen time: the window stays anchored to the first
// occurrence.
func (c *Cache) CheckAndRecord(fingerprint string) (isDuplicate bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.evictLocked(now)

	if firstSeen, ok := c.entries[fingerprint]; ok {
		if now.Sub(firstSeen) <= c.ttl {
			return true
		}
		// Expired but not yet swept: treat as a fresh first sighting.
	}

	c.entries[fingerprint] = now
	c.queue = append(c.queue, entry{fingerprint: fingerprint, firstSeen: now})
	return false
}

// Len returns the number of live entries. Advisory only.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictLocked drops expired entries and, as a safety valve against
// fingerprint-generation bugs, the oldest entries beyond the capacity cap.
// Work is bounded per call so eviction amortizes across callers.
func (c *Cache) evictLocked(now time.Time) {
	evicted := 0
	for len(c.queue) > 0 && evicted < sweepBatch {
		head := c.queue[0]
		expired := now.Sub(head.firstSeen) > c.ttl
		overCap := len(c.entries) > c.maxEntries
		if !expired && !overCap {
			break
		}
		c.queue = c.queue[1:]
		evicted++
		// A re-recorded fingerprint leaves a stale queue entry behind;
		// only delete when the map still holds this exact sighting.
		if seen, ok := c.entries[head.fingerprint]; ok && seen.Equal(head.firstSeen) {
			delete(c.entries, head.fingerprint)
		}
	}
}
