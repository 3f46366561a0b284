package dedup

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestCache(ttl time.Duration, maxEntries int) (*Cache, *time.Time) {
	c := New(ttl, maxEntries)
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	clock := &now
	c.now = func() time.Time { return *clock }
	return c, clock
}

func TestCheckAndRecordDetectsDuplicate(t *testing.T) {
	c, _ := newTestCache(5*time.Minute, 100)

	if c.CheckAndRecord("fp-1") {
		t.Fatal("first sighting must not be a duplicate")
	}
	if !c.CheckAndRecord("fp-1") {
		t.Fatal("second sighting within TTL must be a duplicate")
	}
	if c.CheckAndRecord("fp-2") {
		t.Fatal("distinct fingerprint must not be a duplicate")
	}
}

func TestTTLAnchoredToFirstSighting(t *testing.T) {
	c, clock := newTestCache(5*time.Minute, 100)

	c.CheckAndRecord("fp-1")

	// A duplicate hit at t+4m must not refresh the window.
	*clock = clock.Add(4 * time.Minute)
	if !c.CheckAndRecord("fp-1") {
		t.Fatal("expected duplicate at t+4m")
	}

	// t+5m1s from the FIRST sighting: expired, counts as fresh.
	*clock = clock.Add(1*time.Minute + time.Second)
	if c.CheckAndRecord("fp-1") {
		t.Fatal("expected expiry anchored to first sighting, not last hit")
	}
}

func TestExpiredEntriesEvicted(t *testing.T) {
	c, clock := newTestCache(time.Minute, 100)

	for i := 0; i < 10; i++ {
		c.CheckAndRecord(fmt.Sprintf("fp-%d", i))
	}
	if c.Len() != 10 {
		t.Fatalf("expected 10 live entries, got %d", c.Len())
	}

	*clock = clock.Add(2 * time.Minute)
	c.CheckAndRecord("fp-new")
	if got := c.Len(); got != 1 {
		t.Errorf("expected expired entries swept, got %d live", got)
	}
}

func TestCapacityEvictsOldestFirst(t *testing.T) {
	c, clock := newTestCache(time.Hour, 5)

	for i := 0; i < 6; i++ {
		c.CheckAndRecord(fmt.Sprintf("fp-%d", i))
		*clock = clock.Add(time.Second)
	}
	// fp-0 is the oldest; inserting a 7th entry pushes the map over cap
	// and the next call evicts from the front.
	c.CheckAndRecord("fp-6")

	if c.CheckAndRecord("fp-0") {
		t.Error("expected oldest entry to have been evicted by the capacity valve")
	}
	if !c.CheckAndRecord("fp-5") {
		t.Error("expected recent entry to survive capacity eviction")
	}
}

func TestConcurrentDoubleSubmissionSingleWinner(t *testing.T) {
	c := New(5*time.Minute, 1000)

	const goroutines = 50
	var fresh atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !c.CheckAndRecord("same-fp") {
				fresh.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := fresh.Load(); got != 1 {
		t.Errorf("exactly one concurrent submission must win, got %d", got)
	}
}
