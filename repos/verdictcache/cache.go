// Package verdictcache provides the bounded hostname→verdict cache. Eviction
// is oldest-inserted-first, not least-recently-used: a Get does not refresh an
// entry's position, and a Put over an existing key keeps its original slot.
package verdictcache

import (
	"sync"
	"sync/atomic"

	"github.com/kvasov/domshield/domain"
)

// Cache is the bounded FIFO verdict cache. Safe for concurrent use.
type Cache struct {
	mu        sync.Mutex
	capacity  int
	entries   map[string]domain.Verdict
	order     []string // insertion order; head is the next eviction victim
	head      int
	hits      uint64
	misses    uint64
	evictions uint64
}

// disabled is a no-op cache used when capacity <= 0.
type disabled struct{}

// New creates a verdict cache with the given capacity. If capacity <= 0, a
// disabled no-op cache is returned that always misses.
func New(capacity int) Interface {
	if capacity <= 0 {
		return &disabled{}
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]domain.Verdict, capacity),
		order:    make([]string, 0, capacity),
	}
}

// Interface is the surface the policy layer consumes.
type Interface interface {
	Get(hostname string) (domain.Verdict, bool)
	Put(hostname string, v domain.Verdict)
	Len() int
	Purge()
	Stats() (hits, misses, evictions uint64)
}

// Get looks up a cached verdict. A hit does not affect eviction order.
func (c *Cache) Get(hostname string) (domain.Verdict, bool) {
	c.mu.Lock()
	v, ok := c.entries[hostname]
	c.mu.Unlock()
	if ok {
		atomic.AddUint64(&c.hits, 1)
		return v, true
	}
	atomic.AddUint64(&c.misses, 1)
	return domain.Verdict{}, false
}

// Put stores a verdict. When at capacity, the oldest-inserted entry is
// evicted. Overwriting an existing key keeps its insertion slot.
func (c *Cache) Put(hostname string, v domain.Verdict) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[hostname]; ok {
		c.entries[hostname] = v
		return
	}

	if len(c.entries) >= c.capacity {
		c.evictOldest()
	}
	c.entries[hostname] = v
	c.order = append(c.order, hostname)
}

// evictOldest removes the head entry, skipping slots whose key was already
// purged. Caller holds the lock.
func (c *Cache) evictOldest() {
	for c.head < len(c.order) {
		victim := c.order[c.head]
		c.head++
		if _, ok := c.entries[victim]; ok {
			delete(c.entries, victim)
			atomic.AddUint64(&c.evictions, 1)
			break
		}
	}
	// Compact the slice once the dead prefix dominates.
	if c.head > c.capacity {
		c.order = append(c.order[:0], c.order[c.head:]...)
		c.head = 0
	}
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge clears all entries. Purged entries do not count as evictions.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]domain.Verdict, c.capacity)
	c.order = c.order[:0]
	c.head = 0
	c.mu.Unlock()
}

// Stats returns cumulative hit/miss/eviction counters.
func (c *Cache) Stats() (hits, misses, evictions uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses), atomic.LoadUint64(&c.evictions)
}

func (d *disabled) Get(string) (domain.Verdict, bool) { return domain.Verdict{}, false }
func (d *disabled) Put(string, domain.Verdict)        {}
func (d *disabled) Len() int                          { return 0 }
func (d *disabled) Purge()                            {}
func (d *disabled) Stats() (uint64, uint64, uint64)   { return 0, 0, 0 }

var _ Interface = (*Cache)(nil)
var _ Interface = (*disabled)(nil)
