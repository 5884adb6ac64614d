// Package quotecache memoizes fetched quotes per symbol for a freshness window.
package quotecache

import (
	"sync"
	"time"

	"github.com/newthinker/radar/internal/clock"
	"github.com/newthinker/radar/internal/core"
)

// DefaultFreshness is how long a fetched quote is trusted without refetch.
const DefaultFreshness = 10 * time.Minute

type cacheEntry struct {
	at    time.Time
	quote core.Quote
}

// Cache holds the last fetched quote for each symbol. Entries are never evicted;
// a stale entry is simply reported as a miss until it is overwritten.
type Cache struct {
	clock     clock.Clock
	freshness time.Duration

	mu    sync.Mutex
	items map[string]cacheEntry
}

// New creates a cache. A non-positive freshness falls back to DefaultFreshness.
func New(clk clock.Clock, freshness time.Duration) *Cache {
	if clk == nil {
		clk = clock.Real{}
	}
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &Cache{clock: clk, freshness: freshness, items: make(map[string]cacheEntry)}
}

// Freshness returns the configured window.
func (c *Cache) Freshness() time.Duration {
	return c.freshness
}

// Get returns the cached quote if it was stored less than the freshness window ago.
func (c *Cache) Get(symbol string) (core.Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.items[symbol]
	if !ok || c.clock.Now().Sub(ent.at) >= c.freshness {
		return core.Quote{}, false
	}
	q := ent.quote
	q.Trend = append([]float64(nil), ent.quote.Trend...)
	return q, true
}

// Fresh reports whether Get would hit.
func (c *Cache) Fresh(symbol string) bool {
	_, ok := c.Get(symbol)
	return ok
}

// Put stores q with the current time, replacing any previous entry.
func (c *Cache) Put(symbol string, q core.Quote) {
	q.Trend = append([]float64(nil), q.Trend...)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[symbol] = cacheEntry{at: c.clock.Now(), quote: q}
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
