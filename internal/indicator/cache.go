package indicator

import (
	"sync"
	"time"
)

// Reading is the output of one indicator evaluation. OK is false when the
// window held too little history to compute a value; callers treat that as
// HOLD. Lower and Upper are set by band indicators only.
type Reading struct {
	Value  float64    `json:"value"`
	Lower  float64    `json:"lower,omitempty"`
	Upper  float64    `json:"upper,omitempty"`
	Signal Indication `json:"signal"`
	OK     bool       `json:"ok"`
}

// Cache records every causal evaluation of one indicator instance, keyed by
// both tick timestamp and tick index. Entries are never evicted; call Reset
// between runs to release memory.
//
// The mutex only protects readers such as metrics scrapes. An instance must
// still not be evaluated from more than one goroutine.
type Cache struct {
	mu      sync.RWMutex
	byTime  map[time.Time]Reading
	byIndex map[int]Reading
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		byTime:  make(map[time.Time]Reading),
		byIndex: make(map[int]Reading),
	}
}

// Put records r under both keys.
func (c *Cache) Put(ts time.Time, idx int, r Reading) {
	c.mu.Lock()
	c.byTime[ts.UTC()] = r
	c.byIndex[idx] = r
	c.mu.Unlock()
}

// At returns the reading recorded for timestamp ts.
func (c *Cache) At(ts time.Time) (Reading, bool) {
	c.mu.RLock()
	r, ok := c.byTime[ts.UTC()]
	c.mu.RUnlock()
	return r, ok
}

// AtIndex returns the reading recorded for tick index idx.
func (c *Cache) AtIndex(idx int) (Reading, bool) {
	c.mu.RLock()
	r, ok := c.byIndex[idx]
	c.mu.RUnlock()
	return r, ok
}

// Len returns the number of cached ticks.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byIndex)
}

// Reset drops all entries.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.byTime = make(map[time.Time]Reading)
	c.byIndex = make(map[int]Reading)
	c.mu.Unlock()
}
