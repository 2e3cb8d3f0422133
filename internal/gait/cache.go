package gait

import (
	"sync"

	"plantarcli/pkg/contracts/domain"
)

// DefaultCacheSize bounds the number of memoized analyses
const DefaultCacheSize = 32

// Result is one memoized analysis. Callers must treat it as read-only.
type Result struct {
	Events     []domain.GaitEvent    `json:"events"`
	Parameters domain.GaitParameters `json:"parameters"`
}

type cacheKey struct {
	id         string
	revision   int
	thresholds domain.GaitEventThresholds
}

// Cache memoizes Analyze keyed on recording id, revision and thresholds.
// The oldest entry is evicted once capacity is reached.
type Cache struct {
	mu       sync.Mutex
	entries  map[cacheKey]Result
	order    []cacheKey
	capacity int
	hits     uint64
	misses   uint64
}

// NewCache creates a cache holding at most capacity analyses
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &Cache{
		entries:  make(map[cacheKey]Result, capacity),
		capacity: capacity,
	}
}

// Analyze returns the memoized analysis of rec or computes and stores it
func (c *Cache) Analyze(rec *domain.ProcessedRecording, thresholds domain.GaitEventThresholds) Result {
	if rec == nil {
		events, params := Analyze(nil, thresholds)
		return Result{Events: events, Parameters: params}
	}
	key := cacheKey{id: rec.ID, revision: rec.Revision, thresholds: thresholds}

	c.mu.Lock()
	if r, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		return r
	}
	c.misses++
	c.mu.Unlock()

	// computed outside the lock; a concurrent miss on the same key stores an equal result
	events, params := Analyze(rec, thresholds)
	r := Result{Events: events, Parameters: params}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		if len(c.order) >= c.capacity {
			delete(c.entries, c.order[0])
			c.order = c.order[1:]
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = r
	return r
}

// Invalidate drops every entry of recording id
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.order[:0]
	for _, k := range c.order {
		if k.id == id {
			delete(c.entries, k)
			continue
		}
		kept = append(kept, k)
	}
	c.order = kept
}

// Len returns the number of cached analyses
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counters
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
