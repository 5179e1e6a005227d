// internal/rates/cache.go
package rates

import "sync/atomic"

// Cache holds the current rate snapshot. Readers never block writers.
type Cache struct {
	current atomic.Pointer[Table]
}

// NewCache creates a Cache seeded with initial.
func NewCache(initial *Table) *Cache {
	c := &Cache{}
	c.current.Store(initial)
	return c
}

// Current returns the latest snapshot.
func (c *Cache) Current() *Table { return c.current.Load() }

// Replace swaps in a new snapshot.
func (c *Cache) Replace(t *Table) { c.current.Store(t) }
