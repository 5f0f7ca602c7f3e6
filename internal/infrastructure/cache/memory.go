package cache

import (
	"context"
	"sync"
	"time"

	"github.com/labelscan/backend/internal/domain"
)

// MemoryCache is a thread-safe in-memory classification cache with TTL support.
// Lookups treat expired entries as misses without deleting them (lazy expiry);
// a periodic sweep bounds memory. Writes are idempotent upserts with
// last-write-wins semantics, so concurrent writers need no extra locking.
type MemoryCache struct {
	data     map[string]domain.CacheEntry
	mutex    sync.RWMutex
	stop     chan struct{}
	stopOnce sync.Once
}

const defaultSweepInterval = 10 * time.Minute

// NewMemoryCache creates a new in-memory cache. A non-positive sweepInterval
// falls back to the 10 minute default.
func NewMemoryCache(sweepInterval time.Duration) *MemoryCache {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	c := &MemoryCache{
		data: make(map[string]domain.CacheEntry),
		stop: make(chan struct{}),
	}
	go c.sweepExpired(sweepInterval)
	return c
}

// GetMany returns the fresh entries found for the given normalized names.
// Expired entries are omitted, not deleted.
func (c *MemoryCache) GetMany(ctx context.Context, names []string) (map[string]domain.CacheEntry, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := time.Now()
	found := make(map[string]domain.CacheEntry, len(names))
	for _, name := range names {
		key := domain.NormalizeIngredientKey(name)
		entry, exists := c.data[key]
		if !exists || entry.Expired(now) {
			continue
		}
		found[key] = entry
	}
	return found, nil
}

// Upsert stores a classification under the normalized name with the TTL in days.
func (c *MemoryCache) Upsert(ctx context.Context, name string, classification domain.IngredientClassification, ttlDays int) error {
	now := time.Now()
	entry := domain.CacheEntry{
		Status:          classification.Status,
		EducationalNote: classification.EducationalNote,
		BasicNote:       classification.BasicNote,
		CachedAt:        now,
		ExpiresAt:       now.Add(time.Duration(ttlDays) * 24 * time.Hour),
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data[domain.NormalizeIngredientKey(name)] = entry
	return nil
}

// Size returns the current number of items in the cache (for debugging/monitoring)
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]domain.CacheEntry)
}

// Stop ends the sweep goroutine.
func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// sweepExpired removes expired entries from the cache periodically
func (c *MemoryCache) sweepExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mutex.Lock()
			now := time.Now()
			for key, entry := range c.data {
				if entry.Expired(now) {
					delete(c.data, key)
				}
			}
			c.mutex.Unlock()
		}
	}
}
