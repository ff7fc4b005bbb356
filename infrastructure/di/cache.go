package di

import (
	"context"
	"sync"
	"time"
)

// defaultMaxEntries bounds the preview cache. Preview payloads carry whole
// group maps, so an unbounded cache could hold a run's worth of territories
// per distinct horizon.
const defaultMaxEntries = 256

// InMemoryCache is a TTL cache for preview results. Good enough for a single
// instance; Lambda deployments get a fresh one per container.
type InMemoryCache struct {
	mu         sync.RWMutex
	items      map[string]cacheItem
	maxEntries int
}

type cacheItem struct {
	value     interface{}
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache
func NewInMemoryCache() *InMemoryCache {
	cache := &InMemoryCache{
		items:      make(map[string]cacheItem),
		maxEntries: defaultMaxEntries,
	}

	go cache.cleanupExpired()

	return cache
}

// Get retrieves a value from the cache
func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists {
		return nil, false
	}

	if time.Now().After(item.expiresAt) {
		return nil, false
	}

	return item.value, true
}

// Set stores a value with a TTL in seconds. When the cache is full, expired
// entries are dropped first; if it is still full the entry closest to expiry
// makes room.
func (c *InMemoryCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxEntries {
		c.evictLocked()
	}

	c.items[key] = cacheItem{
		value:     value,
		expiresAt: time.Now().Add(time.Duration(ttl) * time.Second),
	}

	return nil
}

// Delete removes a value from the cache
func (c *InMemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

// Clear removes all values from the cache
func (c *InMemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]cacheItem)
	return nil
}

// Len reports the number of cached entries, expired or not
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// evictLocked frees at least one slot. Caller holds the write lock.
func (c *InMemoryCache) evictLocked() {
	now := time.Now()
	var soonestKey string
	var soonestAt time.Time

	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
			continue
		}
		if soonestKey == "" || item.expiresAt.Before(soonestAt) {
			soonestKey = key
			soonestAt = item.expiresAt
		}
	}

	if len(c.items) >= c.maxEntries && soonestKey != "" {
		delete(c.items, soonestKey)
	}
}

// cleanupExpired periodically removes expired items
func (c *InMemoryCache) cleanupExpired() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		now := time.Now()
		for key, item := range c.items {
			if now.After(item.expiresAt) {
				delete(c.items, key)
			}
		}
		c.mu.Unlock()
	}
}
