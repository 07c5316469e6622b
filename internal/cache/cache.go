package cache

import (
	"sync"
	"time"
)

type Item[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// Cache is a TTL map. A background goroutine evicts expired entries until
// Close is called.
type Cache[V any] struct {
	items map[string]Item[V]
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time

	stop      chan struct{}
	closeOnce sync.Once
}

func New[V any](ttl time.Duration) *Cache[V] {
	return newCache[V](ttl, time.Minute, time.Now)
}

func newCache[V any](ttl, sweep time.Duration, now func() time.Time) *Cache[V] {
	c := &Cache[V]{
		items: make(map[string]Item[V]),
		ttl:   ttl,
		now:   now,
		stop:  make(chan struct{}),
	}
	go c.cleanup(sweep)
	return c
}

func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = Item[V]{
		Value:     value,
		ExpiresAt: c.now().Add(c.ttl),
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, exists := c.items[key]
	if !exists || c.now().After(item.ExpiresAt) {
		var zero V
		return zero, false
	}
	return item.Value, true
}

// Items returns every live entry.
func (c *Cache[V]) Items() map[string]V {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	out := make(map[string]V, len(c.items))
	for key, item := range c.items {
		if now.After(item.ExpiresAt) {
			continue
		}
		out[key] = item.Value
	}
	return out
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]Item[V])
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (c *Cache[V]) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
}

func (c *Cache[V]) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Cache[V]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, item := range c.items {
		if now.After(item.ExpiresAt) {
			delete(c.items, key)
		}
	}
}
