// Package memory is an in-process LRU answer cache with per-entry expiry.
package memory

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pario-ai/folio/pkg/models"
)

type entry struct {
	key     string
	value   string
	expires time.Time
	element *list.Element
}

// Cache holds at most capacity answers, evicting the least recently used.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*entry
	order    *list.List
	hits     atomic.Int64
	misses   atomic.Int64
}

// New creates a cache with the given capacity and default TTL.
func New(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 512
	}
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*entry, capacity),
		order:    list.New(),
	}
}

func (c *Cache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		if ent.expires.IsZero() || time.Now().Before(ent.expires) {
			c.order.MoveToFront(ent.element)
			c.hits.Add(1)
			return ent.value, true, nil
		}
		c.removeEntry(ent)
	}
	c.misses.Add(1)
	return "", false, nil
}

func (c *Cache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		ent.value = value
		ent.expires = c.expiry(ttl)
		c.order.MoveToFront(ent.element)
		return nil
	}

	if len(c.items) >= c.capacity {
		c.evictOldest()
	}

	c.items[key] = &entry{
		key:     key,
		value:   value,
		expires: c.expiry(ttl),
		element: c.order.PushFront(key),
	}
	return nil
}

func (c *Cache) Flush(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*entry, c.capacity)
	c.order.Init()
	return nil
}

func (c *Cache) Stats(_ context.Context) (models.CacheStats, error) {
	c.mu.Lock()
	n := int64(len(c.items))
	c.mu.Unlock()
	return models.CacheStats{Entries: n, Hits: c.hits.Load(), Misses: c.misses.Load()}, nil
}

func (c *Cache) Close() error { return nil }

func (c *Cache) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = c.ttl
	}
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

func (c *Cache) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	if ent, ok := c.items[elem.Value.(string)]; ok {
		c.removeEntry(ent)
	}
}

func (c *Cache) removeEntry(ent *entry) {
	c.order.Remove(ent.element)
	delete(c.items, ent.key)
}
