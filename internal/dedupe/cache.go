// ABOUTME: Thread-safe TTL cache for deduplicating request idempotency keys
// ABOUTME: Shields the session from duplicate submissions when clients retry over a flaky link

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	seen    time.Time
	element *list.Element
}

// Cache tracks recently seen idempotency keys. Entries expire after the TTL
// and the oldest entry is evicted once the size limit is reached. Safe for
// concurrent use.
type Cache struct {
	mu      sync.Mutex
	keys    map[string]*entry
	order   *list.List // insertion order, oldest at front
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a cache with the given TTL and maximum size. A background
// goroutine sweeps expired entries once a minute until Close.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		keys:    make(map[string]*entry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

// Seen atomically checks whether the key was recorded within the TTL and
// records it if not. Returns true for a duplicate, false for a new key.
func (c *Cache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.keys[key]; ok && time.Since(e.seen) < c.ttl {
		return true
	}
	c.recordLocked(key)
	return false
}

// Len returns the number of tracked keys, including expired ones not yet
// swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}

func (c *Cache) recordLocked(key string) {
	now := time.Now()

	if e, ok := c.keys[key]; ok {
		e.seen = now
		c.order.MoveToBack(e.element)
		return
	}

	if len(c.keys) >= c.maxSize {
		if front := c.order.Front(); front != nil {
			oldest, _ := front.Value.(string)
			c.order.Remove(front)
			delete(c.keys, oldest)
		}
	}

	c.keys[key] = &entry{
		seen:    now,
		element: c.order.PushBack(key),
	}
}

func (c *Cache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.done:
			return
		}
	}
}

func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.keys {
		if now.Sub(e.seen) > c.ttl {
			c.order.Remove(e.element)
			delete(c.keys, key)
		}
	}
}

// Close stops the background sweeper. Safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
