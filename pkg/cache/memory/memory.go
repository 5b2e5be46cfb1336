// Package memory provides a bounded in-process answer cache with TTL and
// least-recently-used eviction.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/papercomputeco/askbase/pkg/cache"
	"github.com/papercomputeco/askbase/pkg/rag"
)

const (
	DefaultMaxSize = 100
	DefaultTTL     = 5 * time.Minute
)

type entry struct {
	result    *rag.QueryResult
	timestamp time.Time
}

// Cache implements cache.Cache in memory.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   []string
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// New creates a cache holding at most maxSize answers for ttl each.
// Non-positive values select the defaults.
func New(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]*entry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a copy of the cached answer.
func (c *Cache) Get(_ context.Context, question string) (*rag.QueryResult, bool, error) {
	key := cache.Key(question)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}

	if c.now().Sub(e.timestamp) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return nil, false, nil
	}

	c.moveToEnd(key)
	cp := *e.result
	return &cp, true, nil
}

// Set caches result, evicting the least recently used answer when full.
func (c *Cache) Set(_ context.Context, question string, result *rag.QueryResult) error {
	key := cache.Key(question)
	cp := *result

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = &entry{result: &cp, timestamp: c.now()}
		c.moveToEnd(key)
		return nil
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = &entry{result: &cp, timestamp: c.now()}
	c.order = append(c.order, key)
	return nil
}

// Clear drops every cached answer.
func (c *Cache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.order = c.order[:0]
	return nil
}

// Len reports the number of cached answers.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) Close() error {
	return nil
}

func (c *Cache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *Cache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *Cache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

var _ cache.Cache = (*Cache)(nil)
