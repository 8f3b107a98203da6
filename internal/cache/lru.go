package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// Config represents cache configuration
type Config struct {
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

// DefaultConfig returns the configuration used for nil configs.
func DefaultConfig() *Config {
	return &Config{
		MaxEntries: 1024,
		TTL:        5 * time.Minute,
	}
}

// Stats holds cache statistics
type Stats struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	Entries   int     `json:"entries"`
	HitRate   float64 `json:"hit_rate"`
}

type entry[V any] struct {
	key     string
	value   V
	stored  time.Time
	element *list.Element
}

// LRU is a thread-safe least recently used cache whose entries expire
// after the configured TTL. Expired entries are dropped on access.
type LRU[V any] struct {
	mu        sync.Mutex
	config    Config
	items     map[string]*entry[V]
	evictList *list.List
	now       func() time.Time
	stats     Stats
}

// NewLRU creates a cache. A zero TTL never expires entries; a zero
// MaxEntries never evicts by count.
func NewLRU[V any](config *Config) *LRU[V] {
	if config == nil {
		config = DefaultConfig()
	}
	return &LRU[V]{
		config:    *config,
		items:     make(map[string]*entry[V]),
		evictList: list.New(),
		now:       time.Now,
	}
}

// Get returns the value stored for key.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok || c.isExpired(item) {
		if ok {
			c.removeItem(item)
		}
		c.stats.Misses++
		var zero V
		return zero, false
	}

	c.evictList.MoveToFront(item.element)
	c.stats.Hits++
	return item.value, true
}

// Put stores value for key, evicting the least recently used entry when
// the cache is full.
func (c *LRU[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, ok := c.items[key]; ok {
		item.value = value
		item.stored = c.now()
		c.evictList.MoveToFront(item.element)
		return
	}

	item := &entry[V]{key: key, value: value, stored: c.now()}
	item.element = c.evictList.PushFront(item)
	c.items[key] = item

	if c.config.MaxEntries > 0 {
		for len(c.items) > c.config.MaxEntries {
			c.removeItem(c.evictList.Back().Value.(*entry[V]))
		}
	}
}

// Delete removes key.
func (c *LRU[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, ok := c.items[key]; ok {
		c.removeItem(item)
	}
}

// DeletePrefix removes every key starting with prefix and returns how many
// were removed.
func (c *LRU[V]) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int
	for key, item := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.removeItem(item)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, expired ones included.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes all entries.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Evictions += uint64(len(c.items))
	c.items = make(map[string]*entry[V])
	c.evictList.Init()
}

// Stats returns cache statistics
func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Entries = len(c.items)
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

func (c *LRU[V]) isExpired(item *entry[V]) bool {
	if c.config.TTL <= 0 {
		return false
	}
	return c.now().Sub(item.stored) > c.config.TTL
}

func (c *LRU[V]) removeItem(item *entry[V]) {
	c.evictList.Remove(item.element)
	delete(c.items, item.key)
	c.stats.Evictions++
}
