package rules

import (
	"strings"
	"sync"
	"time"

	"github.com/quantmind-br/webextract-go/internal/domain"
)

// Cache is a process-local layer over the Store. Entries expire after
// the TTL; when the cache is full the entry with the oldest generation
// time is evicted.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]domain.AdaptiveRule
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewCache creates a cache with the given capacity and TTL. Zero or
// negative values fall back to sane bounds.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 200
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{
		entries:  make(map[string]domain.AdaptiveRule),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the cached rule for a host, dropping it when expired.
func (c *Cache) Get(host string) *domain.AdaptiveRule {
	lowered := strings.ToLower(strings.TrimSpace(host))
	if lowered == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	rule, ok := c.entries[lowered]
	if !ok {
		return nil
	}
	generated := time.Unix(0, int64(rule.GeneratedAt*float64(time.Second)))
	if c.now().Sub(generated) > c.ttl {
		delete(c.entries, lowered)
		return nil
	}
	return &rule
}

// Put stores a rule, evicting the oldest entry when over capacity.
func (c *Cache) Put(rule domain.AdaptiveRule) {
	host := strings.ToLower(strings.TrimSpace(rule.Host))
	if host == "" {
		return
	}
	rule.Host = host

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[host] = rule
	if len(c.entries) <= c.capacity {
		return
	}
	oldestKey := ""
	oldestAt := 0.0
	for key, entry := range c.entries {
		if oldestKey == "" || entry.GeneratedAt < oldestAt {
			oldestKey = key
			oldestAt = entry.GeneratedAt
		}
	}
	delete(c.entries, oldestKey)
}

// Len returns the number of cached rules.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
