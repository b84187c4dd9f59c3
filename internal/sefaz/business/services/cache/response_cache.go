package cache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

const DefaultTTL = 30 * time.Minute
const DefaultMaxEntries = 100

type entry struct {
	value      interface{}
	insertedAt time.Time
	ttl        time.Duration
}

// ResponseCache memoizes upstream responses for the lifetime of a sync run.
// It is a bounded, short-TTL shortcut, never a source of truth.
type ResponseCache struct {
	mu         sync.Mutex
	entries    map[string]entry
	order      []string // insertion order, oldest first
	defaultTTL time.Duration
	maxEntries int
	now        func() time.Time
}

func NewResponseCache(defaultTTL time.Duration, maxEntries int) *ResponseCache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &ResponseCache{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Key canonicalizes (endpoint, params) so that equivalent queries hit the
// same entry. encoding/json sorts map keys, which gives the canonical order
// for free, nested maps included.
func Key(endpoint string, params map[string]interface{}) string {
	serialized, err := json.Marshal(params)
	if err != nil {
		serialized = []byte(fmt.Sprintf("%v", params))
	}
	return endpoint + "|" + string(serialized)
}

func (c *ResponseCache) Get(endpoint string, params map[string]interface{}) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeExpired()

	e, ok := c.entries[Key(endpoint, params)]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Set stores a response under the canonical key. ttl <= 0 means the
// default TTL. At capacity the single oldest entry is evicted first.
func (c *ResponseCache) Set(endpoint string, params map[string]interface{}, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeExpired()

	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	key := Key(endpoint, params)

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}

	if _, exists := c.entries[key]; exists {
		c.removeFromOrder(key)
	}
	c.entries[key] = entry{value: value, insertedAt: c.now(), ttl: ttl}
	c.order = append(c.order, key)
}

func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ResponseCache) purgeExpired() {
	now := c.now()
	for key, e := range c.entries {
		if now.Sub(e.insertedAt) > e.ttl {
			delete(c.entries, key)
			c.removeFromOrder(key)
		}
	}
}

func (c *ResponseCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *ResponseCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
