package cache

import (
	"sync"
	"time"
)

// sweepEvery bounds how often a write pays for a full expiry scan.
const sweepEvery = 256

type ttlEntry struct {
	payload []byte
	expires time.Time
}

// TTLCache is an in-process BytesCache for single-instance deployments and
// tests. Expired entries are dropped on read and swept periodically on
// write so the map stays bounded without a background goroutine.
type TTLCache struct {
	mu     sync.RWMutex
	m      map[string]ttlEntry
	writes int
}

func NewTTLCache() *TTLCache {
	return &TTLCache{m: make(map[string]ttlEntry)}
}

func (c *TTLCache) GetBytes(key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.payload, true, nil
}

func (c *TTLCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.m[key] = ttlEntry{payload: value, expires: expires}
	c.writes++
	if c.writes >= sweepEvery {
		c.writes = 0
		now := time.Now()
		for k, e := range c.m {
			if !e.expires.IsZero() && now.After(e.expires) {
				delete(c.m, k)
			}
		}
	}
	c.mu.Unlock()
	return nil
}

var _ BytesCache = (*TTLCache)(nil)
