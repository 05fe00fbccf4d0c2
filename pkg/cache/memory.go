package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// memory cache entries without explicit TTL live this long
const memoryDefaultTTL = 7 * 24 * time.Hour

type memoryItem struct {
	value    interface{}
	expireAt time.Time
	lastUsed time.Time
}

func (it *memoryItem) expired(now time.Time) bool {
	return now.After(it.expireAt)
}

// MemoryCache is an in-process Service with LRU eviction at maxSize and a
// background sweep for expired entries. Locks are advisory only; they do not
// coordinate across processes.
type MemoryCache struct {
	mu      sync.RWMutex
	items   map[string]*memoryItem
	maxSize int
	sweeper *time.Ticker
}

// NewMemoryCache builds the cache and starts its sweep goroutine.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	mc := &MemoryCache{
		items:   make(map[string]*memoryItem),
		maxSize: cfg.MaxSize,
		sweeper: time.NewTicker(cfg.CleanupInterval),
	}
	go mc.sweepLoop()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	now := time.Now()
	if expiration <= 0 {
		expiration = memoryDefaultTTL
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	if len(mc.items) >= mc.maxSize {
		mc.evictOldest()
	}
	mc.items[key] = &memoryItem{value: value, expireAt: now.Add(expiration), lastUsed: now}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	now := time.Now()

	mc.mu.Lock()
	defer mc.mu.Unlock()
	it, ok := mc.items[key]
	if !ok {
		return ErrCacheMiss
	}
	if it.expired(now) {
		delete(mc.items, key)
		return ErrCacheMiss
	}
	it.lastUsed = now

	if strPtr, ok := dest.(*string); ok {
		if s, ok := it.value.(string); ok {
			*strPtr = s
			return nil
		}
	}
	*dest.(*interface{}) = it.value
	return nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		delete(mc.items, key)
	}
	return nil
}

// DeleteByPattern drops everything; the memory layer has no key scan, and a
// full reset is always a safe over-approximation of the pattern.
func (mc *MemoryCache) DeleteByPattern(_ context.Context, _ string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.items = make(map[string]*memoryItem)
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	now := time.Now()
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	for _, key := range keys {
		if it, ok := mc.items[key]; ok && !it.expired(now) {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) Increment(_ context.Context, key string) (int64, error) {
	now := time.Now()
	mc.mu.Lock()
	defer mc.mu.Unlock()

	it, ok := mc.items[key]
	if !ok || it.expired(now) {
		mc.items[key] = &memoryItem{value: int64(1), expireAt: now.Add(memoryDefaultTTL), lastUsed: now}
		return 1, nil
	}
	v, ok := it.value.(int64)
	if !ok {
		return 0, fmt.Errorf("value is not int64")
	}
	it.value = v + 1
	it.lastUsed = now
	return v + 1, nil
}

func (mc *MemoryCache) Expire(_ context.Context, key string, expiration time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if it, ok := mc.items[key]; ok {
		it.expireAt = time.Now().Add(expiration)
		return true, nil
	}
	return false, nil
}

func (mc *MemoryCache) MSet(ctx context.Context, values map[string]interface{}, expiration time.Duration) error {
	for key, value := range values {
		if err := mc.Set(ctx, key, value, expiration); err != nil {
			return err
		}
	}
	return nil
}

func (mc *MemoryCache) MGet(_ context.Context, keys ...string) (map[string]string, error) {
	now := time.Now()
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	out := make(map[string]string)
	for _, key := range keys {
		if it, ok := mc.items[key]; ok && !it.expired(now) {
			if s, ok := it.value.(string); ok {
				out[key] = s
			}
		}
	}
	return out, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now()
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if it, ok := mc.items[key]; ok && !it.expired(now) {
		return false, nil
	}
	mc.items[key] = &memoryItem{value: "locked", expireAt: now.Add(ttl), lastUsed: now}
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

// evictOldest drops the least recently used entry. Caller holds mu.
func (mc *MemoryCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, it := range mc.items {
		if oldestKey == "" || it.lastUsed.Before(oldest) {
			oldestKey = key
			oldest = it.lastUsed
		}
	}
	if oldestKey != "" {
		delete(mc.items, oldestKey)
	}
}

func (mc *MemoryCache) sweepLoop() {
	for range mc.sweeper.C {
		now := time.Now()
		mc.mu.Lock()
		for key, it := range mc.items {
			if it.expired(now) {
				delete(mc.items, key)
			}
		}
		mc.mu.Unlock()
	}
}

// Close stops the sweep goroutine.
func (mc *MemoryCache) Close() error {
	if mc.sweeper != nil {
		mc.sweeper.Stop()
	}
	return nil
}
