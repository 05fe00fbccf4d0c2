package ratelimit

import (
	"sync"
	"time"
)

// staleAfter is how long an idle bucket survives before a sweep drops it.
const staleAfter = 10 * time.Minute

type bucket struct {
	tokens float64
	seen   time.Time
}

// Limiter is a per-key token bucket. Buckets refill continuously at
// refillPerSec up to capacity; idle buckets are swept opportunistically so
// the map does not grow with every client address ever seen.
type Limiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func New() *Limiter {
	return &Limiter{buckets: make(map[string]*bucket), lastSweep: time.Now()}
}

// Allow consumes one token for key, creating a full bucket on first sight.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	return l.AllowN(key, 1, capacity, refillPerSec)
}

// AllowN consumes n tokens at once, or none if fewer than n are available.
func (l *Limiter) AllowN(key string, n, capacity, refillPerSec float64) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > staleAfter {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: capacity, seen: now}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.seen).Seconds(); elapsed > 0 {
		b.tokens = min(b.tokens+elapsed*refillPerSec, capacity)
	}
	b.seen = now
	if b.tokens < n {
		return false
	}
	b.tokens -= n
	return true
}

// sweep drops buckets not touched within staleAfter. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.seen) > staleAfter {
			delete(l.buckets, k)
		}
	}
	l.lastSweep = now
}
