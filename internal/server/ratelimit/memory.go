// Package ratelimit provides a per-client request limiter for the HTTP
// surface. The in-memory fixed-window implementation suits a single server
// process; a shared store would be needed behind a load balancer.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter answers whether a caller identified by key may proceed.
type Limiter interface {
	Allow(key string) bool
}

type bucket struct {
	windowStart time.Time
	count       int
}

// MemoryLimiter counts requests per key in fixed windows.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter allows at most limit requests per key per window.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: map[string]*bucket{},
	}
}

// Allow records one request for key and reports whether it fits the window.
func (l *MemoryLimiter) Allow(key string) bool {
	now := l.now()
	windowStart := now.Truncate(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || b.windowStart.Before(windowStart) {
		l.prune(windowStart)
		b = &bucket{windowStart: windowStart}
		l.buckets[key] = b
	}

	if b.count >= l.limit {
		return false
	}
	b.count++
	return true
}

// prune discards buckets from earlier windows. Caller holds l.mu.
func (l *MemoryLimiter) prune(windowStart time.Time) {
	for key, b := range l.buckets {
		if b.windowStart.Before(windowStart) {
			delete(l.buckets, key)
		}
	}
}
