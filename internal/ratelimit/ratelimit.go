// Package ratelimit throttles write endpoints per client and action.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the rate limiting interface
type Limiter interface {
	// Allow checks if the action is allowed for the given key
	// Returns true if allowed, false if rate limited
	Allow(key string, limit int, window time.Duration) bool

	// Remaining returns the number of remaining requests for the key
	Remaining(key string, limit int, window time.Duration) int

	// RetryAfter returns how long until the key may act again
	RetryAfter(key string, window time.Duration) time.Duration
}

// MemoryLimiter keeps one token bucket per key. A bucket holds limit tokens and
// refills completely over window.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	limit    int
	window   time.Duration
	lastSeen time.Time
}

// NewMemoryLimiter creates a new in-memory rate limiter
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) bucketFor(key string, limit int, window time.Duration, now time.Time) *bucket {
	b, ok := l.buckets[key]
	if !ok || b.limit != limit || b.window != window {
		b = &bucket{
			limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit),
			limit:   limit,
			window:  window,
		}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b
}

func (l *MemoryLimiter) Allow(key string, limit int, window time.Duration) bool {
	if limit <= 0 {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	return l.bucketFor(key, limit, window, now).limiter.AllowN(now, 1)
}

func (l *MemoryLimiter) Remaining(key string, limit int, window time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || b.limit != limit || b.window != window {
		return limit
	}

	tokens := int(math.Floor(b.limiter.TokensAt(l.now())))
	if tokens < 0 {
		return 0
	}
	return tokens
}

func (l *MemoryLimiter) RetryAfter(key string, window time.Duration) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		return 0
	}

	missing := 1 - b.limiter.TokensAt(l.now())
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / float64(b.limiter.Limit()) * float64(time.Second))
}

// Cleanup drops buckets that have been idle long enough to be full again
func (l *MemoryLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= b.window {
			delete(l.buckets, key)
		}
	}
}

// StartCleanup runs Cleanup every interval until stop is closed
func (l *MemoryLimiter) StartCleanup(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				l.Cleanup()
			}
		}
	}()
}

// Ensure MemoryLimiter implements Limiter
var _ Limiter = (*MemoryLimiter)(nil)
