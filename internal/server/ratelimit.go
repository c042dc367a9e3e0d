package server

import (
	"sync"
	"time"
)

// Limiter is a per-key token bucket. Every key starts with a full bucket;
// once drained, the bucket refills completely after the window has passed.
// A nil *Limiter allows everything.
type Limiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// NewLimiter creates a Limiter that grants max requests per key per window.
func NewLimiter(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		window:  window,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether the request identified by key may proceed and, if so,
// consumes one token. Blank keys share the "unknown" bucket.
func (l *Limiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	if key == "" {
		key = "unknown"
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.max, lastRefill: now}
		l.buckets[key] = b
	}
	if now.Sub(b.lastRefill) >= l.window {
		b.tokens = l.max
		b.lastRefill = now
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}
