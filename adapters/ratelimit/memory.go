package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/odoodash/gateway/core"
	"github.com/odoodash/gateway/ports"
)

const defaultMaxKeys = 10000

type bucket struct {
	count     int
	windowEnd time.Time
}

// MemoryLimiter is a fixed-window in-memory rate limiter. Counting restarts
// at the window boundary; a key that goes quiet regains full quota once its
// window elapses. Stale buckets are collected when the key cap is reached.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	maxKeys int
	now     func() time.Time
}

// NewMemoryLimiter creates a new in-memory limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		maxKeys: defaultMaxKeys,
		now:     time.Now,
	}
}

// Allow records one request for key and decides admission against the ceiling.
func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (core.RateDecision, error) {
	if limit <= 0 {
		return core.RateDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if ok && now.After(b.windowEnd) {
		delete(m.buckets, key)
		ok = false
	}
	if !ok {
		if len(m.buckets) >= m.maxKeys {
			m.gc(now)
		}
		b = &bucket{windowEnd: now.Add(window)}
		m.buckets[key] = b
	}

	if b.count < limit {
		b.count++
		return core.RateDecision{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - b.count,
			ResetAt:   b.windowEnd,
		}, nil
	}

	return core.RateDecision{
		Allowed: false,
		Limit:   limit,
		ResetAt: b.windowEnd,
	}, nil
}

func (m *MemoryLimiter) gc(now time.Time) {
	for key, b := range m.buckets {
		if now.After(b.windowEnd) {
			delete(m.buckets, key)
		}
	}
}

var _ ports.RateLimiter = (*MemoryLimiter)(nil)
