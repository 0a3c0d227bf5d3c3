package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps fixed-window counters in process memory
type MemoryLimiter struct {
	mu            sync.Mutex
	buckets       map[string]*bucket
	limit         int
	window        time.Duration
	requestCount  int // counter for deterministic cleanup
	cleanupEvery  int // cleanup every N requests
	cleanupAtSize int // cleanup when map size exceeds this
	now           func() time.Time
}

type bucket struct {
	count   int
	resetAt time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter creates an in-memory limiter
func NewMemoryLimiter(config Config) (*MemoryLimiter, error) {
	config, err := config.withDefaults()
	if err != nil {
		return nil, err
	}
	return &MemoryLimiter{
		buckets:       make(map[string]*bucket),
		limit:         config.Limit,
		window:        config.Window,
		cleanupEvery:  100,
		cleanupAtSize: 200,
		now:           time.Now,
	}, nil
}

// Allow implements Limiter. It never returns an error.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	l.requestCount++
	if l.requestCount%l.cleanupEvery == 0 || len(l.buckets) > l.cleanupAtSize {
		l.cleanupExpired(now)
		if l.requestCount >= l.cleanupEvery*10 {
			l.requestCount = 0
		}
	}

	b, exists := l.buckets[key]
	if !exists || !now.Before(b.resetAt) {
		l.buckets[key] = &bucket{count: 1, resetAt: now.Add(l.window)}
		return true, nil
	}

	if b.count >= l.limit {
		return false, nil
	}
	b.count++
	return true, nil
}

// Cleanup removes all expired buckets
func (l *MemoryLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cleanupExpired(l.now())
}

func (l *MemoryLimiter) cleanupExpired(now time.Time) {
	for key, b := range l.buckets {
		if !now.Before(b.resetAt) {
			delete(l.buckets, key)
		}
	}
}

// size returns the number of tracked keys
func (l *MemoryLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
