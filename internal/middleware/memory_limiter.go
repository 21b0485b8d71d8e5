package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type window struct {
	start time.Time
	count int
}

// MemoryLimiter is a fixed-window counter per key held in an expiring LRU.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows *expirable.LRU[string, *window]
	size    time.Duration
	max     int
	now     func() time.Time
}

func NewMemoryLimiter(size time.Duration, max, maxKeys int) *MemoryLimiter {
	return &MemoryLimiter{
		windows: expirable.NewLRU[string, *window](maxKeys, nil, size),
		size:    size,
		max:     max,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows.Get(key)
	if !ok || now.Sub(w.start) >= l.size {
		w = &window{start: now}
		l.windows.Add(key, w)
	}
	w.count++
	return w.count <= l.max, nil
}
