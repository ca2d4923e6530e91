package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var _ Limiter = (*MemoryLimiter)(nil)

// MemoryLimiter keeps a token-bucket limiter per key. It is the fallback when
// Redis is not configured; state does not survive a restart.
type MemoryLimiter struct {
	every time.Duration
	burst int

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewMemoryLimiter(requests int, window time.Duration) *MemoryLimiter {
	if requests <= 0 {
		requests = 1
	}
	return &MemoryLimiter{
		every:   window / time.Duration(requests),
		burst:   requests,
		entries: make(map[string]*entry),
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	e, ok := m.entries[key]
	if !ok {
		if len(m.entries) >= 4096 {
			m.pruneLocked(now)
		}
		e = &entry{lim: rate.NewLimiter(rate.Every(m.every), m.burst)}
		m.entries[key] = e
	}
	e.seen = now
	return e.lim.Allow(), nil
}

// pruneLocked drops entries idle long enough to have fully refilled.
func (m *MemoryLimiter) pruneLocked(now time.Time) {
	idle := 10 * m.every * time.Duration(m.burst)
	for k, e := range m.entries {
		if now.Sub(e.seen) > idle {
			delete(m.entries, k)
		}
	}
}
