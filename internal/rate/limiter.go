// Package rate throttles form submissions per client and action.
package rate

import (
	"fmt"
	"sync"
	"time"
)

type Action string

const (
	ActionLogin    Action = "login"
	ActionRegister Action = "register"
	ActionVote     Action = "vote"
	ActionRate     Action = "rate"
)

// Key builds the bucket key for an action performed by a client.
func Key(action Action, client string) string {
	return fmt.Sprintf("%s:%s", action, client)
}

type Limiter interface {
	Allow(key string, limit int, window time.Duration) (bool, time.Duration)
}

type MemoryLimiter struct {
	mu    sync.Mutex
	store map[string]*bucket
	now   func() time.Time
}

type bucket struct {
	count   int
	resetAt time.Time
	window  time.Duration
}

func NewMemory() *MemoryLimiter {
	return &MemoryLimiter{store: make(map[string]*bucket), now: time.Now}
}

func (m *MemoryLimiter) Allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, ok := m.store[key]
	if !ok || now.After(b.resetAt) || b.window != window {
		b = &bucket{count: 0, resetAt: now.Add(window), window: window}
		m.store[key] = b
	}

	if b.count >= limit {
		return false, b.resetAt.Sub(now)
	}

	b.count++
	return true, b.resetAt.Sub(now)
}

// Sweep drops buckets whose window has passed and returns how many were removed.
func (m *MemoryLimiter) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, b := range m.store {
		if now.After(b.resetAt) {
			delete(m.store, key)
			removed++
		}
	}
	return removed
}

func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}
