package memory

import (
	"context"
	"sync"
	"time"

	"github.com/discutex/discutex/internal/store"
)

type entry struct {
	value     string
	expiresAt time.Time
}

type Store struct {
	mu     sync.Mutex
	data   map[string]entry
	closed bool
}

func New() *Store {
	return &Store{data: make(map[string]entry)}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", store.ErrClosed
	}
	e, ok := s.data[key]
	if !ok {
		return "", store.ErrNotFound
	}
	if !e.expiresAt.IsZero() && !time.Now().Before(e.expiresAt) {
		delete(s.data, key)
		return "", store.ErrNotFound
	}
	return e.value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.SetWithTTL(ctx, key, value, 0)
}

func (s *Store) SetWithTTL(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	s.data[key] = e
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	delete(s.data, key)
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
