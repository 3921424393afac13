package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	ErrClosed   = errors.New("store closed")
)

// Backend is the key/value persistence behind sessions.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Expiring backends drop keys after ttl. Backends that do not implement it
// keep values until Delete.
type Expiring interface {
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
}
