// Package redis keeps session values in Redis so several frontend replicas
// can share browser sessions.
package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/discutex/discutex/internal/store"

	goredis "github.com/redis/go-redis/v9"
)

const defaultPrefix = "discutex:"

type Store struct {
	client *goredis.Client
	prefix string
}

// Open connects to addr, which is either a host:port or a redis:// URL.
func Open(ctx context.Context, addr string) (*Store, error) {
	var opts *goredis.Options
	if strings.Contains(addr, "://") {
		parsed, err := goredis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		opts = parsed
	} else {
		opts = &goredis.Options{Addr: addr}
	}

	client := goredis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return New(client), nil
}

func New(client *goredis.Client) *Store {
	return &Store{client: client, prefix: defaultPrefix}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", store.ErrNotFound
	}
	return v, err
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.prefix+key, value, 0).Err()
}

func (s *Store) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, value, ttl).Err()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
