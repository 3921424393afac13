// Package session holds the bearer token that authenticates API calls.
//
// A Session is created explicitly and handed to everything that talks to
// the API. The CLI uses the fixed key "token"; the web frontend scopes one
// Session per browser under "session:<sid>:token".
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/discutex/discutex/internal/store"
)

// DefaultKey is the local persistence key used by single-user clients.
const DefaultKey = "token"

var (
	ErrNoToken    = errors.New("no token found")
	ErrEmptyToken = errors.New("empty token")
)

type Session struct {
	backend store.Backend
	key     string
	ttl     time.Duration
}

func New(backend store.Backend, key string) *Session {
	if key == "" {
		key = DefaultKey
	}
	return &Session{backend: backend, key: key}
}

// ForBrowser scopes a session to a browser session id. Tokens written
// through it expire after ttl when the backend supports expiry.
func ForBrowser(backend store.Backend, sid string, ttl time.Duration) *Session {
	return &Session{backend: backend, key: BrowserKey(sid), ttl: ttl}
}

func BrowserKey(sid string) string {
	return "session:" + sid + ":token"
}

func (s *Session) Key() string {
	return s.key
}

// Token returns the stored token or ErrNoToken.
func (s *Session) Token(ctx context.Context) (string, error) {
	tok, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, store.ErrNotFound) || (err == nil && tok == "") {
		return "", ErrNoToken
	}
	if err != nil {
		return "", err
	}
	return tok, nil
}

// Authenticated reports whether a token is present. Backend errors count
// as unauthenticated.
func (s *Session) Authenticated(ctx context.Context) bool {
	_, err := s.Token(ctx)
	return err == nil
}

func (s *Session) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	if exp, ok := s.backend.(store.Expiring); ok && s.ttl > 0 {
		return exp.SetWithTTL(ctx, s.key, token, s.ttl)
	}
	return s.backend.Set(ctx, s.key, token)
}

func (s *Session) Clear(ctx context.Context) error {
	return s.backend.Delete(ctx, s.key)
}
