package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discutex/discutex/internal/store/memory"
)

func TestSession_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New(), "")
	assert.Equal(t, DefaultKey, s.Key())

	_, err := s.Token(ctx)
	assert.ErrorIs(t, err, ErrNoToken)
	assert.False(t, s.Authenticated(ctx))

	require.NoError(t, s.SetToken(ctx, " T "))
	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T", tok)
	assert.True(t, s.Authenticated(ctx))

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))
	_, err = s.Token(ctx)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestSession_RejectsEmptyToken(t *testing.T) {
	s := New(memory.New(), "")
	assert.ErrorIs(t, s.SetToken(context.Background(), "   "), ErrEmptyToken)
}

func TestSession_BrowserScopesAreIndependent(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	a := ForBrowser(backend, "a", time.Hour)
	b := ForBrowser(backend, "b", time.Hour)

	require.NoError(t, a.SetToken(ctx, "TA"))
	_, err := b.Token(ctx)
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, b.SetToken(ctx, "TB"))
	require.NoError(t, a.Clear(ctx))

	tok, err := b.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TB", tok)
	assert.Equal(t, "session:b:token", b.Key())
}

func TestSession_BackendErrorSurfaces(t *testing.T) {
	backend := memory.New()
	require.NoError(t, backend.Close())
	_, err := New(backend, "").Token(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoToken)
}
