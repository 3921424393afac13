package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discutex/discutex/internal/store"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	st, err := Open(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st, mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	st, mr := newTestStore(t)
	ctx := context.Background()

	_, err := st.Get(ctx, "token")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, st.Set(ctx, "token", "T"))
	got, err := st.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "T", got)
	assert.True(t, mr.Exists("discutex:token"))

	require.NoError(t, st.Delete(ctx, "token"))
	_, err = st.Get(ctx, "token")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRedisStore_TTL(t *testing.T) {
	st, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetWithTTL(ctx, "session:abc:token", "T", time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("discutex:session:abc:token"))

	mr.FastForward(2 * time.Minute)
	_, err := st.Get(ctx, "session:abc:token")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOpen_BadURL(t *testing.T) {
	_, err := Open(context.Background(), "redis://%zz")
	assert.Error(t, err)
}
