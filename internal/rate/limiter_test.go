package rate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter() (*MemoryLimiter, *time.Time) {
	now := time.Unix(1_700_000_000, 0)
	m := NewMemory()
	m.now = func() time.Time { return now }
	return m, &now
}

func TestAllowWithinWindow(t *testing.T) {
	m, now := newTestLimiter()
	key := Key(ActionVote, "10.0.0.1")

	for i := 0; i < 3; i++ {
		ok, _ := m.Allow(key, 3, time.Minute)
		assert.True(t, ok, "request %d", i)
	}
	ok, retry := m.Allow(key, 3, time.Minute)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, retry)

	*now = now.Add(61 * time.Second)
	ok, _ = m.Allow(key, 3, time.Minute)
	assert.True(t, ok)
}

func TestKeysAreIndependent(t *testing.T) {
	m, _ := newTestLimiter()

	ok, _ := m.Allow(Key(ActionLogin, "a"), 1, time.Minute)
	assert.True(t, ok)
	ok, _ = m.Allow(Key(ActionLogin, "a"), 1, time.Minute)
	assert.False(t, ok)
	ok, _ = m.Allow(Key(ActionLogin, "b"), 1, time.Minute)
	assert.True(t, ok)
	ok, _ = m.Allow(Key(ActionRate, "a"), 1, time.Minute)
	assert.True(t, ok)
}

func TestSweep(t *testing.T) {
	m, now := newTestLimiter()
	m.Allow("short", 5, time.Second)
	m.Allow("long", 5, time.Hour)

	assert.Equal(t, 0, m.Sweep())
	*now = now.Add(2 * time.Second)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())
}
