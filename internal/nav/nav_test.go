package nav

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	var rec Recorder
	_, _, ok := rec.Last()
	assert.False(t, ok)
	assert.Empty(t, rec.URL())

	rec.Navigate(Dashboard, nil)
	route, state, ok := rec.Last()
	assert.True(t, ok)
	assert.Equal(t, Dashboard, route)
	assert.Nil(t, state)
	assert.Equal(t, "/dashboard", rec.URL())
}

func TestGroupStateRoundTrip(t *testing.T) {
	var rec Recorder
	rec.Navigate(Group, GroupState{ThreadID: 42, Title: "Go & you"})

	u, err := url.Parse(rec.URL())
	require.NoError(t, err)
	assert.Equal(t, "/group", u.Path)

	gs, ok := ParseGroupState(u.Query())
	require.True(t, ok)
	assert.Equal(t, GroupState{ThreadID: 42, Title: "Go & you"}, gs)
}

func TestParseGroupStateRejectsMissingID(t *testing.T) {
	_, ok := ParseGroupState(url.Values{"title": {"x"}})
	assert.False(t, ok)
	_, ok = ParseGroupState(url.Values{"id": {"abc"}})
	assert.False(t, ok)
}
