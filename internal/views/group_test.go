package views

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discutex/discutex/internal/model"
	"github.com/discutex/discutex/internal/nav"
)

type groupFixture struct {
	*fixture
	me, other model.User
	thread    model.Thread
	mine      model.Response
	theirs    model.Response
}

func newGroupFixture(t *testing.T) *groupFixture {
	f := newFixture(t)
	g := &groupFixture{fixture: f}
	g.me = f.api.AddUser("Ada", "ada", "a@b.com", "x", model.RoleMember)
	g.other = f.api.AddUser("Bob", "bob", "b@b.com", "x", model.RoleMember)
	g.thread = f.api.AddThread(g.other.ID, "Go generics", "thoughts?")
	g.theirs = f.api.AddResponse(g.thread.ID, g.other.ID, "first")
	g.mine = f.api.AddResponse(g.thread.ID, g.me.ID, "second")
	f.loginAs(t, g.me)
	return g
}

func (g *groupFixture) view() *Group {
	return NewGroup(g.deps, nav.GroupState{ThreadID: g.thread.ID, Title: g.thread.Title})
}

func TestGroupEnrichesAuthors(t *testing.T) {
	g := newGroupFixture(t)
	v := g.view()
	v.Mount(context.Background())
	defer v.Close()

	st := v.State()
	require.Empty(t, st.Error)
	require.Len(t, st.Responses, 2)
	assert.Equal(t, "bob", st.Responses[0].AuthorName())
	assert.Equal(t, "ada", st.Responses[1].AuthorName())
	assert.Equal(t, "Discussion Chat: Go generics", st.Heading())
	assert.Equal(t, 2, countPrefix(g.fixture, "GET /api/responses/", "/user"))
}

func TestGroupKeepsResponseWhenAuthorLookupFails(t *testing.T) {
	g := newGroupFixture(t)
	g.api.FailAuthorLookup(g.theirs.ID)
	v := g.view()
	v.Mount(context.Background())
	defer v.Close()

	st := v.State()
	require.Len(t, st.Responses, 2)
	assert.Nil(t, st.Responses[0].User)
	assert.Equal(t, "Unknown User", st.Responses[0].AuthorName())
	assert.Equal(t, "ada", st.Responses[1].AuthorName())
	assert.Empty(t, st.Error)
}

func TestGroupSkipsLookupForEmbeddedAuthors(t *testing.T) {
	g := newGroupFixture(t)
	g.api.EmbedAuthors(true)
	v := g.view()
	v.Mount(context.Background())
	defer v.Close()

	assert.Len(t, v.State().Responses, 2)
	assert.Zero(t, countPrefix(g.fixture, "GET /api/responses/", "/user"))
}

func TestGroupSelfVoteRejectedWithoutRequest(t *testing.T) {
	g := newGroupFixture(t)
	v := g.view()
	ctx := context.Background()
	v.Mount(ctx)
	defer v.Close()

	st := v.State()
	assert.False(t, st.CanVote(st.Responses[1]))
	assert.True(t, st.CanVote(st.Responses[0]))

	before := len(g.api.Requests())
	err := v.Vote(ctx, g.mine.ID, true)
	require.Error(t, err)
	assert.Equal(t, "You cannot vote on your own response.", err.Error())
	assert.Len(t, g.api.Requests(), before)
}

func TestGroupVoteRefetches(t *testing.T) {
	g := newGroupFixture(t)
	v := g.view()
	ctx := context.Background()
	v.Mount(ctx)
	defer v.Close()

	require.NoError(t, v.Vote(ctx, g.theirs.ID, true))
	st := v.State()
	assert.Equal(t, 1, st.Responses[0].Likes)
	assert.Equal(t, 2, countRequests(g.fixture, "GET /api/responses/"+itoa(g.thread.ID)))
}

func TestGroupSkipRefetchLeavesReloadToCaller(t *testing.T) {
	g := newGroupFixture(t)
	v := g.view()
	v.SkipRefetch()
	ctx := context.Background()
	v.Mount(ctx)
	defer v.Close()

	list := "GET /api/responses/" + itoa(g.thread.ID)
	require.NoError(t, v.Vote(ctx, g.theirs.ID, true))
	assert.Equal(t, 1, countRequests(g.fixture, list))

	require.NoError(t, v.Send(ctx, "third"))
	assert.Equal(t, 1, countRequests(g.fixture, list))
	assert.Equal(t, 1, countRequests(g.fixture, "POST /api/responses"))
}

func TestGroupVoteBeforeProfileLoads(t *testing.T) {
	g := newGroupFixture(t)
	v := g.view()

	before := len(g.api.Requests())
	err := v.Vote(context.Background(), g.theirs.ID, true)
	require.Error(t, err)
	assert.Len(t, g.api.Requests(), before)
	assert.False(t, v.State().CanVote(model.Response{UserID: g.other.ID}))
}

func TestGroupSend(t *testing.T) {
	g := newGroupFixture(t)
	v := g.view()
	ctx := context.Background()
	v.Mount(ctx)
	defer v.Close()

	require.Error(t, v.Send(ctx, "   "))
	require.NoError(t, v.Send(ctx, "third"))
	st := v.State()
	require.Len(t, st.Responses, 3)
	assert.Equal(t, "third", st.Responses[2].Content)
	assert.Equal(t, "ada", st.Responses[2].AuthorName())
}

func TestGroupDropsResultsAfterClose(t *testing.T) {
	g := newGroupFixture(t)
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	g.api.OnRequest(func(r *http.Request) {
		if r.URL.Path == "/api/responses/"+itoa(g.thread.ID) {
			select {
			case entered <- struct{}{}:
			default:
			}
			<-release
		}
	})
	defer close(release)

	v := g.view()
	mounted := make(chan struct{})
	go func() {
		v.Mount(context.Background())
		close(mounted)
	}()

	<-entered
	v.Close()
	select {
	case <-mounted:
	case <-time.After(5 * time.Second):
		t.Fatal("load did not stop after close")
	}

	st := v.State()
	assert.Nil(t, st.Responses)
	assert.Nil(t, st.Me)
	assert.Empty(t, st.Error)
	assert.False(t, v.Alive())
}

// slowAuthors counts concurrent author lookups.
type slowAuthors struct {
	API
	responses []model.Response
	inFlight  atomic.Int32
	mu        sync.Mutex
	peak      int32
}

func (s *slowAuthors) Profile(ctx context.Context) (*model.User, error) {
	return &model.User{ID: 99}, nil
}

func (s *slowAuthors) ListResponses(ctx context.Context, threadID int64) ([]model.Response, error) {
	return s.responses, nil
}

func (s *slowAuthors) ResponseAuthor(ctx context.Context, id int64) (*model.User, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	s.mu.Lock()
	if n > s.peak {
		s.peak = n
	}
	s.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	return &model.User{ID: id, Username: "u" + itoa(id)}, nil
}

func TestGroupEnrichmentIsBounded(t *testing.T) {
	api := &slowAuthors{}
	for i := int64(1); i <= 12; i++ {
		api.responses = append(api.responses, model.Response{ID: i, UserID: i})
	}
	v := NewGroup(Deps{API: api, Nav: &nav.Recorder{}, EnrichConcurrency: 3}, nav.GroupState{ThreadID: 1})
	v.Mount(context.Background())
	defer v.Close()

	st := v.State()
	require.Len(t, st.Responses, 12)
	for _, r := range st.Responses {
		assert.Equal(t, "u"+itoa(r.ID), r.AuthorName())
	}
	assert.LessOrEqual(t, api.peak, int32(3))
	assert.Equal(t, "Discussion Chat: Loading...", st.Heading())
}

func countPrefix(f *fixture, prefix, suffix string) int {
	n := 0
	for _, r := range f.api.Requests() {
		if strings.HasPrefix(r, prefix) && strings.HasSuffix(r, suffix) {
			n++
		}
	}
	return n
}
