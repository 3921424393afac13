package views

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/discutex/discutex/internal/client"
	"github.com/discutex/discutex/internal/model"
	"github.com/discutex/discutex/internal/nav"
	"github.com/discutex/discutex/internal/observability"
)

const (
	NoResponsesMessage = "No responses yet."
	selfVoteMessage    = "You cannot vote on your own response."
)

// Group is the chat view of a single thread.
type Group struct {
	lifetime
	deps      Deps
	thread    nav.GroupState
	me        *model.User
	responses []model.Response
	loading   bool
	err       string

	// skipRefetch leaves reloading after Send and Vote to the caller.
	skipRefetch bool
}

type GroupState struct {
	ThreadID  int64
	Title     string
	Me        *model.User
	Responses []model.Response
	Loading   bool
	Error     string
}

// Heading is the page title; the thread title comes from navigation state.
func (s GroupState) Heading() string {
	title := s.Title
	if title == "" {
		title = "Loading..."
	}
	return "Discussion Chat: " + title
}

// CanVote reports whether vote controls are shown for r. They never are
// for the current user's own responses, nor before the profile loads.
func (s GroupState) CanVote(r model.Response) bool {
	return s.Me != nil && r.UserID != s.Me.ID
}

func (s GroupState) Empty() bool {
	return !s.Loading && s.Error == "" && len(s.Responses) == 0
}

func NewGroup(deps Deps, thread nav.GroupState) *Group {
	if deps.EnrichConcurrency <= 0 {
		deps.EnrichConcurrency = defaultEnrichConcurrency
	}
	v := &Group{deps: deps, thread: thread}
	v.init("group", deps.Logger)
	return v
}

// SkipRefetch makes Send and Vote return right after the server accepts
// the action. Callers that redirect to the thread page use it, since the
// next page load fetches the same data.
func (v *Group) SkipRefetch() {
	v.mu.Lock()
	v.skipRefetch = true
	v.mu.Unlock()
}

func (v *Group) refetch(ctx context.Context) {
	v.mu.Lock()
	skip := v.skipRefetch
	v.mu.Unlock()
	if !skip {
		v.Reload(ctx)
	}
}

func (v *Group) Mount(ctx context.Context) {
	v.mount(ctx)
	v.Reload(ctx)
}

// Reload fetches the profile and the responses, resolves missing authors
// and commits everything at once.
func (v *Group) Reload(ctx context.Context) {
	ctx, gen, done := v.begin(ctx)
	defer done()
	v.patch(ctx, func() { v.loading, v.err = true, "" })

	var (
		me         *model.User
		profileErr error
		responses  []model.Response
		listErr    error
	)
	var g errgroup.Group
	g.Go(func() error {
		me, profileErr = v.deps.API.Profile(ctx)
		return nil
	})
	g.Go(func() error {
		responses, listErr = v.deps.API.ListResponses(ctx, v.thread.ThreadID)
		if listErr == nil {
			responses = v.enrich(ctx, responses)
		}
		return nil
	})
	_ = g.Wait()

	v.commit(ctx, gen, func() {
		v.loading = false
		if profileErr == nil {
			v.me = me
		}
		switch {
		case listErr != nil:
			v.err = client.Message(listErr, "Failed to fetch responses")
		case profileErr != nil:
			v.err = client.Message(profileErr, "Failed to fetch user data.")
		}
		if listErr == nil {
			v.responses = responses
		}
	})
}

// enrich resolves the author of every response that arrived without one.
// A failed lookup keeps the response with no author.
func (v *Group) enrich(ctx context.Context, in []model.Response) []model.Response {
	out := make([]model.Response, len(in))
	copy(out, in)

	g := new(errgroup.Group)
	g.SetLimit(v.deps.EnrichConcurrency)
	for i := range out {
		if out[i].User != nil {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			user, err := v.deps.API.ResponseAuthor(ctx, out[i].ID)
			if err != nil {
				observability.EnrichmentLookups.WithLabelValues("failed").Inc()
				v.log.DebugContext(ctx, "author lookup failed", "response_id", out[i].ID, "error", err)
				return nil
			}
			observability.EnrichmentLookups.WithLabelValues("ok").Inc()
			out[i].User = user
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Send posts a response and refetches the thread.
func (v *Group) Send(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return reject("send", "Message cannot be empty.")
	}
	actx, done := v.scope(ctx)
	err := v.deps.API.CreateResponse(actx, v.thread.ThreadID, content)
	done()
	if err != nil {
		return fail(err, "An error occurred while sending the message.")
	}
	v.refetch(ctx)
	return nil
}

// Vote likes (up) or dislikes a response. Votes on the user's own
// responses are rejected before any request is made. On success the
// response list is refetched.
func (v *Group) Vote(ctx context.Context, responseID int64, up bool) error {
	v.mu.Lock()
	me := v.me
	var target *model.Response
	for i := range v.responses {
		if v.responses[i].ID == responseID {
			r := v.responses[i]
			target = &r
			break
		}
	}
	v.mu.Unlock()

	switch {
	case me == nil:
		return reject("vote", "Failed to fetch user data.")
	case target == nil:
		return reject("vote", "Response not found.")
	case target.UserID == me.ID:
		return reject("vote", selfVoteMessage)
	}

	actx, done := v.scope(ctx)
	err := v.deps.API.Vote(actx, responseID, up)
	done()
	if err != nil {
		return fail(err, "An error occurred while voting.")
	}
	v.refetch(ctx)
	return nil
}

func (v *Group) State() GroupState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return GroupState{
		ThreadID:  v.thread.ThreadID,
		Title:     v.thread.Title,
		Me:        cloneUser(v.me),
		Responses: cloneResponses(v.responses),
		Loading:   v.loading,
		Error:     v.err,
	}
}
