package views

import (
	"context"
	"errors"
	"strings"

	"github.com/discutex/discutex/internal/client"
	"github.com/discutex/discutex/internal/filter"
	"github.com/discutex/discutex/internal/model"
	"github.com/discutex/discutex/internal/nav"
	"github.com/discutex/discutex/internal/session"
)

const (
	NoThreadsMessage      = "No threads found."
	myThreadsUnauthorized = "Unauthorized. Please log in again."
	myThreadsFailed       = "Failed to fetch threads. Please try again later."
)

// Threads lists every thread with a live title filter.
type Threads struct {
	lifetime
	deps    Deps
	all     []model.Thread
	query   string
	loading bool
	err     string
}

type ThreadsState struct {
	Loading bool
	Error   string
	Query   string
	// Threads is the filtered list.
	Threads []model.Thread
	Total   int
}

// Empty reports the explicit "not found" state, distinct from loading.
func (s ThreadsState) Empty() bool {
	return !s.Loading && s.Error == "" && len(s.Threads) == 0
}

func NewThreads(deps Deps) *Threads {
	v := &Threads{deps: deps}
	v.init("threads", deps.Logger)
	return v
}

func (v *Threads) Mount(ctx context.Context) {
	v.mount(ctx)
	v.Reload(ctx)
}

func (v *Threads) Reload(ctx context.Context) {
	ctx, gen, done := v.begin(ctx)
	defer done()
	v.patch(ctx, func() { v.loading, v.err = true, "" })

	threads, err := v.deps.API.ListThreads(ctx)
	v.commit(ctx, gen, func() {
		v.loading = false
		if err != nil {
			v.err = client.Message(err, "Failed to fetch threads")
			return
		}
		v.all = threads
	})
}

// SetQuery updates the filter. It never calls the API.
func (v *Threads) SetQuery(q string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query = q
}

// Select opens the Group view for t.
func (v *Threads) Select(t model.Thread) {
	v.deps.Nav.Navigate(nav.Group, nav.GroupState{ThreadID: t.ID, Title: t.Title})
}

func (v *Threads) State() ThreadsState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return ThreadsState{
		Loading: v.loading,
		Error:   v.err,
		Query:   v.query,
		Threads: cloneThreads(filter.Threads(v.all, v.query)),
		Total:   len(v.all),
	}
}

// MyThreads lists the current user's threads and deletes them.
type MyThreads struct {
	lifetime
	deps    Deps
	threads []model.Thread
	loading bool
	err     string
}

type MyThreadsState struct {
	Loading bool
	Error   string
	Threads []model.Thread
}

func (s MyThreadsState) Empty() bool {
	return !s.Loading && s.Error == "" && len(s.Threads) == 0
}

func NewMyThreads(deps Deps) *MyThreads {
	v := &MyThreads{deps: deps}
	v.init("my-threads", deps.Logger)
	return v
}

func (v *MyThreads) Mount(ctx context.Context) {
	v.mount(ctx)
	v.Reload(ctx)
}

func (v *MyThreads) Reload(ctx context.Context) {
	ctx, gen, done := v.begin(ctx)
	defer done()
	v.patch(ctx, func() { v.loading, v.err = true, "" })

	threads, err := v.deps.API.ListMyThreads(ctx)
	v.commit(ctx, gen, func() {
		v.loading = false
		if err != nil {
			v.err = myThreadsMessage(err)
			return
		}
		v.threads = threads
	})
}

func myThreadsMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrNoToken):
		return client.NoTokenMessage
	case client.IsUnauthorized(err):
		return myThreadsUnauthorized
	case client.IsKind(err, client.KindTransport):
		return "An error occurred while fetching threads."
	default:
		return myThreadsFailed
	}
}

// Delete removes thread id on the server, then drops exactly that entry
// from the local list without refetching.
func (v *MyThreads) Delete(ctx context.Context, id int64) error {
	ctx, done := v.scope(ctx)
	defer done()

	if err := v.deps.API.DeleteThread(ctx, id); err != nil {
		if client.IsKind(err, client.KindTransport) {
			return fail(err, "Error deleting thread.")
		}
		return fail(err, "Failed to delete thread.")
	}
	v.patch(ctx, func() {
		kept := make([]model.Thread, 0, len(v.threads))
		for _, t := range v.threads {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		v.threads = kept
	})
	return nil
}

func (v *MyThreads) State() MyThreadsState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return MyThreadsState{Loading: v.loading, Error: v.err, Threads: cloneThreads(v.threads)}
}

type CreateThread struct {
	lifetime
	deps Deps
}

func NewCreateThread(deps Deps) *CreateThread {
	v := &CreateThread{deps: deps}
	v.init("create-thread", deps.Logger)
	return v
}

func (v *CreateThread) Mount(ctx context.Context) {
	v.mount(ctx)
}

// Submit creates the thread and navigates to MyThreads.
func (v *CreateThread) Submit(ctx context.Context, title, content string) error {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return reject("create thread", "Title and content are required.")
	}
	ctx, done := v.scope(ctx)
	defer done()

	if _, err := v.deps.API.CreateThread(ctx, title, content); err != nil {
		return fail(err, "Failed to create thread")
	}
	v.deps.Nav.Navigate(nav.MyThreads, nil)
	return nil
}
