// Package views holds the controllers behind every page. Renderers (the web
// frontend and the CLI) mount a view, read its State snapshot and forward
// user actions to it.
//
// A view lives between Mount and Close. Results that arrive after Close, or
// that belong to a load superseded by a newer one, are dropped.
package views

import (
	"context"
	"log/slog"
	"sync"

	"github.com/discutex/discutex/internal/client"
	"github.com/discutex/discutex/internal/model"
	"github.com/discutex/discutex/internal/nav"
	"github.com/discutex/discutex/internal/observability"
)

// API is the subset of *client.Client the views call.
type API interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, form model.RegisterForm) error
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*model.User, error)
	CurrentUser(ctx context.Context) (*model.User, error)
	UpdateUser(ctx context.Context, upd model.ProfileUpdate) error
	DeleteUser(ctx context.Context) error
	ListThreads(ctx context.Context) ([]model.Thread, error)
	ListMyThreads(ctx context.Context) ([]model.Thread, error)
	CreateThread(ctx context.Context, title, content string) (*model.Thread, error)
	DeleteThread(ctx context.Context, id int64) error
	ListResponses(ctx context.Context, threadID int64) ([]model.Response, error)
	ResponseAuthor(ctx context.Context, responseID int64) (*model.User, error)
	CreateResponse(ctx context.Context, threadID int64, content string) error
	Vote(ctx context.Context, responseID int64, up bool) error
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateRole(ctx context.Context, userID int64, role int) (int, error)
	RateUser(ctx context.Context, userID int64, value int) (float64, error)
	Notifications(ctx context.Context) ([]model.Notification, int, error)
	UnreadVotes(ctx context.Context) ([]model.UnreadVote, error)
}

// Session is the token holder shared by all views of one user.
type Session interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

type Deps struct {
	API     API
	Session Session
	Nav     nav.Navigator
	Logger  *slog.Logger
	// EnrichConcurrency bounds concurrent author lookups in the Group view.
	EnrichConcurrency int
}

const defaultEnrichConcurrency = 8

// Notices shown after successful actions.
const (
	NoticeLoggedIn       = "Login successful"
	NoticeRegistered     = "Registration successful. Please log in."
	NoticeProfileUpdated = "User details updated successfully!"
	NoticeThreadCreated  = "Thread created successfully!"
	NoticeThreadDeleted  = "Thread deleted successfully."
	NoticeVoteRegistered = "Vote registered successfully!"
)

// Failure is an action error carrying the text to show the user.
type Failure struct {
	Text string
	Err  error
}

func (f *Failure) Error() string { return f.Text }
func (f *Failure) Unwrap() error { return f.Err }

func fail(err error, fallback string) error {
	return &Failure{Text: client.Message(err, fallback), Err: err}
}

func reject(op, message string) error {
	return &Failure{Text: message, Err: client.Precondition(op, message)}
}

// lifetime binds a view to a cancellable context and numbers its loads.
// mu also guards the state of the embedding view.
type lifetime struct {
	name   string
	log    *slog.Logger
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	gen    uint64

	// scopes holds the cancel funcs of in-flight calls.
	scopes    map[uint64]context.CancelFunc
	nextScope uint64
}

func (l *lifetime) init(name string, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	l.name = name
	l.log = log
	l.ctx, l.cancel = context.WithCancel(context.Background())
}

// mount starts a fresh lifetime derived from parent, ending any previous one.
func (l *lifetime) mount(parent context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.endLocked()
	l.ctx, l.cancel = context.WithCancel(observability.WithView(parent, l.name))
}

// Close ends the view. In-flight calls are cancelled and their results
// discarded.
func (l *lifetime) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.endLocked()
}

// endLocked cancels the lifetime and every scope derived from it before
// returning.
func (l *lifetime) endLocked() {
	l.cancel()
	for id, cancel := range l.scopes {
		cancel()
		delete(l.scopes, id)
	}
}

// Alive reports whether the view is mounted and not closed.
func (l *lifetime) Alive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ctx.Err() == nil
}

// scope derives a context cancelled by either ctx or the view lifetime.
func (l *lifetime) scope(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(observability.WithView(ctx, l.name))

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctx.Err() != nil {
		cancel()
		return ctx, func() {}
	}
	if l.scopes == nil {
		l.scopes = make(map[uint64]context.CancelFunc)
	}
	l.nextScope++
	id := l.nextScope
	l.scopes[id] = cancel
	return ctx, func() {
		l.mu.Lock()
		delete(l.scopes, id)
		l.mu.Unlock()
		cancel()
	}
}

// begin starts a load and returns its generation.
func (l *lifetime) begin(ctx context.Context) (context.Context, uint64, func()) {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.mu.Unlock()
	ctx, done := l.scope(ctx)
	return ctx, gen, done
}

// commit applies a load result if the view is alive and gen is the latest
// load.
func (l *lifetime) commit(ctx context.Context, gen uint64, apply func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctx.Err() != nil || gen != l.gen {
		observability.StaleResultsDropped.WithLabelValues(l.name).Inc()
		l.log.DebugContext(ctx, "dropping stale result", "generation", gen, "latest", l.gen)
		return false
	}
	apply()
	return true
}

// patch applies an action result if the view is still alive.
func (l *lifetime) patch(ctx context.Context, apply func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctx.Err() != nil {
		observability.StaleResultsDropped.WithLabelValues(l.name).Inc()
		l.log.DebugContext(ctx, "dropping action result after close")
		return false
	}
	apply()
	return true
}

func cloneUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Rating != nil {
		r := *u.Rating
		c.Rating = &r
	}
	return &c
}

func cloneUsers(list []model.User) []model.User {
	if list == nil {
		return nil
	}
	out := make([]model.User, len(list))
	for i, u := range list {
		out[i] = *cloneUser(&u)
	}
	return out
}

func cloneThreads(list []model.Thread) []model.Thread {
	if list == nil {
		return nil
	}
	out := make([]model.Thread, len(list))
	for i, t := range list {
		t.Author = cloneUser(t.Author)
		out[i] = t
	}
	return out
}

func cloneResponses(list []model.Response) []model.Response {
	if list == nil {
		return nil
	}
	out := make([]model.Response, len(list))
	for i, r := range list {
		r.User = cloneUser(r.User)
		out[i] = r
	}
	return out
}
