package views

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/discutex/discutex/internal/client"
	"github.com/discutex/discutex/internal/model"
	"github.com/discutex/discutex/internal/nav"
)

const NoUnreadVotesMessage = "No unread votes."

// Dashboard shows the current user, their notifications and the votes
// they cast that are still unread, and manages the account.
type Dashboard struct {
	lifetime
	deps          Deps
	user          *model.User
	original      model.ProfileUpdate
	draft         model.ProfileUpdate
	editing       bool
	notifications []model.Notification
	unreadCount   int
	unreadVotes   []model.UnreadVote
	open          bool
	indicator     bool
	loading       bool
	err           string
}

type DashboardState struct {
	User          *model.User
	Draft         model.ProfileUpdate
	Editing       bool
	Notifications []model.Notification
	UnreadCount   int
	UnreadVotes   []model.UnreadVote
	// NotificationsOpen is the expanded notification panel.
	NotificationsOpen bool
	// Indicator is the unread marker, hidden once the panel is opened.
	Indicator bool
	Loading   bool
	Error     string
}

// Greeting falls back to "Loading..." until the user arrives.
func (s DashboardState) Greeting() string {
	name := "Loading..."
	if s.User != nil && s.User.Name != "" {
		name = s.User.Name
	}
	return "Welcome, " + name + "!"
}

// IsAdmin gates the admin panel link.
func (s DashboardState) IsAdmin() bool {
	return s.User != nil && s.User.IsAdmin()
}

// VoteLines renders each unread vote as a sentence.
func (s DashboardState) VoteLines() []string {
	lines := make([]string, 0, len(s.UnreadVotes))
	for _, vote := range s.UnreadVotes {
		verb := "disliked"
		if vote.Liked() {
			verb = "liked"
		}
		lines = append(lines, fmt.Sprintf("You %s the message: \"%s\"", verb, vote.Response.Content))
	}
	return lines
}

func NewDashboard(deps Deps) *Dashboard {
	v := &Dashboard{deps: deps}
	v.init("dashboard", deps.Logger)
	return v
}

func (v *Dashboard) Mount(ctx context.Context) {
	v.mount(ctx)
	v.Reload(ctx)
}

// Reload fetches the user, notifications and unread votes concurrently.
// Only a failure to load the user is reported; the other two panels stay
// empty on error.
func (v *Dashboard) Reload(ctx context.Context) {
	ctx, gen, done := v.begin(ctx)
	defer done()
	v.patch(ctx, func() { v.loading, v.err = true, "" })

	var (
		user          *model.User
		userErr       error
		notifications []model.Notification
		unread        int
		votes         []model.UnreadVote
	)
	var g errgroup.Group
	g.Go(func() error {
		user, userErr = v.deps.API.CurrentUser(ctx)
		return nil
	})
	g.Go(func() error {
		var err error
		notifications, unread, err = v.deps.API.Notifications(ctx)
		if err != nil {
			v.log.DebugContext(ctx, "notifications unavailable", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		votes, err = v.deps.API.UnreadVotes(ctx)
		if err != nil {
			v.log.DebugContext(ctx, "unread votes unavailable", "error", err)
		}
		return nil
	})
	_ = g.Wait()

	v.commit(ctx, gen, func() {
		v.loading = false
		v.notifications = notifications
		v.unreadCount = unread
		v.indicator = unread > 0
		v.unreadVotes = votes
		if userErr != nil {
			v.err = client.Message(userErr, "Error fetching user details")
			return
		}
		v.user = user
		v.original = model.ProfileUpdate{Name: user.Name, Email: user.Email, Username: user.Username}
		v.draft = v.original
	})
}

// ToggleNotifications opens or closes the panel and hides the indicator.
func (v *Dashboard) ToggleNotifications() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.open = !v.open
	v.indicator = false
}

// ClearVotes empties the unread vote panel locally.
func (v *Dashboard) ClearVotes() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.unreadVotes = nil
}

func (v *Dashboard) Edit() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.editing = true
}

// Cancel restores the values loaded from the server.
func (v *Dashboard) Cancel() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.draft = v.original
	v.editing = false
}

// Save sends the profile changes. On failure the draft keeps the edits.
func (v *Dashboard) Save(ctx context.Context, upd model.ProfileUpdate) error {
	upd.Name = strings.TrimSpace(upd.Name)
	upd.Email = strings.TrimSpace(upd.Email)
	upd.Username = strings.TrimSpace(upd.Username)
	v.mu.Lock()
	v.draft = upd
	v.mu.Unlock()

	ctx, done := v.scope(ctx)
	defer done()
	if err := v.deps.API.UpdateUser(ctx, upd); err != nil {
		if client.IsKind(err, client.KindTransport) {
			return fail(err, "An unexpected error occurred while updating user details.")
		}
		return &Failure{Text: "Failed to update user details: " + client.Message(err, "Unknown error"), Err: err}
	}
	v.patch(ctx, func() {
		if v.user != nil {
			v.user.Name, v.user.Email, v.user.Username = upd.Name, upd.Email, upd.Username
		}
		v.original = upd
		v.draft = upd
		v.editing = false
	})
	return nil
}

// Logout ends the session on the server, then locally, and goes to the
// login page. A failed request keeps the token.
func (v *Dashboard) Logout(ctx context.Context) error {
	ctx, done := v.scope(ctx)
	defer done()
	if err := v.deps.API.Logout(ctx); err != nil {
		return fail(err, "Error during logout")
	}
	if err := v.deps.Session.Clear(ctx); err != nil {
		return fail(err, "Error during logout")
	}
	v.deps.Nav.Navigate(nav.Login, nil)
	return nil
}

// DeleteAccount deletes the user, clears the session and goes to the
// welcome page.
func (v *Dashboard) DeleteAccount(ctx context.Context) error {
	ctx, done := v.scope(ctx)
	defer done()
	if err := v.deps.API.DeleteUser(ctx); err != nil {
		return &Failure{Text: "An error occurred: " + client.Message(err, "Error during account deletion."), Err: err}
	}
	if err := v.deps.Session.Clear(ctx); err != nil {
		return fail(err, "Error during account deletion.")
	}
	v.deps.Nav.Navigate(nav.Welcome, nil)
	return nil
}

func (v *Dashboard) State() DashboardState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return DashboardState{
		User:              cloneUser(v.user),
		Draft:             v.draft,
		Editing:           v.editing,
		Notifications:     append([]model.Notification(nil), v.notifications...),
		UnreadCount:       v.unreadCount,
		UnreadVotes:       append([]model.UnreadVote(nil), v.unreadVotes...),
		NotificationsOpen: v.open,
		Indicator:         v.indicator,
		Loading:           v.loading,
		Error:             v.err,
	}
}
