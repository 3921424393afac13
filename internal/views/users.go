package views

import (
	"context"
	"math"

	"github.com/discutex/discutex/internal/client"
	"github.com/discutex/discutex/internal/filter"
	"github.com/discutex/discutex/internal/model"
)

const NoUsersMessage = "No users found"

// userList is the shared users-with-search state of UserRatings and
// AdminPanel.
type userList struct {
	lifetime
	deps    Deps
	users   []model.User
	query   string
	loading bool
	err     string
}

type UsersState struct {
	Loading bool
	Error   string
	Query   string
	Users   []model.User
}

func (s UsersState) Empty() bool {
	return !s.Loading && s.Error == "" && len(s.Users) == 0
}

func (v *userList) reload(ctx context.Context) {
	ctx, gen, done := v.begin(ctx)
	defer done()
	v.patch(ctx, func() { v.loading, v.err = true, "" })

	users, err := v.deps.API.ListUsers(ctx)
	v.commit(ctx, gen, func() {
		v.loading = false
		if err != nil {
			v.err = client.Message(err, "Failed to fetch users")
			return
		}
		v.users = users
	})
}

func (v *userList) SetQuery(q string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query = q
}

func (v *userList) stateLocked() UsersState {
	return UsersState{
		Loading: v.loading,
		Error:   v.err,
		Query:   v.query,
		Users:   cloneUsers(filter.Users(v.users, v.query)),
	}
}

// update patches the user with id in place. It reports false when the
// user is not in the list.
func (v *userList) updateLocked(id int64, fn func(*model.User)) bool {
	for i := range v.users {
		if v.users[i].ID == id {
			fn(&v.users[i])
			return true
		}
	}
	return false
}

// UserRatings lists users and lets the current user rate them 1 to 5.
type UserRatings struct {
	userList
	hovered map[int64]int
}

type UserRatingsState struct {
	UsersState
	Hovered map[int64]int
}

// Stars is the number of filled stars for u: the hover preview when one
// is active, otherwise the rounded rating.
func (s UserRatingsState) Stars(u model.User) int {
	if h, ok := s.Hovered[u.ID]; ok {
		return h
	}
	if u.Rating == nil {
		return 0
	}
	return int(math.Round(*u.Rating))
}

func NewUserRatings(deps Deps) *UserRatings {
	v := &UserRatings{hovered: make(map[int64]int)}
	v.deps = deps
	v.init("user-ratings", deps.Logger)
	return v
}

func (v *UserRatings) Mount(ctx context.Context) {
	v.mount(ctx)
	v.reload(ctx)
}

func (v *UserRatings) Reload(ctx context.Context) {
	v.reload(ctx)
}

// Rate submits a rating. On success only that user's rating changes, to
// the value the server reports.
func (v *UserRatings) Rate(ctx context.Context, userID int64, stars int) error {
	if stars < 1 || stars > 5 {
		return reject("rate", "Rating must be between 1 and 5.")
	}
	ctx, done := v.scope(ctx)
	defer done()

	rating, err := v.deps.API.RateUser(ctx, userID, stars)
	if err != nil {
		msg := client.Message(err, "Failed to submit rating")
		if client.IsKind(err, client.KindTransport) {
			msg = "Error submitting rating"
		}
		v.patch(ctx, func() { v.err = msg })
		return &Failure{Text: msg, Err: err}
	}
	v.patch(ctx, func() {
		v.err = ""
		v.updateLocked(userID, func(u *model.User) { u.Rating = &rating })
	})
	return nil
}

// Hover previews stars for a user without touching the network.
func (v *UserRatings) Hover(userID int64, stars int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hovered[userID] = stars
}

// Leave clears the hover preview for a user.
func (v *UserRatings) Leave(userID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.hovered, userID)
}

// DisplayedStars is State().Stars for a single user id.
func (v *UserRatings) DisplayedStars(userID int64) int {
	st := v.State()
	for _, u := range st.Users {
		if u.ID == userID {
			return st.Stars(u)
		}
	}
	return 0
}

func (v *UserRatings) State() UserRatingsState {
	v.mu.Lock()
	defer v.mu.Unlock()
	hovered := make(map[int64]int, len(v.hovered))
	for k, s := range v.hovered {
		hovered[k] = s
	}
	return UserRatingsState{UsersState: v.stateLocked(), Hovered: hovered}
}

// AdminPanel lists users and toggles their role.
type AdminPanel struct {
	userList
}

func NewAdminPanel(deps Deps) *AdminPanel {
	v := &AdminPanel{}
	v.deps = deps
	v.init("admin-panel", deps.Logger)
	return v
}

func (v *AdminPanel) Mount(ctx context.Context) {
	v.mount(ctx)
	v.reload(ctx)
}

func (v *AdminPanel) Reload(ctx context.Context) {
	v.reload(ctx)
}

// ToggleRole asks the server to flip a user between member and admin and
// stores whatever role the server answers with.
func (v *AdminPanel) ToggleRole(ctx context.Context, userID int64) error {
	v.mu.Lock()
	current, found := 0, false
	for _, u := range v.users {
		if u.ID == userID {
			current, found = u.Role, true
			break
		}
	}
	v.mu.Unlock()
	if !found {
		return reject("toggle role", "User not found.")
	}
	requested := model.RoleAdmin
	if current == model.RoleAdmin {
		requested = model.RoleMember
	}

	ctx, done := v.scope(ctx)
	defer done()
	role, err := v.deps.API.UpdateRole(ctx, userID, requested)
	if err != nil {
		msg := client.Message(err, "Failed to update role")
		if client.IsKind(err, client.KindTransport) {
			msg = "Error updating user role"
		}
		v.patch(ctx, func() { v.err = msg })
		return &Failure{Text: msg, Err: err}
	}
	v.patch(ctx, func() {
		v.err = ""
		v.updateLocked(userID, func(u *model.User) { u.Role = role })
	})
	return nil
}

func (v *AdminPanel) State() UsersState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stateLocked()
}
