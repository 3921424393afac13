package views

import (
	"context"
	"strings"

	"github.com/discutex/discutex/internal/model"
	"github.com/discutex/discutex/internal/nav"
)

// Welcome is the landing page. It never calls the API.
type Welcome struct {
	lifetime
	deps          Deps
	authenticated bool
}

type WelcomeState struct {
	Authenticated bool
}

func NewWelcome(deps Deps) *Welcome {
	v := &Welcome{deps: deps}
	v.init("welcome", deps.Logger)
	return v
}

func (v *Welcome) Mount(ctx context.Context) {
	v.mount(ctx)
	_, err := v.deps.Session.Token(ctx)
	v.patch(ctx, func() { v.authenticated = err == nil })
}

func (v *Welcome) State() WelcomeState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return WelcomeState{Authenticated: v.authenticated}
}

type Login struct {
	lifetime
	deps Deps
}

func NewLogin(deps Deps) *Login {
	v := &Login{deps: deps}
	v.init("login", deps.Logger)
	return v
}

func (v *Login) Mount(ctx context.Context) {
	v.mount(ctx)
}

// Submit logs in, stores the token and navigates to the dashboard.
func (v *Login) Submit(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return reject("login", "Email and password are required.")
	}
	ctx, done := v.scope(ctx)
	defer done()

	tok, err := v.deps.API.Login(ctx, email, password)
	if err != nil {
		return fail(err, "Error logging in")
	}
	if err := v.deps.Session.SetToken(ctx, tok); err != nil {
		return fail(err, "Error logging in")
	}
	v.log.InfoContext(ctx, "logged in")
	v.deps.Nav.Navigate(nav.Dashboard, nil)
	return nil
}

type Register struct {
	lifetime
	deps Deps
}

func NewRegister(deps Deps) *Register {
	v := &Register{deps: deps}
	v.init("register", deps.Logger)
	return v
}

func (v *Register) Mount(ctx context.Context) {
	v.mount(ctx)
}

// Submit creates the account and sends the user to the login page. It
// does not log in.
func (v *Register) Submit(ctx context.Context, form model.RegisterForm) error {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	form.Username = strings.TrimSpace(form.Username)
	switch {
	case form.Name == "" || form.Email == "" || form.Username == "" || form.Password == "":
		return reject("register", "All fields are required.")
	case form.Password != form.PasswordConfirmation:
		return reject("register", "Passwords do not match.")
	}
	ctx, done := v.scope(ctx)
	defer done()

	if err := v.deps.API.Register(ctx, form); err != nil {
		return fail(err, "Registration failed")
	}
	v.deps.Nav.Navigate(nav.Login, nil)
	return nil
}
