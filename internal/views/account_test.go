package views

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discutex/discutex/internal/client"
	"github.com/discutex/discutex/internal/model"
	"github.com/discutex/discutex/internal/nav"
	"github.com/discutex/discutex/internal/session"
	"github.com/discutex/discutex/internal/store/memory"
)

func TestLoginStoresTokenAndNavigatesToDashboard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "a@b.com" || body["password"] != "x" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Invalid credentials"}`)
			return
		}
		_, _ = io.WriteString(w, `{"data":{"token":"T"}}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	sess := session.New(memory.New(), session.DefaultKey)
	rec := &nav.Recorder{}
	v := NewLogin(Deps{API: client.New(srv.URL, sess), Session: sess, Nav: rec})
	v.Mount(ctx)
	defer v.Close()

	require.NoError(t, v.Submit(ctx, "a@b.com", "x"))

	tok, err := sess.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T", tok)
	route, _, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, nav.Dashboard, route)
}

func TestLoginFailureKeepsUserOnPage(t *testing.T) {
	f := newFixture(t)
	f.api.AddUser("Ada", "ada", "a@b.com", "secret", model.RoleMember)
	ctx := context.Background()

	v := NewLogin(f.deps)
	v.Mount(ctx)
	defer v.Close()

	err := v.Submit(ctx, "a@b.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())
	assert.False(t, f.sess.Authenticated(ctx))
	_, _, navigated := f.nav.Last()
	assert.False(t, navigated)

	err = v.Submit(ctx, " ", "")
	assert.Equal(t, "Email and password are required.", err.Error())
}

func TestRegisterNavigatesToLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := NewRegister(f.deps)
	v.Mount(ctx)
	defer v.Close()

	err := v.Submit(ctx, model.RegisterForm{
		Name: "Ada", Email: "ada@x.io", Username: "ada",
		Password: "password1", PasswordConfirmation: "password1",
	})
	require.NoError(t, err)
	route, _, _ := f.nav.Last()
	assert.Equal(t, nav.Login, route)
	assert.False(t, f.sess.Authenticated(ctx))

	err = v.Submit(ctx, model.RegisterForm{
		Name: "Ada", Email: "ada@x.io", Username: "ada",
		Password: "password1", PasswordConfirmation: "password1",
	})
	require.Error(t, err)
	assert.Equal(t, "The email has already been taken.", err.Error())
}

func TestRegisterMismatchMakesNoRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := NewRegister(f.deps)
	v.Mount(ctx)
	defer v.Close()

	err := v.Submit(ctx, model.RegisterForm{
		Name: "Ada", Email: "ada@x.io", Username: "ada",
		Password: "password1", PasswordConfirmation: "password2",
	})
	require.Error(t, err)
	assert.Equal(t, "Passwords do not match.", err.Error())
	assert.Empty(t, f.api.Requests())
}

func TestWelcomeReflectsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v := NewWelcome(f.deps)
	v.Mount(ctx)
	assert.False(t, v.State().Authenticated)

	require.NoError(t, f.sess.SetToken(ctx, "T"))
	v.Mount(ctx)
	assert.True(t, v.State().Authenticated)
	assert.Empty(t, f.api.Requests())
}
