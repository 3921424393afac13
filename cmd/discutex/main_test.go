package main

import (
	"bytes"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/discutex/discutex/internal/apitest"
	"github.com/discutex/discutex/internal/model"
)

type cliHarness struct {
	api  *apitest.Server
	url  string
	home string
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	api := apitest.New()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return &cliHarness{api: api, url: srv.URL, home: t.TempDir()}
}

func (h *cliHarness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"discutex", "--api", h.url, "--home", h.home}, args...))
	return out.String(), err
}

func TestLoginPersistsTokenAcrossCommands(t *testing.T) {
	h := newCLIHarness(t)
	h.api.AddUser("Ada Lovelace", "ada", "ada@example.com", "password123", model.RoleMember)

	out, err := h.run(t, "login", "--email", "ada@example.com", "--password", "password123")
	require.NoError(t, err)
	assert.Contains(t, out, "Login successful")

	out, err = h.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome, Ada Lovelace!")
	assert.Contains(t, out, "Role:     member")

	_, err = h.run(t, "logout")
	require.NoError(t, err)

	_, err = h.run(t, "whoami")
	require.Error(t, err)
	assert.Equal(t, "No token found. Please log in.", err.Error())
}

func TestThreadLifecycle(t *testing.T) {
	h := newCLIHarness(t)
	h.api.AddUser("Ada", "ada", "ada@example.com", "password123", model.RoleMember)
	bob := h.api.AddUser("Bob", "bob", "bob@example.com", "password123", model.RoleMember)
	other := h.api.AddThread(bob.ID, "Bob's corner", "hi")
	theirs := h.api.AddResponse(other.ID, bob.ID, "hello from bob")
	_, err := h.run(t, "login", "--email", "ada@example.com", "--password", "password123")
	require.NoError(t, err)

	out, err := h.run(t, "thread", "create", "--title", "CLI thread", "--content", "made in a terminal")
	require.NoError(t, err)
	assert.Contains(t, out, "Thread created successfully!")

	out, err = h.run(t, "threads", "--search", "cli")
	require.NoError(t, err)
	assert.Contains(t, out, "CLI thread")
	assert.NotContains(t, out, "Bob's corner")

	thread := strconv.FormatInt(other.ID, 10)
	out, err = h.run(t, "respond", "--thread", thread, "--title", "Bob's corner", "--content", "hi bob")
	require.NoError(t, err)
	assert.Contains(t, out, "Discussion Chat: Bob's corner")
	assert.Contains(t, out, "ada (you): hi bob")

	out, err = h.run(t, "vote", "--thread", thread, "--response", strconv.FormatInt(theirs.ID, 10), "--up")
	require.NoError(t, err)
	assert.Contains(t, out, "Vote registered successfully!")

	out, err = h.run(t, "notifications")
	require.NoError(t, err)
	assert.Contains(t, out, `You liked the message: "hello from bob"`)

	_, err = h.run(t, "vote", "--thread", thread, "--response", strconv.FormatInt(theirs.ID, 10), "--up", "--down")
	require.Error(t, err)

	out, err = h.run(t, "my-threads")
	require.NoError(t, err)
	assert.Contains(t, out, "CLI thread")
}

func TestRateAndRoleToggle(t *testing.T) {
	h := newCLIHarness(t)
	h.api.AddUser("Root", "root", "root@example.com", "password123", model.RoleAdmin)
	bob := h.api.AddUser("Bob", "bob", "bob@example.com", "password123", model.RoleMember)
	_, err := h.run(t, "login", "--email", "root@example.com", "--password", "password123")
	require.NoError(t, err)
	id := strconv.FormatInt(bob.ID, 10)

	out, err := h.run(t, "rate", "--user", id, "--stars", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "★★★☆☆")

	_, err = h.run(t, "rate", "--user", id, "--stars", "0")
	require.Error(t, err)
	assert.Equal(t, "Rating must be between 1 and 5.", err.Error())

	out, err = h.run(t, "role", "toggle", "--user", id)
	require.NoError(t, err)
	assert.Contains(t, out, "bob is now admin.")

	out, err = h.run(t, "users", "--search", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "admin")
	assert.NotContains(t, out, "root")
}

func TestStarBar(t *testing.T) {
	assert.Equal(t, "☆☆☆☆☆", starBar(0))
	assert.Equal(t, "★★☆☆☆", starBar(2))
	assert.Equal(t, "★★★★★", starBar(9))
}
