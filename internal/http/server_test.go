package httpapp

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discutex/discutex/internal/apitest"
	"github.com/discutex/discutex/internal/config"
	"github.com/discutex/discutex/internal/model"
	"github.com/discutex/discutex/internal/rate"
	"github.com/discutex/discutex/internal/store/memory"
)

type allowAllLimiter struct{}

func (a allowAllLimiter) Allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	return true, 0
}

type harness struct {
	api     *apitest.Server
	backend *memory.Store
	url     string
	browser *http.Client
}

func newHarness(t *testing.T, limiter rate.Limiter, limits config.RateLimits) *harness {
	t.Helper()
	api := apitest.New()
	apiSrv := httptest.NewServer(api)
	t.Cleanup(apiSrv.Close)

	backend := memory.New()
	cfg := config.Config{
		APIBaseURL:        apiSrv.URL,
		HTTPTimeout:       5 * time.Second,
		EnrichConcurrency: 4,
		SessionTTL:        time.Hour,
		SessionSecret:     "test-secret-test-secret-test-secret",
		RateLimits:        limits,
	}
	server, err := NewServer(backend, limiter, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	front := httptest.NewServer(server)
	t.Cleanup(front.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &harness{
		api:     api,
		backend: backend,
		url:     front.URL,
		browser: &http.Client{Jar: jar, Timeout: 10 * time.Second},
	}
}

func (h *harness) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := h.browser.Get(h.url + path)
	require.NoError(t, err)
	return readBody(t, resp)
}

func (h *harness) post(t *testing.T, path string, form url.Values) (int, string) {
	t.Helper()
	resp, err := h.browser.PostForm(h.url+path, form)
	require.NoError(t, err)
	return readBody(t, resp)
}

func (h *harness) login(t *testing.T, email, password string) string {
	t.Helper()
	code, body := h.post(t, "/login", url.Values{"email": {email}, "password": {password}})
	require.Equal(t, http.StatusOK, code, body)
	return body
}

func readBody(t *testing.T, resp *http.Response) (int, string) {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestHealthzAndMetrics(t *testing.T) {
	h := newHarness(t, allowAllLimiter{}, config.RateLimits{})

	code, body := h.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)

	code, body = h.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "discutex_page_requests_total")

	code, _ = h.get(t, "/favicon.svg")
	assert.Equal(t, http.StatusOK, code)
}

func TestRootRedirectsToWelcome(t *testing.T) {
	h := newHarness(t, allowAllLimiter{}, config.RateLimits{})

	code, body := h.get(t, "/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Welcome to Discutex")
	assert.Contains(t, body, `href="/register"`)
}

func TestLoginStoresTokenServerSideAndShowsDashboard(t *testing.T) {
	h := newHarness(t, allowAllLimiter{}, config.RateLimits{})
	h.api.AddUser("Ada Lovelace", "ada", "ada@example.com", "password123", model.RoleMember)

	body := h.login(t, "ada@example.com", "password123")
	assert.Contains(t, body, "Login successful")
	assert.Contains(t, body, "Welcome, Ada Lovelace!")
	assert.NotContains(t, body, "Admin Panel")

	u, err := url.Parse(h.url)
	require.NoError(t, err)
	for _, c := range h.browser.Jar.Cookies(u) {
		assert.Equal(t, cookieName, c.Name)
	}

	// The flash is shown once.
	_, body = h.get(t, "/dashboard")
	assert.NotContains(t, body, "Login successful")
}

func TestLoginFailureKeepsEmail(t *testing.T) {
	h := newHarness(t, allowAllLimiter{}, config.RateLimits{})
	h.api.AddUser("Ada", "ada", "ada@example.com", "password123", model.RoleMember)

	code, body := h.post(t, "/login", url.Values{"email": {"ada@example.com"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, body, "Invalid credentials")
	assert.Contains(t, body, `value="ada@example.com"`)

	code, body = h.post(t, "/login", url.Values{"email": {""}, "password": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, body, "Email and password are required.")
}

func TestAuthenticatedPagesWithoutTokenShowError(t *testing.T) {
	h := newHarness(t, allowAllLimiter{}, config.RateLimits{})

	for _, path := range []string{"/threads", "/my-threads", "/dashboard"} {
		code, body := h.get(t, path)
		assert.Equal(t, http.StatusOK, code, path)
		assert.Contains(t, body, "No token found. Please log in.", path)
	}
}

func TestRegisterRedirectsToLogin(t *testing.T) {
	h := newHarness(t, allowAllLimiter{}, config.RateLimits{})

	form := url.Values{
		"name":                  {"Grace Hopper"},
		"email":                 {"grace@example.com"},
		"username":              {"grace"},
		"password":              {"password123"},
		"password_confirmation": {"password123"},
	}
	code, body := h.post(t, "/register", form)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Registration successful. Please log in.")
	assert.Contains(t, body, `action="/login"`)

	form.Set("password_confirmation", "different1")
	form.Set("email", "other@example.com")
	code, body = h.post(t, "/register", form)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, body, "Passwords do not match.")
	assert.Contains(t, body, `value="Grace Hopper"`)
}

func TestThreadsSearchAndGroupLinks(t *testing.T) {
	h := newHarness(t, allowAllLimiter{}, config.RateLimits{})
	u := h.api.AddUser("Ada", "ada", "ada@example.com", "password123", model.RoleMember)
	h.api.AddThread(u.ID, "Go generics", "type params")
	h.api.AddThread(u.ID, "Rust lifetimes", "borrowck")
	h.login(t, "ada@example.com", "password123")

	_, body := h.get(t, "/threads?q=GO")
	assert.Contains(t, body, "Go generics")
	assert.NotContains(t, body, "Rust lifetimes")
	assert.Contains(t, body, "/group?id=")

	_, body = h.get(t, "/threads?q=haskell")
	assert.Contains(t, body, "No threads found.")
}

func TestGroupEnrichesAndVotes(t *testing.T) {
	h := newHarness(t, allowAllLimiter{}, config.RateLimits{})
	me := h.api.AddUser("Ada", "ada", "ada@example.com", "password123", model.RoleMember)
	other := h.api.AddUser("Bob", "bob", "bob@example.com", "password123", model.RoleMember)
	th := h.api.AddThread(me.ID, "Chat", "hello")
	mine := h.api.AddResponse(th.ID, me.ID, "my message")
	theirs := h.api.AddResponse(th.ID, other.ID, "their message")
	broken := h.api.AddResponse(th.ID, other.ID, "lost author")
	h.api.FailAuthorLookup(broken.ID)
	h.login(t, "ada@example.com", "password123")

	groupPath := "/group?id=" + itoa(th.ID) + "&title=Chat"
	_, body := h.get(t, groupPath)
	assert.Contains(t, body, "Discussion Chat: Chat")
	assert.Contains(t, body, "bob")
	assert.Contains(t, body, "Unknown User")
	assert.Contains(t, body, `name="response_id" value="`+itoa(theirs.ID)+`"`)
	assert.NotContains(t, body, `name="response_id" value="`+itoa(mine.ID)+`"`)

	code, body := h.post(t, "/group/votes", url.Values{
		"id": {itoa(th.ID)}, "title": {"Chat"}, "response_id": {itoa(theirs.ID)}, "action": {"up"},
	})
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Vote registered successfully!")

	_, body = h.post(t, "/group/votes", url.Values{
		"id": {itoa(th.ID)}, "title": {"Chat"}, "response_id": {itoa(mine.ID)}, "action": {"down"},
	})
	assert.Contains(t, body, "You cannot vote on your own response.")
}

func TestGroupSend(t *testing.T) {
	h := newHarness(t, allowAllLimiter{}, config.RateLimits{})
	me := h.api.AddUser("Ada", "ada", "ada@example.com", "password123", model.RoleMember)
	th := h.api.AddThread(me.ID, "Chat", "hello")
	h.login(t, "ada@example.com", "password123")

	form := url.Values{"id": {itoa(th.ID)}, "title": {"Chat"}, "content": {"   "}}
	_, body := h.post(t, "/group/responses", form)
	assert.Contains(t, body, "Message cannot be empty.")
	assert.Contains(t, body, "No responses yet.")

	form.Set("content", "first!")
	_, body = h.post(t, "/group/responses", form)
	assert.Contains(t, body, "first!")
	assert.Contains(t, body, "ada")
}

func TestGroupActionsLoadThreadOncePerRedirect(t *testing.T) {
	h := newHarness(t, allowAllLimiter{}, config.RateLimits{})
	me := h.api.AddUser("Ada", "ada", "ada@example.com", "password123", model.RoleMember)
	other := h.api.AddUser("Bob", "bob", "bob@example.com", "password123", model.RoleMember)
	th := h.api.AddThread(me.ID, "Chat", "hello")
	theirs := h.api.AddResponse(th.ID, other.ID, "their message")
	h.login(t, "ada@example.com", "password123")

	list := "GET /api/responses/" + itoa(th.ID)
	author := "GET /api/responses/" + itoa(theirs.ID) + "/user"

	form := url.Values{"id": {itoa(th.ID)}, "title": {"Chat"}, "content": {"hi"}}
	h.post(t, "/group/responses", form)
	assert.Equal(t, 1, countAPIRequests(h, list))
	assert.Equal(t, 1, countAPIRequests(h, author))

	// the vote handler loads once for the self-vote check, the redirect once more
	h.post(t, "/group/votes", url.Values{
		"id": {itoa(th.ID)}, "title": {"Chat"}, "response_id": {itoa(theirs.ID)}, "action": {"up"},
	})
	assert.Equal(t, 3, countAPIRequests(h, list))
}

func countAPIRequests(h *harness, req string) int {
	n := 0
	for _, r := range h.api.Requests() {
		if r == req {
			n++
		}
	}
	return n
}

func TestGroupWithoutThreadIsNotFound(t *testing.T) {
	h := newHarness(t, allowAllLimiter{}, config.RateLimits{})
	code, _ := h.get(t, "/group?title=nothing")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCreateAndDeleteThread(t *testing.T) {
	h := newHarness(t, allowAllLimiter{}, config.RateLimits{})
	me := h.api.AddUser("Ada", "ada", "ada@example.com", "password123", model.RoleMember)
	keep := h.api.AddThread(me.ID, "Keep me", "stay")
	h.login(t, "ada@example.com", "password123")

	code, body := h.post(t, "/create-thread", url.Values{"title": {"  "}, "content": {"body"}})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, body, "Title and content are required.")

	_, body = h.post(t, "/create-thread", url.Values{"title": {"Fresh"}, "content": {"new thread"}})
	assert.Contains(t, body, "Thread created successfully!")
	assert.Contains(t, body, "Fresh")
	assert.Contains(t, body, "Keep me")
	require.Equal(t, 2, h.api.ThreadCount())

	_, body = h.post(t, "/my-threads/"+itoa(keep.ID)+"/delete", nil)
	assert.Contains(t, body, "Thread deleted successfully.")
	assert.NotContains(t, body, "Keep me")
	assert.Contains(t, body, "Fresh")
	assert.Equal(t, 1, h.api.ThreadCount())
}

func TestRateUser(t *testing.T) {
	h := newHarness(t, allowAllLimiter{}, config.RateLimits{})
	h.api.AddUser("Ada", "ada", "ada@example.com", "password123", model.RoleMember)
	bob := h.api.AddUser("Bob", "bob", "bob@example.com", "password123", model.RoleMember)
	h.login(t, "ada@example.com", "password123")

	_, body := h.post(t, "/userRatings/"+itoa(bob.ID)+"/rate", url.Values{"stars": {"4"}, "q": {"bob"}})
	assert.Contains(t, body, "Rating: 4.0")
	assert.NotContains(t, body, "Ada")

	_, body = h.post(t, "/userRatings/"+itoa(bob.ID)+"/rate", url.Values{"stars": {"9"}})
	assert.Contains(t, body, "Rating must be between 1 and 5.")

	_, body = h.get(t, "/userRatings?preview=2&user="+itoa(bob.ID))
	assert.Equal(t, 2, strings.Count(body, `class="star on"`))
}

func TestAdminTogglesRole(t *testing.T) {
	h := newHarness(t, allowAllLimiter{}, config.RateLimits{})
	h.api.AddUser("Root", "root", "root@example.com", "password123", model.RoleAdmin)
	bob := h.api.AddUser("Bob", "bob", "bob@example.com", "password123", model.RoleMember)

	body := h.login(t, "root@example.com", "password123")
	assert.Contains(t, body, "Admin Panel")

	_, body = h.post(t, "/admin-panel/"+itoa(bob.ID)+"/role", nil)
	assert.Contains(t, body, "Make User")
	got, ok := h.api.User(bob.ID)
	require.True(t, ok)
	assert.Equal(t, model.RoleAdmin, got.Role)
}

func TestDashboardProfileAndVotes(t *testing.T) {
	h := newHarness(t, allowAllLimiter{}, config.RateLimits{})
	me := h.api.AddUser("Ada", "ada", "ada@example.com", "password123", model.RoleMember)
	bob := h.api.AddUser("Bob", "bob", "bob@example.com", "password123", model.RoleMember)
	th := h.api.AddThread(bob.ID, "Chat", "hello")
	resp := h.api.AddResponse(th.ID, bob.ID, "nice one")
	h.api.AddNotification(me.ID, "Welcome aboard")
	h.login(t, "ada@example.com", "password123")

	h.post(t, "/group/votes", url.Values{
		"id": {itoa(th.ID)}, "title": {"Chat"}, "response_id": {itoa(resp.ID)}, "action": {"up"},
	})
	_, body := h.get(t, "/dashboard")
	assert.Contains(t, body, "You liked the message: &#34;nice one&#34;")
	assert.NotContains(t, body, "Welcome aboard")

	_, body = h.get(t, "/dashboard?notifications=open")
	assert.Contains(t, body, "Welcome aboard")

	_, body = h.post(t, "/dashboard/clear-votes", nil)
	assert.Contains(t, body, "No unread votes.")

	_, body = h.get(t, "/dashboard?edit=1")
	assert.Contains(t, body, `action="/dashboard/profile"`)

	_, body = h.post(t, "/dashboard/profile", url.Values{"name": {"Ada L."}, "email": {"ada@example.com"}, "username": {"ada"}})
	assert.Contains(t, body, "User details updated successfully!")
	assert.Contains(t, body, "Welcome, Ada L.!")
}

func TestLogoutAndDeleteAccount(t *testing.T) {
	h := newHarness(t, allowAllLimiter{}, config.RateLimits{})
	me := h.api.AddUser("Ada", "ada", "ada@example.com", "password123", model.RoleMember)
	h.login(t, "ada@example.com", "password123")

	_, body := h.post(t, "/logout", nil)
	assert.Contains(t, body, `action="/login"`)
	_, body = h.get(t, "/my-threads")
	assert.Contains(t, body, "No token found. Please log in.")

	h.login(t, "ada@example.com", "password123")
	_, body = h.post(t, "/dashboard/delete", nil)
	assert.Contains(t, body, "Welcome to Discutex")
	_, ok := h.api.User(me.ID)
	assert.False(t, ok)
}

func TestLoginRateLimit(t *testing.T) {
	h := newHarness(t, rate.NewMemory(), config.RateLimits{LoginPerMinute: 2})

	for i := 0; i < 2; i++ {
		code, _ := h.post(t, "/login", url.Values{"email": {"x@example.com"}, "password": {"nope"}})
		assert.Equal(t, http.StatusUnprocessableEntity, code)
	}
	resp, err := h.browser.PostForm(h.url+"/login", url.Values{"email": {"x@example.com"}, "password": {"nope"}})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	code, body := readBody(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Contains(t, body, "Too many attempts")
}

func TestRegisterHasItsOwnRateLimit(t *testing.T) {
	h := newHarness(t, rate.NewMemory(), config.RateLimits{LoginPerMinute: 5, RegisterPerMinute: 1})
	form := url.Values{
		"name": {"Ada"}, "email": {"ada@example.com"}, "username": {"ada"},
		"password": {"password123"}, "password_confirmation": {"different"},
	}

	code, _ := h.post(t, "/register", form)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	code, _ = h.post(t, "/register", form)
	assert.Equal(t, http.StatusTooManyRequests, code)

	code, _ = h.post(t, "/login", url.Values{"email": {"x@example.com"}, "password": {"nope"}})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestUnknownPage(t *testing.T) {
	h := newHarness(t, allowAllLimiter{}, config.RateLimits{})
	code, body := h.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body, "Not found")
}
