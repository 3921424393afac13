// Package client provides a Go client for the Discutex REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/discutex/discutex/internal/model"
	"github.com/discutex/discutex/internal/observability"
	"github.com/discutex/discutex/internal/session"
)

const maxBodyBytes = 1 << 20

// TokenSource supplies the bearer token for authenticated calls.
// *session.Session satisfies it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client is a Discutex API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	tracer     trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithTimeout sets the per-request timeout on a copy of the HTTP client,
// so a client passed through WithHTTPClient is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.HTTPClient
		hc.Timeout = d
		c.HTTPClient = &hc
	}
}

// New creates a new client. Tokens may be nil for clients that only call
// unauthenticated endpoints.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: observability.InstrumentTransport(http.DefaultTransport),
		},
		Tokens: tokens,
		tracer: otel.Tracer("github.com/discutex/discutex/internal/client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type authMode int

const (
	authNone authMode = iota
	authRequired
	// authOptional sends the token when one is stored.
	authOptional
)

type call struct {
	op     string
	method string
	path   string
	auth   authMode
	body   any
	out    any
}

func (c *Client) token(ctx context.Context, mode authMode) (string, error) {
	if mode == authNone {
		return "", nil
	}
	if c.Tokens == nil {
		if mode == authOptional {
			return "", nil
		}
		return "", session.ErrNoToken
	}
	tok, err := c.Tokens.Token(ctx)
	if err != nil && (mode == authRequired || !errors.Is(err, session.ErrNoToken)) {
		return "", err
	}
	return tok, nil
}

// doRequest performs one API round trip and decodes a 2xx body into
// cl.out. Authenticated calls without a token never touch the network.
func (c *Client) doRequest(ctx context.Context, cl call) error {
	tok, err := c.token(ctx, cl.auth)
	if err != nil {
		if errors.Is(err, session.ErrNoToken) {
			return &Error{Kind: KindPrecondition, Op: cl.op, Message: NoTokenMessage, Err: err}
		}
		return &Error{Kind: KindTransport, Op: cl.op, Err: fmt.Errorf("read token: %w", err)}
	}

	ctx, span := c.tracer.Start(ctx, "discutex.api "+cl.op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", cl.method),
		attribute.String("url.path", cl.path),
	)

	err = c.roundTrip(ctx, tok, cl, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, tok string, cl call, span trace.Span) error {
	var bodyReader io.Reader
	if cl.body != nil {
		bodyBytes, err := json.Marshal(cl.body)
		if err != nil {
			return &Error{Kind: KindPrecondition, Op: cl.op, Err: err}
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.BaseURL+cl.path, bodyReader)
	if err != nil {
		return &Error{Kind: KindTransport, Op: cl.op, Err: err}
	}
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Op: cl.op, Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Kind: KindTransport, Op: cl.op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(cl.op, resp.StatusCode, respBody)
	}
	if cl.out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, cl.out); err != nil {
		return &Error{Kind: KindUnstructured, Op: cl.op, Status: resp.StatusCode, Message: "malformed response body", Err: err}
	}
	return nil
}

func decodeError(op string, status int, body []byte) error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		msg := payload.Message
		if msg == "" {
			msg = payload.Error
		}
		if msg != "" {
			return &Error{Kind: KindServer, Op: op, Status: status, Message: msg}
		}
	}
	return &Error{Kind: KindUnstructured, Op: op, Status: status, Message: strings.TrimSpace(string(body))}
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var result struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	err := c.doRequest(ctx, call{
		op: "login", method: http.MethodPost, path: "/api/login",
		body: map[string]string{"email": email, "password": password},
		out:  &result,
	})
	if err != nil {
		return "", err
	}
	if result.Data.Token == "" {
		return "", &Error{Kind: KindServer, Op: "login", Message: "Login response did not include a token."}
	}
	return result.Data.Token, nil
}

// Register creates an account. The caller logs in separately.
func (c *Client) Register(ctx context.Context, form model.RegisterForm) error {
	return c.doRequest(ctx, call{
		op: "register", method: http.MethodPost, path: "/api/register",
		body: form,
	})
}

func (c *Client) Logout(ctx context.Context) error {
	return c.doRequest(ctx, call{
		op: "logout", method: http.MethodPost, path: "/api/logout", auth: authRequired,
	})
}

// Profile returns the current user from /api/profile.
func (c *Client) Profile(ctx context.Context) (*model.User, error) {
	var result struct {
		Data struct {
			User *model.User `json:"user"`
		} `json:"data"`
	}
	err := c.doRequest(ctx, call{
		op: "profile", method: http.MethodGet, path: "/api/profile", auth: authRequired,
		out: &result,
	})
	if err != nil {
		return nil, err
	}
	if result.Data.User == nil {
		return nil, &Error{Kind: KindServer, Op: "profile", Message: "Profile response did not include a user."}
	}
	return result.Data.User, nil
}

// CurrentUser returns the current user from /api/user.
func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	var user model.User
	err := c.doRequest(ctx, call{
		op: "current user", method: http.MethodGet, path: "/api/user", auth: authRequired,
		out: &user,
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateUser(ctx context.Context, upd model.ProfileUpdate) error {
	return c.doRequest(ctx, call{
		op: "update user", method: http.MethodPut, path: "/api/user/update", auth: authRequired,
		body: upd,
	})
}

func (c *Client) DeleteUser(ctx context.Context) error {
	return c.doRequest(ctx, call{
		op: "delete user", method: http.MethodDelete, path: "/api/user/delete", auth: authRequired,
	})
}

func (c *Client) ListThreads(ctx context.Context) ([]model.Thread, error) {
	return c.listThreads(ctx, "list threads", "/api/threads")
}

// ListMyThreads lists threads authored by the current user.
func (c *Client) ListMyThreads(ctx context.Context) ([]model.Thread, error) {
	return c.listThreads(ctx, "list my threads", "/api/my-threads")
}

func (c *Client) listThreads(ctx context.Context, op, path string) ([]model.Thread, error) {
	var result struct {
		Threads []model.Thread `json:"threads"`
	}
	err := c.doRequest(ctx, call{
		op: op, method: http.MethodGet, path: path, auth: authRequired,
		out: &result,
	})
	if err != nil {
		return nil, err
	}
	return result.Threads, nil
}

// CreateThread creates a thread. The returned thread is nil when the
// server does not echo it back.
func (c *Client) CreateThread(ctx context.Context, title, content string) (*model.Thread, error) {
	var result struct {
		Thread *model.Thread `json:"thread"`
	}
	err := c.doRequest(ctx, call{
		op: "create thread", method: http.MethodPost, path: "/api/threads", auth: authRequired,
		body: map[string]string{"title": title, "content": content},
		out:  &result,
	})
	if err != nil {
		return nil, err
	}
	return result.Thread, nil
}

func (c *Client) DeleteThread(ctx context.Context, id int64) error {
	return c.doRequest(ctx, call{
		op: "delete thread", method: http.MethodDelete, path: fmt.Sprintf("/api/threads/%d", id), auth: authRequired,
	})
}

func (c *Client) ListResponses(ctx context.Context, threadID int64) ([]model.Response, error) {
	var result struct {
		Responses []model.Response `json:"responses"`
	}
	err := c.doRequest(ctx, call{
		op: "list responses", method: http.MethodGet, path: fmt.Sprintf("/api/responses/%d", threadID), auth: authRequired,
		out: &result,
	})
	if err != nil {
		return nil, err
	}
	return result.Responses, nil
}

// ResponseAuthor resolves the author of a single response.
func (c *Client) ResponseAuthor(ctx context.Context, responseID int64) (*model.User, error) {
	var result struct {
		User *model.User `json:"user"`
	}
	err := c.doRequest(ctx, call{
		op: "response author", method: http.MethodGet, path: fmt.Sprintf("/api/responses/%d/user", responseID), auth: authRequired,
		out: &result,
	})
	if err != nil {
		return nil, err
	}
	if result.User == nil {
		return nil, &Error{Kind: KindServer, Op: "response author", Message: "Author not found."}
	}
	return result.User, nil
}

func (c *Client) CreateResponse(ctx context.Context, threadID int64, content string) error {
	return c.doRequest(ctx, call{
		op: "create response", method: http.MethodPost, path: "/api/responses", auth: authRequired,
		body: map[string]any{"content": content, "thread_id": threadID},
	})
}

// Vote likes (up) or dislikes a response.
func (c *Client) Vote(ctx context.Context, responseID int64, up bool) error {
	return c.doRequest(ctx, call{
		op: "vote", method: http.MethodPost, path: fmt.Sprintf("/api/responses/%d/vote", responseID), auth: authRequired,
		body: map[string]bool{"action": up},
	})
}

// ListUsers does not require a token.
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var result struct {
		Users []model.User `json:"users"`
	}
	err := c.doRequest(ctx, call{
		op: "list users", method: http.MethodGet, path: "/api/users/getAll",
		out: &result,
	})
	if err != nil {
		return nil, err
	}
	return result.Users, nil
}

// UpdateRole sets a user's role and returns the role the server stored.
func (c *Client) UpdateRole(ctx context.Context, userID int64, role int) (int, error) {
	var result struct {
		Role *int `json:"role"`
	}
	err := c.doRequest(ctx, call{
		op: "update role", method: http.MethodPut, path: "/api/users/updateRole", auth: authRequired,
		body: map[string]any{"user_id": userID, "role": role},
		out:  &result,
	})
	if err != nil {
		return 0, err
	}
	if result.Role == nil {
		return 0, &Error{Kind: KindServer, Op: "update role", Message: "Role update response did not include a role."}
	}
	return *result.Role, nil
}

// RateUser rates a user and returns the rating the server reports, or the
// submitted value when the response omits it.
func (c *Client) RateUser(ctx context.Context, userID int64, value int) (float64, error) {
	var result struct {
		Rating *struct {
			Rating *float64 `json:"rating"`
		} `json:"rating"`
	}
	err := c.doRequest(ctx, call{
		op: "rate user", method: http.MethodPost, path: "/api/uratings/rate", auth: authRequired,
		body: map[string]any{"user_id": userID, "rating": value},
		out:  &result,
	})
	if err != nil {
		return 0, err
	}
	if result.Rating != nil && result.Rating.Rating != nil {
		return *result.Rating.Rating, nil
	}
	return float64(value), nil
}

// Notifications returns the notification list and the unread count.
func (c *Client) Notifications(ctx context.Context) ([]model.Notification, int, error) {
	var result struct {
		Notifications []model.Notification `json:"notifications"`
		UnreadCount   int                  `json:"unreadCount"`
	}
	err := c.doRequest(ctx, call{
		op: "notifications", method: http.MethodGet, path: "/api/notifications", auth: authOptional,
		out: &result,
	})
	if err != nil {
		return nil, 0, err
	}
	return result.Notifications, result.UnreadCount, nil
}

func (c *Client) UnreadVotes(ctx context.Context) ([]model.UnreadVote, error) {
	var result struct {
		UnreadVotes []model.UnreadVote `json:"unreadVotes"`
	}
	err := c.doRequest(ctx, call{
		op: "unread votes", method: http.MethodGet, path: "/api/unread-votes", auth: authOptional,
		out: &result,
	})
	if err != nil {
		return nil, err
	}
	return result.UnreadVotes, nil
}
