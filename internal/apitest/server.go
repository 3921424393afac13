// Package apitest is an in-memory implementation of the Discutex REST API.
// It backs client, view and frontend tests and the local development API.
package apitest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/discutex/discutex/internal/model"
)

type account struct {
	user     model.User
	password string
}

type Server struct {
	mu            sync.Mutex
	accounts      map[int64]*account
	tokens        map[string]int64
	threads       []model.Thread
	responses     []model.Response
	votes         []model.Vote
	ratings       []model.Rating
	notifications map[int64][]model.Notification
	nextID        int64

	embedAuthors bool
	failAuthor   map[int64]bool
	roleOverride func(requested int) int
	hook         func(r *http.Request)
	requests     []string
	now          func() time.Time
}

func New() *Server {
	return &Server{
		accounts:      make(map[int64]*account),
		tokens:        make(map[string]int64),
		notifications: make(map[int64][]model.Notification),
		failAuthor:    make(map[int64]bool),
		now:           time.Now,
	}
}

// EmbedAuthors makes response lists carry the author inline. By default
// they do not, and clients resolve authors per response.
func (s *Server) EmbedAuthors(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embedAuthors = on
}

// FailAuthorLookup makes the author endpoint for responseID answer 500.
func (s *Server) FailAuthorLookup(responseID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAuthor[responseID] = true
}

// OverrideRole replaces the role stored by updateRole with fn(requested).
func (s *Server) OverrideRole(fn func(requested int) int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roleOverride = fn
}

// OnRequest registers fn to run before every request is handled. It runs
// outside the server lock, so it may block.
func (s *Server) OnRequest(fn func(r *http.Request)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = fn
}

// Requests returns "METHOD /path" for every request received so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) AddUser(name, username, email, password string, role int) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	u := model.User{ID: s.nextID, Name: name, Username: username, Email: email, Role: role}
	s.accounts[u.ID] = &account{user: u, password: password}
	return u
}

// IssueToken logs userID in and returns the bearer token.
func (s *Server) IssueToken(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueTokenLocked(userID)
}

func (s *Server) issueTokenLocked(userID int64) string {
	tok := uuid.NewString()
	s.tokens[tok] = userID
	return tok
}

func (s *Server) AddThread(userID int64, title, content string) model.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addThreadLocked(userID, title, content)
}

func (s *Server) addThreadLocked(userID int64, title, content string) model.Thread {
	s.nextID++
	t := model.Thread{ID: s.nextID, Title: title, Content: content, UserID: userID}
	s.threads = append(s.threads, t)
	return t
}

func (s *Server) AddResponse(threadID, userID int64, content string) model.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addResponseLocked(threadID, userID, content)
}

func (s *Server) addResponseLocked(threadID, userID int64, content string) model.Response {
	s.nextID++
	r := model.Response{ID: s.nextID, Content: content, ThreadID: threadID, UserID: userID, CreatedAt: s.now().UTC()}
	s.responses = append(s.responses, r)
	return r
}

func (s *Server) AddNotification(userID int64, message string) model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addNotificationLocked(userID, message)
}

func (s *Server) addNotificationLocked(userID int64, message string) model.Notification {
	s.nextID++
	n := model.Notification{ID: s.nextID, Message: message, CreatedAt: s.now().UTC()}
	s.notifications[userID] = append(s.notifications[userID], n)
	return n
}

// User returns the stored user with its aggregated rating.
func (s *Server) User(id int64) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return model.User{}, false
	}
	return s.withRatingLocked(acc.user), true
}

func (s *Server) ThreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.threads)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		hook(r)
	}

	if !strings.HasPrefix(r.URL.Path, "/api/") {
		notFound(w)
		return
	}
	s.handleAPI(w, r)
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	segments := splitPath(strings.TrimPrefix(r.URL.Path, "/api"))

	switch {
	case len(segments) == 1 && segments[0] == "login":
		if r.Method == http.MethodPost {
			s.handleLogin(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "register":
		if r.Method == http.MethodPost {
			s.handleRegister(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "logout":
		if r.Method == http.MethodPost {
			s.handleLogout(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "profile":
		if r.Method == http.MethodGet {
			s.handleProfile(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "user":
		if r.Method == http.MethodGet {
			s.handleCurrentUser(w, r)
			return
		}
	case len(segments) == 2 && segments[0] == "user" && segments[1] == "update":
		if r.Method == http.MethodPut {
			s.handleUpdateUser(w, r)
			return
		}
	case len(segments) == 2 && segments[0] == "user" && segments[1] == "delete":
		if r.Method == http.MethodDelete {
			s.handleDeleteUser(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "threads":
		if r.Method == http.MethodGet {
			s.handleListThreads(w, r, false)
			return
		}
		if r.Method == http.MethodPost {
			s.handleCreateThread(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "my-threads":
		if r.Method == http.MethodGet {
			s.handleListThreads(w, r, true)
			return
		}
	case len(segments) == 2 && segments[0] == "threads":
		if r.Method == http.MethodDelete {
			s.handleDeleteThread(w, r, segments[1])
			return
		}
	case len(segments) == 1 && segments[0] == "responses":
		if r.Method == http.MethodPost {
			s.handleCreateResponse(w, r)
			return
		}
	case len(segments) == 2 && segments[0] == "responses":
		if r.Method == http.MethodGet {
			s.handleListResponses(w, r, segments[1])
			return
		}
	case len(segments) == 3 && segments[0] == "responses" && segments[2] == "user":
		if r.Method == http.MethodGet {
			s.handleResponseAuthor(w, r, segments[1])
			return
		}
	case len(segments) == 3 && segments[0] == "responses" && segments[2] == "vote":
		if r.Method == http.MethodPost {
			s.handleVote(w, r, segments[1])
			return
		}
	case len(segments) == 2 && segments[0] == "users" && segments[1] == "getAll":
		if r.Method == http.MethodGet {
			s.handleListUsers(w, r)
			return
		}
	case len(segments) == 2 && segments[0] == "users" && segments[1] == "updateRole":
		if r.Method == http.MethodPut {
			s.handleUpdateRole(w, r)
			return
		}
	case len(segments) == 2 && segments[0] == "uratings" && segments[1] == "rate":
		if r.Method == http.MethodPost {
			s.handleRate(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "notifications":
		if r.Method == http.MethodGet {
			s.handleNotifications(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "unread-votes":
		if r.Method == http.MethodGet {
			s.handleUnreadVotes(w, r)
			return
		}
	}

	notFound(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if strings.EqualFold(acc.user.Email, req.Email) && acc.password == req.Password {
			tok := s.issueTokenLocked(acc.user.ID)
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{"token": tok}})
			return
		}
	}
	writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var form model.RegisterForm
	if err := readJSON(r.Body, &form); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	switch {
	case strings.TrimSpace(form.Name) == "" || strings.TrimSpace(form.Email) == "" || strings.TrimSpace(form.Username) == "":
		writeMessage(w, http.StatusUnprocessableEntity, "Name, email and username are required.")
		return
	case len(form.Password) < 8:
		writeMessage(w, http.StatusUnprocessableEntity, "The password must be at least 8 characters.")
		return
	case form.Password != form.PasswordConfirmation:
		writeMessage(w, http.StatusUnprocessableEntity, "The password confirmation does not match.")
		return
	}

	s.mu.Lock()
	for _, acc := range s.accounts {
		if strings.EqualFold(acc.user.Email, form.Email) {
			s.mu.Unlock()
			writeMessage(w, http.StatusUnprocessableEntity, "The email has already been taken.")
			return
		}
	}
	s.mu.Unlock()

	u := s.AddUser(form.Name, form.Username, form.Email, form.Password, model.RoleMember)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "User registered successfully", "user": u})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAuth(w, r); !ok {
		return
	}
	s.mu.Lock()
	delete(s.tokens, bearer(r))
	s.mu.Unlock()
	writeMessage(w, http.StatusOK, "Logged out")
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"user": user}})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	var upd model.ProfileUpdate
	if err := readJSON(r.Body, &upd); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(upd.Name) == "" || strings.TrimSpace(upd.Email) == "" || strings.TrimSpace(upd.Username) == "" {
		writeMessage(w, http.StatusUnprocessableEntity, "Name, email and username are required.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accounts[user.ID]
	acc.user.Name = upd.Name
	acc.user.Email = upd.Email
	acc.user.Username = upd.Username
	writeJSON(w, http.StatusOK, map[string]any{"message": "Profile updated", "user": s.withRatingLocked(acc.user)})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, user.ID)
	for tok, id := range s.tokens {
		if id == user.ID {
			delete(s.tokens, tok)
		}
	}
	writeMessage(w, http.StatusOK, "Account deleted")
}

func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request, mine bool) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	threads := make([]model.Thread, 0, len(s.threads))
	for _, t := range s.threads {
		if mine && t.UserID != user.ID {
			continue
		}
		if acc, ok := s.accounts[t.UserID]; ok {
			author := acc.user
			t.Author = &author
		}
		threads = append(threads, t)
	}
	writeJSON(w, http.StatusOK, map[string]any{"threads": threads})
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeMessage(w, http.StatusUnprocessableEntity, "The title field is required.")
		return
	}
	t := s.AddThread(user.ID, req.Title, req.Content)
	writeJSON(w, http.StatusCreated, map[string]any{"thread": t})
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request, idStr string) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		notFound(w)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.threads {
		if t.ID != id {
			continue
		}
		if t.UserID != user.ID && !user.IsAdmin() {
			writeMessage(w, http.StatusForbidden, "You can only delete your own threads.")
			return
		}
		s.threads = append(s.threads[:i], s.threads[i+1:]...)
		writeMessage(w, http.StatusOK, "Thread deleted")
		return
	}
	writeMessage(w, http.StatusNotFound, "Thread not found")
}

func (s *Server) handleListResponses(w http.ResponseWriter, r *http.Request, idStr string) {
	if _, ok := s.requireAuth(w, r); !ok {
		return
	}
	threadID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		notFound(w)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Response, 0)
	for _, resp := range s.responses {
		if resp.ThreadID != threadID {
			continue
		}
		resp.Likes, resp.Dislikes = s.tallyLocked(resp.ID)
		if s.embedAuthors {
			if acc, ok := s.accounts[resp.UserID]; ok {
				author := acc.user
				resp.User = &author
			}
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, map[string]any{"responses": out})
}

func (s *Server) handleResponseAuthor(w http.ResponseWriter, r *http.Request, idStr string) {
	if _, ok := s.requireAuth(w, r); !ok {
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		notFound(w)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAuthor[id] {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "Internal Server Error")
		return
	}
	for _, resp := range s.responses {
		if resp.ID != id {
			continue
		}
		acc, ok := s.accounts[resp.UserID]
		if !ok {
			writeMessage(w, http.StatusNotFound, "User not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": acc.user})
		return
	}
	writeMessage(w, http.StatusNotFound, "Response not found")
}

func (s *Server) handleCreateResponse(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	var req struct {
		Content  string `json:"content"`
		ThreadID int64  `json:"thread_id"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeMessage(w, http.StatusUnprocessableEntity, "The content field is required.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.threadExistsLocked(req.ThreadID) {
		writeMessage(w, http.StatusNotFound, "Thread not found")
		return
	}
	resp := s.addResponseLocked(req.ThreadID, user.ID, req.Content)
	writeJSON(w, http.StatusCreated, map[string]any{"response": resp})
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request, idStr string) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		notFound(w)
		return
	}
	var req struct {
		Action *bool `json:"action"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Action == nil {
		writeError(w, http.StatusUnprocessableEntity, errors.New("action is required"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var target *model.Response
	for i := range s.responses {
		if s.responses[i].ID == id {
			target = &s.responses[i]
			break
		}
	}
	if target == nil {
		writeError(w, http.StatusNotFound, errors.New("Response not found"))
		return
	}
	if target.UserID == user.ID {
		writeError(w, http.StatusForbidden, errors.New("You cannot vote on your own response."))
		return
	}

	// One vote per (response, voter); a repeat vote replaces the earlier one.
	replaced := false
	for i := range s.votes {
		if s.votes[i].ResponseID == id && s.votes[i].VoterID == user.ID {
			s.votes[i].Action = *req.Action
			s.votes[i].Read = false
			replaced = true
			break
		}
	}
	if !replaced {
		s.nextID++
		s.votes = append(s.votes, model.Vote{ID: s.nextID, ResponseID: id, VoterID: user.ID, Action: *req.Action})
	}

	verb := "disliked"
	if *req.Action {
		verb = "liked"
	}
	s.addNotificationLocked(target.UserID, fmt.Sprintf("%s %s your response.", user.Username, verb))
	writeMessage(w, http.StatusOK, "Vote recorded")
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]model.User, 0, len(s.accounts))
	for _, acc := range s.accounts {
		users = append(users, s.withRatingLocked(acc.user))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	if !caller.IsAdmin() {
		writeMessage(w, http.StatusForbidden, "Only administrators can change roles.")
		return
	}
	var req struct {
		UserID int64 `json:"user_id"`
		Role   int   `json:"role"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Role != model.RoleMember && req.Role != model.RoleAdmin {
		writeMessage(w, http.StatusUnprocessableEntity, "Role must be 0 or 1.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, found := s.accounts[req.UserID]
	if !found {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	role := req.Role
	if s.roleOverride != nil {
		role = s.roleOverride(req.Role)
	}
	acc.user.Role = role
	writeJSON(w, http.StatusOK, map[string]any{"message": "Role updated", "role": role})
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	rater, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	var req struct {
		UserID int64 `json:"user_id"`
		Rating int   `json:"rating"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeMessage(w, http.StatusUnprocessableEntity, "The rating must be between 1 and 5.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.accounts[req.UserID]; !found {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	rating := model.Rating{UserID: req.UserID, RaterID: rater.ID, Value: req.Rating}
	replaced := false
	for i := range s.ratings {
		if s.ratings[i].UserID == req.UserID && s.ratings[i].RaterID == rater.ID {
			s.ratings[i] = rating
			replaced = true
			break
		}
	}
	if !replaced {
		s.ratings = append(s.ratings, rating)
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Rating saved", "rating": rating})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.tokens[bearer(r)]
	list := make([]model.Notification, 0)
	unread := 0
	if ok {
		for _, n := range s.notifications[userID] {
			list = append(list, n)
			if !n.Read {
				unread++
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": list, "unreadCount": unread})
}

func (s *Server) handleUnreadVotes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.tokens[bearer(r)]
	out := make([]model.UnreadVote, 0)
	if ok {
		for _, v := range s.votes {
			if v.VoterID != userID || v.Read {
				continue
			}
			uv := model.UnreadVote{ID: v.ID}
			if v.Action {
				uv.Type = 1
			}
			for _, resp := range s.responses {
				if resp.ID == v.ResponseID {
					uv.Response = model.Response{ID: resp.ID, Content: resp.Content, ThreadID: resp.ThreadID, UserID: resp.UserID}
					break
				}
			}
			out = append(out, uv)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"unreadVotes": out})
}

func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	tok := bearer(r)
	if tok == "" {
		writeMessage(w, http.StatusUnauthorized, "Unauthenticated.")
		return model.User{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[tok]
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthenticated.")
		return model.User{}, false
	}
	acc, ok := s.accounts[id]
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthenticated.")
		return model.User{}, false
	}
	return s.withRatingLocked(acc.user), true
}

func (s *Server) withRatingLocked(u model.User) model.User {
	var sum, n int
	for _, rt := range s.ratings {
		if rt.UserID == u.ID {
			sum += rt.Value
			n++
		}
	}
	if n > 0 {
		avg := float64(sum) / float64(n)
		u.Rating = &avg
	}
	return u
}

func (s *Server) tallyLocked(responseID int64) (likes, dislikes int) {
	for _, v := range s.votes {
		if v.ResponseID != responseID {
			continue
		}
		if v.Action {
			likes++
		} else {
			dislikes++
		}
	}
	return likes, dislikes
}

func (s *Server) threadExistsLocked(id int64) bool {
	for _, t := range s.threads {
		if t.ID == id {
			return true
		}
	}
	return false
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func readJSON(body io.ReadCloser, dest any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeMessage answers with {message}; writeError with {error}. The real
// API mixes both shapes.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"message": msg})
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func notFound(w http.ResponseWriter) {
	writeMessage(w, http.StatusNotFound, "not found")
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
