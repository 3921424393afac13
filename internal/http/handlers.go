package httpapp

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/discutex/discutex/internal/model"
	"github.com/discutex/discutex/internal/nav"
	"github.com/discutex/discutex/internal/rate"
	"github.com/discutex/discutex/internal/views"
)

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	v := views.NewWelcome(s.deps(r, &nav.Recorder{}))
	v.Mount(r.Context())
	defer v.Close()

	data := s.baseTemplateData(w, r, "Welcome")
	data["View"] = v.State()
	s.render(w, r, s.templates.Welcome, http.StatusOK, data)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	data := s.baseTemplateData(w, r, "Login")
	data["Email"] = ""
	s.render(w, r, s.templates.Login, http.StatusOK, data)
}

func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, rate.ActionLogin, s.cfg.RateLimits.LoginPerMinute) {
		return
	}
	rec := &nav.Recorder{}
	v := views.NewLogin(s.deps(r, rec))
	v.Mount(r.Context())
	defer v.Close()

	email := r.FormValue("email")
	if err := v.Submit(r.Context(), email, r.FormValue("password")); err != nil {
		data := s.baseTemplateData(w, r, "Login")
		data["Error"] = failureText(err)
		data["Email"] = email
		s.render(w, r, s.templates.Login, http.StatusUnprocessableEntity, data)
		return
	}
	s.addFlash(w, r, flashNotice, views.NoticeLoggedIn)
	redirectAfter(w, r, rec, string(nav.Dashboard))
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	data := s.baseTemplateData(w, r, "Register")
	data["Form"] = model.RegisterForm{}
	s.render(w, r, s.templates.Register, http.StatusOK, data)
}

func (s *Server) handleRegisterSubmit(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, rate.ActionRegister, s.cfg.RateLimits.RegisterPerMinute) {
		return
	}
	rec := &nav.Recorder{}
	v := views.NewRegister(s.deps(r, rec))
	v.Mount(r.Context())
	defer v.Close()

	form := model.RegisterForm{
		Name:                 r.FormValue("name"),
		Email:                r.FormValue("email"),
		Username:             r.FormValue("username"),
		Password:             r.FormValue("password"),
		PasswordConfirmation: r.FormValue("password_confirmation"),
	}
	if err := v.Submit(r.Context(), form); err != nil {
		data := s.baseTemplateData(w, r, "Register")
		data["Error"] = failureText(err)
		form.Password, form.PasswordConfirmation = "", ""
		data["Form"] = form
		s.render(w, r, s.templates.Register, http.StatusUnprocessableEntity, data)
		return
	}
	s.addFlash(w, r, flashNotice, views.NoticeRegistered)
	redirectAfter(w, r, rec, string(nav.Login))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	v := views.NewDashboard(s.deps(r, &nav.Recorder{}))
	v.Mount(r.Context())
	defer v.Close()

	q := r.URL.Query()
	if q.Get("notifications") == "open" {
		v.ToggleNotifications()
	}
	if q.Get("edit") == "1" {
		v.Edit()
	}
	if s.takeFlag(w, r, votesClearedKey) {
		v.ClearVotes()
	}
	s.renderDashboard(w, r, v, http.StatusOK, "")
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, v *views.Dashboard, status int, actionErr string) {
	data := s.baseTemplateData(w, r, "Dashboard")
	data["View"] = v.State()
	data["ActionError"] = actionErr
	data["NoUnreadVotes"] = views.NoUnreadVotesMessage
	s.render(w, r, s.templates.Dashboard, status, data)
}

// handleProfileSave re-renders the edit form on failure so the draft
// survives.
func (s *Server) handleProfileSave(w http.ResponseWriter, r *http.Request) {
	v := views.NewDashboard(s.deps(r, &nav.Recorder{}))
	v.Mount(r.Context())
	defer v.Close()

	v.Edit()
	upd := model.ProfileUpdate{
		Name:     r.FormValue("name"),
		Email:    r.FormValue("email"),
		Username: r.FormValue("username"),
	}
	if err := v.Save(r.Context(), upd); err != nil {
		s.renderDashboard(w, r, v, http.StatusUnprocessableEntity, failureText(err))
		return
	}
	s.addFlash(w, r, flashNotice, views.NoticeProfileUpdated)
	http.Redirect(w, r, string(nav.Dashboard), http.StatusSeeOther)
}

func (s *Server) handleClearVotes(w http.ResponseWriter, r *http.Request) {
	s.setFlag(w, r, votesClearedKey)
	http.Redirect(w, r, string(nav.Dashboard), http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	rec := &nav.Recorder{}
	v := views.NewDashboard(s.deps(r, rec))
	defer v.Close()

	if err := v.Logout(r.Context()); err != nil {
		s.addFlash(w, r, flashError, failureText(err))
		http.Redirect(w, r, string(nav.Dashboard), http.StatusSeeOther)
		return
	}
	redirectAfter(w, r, rec, string(nav.Login))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	rec := &nav.Recorder{}
	v := views.NewDashboard(s.deps(r, rec))
	defer v.Close()

	if err := v.DeleteAccount(r.Context()); err != nil {
		s.addFlash(w, r, flashError, failureText(err))
		http.Redirect(w, r, string(nav.Dashboard), http.StatusSeeOther)
		return
	}
	redirectAfter(w, r, rec, string(nav.Welcome))
}

func (s *Server) handleThreads(w http.ResponseWriter, r *http.Request) {
	v := views.NewThreads(s.deps(r, &nav.Recorder{}))
	v.Mount(r.Context())
	defer v.Close()

	v.SetQuery(r.URL.Query().Get("q"))
	data := s.baseTemplateData(w, r, "Threads")
	data["View"] = v.State()
	data["NoThreads"] = views.NoThreadsMessage
	s.render(w, r, s.templates.Threads, http.StatusOK, data)
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	gs, ok := nav.ParseGroupState(r.URL.Query())
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	v := views.NewGroup(s.deps(r, &nav.Recorder{}), gs)
	v.Mount(r.Context())
	defer v.Close()

	data := s.baseTemplateData(w, r, "Discussion")
	data["View"] = v.State()
	data["Thread"] = gs
	data["SelfURL"] = nav.URL(nav.Group, gs)
	data["NoResponses"] = views.NoResponsesMessage
	s.render(w, r, s.templates.Group, http.StatusOK, data)
}

// groupFromForm reads the thread carried in hidden form fields.
func groupFromForm(r *http.Request) (nav.GroupState, bool) {
	if err := r.ParseForm(); err != nil {
		return nav.GroupState{}, false
	}
	return nav.ParseGroupState(r.PostForm)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	gs, ok := groupFromForm(r)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	v := views.NewGroup(s.deps(r, &nav.Recorder{}), gs)
	v.SkipRefetch()
	defer v.Close()

	if err := v.Send(r.Context(), r.PostFormValue("content")); err != nil {
		s.addFlash(w, r, flashError, failureText(err))
	}
	http.Redirect(w, r, nav.URL(nav.Group, gs), http.StatusSeeOther)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, rate.ActionVote, s.cfg.RateLimits.VotePerMinute) {
		return
	}
	gs, ok := groupFromForm(r)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	v := views.NewGroup(s.deps(r, &nav.Recorder{}), gs)
	v.SkipRefetch()
	v.Mount(r.Context())
	defer v.Close()

	responseID := parseInt64Default(r.PostFormValue("response_id"), 0)
	up := r.PostFormValue("action") != "down"
	if err := v.Vote(r.Context(), responseID, up); err != nil {
		s.addFlash(w, r, flashError, failureText(err))
	} else {
		s.addFlash(w, r, flashNotice, views.NoticeVoteRegistered)
	}
	http.Redirect(w, r, nav.URL(nav.Group, gs), http.StatusSeeOther)
}

func (s *Server) handleMyThreads(w http.ResponseWriter, r *http.Request) {
	v := views.NewMyThreads(s.deps(r, &nav.Recorder{}))
	v.Mount(r.Context())
	defer v.Close()

	data := s.baseTemplateData(w, r, "My Threads")
	data["View"] = v.State()
	data["NoThreads"] = views.NoThreadsMessage
	s.render(w, r, s.templates.MyThreads, http.StatusOK, data)
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	v := views.NewMyThreads(s.deps(r, &nav.Recorder{}))
	defer v.Close()

	id := parseInt64Default(chi.URLParam(r, "id"), 0)
	if err := v.Delete(r.Context(), id); err != nil {
		s.addFlash(w, r, flashError, failureText(err))
	} else {
		s.addFlash(w, r, flashNotice, views.NoticeThreadDeleted)
	}
	http.Redirect(w, r, string(nav.MyThreads), http.StatusSeeOther)
}

func (s *Server) handleCreateThreadPage(w http.ResponseWriter, r *http.Request) {
	data := s.baseTemplateData(w, r, "Create Thread")
	data["ThreadTitle"] = ""
	data["Content"] = ""
	s.render(w, r, s.templates.CreateThread, http.StatusOK, data)
}

func (s *Server) handleCreateThreadSubmit(w http.ResponseWriter, r *http.Request) {
	rec := &nav.Recorder{}
	v := views.NewCreateThread(s.deps(r, rec))
	v.Mount(r.Context())
	defer v.Close()

	title, content := r.FormValue("title"), r.FormValue("content")
	if err := v.Submit(r.Context(), title, content); err != nil {
		data := s.baseTemplateData(w, r, "Create Thread")
		data["Error"] = failureText(err)
		data["ThreadTitle"] = title
		data["Content"] = content
		s.render(w, r, s.templates.CreateThread, http.StatusUnprocessableEntity, data)
		return
	}
	s.addFlash(w, r, flashNotice, views.NoticeThreadCreated)
	redirectAfter(w, r, rec, string(nav.MyThreads))
}

func (s *Server) handleUserRatings(w http.ResponseWriter, r *http.Request) {
	v := views.NewUserRatings(s.deps(r, &nav.Recorder{}))
	v.Mount(r.Context())
	defer v.Close()

	q := r.URL.Query()
	v.SetQuery(q.Get("q"))
	// ?preview=<stars>&user=<id> shows the hover preview without scripts.
	if stars := parseIntDefault(q.Get("preview"), 0); stars > 0 {
		v.Hover(parseInt64Default(q.Get("user"), 0), stars)
	}
	data := s.baseTemplateData(w, r, "User Ratings")
	data["View"] = v.State()
	data["NoUsers"] = views.NoUsersMessage
	s.render(w, r, s.templates.UserRatings, http.StatusOK, data)
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, rate.ActionRate, s.cfg.RateLimits.RatePerMinute) {
		return
	}
	v := views.NewUserRatings(s.deps(r, &nav.Recorder{}))
	defer v.Close()

	id := parseInt64Default(chi.URLParam(r, "id"), 0)
	stars := parseIntDefault(r.FormValue("stars"), 0)
	if err := v.Rate(r.Context(), id, stars); err != nil {
		s.addFlash(w, r, flashError, failureText(err))
	}
	http.Redirect(w, r, backTo(r, string(nav.UserRatings)), http.StatusSeeOther)
}

func (s *Server) handleAdminPanel(w http.ResponseWriter, r *http.Request) {
	v := views.NewAdminPanel(s.deps(r, &nav.Recorder{}))
	v.Mount(r.Context())
	defer v.Close()

	v.SetQuery(r.URL.Query().Get("q"))
	data := s.baseTemplateData(w, r, "Admin Panel")
	data["View"] = v.State()
	data["NoUsers"] = views.NoUsersMessage
	s.render(w, r, s.templates.AdminPanel, http.StatusOK, data)
}

func (s *Server) handleToggleRole(w http.ResponseWriter, r *http.Request) {
	v := views.NewAdminPanel(s.deps(r, &nav.Recorder{}))
	v.Mount(r.Context())
	defer v.Close()

	id := parseInt64Default(chi.URLParam(r, "id"), 0)
	if err := v.ToggleRole(r.Context(), id); err != nil {
		s.addFlash(w, r, flashError, failureText(err))
	}
	http.Redirect(w, r, backTo(r, string(nav.AdminPanel)), http.StatusSeeOther)
}

// backTo keeps the search query across a form post.
func backTo(r *http.Request, path string) string {
	if q := strings.TrimSpace(r.FormValue("q")); q != "" {
		return path + "?q=" + url.QueryEscape(q)
	}
	return path
}
