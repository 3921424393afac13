package httpapp

import (
	"bytes"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/discutex/discutex/internal/client"
	"github.com/discutex/discutex/internal/config"
	"github.com/discutex/discutex/internal/nav"
	"github.com/discutex/discutex/internal/observability"
	"github.com/discutex/discutex/internal/rate"
	"github.com/discutex/discutex/internal/store"
	"github.com/discutex/discutex/internal/views"
)

type Server struct {
	backend    store.Backend
	limiter    rate.Limiter
	cfg        config.Config
	log        *slog.Logger
	cookies    *sessions.CookieStore
	httpClient *http.Client
	templates  *Templates
	router     chi.Router
}

func NewServer(backend store.Backend, limiter rate.Limiter, cfg config.Config, logger *slog.Logger) (*Server, error) {
	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}

	cookies := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}

	s := &Server{
		backend: backend,
		limiter: limiter,
		cfg:     cfg,
		log:     logger,
		cookies: cookies,
		httpClient: &http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: observability.InstrumentTransport(http.DefaultTransport),
		},
		templates: tmpl,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.logRequests)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/favicon.svg", s.serveFavicon)

	r.Group(func(r chi.Router) {
		r.Use(s.withBrowser)
		r.Use(noStore)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, string(nav.Welcome), http.StatusFound)
		})
		r.Get(string(nav.Welcome), s.handleWelcome)
		r.Get(string(nav.Login), s.handleLoginPage)
		r.Post(string(nav.Login), s.handleLoginSubmit)
		r.Get(string(nav.Register), s.handleRegisterPage)
		r.Post(string(nav.Register), s.handleRegisterSubmit)

		r.Get(string(nav.Dashboard), s.handleDashboard)
		r.Post(string(nav.Dashboard)+"/profile", s.handleProfileSave)
		r.Post(string(nav.Dashboard)+"/clear-votes", s.handleClearVotes)
		r.Post(string(nav.Dashboard)+"/delete", s.handleDeleteAccount)
		r.Post("/logout", s.handleLogout)

		r.Get(string(nav.Threads), s.handleThreads)
		r.Get(string(nav.Group), s.handleGroup)
		r.Post(string(nav.Group)+"/responses", s.handleSend)
		r.Post(string(nav.Group)+"/votes", s.handleVote)
		r.Get(string(nav.MyThreads), s.handleMyThreads)
		r.Post(string(nav.MyThreads)+"/{id}/delete", s.handleDeleteThread)
		r.Get(string(nav.CreateThread), s.handleCreateThreadPage)
		r.Post(string(nav.CreateThread), s.handleCreateThreadSubmit)

		r.Get(string(nav.UserRatings), s.handleUserRatings)
		r.Post(string(nav.UserRatings)+"/{id}/rate", s.handleRate)
		r.Get(string(nav.AdminPanel), s.handleAdminPanel)
		r.Post(string(nav.AdminPanel)+"/{id}/role", s.handleToggleRole)

		r.NotFound(s.handleNotFound)
	})
	return r
}

// logRequests tags the request context with the chi request id and records
// one log line and the page metrics per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := observability.WithRequestID(r.Context(), chimiddleware.GetReqID(r.Context()))
		r = r.WithContext(ctx)
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		elapsed := time.Since(start)
		observability.PageRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		observability.PageRequestDuration.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())
		s.log.InfoContext(ctx, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		next.ServeHTTP(w, r)
	})
}

// deps wires a view to the browser's session. rec receives the view's
// navigation so the handler can redirect after an action.
func (s *Server) deps(r *http.Request, rec *nav.Recorder) views.Deps {
	b := browserFrom(r.Context())
	return views.Deps{
		API:               client.New(s.cfg.APIBaseURL, b.tokens, client.WithHTTPClient(s.httpClient)),
		Session:           b.tokens,
		Nav:               rec,
		Logger:            s.log,
		EnrichConcurrency: s.cfg.EnrichConcurrency,
	}
}

func (s *Server) baseTemplateData(w http.ResponseWriter, r *http.Request, title string) map[string]any {
	data := map[string]any{"Title": title}
	b := browserFrom(r.Context())
	if b == nil {
		return data
	}
	data["Authenticated"] = b.tokens.Authenticated(r.Context())
	notices, errs := s.takeFlashes(w, r)
	data["Notices"] = notices
	data["Errors"] = errs
	return data
}

// render executes the page into a buffer so a template failure never sends
// a partial page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, t *template.Template, status int, data map[string]any) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		s.log.ErrorContext(r.Context(), "render template", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// redirectAfter sends the browser where the view navigated, or to fallback
// when it did not navigate.
func redirectAfter(w http.ResponseWriter, r *http.Request, rec *nav.Recorder, fallback string) {
	target := rec.URL()
	if target == "" {
		target = fallback
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) allowRateLimit(w http.ResponseWriter, r *http.Request, action rate.Action, limit int) bool {
	if limit <= 0 || s.limiter == nil {
		return true
	}
	ok, retry := s.limiter.Allow(rate.Key(action, clientIP(r)), limit, time.Minute)
	if ok {
		return true
	}
	observability.RateLimited.WithLabelValues(string(action)).Inc()
	s.log.WarnContext(r.Context(), "rate limited", "action", action, "retry_after", retry)
	w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
	data := s.baseTemplateData(w, r, "Slow down")
	data["RetryAfter"] = int(retry.Seconds())
	s.render(w, r, s.templates.RateLimited, http.StatusTooManyRequests, data)
	return false
}

// clientIP relies on chi's RealIP having already rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// failureText is the alert for an action error.
func failureText(err error) string {
	var f *views.Failure
	if errors.As(err, &f) {
		return f.Text
	}
	return client.Message(err, "Something went wrong.")
}

func (s *Server) serveFavicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(faviconSVG)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, s.templates.NotFound, http.StatusNotFound, s.baseTemplateData(w, r, "Not found"))
}

func parseInt64Default(value string, def int64) int64 {
	if value == "" {
		return def
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	return def
}

func parseIntDefault(value string, def int) int {
	if value == "" {
		return def
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return def
}
