package httpapp

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/discutex/discutex/internal/session"
)

const (
	cookieName      = "discutex_session"
	sidKey          = "sid"
	votesClearedKey = "votes_cleared"
	flashNotice     = "notice"
	flashError      = "error"
)

type browserKey struct{}

// browser is one visitor: the signed cookie and the server-side token
// session it points to.
type browser struct {
	cookie *sessions.Session
	tokens *session.Session
}

func browserFrom(ctx context.Context) *browser {
	b, _ := ctx.Value(browserKey{}).(*browser)
	return b
}

// withBrowser makes sure every visitor carries a session id and attaches
// the matching token session to the request context.
func (s *Server) withBrowser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs, err := s.cookies.Get(r, cookieName)
		if err != nil {
			// Unreadable cookie, e.g. after a secret rotation. Get still
			// returns a fresh session.
			s.log.DebugContext(r.Context(), "discarding session cookie", "error", err)
		}
		sid, _ := cs.Values[sidKey].(string)
		if sid == "" {
			sid = uuid.NewString()
			cs.Values[sidKey] = sid
			if err := cs.Save(r, w); err != nil {
				s.log.ErrorContext(r.Context(), "save session cookie", "error", err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
		}
		b := &browser{
			cookie: cs,
			tokens: session.ForBrowser(s.backend, sid, s.cfg.SessionTTL),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), browserKey{}, b)))
	})
}

func (s *Server) addFlash(w http.ResponseWriter, r *http.Request, kind, text string) {
	if text == "" {
		return
	}
	b := browserFrom(r.Context())
	b.cookie.AddFlash(text, kind)
	s.saveCookie(w, r, b)
}

// takeFlashes pops pending alerts. Must run before the response is written.
func (s *Server) takeFlashes(w http.ResponseWriter, r *http.Request) (notices, errs []string) {
	b := browserFrom(r.Context())
	pending := false
	for _, f := range b.cookie.Flashes(flashNotice) {
		if text, ok := f.(string); ok {
			notices = append(notices, text)
		}
		pending = true
	}
	for _, f := range b.cookie.Flashes(flashError) {
		if text, ok := f.(string); ok {
			errs = append(errs, text)
		}
		pending = true
	}
	if pending {
		s.saveCookie(w, r, b)
	}
	return notices, errs
}

// setFlag and takeFlag store one-shot booleans in the cookie.
func (s *Server) setFlag(w http.ResponseWriter, r *http.Request, key string) {
	b := browserFrom(r.Context())
	b.cookie.Values[key] = true
	s.saveCookie(w, r, b)
}

func (s *Server) takeFlag(w http.ResponseWriter, r *http.Request, key string) bool {
	b := browserFrom(r.Context())
	set, _ := b.cookie.Values[key].(bool)
	if set {
		delete(b.cookie.Values, key)
		s.saveCookie(w, r, b)
	}
	return set
}

func (s *Server) saveCookie(w http.ResponseWriter, r *http.Request, b *browser) {
	if err := b.cookie.Save(r, w); err != nil {
		s.log.ErrorContext(r.Context(), "save session cookie", "error", err)
	}
}
