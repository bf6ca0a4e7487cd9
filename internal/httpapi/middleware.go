package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/optiplus/storefront/internal/session"
	"go.uber.org/zap"
)

type ctxKey int

const (
	sessionKey ctxKey = iota
	userIDKey
)

func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey).(*session.Session)
	return sess
}

func userIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

// sessionWriter persists the session just before the response starts, so a
// client following a redirect always sees the queued flash messages.
type sessionWriter struct {
	http.ResponseWriter
	once sync.Once
	save func()
}

func (w *sessionWriter) WriteHeader(code int) {
	w.once.Do(w.save)
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.once.Do(w.save)
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var token string
		if c, err := r.Cookie(s.cookies.CookieName); err == nil {
			token = c.Value
		}

		sess, _, err := session.LoadOrNew(ctx, s.sessions, token)
		if err != nil {
			s.logger.Error("load session", zap.Error(err))
			sess = session.New()
		}

		http.SetCookie(w, &http.Cookie{
			Name:     s.cookies.CookieName,
			Value:    sess.Token,
			Path:     "/",
			MaxAge:   int(s.cookies.TTL.Seconds()),
			HttpOnly: true,
			Secure:   s.cookies.Secure,
			SameSite: http.SameSiteLaxMode,
		})

		sw := &sessionWriter{ResponseWriter: w}
		sw.save = func() {
			if err := s.sessions.Save(ctx, sess); err != nil {
				s.logger.Error("save session", zap.Error(err))
			}
		}

		next.ServeHTTP(sw, r.WithContext(context.WithValue(ctx, sessionKey, sess)))
		sw.once.Do(sw.save)
	})
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(authCookieName); err == nil {
		return c.Value
	}
	return ""
}

// withIdentity attaches the authenticated user id, if any. Bad or expired
// tokens leave the request anonymous.
func (s *Server) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := s.tokens.Parse(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userIDFrom(r.Context()) != 0 {
			next.ServeHTTP(w, r)
			return
		}

		if wantsJSON(r) {
			respondError(w, http.StatusUnauthorized, "unauthenticated", "Authentication required.", nil)
			return
		}

		sessionFrom(r.Context()).AddFlash(session.FlashError, "Please login to access this feature.")
		http.Redirect(w, r, "/accounts/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
	})
}

// wantsJSON reports whether a mutation caller expects a JSON outcome rather
// than a redirect.
func wantsJSON(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
