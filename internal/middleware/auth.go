package middleware

import (
	"log/slog"
	"net/http"

	"github.com/xeze-org/nutriplan-web/internal/auth"
)

// LoadSession attaches the session named by the session_id cookie to the
// request context. Requests without the cookie get a session with no ID.
func LoadSession(sessions auth.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if cookie, err := r.Cookie(auth.SessionCookie); err == nil {
				id = cookie.Value
			}
			sess := auth.NewSession(sessions, id)
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
		})
	}
}

// RequireToken redirects to the root page when the session holds no token.
func RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := auth.SessionFrom(r.Context())
		if !ok || !hasToken(r, sess) {
			slog.Info("auth_required", "path", r.URL.Path)
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RedirectIfAuthenticated sends signed-in browsers from the login and
// registration pages to the dashboard.
func RedirectIfAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess, ok := auth.SessionFrom(r.Context()); ok && hasToken(r, sess) {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hasToken(r *http.Request, sess *auth.Session) bool {
	token, err := sess.Token(r.Context())
	if err != nil {
		slog.Warn("session_read_failed", "session_id", sess.ID, "error", err)
		return false
	}
	return token != ""
}
