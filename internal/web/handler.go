package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/xeze-org/nutriplan-web/internal/apiclient"
	"github.com/xeze-org/nutriplan-web/internal/auth"
	"github.com/xeze-org/nutriplan-web/internal/models"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// PlanArchive keeps snapshots of generated plans. Delete reports
// store.ErrNotFound for snapshots the user does not own.
type PlanArchive interface {
	Save(ctx context.Context, plan models.MealPlan) (string, error)
	Recent(ctx context.Context, userID string, limit int64) ([]models.ArchivedPlan, error)
	Delete(ctx context.Context, userID, id string) error
}

// ExportStore holds plan exports in object storage, keyed by
// store.ExportKey.
type ExportStore interface {
	SaveExport(ctx context.Context, plan models.MealPlan) (models.ExportObject, []byte, error)
	LoadExport(ctx context.Context, key string) ([]byte, models.ExportObject, error)
	RemoveExport(ctx context.Context, key string) error
}

// Handler serves the signed-in pages.
type Handler struct {
	api          *apiclient.Client
	pages        auth.Renderer
	archive      PlanArchive
	exports      ExportStore
	loc          *time.Location
	now          func() time.Time
	secureCookie bool
}

// NewHandler builds the page handlers. archive and exports may be nil.
func NewHandler(api *apiclient.Client, pages auth.Renderer, archive PlanArchive, exports ExportStore, loc *time.Location, secureCookie bool) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		api:          api,
		pages:        pages,
		archive:      archive,
		exports:      exports,
		loc:          loc,
		now:          time.Now,
		secureCookie: secureCookie,
	}
}

// client returns the API client bound to the request's session.
func (h *Handler) client(r *http.Request) *apiclient.Client {
	if sess, ok := auth.SessionFrom(r.Context()); ok {
		return h.api.WithTokens(sess)
	}
	return h.api
}

// expired handles a 401 from the backend: the stored token is dropped, the
// cookie cleared and the browser sent to the login page. It reports whether
// err was a 401.
func (h *Handler) expired(w http.ResponseWriter, r *http.Request, err error) bool {
	if !apiclient.IsUnauthorized(err) {
		return false
	}
	if sess, ok := auth.SessionFrom(r.Context()); ok {
		if err := sess.SetToken(r.Context(), ""); err != nil {
			slog.Warn("clear expired session", "session_id", sess.ID, "error", err)
		}
		slog.Info("session_expired", "session_id", sess.ID, "path", r.URL.Path)
	}
	auth.ClearSessionCookie(w, h.secureCookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
	return true
}

// fail renders page with the error banner, or redirects on 401.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, page string, data map[string]any, err error) {
	if h.expired(w, r, err) {
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	data["Error"] = err.Error()
	h.pages.Render(w, r, pageStatus(err), page, data)
}

// pageStatus echoes backend 4xx codes; other failures are 502.
func pageStatus(err error) int {
	if code := apiclient.StatusCode(err); code >= 400 && code < 500 {
		return code
	}
	var inputErr *inputError
	if errors.As(err, &inputErr) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SessionStatus tells scripts on the page whether a token is stored.
func (h *Handler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	authenticated := false
	if sess, ok := auth.SessionFrom(r.Context()); ok {
		authenticated = sess.Authenticated(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": authenticated})
}
