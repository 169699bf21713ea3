package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeze-org/nutriplan-web/internal/auth"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestLoadSession(t *testing.T) {
	store := auth.NewMemorySessions()
	var seen *auth.Session
	h := LoadSession(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.SessionFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)
	assert.Empty(t, seen.ID)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: "sid-9"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)
	assert.Equal(t, "sid-9", seen.ID)
}

func TestGuards(t *testing.T) {
	store := auth.NewMemorySessions()
	require.NoError(t, store.SaveToken(context.Background(), "live", "tok"))

	type testCase struct {
		name             string
		guard            func(http.Handler) http.Handler
		cookie           string
		expectedStatus   int
		expectedLocation string
	}
	testCases := []testCase{
		{name: "require_no_cookie", guard: RequireToken, expectedStatus: http.StatusSeeOther, expectedLocation: "/"},
		{name: "require_unknown_session", guard: RequireToken, cookie: "gone", expectedStatus: http.StatusSeeOther, expectedLocation: "/"},
		{name: "require_live_session", guard: RequireToken, cookie: "live", expectedStatus: http.StatusOK},
		{name: "guest_no_cookie", guard: RedirectIfAuthenticated, expectedStatus: http.StatusOK},
		{name: "guest_live_session", guard: RedirectIfAuthenticated, cookie: "live", expectedStatus: http.StatusSeeOther, expectedLocation: "/dashboard"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := LoadSession(store)(tc.guard(http.HandlerFunc(okHandler)))
			req := httptest.NewRequest(http.MethodGet, "/page", nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: tc.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.expectedStatus, rec.Code)
			assert.Equal(t, tc.expectedLocation, rec.Header().Get("Location"))
		})
	}
}

func TestRequireTokenWithoutLoadSession(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireToken(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}
