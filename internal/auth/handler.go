package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/xeze-org/nutriplan-web/internal/apiclient"
	"github.com/xeze-org/nutriplan-web/internal/models"
)

// Renderer draws a named page template.
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, page string, data map[string]any)
}

// Handler serves the login, registration and logout forms.
type Handler struct {
	api          *apiclient.Client
	sessions     SessionStore
	pages        Renderer
	secureCookie bool
}

func NewHandler(api *apiclient.Client, sessions SessionStore, pages Renderer, secureCookie bool) *Handler {
	return &Handler{api: api, sessions: sessions, pages: pages, secureCookie: secureCookie}
}

// session returns the request's session, or a fresh one without an ID.
func (h *Handler) session(r *http.Request) *Session {
	if s, ok := SessionFrom(r.Context()); ok {
		return s
	}
	return NewSession(h.sessions, "")
}

// dropPrevious deletes the session the browser held before signing in, so
// every login gets a fresh session ID.
func (h *Handler) dropPrevious(r *http.Request, current *Session) {
	prev, ok := SessionFrom(r.Context())
	if !ok || prev.ID == "" || prev.ID == current.ID {
		return
	}
	if err := h.sessions.Delete(r.Context(), prev.ID); err != nil {
		slog.Warn("drop previous session", "session_id", prev.ID, "error", err)
	}
}

func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, "login.html", map[string]any{})
}

// Login exchanges credentials for a token and starts a browser session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.Render(w, r, http.StatusBadRequest, "login.html", map[string]any{"Error": "invalid form"})
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")
	if email == "" || password == "" {
		h.pages.Render(w, r, http.StatusBadRequest, "login.html", map[string]any{
			"Error": "Email and password are required",
			"Email": email,
		})
		return
	}

	sess := NewSession(h.sessions, "")
	if _, err := h.api.WithTokens(sess).Login(r.Context(), email, password); err != nil {
		h.pages.Render(w, r, formStatus(err), "login.html", map[string]any{
			"Error": err.Error(),
			"Email": email,
		})
		return
	}

	h.dropPrevious(r, sess)
	slog.Info("login", "session_id", sess.ID)
	SetSessionCookie(w, sess, h.secureCookie)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, "register.html", map[string]any{})
}

// Register creates the account, stores the issued token and starts a
// browser session.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.Render(w, r, http.StatusBadRequest, "register.html", map[string]any{"Error": "invalid form"})
		return
	}
	req, err := registerRequestFromForm(r)
	if err != nil {
		h.pages.Render(w, r, http.StatusBadRequest, "register.html", map[string]any{
			"Error": err.Error(),
			"Form":  r.PostForm,
		})
		return
	}

	sess := NewSession(h.sessions, "")
	if _, err := h.api.WithTokens(sess).Register(r.Context(), req); err != nil {
		h.pages.Render(w, r, formStatus(err), "register.html", map[string]any{
			"Error": err.Error(),
			"Form":  r.PostForm,
		})
		return
	}

	h.dropPrevious(r, sess)
	slog.Info("register", "session_id", sess.ID)
	SetSessionCookie(w, sess, h.secureCookie)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Logout clears the stored token and the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	if err := h.api.WithTokens(sess).Logout(r.Context()); err != nil {
		slog.Error("logout", "session_id", sess.ID, "error", err)
	}
	ClearSessionCookie(w, h.secureCookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// formStatus echoes backend 4xx codes and maps everything else to 502.
func formStatus(err error) int {
	if code := apiclient.StatusCode(err); code >= 400 && code < 500 {
		return code
	}
	return http.StatusBadGateway
}

func registerRequestFromForm(r *http.Request) (models.RegisterRequest, error) {
	f := r.PostForm
	req := models.RegisterRequest{
		Email:         strings.TrimSpace(f.Get("email")),
		Password:      f.Get("password"),
		FirstName:     strings.TrimSpace(f.Get("first_name")),
		LastName:      strings.TrimSpace(f.Get("last_name")),
		Gender:        f.Get("gender"),
		ActivityLevel: f.Get("activity_level"),
		HealthGoal:    f.Get("health_goal"),
	}
	if req.Email == "" || req.Password == "" {
		return req, errors.New("Email and password are required")
	}
	if confirm := f.Get("confirm_password"); confirm != "" && confirm != req.Password {
		return req, errors.New("Passwords do not match")
	}

	var err error
	if req.Age, err = OptionalInt(f.Get("age")); err != nil {
		return req, errors.New("Age must be a whole number")
	}
	if req.Height, err = OptionalFloat(f.Get("height")); err != nil {
		return req, errors.New("Height must be a number")
	}
	if req.Weight, err = OptionalFloat(f.Get("weight")); err != nil {
		return req, errors.New("Weight must be a number")
	}
	return req, nil
}

// OptionalInt parses s, returning nil for blank input.
func OptionalInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// OptionalFloat parses s, returning nil for blank input. NaN and infinities
// are rejected.
func OptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%q is not a finite number", s)
	}
	return &v, nil
}
