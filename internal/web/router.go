package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/csrf"

	"github.com/xeze-org/nutriplan-web/internal/apiclient"
	"github.com/xeze-org/nutriplan-web/internal/auth"
	"github.com/xeze-org/nutriplan-web/internal/middleware"
)

// Deps are the collaborators NewRouter wires together. Archive and Exports
// are optional.
type Deps struct {
	API            *apiclient.Client
	Sessions       auth.SessionStore
	Archive        PlanArchive
	Exports        ExportStore
	CSRFKey        []byte
	CookieSecure   bool
	AllowedOrigins []string
	Location       *time.Location
}

func NewRouter(d Deps) (http.Handler, error) {
	if d.API == nil || d.Sessions == nil {
		return nil, errors.New("web: API client and session store are required")
	}
	if len(d.CSRFKey) != 32 {
		return nil, errors.New("web: CSRF key must be 32 bytes")
	}
	pages, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	authHandler := auth.NewHandler(d.API, d.Sessions, pages, d.CookieSecure)
	h := NewHandler(d.API, pages, d.Archive, d.Exports, d.Location, d.CookieSecure)

	protect := csrf.Protect(d.CSRFKey,
		csrf.Secure(d.CookieSecure),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slog.Warn("csrf_rejected", "path", r.URL.Path, "reason", csrf.FailureReason(r))
			http.Error(w, "forbidden: invalid CSRF token", http.StatusForbidden)
		})),
	)

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.LoadSession(d.Sessions))

	r.Get("/health", h.Health)
	r.Get("/session", h.SessionStatus)

	r.Group(func(r chi.Router) {
		r.Use(protect)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RedirectIfAuthenticated)
			r.Get("/", authHandler.LoginForm)
			r.Get("/login", authHandler.LoginForm)
			r.Post("/login", authHandler.Login)
			r.Get("/register", authHandler.RegisterForm)
			r.Post("/register", authHandler.Register)
		})
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireToken)
			r.Get("/dashboard", h.Dashboard)
			r.Get("/meal-plans", h.MealPlans)
			r.Post("/meal-plans/generate", h.GeneratePlan)
			r.Get("/meal-plans/{id}/export", h.ExportPlan)
			r.Post("/meal-plans/archive/{id}/delete", h.DeleteArchived)
			r.Get("/meals", h.MealForm)
			r.Post("/meals", h.AddMeal)
			r.Get("/profile", h.Profile)
			r.Post("/profile", h.UpdateProfile)
			r.Get("/nutrition", h.NutritionForm)
			r.Post("/nutrition", h.AnalyzeNutrition)
			r.Get("/recommendations", h.Recommendations)
		})
	})

	return r, nil
}
