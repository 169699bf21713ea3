// Package web serves the browser pages: login and registration, the
// dashboard, meal plans, profile, nutrition analysis and recommendations.
//
// Routes
//
//	GET  /                          login form
//	POST /login                     sign in
//	GET  /register, POST /register  registration
//	POST /logout                    sign out
//	GET  /dashboard                 today's meals and nutrition progress
//	GET  /meal-plans                plan listing, generation form
//	POST /meal-plans/generate       generate a plan
//	GET  /meal-plans/{id}/export    JSON export download
//	POST /meal-plans/archive/{id}/delete  remove an archived generation
//	GET  /meals, POST /meals        log a single meal
//	GET  /profile, POST /profile    profile editor
//	GET  /nutrition, POST /nutrition nutrition analysis
//	GET  /recommendations           meal suggestions
//	GET  /health, GET /session      JSON status endpoints
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/xeze-org/nutriplan-web/internal/auth"
	"github.com/xeze-org/nutriplan-web/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"login.html",
	"register.html",
	"dashboard.html",
	"meal_plans.html",
	"meals.html",
	"profile.html",
	"nutrition.html",
	"recommendations.html",
}

// Raw HTML in markdown input is escaped since WithUnsafe is not set.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

var funcMap = template.FuncMap{
	"markdown": renderMarkdown,
	"round": func(v float64) string {
		return fmt.Sprintf("%.0f", math.Round(v))
	},
	"date": func(t models.Timestamp) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
	"isoDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	},
	"title": mealTypeLabel,
	"goal":  goalLabel,
}

// Renderer executes the embedded page templates inside layout.html.
type Renderer struct {
	pages map[string]*template.Template
}

var _ auth.Renderer = (*Renderer)(nil)

func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = tpl
	}
	return r, nil
}

// Render writes page with status. The CSRF field and sign-in state are added
// to data for the layout.
func (p *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page string, data map[string]any) {
	tpl, ok := p.pages[page]
	if !ok {
		slog.Error("unknown_template", "page", page)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	data["CSRFField"] = csrf.TemplateField(r)
	data["LoggedIn"] = false
	if sess, ok := auth.SessionFrom(r.Context()); ok {
		data["LoggedIn"] = sess.Authenticated(r.Context())
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		slog.Error("render_error", "page", page, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func mealTypeLabel(s string) string {
	switch s {
	case "breakfast":
		return "Breakfast"
	case "lunch":
		return "Lunch"
	case "dinner":
		return "Dinner"
	case "snack":
		return "Snack"
	}
	return s
}

// goalLabel turns weight_loss into "Weight Loss"; empty is maintenance.
func goalLabel(s string) string {
	if s == "" {
		return "Maintenance"
	}
	words := strings.Split(s, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
