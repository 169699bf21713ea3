// Package apitest runs an in-process stand-in for the nutrition API with
// the same routes, payloads and error bodies, for client and page tests.
package apitest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/xeze-org/nutriplan-web/internal/models"
)

// Prefix is the API mount point; URL() includes it.
const Prefix = "/api/v1"

type account struct {
	password string
	profile  models.Profile
	version  int
}

// Backend is a fake API server. All methods are safe for concurrent use.
type Backend struct {
	server *httptest.Server
	secret []byte

	mu       sync.Mutex
	accounts map[string]*account // by email
	plans    map[string][]models.MealPlan
	requests []string
}

// New starts a backend that is closed when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		secret:   []byte("apitest-" + uuid.NewString()),
		accounts: map[string]*account{},
		plans:    map[string][]models.MealPlan{},
	}

	r := chi.NewRouter()
	r.Route(Prefix, func(r chi.Router) {
		r.Post("/auth/register", b.register)
		r.Post("/auth/login", b.login)
		r.Group(func(r chi.Router) {
			r.Use(b.requireBearer)
			r.Get("/auth/me", b.profile)
			r.Get("/users/profile", b.profile)
			r.Put("/users/profile", b.updateProfile)
			r.Get("/meal-plans", b.listPlans)
			r.Post("/meal-plans/generate", b.generatePlan)
			r.Post("/meal-plans/meals", b.createMeal)
			r.Post("/nutrition/analyze", b.analyze)
			r.Get("/recommendations", b.recommend)
		})
	})

	b.server = httptest.NewServer(b.record(r))
	t.Cleanup(b.server.Close)
	return b
}

// URL is the base URL to hand to apiclient.New.
func (b *Backend) URL() string {
	return b.server.URL + Prefix
}

// AddUser registers email directly and returns its profile.
func (b *Backend) AddUser(email, password string) models.Profile {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc := b.addLocked(models.RegisterRequest{Email: email, Password: password, FirstName: "Test"})
	return acc.profile
}

// Token issues a valid bearer token for email.
func (b *Backend) Token(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[email]
	if !ok {
		return ""
	}
	tok, _ := b.sign(email, acc.version)
	return tok
}

// Revoke invalidates every token issued so far for email.
func (b *Backend) Revoke(email string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if acc, ok := b.accounts[email]; ok {
		acc.version++
	}
}

// AddPlan stores plan for email's account.
func (b *Backend) AddPlan(email string, plan models.MealPlan) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[email]
	if !ok {
		return
	}
	plan.UserID = acc.profile.ID
	b.plans[acc.profile.ID] = append(b.plans[acc.profile.ID], plan)
}

// Requests returns "METHOD /path?query" for every request served.
func (b *Backend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, r.Method+" "+strings.TrimPrefix(r.URL.RequestURI(), Prefix))
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type claims struct {
	Version int `json:"ver"`
	jwt.RegisteredClaims
}

func (b *Backend) sign(email string, version int) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Version: version,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(30 * time.Minute)),
		},
	})
	return tok.SignedString(b.secret)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type accountKey struct{}

func contextWithAccount(r *http.Request, acc *account) context.Context {
	return context.WithValue(r.Context(), accountKey{}, acc)
}

func accountFrom(r *http.Request) *account {
	return r.Context().Value(accountKey{}).(*account)
}

func (b *Backend) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		var c claims
		_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
			return b.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		b.mu.Lock()
		acc, ok := b.accounts[c.Subject]
		valid := ok && acc.version == c.Version
		b.mu.Unlock()
		if !valid {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithAccount(r, acc)))
	})
}

func (b *Backend) addLocked(req models.RegisterRequest) *account {
	created := models.Timestamp{Time: time.Now().UTC().Truncate(time.Second)}
	acc := &account{
		password: req.Password,
		profile: models.Profile{
			ID:                uuid.NewString(),
			Email:             req.Email,
			FirstName:         req.FirstName,
			LastName:          req.LastName,
			Age:               req.Age,
			Gender:            req.Gender,
			Height:            req.Height,
			Weight:            req.Weight,
			ActivityLevel:     req.ActivityLevel,
			MedicalConditions: req.MedicalConditions,
			FoodPreferences:   req.FoodPreferences,
			Allergies:         req.Allergies,
			HealthGoal:        req.HealthGoal,
			TargetWeight:      req.TargetWeight,
			CreatedAt:         &created,
		},
	}
	b.accounts[req.Email] = acc
	return acc
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"body", "email"}, "msg": "field required", "type": "value_error.missing"}},
		})
		return
	}

	b.mu.Lock()
	if _, exists := b.accounts[req.Email]; exists {
		b.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	acc := b.addLocked(req)
	tok, err := b.sign(req.Email, acc.version)
	b.mu.Unlock()
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.Token{AccessToken: tok, TokenType: "bearer"})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	b.mu.Lock()
	acc, ok := b.accounts[req.Email]
	if !ok || acc.password != req.Password {
		b.mu.Unlock()
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	tok, err := b.sign(req.Email, acc.version)
	b.mu.Unlock()
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.Token{AccessToken: tok, TokenType: "bearer"})
}

func (b *Backend) profile(w http.ResponseWriter, r *http.Request) {
	acc := accountFrom(r)
	b.mu.Lock()
	p := acc.profile
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, p)
}

func (b *Backend) updateProfile(w http.ResponseWriter, r *http.Request) {
	var upd models.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	acc := accountFrom(r)

	b.mu.Lock()
	p := &acc.profile
	setString(&p.FirstName, upd.FirstName)
	setString(&p.LastName, upd.LastName)
	setString(&p.Gender, upd.Gender)
	setString(&p.ActivityLevel, upd.ActivityLevel)
	setString(&p.HealthGoal, upd.HealthGoal)
	if upd.Age != nil {
		p.Age = upd.Age
	}
	if upd.Height != nil {
		p.Height = upd.Height
	}
	if upd.Weight != nil {
		p.Weight = upd.Weight
	}
	if upd.TargetWeight != nil {
		p.TargetWeight = upd.TargetWeight
	}
	if upd.MedicalConditions != nil {
		p.MedicalConditions = *upd.MedicalConditions
	}
	if upd.FoodPreferences != nil {
		p.FoodPreferences = *upd.FoodPreferences
	}
	if upd.Allergies != nil {
		p.Allergies = *upd.Allergies
	}
	out := *p
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func parseQueryTime(r *http.Request, key string) (time.Time, bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	return t, true, err
}

func (b *Backend) listPlans(w http.ResponseWriter, r *http.Request) {
	start, hasStart, err := parseQueryTime(r, "start_date")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid start_date")
		return
	}
	end, hasEnd, err := parseQueryTime(r, "end_date")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid end_date")
		return
	}
	acc := accountFrom(r)

	b.mu.Lock()
	out := []models.MealPlan{}
	for _, p := range b.plans[acc.profile.ID] {
		if hasStart && p.StartDate.Before(start) {
			continue
		}
		if hasEnd && p.EndDate.After(end) {
			continue
		}
		out = append(out, p)
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

var sampleMeals = map[string]struct {
	name     string
	calories float64
}{
	"breakfast": {"Oatmeal with **berries**", 350},
	"lunch":     {"Grilled chicken salad", 550},
	"dinner":    {"Salmon with rice", 650},
	"snack":     {"Greek yogurt", 150},
}

func sampleMeal(mealType string, date time.Time) models.Meal {
	s := sampleMeals[mealType]
	return models.Meal{
		ID:          uuid.NewString(),
		Name:        strings.ReplaceAll(s.name, "**", ""),
		Description: s.name,
		MealType:    mealType,
		Date:        models.Timestamp{Time: date},
		Foods: []models.FoodItem{
			{ID: uuid.NewString(), Name: strings.ReplaceAll(s.name, "**", ""), Quantity: 1, Unit: "serving"},
		},
		Nutrition: &models.NutritionInfo{
			Calories:      s.calories,
			Protein:       s.calories * 0.25 / 4,
			Carbohydrates: s.calories * 0.45 / 4,
			Fat:           s.calories * 0.30 / 9,
			Fiber:         5,
		},
	}
}

func (b *Backend) generatePlan(w http.ResponseWriter, r *http.Request) {
	start, hasStart, err := parseQueryTime(r, "start_date")
	if err != nil || !hasStart {
		writeDetail(w, http.StatusUnprocessableEntity, "start_date is required")
		return
	}
	end, hasEnd, err := parseQueryTime(r, "end_date")
	if err != nil || !hasEnd {
		writeDetail(w, http.StatusUnprocessableEntity, "end_date is required")
		return
	}
	if !end.After(start) {
		writeDetail(w, http.StatusBadRequest, "End date must be after start date")
		return
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days > 30 {
		writeDetail(w, http.StatusBadRequest, "Meal plan cannot exceed 30 days")
		return
	}
	acc := accountFrom(r)
	goal := r.URL.Query().Get("goal")

	b.mu.Lock()
	if goal == "" {
		goal = acc.profile.HealthGoal
	}
	if goal == "" {
		goal = "maintenance"
	}
	created := models.Timestamp{Time: time.Now().UTC()}
	plan := models.MealPlan{
		ID:        uuid.NewString(),
		UserID:    acc.profile.ID,
		StartDate: models.Timestamp{Time: start},
		EndDate:   models.Timestamp{Time: end},
		Goal:      goal,
		CreatedAt: &created,
	}
	var daily models.NutritionInfo
	for d := 0; d < days; d++ {
		day := start.AddDate(0, 0, d)
		for _, mt := range []string{"breakfast", "lunch", "dinner", "snack"} {
			m := sampleMeal(mt, day.Add(time.Duration(8+d%4)*time.Hour))
			plan.Meals = append(plan.Meals, m)
			if d == 0 {
				daily = daily.Add(*m.Nutrition)
			}
		}
	}
	plan.DailyNutrition = &daily
	b.plans[acc.profile.ID] = append(b.plans[acc.profile.ID], plan)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, plan)
}

// createMeal files the meal under the first plan covering its date, or a new
// one-day plan.
func (b *Backend) createMeal(w http.ResponseWriter, r *http.Request) {
	var req models.MealCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.MealType == "" || req.Date.IsZero() {
		writeDetail(w, http.StatusUnprocessableEntity, "name, meal_type and date are required")
		return
	}
	acc := accountFrom(r)

	meal := models.Meal{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		MealType:    req.MealType,
		Date:        req.Date,
		Nutrition:   req.Nutrition,
	}
	for _, f := range req.Foods {
		meal.Foods = append(meal.Foods, models.FoodItem{
			ID: uuid.NewString(), Name: f.Name, Quantity: f.Quantity, Unit: f.Unit, Nutrition: f.Nutrition,
		})
	}

	b.mu.Lock()
	plans := b.plans[acc.profile.ID]
	idx := -1
	for i := range plans {
		if !plans[i].StartDate.After(req.Date.Time) && !plans[i].EndDate.Before(req.Date.Time) {
			idx = i
			break
		}
	}
	if idx < 0 {
		y, m, d := req.Date.UTC().Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		plans = append(plans, models.MealPlan{
			ID:        uuid.NewString(),
			UserID:    acc.profile.ID,
			StartDate: models.Timestamp{Time: day},
			EndDate:   models.Timestamp{Time: day.Add(24*time.Hour - time.Microsecond)},
			Goal:      acc.profile.HealthGoal,
			Meals:     []models.Meal{},
		})
		idx = len(plans) - 1
	}
	plans[idx].Meals = append(plans[idx].Meals, meal)
	b.plans[acc.profile.ID] = plans
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, meal)
}

// analyze counts one kilocalorie per unit of quantity, split by the default
// macro ratios.
func (b *Backend) analyze(w http.ResponseWriter, r *http.Request) {
	var req models.NutritionAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	if len(req.Foods) == 0 {
		writeDetail(w, http.StatusBadRequest, "No foods provided")
		return
	}
	var total models.NutritionInfo
	for _, f := range req.Foods {
		total.Calories += f.Quantity
	}
	total.Protein = total.Calories * 0.25 / 4
	total.Carbohydrates = total.Calories * 0.45 / 4
	total.Fat = total.Calories * 0.30 / 9
	writeJSON(w, http.StatusOK, total)
}

func (b *Backend) recommend(w http.ResponseWriter, r *http.Request) {
	mealType := r.URL.Query().Get("meal_type")
	if _, ok := sampleMeals[mealType]; !ok {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Invalid meal type: %s", mealType))
		return
	}
	date := time.Now().UTC()
	if t, ok, err := parseQueryTime(r, "date"); err == nil && ok {
		date = t
	}
	writeJSON(w, http.StatusOK, []models.Meal{sampleMeal(mealType, date), sampleMeal(mealType, date)})
}
