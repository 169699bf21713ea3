package apiclient

import (
	"context"
	"net/http"
	"time"

	"github.com/xeze-org/nutriplan-web/internal/models"
)

const (
	LoginPath            = "/auth/login"
	RegisterPath         = "/auth/register"
	MePath               = "/auth/me"
	ProfilePath          = "/users/profile"
	MealPlansPath        = "/meal-plans"
	GenerateMealPlanPath = "/meal-plans/generate"
	MealsPath            = "/meal-plans/meals"
	AnalyzeNutritionPath = "/nutrition/analyze"
	RecommendationsPath  = "/recommendations"
)

// Login authenticates and stores the returned access token.
func (c *Client) Login(ctx context.Context, email, password string) (*models.Token, error) {
	var tok models.Token
	if err := c.Do(ctx, http.MethodPost, LoginPath, models.LoginRequest{Email: email, Password: password}, &tok); err != nil {
		return nil, err
	}
	if err := c.SetToken(ctx, tok.AccessToken); err != nil {
		return nil, err
	}
	return &tok, nil
}

// Register creates the account and stores the returned access token.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.Token, error) {
	var tok models.Token
	if err := c.Do(ctx, http.MethodPost, RegisterPath, req, &tok); err != nil {
		return nil, err
	}
	if err := c.SetToken(ctx, tok.AccessToken); err != nil {
		return nil, err
	}
	return &tok, nil
}

// Logout forgets the stored token. The backend keeps no server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.SetToken(ctx, "")
}

func (c *Client) Me(ctx context.Context) (*models.Profile, error) {
	var p models.Profile
	if err := c.Do(ctx, http.MethodGet, MePath, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetProfile(ctx context.Context) (*models.Profile, error) {
	var p models.Profile
	if err := c.Do(ctx, http.MethodGet, ProfilePath, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.Profile, error) {
	var p models.Profile
	if err := c.Do(ctx, http.MethodPut, ProfilePath, upd, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// MealPlansEndpoint builds GET /meal-plans; zero times are omitted.
func MealPlansEndpoint(start, end time.Time) string {
	var q query
	q.addTime("start_date", start)
	q.addTime("end_date", end)
	return q.endpoint(MealPlansPath)
}

func (c *Client) GetMealPlans(ctx context.Context, start, end time.Time) (models.MealPlanList, error) {
	var plans models.MealPlanList
	if err := c.Do(ctx, http.MethodGet, MealPlansEndpoint(start, end), nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// GenerateMealPlanEndpoint builds POST /meal-plans/generate; an empty goal is
// omitted.
func GenerateMealPlanEndpoint(start, end time.Time, goal string) string {
	var q query
	q.add("start_date", models.FormatISO(start))
	q.add("end_date", models.FormatISO(end))
	q.addString("goal", goal)
	return q.endpoint(GenerateMealPlanPath)
}

func (c *Client) GenerateMealPlan(ctx context.Context, start, end time.Time, goal string) (*models.MealPlan, error) {
	var plan models.MealPlan
	if err := c.Do(ctx, http.MethodPost, GenerateMealPlanEndpoint(start, end, goal), nil, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (c *Client) CreateMeal(ctx context.Context, meal models.MealCreate) (*models.Meal, error) {
	var m models.Meal
	if err := c.Do(ctx, http.MethodPost, MealsPath, meal, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) AnalyzeNutrition(ctx context.Context, foods []models.FoodItemCreate) (*models.NutritionInfo, error) {
	var info models.NutritionInfo
	req := models.NutritionAnalysisRequest{Foods: foods}
	if err := c.Do(ctx, http.MethodPost, AnalyzeNutritionPath, req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// RecommendationsEndpoint builds GET /recommendations; a zero date is
// omitted.
func RecommendationsEndpoint(mealType string, date time.Time) string {
	var q query
	q.add("meal_type", mealType)
	q.addTime("date", date)
	return q.endpoint(RecommendationsPath)
}

func (c *Client) GetRecommendations(ctx context.Context, mealType string, date time.Time) (models.MealList, error) {
	var meals models.MealList
	if err := c.Do(ctx, http.MethodGet, RecommendationsEndpoint(mealType, date), nil, &meals); err != nil {
		return nil, err
	}
	return meals, nil
}
