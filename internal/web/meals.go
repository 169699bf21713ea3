package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/xeze-org/nutriplan-web/internal/apiclient"
	"github.com/xeze-org/nutriplan-web/internal/models"
	"github.com/xeze-org/nutriplan-web/internal/nutrition"
	"github.com/xeze-org/nutriplan-web/internal/store"
)

const defaultMealClock = "12:00"

func (h *Handler) MealForm(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, "meals.html", h.mealFormData(nil))
}

func (h *Handler) mealFormData(form url.Values) map[string]any {
	return map[string]any{
		"MealTypes":   nutrition.MealTypes,
		"DefaultDate": h.now().In(h.loc).Format(dayLayout),
		"Form":        form,
	}
}

// mealFromForm reads the add-meal form. Foods are optional and use the
// "name, quantity[, unit]" lines of the nutrition page.
func mealFromForm(form url.Values, loc *time.Location) (models.MealCreate, error) {
	meal := models.MealCreate{
		Name:        strings.TrimSpace(form.Get("name")),
		Description: strings.TrimSpace(form.Get("description")),
		MealType:    form.Get("meal_type"),
		Foods:       []models.FoodItemCreate{},
	}
	if meal.Name == "" {
		return meal, invalidInput("Meal name is required")
	}
	if !slices.Contains(nutrition.MealTypes, meal.MealType) {
		return meal, invalidInput("Choose a meal type")
	}

	day := strings.TrimSpace(form.Get("date"))
	clock := strings.TrimSpace(form.Get("time"))
	if clock == "" {
		clock = defaultMealClock
	}
	at, err := time.ParseInLocation(dayLayout+" 15:04", day+" "+clock, loc)
	if err != nil {
		return meal, invalidInput("Date and time must look like 2024-03-01 and 12:30")
	}
	meal.Date = models.Timestamp{Time: at}

	if strings.TrimSpace(form.Get("foods")) != "" {
		if meal.Foods, err = parseFoods(form.Get("foods")); err != nil {
			return meal, err
		}
	}
	return meal, nil
}

// AddMeal logs a single meal. The backend files it under a plan covering its
// date, so that plan's stored export is dropped afterwards.
func (h *Handler) AddMeal(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.Render(w, r, http.StatusBadRequest, "meals.html", map[string]any{"Error": "invalid form"})
		return
	}
	ctx := r.Context()
	api := h.client(r)
	data := h.mealFormData(r.PostForm)

	meal, err := mealFromForm(r.PostForm, h.loc)
	if err == nil && len(meal.Foods) > 0 {
		meal.Nutrition, err = api.AnalyzeNutrition(ctx, meal.Foods)
	}
	var created *models.Meal
	if err == nil {
		created, err = api.CreateMeal(ctx, meal)
	}
	if err != nil {
		h.fail(w, r, "meals.html", data, err)
		return
	}
	slog.Info("meal_created", "meal_id", created.ID, "meal_type", created.MealType)

	if h.exports != nil {
		h.dropExport(ctx, api, created.ID)
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// dropExport removes the stored export of the plan holding mealID.
func (h *Handler) dropExport(ctx context.Context, api *apiclient.Client, mealID string) {
	plans, err := api.GetMealPlans(ctx, time.Time{}, time.Time{})
	if err != nil {
		slog.Warn("export_invalidate_failed", "meal_id", mealID, "error", err)
		return
	}
	plan, ok := planWithMeal(plans, mealID)
	if !ok {
		return
	}
	key := store.ExportKey(plan.UserID, plan.ID)
	if err := h.exports.RemoveExport(ctx, key); err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Warn("export_remove_failed", "key", key, "error", err)
	}
}

func planWithMeal(plans []models.MealPlan, mealID string) (models.MealPlan, bool) {
	for _, p := range plans {
		for _, m := range p.Meals {
			if m.ID == mealID {
				return p, true
			}
		}
	}
	return models.MealPlan{}, false
}
