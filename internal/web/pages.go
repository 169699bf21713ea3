package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xeze-org/nutriplan-web/internal/models"
	"github.com/xeze-org/nutriplan-web/internal/nutrition"
	"github.com/xeze-org/nutriplan-web/internal/store"
)

// MaxPlanDays is the longest plan the backend generates, counting both the
// start and end day.
const MaxPlanDays = 30

const recentArchiveLimit = 5

var goalOptions = []string{"maintenance", "weight_loss", "muscle_gain", "diabetes_management"}

type progressBar struct {
	Label    string
	Unit     string
	Consumed float64
	Target   float64
	Percent  float64
}

func progressBars(consumed, target models.NutritionInfo) []progressBar {
	bar := func(label, unit string, c, t float64) progressBar {
		return progressBar{Label: label, Unit: unit, Consumed: c, Target: t, Percent: nutrition.Progress(c, t)}
	}
	return []progressBar{
		bar("Calories", "kcal", consumed.Calories, target.Calories),
		bar("Protein", "g", consumed.Protein, target.Protein),
		bar("Carbs", "g", consumed.Carbohydrates, target.Carbohydrates),
		bar("Fat", "g", consumed.Fat, target.Fat),
		bar("Fiber", "g", consumed.Fiber, target.Fiber),
	}
}

type mealTarget struct {
	MealType string
	Calories float64
}

func mealTargets(daily models.NutritionInfo) []mealTarget {
	out := make([]mealTarget, 0, len(nutrition.MealTypes))
	for _, mt := range nutrition.MealTypes {
		out = append(out, mealTarget{MealType: mt, Calories: daily.Calories * nutrition.MealShare[mt]})
	}
	return out
}

// Dashboard shows today's meals and progress against the daily target. The
// target comes from today's plan, or from the profile when no plan covers
// today.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	api := h.client(r)

	profile, err := api.GetProfile(ctx)
	if err != nil {
		h.fail(w, r, "dashboard.html", nil, err)
		return
	}
	plans, err := api.GetMealPlans(ctx, time.Time{}, time.Time{})
	if err != nil {
		h.fail(w, r, "dashboard.html", map[string]any{"Name": profile.DisplayName()}, err)
		return
	}

	today := h.now().In(h.loc)
	meals := nutrition.TodaysMeals(plans, today, h.loc)
	target := nutrition.DailyTargets(profile, "")
	plan, hasPlan := nutrition.ActivePlan(plans, today, h.loc)
	if hasPlan && plan.DailyNutrition != nil {
		target = *plan.DailyNutrition
	}
	tdee, hasTDEE := nutrition.TDEE(profile)

	h.pages.Render(w, r, http.StatusOK, "dashboard.html", map[string]any{
		"Name":        profile.DisplayName(),
		"Profile":     profile,
		"Today":       today,
		"Meals":       meals,
		"Bars":        progressBars(nutrition.Sum(meals), target),
		"MealTargets": mealTargets(target),
		"Plan":        plan,
		"PlanCount":   len(plans),
		"TDEE":        tdee,
		"HasTDEE":     hasTDEE,
	})
}

// MealPlans lists plans, filtered by the optional start and end query
// parameters.
func (h *Handler) MealPlans(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{}
	if id := r.URL.Query().Get("generated"); id != "" {
		data["Notice"] = "Meal plan generated"
		data["GeneratedID"] = id
	}
	if r.URL.Query().Get("removed") != "" {
		data["Notice"] = "Archived plan removed"
	}
	h.renderMealPlans(w, r, http.StatusOK, data)
}

// DeleteArchived removes one of the user's archived generations.
func (h *Handler) DeleteArchived(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()
	me, err := h.client(r).Me(ctx)
	if err != nil {
		h.fail(w, r, "meal_plans.html", nil, err)
		return
	}
	id := chi.URLParam(r, "id")
	err = h.archive.Delete(ctx, me.ID, id)
	if errors.Is(err, store.ErrNotFound) {
		h.renderMealPlans(w, r, http.StatusNotFound, map[string]any{"Error": "Archived plan not found"})
		return
	}
	if err != nil {
		slog.Error("archive_delete_failed", "archive_id", id, "error", err)
		h.renderMealPlans(w, r, http.StatusInternalServerError, map[string]any{"Error": "Could not remove archived plan"})
		return
	}
	slog.Info("archive_deleted", "archive_id", id, "user_id", me.ID)
	http.Redirect(w, r, "/meal-plans?removed=1", http.StatusSeeOther)
}

func (h *Handler) renderMealPlans(w http.ResponseWriter, r *http.Request, status int, data map[string]any) {
	ctx := r.Context()
	api := h.client(r)

	today := h.now().In(h.loc)
	data["Goals"] = goalOptions
	data["DefaultStart"] = today.Format(dayLayout)
	data["DefaultEnd"] = today.AddDate(0, 0, 7).Format(dayLayout)

	q := r.URL.Query()
	data["Start"], data["End"] = q.Get("start"), q.Get("end")
	start, err := parseDay("start", q.Get("start"), h.loc)
	if err != nil {
		h.fail(w, r, "meal_plans.html", data, err)
		return
	}
	end, err := parseDay("end", q.Get("end"), h.loc)
	if err != nil {
		h.fail(w, r, "meal_plans.html", data, err)
		return
	}

	plans, err := api.GetMealPlans(ctx, start, endOfDay(end))
	if err != nil {
		h.fail(w, r, "meal_plans.html", data, err)
		return
	}
	data["Plans"] = plans

	if h.archive != nil {
		if me, err := api.Me(ctx); err == nil {
			recent, err := h.archive.Recent(ctx, me.ID, recentArchiveLimit)
			if err != nil {
				slog.Warn("archive_recent_failed", "user_id", me.ID, "error", err)
			}
			data["Recent"] = recent
		} else if h.expired(w, r, err) {
			return
		}
	}

	h.pages.Render(w, r, status, "meal_plans.html", data)
}

// planDays counts the calendar days from start to end, both included.
func planDays(start, end time.Time) int {
	y1, m1, d1 := start.Date()
	y2, m2, d2 := end.Date()
	from := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	to := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours()/24) + 1
}

func generateForm(form url.Values, loc *time.Location) (start, end time.Time, goal string, err error) {
	if start, err = parseDay("Start date", form.Get("start"), loc); err != nil {
		return
	}
	if end, err = parseDay("End date", form.Get("end"), loc); err != nil {
		return
	}
	if start.IsZero() || end.IsZero() {
		err = invalidInput("Start and end dates are required")
		return
	}
	if !end.After(start) {
		err = invalidInput("End date must be after start date")
		return
	}
	if planDays(start, end) > MaxPlanDays {
		err = invalidInput("Meal plan cannot exceed %d days", MaxPlanDays)
		return
	}
	goal = strings.TrimSpace(form.Get("goal"))
	return
}

// GeneratePlan asks the backend for a new plan and archives a snapshot when
// an archive is configured.
func (h *Handler) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderMealPlans(w, r, http.StatusBadRequest, map[string]any{"Error": "invalid form"})
		return
	}
	ctx := r.Context()

	start, end, goal, err := generateForm(r.PostForm, h.loc)
	var plan *models.MealPlan
	if err == nil {
		plan, err = h.client(r).GenerateMealPlan(ctx, start, end, goal)
	}
	if err != nil {
		if h.expired(w, r, err) {
			return
		}
		h.renderMealPlans(w, r, pageStatus(err), map[string]any{
			"Error": err.Error(),
			"Form":  r.PostForm,
		})
		return
	}

	if h.archive != nil {
		if _, err := h.archive.Save(ctx, *plan); err != nil {
			slog.Warn("archive_save_failed", "plan_id", plan.ID, "error", err)
		}
	}
	slog.Info("meal_plan_generated", "plan_id", plan.ID, "meals", len(plan.Meals))
	http.Redirect(w, r, "/meal-plans?generated="+url.QueryEscape(plan.ID), http.StatusSeeOther)
}

// ExportPlan serves a plan as a JSON download. With object storage the
// stored export is served, and uploaded on first use.
func (h *Handler) ExportPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	plans, err := h.client(r).GetMealPlans(ctx, time.Time{}, time.Time{})
	if err != nil {
		if h.expired(w, r, err) {
			return
		}
		http.Error(w, err.Error(), pageStatus(err))
		return
	}
	var plan *models.MealPlan
	for i := range plans {
		if plans[i].ID == id {
			plan = &plans[i]
			break
		}
	}
	if plan == nil {
		http.Error(w, "meal plan not found", http.StatusNotFound)
		return
	}

	data := h.storedExport(ctx, *plan)
	if data == nil {
		if data, err = store.EncodeExport(*plan); err != nil {
			slog.Error("export_encode_failed", "plan_id", plan.ID, "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="meal-plan-%s.json"`, plan.ID))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// storedExport returns the export kept in object storage for plan, uploading
// it first when missing. It returns nil when no store is configured or the
// store fails.
func (h *Handler) storedExport(ctx context.Context, plan models.MealPlan) []byte {
	if h.exports == nil {
		return nil
	}
	key := store.ExportKey(plan.UserID, plan.ID)
	data, _, err := h.exports.LoadExport(ctx, key)
	if err == nil {
		return data
	}
	if !errors.Is(err, store.ErrNotFound) {
		slog.Warn("export_load_failed", "key", key, "error", err)
	}
	obj, data, err := h.exports.SaveExport(ctx, plan)
	if err != nil {
		slog.Warn("export_upload_failed", "plan_id", plan.ID, "error", err)
		return nil
	}
	slog.Info("export_stored", "key", obj.Key, "size", obj.Size)
	return data
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.client(r).GetProfile(r.Context())
	if err != nil {
		h.fail(w, r, "profile.html", nil, err)
		return
	}
	h.pages.Render(w, r, http.StatusOK, "profile.html", map[string]any{"Profile": profile})
}

// UpdateProfile sends the changed fields and re-renders with the result.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.Render(w, r, http.StatusBadRequest, "profile.html", map[string]any{"Error": "invalid form"})
		return
	}
	upd, err := profileUpdateFromForm(r.PostForm)
	var profile *models.Profile
	if err == nil {
		profile, err = h.client(r).UpdateProfile(r.Context(), upd)
	}
	if err != nil {
		h.fail(w, r, "profile.html", map[string]any{"Form": r.PostForm}, err)
		return
	}
	slog.Info("profile_updated", "user_id", profile.ID)
	h.pages.Render(w, r, http.StatusOK, "profile.html", map[string]any{
		"Profile": profile,
		"Notice":  "Profile saved",
	})
}

func (h *Handler) NutritionForm(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, "nutrition.html", map[string]any{})
}

// AnalyzeNutrition totals the foods entered one per line.
func (h *Handler) AnalyzeNutrition(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.Render(w, r, http.StatusBadRequest, "nutrition.html", map[string]any{"Error": "invalid form"})
		return
	}
	text := r.PostForm.Get("foods")
	data := map[string]any{"Foods": text}

	foods, err := parseFoods(text)
	var result *models.NutritionInfo
	if err == nil {
		result, err = h.client(r).AnalyzeNutrition(r.Context(), foods)
	}
	if err != nil {
		h.fail(w, r, "nutrition.html", data, err)
		return
	}
	data["Result"] = result
	data["Items"] = foods
	h.pages.Render(w, r, http.StatusOK, "nutrition.html", data)
}

// Recommendations shows suggestions for the selected meal type. Without a
// meal_type only the form is shown.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mealType := q.Get("meal_type")
	data := map[string]any{
		"MealTypes": nutrition.MealTypes,
		"MealType":  mealType,
		"Date":      q.Get("date"),
	}
	if mealType == "" {
		h.pages.Render(w, r, http.StatusOK, "recommendations.html", data)
		return
	}

	date, err := parseDay("date", q.Get("date"), h.loc)
	var meals models.MealList
	if err == nil {
		meals, err = h.client(r).GetRecommendations(r.Context(), mealType, date)
	}
	if err != nil {
		h.fail(w, r, "recommendations.html", data, err)
		return
	}
	data["Meals"] = meals
	h.pages.Render(w, r, http.StatusOK, "recommendations.html", data)
}
