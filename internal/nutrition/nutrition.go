// Package nutrition holds the dashboard arithmetic: energy expenditure,
// goal-based daily targets and progress against them.
package nutrition

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/xeze-org/nutriplan-web/internal/models"
)

// DefaultTDEE is used when the profile lacks body metrics.
const DefaultTDEE = 2000.0

// DefaultFiber is the recommended daily fiber in grams.
const DefaultFiber = 25.0

var activityMultipliers = map[string]float64{
	"sedentary":         1.2,
	"lightly_active":    1.375,
	"moderately_active": 1.55,
	"very_active":       1.725,
	"extremely_active":  1.9,
}

var goalCalorieFactor = map[string]float64{
	"weight_loss":         0.85,
	"muscle_gain":         1.15,
	"maintenance":         1.0,
	"diabetes_management": 0.95,
}

// MealShare is the fraction of daily calories planned per meal type.
var MealShare = map[string]float64{
	"breakfast": 0.25,
	"lunch":     0.35,
	"dinner":    0.30,
	"snack":     0.10,
}

// MealTypes lists meal types in serving order.
var MealTypes = []string{"breakfast", "lunch", "dinner", "snack"}

// BMR uses the Mifflin-St Jeor equation. ok is false when age, height,
// weight or gender is missing.
func BMR(p *models.Profile) (bmr float64, ok bool) {
	if p == nil || p.Age == nil || p.Height == nil || p.Weight == nil || p.Gender == "" {
		return 0, false
	}
	bmr = 10*(*p.Weight) + 6.25*(*p.Height) - 5*float64(*p.Age)
	if strings.EqualFold(p.Gender, "male") {
		return bmr + 5, true
	}
	return bmr - 161, true
}

// TDEE scales BMR by the activity multiplier, sedentary when unknown.
func TDEE(p *models.Profile) (float64, bool) {
	bmr, ok := BMR(p)
	if !ok {
		return 0, false
	}
	mult, found := activityMultipliers[p.ActivityLevel]
	if !found {
		mult = activityMultipliers["sedentary"]
	}
	return bmr * mult, true
}

// DailyTargets derives calorie and macro targets for goal. An empty goal
// falls back to the profile's health goal and then to maintenance.
func DailyTargets(p *models.Profile, goal string) models.NutritionInfo {
	tdee, ok := TDEE(p)
	if !ok {
		tdee = DefaultTDEE
	}
	if goal == "" && p != nil {
		goal = p.HealthGoal
	}
	if goal == "" {
		goal = "maintenance"
	}
	factor, found := goalCalorieFactor[goal]
	if !found {
		factor = 1.0
	}
	calories := tdee * factor

	proteinRatio, carbRatio, fatRatio := 0.25, 0.45, 0.30
	switch goal {
	case "muscle_gain":
		proteinRatio, carbRatio = 0.30, 0.40
	case "weight_loss":
		proteinRatio, carbRatio = 0.35, 0.35
	}

	return models.NutritionInfo{
		Calories:      calories,
		Protein:       calories * proteinRatio / 4,
		Carbohydrates: calories * carbRatio / 4,
		Fat:           calories * fatRatio / 9,
		Fiber:         DefaultFiber,
	}
}

// Progress returns consumed/target as a percentage clamped to [0, 100].
// A non-positive target yields 0.
func Progress(consumed, target float64) float64 {
	if target <= 0 || consumed <= 0 {
		return 0
	}
	return math.Min(100, consumed/target*100)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// TodaysMeals returns the meals of all plans dated on day, ordered by
// meal type.
func TodaysMeals(plans []models.MealPlan, day time.Time, loc *time.Location) []models.Meal {
	var out []models.Meal
	for _, plan := range plans {
		for _, meal := range plan.Meals {
			if SameDay(meal.Date.Time, day, loc) {
				out = append(out, meal)
			}
		}
	}
	order := make(map[string]int, len(MealTypes))
	for i, mt := range MealTypes {
		order[mt] = i
	}
	rank := func(m models.Meal) int {
		if r, ok := order[m.MealType]; ok {
			return r
		}
		return len(MealTypes)
	}
	sort.SliceStable(out, func(i, j int) bool { return rank(out[i]) < rank(out[j]) })
	return out
}

// ActivePlan returns the first plan whose range covers day.
func ActivePlan(plans []models.MealPlan, day time.Time, loc *time.Location) (*models.MealPlan, bool) {
	y, m, d := day.In(loc).Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	for i := range plans {
		p := &plans[i]
		if p.StartDate.Before(dayEnd) && !p.EndDate.Before(dayStart) {
			return p, true
		}
	}
	return nil, false
}

// Sum totals the nutrition of meals that carry it.
func Sum(meals []models.Meal) models.NutritionInfo {
	var total models.NutritionInfo
	for _, m := range meals {
		if m.Nutrition != nil {
			total = total.Add(*m.Nutrition)
		}
	}
	return total
}
