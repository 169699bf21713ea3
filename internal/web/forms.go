package web

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/xeze-org/nutriplan-web/internal/auth"
	"github.com/xeze-org/nutriplan-web/internal/models"
	"github.com/xeze-org/nutriplan-web/internal/nutrition"
)

const dayLayout = "2006-01-02"

// inputError is a form value the page rejects before calling the backend.
type inputError struct {
	msg string
}

func (e *inputError) Error() string { return e.msg }

func invalidInput(format string, args ...any) error {
	return &inputError{msg: fmt.Sprintf(format, args...)}
}

// parseDay reads a YYYY-MM-DD value as midnight in loc. Blank input gives the
// zero time.
func parseDay(field, s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dayLayout, s, loc)
	if err != nil {
		return time.Time{}, invalidInput("%s must be a date (YYYY-MM-DD)", field)
	}
	return t, nil
}

// endOfDay returns the last millisecond of t's day. The zero time stays zero.
func endOfDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.AddDate(0, 0, 1).Add(-time.Millisecond)
}

// parseFoods reads one food per line as "name, quantity[, unit]".
func parseFoods(text string) ([]models.FoodItemCreate, error) {
	foods, err := nutrition.ParseFoods(text)
	if err != nil {
		return nil, &inputError{msg: err.Error()}
	}
	return foods, nil
}

func optionalString(form url.Values, key string) *string {
	v := strings.TrimSpace(form.Get(key))
	if v == "" {
		return nil
	}
	return &v
}

// splitList reads a comma separated list. Fields missing from the form give
// nil so the backend keeps its value; a blank field clears the list.
func splitList(form url.Values, key string) *[]string {
	if _, ok := form[key]; !ok {
		return nil
	}
	out := []string{}
	for _, part := range strings.Split(form.Get(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return &out
}

func profileUpdateFromForm(form url.Values) (models.ProfileUpdate, error) {
	upd := models.ProfileUpdate{
		FirstName:         optionalString(form, "first_name"),
		LastName:          optionalString(form, "last_name"),
		Gender:            optionalString(form, "gender"),
		ActivityLevel:     optionalString(form, "activity_level"),
		HealthGoal:        optionalString(form, "health_goal"),
		MedicalConditions: splitList(form, "medical_conditions"),
		FoodPreferences:   splitList(form, "food_preferences"),
		Allergies:         splitList(form, "allergies"),
	}
	var err error
	if upd.Age, err = auth.OptionalInt(form.Get("age")); err != nil {
		return upd, invalidInput("Age must be a whole number")
	}
	if upd.Height, err = auth.OptionalFloat(form.Get("height")); err != nil {
		return upd, invalidInput("Height must be a number")
	}
	if upd.Weight, err = auth.OptionalFloat(form.Get("weight")); err != nil {
		return upd, invalidInput("Weight must be a number")
	}
	if upd.TargetWeight, err = auth.OptionalFloat(form.Get("target_weight")); err != nil {
		return upd, invalidInput("Target weight must be a number")
	}
	return upd, nil
}
