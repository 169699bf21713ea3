package web

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeze-org/nutriplan-web/internal/models"
)

func TestParseFoodsInputError(t *testing.T) {
	foods, err := parseFoods("chicken breast, 150\nrice, 1, cup")
	require.NoError(t, err)
	assert.Equal(t, []models.FoodItemCreate{
		{Name: "chicken breast", Quantity: 150, Unit: "g"},
		{Name: "rice", Quantity: 1, Unit: "cup"},
	}, foods)

	_, err = parseFoods("apple, 10\npear, lots")
	var inputErr *inputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "line 2: quantity must be a positive number", err.Error())
	assert.Equal(t, http.StatusBadRequest, pageStatus(err))
}

func TestGenerateForm(t *testing.T) {
	form := url.Values{"start": {"2024-03-01"}, "end": {"2024-03-30"}, "goal": {" weight_loss "}}
	start, end, goal, err := generateForm(form, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 3, 30, 0, 0, 0, 0, time.UTC), end)
	assert.Equal(t, "weight_loss", goal)

	_, _, _, err = generateForm(url.Values{"start": {"2024-03-01"}, "end": {"2024-03-31"}}, time.UTC)
	assert.EqualError(t, err, "Meal plan cannot exceed 30 days")

	_, _, _, err = generateForm(url.Values{"start": {"2024-03-01"}}, time.UTC)
	assert.EqualError(t, err, "Start and end dates are required")
}

func TestPlanDays(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	type testCase struct {
		name     string
		start    time.Time
		end      time.Time
		expected int
	}
	testCases := []testCase{
		{name: "next_day", start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), end: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), expected: 2},
		{name: "month", start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), end: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), expected: 31},
		{name: "dst_change", start: time.Date(2024, 3, 30, 0, 0, 0, 0, berlin), end: time.Date(2024, 4, 1, 0, 0, 0, 0, berlin), expected: 3},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, planDays(tc.start, tc.end))
		})
	}
}

func TestEndOfDay(t *testing.T) {
	day := time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 21, 23, 59, 59, 999_000_000, time.UTC), endOfDay(day))
	assert.True(t, endOfDay(time.Time{}).IsZero())
}

func TestProfileUpdateFromForm(t *testing.T) {
	form := url.Values{
		"first_name":       {" Ada "},
		"last_name":        {""},
		"age":              {"36"},
		"height":           {"170.5"},
		"allergies":        {"peanuts, , shellfish"},
		"food_preferences": {""},
	}
	upd, err := profileUpdateFromForm(form)
	require.NoError(t, err)

	require.NotNil(t, upd.FirstName)
	assert.Equal(t, "Ada", *upd.FirstName)
	assert.Nil(t, upd.LastName)
	require.NotNil(t, upd.Age)
	assert.Equal(t, 36, *upd.Age)
	require.NotNil(t, upd.Height)
	assert.InDelta(t, 170.5, *upd.Height, 1e-9)
	assert.Nil(t, upd.Weight)
	require.NotNil(t, upd.Allergies)
	assert.Equal(t, []string{"peanuts", "shellfish"}, *upd.Allergies)
	require.NotNil(t, upd.FoodPreferences)
	assert.Equal(t, []string{}, *upd.FoodPreferences)
	assert.Nil(t, upd.MedicalConditions)

	_, err = profileUpdateFromForm(url.Values{"target_weight": {"heavy"}})
	assert.EqualError(t, err, "Target weight must be a number")
}

func TestProfileUpdateClearsLists(t *testing.T) {
	upd, err := profileUpdateFromForm(url.Values{"allergies": {""}, "food_preferences": {"vegan"}})
	require.NoError(t, err)
	body, err := json.Marshal(upd)
	require.NoError(t, err)
	assert.JSONEq(t, `{"allergies":[],"food_preferences":["vegan"]}`, string(body))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Weight Loss", goalLabel("weight_loss"))
	assert.Equal(t, "Diabetes Management", goalLabel("diabetes_management"))
	assert.Equal(t, "Maintenance", goalLabel(""))
	assert.Equal(t, "Snack", mealTypeLabel("snack"))
	assert.Equal(t, "brunch", mealTypeLabel("brunch"))
}

func TestRenderMarkdownEscapesHTML(t *testing.T) {
	out := string(renderMarkdown("**bold** <script>alert(1)</script>"))
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.NotContains(t, out, "<script>")
}
