package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestTimestampUnmarshal(t *testing.T) {
	type testCase struct {
		name     string
		input    string
		expected time.Time
		errIs    error
	}
	testCases := []testCase{
		{name: "rfc3339", input: `"2024-03-01T08:30:00Z"`, expected: time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)},
		{name: "offset", input: `"2024-03-01T10:30:00+02:00"`, expected: time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)},
		{name: "naive_micros", input: `"2024-03-01T08:30:00.123456"`, expected: time.Date(2024, 3, 1, 8, 30, 0, 123456000, time.UTC)},
		{name: "naive_seconds", input: `"2024-03-01T08:30:00"`, expected: time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)},
		{name: "date_only", input: `"2024-03-01"`, expected: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{name: "escaped", input: `"2024-03-01T10:30:00\u002B02:00"`, expected: time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)},
		{name: "escaped_date", input: `"2024\u002D03\u002D01"`, expected: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{name: "null", input: `null`},
		{name: "number", input: `1709281800`, errIs: ErrInvalidPayload},
		{name: "garbage", input: `"yesterday"`, errIs: ErrInvalidPayload},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var ts Timestamp
			err := json.Unmarshal([]byte(tc.input), &ts)
			if tc.errIs != nil {
				assert.ErrorIs(t, err, tc.errIs)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.expected.Equal(ts.Time), "got %v", ts.Time)
		})
	}
}

func TestTimestampMarshal(t *testing.T) {
	data, err := json.Marshal(struct {
		At   Timestamp  `json:"at"`
		Zero Timestamp  `json:"zero"`
		Ptr  *Timestamp `json:"ptr"`
	}{At: Timestamp{Time: time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("", 3600))}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":"2024-03-01T09:00:00Z","zero":null,"ptr":null}`, string(data))
}

func TestFormatISO(t *testing.T) {
	tm := time.Date(2024, 1, 15, 9, 30, 5, 123456789, time.FixedZone("", -5*3600))
	assert.Equal(t, "2024-01-15T14:30:05.123Z", FormatISO(tm))
}

func TestValidate(t *testing.T) {
	neg := NutritionInfo{Calories: -1}
	type testCase struct {
		name  string
		value Validator
		ok    bool
	}
	testCases := []testCase{
		{name: "token_ok", value: &Token{AccessToken: "abc", TokenType: "bearer"}, ok: true},
		{name: "token_blank", value: &Token{AccessToken: "  "}},
		{name: "profile_ok", value: &Profile{ID: "u1", Email: "a@b.c"}, ok: true},
		{name: "profile_no_email", value: &Profile{ID: "u1"}},
		{name: "nutrition_negative", value: &neg},
		{name: "meal_no_type", value: &Meal{Name: "Soup"}},
		{name: "plan_no_dates", value: &MealPlan{ID: "p1"}},
		{
			name: "plan_bad_meal",
			value: &MealPlan{
				ID: "p1", StartDate: Timestamp{Time: time.Now()}, EndDate: Timestamp{Time: time.Now()},
				Meals: []Meal{{Name: "Soup", MealType: "lunch", Nutrition: &neg}},
			},
		},
		{name: "list_ok", value: MealList{{Name: "Soup", MealType: "lunch"}}, ok: true},
		{name: "plan_list_bad", value: MealPlanList{{ID: ""}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.value.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestNutritionAdd(t *testing.T) {
	sugar := 4.0
	a := NutritionInfo{Calories: 100, Protein: 5, Sugar: &sugar}
	b := NutritionInfo{Calories: 50, Fat: 2}
	sum := a.Add(b)
	assert.Equal(t, 150.0, sum.Calories)
	assert.Equal(t, 5.0, sum.Protein)
	assert.Equal(t, 2.0, sum.Fat)
	require.NotNil(t, sum.Sugar)
	assert.Equal(t, 4.0, *sum.Sugar)
	assert.Nil(t, sum.Sodium)
}

func TestProfileDecodesBackendShape(t *testing.T) {
	body := `{"id":"u1","email":"a@b.c","first_name":null,"last_name":"Lovelace","age":36,
		"gender":"female","height":170.2,"weight":null,"activity_level":"sedentary",
		"medical_conditions":[],"food_preferences":["vegetarian"],"allergies":null,
		"health_goal":"maintenance","target_weight":null,"created_at":"2024-01-02T03:04:05.678901"}`
	var p Profile
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	require.NoError(t, p.Validate())
	assert.Equal(t, "a@b.c", p.DisplayName())
	require.NotNil(t, p.Age)
	assert.Equal(t, 36, *p.Age)
	assert.Nil(t, p.Weight)
	assert.Equal(t, []string{"vegetarian"}, p.FoodPreferences)
	require.NotNil(t, p.CreatedAt)
	assert.Equal(t, 2024, p.CreatedAt.Year())
}

func TestArchivedPlanBSON(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	doc := ArchivedPlan{
		UserID: "u1",
		Goal:   "weight_loss",
		Plan: MealPlan{
			ID:        "p1",
			UserID:    "u1",
			StartDate: Timestamp{Time: start},
			EndDate:   Timestamp{Time: start.AddDate(0, 0, 6)},
			Meals:     []Meal{{ID: "m1", Name: "Soup", MealType: "lunch", Date: Timestamp{Time: start.Add(12 * time.Hour)}}},
		},
		ArchivedAt: start.Add(time.Hour),
	}
	data, err := bson.Marshal(doc)
	require.NoError(t, err)

	assert.Equal(t, "p1", bson.Raw(data).Lookup("plan", "plan_id").StringValue())

	var back ArchivedPlan
	require.NoError(t, bson.Unmarshal(data, &back))
	assert.Equal(t, "p1", back.Plan.ID)
	assert.True(t, start.Equal(back.Plan.StartDate.Time))
	require.Len(t, back.Plan.Meals, 1)
	assert.True(t, start.Add(12*time.Hour).Equal(back.Plan.Meals[0].Date.Time))
	assert.True(t, back.ID.IsZero())
}
