package models

import "fmt"

// NutritionInfo mirrors the backend nutrition schema. Sugar and sodium are
// optional on the wire.
type NutritionInfo struct {
	Calories      float64  `json:"calories"      bson:"calories"`
	Protein       float64  `json:"protein"       bson:"protein"`
	Carbohydrates float64  `json:"carbohydrates" bson:"carbohydrates"`
	Fat           float64  `json:"fat"           bson:"fat"`
	Fiber         float64  `json:"fiber"         bson:"fiber"`
	Sugar         *float64 `json:"sugar,omitempty"  bson:"sugar,omitempty"`
	Sodium        *float64 `json:"sodium,omitempty" bson:"sodium,omitempty"`
}

func (n *NutritionInfo) Validate() error {
	if n.Calories < 0 || n.Protein < 0 || n.Carbohydrates < 0 || n.Fat < 0 || n.Fiber < 0 {
		return fmt.Errorf("%w: nutrition: negative value", ErrInvalidPayload)
	}
	return nil
}

// Add returns the field-wise sum of n and o.
func (n NutritionInfo) Add(o NutritionInfo) NutritionInfo {
	return NutritionInfo{
		Calories:      n.Calories + o.Calories,
		Protein:       n.Protein + o.Protein,
		Carbohydrates: n.Carbohydrates + o.Carbohydrates,
		Fat:           n.Fat + o.Fat,
		Fiber:         n.Fiber + o.Fiber,
		Sugar:         addOptional(n.Sugar, o.Sugar),
		Sodium:        addOptional(n.Sodium, o.Sodium),
	}
}

func addOptional(a, b *float64) *float64 {
	if a == nil && b == nil {
		return nil
	}
	var sum float64
	if a != nil {
		sum += *a
	}
	if b != nil {
		sum += *b
	}
	return &sum
}

// FoodItemCreate is one entry of a nutrition analysis or meal creation.
type FoodItemCreate struct {
	Name      string         `json:"name"`
	Quantity  float64        `json:"quantity"`
	Unit      string         `json:"unit,omitempty"`
	Nutrition *NutritionInfo `json:"nutrition,omitempty"`
}

type FoodItem struct {
	ID        string         `json:"id"        bson:"id"`
	Name      string         `json:"name"      bson:"name"`
	Quantity  float64        `json:"quantity"  bson:"quantity"`
	Unit      string         `json:"unit"      bson:"unit"`
	Nutrition *NutritionInfo `json:"nutrition" bson:"nutrition,omitempty"`
}

// MealCreate is the body for POST /meal-plans/meals.
type MealCreate struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	MealType    string           `json:"meal_type"`
	Date        Timestamp        `json:"date"`
	Foods       []FoodItemCreate `json:"foods"`
	Nutrition   *NutritionInfo   `json:"nutrition,omitempty"`
}

type Meal struct {
	ID          string         `json:"id"          bson:"id"`
	Name        string         `json:"name"        bson:"name"`
	Description string         `json:"description" bson:"description"`
	MealType    string         `json:"meal_type"   bson:"meal_type"`
	Date        Timestamp      `json:"date"        bson:"date"`
	Foods       []FoodItem     `json:"foods"       bson:"foods"`
	Nutrition   *NutritionInfo `json:"nutrition"   bson:"nutrition,omitempty"`
}

func (m *Meal) Validate() error {
	if m.Name == "" {
		return fieldError("meal", "name")
	}
	if m.MealType == "" {
		return fieldError("meal", "meal_type")
	}
	if m.Nutrition != nil {
		return m.Nutrition.Validate()
	}
	return nil
}

// MealPlan is one element of GET /meal-plans and the result of generation.
type MealPlan struct {
	ID             string         `json:"id"              bson:"plan_id"`
	UserID         string         `json:"user_id"         bson:"user_id"`
	StartDate      Timestamp      `json:"start_date"      bson:"start_date"`
	EndDate        Timestamp      `json:"end_date"        bson:"end_date"`
	Goal           string         `json:"goal"            bson:"goal"`
	DailyNutrition *NutritionInfo `json:"daily_nutrition" bson:"daily_nutrition,omitempty"`
	Meals          []Meal         `json:"meals"           bson:"meals"`
	CreatedAt      *Timestamp     `json:"created_at"      bson:"created_at,omitempty"`
}

func (p *MealPlan) Validate() error {
	if p.ID == "" {
		return fieldError("meal plan", "id")
	}
	if p.StartDate.IsZero() {
		return fieldError("meal plan", "start_date")
	}
	if p.EndDate.IsZero() {
		return fieldError("meal plan", "end_date")
	}
	if p.DailyNutrition != nil {
		if err := p.DailyNutrition.Validate(); err != nil {
			return err
		}
	}
	for i := range p.Meals {
		if err := p.Meals[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// MealPlanList is the body of GET /meal-plans.
type MealPlanList []MealPlan

func (l MealPlanList) Validate() error {
	for i := range l {
		if err := l[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// MealList is the body of GET /recommendations.
type MealList []Meal

func (l MealList) Validate() error {
	for i := range l {
		if err := l[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NutritionAnalysisRequest is the body for POST /nutrition/analyze.
type NutritionAnalysisRequest struct {
	Foods []FoodItemCreate `json:"foods"`
}
