package models

import "strings"

// Token is the body returned by /auth/login and /auth/register.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (t *Token) Validate() error {
	if strings.TrimSpace(t.AccessToken) == "" {
		return fieldError("token", "access_token")
	}
	return nil
}

// LoginRequest is the JSON body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the JSON body for POST /auth/register.
type RegisterRequest struct {
	Email             string   `json:"email"`
	Password          string   `json:"password"`
	FirstName         string   `json:"first_name,omitempty"`
	LastName          string   `json:"last_name,omitempty"`
	Age               *int     `json:"age,omitempty"`
	Gender            string   `json:"gender,omitempty"`
	Height            *float64 `json:"height,omitempty"`
	Weight            *float64 `json:"weight,omitempty"`
	ActivityLevel     string   `json:"activity_level,omitempty"`
	MedicalConditions []string `json:"medical_conditions,omitempty"`
	FoodPreferences   []string `json:"food_preferences,omitempty"`
	Allergies         []string `json:"allergies,omitempty"`
	HealthGoal        string   `json:"health_goal,omitempty"`
	TargetWeight      *float64 `json:"target_weight,omitempty"`
}

// Profile is the user representation served by /users/profile and /auth/me.
type Profile struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	Age               *int       `json:"age"`
	Gender            string     `json:"gender"`
	Height            *float64   `json:"height"`
	Weight            *float64   `json:"weight"`
	ActivityLevel     string     `json:"activity_level"`
	MedicalConditions []string   `json:"medical_conditions"`
	FoodPreferences   []string   `json:"food_preferences"`
	Allergies         []string   `json:"allergies"`
	HealthGoal        string     `json:"health_goal"`
	TargetWeight      *float64   `json:"target_weight"`
	CreatedAt         *Timestamp `json:"created_at"`
}

func (p *Profile) Validate() error {
	if p.ID == "" {
		return fieldError("profile", "id")
	}
	if p.Email == "" {
		return fieldError("profile", "email")
	}
	return nil
}

// DisplayName prefers the first name and falls back to the email.
func (p *Profile) DisplayName() string {
	if p.FirstName != "" {
		return p.FirstName
	}
	return p.Email
}

// ProfileUpdate is the body for PUT /users/profile. Nil fields are left
// untouched by the backend. A list pointing at an empty slice clears it.
type ProfileUpdate struct {
	FirstName         *string   `json:"first_name,omitempty"`
	LastName          *string   `json:"last_name,omitempty"`
	Age               *int      `json:"age,omitempty"`
	Gender            *string   `json:"gender,omitempty"`
	Height            *float64  `json:"height,omitempty"`
	Weight            *float64  `json:"weight,omitempty"`
	ActivityLevel     *string   `json:"activity_level,omitempty"`
	MedicalConditions *[]string `json:"medical_conditions,omitempty"`
	FoodPreferences   *[]string `json:"food_preferences,omitempty"`
	Allergies         *[]string `json:"allergies,omitempty"`
	HealthGoal        *string   `json:"health_goal,omitempty"`
	TargetWeight      *float64  `json:"target_weight,omitempty"`
}
