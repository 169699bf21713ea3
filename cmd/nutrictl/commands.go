package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/xeze-org/nutriplan-web/internal/apiclient"
	"github.com/xeze-org/nutriplan-web/internal/models"
	"github.com/xeze-org/nutriplan-web/internal/nutrition"
)

const dayLayout = "2006-01-02"

type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func isUsage(err error) bool {
	var u *usageError
	return errors.As(err, &u) || errors.Is(err, flag.ErrHelp)
}

type command func(ctx context.Context, args []string) error

type app struct {
	api *apiclient.Client
	out io.Writer
	log *slog.Logger
	loc *time.Location
}

func newApp(apiURL, stateDir string, out io.Writer, logger *slog.Logger) (*app, error) {
	if stateDir == "" {
		dir, err := apiclient.DefaultStateDir()
		if err != nil {
			return nil, err
		}
		stateDir = dir
	}
	tokens := apiclient.NewFileTokenStore(stateDir)
	return &app{
		api: apiclient.New(apiURL, tokens, apiclient.WithLogger(logger)),
		out: out,
		log: logger,
		loc: time.Local,
	}, nil
}

func (a *app) commands() map[string]command {
	return map[string]command{
		"login":     a.login,
		"register":  a.register,
		"logout":    a.logout,
		"profile":   a.profile,
		"plans":     a.plans,
		"generate":  a.generate,
		"meal":      a.meal,
		"recommend": a.recommend,
		"analyze":   a.analyze,
	}
}

// explain turns a 401 into a login hint and drops the stale token.
func (a *app) explain(ctx context.Context, err error) string {
	if !apiclient.IsUnauthorized(err) {
		return err.Error()
	}
	if tok, _ := a.api.Token(ctx); tok == "" {
		return err.Error()
	}
	if clearErr := a.api.SetToken(ctx, ""); clearErr != nil {
		a.log.Warn("clear token", "error", clearErr)
	}
	return err.Error() + " (session expired, run: nutrictl login)"
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseDay(name, s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dayLayout, s, loc)
	if err != nil {
		return time.Time{}, usagef("-%s must be YYYY-MM-DD", name)
	}
	return t, nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func passwordFlag(fs *flag.FlagSet) *string {
	return fs.String("password", os.Getenv("NUTRIPLAN_PASSWORD"), "password (or NUTRIPLAN_PASSWORD)")
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "account email")
	password := passwordFlag(fs)
	if err := fs.Parse(args); err != nil {
		return usagef("login: %v", err)
	}
	if *email == "" || *password == "" {
		return usagef("login: -email and -password are required")
	}
	if _, err := a.api.Login(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged in as", *email)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := newFlags("register")
	var req models.RegisterRequest
	fs.StringVar(&req.Email, "email", "", "account email")
	password := passwordFlag(fs)
	fs.StringVar(&req.FirstName, "first-name", "", "first name")
	fs.StringVar(&req.LastName, "last-name", "", "last name")
	fs.StringVar(&req.Gender, "gender", "", "gender")
	fs.StringVar(&req.ActivityLevel, "activity", "", "activity level, e.g. moderately_active")
	fs.StringVar(&req.HealthGoal, "goal", "", "health goal, e.g. weight_loss")
	age := fs.Int("age", 0, "age in years")
	height := fs.Float64("height", 0, "height in cm")
	weight := fs.Float64("weight", 0, "weight in kg")
	allergies := fs.String("allergies", "", "comma separated allergies")
	if err := fs.Parse(args); err != nil {
		return usagef("register: %v", err)
	}
	req.Password = *password
	if req.Email == "" || req.Password == "" {
		return usagef("register: -email and -password are required")
	}
	for _, v := range []float64{*height, *weight} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return usagef("register: -height and -weight must be finite numbers")
		}
	}
	if *age > 0 {
		req.Age = age
	}
	if *height > 0 {
		req.Height = height
	}
	if *weight > 0 {
		req.Weight = weight
	}
	req.Allergies = splitCSV(*allergies)

	if _, err := a.api.Register(ctx, req); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Registered and logged in as", req.Email)
	return nil
}

func (a *app) logout(ctx context.Context, _ []string) error {
	if err := a.api.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *app) profile(ctx context.Context, _ []string) error {
	p, err := a.api.GetProfile(ctx)
	if err != nil {
		return err
	}
	return a.printJSON(p)
}

func (a *app) plans(ctx context.Context, args []string) error {
	fs := newFlags("plans")
	startFlag := fs.String("start", "", "only plans starting on or after YYYY-MM-DD")
	endFlag := fs.String("end", "", "only plans ending on or before YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return usagef("plans: %v", err)
	}
	start, err := parseDay("start", *startFlag, a.loc)
	if err != nil {
		return err
	}
	end, err := parseDay("end", *endFlag, a.loc)
	if err != nil {
		return err
	}
	if !end.IsZero() {
		end = end.AddDate(0, 0, 1).Add(-time.Millisecond)
	}

	plans, err := a.api.GetMealPlans(ctx, start, end)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		fmt.Fprintln(a.out, "No meal plans")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tEND\tGOAL\tMEALS\tKCAL/DAY")
	for _, p := range plans {
		kcal := "-"
		if p.DailyNutrition != nil {
			kcal = fmt.Sprintf("%.0f", p.DailyNutrition.Calories)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			p.ID, p.StartDate.In(a.loc).Format(dayLayout), p.EndDate.In(a.loc).Format(dayLayout),
			p.Goal, len(p.Meals), kcal)
	}
	return tw.Flush()
}

func (a *app) generate(ctx context.Context, args []string) error {
	fs := newFlags("generate")
	startFlag := fs.String("start", "", "first day, YYYY-MM-DD (default today)")
	days := fs.Int("days", 7, "plan length in days")
	goal := fs.String("goal", "", "goal override, e.g. muscle_gain")
	if err := fs.Parse(args); err != nil {
		return usagef("generate: %v", err)
	}
	if *days < 2 || *days > 30 {
		return usagef("generate: -days must be between 2 and 30")
	}
	start, err := parseDay("start", *startFlag, a.loc)
	if err != nil {
		return err
	}
	if start.IsZero() {
		y, m, d := time.Now().In(a.loc).Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, a.loc)
	}
	end := start.AddDate(0, 0, *days-1)

	plan, err := a.api.GenerateMealPlan(ctx, start, end, *goal)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Generated plan %s (%s to %s, %d meals)\n",
		plan.ID, plan.StartDate.In(a.loc).Format(dayLayout), plan.EndDate.In(a.loc).Format(dayLayout), len(plan.Meals))
	return nil
}

func (a *app) recommend(ctx context.Context, args []string) error {
	fs := newFlags("recommend")
	mealType := fs.String("type", "", "breakfast, lunch, dinner or snack")
	dateFlag := fs.String("date", "", "YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return usagef("recommend: %v", err)
	}
	if *mealType == "" {
		return usagef("recommend: -type is required")
	}
	date, err := parseDay("date", *dateFlag, a.loc)
	if err != nil {
		return err
	}

	meals, err := a.api.GetRecommendations(ctx, *mealType, date)
	if err != nil {
		return err
	}
	for _, m := range meals {
		kcal := ""
		if m.Nutrition != nil {
			kcal = fmt.Sprintf(" (%.0f kcal)", m.Nutrition.Calories)
		}
		fmt.Fprintf(a.out, "- %s%s\n", m.Name, kcal)
	}
	return nil
}

// meal logs a single meal; remaining arguments are "name, quantity[, unit]"
// foods whose analyzed nutrition is attached to the meal.
func (a *app) meal(ctx context.Context, args []string) error {
	fs := newFlags("meal")
	name := fs.String("name", "", "meal name")
	mealType := fs.String("type", "", "breakfast, lunch, dinner or snack")
	dateFlag := fs.String("date", "", "YYYY-MM-DD (default today)")
	clock := fs.String("time", "12:00", "HH:MM")
	desc := fs.String("desc", "", "description, markdown allowed")
	if err := fs.Parse(args); err != nil {
		return usagef("meal: %v", err)
	}
	if *name == "" || !slices.Contains(nutrition.MealTypes, *mealType) {
		return usagef("meal: -name and -type (breakfast, lunch, dinner or snack) are required")
	}
	day := *dateFlag
	if day == "" {
		day = time.Now().In(a.loc).Format(dayLayout)
	}
	at, err := time.ParseInLocation(dayLayout+" 15:04", day+" "+*clock, a.loc)
	if err != nil {
		return usagef("meal: -date must be YYYY-MM-DD and -time HH:MM")
	}

	req := models.MealCreate{
		Name:        *name,
		Description: *desc,
		MealType:    *mealType,
		Date:        models.Timestamp{Time: at},
		Foods:       []models.FoodItemCreate{},
	}
	if fs.NArg() > 0 {
		if req.Foods, err = nutrition.ParseFoods(strings.Join(fs.Args(), "\n")); err != nil {
			return usagef("meal: %v", err)
		}
		if req.Nutrition, err = a.api.AnalyzeNutrition(ctx, req.Foods); err != nil {
			return err
		}
	}

	created, err := a.api.CreateMeal(ctx, req)
	if err != nil {
		return err
	}
	kcal := ""
	if created.Nutrition != nil {
		kcal = fmt.Sprintf(", %.0f kcal", created.Nutrition.Calories)
	}
	fmt.Fprintf(a.out, "Logged %s %q on %s%s\n", created.MealType, created.Name, created.Date.In(a.loc).Format(dayLayout), kcal)
	return nil
}

// analyze takes one "name, quantity[, unit]" food per argument.
func (a *app) analyze(ctx context.Context, args []string) error {
	foods, err := nutrition.ParseFoods(strings.Join(args, "\n"))
	if err != nil {
		return usagef("analyze: %v", err)
	}
	info, err := a.api.AnalyzeNutrition(ctx, foods)
	if err != nil {
		return err
	}
	return a.printJSON(info)
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
