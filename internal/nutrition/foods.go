package nutrition

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xeze-org/nutriplan-web/internal/models"
)

// DefaultUnit applies to food lines without a unit.
const DefaultUnit = "g"

// ParseFoods reads one food per line as "name, quantity[, unit]". Blank
// lines are skipped.
func ParseFoods(text string) ([]models.FoodItemCreate, error) {
	var foods []models.FoodItemCreate
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		food, err := parseFoodLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		foods = append(foods, food)
	}
	if len(foods) == 0 {
		return nil, errors.New("enter at least one food")
	}
	return foods, nil
}

func parseFoodLine(line string) (models.FoodItemCreate, error) {
	parts := strings.Split(line, ",")
	for j := range parts {
		parts[j] = strings.TrimSpace(parts[j])
	}
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return models.FoodItemCreate{}, errors.New(`expected "name, quantity[, unit]"`)
	}
	qty, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || qty <= 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
		return models.FoodItemCreate{}, errors.New("quantity must be a positive number")
	}
	food := models.FoodItemCreate{Name: parts[0], Quantity: qty, Unit: DefaultUnit}
	if len(parts) == 3 && parts[2] != "" {
		food.Unit = parts[2]
	}
	return food, nil
}
