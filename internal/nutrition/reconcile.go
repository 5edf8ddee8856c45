package nutrition

import (
	"encoding/json"
	"math"
)

const (
	itemToleranceFloor = 15
	itemToleranceRatio = 0.10
	totalTolerance     = 20
)

// ExpectedCalories applies the energy-balance identity: 4 kcal per gram of
// protein and carbs, 9 per gram of fat.
func ExpectedCalories(protein, carbs, fats int) int {
	return protein*4 + carbs*4 + fats*9
}

// rawAnalysis mirrors what the model actually emits: numbers may be floats,
// negative, or missing.
type rawAnalysis struct {
	Foods  []rawFood  `json:"foods"`
	Totals *rawTotals `json:"totals"`
}

type rawFood struct {
	Name     string  `json:"name"`
	Quantity string  `json:"quantity"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
}

type rawTotals struct {
	Calories float64 `json:"calories"`
}

// Reconcile validates and numerically corrects a model-produced meal payload.
// It returns nil when the payload lacks the minimum shape (a foods list and a
// totals object): malformed model output is an expected occurrence handled by
// fallback, not a program fault.
//
// Per item, negative macros are clamped to zero and rounded; calories are
// replaced by the identity value when they drift beyond
// max(15, 10% of expected). Totals are re-summed from the corrected items and
// the identity re-checked with a 20 kcal tolerance to absorb compounded
// rounding. Already-consistent input passes through unchanged.
func Reconcile(raw []byte) *TextMealAnalysis {
	var parsed rawAnalysis
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil
	}
	if parsed.Foods == nil || parsed.Totals == nil {
		return nil
	}

	out := &TextMealAnalysis{Foods: make([]MealFood, 0, len(parsed.Foods))}
	for _, f := range parsed.Foods {
		item := MealFood{
			Name:     f.Name,
			Quantity: f.Quantity,
			Calories: clampRound(f.Calories),
			Protein:  clampRound(f.Protein),
			Carbs:    clampRound(f.Carbs),
			Fats:     clampRound(f.Fats),
		}
		expected := ExpectedCalories(item.Protein, item.Carbs, item.Fats)
		if expected > 0 && outsideTolerance(item.Calories, expected, itemToleranceFloor, itemToleranceRatio) {
			item.Calories = expected
		}
		out.Foods = append(out.Foods, item)
		out.Totals.Calories += item.Calories
		out.Totals.Protein += item.Protein
		out.Totals.Carbs += item.Carbs
		out.Totals.Fats += item.Fats
	}

	expected := ExpectedCalories(out.Totals.Protein, out.Totals.Carbs, out.Totals.Fats)
	if expected > 0 && abs(out.Totals.Calories-expected) > totalTolerance {
		out.Totals.Calories = expected
	}
	return out
}

func outsideTolerance(calories, expected, floor int, ratio float64) bool {
	tolerance := float64(floor)
	if r := ratio * float64(expected); r > tolerance {
		tolerance = r
	}
	return math.Abs(float64(calories-expected)) > tolerance
}

func clampRound(v float64) int {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return int(math.Round(v))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
