package nutrition

// Source values for FoodNutrition.
const (
	SourceDatabase = "database"
	SourceEstimate = "estimate"
)

// IdentifiedFood is the output of the vision pass: a food name, a rough
// portion description, and the model's confidence. Quantities are resolved
// deterministically afterwards; the AI is only trusted to name foods.
type IdentifiedFood struct {
	Name         string  `json:"name"`
	Portion      string  `json:"portion"`
	PortionGrams float64 `json:"portion_grams,omitempty"`
	Confidence   float64 `json:"confidence"`
}

// FoodNutrition is an identified food with resolved macros. Macro fields are
// non-negative integers.
type FoodNutrition struct {
	IdentifiedFood
	Grams      float64 `json:"grams"`
	Calories   int     `json:"calories"`
	Protein    int     `json:"protein"`
	Carbs      int     `json:"carbs"`
	Fats       int     `json:"fats"`
	Source     string  `json:"source"`
	ExternalID string  `json:"external_id,omitempty"`
}

// MacroTotals aggregates macros across a meal. Calories are derived from the
// macros whenever the energy-balance identity is violated; the macros are the
// trusted signal.
type MacroTotals struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Carbs    int `json:"carbs"`
	Fats     int `json:"fats"`
}

// MealFood is one food item in a text meal analysis as produced by the model.
type MealFood struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
	Calories int    `json:"calories"`
	Protein  int    `json:"protein"`
	Carbs    int    `json:"carbs"`
	Fats     int    `json:"fats"`
}

// TextMealAnalysis is a reconciled text meal: per-item macros plus totals.
type TextMealAnalysis struct {
	Foods  []MealFood  `json:"foods"`
	Totals MacroTotals `json:"totals"`
}

// EnrichedMeal is the output of the enrichment pipeline. DatabaseMatched
// reports whether any food matched the external database; it is a
// data-quality signal surfaced to the caller, not hidden.
type EnrichedMeal struct {
	Foods           []FoodNutrition `json:"foods"`
	Totals          MacroTotals     `json:"totals"`
	DatabaseMatched bool            `json:"database_matched"`
}
