package nutrition

import "strings"

// Per100g holds macro values per 100 grams of a food.
type Per100g struct {
	Calories float64
	Protein  float64
	Carbs    float64
	Fats     float64
}

// genericPer100g is a protein-forward estimate used when a food matches
// neither the external database nor the static table.
var genericPer100g = Per100g{Calories: 150, Protein: 15, Carbs: 10, Fats: 6}

// staticPer100g covers common foods for offline estimation when the external
// database produces no confident match. Values are typical cooked weights.
var staticPer100g = map[string]Per100g{
	"chicken":      {165, 31, 0, 3.6},
	"turkey":       {189, 29, 0, 7},
	"beef":         {250, 26, 0, 15},
	"steak":        {271, 25, 0, 19},
	"pork":         {242, 27, 0, 14},
	"salmon":       {208, 20, 0, 13},
	"tuna":         {132, 28, 0, 1},
	"fish":         {140, 25, 0, 4},
	"shrimp":       {99, 24, 0, 0.3},
	"egg":          {155, 13, 1.1, 11},
	"tofu":         {76, 8, 1.9, 4.8},
	"rice":         {130, 2.7, 28, 0.3},
	"pasta":        {131, 5, 25, 1.1},
	"bread":        {265, 9, 49, 3.2},
	"potato":       {77, 2, 17, 0.1},
	"oats":         {389, 17, 66, 7},
	"quinoa":       {120, 4.4, 21, 1.9},
	"beans":        {127, 8.7, 23, 0.5},
	"lentils":      {116, 9, 20, 0.4},
	"chickpeas":    {164, 8.9, 27, 2.6},
	"broccoli":     {34, 2.8, 7, 0.4},
	"spinach":      {23, 2.9, 3.6, 0.4},
	"carrot":       {41, 0.9, 10, 0.2},
	"tomato":       {18, 0.9, 3.9, 0.2},
	"cucumber":     {15, 0.7, 3.6, 0.1},
	"lettuce":      {15, 1.4, 2.9, 0.2},
	"salad":        {20, 1.2, 3.7, 0.2},
	"avocado":      {160, 2, 9, 15},
	"apple":        {52, 0.3, 14, 0.2},
	"banana":       {89, 1.1, 23, 0.3},
	"orange":       {47, 0.9, 12, 0.1},
	"grapes":       {69, 0.7, 18, 0.2},
	"strawberries": {32, 0.7, 7.7, 0.3},
	"blueberries":  {57, 0.7, 14, 0.3},
	"milk":         {61, 3.2, 4.8, 3.3},
	"yogurt":       {59, 10, 3.6, 0.4},
	"cheese":       {402, 25, 1.3, 33},
	"butter":       {717, 0.9, 0.1, 81},
	"almonds":      {579, 21, 22, 50},
	"walnuts":      {654, 15, 14, 65},
	"peanut":       {588, 25, 20, 50},
	"chocolate":    {546, 4.9, 61, 31},
	"pizza":        {266, 11, 33, 10},
	"burger":       {295, 17, 24, 14},
	"fries":        {312, 3.4, 41, 15},
}

// staticLookup returns the table entry for the first matching food keyword
// in the name.
func staticLookup(name string) (Per100g, bool) {
	for _, tok := range tokens(name) {
		if v, ok := staticPer100g[tok]; ok {
			return v, true
		}
	}
	// Plural/singular mismatches: "eggs" vs "egg".
	for _, tok := range tokens(name) {
		if v, ok := staticPer100g[strings.TrimSuffix(tok, "s")]; ok {
			return v, true
		}
	}
	return Per100g{}, false
}
