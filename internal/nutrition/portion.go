package nutrition

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// genericPortionGrams is the last-resort portion when neither the unit nor
// the food is recognized.
const genericPortionGrams = 100

// gramsPerUnit converts explicit measurement units to grams. Volume units
// assume water-like density; close enough for macro estimation.
var gramsPerUnit = map[string]float64{
	"g":           1,
	"gram":        1,
	"grams":       1,
	"kg":          1000,
	"oz":          28.35,
	"ounce":       28.35,
	"ounces":      28.35,
	"lb":          453.6,
	"lbs":         453.6,
	"pound":       453.6,
	"pounds":      453.6,
	"cup":         240,
	"cups":        240,
	"tbsp":        15,
	"tablespoon":  15,
	"tablespoons": 15,
	"tsp":         5,
	"teaspoon":    5,
	"teaspoons":   5,
	"ml":          1,
	"l":           1000,
}

// defaultPortionGrams maps food keywords (and bare size words) to a typical
// single-portion weight.
var defaultPortionGrams = map[string]float64{
	"chicken":  170,
	"turkey":   170,
	"steak":    225,
	"beef":     170,
	"pork":     170,
	"fish":     140,
	"salmon":   140,
	"tuna":     140,
	"shrimp":   100,
	"egg":      50,
	"tofu":     120,
	"rice":     150,
	"pasta":    140,
	"potato":   170,
	"bread":    30,
	"toast":    30,
	"bagel":    100,
	"oats":     40,
	"oatmeal":  240,
	"cereal":   40,
	"salad":    100,
	"soup":     240,
	"apple":    180,
	"banana":   120,
	"orange":   130,
	"avocado":  150,
	"yogurt":   170,
	"cheese":   30,
	"milk":     240,
	"burger":   220,
	"pizza":    110,
	"sandwich": 200,
	"burrito":  300,
	"smoothie": 350,

	// Bare size descriptors when no food keyword matches.
	"small":  100,
	"medium": 170,
	"large":  240,
}

// The fraction alternative must come first or "1/2" parses as just "1".
var portionNumberRe = regexp.MustCompile(`(\d+\s*/\s*\d+|\d+(?:\.\d+)?)\s*([a-zA-Z]+)?`)

// ParsePortion converts a free-text portion description into grams:
// an explicit amount+unit wins; a bare count multiplies the food's default
// portion; otherwise the food keyword's default, then a size word, then the
// generic default. The result is rounded to the nearest gram.
func ParsePortion(portion, foodName string) float64 {
	portion = strings.ToLower(strings.TrimSpace(portion))
	foodName = strings.ToLower(foodName)

	if m := portionNumberRe.FindStringSubmatch(portion); m != nil {
		qty := parseAmount(m[1])
		unit := m[2]
		if factor, ok := gramsPerUnit[unit]; ok && qty > 0 {
			return math.Round(qty * factor)
		}
		// A bare count ("2 eggs") or an unrecognized unit: multiply the
		// food's default portion.
		if qty > 0 {
			return math.Round(qty * defaultFor(foodName, genericPortionGrams))
		}
	}

	if g := defaultFor(foodName, 0); g > 0 {
		return g
	}
	// Size words in the portion text itself ("medium", "large").
	for _, tok := range strings.Fields(portion) {
		if g, ok := defaultPortionGrams[tok]; ok {
			return g
		}
	}
	return genericPortionGrams
}

// parseAmount handles both decimals and simple fractions ("1/2").
func parseAmount(s string) float64 {
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(strings.TrimSpace(num), 64)
		d, err2 := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err1 == nil && err2 == nil && d != 0 {
			return n / d
		}
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// defaultFor returns the default portion for the first food keyword found in
// the name, or fallback when none matches. Size words do not match here so
// "medium chicken" resolves to the chicken default.
func defaultFor(foodName string, fallback float64) float64 {
	for _, tok := range strings.FieldsFunc(foodName, func(r rune) bool {
		return !('a' <= r && r <= 'z')
	}) {
		switch tok {
		case "small", "medium", "large":
			continue
		}
		if g, ok := defaultPortionGrams[tok]; ok {
			return g
		}
	}
	return fallback
}
