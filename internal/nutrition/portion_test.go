package nutrition

import "testing"

func TestParsePortion(t *testing.T) {
	cases := []struct {
		portion string
		food    string
		want    float64
	}{
		// Explicit amount + unit.
		{"6oz", "chicken breast", 170},
		{"6 oz", "chicken breast", 170},
		{"100g", "rice", 100},
		{"1.5 cups", "rice", 360},
		{"2 tbsp", "peanut butter", 30},
		{"1/2 cup", "oats", 120},
		{"1 lb", "steak", 454},
		{"250ml", "milk", 250},

		// Bare count multiplies the food default.
		{"2", "eggs", 100},
		{"3", "egg", 150},
		{"2 slices", "bread", 60}, // "slices" is not a unit, treated as count

		// No amount: food keyword default.
		{"some", "grilled chicken", 170},
		{"a bowl", "oatmeal", 240},

		// Size word applies when the food is unknown.
		{"medium", "dragon fruit", 170},
		{"small", "mystery dish", 100},
		{"large", "mystery dish", 240},

		// Size word in the name does not shadow the food keyword.
		{"", "medium chicken breast", 170},

		// Nothing recognized at all.
		{"", "quinoa bake surprise", 100},
		{"a portion", "quinoa bake surprise", 100},
	}
	for _, c := range cases {
		if got := ParsePortion(c.portion, c.food); got != c.want {
			t.Errorf("ParsePortion(%q, %q) = %v, want %v", c.portion, c.food, got, c.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"2", 2},
		{"1.5", 1.5},
		{"1/2", 0.5},
		{"3/4", 0.75},
		{"x", 0},
	}
	for _, c := range cases {
		if got := parseAmount(c.in); got != c.want {
			t.Errorf("parseAmount(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
