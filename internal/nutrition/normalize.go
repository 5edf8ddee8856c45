package nutrition

import "strings"

// descriptorWords are cooking methods and adjectives stripped before lookup.
// "grilled chicken breast" matches far better as "chicken breast".
var descriptorWords = map[string]bool{
	"grilled":  true,
	"baked":    true,
	"fried":    true,
	"roasted":  true,
	"steamed":  true,
	"boiled":   true,
	"sauteed":  true,
	"smoked":   true,
	"poached":  true,
	"raw":      true,
	"fresh":    true,
	"cooked":   true,
	"homemade": true,
	"organic":  true,
	"sliced":   true,
	"diced":    true,
	"chopped":  true,
	"shredded": true,
	"small":    true,
	"medium":   true,
	"large":    true,
	"a":        true,
	"an":       true,
	"of":       true,
	"with":     true,
	"and":      true,
	"the":      true,
	"some":     true,
	"piece":    true,
	"pieces":   true,
	"serving":  true,
}

// NormalizeName lowercases a food name and strips descriptor words to raise
// the external-database match rate.
func NormalizeName(name string) string {
	kept := make([]string, 0, 4)
	for _, tok := range tokens(name) {
		if !descriptorWords[tok] {
			kept = append(kept, tok)
		}
	}
	if len(kept) == 0 {
		return strings.ToLower(strings.TrimSpace(name))
	}
	return strings.Join(kept, " ")
}

// Similarity scores candidate against query as the fraction of query tokens
// present in the candidate description. Range [0,1].
func Similarity(query, candidate string) float64 {
	qTokens := tokens(query)
	if len(qTokens) == 0 {
		return 0
	}
	cSet := make(map[string]bool)
	for _, t := range tokens(candidate) {
		cSet[t] = true
	}
	matched := 0
	for _, t := range qTokens {
		if cSet[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(qTokens))
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}
