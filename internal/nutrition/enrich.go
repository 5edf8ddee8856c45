package nutrition

import (
	"context"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"
)

// DefaultConfidenceThreshold is the minimum name-similarity score required to
// accept an external database match over a static estimate.
const DefaultConfidenceThreshold = 0.6

const lookupConcurrency = 3

// Enricher resolves identified foods into verified macro data: portions to
// grams, names to database entries, per-100g values scaled and summed. The
// AI only names foods; quantities are looked up deterministically here.
type Enricher struct {
	lookup    Lookup
	threshold float64
}

// NewEnricher creates an Enricher. A nil lookup disables the external
// database entirely (every food takes the estimate path); threshold <= 0
// uses the default.
func NewEnricher(lookup Lookup, threshold float64) *Enricher {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &Enricher{lookup: lookup, threshold: threshold}
}

// Enrich runs phase 2 of the analysis over all identified foods. Database
// lookups run concurrently, bounded; a lookup failure degrades that food to
// the estimate path instead of failing the meal.
func (e *Enricher) Enrich(ctx context.Context, foods []IdentifiedFood) EnrichedMeal {
	enriched := make([]FoodNutrition, len(foods))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for i, food := range foods {
		g.Go(func() error {
			enriched[i] = e.enrichOne(gctx, food)
			return nil
		})
	}
	g.Wait()

	meal := EnrichedMeal{Foods: enriched}
	for _, f := range enriched {
		meal.Totals.Calories += f.Calories
		meal.Totals.Protein += f.Protein
		meal.Totals.Carbs += f.Carbs
		meal.Totals.Fats += f.Fats
		if f.Source == SourceDatabase {
			meal.DatabaseMatched = true
		}
	}
	return meal
}

func (e *Enricher) enrichOne(ctx context.Context, food IdentifiedFood) FoodNutrition {
	grams := food.PortionGrams
	if grams <= 0 {
		grams = ParsePortion(food.Portion, food.Name)
	}

	per100, source, externalID := e.resolve(ctx, food.Name)

	scale := grams / 100
	return FoodNutrition{
		IdentifiedFood: food,
		Grams:          grams,
		Calories:       scaleMacro(per100.Calories, scale),
		Protein:        scaleMacro(per100.Protein, scale),
		Carbs:          scaleMacro(per100.Carbs, scale),
		Fats:           scaleMacro(per100.Fats, scale),
		Source:         source,
		ExternalID:     externalID,
	}
}

// resolve finds per-100g macros for a food: the external database when the
// best candidate clears the confidence threshold, else the static table,
// else the generic estimate.
func (e *Enricher) resolve(ctx context.Context, name string) (Per100g, string, string) {
	query := NormalizeName(name)
	if e.lookup != nil {
		results, err := e.lookup.Search(ctx, query)
		if err != nil {
			slog.Warn("nutrition lookup failed, falling back to estimate", "food", query, "error", err)
		} else if best, score := bestMatch(query, results); score >= e.threshold {
			return best.Per100g, SourceDatabase, best.ExternalID
		}
	}
	if per100, ok := staticLookup(name); ok {
		return per100, SourceEstimate, ""
	}
	return genericPer100g, SourceEstimate, ""
}

func bestMatch(query string, results []LookupResult) (LookupResult, float64) {
	var best LookupResult
	bestScore := -1.0
	for _, r := range results {
		if score := Similarity(query, r.Description); score > bestScore {
			best, bestScore = r, score
		}
	}
	return best, bestScore
}

func scaleMacro(per100 float64, scale float64) int {
	v := int(math.Round(per100 * scale))
	if v < 0 {
		return 0
	}
	return v
}
