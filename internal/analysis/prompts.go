package analysis

import (
	"fmt"

	"github.com/platewise/platewise/internal/provider"
)

// Prompt builders. The surrounding system owns the real prompt content; these
// define the JSON contracts the parsers on our side rely on.

func textMealMessages(description string) []provider.Message {
	return []provider.Message{
		provider.TextMessage(provider.RoleSystem,
			`You are a nutrition analyst. Given a meal description, respond with JSON only: `+
				`{"foods":[{"name":string,"quantity":string,"calories":int,"protein":int,"carbs":int,"fats":int}],`+
				`"totals":{"calories":int,"protein":int,"carbs":int,"fats":int}}. Macro values are grams.`),
		provider.TextMessage(provider.RoleUser, description),
	}
}

func mealPhotoMessages(imageB64, mimeType, note string) []provider.Message {
	prompt := `Identify each food visible in this photo. Respond with JSON only: ` +
		`{"foods":[{"name":string,"portion":string,"confidence":number}]}. ` +
		`Portion is a rough size like "6oz" or "1 cup"; confidence is 0-1. ` +
		`Do not estimate calories or macros.`
	if note != "" {
		prompt += fmt.Sprintf(" The user adds: %s", note)
	}
	return []provider.Message{
		provider.ImageMessage(prompt, imageB64, mimeType),
	}
}

func bodyPhotoMessages(imageB64, mimeType string) []provider.Message {
	return []provider.Message{
		provider.ImageMessage(
			`Give a respectful, factual body-composition assessment of this progress photo: `+
				`visible muscle groups, approximate body-fat range, and one focus suggestion.`,
			imageB64, mimeType),
	}
}

func progressMessages(summary string) []provider.Message {
	return []provider.Message{
		provider.TextMessage(provider.RoleSystem,
			`You are a fitness coach reviewing a client's logged history. `+
				`Summarize trends, call out wins, and suggest one adjustment.`),
		provider.TextMessage(provider.RoleUser, summary),
	}
}

func workoutMessages(profile string) []provider.Message {
	return []provider.Message{
		provider.TextMessage(provider.RoleSystem,
			`You are a strength coach. Respond with JSON only: `+
				`{"name":string,"exercises":[{"name":string,"sets":int,"reps":string,"rest_seconds":int}],"notes":string}.`),
		provider.TextMessage(provider.RoleUser, profile),
	}
}

func weeklyNutritionMessages(entries string) []provider.Message {
	return []provider.Message{
		provider.TextMessage(provider.RoleSystem,
			`You are a nutrition analyst reviewing a week of logged meals. Respond with JSON only: `+
				`{"summary":string,"average_daily":{"calories":int,"protein":int,"carbs":int,"fats":int},"recommendations":[string]}.`),
		provider.TextMessage(provider.RoleUser, entries),
	}
}

func planWeekMessages(goals string) []provider.Message {
	return []provider.Message{
		provider.TextMessage(provider.RoleSystem,
			`You are a meal and training planner. Respond with JSON only: `+
				`{"days":[{"day":string,"meals":[{"name":string,"calories":int}],"workout":string}]}.`),
		provider.TextMessage(provider.RoleUser, goals),
	}
}
