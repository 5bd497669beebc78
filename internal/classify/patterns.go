package classify

import (
	"strings"

	"promoscout/internal/config"
	"promoscout/internal/model"
)

// Keyword pattern sets for the fast, no-API first pass. Matching is
// case-insensitive substring over title+snippet.
var (
	researchPatterns = []string{
		"best ", "recommend", " vs ", "alternative", "comparison",
		"which one", "what should i use", "top ",
	}
	painPointPatterns = []string{
		"problem", "issue", "frustrat", "broken", "doesn't work",
		"does not work", "can't get", "too slow", "struggling", "fed up",
	}
	questionPatterns = []string{
		"?", "how do", "how to", "what is", "anyone know", "any advice",
		"looking for",
	}
	// promoExclusionPatterns flag likely competitor self-promotion; those
	// items are held back from AI scoring entirely.
	promoExclusionPatterns = []string{
		"i built", "i made", "we built", "we made", "check out my",
		"just launched", "launching my", "my startup", "our product",
		"promo code", "discount code", "use code",
	}
)

func matchesAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// provisionalIntent assigns the phase-1 intent tag. The bool reports whether
// the item hit the promotional-exclusion set.
func provisionalIntent(item model.DiscoveredItem, brand config.BrandConfig) (model.Intent, bool) {
	text := strings.ToLower(item.Title + " " + item.Snippet)
	if matchesAny(text, promoExclusionPatterns) {
		return model.IntentCompetitorMention, true
	}
	for _, comp := range brand.Competitors {
		c := strings.ToLower(strings.TrimSpace(comp))
		if c != "" && strings.Contains(text, c) {
			return model.IntentCompetitorMention, false
		}
	}
	switch {
	case matchesAny(text, painPointPatterns):
		return model.IntentPainPoint, false
	case matchesAny(text, researchPatterns):
		return model.IntentResearch, false
	case matchesAny(text, questionPatterns):
		return model.IntentQuestion, false
	}
	return model.IntentGeneral, false
}

// parseIntent maps the model's intent label onto the closed enum, falling
// back to the provisional tag for anything unrecognized.
func parseIntent(label string, fallback model.Intent) model.Intent {
	switch model.Intent(strings.ToLower(strings.TrimSpace(label))) {
	case model.IntentResearch:
		return model.IntentResearch
	case model.IntentPainPoint:
		return model.IntentPainPoint
	case model.IntentCompetitorMention:
		return model.IntentCompetitorMention
	case model.IntentQuestion:
		return model.IntentQuestion
	case model.IntentGeneral:
		return model.IntentGeneral
	}
	return fallback
}
