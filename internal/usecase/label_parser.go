package usecase

import (
	"log"
	"regexp"
	"strings"

	"github.com/labelscan/backend/internal/domain"
)

// Maximum accepted label text length; anything larger is rejected outright.
const maxLabelTextLength = 10000

// LabelParser runs the full parsing pipeline: artifact cleaning, footnote
// resolution, minor-section tagging, nesting-aware splitting and individual
// ingredient parsing, producing a deduplicated, confidence-scored list.
type LabelParser struct {
	cleaner            *ArtifactCleaner
	footnotes          *FootnoteResolver
	minorTagger        *MinorSectionTagger
	ingredients        *IngredientParser
	enableDebugLogging bool
}

var (
	ingredientHeaderPattern = regexp.MustCompile(`(?i)^\s*ingredients?\s*:?\s*`)
	descriptiveLeadPattern  = regexp.MustCompile(`(?i)^(?:including|such as|like)\b`)
)

// NewLabelParser creates a label parser with all pipeline stages wired.
func NewLabelParser(enableDebugLogging bool) *LabelParser {
	return &LabelParser{
		cleaner:            NewArtifactCleaner(enableDebugLogging),
		footnotes:          NewFootnoteResolver(enableDebugLogging),
		minorTagger:        NewMinorSectionTagger(enableDebugLogging),
		ingredients:        NewIngredientParser(enableDebugLogging),
		enableDebugLogging: enableDebugLogging,
	}
}

// Parse turns raw OCR'd label text into parsed ingredients in label order.
// Individual bad tokens are dropped locally; only empty or oversized input
// fails the whole call.
func (p *LabelParser) Parse(text string) ([]domain.ParsedIngredient, error) {
	if strings.TrimSpace(text) == "" || len(text) > maxLabelTextLength {
		return nil, domain.ErrInvalidInput
	}

	cleaned := p.cleaner.Clean(text)
	cleaned = ingredientHeaderPattern.ReplaceAllString(cleaned, "")

	body, notes := p.footnotes.Resolve(cleaned)
	body, sections := p.minorTagger.Extract(body)

	tokens := splitTopLevel(body)

	var parsed []domain.ParsedIngredient
	for idx, token := range tokens {
		// "ingredient, short descriptive clause" - fold the clause into the
		// previous ingredient as a modifier instead of a phantom ingredient.
		if len(parsed) > 0 && isDescriptiveClause(token) {
			last := &parsed[len(parsed)-1]
			last.Modifiers = append(last.Modifiers, strings.TrimSpace(token))
			continue
		}

		ingredient, ok := p.ingredients.Parse(token, notes)
		if !ok {
			continue
		}

		if threshold, tagged := thresholdFor(sections, idx); tagged {
			t := threshold
			ingredient.IsMinorIngredient = true
			ingredient.MinorThreshold = &t
		}

		parsed = append(parsed, ingredient)
	}

	deduped := dedupeIngredients(parsed)

	if p.enableDebugLogging {
		log.Printf("[LABEL] Parsed %d ingredients (%d before dedup) from %d tokens",
			len(deduped), len(parsed), len(tokens))
	}

	return deduped, nil
}

// isDescriptiveClause reports whether a token is a trailing descriptive clause
// rather than an ingredient: it starts with a linking word, or is a short
// lowercase phrase that matches nothing in the food vocabulary.
func isDescriptiveClause(token string) bool {
	trimmed := strings.TrimSpace(token)
	if descriptiveLeadPattern.MatchString(trimmed) {
		return true
	}
	words := strings.Fields(trimmed)
	if len(words) == 0 || len(words) > 3 {
		return false
	}
	first := []rune(words[0])[0]
	if first >= 'A' && first <= 'Z' {
		return false
	}
	return !containsFoodTerm(trimmed)
}

// dedupeIngredients removes case-insensitive duplicate names, keeping the
// first occurrence to preserve label order.
func dedupeIngredients(ingredients []domain.ParsedIngredient) []domain.ParsedIngredient {
	seen := make(map[string]bool, len(ingredients))
	var out []domain.ParsedIngredient
	for _, ing := range ingredients {
		key := domain.NormalizeIngredientKey(ing.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ing)
	}
	return out
}
