package usecase

import (
	"log"
	"regexp"
	"strings"

	"github.com/labelscan/backend/internal/domain"
)

// IngredientParser turns a single raw token into a ParsedIngredient: it strips
// leading conjunctions, resolves footnote markers into name prefixes, extracts
// parenthetical/bracket/trademark modifiers, validates the remaining name and
// scores parse confidence.
type IngredientParser struct {
	enableDebugLogging bool
}

var (
	leadingConjunctionPattern  = regexp.MustCompile(`(?i)^(?:and|or)\s+`)
	trailingSymbolMarkers      = regexp.MustCompile(`[*†‡]+$`)
	trailingBoundMarker        = regexp.MustCompile(`\((\d{1,2})\)$|(\d{1,2})$|\b([a-zA-Z])\)$`)
	parentheticalMarkerPattern = regexp.MustCompile(`\(\s*(\d{1,2}|[a-zA-Z])\s*\)$`)
	trademarkGlyphPattern      = regexp.MustCompile(`[™®©]`)
)

// NewIngredientParser creates a new ingredient parser
func NewIngredientParser(enableDebugLogging bool) *IngredientParser {
	return &IngredientParser{enableDebugLogging: enableDebugLogging}
}

// Parse extracts one ingredient from a raw token. The boolean result is false
// when the token is not a plausible ingredient and should be dropped.
func (p *IngredientParser) Parse(token string, notes domain.FootnoteMap) (domain.ParsedIngredient, bool) {
	original := token
	token = strings.TrimSpace(token)
	token = strings.TrimSuffix(token, ".")
	token = leadingConjunctionPattern.ReplaceAllString(token, "")
	if token == "" {
		return domain.ParsedIngredient{}, false
	}

	// Resolve parenthetical footnote references ("Salt (1)") before modifier
	// extraction treats them as grouped content.
	token, meanings := stripParentheticalMarkers(token, notes)
	if token == "" {
		return domain.ParsedIngredient{}, false
	}

	var name string
	var modifiers []string

	if trademarkGlyphPattern.MatchString(token) {
		name, modifiers = parseBrandedToken(token)
	} else {
		name, modifiers = extractModifiers(token)
	}

	name, prefix := stripFootnoteMarkers(name, notes)
	name = strings.TrimSpace(name)
	if prefix != "" {
		meanings = append(meanings, prefix)
	}
	if len(meanings) > 0 {
		name = strings.Join(meanings, ", ") + " " + name
	}

	if !isValidIngredientName(name) {
		if p.enableDebugLogging {
			log.Printf("[PARSE] Rejected token %q (name %q)", original, name)
		}
		return domain.ParsedIngredient{}, false
	}

	parsed := domain.ParsedIngredient{
		Name:         name,
		Modifiers:    modifiers,
		Confidence:   scoreConfidence(name, len(modifiers)),
		OriginalText: strings.TrimSpace(original),
	}

	if p.enableDebugLogging {
		log.Printf("[PARSE] %q -> name=%q modifiers=%v confidence=%.2f",
			original, parsed.Name, parsed.Modifiers, parsed.Confidence)
	}

	return parsed, true
}

// splitTopLevel splits text into tokens on commas and semicolons that are not
// inside parentheses or brackets. A depth counter tracks nesting so
// sub-ingredient lists are never split into separate top-level ingredients.
func splitTopLevel(text string) []string {
	var tokens []string
	depth := 0
	start := 0
	for i, r := range text {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case ',', ';':
			if depth == 0 {
				tokens = append(tokens, text[start:i])
				start = i + len(string(r))
			}
		}
	}
	tokens = append(tokens, text[start:])

	var out []string
	for _, t := range tokens {
		if strings.TrimSpace(t) != "" {
			out = append(out, strings.TrimSpace(t))
		}
	}
	return out
}

// extractModifiers recursively pulls parenthetical and bracketed content out of
// the token. Every nesting level is captured as its own modifier; the returned
// name is the token with all grouped content removed.
func extractModifiers(token string) (string, []string) {
	var modifiers []string
	var name strings.Builder

	runes := []rune(token)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '(' || r == '[' {
			closer := ')'
			if r == '[' {
				closer = ']'
			}
			content, consumed := captureGroup(runes[i+1:], r, closer)
			content = strings.TrimSpace(content)
			if content != "" {
				modifiers = append(modifiers, content)
				// Capture deeper levels too
				_, nested := extractModifiers(content)
				modifiers = append(modifiers, nested...)
			}
			i += consumed
			continue
		}
		name.WriteRune(r)
	}

	return strings.TrimSpace(collapseSpaces(name.String())), modifiers
}

// captureGroup returns the content of a balanced group starting just after the
// opener, and the number of runes consumed including the closer.
func captureGroup(runes []rune, opener, closer rune) (string, int) {
	depth := 1
	var content strings.Builder
	for i, r := range runes {
		switch r {
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return content.String(), i + 1
			}
		}
		content.WriteRune(r)
	}
	// Unbalanced group - OCR dropped the closer; take the rest
	return content.String(), len(runes)
}

// parseBrandedToken handles tokens carrying a trademark glyph. When the
// parenthetical is itself a comma-separated list, the brand name is the
// ingredient and the list becomes modifiers (compound ingredient). Otherwise
// the parenthetical is the canonical ingredient and the brand a modifier.
func parseBrandedToken(token string) (string, []string) {
	stripped := trademarkGlyphPattern.ReplaceAllString(token, "")
	outer, inner := extractModifiers(stripped)

	if len(inner) == 0 {
		return outer, nil
	}

	first := inner[0]
	if strings.Contains(first, ",") {
		// Compound branded ingredient: keep the brand, list the components
		parts := splitTopLevel(first)
		return outer, parts
	}

	// Single canonical ingredient inside the parenthetical
	return first, []string{outer}
}

// stripFootnoteMarkers removes footnote markers from the end of a name and
// returns the certification prefix assembled from their resolved meanings.
// Symbol markers are always stripped; numeric and letter markers only when the
// footnote map knows them. Markers with no recorded meaning, and trivial
// "source of" disclaimers, are stripped silently.
func stripFootnoteMarkers(name string, notes domain.FootnoteMap) (string, string) {
	var meanings []string

	for {
		trimmed := strings.TrimSpace(name)
		if m := trailingSymbolMarkers.FindString(trimmed); m != "" {
			name = strings.TrimSpace(strings.TrimSuffix(trimmed, m))
			for _, marker := range expandSymbolMarkers(m) {
				if meaning, ok := notes[marker]; ok && !isTrivialDisclaimer(meaning) {
					meanings = append(meanings, meaning)
				}
			}
			continue
		}
		if loc := trailingBoundMarker.FindStringSubmatchIndex(trimmed); loc != nil {
			key := boundMarkerKey(trimmed, loc)
			meaning, ok := lookupMarker(notes, key)
			if ok {
				name = strings.TrimSpace(trimmed[:loc[0]])
				if !isTrivialDisclaimer(meaning) {
					meanings = append(meanings, meaning)
				}
				continue
			}
		}
		break
	}

	return name, strings.Join(meanings, ", ")
}

// stripParentheticalMarkers peels trailing parenthesized footnote references
// ("Salt (1)", "Honey (a)") off the token and resolves them against the
// footnote map. Only markers the map knows are treated as references;
// anything else is left for modifier extraction.
func stripParentheticalMarkers(token string, notes domain.FootnoteMap) (string, []string) {
	var meanings []string
	for {
		m := parentheticalMarkerPattern.FindStringSubmatch(token)
		if m == nil {
			break
		}
		meaning, ok := lookupMarker(notes, m[1])
		if !ok {
			break
		}
		token = strings.TrimSpace(strings.TrimSuffix(token, m[0]))
		if !isTrivialDisclaimer(meaning) {
			meanings = append(meanings, meaning)
		}
	}
	return token, meanings
}

// lookupMarker resolves a marker key against the footnote map, falling back to
// the lowercased key for letter markers recorded in either case.
func lookupMarker(notes domain.FootnoteMap, key string) (string, bool) {
	if meaning, ok := notes[key]; ok {
		return meaning, true
	}
	meaning, ok := notes[strings.ToLower(key)]
	return meaning, ok
}

// expandSymbolMarkers splits a run like "*†" into individual marker keys,
// keeping repeated-symbol runs ("**") as a single key.
func expandSymbolMarkers(run string) []string {
	var markers []string
	var current []rune
	for _, r := range run {
		if len(current) > 0 && current[len(current)-1] != r {
			markers = append(markers, string(current))
			current = current[:0]
		}
		current = append(current, r)
	}
	if len(current) > 0 {
		markers = append(markers, string(current))
	}
	return markers
}

// boundMarkerKey extracts the marker key from a trailingBoundMarker match.
func boundMarkerKey(s string, loc []int) string {
	for g := 1; g <= 3; g++ {
		if loc[2*g] >= 0 {
			return s[loc[2*g]:loc[2*g+1]]
		}
	}
	return ""
}

var collapseSpacesPattern = regexp.MustCompile(`\s{2,}`)

func collapseSpaces(s string) string {
	return collapseSpacesPattern.ReplaceAllString(s, " ")
}
