package usecase

import (
	"log"
	"regexp"
	"sort"
	"strings"

	"github.com/labelscan/backend/internal/domain"
)

// FootnoteResolver extracts footnote definitions ("* Organic", "1) Fair Trade
// Certified") from label text. Definitions are removed from the body and
// recorded as marker -> meaning; the ingredient parser later strips the same
// markers from names and prepends genuine certification meanings.
type FootnoteResolver struct {
	enableDebugLogging bool
}

var (
	// A footnote definition: a marker followed by a short phrase.
	// Markers: symbol runs (*, †, ‡), "(1)"/"1)"-style numbers, "a)"-style letters.
	footnoteDefinitionPattern = regexp.MustCompile(
		`([*†‡]+|\(\d{1,2}\)|\d{1,2}\)|[a-zA-Z]\))\s*[-=:]?\s*([A-Za-z][A-Za-z0-9 \-'&]{2,60})`,
	)

	markerKeyPattern = regexp.MustCompile(`[()\s]`)
)

// certificationKeywords identify a footnote meaning as a real certification.
var certificationKeywords = []string{
	"organic",
	"fair trade",
	"fairtrade",
	"non-gmo",
	"non gmo",
	"kosher",
	"halal",
	"certified",
	"rainforest alliance",
	"gluten free",
	"gluten-free",
	"grass fed",
	"grass-fed",
	"cage free",
	"cage-free",
	"free range",
	"free-range",
	"sustainably sourced",
}

// trivialDisclaimerPhrases mark "adds a trivial amount of X" style footnotes
// that should be stripped without becoming a name prefix.
var trivialDisclaimerPhrases = []string{
	"trivial source",
	"trivial amount",
	"not a significant source",
	"dietarily insignificant",
	"negligible source",
	"adds a negligible amount",
}

// NewFootnoteResolver creates a new footnote resolver
func NewFootnoteResolver(enableDebugLogging bool) *FootnoteResolver {
	return &FootnoteResolver{enableDebugLogging: enableDebugLogging}
}

// Resolve scans for footnote definitions, removes them from the body, and
// returns the remaining text plus the marker map. Pass 2 (marker stripping on
// individual ingredient names) happens in the ingredient parser.
func (r *FootnoteResolver) Resolve(text string) (string, domain.FootnoteMap) {
	notes := make(domain.FootnoteMap)
	if text == "" {
		return text, notes
	}

	matches := footnoteDefinitionPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, notes
	}

	type span struct{ start, end int }
	var removals []span

	for _, m := range matches {
		markerStart, markerEnd := m[2], m[3]
		meaningStart, meaningEnd := m[4], m[5]

		marker := text[markerStart:markerEnd]
		meaning := trimMeaning(text[meaningStart:meaningEnd])

		if meaning == "" {
			continue
		}
		if !isCertificationMeaning(meaning) && !isTrivialDisclaimer(meaning) {
			continue
		}
		// A symbol marker glued to the preceding word is an ingredient
		// reference ("Honey*"), not a definition.
		if markerStart > 0 && isWordChar(text[markerStart-1]) {
			continue
		}

		key := normalizeMarkerKey(marker)
		if _, seen := notes[key]; !seen {
			notes[key] = meaning
		}
		removals = append(removals, span{markerStart, meaningStart + len(meaning)})

		if r.enableDebugLogging {
			log.Printf("[FOOTNOTE] Resolved marker %q -> %q", key, meaning)
		}
	}

	if len(removals) == 0 {
		return text, notes
	}

	// Remove definition spans from the end so earlier offsets stay valid.
	sort.Slice(removals, func(i, j int) bool { return removals[i].start > removals[j].start })
	body := text
	for _, sp := range removals {
		before := strings.TrimRight(body[:sp.start], " \t")
		// Also absorb the separator that introduced the footnote section
		before = strings.TrimRight(before, ".;")
		body = before + " " + body[sp.end:]
	}

	return strings.TrimSpace(body), notes
}

// trimMeaning cuts a captured meaning at the first phrase boundary.
func trimMeaning(meaning string) string {
	for _, boundary := range []string{",", ".", ";", "\n"} {
		if idx := strings.Index(meaning, boundary); idx >= 0 {
			meaning = meaning[:idx]
		}
	}
	return strings.TrimSpace(meaning)
}

// isCertificationMeaning reports whether the phrase contains a recognized
// certification keyword.
func isCertificationMeaning(meaning string) bool {
	lower := strings.ToLower(meaning)
	for _, kw := range certificationKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// isTrivialDisclaimer reports whether the phrase is a "trivial source of X"
// style disclaimer rather than a certification.
func isTrivialDisclaimer(meaning string) bool {
	lower := strings.ToLower(meaning)
	for _, phrase := range trivialDisclaimerPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// normalizeMarkerKey strips parentheses and whitespace: "(1)" and "1)" share key "1".
func normalizeMarkerKey(marker string) string {
	return markerKeyPattern.ReplaceAllString(marker, "")
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
