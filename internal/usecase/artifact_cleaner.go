package usecase

import (
	"log"
	"regexp"
	"strings"
)

// ArtifactCleaner fixes common OCR character confusions and strips the
// non-ingredient sections that follow an ingredient list on real labels.
type ArtifactCleaner struct {
	enableDebugLogging bool
}

// Compiled regex patterns for OCR artifact repair
var (
	// Digit/letter swaps inside alphabetic words: "C0rn" -> "Corn", "Sa1t" -> "Salt"
	zeroForOPattern = regexp.MustCompile(`([A-Za-z])0([A-Za-z])`)
	oneForLPattern  = regexp.MustCompile(`([A-Za-z])1([a-z])`)

	// "vv" misread for "w": "vvater" -> "water"
	doubleVPattern = regexp.MustCompile(`(?i)vv`)

	// "lngredients" style misreads of a leading capital I
	leadingLForIPattern = regexp.MustCompile(`\bl(ngredient)`)

	// Runs of uppercase letters (with optional internal hyphens or ampersands,
	// as in FD&C) of length >= 2
	allCapsWordPattern = regexp.MustCompile(`\b[A-Z][A-Z&-]+\b`)

	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// stopMarkers truncate the text at the first non-ingredient section.
// All comparisons are case-insensitive.
var stopMarkers = []string{
	"allergy information",
	"allergen information",
	"may contain",
	"manufactured in a facility",
	"manufactured by",
	"manufactured for",
	"produced in a facility",
	"distributed by",
	"dist. by",
	"nutrition facts",
	"best before",
	"best by",
	"keep refrigerated",
	"store in a cool",
	"questions or comments",
	"www.",
	"1-800",
}

// acronymAllowList holds uppercase runs that are genuine acronyms, not shouting.
var acronymAllowList = map[string]bool{
	"BHA": true, "BHT": true, "MSG": true, "TBHQ": true,
	"GMO": true, "HFCS": true, "EDTA": true, "FD&C": true,
	"DHA": true, "EPA": true, "CMC": true, "BPA": true,
}

// NewArtifactCleaner creates a new artifact cleaner
func NewArtifactCleaner(enableDebugLogging bool) *ArtifactCleaner {
	return &ArtifactCleaner{enableDebugLogging: enableDebugLogging}
}

// Clean deterministically rewrites known OCR confusions, truncates at the
// first stop marker, and retitles ALL-CAPS runs. Cleaning is idempotent:
// cleaning already-cleaned text is a no-op.
func (c *ArtifactCleaner) Clean(text string) string {
	if text == "" {
		return ""
	}

	original := text

	// Step 1: repair character confusions
	cleaned := fixCharacterConfusions(text)

	// Step 2: truncate at the first stop marker
	cleaned = truncateAtStopMarker(cleaned)

	// Step 3: retitle ALL-CAPS runs unless allow-listed
	cleaned = retitleAllCaps(cleaned)

	// Step 4: normalize whitespace
	cleaned = multiSpacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	if c.enableDebugLogging && cleaned != original {
		log.Printf("[CLEAN] Input: %q -> Output: %q", original, cleaned)
	}

	return cleaned
}

// fixCharacterConfusions rewrites digit/letter swaps and doubled-letter misreads.
func fixCharacterConfusions(s string) string {
	// Repeat digit swaps so overlapping matches ("c0c0a") converge
	for i := 0; i < 2; i++ {
		s = zeroForOPattern.ReplaceAllString(s, "${1}o${2}")
		s = oneForLPattern.ReplaceAllString(s, "${1}l${2}")
	}
	s = doubleVPattern.ReplaceAllStringFunc(s, func(m string) string {
		if m[0] == 'V' {
			return "W"
		}
		return "w"
	})
	s = leadingLForIPattern.ReplaceAllString(s, "I${1}")
	return s
}

// truncateAtStopMarker cuts the text at the earliest stop marker occurrence.
// Absence of stop markers is a no-op.
func truncateAtStopMarker(s string) string {
	lower := strings.ToLower(s)
	cut := -1
	for _, marker := range stopMarkers {
		if idx := strings.Index(lower, marker); idx >= 0 && (cut < 0 || idx < cut) {
			cut = idx
		}
	}
	if cut < 0 {
		return s
	}
	truncated := strings.TrimSpace(s[:cut])
	// Drop a now-dangling separator left behind by the cut
	truncated = strings.TrimRight(truncated, ",;.- ")
	return truncated
}

// retitleAllCaps converts shouting-case runs ("SUGAR") to title case ("Sugar")
// while leaving allow-listed acronyms untouched.
func retitleAllCaps(s string) string {
	return allCapsWordPattern.ReplaceAllStringFunc(s, func(word string) string {
		if acronymAllowList[word] {
			return word
		}
		return titleCaseWord(word)
	})
}

// titleCaseWord lowercases a word and uppercases the first letter of each
// hyphen-separated part.
func titleCaseWord(word string) string {
	parts := strings.Split(strings.ToLower(word), "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, "-")
}
