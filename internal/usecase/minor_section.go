package usecase

import (
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// MinorSectionTagger detects "contains X% or less of the following" boilerplate,
// removes it from the text, and records which split index each minor section
// starts at together with its threshold.
type MinorSectionTagger struct {
	enableDebugLogging bool
}

// minorSection marks every ingredient from StartIndex onward as minor with the
// given threshold, until superseded by a later section.
type minorSection struct {
	StartIndex int
	Threshold  float64
}

const defaultMinorThreshold = 2.0

// Recognized orderings of the minor-ingredient disclosure. The threshold group
// is optional; unparsable thresholds fall back to the 2% default.
var minorSectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)contains\s+(?:less\s+than\s+)?(\d+(?:\.\d+)?)?\s*%\s*or\s*less\s*of(?:\s*(?:each\s*of\s*)?the\s*following)?\s*:?`),
	regexp.MustCompile(`(?i)(?:contains\s+)?less\s+than\s+(\d+(?:\.\d+)?)?\s*%\s*of(?:\s*the\s*following)?\s*:?`),
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)?\s*%\s*or\s*less\s*of\s*(?:each\s*of\s*)?(?:the\s*following)?\s*:?`),
}

// NewMinorSectionTagger creates a new minor-section tagger
func NewMinorSectionTagger(enableDebugLogging bool) *MinorSectionTagger {
	return &MinorSectionTagger{enableDebugLogging: enableDebugLogging}
}

// Extract removes every minor-section marker from the text and returns the
// rewritten text plus the sections ordered by start index. Each marker's start
// index is the count of top-level separators preceding it, adjusted when the
// removal itself must leave a separator behind.
func (t *MinorSectionTagger) Extract(text string) (string, []minorSection) {
	if text == "" {
		return text, nil
	}

	type match struct {
		start, end int
		threshold  float64
	}
	var found []match

	overlaps := func(start, end int) bool {
		for _, e := range found {
			if start < e.end && end > e.start {
				return true
			}
		}
		return false
	}

	for _, pattern := range minorSectionPatterns {
		for _, m := range pattern.FindAllStringSubmatchIndex(text, -1) {
			threshold := defaultMinorThreshold
			if m[2] >= 0 {
				if v, err := strconv.ParseFloat(text[m[2]:m[3]], 64); err == nil && v > 0 {
					threshold = v
				}
			}
			if overlaps(m[0], m[1]) {
				continue
			}
			found = append(found, match{start: m[0], end: m[1], threshold: threshold})
		}
	}
	if len(found) == 0 {
		return text, nil
	}
	sort.Slice(found, func(i, j int) bool { return found[i].start < found[j].start })

	var sections []minorSection
	for _, m := range found {
		startIndex := countTopLevelSeparators(text[:m.start])
		// When the marker is not introduced by its own separator ("Sugar
		// contains 2% or less of Salt"), the removal inserts one, pushing
		// the section one slot further right.
		if !separatorPrecedes(text, m.start) && startIndex >= 0 && strings.TrimSpace(text[:m.start]) != "" {
			startIndex++
		}
		sections = append(sections, minorSection{StartIndex: startIndex, Threshold: m.threshold})

		if t.enableDebugLogging {
			log.Printf("[MINOR] Section at index %d, threshold %.1f%%", startIndex, m.threshold)
		}
	}

	// Rewrite from the end so earlier offsets stay valid.
	body := text
	for i := len(found) - 1; i >= 0; i-- {
		m := found[i]
		replacement := ""
		if !separatorPrecedes(body, m.start) && strings.TrimSpace(body[:m.start]) != "" {
			replacement = ", "
		}
		body = strings.TrimRight(body[:m.start], " ") + replacement + strings.TrimLeft(body[m.end:], " ")
	}

	return body, sections
}

// thresholdFor returns the threshold of the most recent section whose start
// index is <= the ingredient's index, or false if the ingredient is not minor.
func thresholdFor(sections []minorSection, index int) (float64, bool) {
	threshold := 0.0
	tagged := false
	for _, s := range sections {
		if s.StartIndex <= index {
			threshold = s.Threshold
			tagged = true
		}
	}
	return threshold, tagged
}

// countTopLevelSeparators counts commas and semicolons outside
// parentheses/brackets, mirroring what splitTopLevel splits on.
func countTopLevelSeparators(s string) int {
	depth := 0
	count := 0
	for _, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case ',', ';':
			if depth == 0 {
				count++
			}
		}
	}
	return count
}

// separatorPrecedes reports whether the last non-space character before pos is
// a separator (or the start of the text).
func separatorPrecedes(s string, pos int) bool {
	for i := pos - 1; i >= 0; i-- {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\n' {
			continue
		}
		return c == ',' || c == ';' || c == ':' || c == '.'
	}
	return true
}
