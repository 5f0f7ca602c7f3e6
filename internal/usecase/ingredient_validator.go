package usecase

import (
	"regexp"
	"strings"
	"unicode"
)

// Validation bounds for an ingredient name
const (
	minIngredientNameLength = 2
	maxIngredientNameLength = 150
)

// Confidence scoring weights
const (
	baseConfidence       = 0.5
	vocabularyBonus      = 0.2  // Name contains a known food term
	modifierBonus        = 0.1  // Parenthetical/bracket modifiers were extracted
	casingLengthBonus    = 0.1  // Proper casing and reasonable length
	shortLongPenalty     = 0.15 // Very short or very long names
	embeddedDigitPenalty = 0.1  // Excessive embedded digits
	maxEmbeddedDigits    = 2
	reasonableNameMin    = 3
	reasonableNameMax    = 40
	longNameThreshold    = 60
	shortNameThreshold   = 4
)

// Negative patterns: tokens matching these are label noise, not ingredients.
var (
	bareMeasurementPattern = regexp.MustCompile(`(?i)^\d+(?:\.\d+)?\s*(?:g|mg|mcg|kg|oz|fl\s*oz|lb|lbs|ml|l|cal|kcal|%)\.?$`)
	percentagePattern      = regexp.MustCompile(`^\d+(?:\.\d+)?\s*%$`)
	streetAddressPattern   = regexp.MustCompile(`(?i)\b\d+\s+\w+\s+(?:street|st|avenue|ave|road|rd|boulevard|blvd|drive|dr|lane|ln|way|court|ct)\b`)
	stateZipPattern        = regexp.MustCompile(`\b[A-Z]{2},?\s+\d{5}(?:-\d{4})?\b`)
	companyEntityPattern   = regexp.MustCompile(`(?i)\b(?:inc|llc|ltd|corp|co|company|gmbh|usa)\.?\s*$`)
	letterPattern          = regexp.MustCompile(`[A-Za-z]`)
	digitPattern           = regexp.MustCompile(`\d`)
)

// foodVocabulary holds common label ingredients and ingredient words.
// A name containing any of these scores a vocabulary bonus.
var foodVocabulary = map[string]bool{
	// Staples
	"flour": true, "sugar": true, "salt": true, "water": true, "oil": true,
	"milk": true, "butter": true, "cream": true, "eggs": true, "egg": true,
	"honey": true, "yeast": true, "rice": true, "wheat": true, "corn": true,
	"oats": true, "barley": true, "rye": true, "soy": true, "starch": true,
	// Proteins
	"chicken": true, "beef": true, "pork": true, "fish": true, "turkey": true,
	"whey": true, "casein": true, "gelatin": true, "protein": true,
	// Produce
	"apple": true, "banana": true, "orange": true, "tomato": true, "onion": true,
	"garlic": true, "potato": true, "carrot": true, "spinach": true, "lemon": true,
	"grape": true, "strawberry": true, "blueberry": true, "raisins": true,
	// Fats and oils
	"palm": true, "canola": true, "sunflower": true, "coconut": true,
	"olive": true, "soybean": true, "shortening": true, "lard": true,
	// Sweeteners
	"syrup": true, "fructose": true, "glucose": true, "dextrose": true,
	"maltodextrin": true, "sucralose": true, "aspartame": true, "stevia": true,
	"molasses": true, "caramel": true,
	// Additives and preservatives
	"lecithin": true, "acid": true, "citric": true, "ascorbic": true,
	"sorbate": true, "benzoate": true, "nitrite": true, "nitrate": true,
	"sulfite": true, "phosphate": true, "carbonate": true, "bicarbonate": true,
	"gum": true, "pectin": true, "carrageenan": true, "xanthan": true,
	"extract": true, "flavor": true, "flavors": true, "flavoring": true,
	"color": true, "colors": true, "annatto": true, "turmeric": true,
	"vitamin": true, "niacin": true, "riboflavin": true, "thiamine": true,
	"folate": true, "folic": true, "iron": true, "zinc": true, "calcium": true,
	// Dairy and cultures
	"cheese": true, "yogurt": true, "cultures": true, "enzymes": true, "rennet": true,
	// Common label forms
	"soda": true, "powder": true, "juice": true, "concentrate": true,
	"puree": true, "paste": true, "broth": true, "solids": true, "dough": true,
	// Spices and seasonings
	"pepper": true, "paprika": true, "cinnamon": true, "vanilla": true,
	"cocoa": true, "chocolate": true, "spices": true, "spice": true,
	"vinegar": true, "mustard": true, "basil": true, "oregano": true,
	// Grains and cereals
	"bran": true, "germ": true, "malt": true, "semolina": true, "quinoa": true,
	"nuts": true, "almonds": true, "peanuts": true, "cashews": true, "walnuts": true,
	"sesame": true, "seeds": true,
}

// isValidIngredientName rejects tokens that match negative-ingredient
// heuristics: bare units, percentages, addresses, company boilerplate, or
// names outside the accepted character band.
func isValidIngredientName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < minIngredientNameLength || len(trimmed) > maxIngredientNameLength {
		return false
	}
	if !letterPattern.MatchString(trimmed) {
		return false
	}
	if bareMeasurementPattern.MatchString(trimmed) || percentagePattern.MatchString(trimmed) {
		return false
	}
	if streetAddressPattern.MatchString(trimmed) || stateZipPattern.MatchString(trimmed) {
		return false
	}
	if companyEntityPattern.MatchString(trimmed) {
		return false
	}
	return true
}

// scoreConfidence computes a parse confidence for an ingredient, clamped to [0,1].
func scoreConfidence(name string, modifierCount int) float64 {
	score := baseConfidence

	if containsFoodTerm(name) {
		score += vocabularyBonus
	}
	if modifierCount > 0 {
		score += modifierBonus
	}
	if isProperlyCased(name) && len(name) >= reasonableNameMin && len(name) <= reasonableNameMax {
		score += casingLengthBonus
	}
	if len(name) < shortNameThreshold || len(name) > longNameThreshold {
		score -= shortLongPenalty
	}
	if len(digitPattern.FindAllString(name, -1)) > maxEmbeddedDigits {
		score -= embeddedDigitPenalty
	}

	return clamp01(score)
}

// containsFoodTerm reports whether any word of the name is in the food vocabulary.
func containsFoodTerm(name string) bool {
	for _, word := range strings.Fields(strings.ToLower(name)) {
		word = strings.Trim(word, ",.;:'\"-")
		if foodVocabulary[word] {
			return true
		}
	}
	return false
}

// isProperlyCased reports whether the name starts with an uppercase letter.
func isProperlyCased(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
