package domain

import (
	"strings"
	"time"
)

// ClassificationStatus indicates how an ingredient was judged.
type ClassificationStatus string

const (
	StatusClean      ClassificationStatus = "clean"
	StatusConcerning ClassificationStatus = "concerning"
	StatusUnknown    ClassificationStatus = "unknown"
)

// Valid reports whether the status is one of the recognized values.
func (s ClassificationStatus) Valid() bool {
	switch s {
	case StatusClean, StatusConcerning, StatusUnknown:
		return true
	}
	return false
}

// ParsedIngredient is a single normalized ingredient extracted from label text.
type ParsedIngredient struct {
	Name              string   `json:"name"`
	Modifiers         []string `json:"modifiers,omitempty"`
	Confidence        float64  `json:"confidence"` // Parse confidence 0-1
	OriginalText      string   `json:"originalText"`
	IsMinorIngredient bool     `json:"isMinorIngredient"`
	MinorThreshold    *float64 `json:"minorThreshold,omitempty"` // Percentage, set iff IsMinorIngredient
}

// FootnoteMap maps a footnote marker (e.g. "*", "1", "a") to its resolved meaning.
// Built once per label text and discarded after parsing.
type FootnoteMap map[string]string

// IngredientClassification is the verdict for one ingredient, from cache or classifier.
type IngredientClassification struct {
	Name            string               `json:"name"`
	Status          ClassificationStatus `json:"status"`
	Confidence      float64              `json:"confidence"`
	EducationalNote string               `json:"educationalNote"`
	BasicNote       string               `json:"basicNote"`
	Reasoning       string               `json:"reasoning,omitempty"`
	Sources         []string             `json:"sources,omitempty"`
}

// CacheEntry is a previously classified ingredient stored with an expiry.
// Entries past ExpiresAt are treated as misses, not deleted eagerly.
type CacheEntry struct {
	Status          ClassificationStatus `json:"status"`
	EducationalNote string               `json:"educationalNote"`
	BasicNote       string               `json:"basicNote"`
	CachedAt        time.Time            `json:"cachedAt"`
	ExpiresAt       time.Time            `json:"expiresAt"`
}

// Expired reports whether the entry is past its TTL at the given time.
func (e CacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// ClassifiedIngredient pairs a parsed ingredient with its classification.
type ClassifiedIngredient struct {
	ParsedIngredient
	Classification IngredientClassification `json:"classification"`
	Source         string                   `json:"source"` // "cache", "classifier" or "fallback"
}

// AnalysisResult is the product-level outcome of analyzing a label.
type AnalysisResult struct {
	OverallVerdict        string                 `json:"overallVerdict"` // "clean" or "concerning"
	Ingredients           []ClassifiedIngredient `json:"ingredients"`    // Original label order
	TotalIngredients      int                    `json:"totalIngredients"`
	CleanCount            int                    `json:"cleanCount"`
	ConcerningCount       int                    `json:"concerningCount"`
	UnknownCount          int                    `json:"unknownCount"`
	ProductIdentification string                 `json:"productIdentification,omitempty"`
}

// ProgressEvent is an advisory event emitted while an analysis is in flight.
type ProgressEvent struct {
	Type           string `json:"type"` // "analyzing", "classified" or "encouragement"
	Current        int    `json:"current"`
	Total          int    `json:"total"`
	IngredientName string `json:"ingredientName,omitempty"`
	Message        string `json:"message,omitempty"`
}

// OCRResult is the raw text extracted from a label photograph.
type OCRResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // 0-1
}

// NormalizeIngredientKey produces the canonical cache key for an ingredient name.
func NormalizeIngredientKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
