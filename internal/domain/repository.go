package domain

import (
	"context"
)

// ClassificationCache defines the interface for the ingredient classification cache.
// Writes are idempotent upserts keyed by normalized ingredient name; concurrent
// writers are tolerated with last-write-wins semantics.
type ClassificationCache interface {
	// GetMany returns the fresh entries found for the given normalized names.
	// Expired entries are omitted (lazy expiry - they are not deleted eagerly).
	GetMany(ctx context.Context, names []string) (map[string]CacheEntry, error)

	// Upsert stores a classification under the normalized name with the given TTL in days.
	Upsert(ctx context.Context, name string, classification IngredientClassification, ttlDays int) error
}

// Classifier defines the interface for the external classification service.
type Classifier interface {
	Classify(ctx context.Context, name string) (*IngredientClassification, error)
	ClassifyBatch(ctx context.Context, names []string) ([]IngredientClassification, error)

	// IdentifyProduct attempts to name the product from the full label text.
	IdentifyProduct(ctx context.Context, labelText string) (string, error)
}

// OCRClient defines the interface for the external text extraction service.
type OCRClient interface {
	ExtractText(ctx context.Context, image []byte) (*OCRResult, error)
}
