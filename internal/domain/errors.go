package domain

import "errors"

var (
	// ErrInvalidInput is returned when the label text is empty, oversized or unparsable
	ErrInvalidInput = errors.New("invalid label text")

	// ErrRateLimited is returned when the caller has exceeded its rate limit
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when an ingredient is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when the cache store cannot be reached
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrClassificationFailed is returned for transient classifier failures
	// (timeouts, 5xx, explicit rate-limit responses) that are worth retrying
	ErrClassificationFailed = errors.New("classification request failed")

	// ErrClassifierUnreachable is returned when the classifier service is down
	// (connection refused / DNS failure signatures); retrying is pointless
	ErrClassifierUnreachable = errors.New("classifier service unreachable")

	// ErrMalformedResponse is returned when the classifier returned data that
	// fails structural validation
	ErrMalformedResponse = errors.New("malformed classifier response")

	// ErrOCRFailure is returned when text extraction fails
	ErrOCRFailure = errors.New("text extraction failed")

	// ErrLowOCRConfidence signals the caller should re-extract with different preprocessing
	ErrLowOCRConfidence = errors.New("text extraction confidence below threshold")
)
