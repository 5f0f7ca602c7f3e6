package usecase

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/labelscan/backend/internal/domain"
	"github.com/labelscan/backend/internal/ratelimit"
)

// AnalysisServiceConfig holds configuration for the analysis orchestrator.
type AnalysisServiceConfig struct {
	CacheTTLDays       int
	ChunkSize          int
	MaxRetries         int
	ChunkStagger       time.Duration
	WriteQueueSize     int
	EnableDebugLogging bool
}

// AnalysisService orchestrates label analysis: parse, cache lookup, batched
// classification with retry/fallback, merge, and background cache writes.
type AnalysisService struct {
	parser       *LabelParser
	cache        domain.ClassificationCache
	classifier   domain.Classifier
	limiter      *ratelimit.Limiter
	writer       *cacheWriter
	chunkSize    int
	maxRetries   int
	chunkStagger time.Duration
	debug        bool
}

// ProgressFunc receives advisory progress events; it may be nil. Events are
// delivered sequentially from the orchestrator's perspective.
type ProgressFunc func(domain.ProgressEvent)

// encouragements are cycled into the progress stream while long batches run.
var encouragements = []string{
	"Checking every ingredient, hang tight",
	"Almost there, a few ingredients left",
	"Cross-checking additives and preservatives",
}

const conservativeFallbackNote = "We couldn't verify this ingredient right now, so we're flagging it to be safe."

// NewAnalysisService creates an analysis service with its dependencies.
func NewAnalysisService(
	parser *LabelParser,
	cache domain.ClassificationCache,
	classifier domain.Classifier,
	limiter *ratelimit.Limiter,
	config AnalysisServiceConfig,
) *AnalysisService {
	chunkSize := config.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 8
	}
	maxRetries := config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	ttlDays := config.CacheTTLDays
	if ttlDays <= 0 {
		ttlDays = 180
	}

	return &AnalysisService{
		parser:       parser,
		cache:        cache,
		classifier:   classifier,
		limiter:      limiter,
		writer:       newCacheWriter(cache, ttlDays, config.WriteQueueSize),
		chunkSize:    chunkSize,
		maxRetries:   maxRetries,
		chunkStagger: config.ChunkStagger,
		debug:        config.EnableDebugLogging,
	}
}

// Close drains pending background cache writes.
func (s *AnalysisService) Close() {
	s.writer.Close()
}

// Analyze parses the label text and classifies every ingredient, returning a
// product-level verdict. The contract guarantees one classification per parsed
// ingredient: unresolvable ingredients get the conservative fallback, never
// omission or a default "clean".
func (s *AnalysisService) Analyze(
	ctx context.Context,
	text string,
	callerIdentity string,
	onProgress ProgressFunc,
) (*domain.AnalysisResult, error) {
	if s.limiter != nil {
		if allowed, _ := s.limiter.Check(callerIdentity, ratelimit.OpClassification); !allowed {
			return nil, domain.ErrRateLimited
		}
	}

	ingredients, err := s.parser.Parse(text)
	if err != nil {
		return nil, err
	}
	if len(ingredients) == 0 {
		return nil, domain.ErrInvalidInput
	}

	emit := newProgressEmitter(onProgress)
	total := len(ingredients)

	// Product identification runs concurrently with the cache lookup and is
	// joined at merge time; a failure just leaves the field empty.
	productCh := make(chan string, 1)
	go func() {
		name, idErr := s.classifier.IdentifyProduct(ctx, text)
		if idErr != nil {
			if s.debug {
				log.Printf("[ANALYZE] Product identification failed: %v", idErr)
			}
			name = ""
		}
		productCh <- name
	}()

	// CACHE_LOOKUP: one batched read for all normalized names. Cache errors
	// are never propagated - they degrade to an all-miss.
	keys := make([]string, len(ingredients))
	for i, ing := range ingredients {
		keys[i] = domain.NormalizeIngredientKey(ing.Name)
	}
	cached, err := s.cache.GetMany(ctx, keys)
	if err != nil {
		log.Printf("[ANALYZE] Cache lookup failed, classifying everything: %v", err)
		cached = nil
	}

	results := make(map[string]domain.ClassifiedIngredient, total)
	var resultsMu sync.Mutex

	var missed []domain.ParsedIngredient
	for i, ing := range ingredients {
		if entry, ok := cached[keys[i]]; ok {
			results[keys[i]] = domain.ClassifiedIngredient{
				ParsedIngredient: ing,
				Classification: domain.IngredientClassification{
					Name:            ing.Name,
					Status:          entry.Status,
					Confidence:      1.0,
					EducationalNote: entry.EducationalNote,
					BasicNote:       entry.BasicNote,
				},
				Source: "cache",
			}
			emit.classified(ing.Name, total)
			continue
		}
		missed = append(missed, ing)
	}

	// BATCH_CLASSIFY: chunks run concurrently, staggered slightly for smooth
	// externally-observed pacing.
	chunks := chunkIngredients(missed, s.chunkSize)
	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(index int, chunk []domain.ParsedIngredient) {
			defer wg.Done()
			if s.chunkStagger > 0 && index > 0 {
				select {
				case <-time.After(time.Duration(index) * s.chunkStagger):
				case <-ctx.Done():
				}
			}
			classified := s.classifyChunk(ctx, chunk, emit, total)
			resultsMu.Lock()
			for key, res := range classified {
				results[key] = res
			}
			resultsMu.Unlock()
		}(i, chunk)
	}
	wg.Wait()

	// MERGE: re-assemble in original label order, schedule background cache
	// writes for fresh classifications, and compute the verdict last.
	product := <-productCh
	result := s.merge(ingredients, keys, results, product)
	return result, nil
}

// classifyChunk classifies one chunk with the fallback ladder: retry with
// backoff on transient failures; on exhaustion, a service-down failure gets a
// conservative chunk-wide fallback, while a malformed response degrades to
// per-item classification.
func (s *AnalysisService) classifyChunk(
	ctx context.Context,
	chunk []domain.ParsedIngredient,
	emit *progressEmitter,
	total int,
) map[string]domain.ClassifiedIngredient {
	out := make(map[string]domain.ClassifiedIngredient, len(chunk))

	names := make([]string, len(chunk))
	for i, ing := range chunk {
		names[i] = ing.Name
		emit.analyzing(ing.Name, total)
	}

	var batch []domain.IngredientClassification
	err := retryWithBackoff(ctx, s.retryPolicy(), func() error {
		var callErr error
		batch, callErr = s.classifier.ClassifyBatch(ctx, names)
		if callErr == nil && len(batch) != len(names) {
			callErr = domain.ErrMalformedResponse
		}
		return callErr
	})

	switch {
	case err == nil:
		for i, ing := range chunk {
			cls := batch[i]
			cls.Name = ing.Name
			out[domain.NormalizeIngredientKey(ing.Name)] = s.finishClassification(ing, cls, emit, total)
		}

	case errors.Is(err, domain.ErrMalformedResponse):
		if s.debug {
			log.Printf("[ANALYZE] Malformed batch response, degrading to per-item calls")
		}
		for _, ing := range chunk {
			out[domain.NormalizeIngredientKey(ing.Name)] = s.classifySingle(ctx, ing, emit, total)
		}

	default:
		// Service down or retries exhausted: conservative fallback for the
		// whole chunk. Never drop an ingredient, never default to clean.
		log.Printf("[ANALYZE] Chunk classification failed (%v), applying conservative fallback", err)
		for _, ing := range chunk {
			out[domain.NormalizeIngredientKey(ing.Name)] = conservativeFallback(ing)
			emit.classified(ing.Name, total)
		}
	}

	return out
}

// classifySingle classifies one ingredient with the same retry policy and a
// per-item conservative fallback.
func (s *AnalysisService) classifySingle(
	ctx context.Context,
	ing domain.ParsedIngredient,
	emit *progressEmitter,
	total int,
) domain.ClassifiedIngredient {
	var cls *domain.IngredientClassification
	err := retryWithBackoff(ctx, s.retryPolicy(), func() error {
		var callErr error
		cls, callErr = s.classifier.Classify(ctx, ing.Name)
		return callErr
	})
	if err != nil || cls == nil {
		emitted := conservativeFallback(ing)
		emit.classified(ing.Name, total)
		return emitted
	}
	result := *cls
	result.Name = ing.Name
	return s.finishClassification(ing, result, emit, total)
}

// finishClassification records a successful classification, scheduling the
// fire-and-forget cache write.
func (s *AnalysisService) finishClassification(
	ing domain.ParsedIngredient,
	cls domain.IngredientClassification,
	emit *progressEmitter,
	total int,
) domain.ClassifiedIngredient {
	s.writer.Enqueue(domain.NormalizeIngredientKey(ing.Name), cls)
	emit.classified(ing.Name, total)
	return domain.ClassifiedIngredient{
		ParsedIngredient: ing,
		Classification:   cls,
		Source:           "classifier",
	}
}

// merge assembles the final result in original label order.
func (s *AnalysisService) merge(
	ingredients []domain.ParsedIngredient,
	keys []string,
	results map[string]domain.ClassifiedIngredient,
	product string,
) *domain.AnalysisResult {
	out := &domain.AnalysisResult{
		Ingredients:           make([]domain.ClassifiedIngredient, 0, len(ingredients)),
		TotalIngredients:      len(ingredients),
		ProductIdentification: product,
	}

	for i, ing := range ingredients {
		res, ok := results[keys[i]]
		if !ok {
			// Should not happen, but the contract forbids dropping entries.
			res = conservativeFallback(ing)
		}
		out.Ingredients = append(out.Ingredients, res)

		switch res.Classification.Status {
		case domain.StatusClean:
			out.CleanCount++
		case domain.StatusConcerning:
			out.ConcerningCount++
		default:
			out.UnknownCount++
		}
	}

	// Conservative OR semantics: absence of information never yields "clean".
	if out.ConcerningCount > 0 || out.UnknownCount > 0 {
		out.OverallVerdict = string(domain.StatusConcerning)
	} else {
		out.OverallVerdict = string(domain.StatusClean)
	}

	return out
}

func (s *AnalysisService) retryPolicy() retryPolicy {
	return retryPolicy{
		MaxAttempts: s.maxRetries,
		Backoff:     exponentialBackoff,
		Retryable: func(err error) bool {
			return errors.Is(err, domain.ErrClassificationFailed)
		},
	}
}

// conservativeFallback assigns the "concerning/unknown" classification used
// whenever certainty cannot be established.
func conservativeFallback(ing domain.ParsedIngredient) domain.ClassifiedIngredient {
	return domain.ClassifiedIngredient{
		ParsedIngredient: ing,
		Classification: domain.IngredientClassification{
			Name:            ing.Name,
			Status:          domain.StatusConcerning,
			Confidence:      0,
			EducationalNote: conservativeFallbackNote,
			BasicNote:       "Could not be verified",
			Reasoning:       "classification unavailable",
		},
		Source: "fallback",
	}
}

// chunkIngredients groups cache-misses into fixed-size chunks.
func chunkIngredients(ingredients []domain.ParsedIngredient, size int) [][]domain.ParsedIngredient {
	var chunks [][]domain.ParsedIngredient
	for start := 0; start < len(ingredients); start += size {
		end := start + size
		if end > len(ingredients) {
			end = len(ingredients)
		}
		chunks = append(chunks, ingredients[start:end])
	}
	return chunks
}

// progressEmitter serializes progress callbacks across chunk goroutines and
// tracks the running classified count.
type progressEmitter struct {
	mu       sync.Mutex
	fn       ProgressFunc
	resolved int
}

func newProgressEmitter(fn ProgressFunc) *progressEmitter {
	return &progressEmitter{fn: fn}
}

func (e *progressEmitter) analyzing(name string, total int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fn == nil {
		return
	}
	e.fn(domain.ProgressEvent{
		Type:           "analyzing",
		Current:        e.resolved,
		Total:          total,
		IngredientName: name,
	})
}

func (e *progressEmitter) classified(name string, total int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resolved++
	if e.fn == nil {
		return
	}
	e.fn(domain.ProgressEvent{
		Type:           "classified",
		Current:        e.resolved,
		Total:          total,
		IngredientName: name,
	})
	// A little encouragement partway through long lists
	if total >= 8 && e.resolved != total && e.resolved%5 == 0 {
		e.fn(domain.ProgressEvent{
			Type:    "encouragement",
			Current: e.resolved,
			Total:   total,
			Message: encouragements[(e.resolved/5-1)%len(encouragements)],
		})
	}
}
