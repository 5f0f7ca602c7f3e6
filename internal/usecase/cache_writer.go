package usecase

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/labelscan/backend/internal/domain"
)

// cacheWriter performs fire-and-forget cache writes on a bounded background
// queue. Write failures are logged and swallowed; they are never surfaced to
// the caller, and in-flight writes complete independently of any request.
type cacheWriter struct {
	cache   domain.ClassificationCache
	ttlDays int
	jobs    chan cacheWriteJob
	wg      sync.WaitGroup
	once    sync.Once
}

type cacheWriteJob struct {
	name           string
	classification domain.IngredientClassification
}

const cacheWriteTimeout = 5 * time.Second

func newCacheWriter(cache domain.ClassificationCache, ttlDays, queueSize int) *cacheWriter {
	if queueSize <= 0 {
		queueSize = 64
	}
	w := &cacheWriter{
		cache:   cache,
		ttlDays: ttlDays,
		jobs:    make(chan cacheWriteJob, queueSize),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Enqueue schedules a background write. A full queue drops the write rather
// than blocking the caller.
func (w *cacheWriter) Enqueue(name string, classification domain.IngredientClassification) {
	select {
	case w.jobs <- cacheWriteJob{name: name, classification: classification}:
	default:
		log.Printf("[CACHE] Write queue full, dropping entry for %q", name)
	}
}

// Close drains the queue and stops the worker.
func (w *cacheWriter) Close() {
	w.once.Do(func() { close(w.jobs) })
	w.wg.Wait()
}

func (w *cacheWriter) run() {
	defer w.wg.Done()
	for job := range w.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
		if err := w.cache.Upsert(ctx, job.name, job.classification, w.ttlDays); err != nil {
			log.Printf("[CACHE] Background write failed for %q: %v", job.name, err)
		}
		cancel()
	}
}
