package main

import (
	"fmt"
	"log"
	"os"

	"github.com/labelscan/backend/config"
	httpDelivery "github.com/labelscan/backend/internal/delivery/http"
	"github.com/labelscan/backend/internal/infrastructure/cache"
	"github.com/labelscan/backend/internal/infrastructure/classifier"
	"github.com/labelscan/backend/internal/infrastructure/ocr"
	"github.com/labelscan/backend/internal/ratelimit"
	"github.com/labelscan/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting LabelScan Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	// Initialize infrastructure dependencies
	memoryCache := cache.NewMemoryCache(cfg.Cache.SweepInterval)
	defer memoryCache.Stop()
	log.Printf("Cache TTL: %d days", cfg.Cache.TTLDays)

	classifierClient := classifier.NewClient(cfg.Classifier.APIKey, cfg.Classifier.BaseURL)
	ocrClient := ocr.NewClient(cfg.OCR.APIKey, cfg.OCR.BaseURL)

	// Enable debug mode in development environment
	if cfg.Server.Environment == "development" {
		classifierClient.SetDebug(true)
		log.Printf("Classifier client debug mode enabled")
	}

	if cfg.Classifier.APIKey != "" {
		log.Printf("Classifier API configured: %s", cfg.Classifier.BaseURL)
	} else {
		log.Printf("WARNING: Classifier API key NOT CONFIGURED - API calls will fail!")
	}

	// Process-wide rate limiter, one budget per operation class
	limiter := ratelimit.NewLimiter(map[ratelimit.OperationClass]ratelimit.Rule{
		ratelimit.OpOCR:            {Limit: cfg.RateLimit.OCRLimit, Window: cfg.RateLimit.Window},
		ratelimit.OpClassification: {Limit: cfg.RateLimit.ClassificationLimit, Window: cfg.RateLimit.Window},
		ratelimit.OpGeneral:        {Limit: cfg.RateLimit.GeneralLimit, Window: cfg.RateLimit.Window},
	}, cfg.RateLimit.SweepInterval, nil)
	defer limiter.Stop()

	// Initialize usecase layer
	labelParser := usecase.NewLabelParser(cfg.Analysis.EnableDebugLogging)
	analysisService := usecase.NewAnalysisService(
		labelParser,
		memoryCache,
		classifierClient,
		limiter,
		usecase.AnalysisServiceConfig{
			CacheTTLDays:       cfg.Cache.TTLDays,
			ChunkSize:          cfg.Analysis.ChunkSize,
			MaxRetries:         cfg.Analysis.MaxRetries,
			ChunkStagger:       cfg.Analysis.ChunkStagger,
			EnableDebugLogging: cfg.Analysis.EnableDebugLogging,
		},
	)
	defer analysisService.Close()

	log.Printf("Analysis: chunk=%d, retries=%d, debug=%v",
		cfg.Analysis.ChunkSize, cfg.Analysis.MaxRetries, cfg.Analysis.EnableDebugLogging)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(analysisService, ocrClient, cfg.OCR.MinConfidence)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, limiter)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
