package http

import (
	"github.com/gin-gonic/gin"
	"github.com/labelscan/backend/config"
	"github.com/labelscan/backend/internal/ratelimit"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, limiter *ratelimit.Limiter) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(limiter, ratelimit.OpGeneral))
	{
		analysis := v1.Group("/analysis")
		{
			analysis.POST("/analyze", handler.AnalyzeLabel)
			analysis.POST("/analyze/stream", handler.AnalyzeLabelStream)
		}

		ocrGroup := v1.Group("/ocr")
		ocrGroup.Use(RateLimitMiddleware(limiter, ratelimit.OpOCR))
		{
			ocrGroup.POST("/extract", handler.ExtractText)
		}
	}

	return router
}
