package http

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/labelscan/backend/internal/domain"
	"github.com/labelscan/backend/internal/usecase"
)

// AnalysisUsecase is the slice of the analysis service the handlers need.
type AnalysisUsecase interface {
	Analyze(ctx context.Context, text, callerIdentity string, onProgress usecase.ProgressFunc) (*domain.AnalysisResult, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	analysis         AnalysisUsecase
	ocr              domain.OCRClient
	minOCRConfidence float64
}

// NewHandler creates a new HTTP handler
func NewHandler(analysis AnalysisUsecase, ocr domain.OCRClient, minOCRConfidence float64) *Handler {
	return &Handler{
		analysis:         analysis,
		ocr:              ocr,
		minOCRConfidence: minOCRConfidence,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "labelscan-backend",
		"version": "1.0.0",
	})
}

// AnalyzeRequest is the body for analysis endpoints
type AnalyzeRequest struct {
	Text string `json:"text" binding:"required"`
}

// AnalyzeLabel runs a full label analysis and returns the aggregated result.
func (h *Handler) AnalyzeLabel(c *gin.Context) {
	if h.analysis == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "analysis service not configured"})
		return
	}

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	result, err := h.analysis.Analyze(c.Request.Context(), req.Text, callerIdentity(c), nil)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AnalyzeLabelStream runs an analysis while streaming progress events over SSE,
// finishing with a "result" event. Progress is advisory and safe to ignore.
func (h *Handler) AnalyzeLabelStream(c *gin.Context) {
	if h.analysis == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "analysis service not configured"})
		return
	}

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	events := make(chan domain.ProgressEvent, 64)
	type outcome struct {
		result *domain.AnalysisResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := h.analysis.Analyze(c.Request.Context(), req.Text, callerIdentity(c), func(ev domain.ProgressEvent) {
			select {
			case events <- ev:
			default: // never block the pipeline on a slow consumer
			}
		})
		done <- outcome{result: result, err: err}
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev := <-events:
			c.SSEvent("progress", ev)
			return true
		case out := <-done:
			// Drain events emitted before completion
			for {
				select {
				case ev := <-events:
					c.SSEvent("progress", ev)
				default:
					if out.err != nil {
						c.SSEvent("error", gin.H{"error": out.err.Error()})
					} else {
						c.SSEvent("result", out.result)
					}
					return false
				}
			}
		}
	})
}

// ExtractRequest is the body for the OCR endpoint
type ExtractRequest struct {
	Image string `json:"image" binding:"required"` // base64-encoded
}

// ExtractText extracts label text from an uploaded photograph. A confidence
// below the configured threshold sets reextractSuggested so the client can
// retry with different preprocessing.
func (h *Handler) ExtractText(c *gin.Context) {
	if h.ocr == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "ocr service not configured"})
		return
	}

	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image is required"})
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image must be base64-encoded"})
		return
	}

	result, err := h.ocr.ExtractText(c.Request.Context(), image)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "empty image"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "text extraction failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"text":               result.Text,
		"confidence":         result.Confidence,
		"reextractSuggested": result.Confidence < h.minOCRConfidence,
	})
}

// respondAnalysisError maps domain errors onto HTTP status codes.
func respondAnalysisError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "label text is empty, oversized or unparsable"})
	case errors.Is(err, domain.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
	}
}

// callerIdentity resolves the caller identity used for rate limiting.
func callerIdentity(c *gin.Context) string {
	if id := c.GetHeader("X-Caller-Identity"); id != "" {
		return id
	}
	return c.ClientIP()
}
