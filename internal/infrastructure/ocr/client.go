package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labelscan/backend/internal/domain"
	"golang.org/x/time/rate"
)

// Client handles communication with the external text extraction service.
// Deciding whether a low-confidence result warrants re-extraction with
// different preprocessing is the caller's concern.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
}

// NewClient creates a new OCR API client
func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		apiKey:      apiKey,
		baseURL:     baseURL,
		rateLimiter: rate.NewLimiter(rate.Limit(2), 5),
	}
}

type extractRequest struct {
	Image string `json:"image"` // base64-encoded
}

type extractResponse struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence"`
}

// ExtractText submits a label photograph and returns the recognized text with
// its confidence score.
func (c *Client) ExtractText(ctx context.Context, image []byte) (*domain.OCRResult, error) {
	if len(image) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	body, err := json.Marshal(extractRequest{Image: base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extract", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", "LabelScan/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOCRFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%w: status %d, body: %s", domain.ErrOCRFailure, resp.StatusCode, string(raw))
	}

	var decoded extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOCRFailure, err)
	}
	if decoded.Confidence == nil {
		return nil, fmt.Errorf("%w: missing confidence", domain.ErrOCRFailure)
	}

	return &domain.OCRResult{
		Text:       decoded.Text,
		Confidence: *decoded.Confidence,
	}, nil
}
