package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labelscan/backend/internal/domain"
	"golang.org/x/time/rate"
)

// Client handles communication with the external ingredient classification API.
// It performs a single attempt per call and classifies failures into the
// domain error taxonomy; retry policy belongs to the orchestrator.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new classifier API client
func NewClient(apiKey, baseURL string) *Client {
	// The classifier allows 600 requests per minute; burst covers a full
	// analysis fan-out.
	limiter := rate.NewLimiter(rate.Limit(10), 20)

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey:      apiKey,
		baseURL:     baseURL,
		rateLimiter: limiter,
	}
}

// SetDebug toggles request/response logging
func (c *Client) SetDebug(enabled bool) {
	c.debug = enabled
}

type classifyRequest struct {
	Name string `json:"name"`
}

type classifyBatchRequest struct {
	Names []string `json:"names"`
}

type classificationPayload struct {
	Status          string   `json:"status"`
	Confidence      *float64 `json:"confidence"`
	EducationalNote string   `json:"educational_note"`
	BasicNote       string   `json:"basic_note"`
	Reasoning       string   `json:"reasoning"`
	Sources         []string `json:"sources"`
}

type classifyBatchResponse struct {
	Classifications []classificationPayload `json:"classifications"`
}

type identifyRequest struct {
	Text string `json:"text"`
}

type identifyResponse struct {
	Product string `json:"product"`
}

// Classify classifies a single ingredient name.
func (c *Client) Classify(ctx context.Context, name string) (*domain.IngredientClassification, error) {
	var payload classificationPayload
	if err := c.post(ctx, "/v1/classify", classifyRequest{Name: name}, &payload); err != nil {
		return nil, err
	}

	cls, err := toClassification(payload)
	if err != nil {
		return nil, err
	}
	cls.Name = name
	return &cls, nil
}

// ClassifyBatch classifies a batch of ingredient names in one call. The
// response must contain exactly one classification per name, in order.
func (c *Client) ClassifyBatch(ctx context.Context, names []string) ([]domain.IngredientClassification, error) {
	var resp classifyBatchResponse
	if err := c.post(ctx, "/v1/classify/batch", classifyBatchRequest{Names: names}, &resp); err != nil {
		return nil, err
	}

	if len(resp.Classifications) != len(names) {
		return nil, fmt.Errorf("%w: expected %d classifications, got %d",
			domain.ErrMalformedResponse, len(names), len(resp.Classifications))
	}

	out := make([]domain.IngredientClassification, len(names))
	for i, payload := range resp.Classifications {
		cls, err := toClassification(payload)
		if err != nil {
			return nil, err
		}
		cls.Name = names[i]
		out[i] = cls
	}
	return out, nil
}

// IdentifyProduct asks the service to name the product from full label text.
func (c *Client) IdentifyProduct(ctx context.Context, labelText string) (string, error) {
	var resp identifyResponse
	if err := c.post(ctx, "/v1/identify", identifyRequest{Text: labelText}, &resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Product), nil
}

// post executes a JSON POST and decodes the response, mapping transport and
// status failures onto the domain error taxonomy.
func (c *Client) post(ctx context.Context, path string, reqBody, respBody interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", "LabelScan/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	if c.debug {
		log.Printf("[CLASSIFIER] POST %s -> %d", path, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return classifyStatusError(resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return nil
}

// classifyTransportError distinguishes service-down signatures (connection
// refused, DNS failure) from transient ones (timeouts).
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrClassificationFailed, err)
	}

	msg := err.Error()
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network is unreachable") {
		return fmt.Errorf("%w: %v", domain.ErrClassifierUnreachable, err)
	}

	return fmt.Errorf("%w: %v", domain.ErrClassificationFailed, err)
}

// classifyStatusError maps HTTP status codes onto the error taxonomy: 5xx and
// 429 are transient, 503 counts as service-down, the rest are hard failures.
func classifyStatusError(status int, body []byte) error {
	switch {
	case status == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: status %d", domain.ErrClassifierUnreachable, status)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: status %d", domain.ErrClassificationFailed, status)
	default:
		return fmt.Errorf("%w: status %d, body: %s", domain.ErrClassificationFailed, status, string(body))
	}
}

// toClassification validates the loosely-typed payload against the strict
// result schema; malformed shapes become ErrMalformedResponse instead of
// propagating zero values.
func toClassification(p classificationPayload) (domain.IngredientClassification, error) {
	status := domain.ClassificationStatus(strings.ToLower(strings.TrimSpace(p.Status)))
	if !status.Valid() {
		return domain.IngredientClassification{}, fmt.Errorf("%w: status %q", domain.ErrMalformedResponse, p.Status)
	}
	if p.Confidence == nil || *p.Confidence < 0 || *p.Confidence > 1 {
		return domain.IngredientClassification{}, fmt.Errorf("%w: missing or out-of-range confidence", domain.ErrMalformedResponse)
	}

	return domain.IngredientClassification{
		Status:          status,
		Confidence:      *p.Confidence,
		EducationalNote: strings.TrimSpace(p.EducationalNote),
		BasicNote:       strings.TrimSpace(p.BasicNote),
		Reasoning:       strings.TrimSpace(p.Reasoning),
		Sources:         p.Sources,
	}, nil
}
