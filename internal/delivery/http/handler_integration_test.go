package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/labelscan/backend/config"
	"github.com/labelscan/backend/internal/domain"
	"github.com/labelscan/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	exitCode := m.Run()

	os.Exit(exitCode)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Classifier: config.ClassifierConfig{
			APIKey:  "test-api-key",
			BaseURL: "https://api.labelscan.dev",
		},
	}
}

// setupTestRouter creates a test router with no backing services wired;
// service endpoints respond 501.
func setupTestRouter() *gin.Engine {
	handler := NewHandler(nil, nil, 0.6)
	return SetupRouter(testConfig(), handler, nil)
}

// stubAnalysis is an AnalysisUsecase double with a canned outcome.
type stubAnalysis struct {
	result *domain.AnalysisResult
	err    error
	events []domain.ProgressEvent
}

func (s *stubAnalysis) Analyze(ctx context.Context, text, callerIdentity string, onProgress usecase.ProgressFunc) (*domain.AnalysisResult, error) {
	if onProgress != nil {
		for _, ev := range s.events {
			onProgress(ev)
		}
	}
	return s.result, s.err
}

// stubOCR is an OCRClient double with a canned outcome.
type stubOCR struct {
	result *domain.OCRResult
	err    error
}

func (s *stubOCR) ExtractText(ctx context.Context, image []byte) (*domain.OCRResult, error) {
	return s.result, s.err
}

func setupTestRouterWithServices(analysis AnalysisUsecase, ocr domain.OCRClient) *gin.Engine {
	handler := NewHandler(analysis, ocr, 0.6)
	return SetupRouter(testConfig(), handler, nil)
}

func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "labelscan-backend" {
			t.Errorf("service = %v, want labelscan-backend", response["service"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter()

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			req, _ := http.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

func TestAnalyzeEndpoint(t *testing.T) {
	t.Run("returns not implemented without a service", func(t *testing.T) {
		router := setupTestRouter()

		payload := `{"text":"Sugar, Salt"}`
		req, _ := http.NewRequest("POST", "/api/v1/analysis/analyze", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotImplemented {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotImplemented)
		}
	})

	t.Run("returns analysis result", func(t *testing.T) {
		analysis := &stubAnalysis{
			result: &domain.AnalysisResult{
				OverallVerdict:   "concerning",
				TotalIngredients: 2,
				CleanCount:       1,
				ConcerningCount:  1,
				Ingredients: []domain.ClassifiedIngredient{
					{
						ParsedIngredient: domain.ParsedIngredient{Name: "Flour"},
						Classification:   domain.IngredientClassification{Name: "Flour", Status: domain.StatusClean},
						Source:           "classifier",
					},
					{
						ParsedIngredient: domain.ParsedIngredient{Name: "BHT"},
						Classification:   domain.IngredientClassification{Name: "BHT", Status: domain.StatusConcerning},
						Source:           "cache",
					},
				},
			},
		}
		router := setupTestRouterWithServices(analysis, nil)

		payload := `{"text":"Flour, BHT"}`
		req, _ := http.NewRequest("POST", "/api/v1/analysis/analyze", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response["overallVerdict"] != "concerning" {
			t.Errorf("overallVerdict = %v, want concerning", response["overallVerdict"])
		}
		if response["totalIngredients"] != float64(2) {
			t.Errorf("totalIngredients = %v, want 2", response["totalIngredients"])
		}
	})

	t.Run("returns 400 for missing text", func(t *testing.T) {
		router := setupTestRouterWithServices(&stubAnalysis{}, nil)

		payload := `{}`
		req, _ := http.NewRequest("POST", "/api/v1/analysis/analyze", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("returns 400 for invalid JSON", func(t *testing.T) {
		router := setupTestRouterWithServices(&stubAnalysis{}, nil)

		req, _ := http.NewRequest("POST", "/api/v1/analysis/analyze", strings.NewReader(`{invalid json}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("maps domain errors to status codes", func(t *testing.T) {
		testCases := []struct {
			name       string
			err        error
			wantStatus int
		}{
			{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
			{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
			{"classifier unreachable", domain.ErrClassifierUnreachable, http.StatusInternalServerError},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				router := setupTestRouterWithServices(&stubAnalysis{err: tc.err}, nil)

				payload := `{"text":"Sugar"}`
				req, _ := http.NewRequest("POST", "/api/v1/analysis/analyze", strings.NewReader(payload))
				req.Header.Set("Content-Type", "application/json")
				w := httptest.NewRecorder()

				router.ServeHTTP(w, req)

				if w.Code != tc.wantStatus {
					t.Errorf("Status = %d, want %d", w.Code, tc.wantStatus)
				}
			})
		}
	})
}

// closeNotifyingRecorder adds the CloseNotifier implementation gin's Stream
// helper requires; httptest.ResponseRecorder alone does not provide it.
type closeNotifyingRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newCloseNotifyingRecorder() *closeNotifyingRecorder {
	return &closeNotifyingRecorder{httptest.NewRecorder(), make(chan bool, 1)}
}

func (r *closeNotifyingRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func TestAnalyzeStreamEndpoint(t *testing.T) {
	t.Run("streams progress events then the result", func(t *testing.T) {
		analysis := &stubAnalysis{
			result: &domain.AnalysisResult{
				OverallVerdict:   "clean",
				TotalIngredients: 1,
				CleanCount:       1,
			},
			events: []domain.ProgressEvent{
				{Type: "analyzing", Current: 0, Total: 1, IngredientName: "Sugar"},
				{Type: "classified", Current: 1, Total: 1, IngredientName: "Sugar"},
			},
		}
		router := setupTestRouterWithServices(analysis, nil)

		payload := `{"text":"Sugar"}`
		req, _ := http.NewRequest("POST", "/api/v1/analysis/analyze/stream", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := newCloseNotifyingRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
			t.Errorf("Content-Type = %q, want text/event-stream", ct)
		}

		body := w.Body.String()
		if !strings.Contains(body, "event:progress") {
			t.Errorf("expected progress events in stream, got: %s", body)
		}
		if !strings.Contains(body, "event:result") {
			t.Errorf("expected final result event in stream, got: %s", body)
		}
	})

	t.Run("streams an error event on failure", func(t *testing.T) {
		router := setupTestRouterWithServices(&stubAnalysis{err: domain.ErrInvalidInput}, nil)

		payload := `{"text":"x"}`
		req, _ := http.NewRequest("POST", "/api/v1/analysis/analyze/stream", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := newCloseNotifyingRecorder()

		router.ServeHTTP(w, req)

		if !strings.Contains(w.Body.String(), "event:error") {
			t.Errorf("expected error event in stream, got: %s", w.Body.String())
		}
	})
}

func TestExtractEndpoint(t *testing.T) {
	t.Run("returns extracted text with reextract hint", func(t *testing.T) {
		ocr := &stubOCR{result: &domain.OCRResult{Text: "Sugar, Salt", Confidence: 0.4}}
		router := setupTestRouterWithServices(nil, ocr)

		image := base64.StdEncoding.EncodeToString([]byte("fake-image"))
		payload := `{"image":"` + image + `"}`
		req, _ := http.NewRequest("POST", "/api/v1/ocr/extract", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response["text"] != "Sugar, Salt" {
			t.Errorf("text = %v, want Sugar, Salt", response["text"])
		}
		// 0.4 is below the 0.6 threshold
		if response["reextractSuggested"] != true {
			t.Errorf("reextractSuggested = %v, want true", response["reextractSuggested"])
		}
	})

	t.Run("returns 400 for non-base64 image", func(t *testing.T) {
		router := setupTestRouterWithServices(nil, &stubOCR{})

		payload := `{"image":"not-valid-base64!!!"}`
		req, _ := http.NewRequest("POST", "/api/v1/ocr/extract", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("returns 502 for extraction failure", func(t *testing.T) {
		router := setupTestRouterWithServices(nil, &stubOCR{err: domain.ErrOCRFailure})

		image := base64.StdEncoding.EncodeToString([]byte("fake-image"))
		payload := `{"image":"` + image + `"}`
		req, _ := http.NewRequest("POST", "/api/v1/ocr/extract", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadGateway {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadGateway)
		}
	})
}

func TestRecoveryMiddlewareIntegration(t *testing.T) {
	t.Run("recovers from panic without crashing server", func(t *testing.T) {
		router := setupTestRouter()

		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		req, _ := http.NewRequest("GET", "/panic", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})
}

func TestAPIVersioning(t *testing.T) {
	t.Run("v1 routes are accessible", func(t *testing.T) {
		router := setupTestRouter()

		payload := `{"text":"Sugar"}`
		req, _ := http.NewRequest("POST", "/api/v1/analysis/analyze", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		// Should return 501 Not Implemented, not 404 Not Found
		if w.Code != http.StatusNotImplemented {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotImplemented)
		}
	})

	t.Run("non-versioned routes return 404", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("POST", "/api/analysis/analyze", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}
