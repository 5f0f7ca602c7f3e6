package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/labelscan/backend/internal/ratelimit"
)

func TestIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		name           string
		origin         string
		allowedOrigins []string
		want           bool
	}{
		{
			name:           "exact match",
			origin:         "http://localhost:3000",
			allowedOrigins: []string{"http://localhost:3000"},
			want:           true,
		},
		{
			name:           "wildcard match",
			origin:         "https://app.labelscan.dev",
			allowedOrigins: []string{"https://*"},
			want:           true,
		},
		{
			name:           "multiple allowed origins - matches second",
			origin:         "http://localhost:3000",
			allowedOrigins: []string{"https://app.labelscan.dev", "http://localhost:3000"},
			want:           true,
		},
		{
			name:           "no match",
			origin:         "http://evil.com",
			allowedOrigins: []string{"http://localhost:3000"},
			want:           false,
		},
		{
			name:           "empty origin",
			origin:         "",
			allowedOrigins: []string{"http://localhost:3000"},
			want:           false,
		},
		{
			name:           "empty allowed list",
			origin:         "http://localhost:3000",
			allowedOrigins: []string{},
			want:           false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isAllowedOrigin(tt.origin, tt.allowedOrigins)
			if got != tt.want {
				t.Errorf("isAllowedOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("allowed origin gets CORS headers", func(t *testing.T) {
		router := gin.New()
		router.Use(CORSMiddleware([]string{"http://localhost:3000"}))
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		req, _ := http.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Access-Control-Allow-Origin = %q, want the origin echoed back", got)
		}
		if got := w.Header().Get("Access-Control-Allow-Headers"); got == "" {
			t.Error("expected Access-Control-Allow-Headers to be set")
		}
	})

	t.Run("preflight request short-circuits with 204", func(t *testing.T) {
		router := gin.New()
		router.Use(CORSMiddleware([]string{"http://localhost:3000"}))
		router.POST("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		req, _ := http.NewRequest("OPTIONS", "/test", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNoContent)
		}
	})

	t.Run("disallowed origin gets no CORS headers", func(t *testing.T) {
		router := gin.New()
		router.Use(CORSMiddleware([]string{"http://localhost:3000"}))
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		req, _ := http.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "http://evil.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
		}
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("denies over-limit callers with Retry-After", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(map[ratelimit.OperationClass]ratelimit.Rule{
			ratelimit.OpGeneral: {Limit: 1, Window: time.Minute},
		}, 0, nil)
		defer limiter.Stop()

		router := gin.New()
		router.Use(RateLimitMiddleware(limiter, ratelimit.OpGeneral))
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		first := httptest.NewRecorder()
		req1, _ := http.NewRequest("GET", "/test", nil)
		req1.Header.Set("X-Caller-Identity", "alice")
		router.ServeHTTP(first, req1)
		if first.Code != http.StatusOK {
			t.Fatalf("first request status = %d, want %d", first.Code, http.StatusOK)
		}

		second := httptest.NewRecorder()
		req2, _ := http.NewRequest("GET", "/test", nil)
		req2.Header.Set("X-Caller-Identity", "alice")
		router.ServeHTTP(second, req2)
		if second.Code != http.StatusTooManyRequests {
			t.Fatalf("second request status = %d, want %d", second.Code, http.StatusTooManyRequests)
		}
		if second.Header().Get("Retry-After") == "" {
			t.Error("expected Retry-After header on denial")
		}
	})

	t.Run("identities are limited independently", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(map[ratelimit.OperationClass]ratelimit.Rule{
			ratelimit.OpGeneral: {Limit: 1, Window: time.Minute},
		}, 0, nil)
		defer limiter.Stop()

		router := gin.New()
		router.Use(RateLimitMiddleware(limiter, ratelimit.OpGeneral))
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		for _, identity := range []string{"alice", "bob"} {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/test", nil)
			req.Header.Set("X-Caller-Identity", identity)
			router.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Errorf("%s status = %d, want %d", identity, w.Code, http.StatusOK)
			}
		}
	})

	t.Run("nil limiter passes everything through", func(t *testing.T) {
		router := gin.New()
		router.Use(RateLimitMiddleware(nil, ratelimit.OpGeneral))
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		for i := 0; i < 5; i++ {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/test", nil)
			router.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Fatalf("request %d status = %d, want %d", i, w.Code, http.StatusOK)
			}
		}
	})
}
