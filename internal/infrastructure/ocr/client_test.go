package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labelscan/backend/internal/domain"
)

func float64Ptr(v float64) *float64 { return &v }

func TestExtractText_Success(t *testing.T) {
	image := []byte("fake-image-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/extract", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req extractRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		decoded, err := base64.StdEncoding.DecodeString(req.Image)
		require.NoError(t, err)
		assert.Equal(t, image, decoded)

		json.NewEncoder(w).Encode(extractResponse{
			Text:       "Ingredients: Sugar, Salt",
			Confidence: float64Ptr(0.92),
		})
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	result, err := client.ExtractText(context.Background(), image)

	require.NoError(t, err)
	assert.Equal(t, "Ingredients: Sugar, Salt", result.Text)
	assert.Equal(t, 0.92, result.Confidence)
}

func TestExtractText_EmptyImage(t *testing.T) {
	client := NewClient("test-key", "http://unused")
	_, err := client.ExtractText(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExtractText_MissingConfidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(extractResponse{Text: "Sugar"})
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	_, err := client.ExtractText(context.Background(), []byte("image"))

	assert.ErrorIs(t, err, domain.ErrOCRFailure)
}

func TestExtractText_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	_, err := client.ExtractText(context.Background(), []byte("image"))

	assert.ErrorIs(t, err, domain.ErrOCRFailure)
}
