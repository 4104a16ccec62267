package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/scholarkb/scholarkb/internal/ollama"
)

func TestNewOllamaProvider_Defaults(t *testing.T) {
	provider := NewOllamaProvider()

	if provider.BaseURL() != DefaultOllamaURL {
		t.Errorf("BaseURL() = %s, want %s", provider.BaseURL(), DefaultOllamaURL)
	}
	if provider.ModelName() != DefaultModel {
		t.Errorf("ModelName() = %s, want %s", provider.ModelName(), DefaultModel)
	}
	if provider.Dimensions() != DefaultDimensions {
		t.Errorf("Dimensions() = %d, want %d", provider.Dimensions(), DefaultDimensions)
	}
	if provider.client.Timeout() != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", provider.client.Timeout(), DefaultTimeout)
	}
}

func TestNewOllamaProvider_WithOptions(t *testing.T) {
	provider := NewOllamaProvider(
		WithBaseURL("http://custom:8080"),
		WithModel("nomic-embed-text"),
		WithDimensions(768),
		WithTimeout(60*time.Second),
	)

	if provider.BaseURL() != "http://custom:8080" {
		t.Errorf("BaseURL() = %s, want http://custom:8080", provider.BaseURL())
	}
	if provider.ModelName() != "nomic-embed-text" {
		t.Errorf("ModelName() = %s, want nomic-embed-text", provider.ModelName())
	}
	if provider.Dimensions() != 768 {
		t.Errorf("Dimensions() = %d, want 768", provider.Dimensions())
	}
	if provider.client.Timeout() != 60*time.Second {
		t.Errorf("timeout = %v, want 60s", provider.client.Timeout())
	}
}

func TestNewOllamaProvider_ZeroOptionsKeepDefaults(t *testing.T) {
	provider := NewOllamaProvider(WithBaseURL(""), WithModel(""), WithDimensions(0), WithTimeout(0))
	if provider.BaseURL() != DefaultOllamaURL || provider.ModelName() != DefaultModel ||
		provider.Dimensions() != DefaultDimensions || provider.client.Timeout() != DefaultTimeout {
		t.Errorf("zero-valued options should keep defaults, got %+v", provider)
	}
}

// newOllamaServer returns a test server that answers embedding requests with
// a vector of the given size, or with the given status code when non-200.
func newOllamaServer(t *testing.T, status, dims int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ollama.PathTags:
			w.Write([]byte(`{"models":[{"name":"all-minilm:l6-v2"},{"name":"nomic-embed-text:latest"}]}`))
		case ollama.PathEmbeddings:
			var req embedRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decoding request: %v", err)
			}
			if req.Prompt == "" {
				t.Error("request prompt should not be empty")
			}
			if status != http.StatusOK {
				http.Error(w, "boom", status)
				return
			}
			json.NewEncoder(w).Encode(embedResponse{Embedding: make([]float32, dims)})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaProvider_Embed(t *testing.T) {
	srv := newOllamaServer(t, http.StatusOK, 4)
	provider := NewOllamaProvider(WithBaseURL(srv.URL), WithDimensions(4))

	emb, err := provider.Embed(context.Background(), "attention")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if emb.Dimensions() != 4 {
		t.Errorf("Dimensions() = %d, want 4", emb.Dimensions())
	}
}

func TestOllamaProvider_EmbedErrors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		dims          int
		wantPermanent bool
	}{
		{"dimension mismatch", http.StatusOK, 3, true},
		{"model missing", http.StatusNotFound, 4, true},
		{"bad request", http.StatusBadRequest, 4, true},
		{"server error", http.StatusInternalServerError, 4, false},
		{"rate limited", http.StatusTooManyRequests, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newOllamaServer(t, tt.status, tt.dims)
			provider := NewOllamaProvider(WithBaseURL(srv.URL), WithDimensions(4))

			_, err := provider.Embed(context.Background(), "attention")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := IsPermanent(err); got != tt.wantPermanent {
				t.Errorf("IsPermanent(%v) = %v, want %v", err, got, tt.wantPermanent)
			}
		})
	}
}

func TestOllamaProvider_Health(t *testing.T) {
	srv := newOllamaServer(t, http.StatusOK, 4)
	ctx := context.Background()

	if err := NewOllamaProvider(WithBaseURL(srv.URL)).IsAvailable(ctx); err != nil {
		t.Errorf("IsAvailable() error = %v", err)
	}

	tests := []struct {
		model string
		want  bool
	}{
		{"all-minilm:l6-v2", true},
		{"nomic-embed-text", true},
		{"mxbai-embed-large", false},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got, err := NewOllamaProvider(WithBaseURL(srv.URL), WithModel(tt.model)).HasModel(ctx)
			if err != nil {
				t.Fatalf("HasModel() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("HasModel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOllamaProvider_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	err := NewOllamaProvider(WithBaseURL(srv.URL)).IsAvailable(context.Background())
	if err == nil || !strings.Contains(err.Error(), "not running") {
		t.Errorf("IsAvailable() error = %v, want not-running error", err)
	}
	if errors.Is(err, ErrDimensionMismatch) {
		t.Error("connection failure should not be a dimension mismatch")
	}
}
