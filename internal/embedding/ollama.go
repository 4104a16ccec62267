package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scholarkb/scholarkb/internal/ollama"
)

const (
	// DefaultOllamaURL is the default Ollama API endpoint.
	DefaultOllamaURL = ollama.DefaultURL

	// DefaultModel is the default embedding model.
	DefaultModel = "all-minilm:l6-v2"

	// DefaultDimensions is the output size of all-minilm.
	DefaultDimensions = 384

	// DefaultTimeout bounds a single embedding request.
	DefaultTimeout = 30 * time.Second
)

// OllamaProvider embeds text with a local Ollama server.
type OllamaProvider struct {
	client     *ollama.Client
	model      string
	dimensions int
}

// ollamaSettings collects options before the client is built.
type ollamaSettings struct {
	baseURL    string
	model      string
	dimensions int
	timeout    time.Duration
}

// OllamaOption configures an OllamaProvider. Zero values keep the default.
type OllamaOption func(*ollamaSettings)

// WithBaseURL sets the Ollama API base URL.
func WithBaseURL(url string) OllamaOption {
	return func(s *ollamaSettings) {
		if url != "" {
			s.baseURL = url
		}
	}
}

// WithModel sets the embedding model.
func WithModel(model string) OllamaOption {
	return func(s *ollamaSettings) {
		if model != "" {
			s.model = model
		}
	}
}

// WithDimensions sets the expected vector dimensions.
func WithDimensions(dims int) OllamaOption {
	return func(s *ollamaSettings) {
		if dims > 0 {
			s.dimensions = dims
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) OllamaOption {
	return func(s *ollamaSettings) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// NewOllamaProvider creates an Ollama embedding provider.
func NewOllamaProvider(opts ...OllamaOption) *OllamaProvider {
	s := ollamaSettings{
		baseURL:    DefaultOllamaURL,
		model:      DefaultModel,
		dimensions: DefaultDimensions,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &OllamaProvider{
		client:     ollama.NewClient(s.baseURL, s.timeout),
		model:      s.model,
		dimensions: s.dimensions,
	}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the vector for text. Status errors the server will repeat
// (4xx other than 429) are marked permanent.
func (p *OllamaProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	var resp embedResponse
	err := p.client.Post(ctx, ollama.PathEmbeddings, embedRequest{Model: p.model, Prompt: text}, &resp)

	var statusErr *ollama.StatusError
	switch {
	case errors.As(err, &statusErr) && !statusErr.Retryable():
		return Embedding{}, Permanent(err)
	case err != nil:
		return Embedding{}, err
	}

	if len(resp.Embedding) != p.dimensions {
		return Embedding{}, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(resp.Embedding), p.dimensions)
	}
	return Embedding{Vector: resp.Embedding}, nil
}

// ModelName returns the embedding model.
func (p *OllamaProvider) ModelName() string {
	return p.model
}

// Dimensions returns the expected vector dimensions.
func (p *OllamaProvider) Dimensions() int {
	return p.dimensions
}

// BaseURL returns the server address.
func (p *OllamaProvider) BaseURL() string {
	return p.client.BaseURL()
}

// IsAvailable checks that the server answers.
func (p *OllamaProvider) IsAvailable(ctx context.Context) error {
	if err := p.client.Ping(ctx); err != nil {
		return fmt.Errorf("ollama is not running: %w", err)
	}
	return nil
}

// HasModel checks that the embedding model has been pulled.
func (p *OllamaProvider) HasModel(ctx context.Context) (bool, error) {
	names, err := p.client.Models(ctx)
	if err != nil {
		return false, fmt.Errorf("checking models: %w", err)
	}
	return ollama.HasModel(names, p.model), nil
}
