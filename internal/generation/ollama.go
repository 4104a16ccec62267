package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/scholarkb/scholarkb/internal/ollama"
)

// Default configuration values.
const (
	DefaultOllamaURL     = ollama.DefaultURL
	DefaultOllamaModel   = "llama3.2"
	DefaultOllamaTimeout = 120 * time.Second
)

// OllamaConfig holds configuration for the Ollama backend.
type OllamaConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// Temperature is passed to the model when positive.
	Temperature float64
}

// OllamaBackend generates text with a local Ollama server.
type OllamaBackend struct {
	client      *ollama.Client
	model       string
	temperature float64
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

type options struct {
	Temperature float64 `json:"temperature,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewOllamaBackend creates a new Ollama backend.
func NewOllamaBackend(cfg OllamaConfig) *OllamaBackend {
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultOllamaTimeout
	}

	return &OllamaBackend{
		client:      ollama.NewClient(cfg.BaseURL, cfg.Timeout),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

// Generate produces a completion for prompt.
func (b *OllamaBackend) Generate(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{Model: b.model, Prompt: prompt}
	if b.temperature > 0 {
		req.Options = &options{Temperature: b.temperature}
	}

	var resp generateResponse
	if err := b.client.Post(ctx, ollama.PathGenerate, req, &resp); err != nil {
		return "", &Error{Backend: b.Name(), Err: err}
	}
	if resp.Response == "" {
		return "", &Error{Backend: b.Name(), Err: ErrEmptyResponse}
	}
	return resp.Response, nil
}

// Name returns the backend and model name.
func (b *OllamaBackend) Name() string {
	return "ollama/" + b.model
}

// BaseURL returns the server address.
func (b *OllamaBackend) BaseURL() string {
	return b.client.BaseURL()
}

// Ping checks that the server is reachable without running inference.
func (b *OllamaBackend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx); err != nil {
		return fmt.Errorf("ollama is not running: %w", err)
	}
	return nil
}

// HasModel checks that the generation model has been pulled.
func (b *OllamaBackend) HasModel(ctx context.Context) (bool, error) {
	names, err := b.client.Models(ctx)
	if err != nil {
		return false, fmt.Errorf("checking models: %w", err)
	}
	return ollama.HasModel(names, b.model), nil
}
