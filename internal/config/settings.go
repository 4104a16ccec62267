package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scholarkb/scholarkb/internal/chunk"
	"github.com/scholarkb/scholarkb/internal/embedding"
	"github.com/scholarkb/scholarkb/internal/generation"
	"github.com/scholarkb/scholarkb/internal/kb"
	"github.com/scholarkb/scholarkb/internal/pdf"
)

// Environment variables that override settings.
const (
	GeminiAPIKeyEnv = "GEMINI_API_KEY"
	OllamaHostEnv   = "OLLAMA_HOST"
)

// DefaultTemperature is the generation temperature when none is configured.
const DefaultTemperature = 0.3

// Valid provider and backend names.
var (
	ValidEmbeddingProviders = []string{"ollama", "gemini", "hash"}
	ValidGenerationBackends = []string{"ollama", "gemini", "claude"}
)

// Settings is the repository configuration stored in .skb/config.yml.
type Settings struct {
	Embedding  EmbeddingSettings  `json:"embedding" yaml:"embedding"`
	Generation GenerationSettings `json:"generation" yaml:"generation"`
	Chunking   ChunkingSettings   `json:"chunking" yaml:"chunking"`
	Ingest     IngestSettings     `json:"ingest" yaml:"ingest"`
	LogLevel   string             `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	Viewer     string             `json:"viewer,omitempty" yaml:"viewer,omitempty"` // document viewer for skb open

	// GeminiAPIKey is read from the environment only.
	GeminiAPIKey string `json:"-" yaml:"-"`
}

// EmbeddingSettings selects and configures the embedding provider.
type EmbeddingSettings struct {
	Provider   string        `json:"provider" yaml:"provider"`
	Model      string        `json:"model,omitempty" yaml:"model,omitempty"`
	BaseURL    string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Dimensions int           `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Timeout    time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Retries    int           `json:"retries,omitempty" yaml:"retries,omitempty"`
	RateLimit  float64       `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"` // requests per second, 0 = unlimited
}

// GenerationSettings selects and configures the generation backend.
type GenerationSettings struct {
	Backend     string        `json:"backend" yaml:"backend"`
	Model       string        `json:"model,omitempty" yaml:"model,omitempty"`
	BaseURL     string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Temperature float64       `json:"temperature" yaml:"temperature"`
	RateLimit   float64       `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
}

// ChunkingSettings configures the chunk window, in characters.
type ChunkingSettings struct {
	Size    int `json:"size" yaml:"size"`
	Overlap int `json:"overlap" yaml:"overlap"`
}

// IngestSettings configures ingestion.
type IngestSettings struct {
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// GenerativeMetadata asks the generation backend for paper metadata,
	// falling back to heuristics.
	GenerativeMetadata bool `json:"generative_metadata" yaml:"generative_metadata"`
}

// DefaultSettings returns the settings written by Init.
func DefaultSettings() *Settings {
	s := &Settings{
		Embedding:  EmbeddingSettings{Provider: "ollama"},
		Generation: GenerationSettings{Backend: "ollama", Temperature: DefaultTemperature},
		Chunking:   ChunkingSettings{Overlap: chunk.DefaultOverlap},
	}
	s.applyDefaults()
	return s
}

// LoadSettings reads settings for the repository at root. A missing file
// yields defaults. Environment overrides are applied last.
func LoadSettings(root string) (*Settings, error) {
	s, err := ReadSettings(ConfigPath(root))
	if err != nil {
		return nil, err
	}
	s.ApplyEnv(os.Getenv)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ReadSettings parses a settings file and fills in defaults.
func ReadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Fields whose zero value is meaningful are preset before decoding.
	s := &Settings{
		Generation: GenerationSettings{Temperature: DefaultTemperature},
		Chunking:   ChunkingSettings{Overlap: chunk.DefaultOverlap},
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	s.applyDefaults()
	return s, nil
}

// Save writes settings to the repository at root.
func (s *Settings) Save(root string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// ApplyEnv applies environment overrides using getenv.
func (s *Settings) ApplyEnv(getenv func(string) string) {
	if key := getenv(GeminiAPIKeyEnv); key != "" {
		s.GeminiAPIKey = key
	}
	if host := getenv(OllamaHostEnv); host != "" {
		host = normalizeHost(host)
		if s.Embedding.Provider == "ollama" {
			s.Embedding.BaseURL = host
		}
		if s.Generation.Backend == "ollama" {
			s.Generation.BaseURL = host
		}
	}
}

// Validate checks provider names and numeric ranges.
func (s *Settings) Validate() error {
	if !slices.Contains(ValidEmbeddingProviders, s.Embedding.Provider) {
		return fmt.Errorf("invalid embedding provider: %s (valid: %v)", s.Embedding.Provider, ValidEmbeddingProviders)
	}
	if !slices.Contains(ValidGenerationBackends, s.Generation.Backend) {
		return fmt.Errorf("invalid generation backend: %s (valid: %v)", s.Generation.Backend, ValidGenerationBackends)
	}
	if err := chunk.ValidateWindow(s.Chunking.Size, s.Chunking.Overlap); err != nil {
		return fmt.Errorf("invalid chunking settings: %w", err)
	}
	if s.Viewer != "" && !slices.Contains(pdf.ValidViewers, s.Viewer) {
		return fmt.Errorf("invalid viewer: %s (valid: %v)", s.Viewer, pdf.ValidViewers)
	}
	if s.Generation.Temperature < 0 || s.Generation.Temperature > 2 {
		return fmt.Errorf("generation temperature %.2f out of range [0, 2]", s.Generation.Temperature)
	}
	return nil
}

// Redacted returns a copy safe to print.
func (s *Settings) Redacted() *Settings {
	c := *s
	if c.GeminiAPIKey != "" {
		c.GeminiAPIKey = "********"
	}
	return &c
}

func (s *Settings) applyDefaults() {
	e := &s.Embedding
	if e.Provider == "" {
		e.Provider = "ollama"
	}
	switch e.Provider {
	case "ollama":
		e.Model = orDefault(e.Model, embedding.DefaultModel)
		e.BaseURL = orDefault(e.BaseURL, embedding.DefaultOllamaURL)
		if e.Dimensions <= 0 {
			e.Dimensions = embedding.DefaultDimensions
		}
	case "gemini":
		e.Model = orDefault(e.Model, embedding.DefaultGeminiModel)
		if e.Dimensions <= 0 {
			e.Dimensions = embedding.DefaultGeminiDimensions
		}
	case "hash":
		if e.Dimensions <= 0 {
			e.Dimensions = embedding.DefaultHashDimensions
		}
	}
	if e.Timeout <= 0 {
		e.Timeout = embedding.DefaultTimeout
	}
	if e.Retries <= 0 {
		e.Retries = embedding.DefaultAttempts
	}

	g := &s.Generation
	if g.Backend == "" {
		g.Backend = "ollama"
	}
	switch g.Backend {
	case "ollama":
		g.Model = orDefault(g.Model, generation.DefaultOllamaModel)
		g.BaseURL = orDefault(g.BaseURL, generation.DefaultOllamaURL)
	case "gemini":
		g.Model = orDefault(g.Model, generation.DefaultGeminiModel)
	case "claude":
		g.Model = orDefault(g.Model, generation.DefaultClaudeModel)
	}
	if g.Timeout <= 0 {
		g.Timeout = generation.DefaultOllamaTimeout
	}

	if s.Chunking.Size <= 0 {
		s.Chunking.Size = chunk.DefaultSize
	}
	if s.Chunking.Overlap < 0 {
		s.Chunking.Overlap = chunk.DefaultOverlap
	}
	if s.Ingest.Concurrency <= 0 {
		s.Ingest.Concurrency = kb.DefaultConcurrency
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// normalizeHost turns an OLLAMA_HOST value such as "0.0.0.0:11434" into a URL.
func normalizeHost(host string) string {
	for _, scheme := range []string{"http://", "https://"} {
		if len(host) >= len(scheme) && host[:len(scheme)] == scheme {
			return host
		}
	}
	return "http://" + host
}
