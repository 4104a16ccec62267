package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/scholarkb/scholarkb/internal/assistant"
	"github.com/scholarkb/scholarkb/internal/chunk"
	"github.com/scholarkb/scholarkb/internal/config"
	"github.com/scholarkb/scholarkb/internal/embedding"
	"github.com/scholarkb/scholarkb/internal/generation"
	"github.com/scholarkb/scholarkb/internal/kb"
	"github.com/scholarkb/scholarkb/internal/logging"
	"github.com/scholarkb/scholarkb/internal/metadata"
	"github.com/scholarkb/scholarkb/internal/storage"
)

// app holds everything a command needs. Call close when done.
type app struct {
	root     string
	settings *config.Settings
	logger   *logrus.Logger
	kb       *kb.KnowledgeBase
	embedder embedding.Provider
	query    embedding.Provider // nil when queries use the document embedder
	backend  generation.Backend

	health embedding.HealthChecker // nil unless the provider is a local service
	gemini *genai.Client
}

// appOptions selects what mustOpenApp sets up.
type appOptions struct {
	backend    bool // a generation backend is needed
	allowStale bool // open an index built with another model
	progress   kb.ProgressReporter
}

// mustFindRepository returns the repository root, exiting if there is none.
func mustFindRepository() string {
	root, err := config.ResolveRoot()
	if err != nil {
		exitWithError(ExitConfigError, "%v\n\nRun 'skb init' to create a repository here.", err)
	}
	return root
}

// mustLoadSettings loads the repository .env and settings, exits on error.
func mustLoadSettings(root string) *config.Settings {
	if _, err := os.Stat(config.EnvPath(root)); err == nil {
		if err := godotenv.Load(config.EnvPath(root)); err != nil {
			exitWithError(ExitConfigError, "loading %s: %v", config.EnvPath(root), err)
		}
	}

	s, err := config.LoadSettings(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return s
}

func newLogger(s *config.Settings) *logrus.Logger {
	level := s.LogLevel
	if verbose {
		level = "debug"
	}
	return logging.New(os.Stderr, logging.Options{Level: level, Human: humanOutput})
}

// mustOpenApp finds the repository and opens the knowledge base, exits on error.
func mustOpenApp(ctx context.Context, opts appOptions) *app {
	root := mustFindRepository()
	s := mustLoadSettings(root)
	a := &app{root: root, settings: s, logger: newLogger(s)}

	embedder, err := a.newEmbedder(ctx)
	if err != nil {
		exitWithError(ExitConfigError, "configuring embedding provider: %v", err)
	}
	a.embedder = embedder

	if opts.backend || s.Ingest.GenerativeMetadata {
		backend, err := a.newBackend(ctx)
		if err != nil {
			exitWithError(ExitConfigError, "configuring generation backend: %v", err)
		}
		a.backend = backend
	}

	kbOpts := []kb.Option{
		kb.WithChunker(chunk.New(chunk.WithSize(s.Chunking.Size), chunk.WithOverlap(s.Chunking.Overlap))),
		kb.WithConcurrency(s.Ingest.Concurrency),
		kb.WithLogger(a.logger),
	}
	if s.Ingest.GenerativeMetadata {
		kbOpts = append(kbOpts, kb.WithExtractor(metadata.NewGenerative(a.backend, metadata.NewHeuristic(), a.logger)))
	}
	if a.query != nil {
		kbOpts = append(kbOpts, kb.WithQueryEmbedder(embedding.NewCached(a.query, embedding.DefaultCacheTTL)))
	}
	if opts.progress != nil {
		kbOpts = append(kbOpts, kb.WithProgress(opts.progress))
	}
	if opts.allowStale {
		kbOpts = append(kbOpts, kb.AllowStale())
	}

	knowledge, err := kb.Open(config.DBPath(root), embedder, kbOpts...)
	if err != nil {
		a.close()
		exitForError(err, "opening knowledge base")
	}
	a.kb = knowledge
	return a
}

func (a *app) close() {
	if a.kb != nil {
		a.kb.Close()
	}
	if a.gemini != nil {
		a.gemini.Close()
	}
}

func (a *app) assistant() *assistant.Assistant {
	return assistant.New(a.kb, a.backend, a.logger)
}

// geminiClient lazily creates the shared Gemini client.
func (a *app) geminiClient(ctx context.Context) (*genai.Client, error) {
	if a.gemini != nil {
		return a.gemini, nil
	}
	if a.settings.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%s is not set", config.GeminiAPIKeyEnv)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(a.settings.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	a.gemini = client
	return client, nil
}

// newEmbedder builds the configured provider wrapped with retries.
// Providers that embed queries differently also set a.query.
func (a *app) newEmbedder(ctx context.Context) (embedding.Provider, error) {
	e := a.settings.Embedding

	retryOpts := []embedding.RetryOption{embedding.WithAttempts(e.Retries)}
	if e.RateLimit > 0 {
		retryOpts = append(retryOpts, embedding.WithRateLimit(e.RateLimit))
	}

	var provider embedding.Provider
	switch e.Provider {
	case "ollama":
		ollama := embedding.NewOllamaProvider(
			embedding.WithBaseURL(e.BaseURL),
			embedding.WithModel(e.Model),
			embedding.WithDimensions(e.Dimensions),
			embedding.WithTimeout(e.Timeout),
		)
		a.health = ollama
		provider = ollama
	case "gemini":
		client, err := a.geminiClient(ctx)
		if err != nil {
			return nil, err
		}
		provider = embedding.NewGeminiProvider(client, e.Model, e.Dimensions)
		a.query = embedding.NewRetrying(embedding.NewGeminiQueryProvider(client, e.Model, e.Dimensions), retryOpts...)
	case "hash":
		return embedding.NewHashProvider(e.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", e.Provider)
	}

	return embedding.NewRetrying(provider, retryOpts...), nil
}

// newBackend builds the configured generation backend.
func (a *app) newBackend(ctx context.Context) (generation.Backend, error) {
	g := a.settings.Generation

	switch g.Backend {
	case "ollama":
		return generation.NewOllamaBackend(generation.OllamaConfig{
			BaseURL:     g.BaseURL,
			Model:       g.Model,
			Timeout:     g.Timeout,
			Temperature: g.Temperature,
		}), nil
	case "gemini":
		client, err := a.geminiClient(ctx)
		if err != nil {
			return nil, err
		}
		return generation.NewGeminiBackend(client, g.Model, float32(g.Temperature), g.RateLimit), nil
	case "claude":
		return generation.NewClaudeBackend(g.Model), nil
	default:
		return nil, fmt.Errorf("unknown generation backend %q", g.Backend)
	}
}

// mustCheckEmbedder checks a local embedding service before long operations.
func (a *app) mustCheckEmbedder(ctx context.Context) {
	checker := a.health
	if checker == nil {
		return
	}
	if err := checker.IsAvailable(ctx); err != nil {
		exitWithError(ExitBackendUnavailable, "Ollama is not running at %s\n\nStart Ollama with 'ollama serve' or install from https://ollama.ai", a.settings.Embedding.BaseURL)
	}
	hasModel, err := checker.HasModel(ctx)
	if err != nil {
		exitWithError(ExitBackendUnavailable, "checking model availability: %v", err)
	}
	if !hasModel {
		exitWithError(ExitBackendUnavailable, "Embedding model '%s' not found\n\nRun 'ollama pull %s' to download it.", a.embedder.ModelName(), a.embedder.ModelName())
	}
}

// errModelNotPulled reports a local backend without the configured model.
var errModelNotPulled = errors.New("model not pulled")

// checkBackend checks a generation backend served by a local process.
// Other backends are not checked.
func checkBackend(ctx context.Context, backend generation.Backend) error {
	checker, ok := backend.(generation.HealthChecker)
	if !ok {
		return nil
	}
	if err := checker.Ping(ctx); err != nil {
		return err
	}
	hasModel, err := checker.HasModel(ctx)
	if err != nil {
		return err
	}
	if !hasModel {
		return fmt.Errorf("%s: %w", backend.Name(), errModelNotPulled)
	}
	return nil
}

// mustCheckBackend exits when the generation backend cannot answer prompts.
func (a *app) mustCheckBackend(ctx context.Context) {
	err := checkBackend(ctx, a.backend)
	switch {
	case err == nil:
		return
	case errors.Is(err, errModelNotPulled):
		model := a.settings.Generation.Model
		exitWithError(ExitBackendUnavailable, "Generation model '%s' not found\n\nRun 'ollama pull %s' to download it.", model, model)
	default:
		exitWithError(ExitBackendUnavailable, "%v\n\nStart Ollama with 'ollama serve' or install from https://ollama.ai", err)
	}
}

// exitCodeFor maps an error to the exit code that classifies it.
func exitCodeFor(err error) int {
	var embErr *embedding.Error
	switch {
	case errors.Is(err, storage.ErrModelMismatch):
		return ExitIndexStale
	case kb.IsDuplicate(err):
		return ExitDuplicate
	case assistant.IsNotFound(err):
		return ExitNotFound
	case generation.IsError(err), errors.As(err, &embErr):
		return ExitBackendUnavailable
	case errors.Is(err, config.ErrNotRepository):
		return ExitConfigError
	default:
		return ExitError
	}
}

// exitForError reports err with context and exits with its classified code.
func exitForError(err error, what string) {
	code := exitCodeFor(err)
	if code == ExitIndexStale {
		exitWithError(code, "%s: %v\n\nRun 'skb index rebuild' to re-embed with the configured model.", what, err)
	}
	exitWithError(code, "%s: %v", what, err)
}
