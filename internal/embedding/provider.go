package embedding

import "context"

// Provider generates embeddings from text.
// Implementations may be slow and network-bound; all of them honor ctx cancellation.
type Provider interface {
	// Embed generates an embedding for the given text.
	Embed(ctx context.Context, text string) (Embedding, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the expected vector dimensions.
	Dimensions() int
}

// HealthChecker is implemented by providers backed by a local service that
// can be checked before a long-running operation.
type HealthChecker interface {
	IsAvailable(ctx context.Context) error
	HasModel(ctx context.Context) (bool, error)
}

var (
	_ Provider      = (*OllamaProvider)(nil)
	_ HealthChecker = (*OllamaProvider)(nil)
	_ Provider      = (*GeminiProvider)(nil)
	_ Provider      = (*HashProvider)(nil)
	_ Provider      = (*Retrying)(nil)
	_ Provider      = (*Cached)(nil)
)
