package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

const (
	// DefaultGeminiModel is the default Gemini embedding model.
	DefaultGeminiModel = "text-embedding-004"

	// DefaultGeminiDimensions is the output size of text-embedding-004.
	DefaultGeminiDimensions = 768
)

// GeminiProvider generates embeddings using the Gemini API.
// The client is owned by the caller and must outlive the provider.
type GeminiProvider struct {
	model      *genai.EmbeddingModel
	modelName  string
	dimensions int
}

// NewGeminiProvider creates a provider for embedding stored documents.
func NewGeminiProvider(client *genai.Client, modelName string, dimensions int) *GeminiProvider {
	return newGeminiProvider(client, modelName, dimensions, genai.TaskTypeRetrievalDocument)
}

// NewGeminiQueryProvider creates a provider for embedding search queries
// against documents embedded by NewGeminiProvider with the same model.
func NewGeminiQueryProvider(client *genai.Client, modelName string, dimensions int) *GeminiProvider {
	return newGeminiProvider(client, modelName, dimensions, genai.TaskTypeRetrievalQuery)
}

func newGeminiProvider(client *genai.Client, modelName string, dimensions int, task genai.TaskType) *GeminiProvider {
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	if dimensions <= 0 {
		dimensions = DefaultGeminiDimensions
	}
	model := client.EmbeddingModel(modelName)
	model.TaskType = task
	return &GeminiProvider{
		model:      model,
		modelName:  modelName,
		dimensions: dimensions,
	}
}

// Embed generates an embedding for the given text.
func (p *GeminiProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	resp, err := p.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return Embedding{}, fmt.Errorf("gemini embed: %w", err)
	}
	if resp == nil || resp.Embedding == nil {
		return Embedding{}, fmt.Errorf("gemini embed: empty response")
	}
	if len(resp.Embedding.Values) != p.dimensions {
		return Embedding{}, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(resp.Embedding.Values), p.dimensions)
	}
	return Embedding{Vector: resp.Embedding.Values}, nil
}

// ModelName returns the name of the embedding model.
func (p *GeminiProvider) ModelName() string {
	return p.modelName
}

// Dimensions returns the expected vector dimensions.
func (p *GeminiProvider) Dimensions() int {
	return p.dimensions
}
