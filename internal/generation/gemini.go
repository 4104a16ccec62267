package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
)

// DefaultGeminiModel is the default Gemini generation model.
const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiBackend generates text with the Gemini API.
// The client is owned by the caller and must outlive the backend.
type GeminiBackend struct {
	model     *genai.GenerativeModel
	modelName string
	limiter   *rate.Limiter
}

// NewGeminiBackend creates a backend for the named model. A positive
// requestsPerSecond throttles calls; temperature is applied when positive.
func NewGeminiBackend(client *genai.Client, modelName string, temperature float32, requestsPerSecond float64) *GeminiBackend {
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	model := client.GenerativeModel(modelName)
	if temperature > 0 {
		model.SetTemperature(temperature)
	}

	b := &GeminiBackend{model: model, modelName: modelName}
	if requestsPerSecond > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return b
}

// Generate produces a completion for prompt.
func (b *GeminiBackend) Generate(ctx context.Context, prompt string) (string, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return "", &Error{Backend: b.Name(), Err: err}
		}
	}

	resp, err := b.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &Error{Backend: b.Name(), Err: fmt.Errorf("generate content: %w", err)}
	}

	text := responseText(resp)
	if text == "" {
		return "", &Error{Backend: b.Name(), Err: ErrEmptyResponse}
	}
	return text, nil
}

// Name returns the backend and model name.
func (b *GeminiBackend) Name() string {
	return "gemini/" + b.modelName
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return strings.TrimSpace(sb.String())
}
