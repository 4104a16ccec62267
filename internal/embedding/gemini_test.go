package embedding

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

func TestGeminiProviders_TaskType(t *testing.T) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey("test-key"))
	if err != nil {
		t.Skipf("creating gemini client: %v", err)
	}
	defer client.Close()

	docs := NewGeminiProvider(client, "", 0)
	queries := NewGeminiQueryProvider(client, "", 0)

	if docs.model.TaskType != genai.TaskTypeRetrievalDocument {
		t.Errorf("document TaskType = %v, want %v", docs.model.TaskType, genai.TaskTypeRetrievalDocument)
	}
	if queries.model.TaskType != genai.TaskTypeRetrievalQuery {
		t.Errorf("query TaskType = %v, want %v", queries.model.TaskType, genai.TaskTypeRetrievalQuery)
	}
	if docs.ModelName() != queries.ModelName() || docs.Dimensions() != queries.Dimensions() {
		t.Error("document and query providers should share model and dimensions")
	}
	if docs.ModelName() != DefaultGeminiModel || docs.Dimensions() != DefaultGeminiDimensions {
		t.Errorf("defaults = %s/%d", docs.ModelName(), docs.Dimensions())
	}
}
