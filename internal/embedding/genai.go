package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAI generates embeddings through Google's Gemini API.
type GenAI struct {
	client *genai.Client
	model  string
}

// NewGenAI creates a Gemini-backed embedder.
func NewGenAI(apiKey, model string) (*GenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create GenAI client: %w", err)
	}

	return &GenAI{client: client, model: model}, nil
}

// Embed requests a single embedding. Task descriptions are compared against
// each other, so semantic similarity is the right task type.
func (g *GenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := g.client.Models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentRequest{
		TaskType: genai.TaskTypeSemanticSimilarity,
	})
	if err != nil {
		return nil, fmt.Errorf("GenAI embed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("GenAI returned no embeddings")
	}
	return result.Embeddings[0].Values, nil
}

func (g *GenAI) Name() string {
	return fmt.Sprintf("genai:%s", g.model)
}
