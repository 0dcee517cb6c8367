package translate

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

type geminiBackend struct {
	client *genai.Client
	model  string
}

func newGeminiBackend(ctx context.Context, apiKey, model string) (*geminiBackend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &geminiBackend{client: client, model: model}, nil
}

func (b *geminiBackend) complete(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	result, err := b.client.Models.GenerateContent(ctx, b.model, contents, nil)
	if err != nil {
		return "", err
	}
	if result == nil || len(result.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}
	return result.Text(), nil
}
