package translate

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type openAIBackend struct {
	client openai.Client
	model  string
}

func newOpenAIBackend(apiKey, model string) *openAIBackend {
	if model == "" {
		model = "gpt-5-mini"
	}
	return &openAIBackend{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (b *openAIBackend) complete(ctx context.Context, prompt string) (string, error) {
	completion, err := b.client.Chat.Completions.New(
		ctx,
		openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Model: b.model,
		},
	)
	if err != nil {
		return "", err
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}
	return completion.Choices[0].Message.Content, nil
}
