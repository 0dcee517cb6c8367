package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type anthropicBackend struct {
	client anthropic.Client
	model  anthropic.Model
}

func newAnthropicBackend(apiKey, model string) *anthropicBackend {
	m := anthropic.Model(model)
	if model == "" {
		m = anthropic.ModelClaudeHaiku4_5
	}
	return &anthropicBackend{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  m,
	}
}

func (b *anthropicBackend) complete(ctx context.Context, prompt string) (string, error) {
	message, err := b.client.Messages.New(
		ctx,
		anthropic.MessageNewParams{
			Model:     b.model,
			MaxTokens: 4096,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		},
	)
	if err != nil {
		return "", err
	}
	if message == nil || len(message.Content) == 0 {
		return "", fmt.Errorf("empty response from Anthropic")
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
