package llm

import (
	"context"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/askql/askql/internal/errors"
)

const anthropicMaxTokens = 2000

// anthropicClient talks to the Anthropic Messages API.
type anthropicClient struct {
	client *anthropic.Client
	model  string
}

func newAnthropicClient(cfg Config) *anthropicClient {
	opts := []anthropic.ClientOption{}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}

	return &anthropicClient{
		client: anthropic.NewClient(cfg.APIKey, opts...),
		model:  cfg.Model,
	}
}

func (c *anthropicClient) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		System:    system,
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(user),
		},
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrTypeGeneration, "anthropic message request failed")
	}

	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			return *block.Text, nil
		}
	}

	return "", errors.New(errors.ErrTypeGeneration, "anthropic response contained no text content")
}

// Embed is not supported by the Anthropic API. Configure an
// OpenAI-compatible provider to use the dense index strategy.
func (c *anthropicClient) Embed(_ context.Context, _ []string) ([][]float32, error) {
	return nil, errors.New(errors.ErrTypeConfig, "the anthropic provider does not support embeddings").
		WithSuggestion("Use index.strategy = \"lexical\", or switch llm.provider to \"openai\"")
}
