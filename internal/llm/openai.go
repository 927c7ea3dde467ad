package llm

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/askql/askql/internal/errors"
)

// openaiClient talks to the OpenAI API or any OpenAI-compatible
// endpoint configured through BaseURL.
type openaiClient struct {
	client         *openai.Client
	model          string
	embeddingModel string
}

func newOpenAIClient(cfg Config) *openaiClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
	}

	return &openaiClient{
		client:         openai.NewClientWithConfig(clientConfig),
		model:          cfg.Model,
		embeddingModel: embeddingModel,
	}
}

func (c *openaiClient) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrTypeGeneration, "openai chat completion failed")
	}

	if len(resp.Choices) == 0 {
		return "", errors.New(errors.ErrTypeGeneration, "openai response contained no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *openaiClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: inputs,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeGeneration, "openai embedding request failed")
	}

	if len(resp.Data) != len(inputs) {
		return nil, errors.Newf(errors.ErrTypeGeneration,
			"openai returned %d embeddings for %d inputs", len(resp.Data), len(inputs))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		embeddings[i] = d.Embedding
	}

	return embeddings, nil
}
