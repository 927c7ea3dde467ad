// Package llm provides chat completion and embedding clients for the
// supported model providers.
package llm

import (
	"context"
	"fmt"

	"github.com/askql/askql/internal/errors"
)

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds the provider settings needed to construct a client.
type Config struct {
	Provider       string
	Model          string
	APIKey         string
	BaseURL        string
	EmbeddingModel string
}

// Client is the interface all providers implement. Complete sends a
// system prompt and a user prompt and returns the model's text reply.
// Embed returns one vector per input, in input order.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// NewClient validates the configuration and returns a client for the
// configured provider.
func NewClient(cfg Config) (Client, error) {
	if cfg.Model == "" {
		return nil, errors.New(errors.ErrTypeConfig, "LLM model is required").
			WithSuggestion("Set llm.model in the config file or ASKQL_LLM_MODEL")
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New(errors.ErrTypeConfig, "API key is required for the openai provider").
				WithSuggestion("Set ASKQL_LLM_API_KEY or llm.api_key in the config file")
		}

		return newOpenAIClient(cfg), nil
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, errors.New(errors.ErrTypeConfig, "API key is required for the anthropic provider").
				WithSuggestion("Set ASKQL_LLM_API_KEY or llm.api_key in the config file")
		}

		return newAnthropicClient(cfg), nil
	default:
		return nil, errors.Newf(errors.ErrTypeConfig, "unsupported LLM provider: %q", cfg.Provider).
			WithSuggestion(fmt.Sprintf("Use one of: %s, %s", ProviderOpenAI, ProviderAnthropic))
	}
}
