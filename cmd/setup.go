package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/askql/askql/internal/config"
	"github.com/askql/askql/internal/generate"
	"github.com/askql/askql/internal/llm"
	"github.com/askql/askql/internal/logging"
	"github.com/askql/askql/internal/pipeline"
	"github.com/askql/askql/internal/relevance"
)

// newIndex builds the configured relevance strategy. The LLM client is
// only constructed when the dense strategy needs an embedder.
func newIndex(cfg *config.Config) (relevance.Strategy, error) {
	var embedder relevance.Embedder

	if strings.EqualFold(cfg.Index.Strategy, "dense") {
		client, err := newLLMClient(cfg)
		if err != nil {
			return nil, err
		}

		embedder = client
	}

	return relevance.NewStrategy(cfg.Index, embedder)
}

func newLLMClient(cfg *config.Config) (llm.Client, error) {
	return llm.NewClient(llm.Config{
		Provider:       cfg.LLM.Provider,
		Model:          cfg.LLM.Model,
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
	})
}

// newPipeline assembles the full pipeline for the ask command.
func newPipeline(cmd *cobra.Command, executor pipeline.Executor) (*pipeline.Pipeline, *config.Config, error) {
	cfg, err := getConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	index, err := newIndex(cfg)
	if err != nil {
		return nil, nil, err
	}

	client, err := newLLMClient(cfg)
	if err != nil {
		return nil, nil, err
	}

	logger := logging.GetLogger()

	p := pipeline.New(pipeline.Options{
		Index:        index,
		Extractor:    generate.NewExtractor(client, logger),
		Generator:    generate.NewSynthesizer(client, logger),
		Executor:     executor,
		TopK:         cfg.Index.TopK,
		QueryTimeout: cfg.QueryTimeoutDuration(),
		Logger:       logger,
	})

	return p, cfg, nil
}
