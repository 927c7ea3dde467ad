package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askql/askql/internal/config"
)

var configSave bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display the active configuration",
	Long: `Show the current active configuration including settings from the
config file, environment variables, and command-line flags. The API key
and DSN credentials are masked.

With --save, the active configuration is written back to the config file
so env and flag overrides become permanent.`,
	Args: cobra.NoArgs,
	RunE: runConfigCmd,
}

func init() {
	configCmd.Flags().BoolVar(&configSave, "save", false, "Write the active configuration to the config file")

	rootCmd.AddCommand(configCmd)
}

func runConfigCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}

	if configSave {
		if err := config.SaveConfig(cfg); err != nil {
			return err
		}

		fmt.Printf("Configuration saved to %s\n", config.GetConfigPath())
	}

	fmt.Println("Active Configuration:")

	fmt.Println("\nDatabase:")
	fmt.Printf("  DSN: %s\n", maskSecret(cfg.Database.DSN))
	fmt.Printf("  Query Timeout: %s\n", cfg.Database.QueryTimeout)

	fmt.Println("\nLLM:")
	fmt.Printf("  Provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("  Model: %s\n", cfg.LLM.Model)
	fmt.Printf("  API Key: %s\n", maskSecret(cfg.LLM.APIKey))

	if cfg.LLM.BaseURL != "" {
		fmt.Printf("  Base URL: %s\n", cfg.LLM.BaseURL)
	}

	fmt.Printf("  Embedding Model: %s\n", cfg.LLM.EmbeddingModel)

	fmt.Println("\nIndex:")
	fmt.Printf("  Strategy: %s\n", cfg.Index.Strategy)
	fmt.Printf("  Top K: %d\n", cfg.Index.TopK)
	fmt.Printf("  Lexical Threshold: %.2f\n", cfg.Index.LexicalThreshold)
	fmt.Printf("  Dense Threshold: %.2f\n", cfg.Index.DenseThreshold)

	fmt.Println("\nSchema:")
	fmt.Printf("  Path: %s\n", cfg.Schema.Path)

	fmt.Println("\nLogging:")
	fmt.Printf("  Level: %s\n", cfg.Logging.Level)
	fmt.Printf("  Format: %s\n", cfg.Logging.Format)
	fmt.Printf("  Output: %s\n", cfg.Logging.Output)

	return nil
}

// maskSecret hides all but the last four characters of a secret.
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}

	if len(s) <= 4 {
		return "****"
	}

	return "****" + s[len(s)-4:]
}
