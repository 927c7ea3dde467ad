package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/askql/askql/internal/config"
	"github.com/askql/askql/internal/errors"
	"github.com/askql/askql/internal/logging"
)

var (
	flagDSN        string
	flagStrategy   string
	flagTopK       int
	flagSchemaPath string
	flagLogLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "askql",
	Short: "Query a PostgreSQL database using natural language",
	Long: `askql translates natural language questions into SQL and runs them
against a PostgreSQL database. It introspects the schema once, builds a
similarity index over synthesized table descriptions, and uses an LLM to
generate a single SELECT statement per question.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupConfig,
}

func Execute() error {
	ctx := context.Background()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		printError(err)
	}

	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDSN, "dsn", "", "PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&flagStrategy, "strategy", "", "Index strategy: lexical or dense")
	rootCmd.PersistentFlags().IntVar(&flagTopK, "top-k", 0, "Number of tables to retrieve per question")
	rootCmd.PersistentFlags().StringVar(&flagSchemaPath, "schema-path", "", "Path to the persisted schema file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
}

type contextKey string

const configContextKey contextKey = "config"

// setupConfig loads configuration with flag overrides, initializes the
// global logger, and stores the config on the command context.
func setupConfig(cmd *cobra.Command, _ []string) error {
	overrides := map[string]interface{}{}

	if flagDSN != "" {
		overrides["dsn"] = flagDSN
	}

	if flagStrategy != "" {
		overrides["strategy"] = flagStrategy
	}

	if flagTopK > 0 {
		overrides["top-k"] = flagTopK
	}

	if flagSchemaPath != "" {
		overrides["schema-path"] = flagSchemaPath
	}

	if flagLogLevel != "" {
		overrides["log-level"] = flagLogLevel
	}

	cfg, err := config.LoadConfigWithOverrides(overrides)
	if err != nil {
		return err
	}

	if err := logging.InitializeLogger(cfg.Logging); err != nil {
		return err
	}

	cmd.SetContext(context.WithValue(cmd.Context(), configContextKey, cfg))

	return nil
}

// getConfig retrieves the configuration stored by setupConfig.
func getConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(configContextKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New(errors.ErrTypeInternal, "configuration missing from command context")
	}

	return cfg, nil
}

// printError renders a typed error with its suggestions.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())

	if suggestions := errors.GetSuggestions(err); len(suggestions) > 0 {
		fmt.Fprintln(os.Stderr, "\nSuggestions:")

		for _, s := range suggestions {
			fmt.Fprintf(os.Stderr, "  - %s\n", s)
		}
	}
}
