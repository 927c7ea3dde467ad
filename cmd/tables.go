package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askql/askql/internal/describe"
	"github.com/askql/askql/internal/errors"
)

var tablesCmd = &cobra.Command{
	Use:   "tables <question>",
	Short: "Show which tables match a question and how they score",
	Long: `Rank the introspected tables against a question using the configured
index strategy, without generating or executing any SQL.

Examples:
  askql tables "employees earning more than 50K"
  askql tables --strategy dense "orders from last month"`,
	Args: cobra.ExactArgs(1),
	RunE: runTables,
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}

func runTables(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}

	question := strings.TrimSpace(args[0])
	if question == "" {
		return errors.New(errors.ErrTypeValidation, "question must not be empty")
	}

	store, err := loadStore(cfg.Schema.Path)
	if err != nil {
		return err
	}

	index, err := newIndex(cfg)
	if err != nil {
		return err
	}

	if err := index.Build(ctx, describe.SynthesizeAll(store)); err != nil {
		return err
	}

	ranked, err := index.Query(ctx, question, cfg.Index.TopK)
	if err != nil {
		return err
	}

	if len(ranked) == 0 {
		fmt.Println("No tables matched the question.")
		return nil
	}

	for i, r := range ranked {
		fmt.Printf("%d. %s (score: %.3f)\n", i+1, r.TableName, r.Score)
	}

	return nil
}
