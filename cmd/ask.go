package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/askql/askql/internal/database"
	"github.com/askql/askql/internal/errors"
	"github.com/askql/askql/internal/formatter"
	"github.com/askql/askql/internal/logging"
)

var askShowSQL bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a natural language question and get query results",
	Long: `Translate a natural language question into a SQL SELECT statement,
run it against the configured database, and print the results as a table.

The schema must be introspected first with 'askql introspect'.

Examples:
  askql ask "Show all employees earning more than 50K"
  askql ask --sql "Which departments have the most people?"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askShowSQL, "sql", false, "Print the generated SQL before the results")

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := logging.GetLogger()

	question := strings.TrimSpace(args[0])
	if question == "" {
		return errors.New(errors.ErrTypeValidation, "question must not be empty")
	}

	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}

	session, err := database.Connect(ctx, cfg.Database.DSN, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	p, cfg, err := newPipeline(cmd, session)
	if err != nil {
		return err
	}

	if err := p.LoadStore(ctx, cfg.Schema.Path); err != nil {
		return err
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Generating and executing query..."
	s.Start()

	answer, err := p.Answer(ctx, question)
	s.Stop()

	if err != nil {
		return err
	}

	names := make([]string, len(answer.Tables))
	for i, t := range answer.Tables {
		names[i] = t.TableName
	}

	fmt.Printf("Relevant tables: %s\n", strings.Join(names, ", "))

	if askShowSQL {
		fmt.Printf("SQL: %s\n", answer.SQL)
	}

	fmt.Println()
	fmt.Print(formatter.NewFormatter().FormatResults(answer.Columns, answer.Rows))

	logger.WithField("elapsed", answer.Elapsed.String()).Debugf("question answered")

	return nil
}
