package generate

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/askql/askql/internal/errors"
	"github.com/askql/askql/internal/llm"
	"github.com/askql/askql/internal/logging"
	"github.com/askql/askql/internal/schema"
)

const sqlSystemPrompt = `You are an expert PostgreSQL query generator.
Given a database schema and a natural language query:
1. Generate a precise SQL query that gets exactly what's asked
2. Use specific column names instead of SELECT *
3. Include proper WHERE clauses for filtering
4. Use ILIKE for text matching to handle case-insensitivity
5. Return only the SQL query, nothing else
6. Do not include any explanations or markdown, just the SQL query`

// Generated is the result of SQL synthesis.
type Generated struct {
	SQL          string
	SourceTables []string
}

// Synthesizer generates SQL from a question, the relevant table
// schemas, and the extracted intent.
type Synthesizer struct {
	client llm.Client
	logger *logging.Logger
}

// NewSynthesizer creates a SQL synthesizer backed by the given client.
func NewSynthesizer(client llm.Client, logger *logging.Logger) *Synthesizer {
	return &Synthesizer{client: client, logger: logger}
}

// GenerateSQL produces a single cleaned SELECT statement. Unlike intent
// extraction, generation failures are hard errors.
func (s *Synthesizer) GenerateSQL(ctx context.Context, question string, tables schema.Store, intent Intent) (*Generated, error) {
	if len(tables) == 0 {
		return nil, errors.New(errors.ErrTypeGeneration, "no table schemas provided for SQL generation")
	}

	prompt := buildSQLPrompt(question, tables, intent)

	reply, err := s.client.Complete(ctx, sqlSystemPrompt, prompt)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeGeneration, "SQL generation request failed")
	}

	cleaned, err := CleanSQL(reply)
	if err != nil {
		s.logger.WithField("reply", reply).Warnf("generated SQL failed cleaning")
		return nil, err
	}

	s.logger.WithField("sql", cleaned).Debugf("generated SQL")

	return &Generated{
		SQL:          cleaned,
		SourceTables: tables.TableNames(),
	}, nil
}

func buildSQLPrompt(question string, tables schema.Store, intent Intent) string {
	var schemaDesc []string

	for _, name := range tables.TableNames() {
		table := tables[name]
		cols := make([]string, len(table.Columns))

		for i, col := range table.Columns {
			cols[i] = fmt.Sprintf("%s (%s)", col.Name, col.DataType)
		}

		schemaDesc = append(schemaDesc, fmt.Sprintf("Table %s columns: %s", name, strings.Join(cols, ", ")))
	}

	subject := ""
	if intent.Subject != nil {
		subject = *intent.Subject
	}

	return fmt.Sprintf(`Database Schema:
%s

Natural Language Query: %s

Intent Analysis:
- Looking for: %s
- Subject: %s
- Conditions: %s

Generate a precise SQL query that gets exactly what's asked.`,
		strings.Join(schemaDesc, "\n"),
		question,
		strings.Join(intent.OutputColumns, ", "),
		subject,
		strings.Join(intent.Conditions, "; "))
}

var (
	lineCommentPattern  = regexp.MustCompile(`(?m)--.*$`)
	blockCommentPattern = regexp.MustCompile(`(?s)/\*.*?\*/`)
	selectPattern       = regexp.MustCompile(`(?is)SELECT.*?;`)
)

// CleanSQL normalizes a model reply into a single SELECT statement.
// It strips SQL comments and markdown fences, isolates the first
// complete SELECT, and collapses whitespace. Replies that do not
// contain a SELECT are rejected.
func CleanSQL(raw string) (string, error) {
	sql := lineCommentPattern.ReplaceAllString(raw, "")
	sql = blockCommentPattern.ReplaceAllString(sql, "")
	sql = stripFences(sql)

	if match := selectPattern.FindString(sql); match != "" {
		sql = match
	} else {
		sql = strings.TrimSpace(sql)
		if !strings.HasPrefix(strings.ToLower(sql), "select") {
			return "", errors.New(errors.ErrTypeGeneration, "invalid SQL query: must start with SELECT").
				WithSuggestion("Try rephrasing the question")
		}

		if !strings.HasSuffix(sql, ";") {
			sql += ";"
		}
	}

	return strings.Join(strings.Fields(sql), " "), nil
}

// stripFences removes markdown code block syntax, keeping the fenced
// content when fences are present.
func stripFences(s string) string {
	if idx := strings.Index(s, "```sql"); idx != -1 {
		rest := s[idx+len("```sql"):]
		if end := strings.Index(rest, "```"); end != -1 {
			return rest[:end]
		}

		return rest
	}

	if idx := strings.Index(s, "```"); idx != -1 {
		rest := s[idx+len("```"):]
		if end := strings.Index(rest, "```"); end != -1 {
			return rest[:end]
		}

		return rest
	}

	return s
}
