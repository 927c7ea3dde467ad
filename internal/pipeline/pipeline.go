// Package pipeline orchestrates the question-to-result flow: table
// lookup, intent extraction, SQL generation, and execution.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/askql/askql/internal/describe"
	"github.com/askql/askql/internal/errors"
	"github.com/askql/askql/internal/generate"
	"github.com/askql/askql/internal/logging"
	"github.com/askql/askql/internal/relevance"
	"github.com/askql/askql/internal/schema"
)

// SchemaProvider supplies the database schema during initialization.
type SchemaProvider interface {
	ExtractSchema(ctx context.Context) (schema.Store, error)
}

// Executor runs a SQL statement and returns column names and rows.
type Executor interface {
	Execute(ctx context.Context, sql string) ([]string, []map[string]any, error)
}

// IntentExtractor analyzes a question. It degrades to a fallback intent
// instead of failing.
type IntentExtractor interface {
	ExtractIntent(ctx context.Context, question string) generate.Intent
}

// SQLGenerator produces a cleaned SELECT statement from a question, the
// relevant schemas, and the extracted intent.
type SQLGenerator interface {
	GenerateSQL(ctx context.Context, question string, tables schema.Store, intent generate.Intent) (*generate.Generated, error)
}

// Answer is the complete result of one question.
type Answer struct {
	RequestID string
	Tables    []relevance.RankedTable
	SQL       string
	Columns   []string
	Rows      []map[string]any
	Elapsed   time.Duration
}

// Pipeline wires the collaborators together. Initialize must succeed
// (in this process or a previous one via the persisted schema) before
// Answer can be used.
type Pipeline struct {
	store        schema.Store
	index        relevance.Strategy
	extractor    IntentExtractor
	generator    SQLGenerator
	executor     Executor
	topK         int
	queryTimeout time.Duration
	logger       *logging.Logger
}

// Options collects the pipeline's collaborators and tuning knobs.
type Options struct {
	Index        relevance.Strategy
	Extractor    IntentExtractor
	Generator    SQLGenerator
	Executor     Executor
	TopK         int
	QueryTimeout time.Duration
	Logger       *logging.Logger
}

// New creates a pipeline with no schema loaded. Call Initialize or
// LoadStore before asking questions.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}

	return &Pipeline{
		index:        opts.Index,
		extractor:    opts.Extractor,
		generator:    opts.Generator,
		executor:     opts.Executor,
		topK:         opts.TopK,
		queryTimeout: opts.QueryTimeout,
		logger:       logger,
	}
}

// Initialize extracts the schema, persists it to schemaPath, and builds
// the relevance index. Any previously loaded schema and index are
// replaced wholesale.
func (p *Pipeline) Initialize(ctx context.Context, provider SchemaProvider, schemaPath string) error {
	store, err := provider.ExtractSchema(ctx)
	if err != nil {
		return err
	}

	if len(store) == 0 {
		return errors.New(errors.ErrTypeDatabase, "the database contains no user tables").
			WithSuggestion("Check that the DSN points at the right database")
	}

	if err := store.Save(schemaPath); err != nil {
		return err
	}

	descriptions := describe.SynthesizeAll(store)

	if err := p.index.Build(ctx, descriptions); err != nil {
		return err
	}

	p.store = store
	p.logger.WithField("tables", len(store)).Infof("initialized schema and relevance index")

	return nil
}

// LoadStore loads a previously persisted schema and rebuilds the index
// from it, without touching the database.
func (p *Pipeline) LoadStore(ctx context.Context, schemaPath string) error {
	store, err := schema.Load(schemaPath)
	if err != nil {
		return err
	}

	if err := p.index.Build(ctx, describe.SynthesizeAll(store)); err != nil {
		return err
	}

	p.store = store

	return nil
}

// RelevantTables ranks tables for a question without generating SQL.
func (p *Pipeline) RelevantTables(ctx context.Context, question string) ([]relevance.RankedTable, error) {
	return p.index.Query(ctx, question, p.topK)
}

// Answer runs the full flow for one question. The SQL generator is
// invoked exactly once and the executor at most once; a failure at any
// stage stops the pipeline with a typed error.
func (p *Pipeline) Answer(ctx context.Context, question string) (*Answer, error) {
	requestID := uuid.NewString()
	logger := p.logger.WithField("request_id", requestID)
	start := time.Now()

	ranked, err := p.index.Query(ctx, question, p.topK)
	if err != nil {
		return nil, err
	}

	if len(ranked) == 0 {
		return nil, errors.New(errors.ErrTypeNoRelevantTables, "no tables matched the question").
			WithSuggestion("Mention the table or the kind of records you are looking for").
			WithSuggestion("Run 'askql tables \"<question>\"' to see how tables score")
	}

	names := make([]string, len(ranked))
	for i, r := range ranked {
		names[i] = r.TableName
	}

	logger.WithField("tables", strings.Join(names, ",")).Debugf("ranked relevant tables")

	intent := p.extractor.ExtractIntent(ctx, question)

	subset, err := p.store.Subset(names)
	if err != nil {
		return nil, err
	}

	generated, err := p.generator.GenerateSQL(ctx, question, subset, intent)
	if err != nil {
		return nil, err
	}

	logger.WithField("sql", generated.SQL).Infof("generated SQL")

	execCtx := ctx
	if p.queryTimeout > 0 {
		var cancel context.CancelFunc

		execCtx, cancel = context.WithTimeout(ctx, p.queryTimeout)
		defer cancel()
	}

	columns, rows, err := p.executor.Execute(execCtx, generated.SQL)
	if err != nil {
		return nil, err
	}

	return &Answer{
		RequestID: requestID,
		Tables:    ranked,
		SQL:       generated.SQL,
		Columns:   columns,
		Rows:      rows,
		Elapsed:   time.Since(start),
	}, nil
}
