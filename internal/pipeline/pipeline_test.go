package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askql/askql/internal/config"
	"github.com/askql/askql/internal/errors"
	"github.com/askql/askql/internal/generate"
	"github.com/askql/askql/internal/logging"
	"github.com/askql/askql/internal/relevance"
	"github.com/askql/askql/internal/schema"
)

func testStore() schema.Store {
	return schema.Store{
		"public.employees": {
			QualifiedName: "public.employees",
			Schema:        "public",
			Columns: []schema.Column{
				{Name: "id", DataType: "integer"},
				{Name: "name", DataType: "character varying"},
				{Name: "salary", DataType: "numeric"},
			},
		},
		"public.departments": {
			QualifiedName: "public.departments",
			Schema:        "public",
			Columns: []schema.Column{
				{Name: "id", DataType: "integer"},
				{Name: "name", DataType: "character varying"},
			},
		},
	}
}

type mockProvider struct {
	store schema.Store
	err   error
	calls int
}

func (m *mockProvider) ExtractSchema(_ context.Context) (schema.Store, error) {
	m.calls++
	return m.store, m.err
}

type mockExtractor struct {
	intent generate.Intent
	calls  int
}

func (m *mockExtractor) ExtractIntent(_ context.Context, _ string) generate.Intent {
	m.calls++
	return m.intent
}

type mockGenerator struct {
	sql        string
	err        error
	calls      int
	seenTables []string
}

func (m *mockGenerator) GenerateSQL(_ context.Context, _ string, tables schema.Store, _ generate.Intent) (*generate.Generated, error) {
	m.calls++
	m.seenTables = tables.TableNames()

	if m.err != nil {
		return nil, m.err
	}

	return &generate.Generated{SQL: m.sql, SourceTables: m.seenTables}, nil
}

type mockExecutor struct {
	columns []string
	rows    []map[string]any
	err     error
	calls   int
	seenSQL string
}

func (m *mockExecutor) Execute(_ context.Context, sql string) ([]string, []map[string]any, error) {
	m.calls++
	m.seenSQL = sql

	if m.err != nil {
		return nil, nil, m.err
	}

	return m.columns, m.rows, nil
}

func newTestPipeline(t *testing.T, gen *mockGenerator, exec *mockExecutor) (*Pipeline, *mockExtractor) {
	t.Helper()

	index, err := relevance.NewStrategy(config.IndexConfig{
		Strategy:         "lexical",
		TopK:             2,
		LexicalThreshold: 0.1,
	}, nil)
	require.NoError(t, err)

	extractor := &mockExtractor{intent: generate.Intent{OutputColumns: []string{"name"}}}

	p := New(Options{
		Index:     index,
		Extractor: extractor,
		Generator: gen,
		Executor:  exec,
		TopK:      2,
		Logger:    logging.NewTestLogger(),
	})

	return p, extractor
}

func initialized(t *testing.T, p *Pipeline) {
	t.Helper()

	provider := &mockProvider{store: testStore()}
	path := filepath.Join(t.TempDir(), "schema_info.json")
	require.NoError(t, p.Initialize(context.Background(), provider, path))
}

func TestAnswerEndToEnd(t *testing.T) {
	gen := &mockGenerator{sql: "SELECT name, salary FROM employees WHERE salary > 50000;"}
	exec := &mockExecutor{
		columns: []string{"name", "salary"},
		rows:    []map[string]any{{"name": "Ada", "salary": 120000}},
	}

	p, extractor := newTestPipeline(t, gen, exec)
	initialized(t, p)

	answer, err := p.Answer(context.Background(), "Show all employees earning more than 50K")
	require.NoError(t, err)

	assert.NotEmpty(t, answer.RequestID)
	require.NotEmpty(t, answer.Tables)
	assert.Equal(t, "public.employees", answer.Tables[0].TableName)
	assert.Equal(t, gen.sql, answer.SQL)
	assert.Equal(t, exec.columns, answer.Columns)
	assert.Equal(t, exec.rows, answer.Rows)

	// One extraction, one generation, one execution.
	assert.Equal(t, 1, extractor.calls)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 1, exec.calls)
	assert.Equal(t, gen.sql, exec.seenSQL)

	// Only the ranked tables reach the generator.
	for _, name := range gen.seenTables {
		assert.Contains(t, []string{"public.employees", "public.departments"}, name)
	}
}

func TestAnswerBeforeInitialize(t *testing.T) {
	gen := &mockGenerator{sql: "SELECT 1;"}
	exec := &mockExecutor{}
	p, _ := newTestPipeline(t, gen, exec)

	_, err := p.Answer(context.Background(), "show employees")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotInitialized))
	assert.Zero(t, gen.calls)
	assert.Zero(t, exec.calls)
}

func TestAnswerNoRelevantTables(t *testing.T) {
	gen := &mockGenerator{sql: "SELECT 1;"}
	exec := &mockExecutor{}
	p, extractor := newTestPipeline(t, gen, exec)
	initialized(t, p)

	_, err := p.Answer(context.Background(), "xylophone quartz nebula")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNoRelevantTables))
	assert.NotEmpty(t, errors.GetSuggestions(err))

	// Short-circuits before the LLM stages.
	assert.Zero(t, extractor.calls)
	assert.Zero(t, gen.calls)
	assert.Zero(t, exec.calls)
}

func TestAnswerGenerationFailureSkipsExecution(t *testing.T) {
	gen := &mockGenerator{err: errors.New(errors.ErrTypeGeneration, "model refused")}
	exec := &mockExecutor{}
	p, _ := newTestPipeline(t, gen, exec)
	initialized(t, p)

	_, err := p.Answer(context.Background(), "show employees")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeGeneration))
	assert.Equal(t, 1, gen.calls)
	assert.Zero(t, exec.calls)
}

func TestAnswerExecutionFailure(t *testing.T) {
	gen := &mockGenerator{sql: "SELECT nope FROM employees;"}
	exec := &mockExecutor{err: errors.New(errors.ErrTypeExecution, "column does not exist")}
	p, _ := newTestPipeline(t, gen, exec)
	initialized(t, p)

	_, err := p.Answer(context.Background(), "show employees")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeExecution))
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 1, exec.calls)
}

func TestInitializePersistsSchema(t *testing.T) {
	p, _ := newTestPipeline(t, &mockGenerator{sql: "SELECT 1;"}, &mockExecutor{})

	provider := &mockProvider{store: testStore()}
	path := filepath.Join(t.TempDir(), "schema_info.json")
	require.NoError(t, p.Initialize(context.Background(), provider, path))
	assert.Equal(t, 1, provider.calls)

	loaded, err := schema.Load(path)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"public.employees", "public.departments"}, loaded.TableNames())
}

func TestInitializeEmptyDatabase(t *testing.T) {
	p, _ := newTestPipeline(t, &mockGenerator{}, &mockExecutor{})

	provider := &mockProvider{store: schema.Store{}}
	path := filepath.Join(t.TempDir(), "schema_info.json")

	err := p.Initialize(context.Background(), provider, path)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeDatabase))
}

func TestInitializeReplacesPreviousState(t *testing.T) {
	gen := &mockGenerator{sql: "SELECT name FROM products;"}
	exec := &mockExecutor{columns: []string{"name"}}
	p, _ := newTestPipeline(t, gen, exec)
	initialized(t, p)

	// Re-initialize with a different schema; the old tables must be gone.
	replacement := schema.Store{
		"public.products": {
			QualifiedName: "public.products",
			Schema:        "public",
			Columns: []schema.Column{
				{Name: "name", DataType: "character varying"},
				{Name: "price", DataType: "numeric"},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "schema_info.json")
	require.NoError(t, p.Initialize(context.Background(), &mockProvider{store: replacement}, path))

	ranked, err := p.RelevantTables(context.Background(), "products with a high price")
	require.NoError(t, err)
	require.NotEmpty(t, ranked)

	for _, r := range ranked {
		assert.Equal(t, "public.products", r.TableName)
	}
}

func TestLoadStoreRebuildsIndex(t *testing.T) {
	p, _ := newTestPipeline(t, &mockGenerator{sql: "SELECT 1;"}, &mockExecutor{})

	path := filepath.Join(t.TempDir(), "schema_info.json")
	require.NoError(t, testStore().Save(path))

	require.NoError(t, p.LoadStore(context.Background(), path))

	ranked, err := p.RelevantTables(context.Background(), "employees with a high salary")
	require.NoError(t, err)
	require.NotEmpty(t, ranked)
	assert.Equal(t, "public.employees", ranked[0].TableName)
}

func TestLoadStoreMissingFile(t *testing.T) {
	p, _ := newTestPipeline(t, &mockGenerator{}, &mockExecutor{})

	err := p.LoadStore(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotInitialized))
}
