package relevance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askql/askql/internal/describe"
	"github.com/askql/askql/internal/errors"
	"github.com/askql/askql/internal/schema"
)

func testDescriptions() []describe.Description {
	store := schema.Store{
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

	return describe.SynthesizeAll(store)
}

func TestLexicalQueryBeforeBuild(t *testing.T) {
	idx := NewLexical(0.1)

	_, err := idx.Query(context.Background(), "anything", 2)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotInitialized))
}

func TestLexicalRanksEmployeesForSalaryQuery(t *testing.T) {
	idx := NewLexical(0.1)
	require.NoError(t, idx.Build(context.Background(), testDescriptions()))

	ranked, err := idx.Query(context.Background(), "employees earning more than 50000", 2)
	require.NoError(t, err)
	require.NotEmpty(t, ranked)

	assert.Equal(t, "public.employees", ranked[0].TableName)

	for i, r := range ranked {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)

		if i > 0 {
			assert.GreaterOrEqual(t, ranked[i-1].Score, r.Score)
		}
	}
}

func TestLexicalQueryIsDeterministic(t *testing.T) {
	idx := NewLexical(0.1)
	require.NoError(t, idx.Build(context.Background(), testDescriptions()))

	first, err := idx.Query(context.Background(), "employee salary", 2)
	require.NoError(t, err)

	for range 5 {
		again, err := idx.Query(context.Background(), "employee salary", 2)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestLexicalNoMatchReturnsEmpty(t *testing.T) {
	idx := NewLexical(0.1)
	require.NoError(t, idx.Build(context.Background(), testDescriptions()))

	ranked, err := idx.Query(context.Background(), "xylophone quartz nebula", 2)
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestLexicalRebuildReplacesIndex(t *testing.T) {
	idx := NewLexical(0.1)
	require.NoError(t, idx.Build(context.Background(), testDescriptions()))

	// Rebuild with a disjoint corpus; the old tables must be gone.
	replacement := describe.SynthesizeAll(schema.Store{
		"public.vehicles": {
			QualifiedName: "public.vehicles",
			Schema:        "public",
			Columns: []schema.Column{
				{Name: "id", DataType: "integer"},
				{Name: "model", DataType: "text"},
			},
		},
	})
	require.NoError(t, idx.Build(context.Background(), replacement))

	ranked, err := idx.Query(context.Background(), "employee salary", 5)
	require.NoError(t, err)

	for _, r := range ranked {
		assert.NotEqual(t, "public.employees", r.TableName)
	}
}

func TestTokenizeBigramsAndStopWords(t *testing.T) {
	terms := tokenize("Show all the employee salary records")

	assert.Contains(t, terms, "employee")
	assert.Contains(t, terms, "salary")
	assert.Contains(t, terms, "employee salary")
	assert.NotContains(t, terms, "the")
	assert.NotContains(t, terms, "all")
}

func TestVectorizeSkipsUnknownTerms(t *testing.T) {
	idf := map[string]float64{"salary": 1.5}

	vector := vectorize([]string{"salary", "unicorn"}, idf)
	require.Len(t, vector, 1)
	assert.InDelta(t, 1.0, vector["salary"], 1e-9)

	assert.Nil(t, vectorize([]string{"unicorn"}, idf))
}
