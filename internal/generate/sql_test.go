package generate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askql/askql/internal/errors"
	"github.com/askql/askql/internal/logging"
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
	}
}

func TestCleanSQL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "already clean",
			input: "SELECT name, salary FROM employees WHERE salary > 50000;",
			want:  "SELECT name, salary FROM employees WHERE salary > 50000;",
		},
		{
			name:  "sql markdown fence",
			input: "```sql\nSELECT name FROM employees;\n```",
			want:  "SELECT name FROM employees;",
		},
		{
			name:  "bare markdown fence",
			input: "```\nSELECT name FROM employees;\n```",
			want:  "SELECT name FROM employees;",
		},
		{
			name:  "line comments stripped",
			input: "-- fetch everyone\nSELECT name FROM employees; -- done",
			want:  "SELECT name FROM employees;",
		},
		{
			name:  "block comments stripped",
			input: "/* header */ SELECT name /* inline */ FROM employees;",
			want:  "SELECT name FROM employees;",
		},
		{
			name:  "surrounding prose removed",
			input: "Here is your query:\nSELECT name FROM employees;\nLet me know if you need anything else.",
			want:  "SELECT name FROM employees;",
		},
		{
			name:  "missing semicolon appended",
			input: "SELECT name FROM employees",
			want:  "SELECT name FROM employees;",
		},
		{
			name:  "multiline collapsed to one line",
			input: "SELECT name,\n       salary\nFROM employees\nWHERE salary > 50000;",
			want:  "SELECT name, salary FROM employees WHERE salary > 50000;",
		},
		{
			name:  "only first statement kept",
			input: "SELECT name FROM employees; SELECT 1;",
			want:  "SELECT name FROM employees;",
		},
		{
			name:  "lowercase select accepted",
			input: "select name from employees",
			want:  "select name from employees;",
		},
		{
			name:    "non-select rejected",
			input:   "DROP TABLE employees",
			wantErr: true,
		},
		{
			name:    "prose only rejected",
			input:   "I cannot generate a query for that.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanSQL(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrTypeGeneration))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateSQL(t *testing.T) {
	client := &fakeClient{reply: "```sql\nSELECT name, salary\nFROM employees\nWHERE salary > 50000;\n```"}
	synth := NewSynthesizer(client, logging.NewTestLogger())

	subject := "employees"
	result, err := synth.GenerateSQL(context.Background(), "employees earning more than 50000", testStore(), Intent{
		Conditions:    []string{"salary > 50000"},
		Subject:       &subject,
		OutputColumns: []string{"name", "salary"},
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECT name, salary FROM employees WHERE salary > 50000;", result.SQL)
	assert.Equal(t, []string{"public.employees"}, result.SourceTables)

	// Exactly one statement, single trailing semicolon.
	assert.True(t, strings.HasPrefix(strings.ToUpper(result.SQL), "SELECT"))
	assert.Equal(t, 1, strings.Count(result.SQL, ";"))
	assert.True(t, strings.HasSuffix(result.SQL, ";"))
}

func TestGenerateSQLPromptContents(t *testing.T) {
	client := &fakeClient{reply: "SELECT name FROM employees;"}
	synth := NewSynthesizer(client, logging.NewTestLogger())

	subject := "employees"
	_, err := synth.GenerateSQL(context.Background(), "show employee names", testStore(), Intent{
		Subject:       &subject,
		OutputColumns: []string{"name"},
		Conditions:    []string{},
	})
	require.NoError(t, err)

	assert.Contains(t, client.userSeen, "Table public.employees columns: id (integer), name (character varying), salary (numeric)")
	assert.Contains(t, client.userSeen, "Natural Language Query: show employee names")
	assert.Contains(t, client.userSeen, "Subject: employees")
	assert.Contains(t, client.systemSeen, "PostgreSQL")
	assert.Contains(t, client.systemSeen, "ILIKE")
}

func TestGenerateSQLErrors(t *testing.T) {
	t.Run("empty store", func(t *testing.T) {
		synth := NewSynthesizer(&fakeClient{}, logging.NewTestLogger())

		_, err := synth.GenerateSQL(context.Background(), "anything", schema.Store{}, Intent{})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeGeneration))
	})

	t.Run("client failure", func(t *testing.T) {
		client := &fakeClient{err: assert.AnError}
		synth := NewSynthesizer(client, logging.NewTestLogger())

		_, err := synth.GenerateSQL(context.Background(), "anything", testStore(), Intent{})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeGeneration))
	})

	t.Run("model refuses", func(t *testing.T) {
		client := &fakeClient{reply: "I cannot help with that."}
		synth := NewSynthesizer(client, logging.NewTestLogger())

		_, err := synth.GenerateSQL(context.Background(), "anything", testStore(), Intent{})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeGeneration))
	})
}
