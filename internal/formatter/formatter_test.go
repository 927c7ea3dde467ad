package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatResults(t *testing.T) {
	f := NewFormatter()

	columns := []string{"name", "salary", "hired_at"}
	rows := []map[string]any{
		{"name": "Ada Lovelace", "salary": 120000.0, "hired_at": time.Date(2021, 3, 15, 9, 30, 0, 0, time.UTC)},
		{"name": "Bob", "salary": nil, "hired_at": nil},
	}

	out := f.FormatResults(columns, rows)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	// header, separator, two data rows, blank, row count
	assert.Len(t, lines, 6)
	assert.Contains(t, lines[0], "name")
	assert.Contains(t, lines[0], "salary")
	assert.Contains(t, lines[1], "---")
	assert.Contains(t, lines[2], "Ada Lovelace")
	assert.Contains(t, lines[2], "120000")
	assert.Contains(t, lines[2], "2021-03-15 09:30:00")
	assert.Contains(t, lines[3], "NULL")
	assert.Contains(t, lines[5], "(2 rows)")
}

func TestFormatResultsAlignment(t *testing.T) {
	f := NewFormatter()

	out := f.FormatResults([]string{"id", "description"}, []map[string]any{
		{"id": 1, "description": "a much longer value than the header"},
	})

	lines := strings.Split(out, "\n")
	// The separator under each column spans the widest cell.
	assert.Contains(t, lines[1], strings.Repeat("-", len("a much longer value than the header")))
}

func TestFormatResultsEmpty(t *testing.T) {
	f := NewFormatter()

	out := f.FormatResults([]string{"name"}, nil)
	assert.Contains(t, out, "(0 rows)")

	assert.Equal(t, "(no columns)", f.FormatResults(nil, nil))
}

func TestFormatResultsSingularRowCount(t *testing.T) {
	f := NewFormatter()

	out := f.FormatResults([]string{"n"}, []map[string]any{{"n": 1}})
	assert.Contains(t, out, "(1 row)")
}

func TestFormatValue(t *testing.T) {
	f := &Formatter{}

	assert.Equal(t, "NULL", f.formatValue(nil))
	assert.Equal(t, "hello", f.formatValue("hello"))
	assert.Equal(t, "42", f.formatValue(42))
	assert.Equal(t, "3.14", f.formatValue(3.14))
	assert.Equal(t, "bytes", f.formatValue([]byte("bytes")))
	assert.Equal(t, "true", f.formatValue(true))
}
