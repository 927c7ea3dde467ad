// Package formatter renders query results as aligned text tables.
package formatter

import (
	"fmt"
	"strings"
	"time"
)

// Formatter handles query result output formatting
type Formatter struct{}

// NewFormatter creates a new formatter instance
func NewFormatter() *Formatter {
	return &Formatter{}
}

// FormatResults renders rows as an aligned table with a header and a
// separator line. Column order follows the columns slice, nil values
// render as NULL.
func (f *Formatter) FormatResults(columns []string, rows []map[string]any) string {
	if len(columns) == 0 {
		return "(no columns)"
	}

	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}

	cells := make([][]string, len(rows))

	for r, row := range rows {
		cells[r] = make([]string, len(columns))

		for i, col := range columns {
			cell := f.formatValue(row[col])
			cells[r][i] = cell

			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder

	writeRow := func(values []string) {
		for i, v := range values {
			if i > 0 {
				b.WriteString("  ")
			}

			b.WriteString(v)
			b.WriteString(strings.Repeat(" ", widths[i]-len(v)))
		}

		b.WriteString("\n")
	}

	writeRow(columns)

	separators := make([]string, len(columns))
	for i := range columns {
		separators[i] = strings.Repeat("-", widths[i])
	}

	writeRow(separators)

	for _, row := range cells {
		writeRow(row)
	}

	b.WriteString(fmt.Sprintf("\n(%d %s)\n", len(rows), pluralize("row", len(rows))))

	return b.String()
}

// formatValue renders a single cell value
func (f *Formatter) formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case []byte:
		return string(val)
	case float32:
		return fmt.Sprintf("%g", val)
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func pluralize(word string, n int) string {
	if n == 1 {
		return word
	}

	return word + "s"
}
