// Package describe turns table schemas into natural-language descriptions
// used as retrieval units by the relevance index.
package describe

import (
	"fmt"
	"strings"

	"github.com/askql/askql/internal/schema"
)

// Role is the semantic category assigned to a column by name/type patterns
type Role string

const (
	RoleIdentifier Role = "identifier"
	RoleMonetary   Role = "monetary"
	RoleTemporal   Role = "temporal"
	RoleNaming     Role = "naming"
	RoleGeneric    Role = "generic"
)

// ColumnSemantics carries the classification result for one column
type ColumnSemantics struct {
	Name        string
	DataType    string
	Role        Role
	Description string
}

// Description is the retrieval-ready rendering of one table. Each variant is
// a separate retrieval unit; all share TableName as their label.
type Description struct {
	TableName string
	Variants  []string
	Semantics []ColumnSemantics
}

var monetaryNames = map[string]bool{
	"salary":  true,
	"wage":    true,
	"payment": true,
	"amount":  true,
	"price":   true,
}

var namingNames = map[string]bool{
	"name":  true,
	"title": true,
	"label": true,
}

// Synthesize derives a Description from a table schema. It is a pure
// function of its input and never fails, even for zero-column tables.
func Synthesize(table schema.Table) Description {
	semantics := make([]ColumnSemantics, 0, len(table.Columns))

	columnParts := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		sem := classifyColumn(col)
		semantics = append(semantics, sem)
		columnParts = append(columnParts,
			fmt.Sprintf("%s (%s): %s", col.Name, col.DataType, sem.Description))
	}

	variants := []string{
		fmt.Sprintf("Table %s contains columns: %s",
			table.QualifiedName, strings.Join(columnParts, ", ")),
		purposeSentence(table.QualifiedName),
	}

	for _, sem := range semantics {
		variants = append(variants, "Information about "+sem.Description)
	}

	variants = append(variants, typeClassHints(table, semantics)...)

	return Description{
		TableName: table.QualifiedName,
		Variants:  variants,
		Semantics: semantics,
	}
}

// SynthesizeAll maps Synthesize over a store in deterministic table order
func SynthesizeAll(store schema.Store) []Description {
	names := store.TableNames()

	descriptions := make([]Description, 0, len(names))
	for _, name := range names {
		descriptions = append(descriptions, Synthesize(store[name]))
	}

	return descriptions
}

func purposeSentence(qualifiedName string) string {
	subject := strings.ReplaceAll(strings.ToLower(qualifiedName), "_", " ")

	return fmt.Sprintf("This table named %s stores information about %s",
		qualifiedName, subject)
}

// classifyColumn assigns a semantic role by name/type pattern matching.
// Precedence matters: identifiers win over monetary and temporal matches.
func classifyColumn(col schema.Column) ColumnSemantics {
	name := strings.ToLower(col.Name)
	dataType := strings.ToLower(col.DataType)

	sem := ColumnSemantics{Name: col.Name, DataType: col.DataType}

	switch {
	case strings.Contains(name, "id") && strings.HasSuffix(name, "id"):
		sem.Role = RoleIdentifier
		sem.Description = "unique identifier for " + strings.ReplaceAll(name, "_id", "")
	case monetaryNames[name]:
		sem.Role = RoleMonetary
		sem.Description = "monetary value representing " + name
	case strings.Contains(name, "date") ||
		strings.HasPrefix(dataType, "date") ||
		strings.HasPrefix(dataType, "timestamp"):
		sem.Role = RoleTemporal
		sem.Description = "date/time information for " + strings.ReplaceAll(name, "_date", "")
	case namingNames[name]:
		sem.Role = RoleNaming
		sem.Description = "name or title field"
	default:
		sem.Role = RoleGeneric
		sem.Description = strings.ReplaceAll(name, "_", " ") + " information"
	}

	return sem
}

// typeClassHints emits extra templated sentences grouped by broad type class
// to improve recall for comparison, search, and date-range phrasings.
func typeClassHints(table schema.Table, semantics []ColumnSemantics) []string {
	var hints []string

	for _, sem := range semantics {
		switch {
		// Surrogate keys are not useful comparison or search targets.
		case sem.Role == RoleIdentifier:
		case sem.Role == RoleTemporal:
			hints = append(hints, fmt.Sprintf(
				"Filter %s by %s over a date range, before or after a given date",
				table.QualifiedName, sem.Name))
		case isNumericType(sem.DataType) || sem.Role == RoleMonetary:
			hints = append(hints, fmt.Sprintf(
				"Find records in %s where %s is more than, less than, or equal to a value",
				table.QualifiedName, sem.Name))
		case isTextType(sem.DataType):
			hints = append(hints, fmt.Sprintf(
				"Search %s by matching text in %s", table.QualifiedName, sem.Name))
		}
	}

	return hints
}

func isNumericType(dataType string) bool {
	dt := strings.ToLower(dataType)

	for _, prefix := range []string{
		"int", "bigint", "smallint", "numeric", "decimal",
		"real", "double", "float", "money",
	} {
		if strings.HasPrefix(dt, prefix) {
			return true
		}
	}

	return false
}

func isTextType(dataType string) bool {
	dt := strings.ToLower(dataType)

	for _, prefix := range []string{"char", "character", "varchar", "text"} {
		if strings.HasPrefix(dt, prefix) {
			return true
		}
	}

	return false
}
