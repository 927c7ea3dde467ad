// Package schema holds the database schema model extracted from a live
// connection and its persisted JSON form.
package schema

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/askql/askql/internal/errors"
)

// Column describes a single column of a table
type Column struct {
	Name        string  `json:"name"`
	DataType    string  `json:"type"`
	Nullable    bool    `json:"nullable"`
	Default     *string `json:"default"`
	Description string  `json:"description"`
}

// Table describes one table with its columns in ordinal order
type Table struct {
	// QualifiedName is "schema.table" and globally unique within a
	// connected database. It is carried as the map key on disk.
	QualifiedName string   `json:"-"`
	Schema        string   `json:"schema"`
	Columns       []Column `json:"columns"`
}

// Name returns the bare table name without the schema qualifier
func (t Table) Name() string {
	if idx := strings.LastIndex(t.QualifiedName, "."); idx >= 0 {
		return t.QualifiedName[idx+1:]
	}

	return t.QualifiedName
}

// Store maps qualified table names to their schemas. It is built once per
// database connection and read-only afterwards; a reconnect replaces it
// wholesale.
type Store map[string]Table

// TableNames returns the qualified names in sorted order
func (s Store) TableNames() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Subset returns a new store containing only the named tables. Names missing
// from the store are reported as an internal error: every ranked table must
// exist in the store that produced its description.
func (s Store) Subset(names []string) (Store, error) {
	subset := make(Store, len(names))

	for _, name := range names {
		table, ok := s[name]
		if !ok {
			return nil, errors.Newf(errors.ErrTypeInternal,
				"table %q not present in schema store", name)
		}

		subset[name] = table
	}

	return subset, nil
}

// Save writes the store to path as the persisted JSON document: a mapping
// from qualified table name to {schema, columns: [...]}.
func (s Store) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to create schema directory")
	}

	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to marshal schema")
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to write schema file")
	}

	return nil
}

// Load reads a persisted schema document. A missing or unreadable file is a
// typed load failure so callers can direct the user to re-run introspection.
func Load(path string) (Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeNotInitialized,
			"schema file %s not readable", path).
			WithSuggestion("Run 'askql introspect' to extract the schema first")
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeNotInitialized,
			"schema file %s is corrupt", path).
			WithSuggestion("Run 'askql introspect' to rebuild the schema file")
	}

	// The qualified name lives in the map key on disk; restore it.
	for name, table := range store {
		table.QualifiedName = name
		store[name] = table
	}

	return store, nil
}
