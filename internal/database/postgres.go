// Package database provides PostgreSQL connectivity, schema
// introspection, and query execution.
package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/askql/askql/internal/errors"
	"github.com/askql/askql/internal/logging"
	"github.com/askql/askql/internal/schema"
)

// Session wraps a pgx connection pool for the lifetime of a command.
type Session struct {
	pool   *pgxpool.Pool
	logger *logging.Logger
}

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string, logger *logging.Logger) (*Session, error) {
	if dsn == "" {
		return nil, errors.New(errors.ErrTypeConfig, "database DSN is not configured").
			WithSuggestion("Set ASKQL_DB_DSN or database.dsn in the config file")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "invalid database configuration")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to connect to database").
			WithSuggestion("Check that the database is running and the DSN is correct")
	}

	return &Session{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Session) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// extractQuery lists every column of every user table, in declaration
// order, with its comment when one exists. System schemas are skipped.
const extractQuery = `
	SELECT
		c.table_schema,
		c.table_name,
		c.column_name,
		c.data_type,
		c.is_nullable = 'YES' AS is_nullable,
		c.column_default,
		COALESCE(pgd.description, '') AS description
	FROM information_schema.columns c
	JOIN information_schema.tables t
		ON t.table_schema = c.table_schema AND t.table_name = c.table_name
	LEFT JOIN pg_catalog.pg_statio_all_tables st
		ON st.schemaname = c.table_schema AND st.relname = c.table_name
	LEFT JOIN pg_catalog.pg_description pgd
		ON pgd.objoid = st.relid AND pgd.objsubid = c.ordinal_position
	WHERE t.table_type = 'BASE TABLE'
	  AND c.table_schema NOT IN ('pg_catalog', 'information_schema')
	ORDER BY c.table_schema, c.table_name, c.ordinal_position
`

// ExtractSchema introspects the connected database and returns a store
// keyed by qualified table name.
func (s *Session) ExtractSchema(ctx context.Context) (schema.Store, error) {
	rows, err := s.pool.Query(ctx, extractQuery)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "schema introspection query failed")
	}
	defer rows.Close()

	store := schema.Store{}

	for rows.Next() {
		var (
			schemaName  string
			tableName   string
			col         schema.Column
			description string
		)

		if err := rows.Scan(&schemaName, &tableName, &col.Name, &col.DataType, &col.Nullable, &col.Default, &description); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan schema row")
		}

		col.Description = description

		qualified := schemaName + "." + tableName

		table, ok := store[qualified]
		if !ok {
			table = schema.Table{
				QualifiedName: qualified,
				Schema:        schemaName,
			}
		}

		table.Columns = append(table.Columns, col)
		store[qualified] = table
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to iterate schema rows")
	}

	s.logger.WithField("tables", len(store)).Infof("extracted database schema")

	return store, nil
}

// Execute runs a SQL statement and returns the column names alongside
// the result rows. Values are the Go representations pgx decodes.
func (s *Session) Execute(ctx context.Context, sql string) ([]string, []map[string]any, error) {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrTypeExecution, "query execution failed").
			WithSuggestion("Try rephrasing the question")
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))

	for i, fd := range fields {
		columns[i] = string(fd.Name)
	}

	result := make([]map[string]any, 0)

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrTypeExecution, "failed to read result row")
		}

		row := make(map[string]any, len(columns))
		for i, name := range columns {
			row[name] = values[i]
		}

		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrTypeExecution, "failed to iterate result rows")
	}

	return columns, result, nil
}
