package sqldb

import (
	"context"
	"fmt"
	"strings"
)

const informationSchemaColumns = `
SELECT table_name, column_name, data_type
FROM information_schema.columns
WHERE table_schema = %s
ORDER BY table_name, ordinal_position`

const sqliteColumns = `
SELECT m.name, p.name, p.type
FROM sqlite_master AS m
JOIN pragma_table_info(m.name) AS p
WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%'
ORDER BY m.name, p.cid`

// DescribeSchema lists every table of schemaName as
// "Table <name>: <col> (<type>), ..." lines. An empty schemaName uses the
// dialect default; SQLite ignores it.
func (e *Engine) DescribeSchema(ctx context.Context, schemaName string) (string, error) {
	schemaName = strings.TrimSpace(schemaName)
	if schemaName == "" {
		schemaName = e.dialect.defaultSchema()
	}

	var (
		stmt string
		args []any
	)
	switch e.dialect {
	case DialectSQLite:
		stmt = sqliteColumns
	case DialectPostgres:
		stmt = fmt.Sprintf(informationSchemaColumns, "$1")
		args = []any{schemaName}
	default:
		stmt = fmt.Sprintf(informationSchemaColumns, "?")
		args = []any{schemaName}
	}

	rows, err := e.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return "", fmt.Errorf("introspect schema %q: %w", schemaName, err)
	}
	defer func() { _ = rows.Close() }()

	var (
		b       strings.Builder
		current string
		columns []string
	)
	flush := func() {
		if current == "" {
			return
		}
		fmt.Fprintf(&b, "Table %s: %s\n", current, strings.Join(columns, ", "))
	}
	for rows.Next() {
		var table, column, dataType string
		if err := rows.Scan(&table, &column, &dataType); err != nil {
			return "", fmt.Errorf("scan schema row: %w", err)
		}
		if table != current {
			flush()
			current = table
			columns = columns[:0]
		}
		columns = append(columns, fmt.Sprintf("%s (%s)", column, dataType))
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate schema rows: %w", err)
	}
	flush()
	return b.String(), nil
}
