package dialect

import (
	"fmt"
	"strings"
)

type PostgresDialect struct{}

func (d *PostgresDialect) TableExistsQuery() string {
	// Unquoted identifiers fold to lower case in Postgres.
	return `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = LOWER($1)`
}

func (d *PostgresDialect) CreateTableQuery(table string, cols []string) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%s VARCHAR(200)", c)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
}

func (d *PostgresDialect) InsertQuery(table string, cols []string) string {
	vals := GeneratePlaceholders(len(cols), d.Placeholder)
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), vals)
}

func (d *PostgresDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s", table)
}

func (d *PostgresDialect) Placeholder(index int) string {
	// use $1 placeholder (1-based index)
	return fmt.Sprintf("$%d", index+1)
}

func (d *PostgresDialect) GetLimitRowQuery(query string, limit int) string {
	return fmt.Sprintf("%s LIMIT %d", query, limit)
}
