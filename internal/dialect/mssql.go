package dialect

import (
	"fmt"
	"strings"
)

type MSSQLDialect struct{}

// Helper: MSSQL Driver (go-mssqldb) often prefers @p1, @p2 named parameters over ?
// especially when prepared statements are involved or simple Exec.

func (d *MSSQLDialect) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_NAME = @p1 AND TABLE_TYPE = 'BASE TABLE'`
}

func (d *MSSQLDialect) CreateTableQuery(table string, cols []string) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%s NVARCHAR(200)", c)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
}

func (d *MSSQLDialect) InsertQuery(table string, cols []string) string {
	vals := GeneratePlaceholders(len(cols), d.Placeholder)
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), vals)
}

func (d *MSSQLDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s", table)
}

func (d *MSSQLDialect) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index+1)
}

func (d *MSSQLDialect) GetLimitRowQuery(query string, limit int) string {
	// Simple T-SQL TOP injection
	trimmed := strings.TrimSpace(query)
	if strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		// Use Replace once. Note: this replaces the first occurrence.
		// If query is "SELECT ...", it becomes "SELECT TOP N ...".
		// Case insensitive replacement would be better but "SELECT" is standard.
		// We assume standard generated queries.
		return strings.Replace(query, "SELECT", fmt.Sprintf("SELECT TOP %d", limit), 1)
	}
	return query
}
