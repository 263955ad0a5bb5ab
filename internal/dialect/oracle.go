package dialect

import (
	"fmt"
	"strings"
)

type OracleDialect struct{}

func (d *OracleDialect) TableExistsQuery() string {
	// USER_TABLES lists tables owned by the connected user. Oracle stores
	// unquoted identifiers upper case.
	return `SELECT COUNT(*) FROM USER_TABLES WHERE TABLE_NAME = UPPER(:1)`
}

func (d *OracleDialect) CreateTableQuery(table string, cols []string) string {
	// Mapping columns hold free-text spreadsheet values, so everything is a
	// plain string column.
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%s VARCHAR2(200)", c)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
}

func (d *OracleDialect) InsertQuery(table string, cols []string) string {
	vals := GeneratePlaceholders(len(cols), d.Placeholder)
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(cols, ", "),
		vals)
}

func (d *OracleDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s", table)
}

func (d *OracleDialect) Placeholder(index int) string {
	// Oracle uses :1, :2, etc. (1-based index)
	return fmt.Sprintf(":%d", index+1)
}

func (d *OracleDialect) GetLimitRowQuery(query string, limit int) string {
	return fmt.Sprintf("SELECT * FROM (%s) WHERE ROWNUM <= %d", query, limit)
}
