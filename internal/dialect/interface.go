package dialect

// Dialect abstracts database-specific SQL generation for the mapping store.
type Dialect interface {
	// Metadata Queries
	TableExistsQuery() string // binds the table name as the only parameter

	// Query Generation
	CreateTableQuery(table string, cols []string) string
	InsertQuery(table string, cols []string) string
	TruncateQuery(table string) string
	Placeholder(index int) string // Returns ?, $1, @p1, etc.
	GetLimitRowQuery(query string, limit int) string
}
