package query

// Record is a single result row keyed by column name.
type Record map[string]any

// ResultSet is the ordered outcome of executing one SELECT statement.
type ResultSet struct {
	// Columns preserves the column order of the underlying result.
	Columns []string `json:"columns"`

	// Rows are the result records in scan order.
	Rows []Record `json:"rows"`

	// RowCount is the number of rows returned.
	RowCount int `json:"row_count"`
}

// NewResultSet creates a result set from scanned rows.
func NewResultSet(columns []string, rows []Record) ResultSet {
	if rows == nil {
		rows = make([]Record, 0)
	}
	return ResultSet{
		Columns:  columns,
		Rows:     rows,
		RowCount: len(rows),
	}
}

// Empty reports whether the result set has no rows.
func (r ResultSet) Empty() bool {
	return r.RowCount == 0
}
