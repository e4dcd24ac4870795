package model

import "fmt"

// Row is one loosely typed result row from an agent-generated query,
// mapping column name to value.
type Row map[string]any

// errorKey marks a sentinel row signaling query execution failure.
// Downstream stages inspect rows for this key instead of handling an error.
const errorKey = "error"

// ErrorRow builds the sentinel row for a failed query execution.
func ErrorRow(err error) Row {
	return Row{errorKey: fmt.Sprintf("SQL Error: %v", err)}
}

// IsError reports whether this row is an error marker.
func (r Row) IsError() bool {
	_, ok := r[errorKey]
	return ok
}

// HasUsableRows reports whether a result set contains real data: non-empty
// and not led by an error marker. Empty results and failed executions are
// treated identically by the insight stage.
func HasUsableRows(rows []Row) bool {
	return len(rows) > 0 && !rows[0].IsError()
}
