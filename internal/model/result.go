package model

// Row is a single result record keyed by column name.
type Row map[string]interface{}

// QueryResult is the uniform outcome of executing SQL against a trial store.
// Exactly one of the success or failure shapes is populated; construct it with
// Succeeded or Failed and treat it as immutable afterwards.
type QueryResult struct {
	Success  bool     `json:"success"`
	Columns  []string `json:"columns,omitempty"`
	Rows     []Row    `json:"data,omitempty"`
	RowCount int      `json:"row_count"`
	Error    string   `json:"error,omitempty"`
}

// Succeeded builds a successful result. A nil or empty row set is still a
// success.
func Succeeded(columns []string, rows []Row) QueryResult {
	if rows == nil {
		rows = []Row{}
	}
	return QueryResult{Success: true, Columns: columns, Rows: rows, RowCount: len(rows)}
}

// Failed builds a failed result carrying the engine's error text verbatim.
func Failed(message string) QueryResult {
	return QueryResult{Success: false, Error: message}
}
