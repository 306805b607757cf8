package model

import (
	"fmt"
	"strings"
)

// MaxDescribedColumns caps the number of column names listed per table in a
// schema description.
const MaxDescribedColumns = 10

// DefaultQueryPatterns are the example queries appended to every schema
// description to steer the model toward the trial tables.
var DefaultQueryPatterns = []string{
	"Find patients by age: SELECT * FROM demographics WHERE AGE > 65",
	`Find adverse events: SELECT * FROM adverse_events WHERE AETERM LIKE "%pain%"`,
	"Join tables: Use USUBJID to link patients across tables",
}

// SchemaDescription is the model-facing summary of a trial database: an
// ordered list of tables plus a fixed block of example query patterns.
type SchemaDescription struct {
	Tables   []TableDescriptor `json:"tables"`
	Patterns []string          `json:"patterns"`
}

// TableDescriptor summarises one table. Columns holds at most
// MaxDescribedColumns names; TotalColumns is the real column count.
type TableDescriptor struct {
	Name         string   `json:"name"`
	Columns      []string `json:"columns"`
	TotalColumns int      `json:"total_columns"`
	RowCount     int64    `json:"row_count"`
}

// String renders the description in the plain-text form embedded in prompts.
func (s SchemaDescription) String() string {
	var b strings.Builder
	b.WriteString("=== CLINICAL TRIAL DATABASE SCHEMA ===\n\n")

	for _, t := range s.Tables {
		fmt.Fprintf(&b, "TABLE: %s (%d records)\n", strings.ToUpper(t.Name), t.RowCount)
		b.WriteString("Key Columns:\n")

		cols := t.Columns
		if len(cols) > MaxDescribedColumns {
			cols = cols[:MaxDescribedColumns]
		}
		for _, c := range cols {
			fmt.Fprintf(&b, "  - %s\n", c)
		}

		total := t.TotalColumns
		if total < len(t.Columns) {
			total = len(t.Columns)
		}
		if total > MaxDescribedColumns {
			fmt.Fprintf(&b, "  ... and %d more columns\n", total-MaxDescribedColumns)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nCommon Query Patterns:\n")
	for _, p := range s.Patterns {
		fmt.Fprintf(&b, "- %s\n", p)
	}
	return b.String()
}

// TableNames returns the described table names in order.
func (s SchemaDescription) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}
