package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Format is a report output format.
type Format string

const (
	FormatPDF     Format = "pdf"
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
)

// ParseFormat accepts a format name, defaulting to PDF when empty.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatPDF, nil
	case FormatPDF, FormatCSV, FormatJSON, FormatParquet:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported report format %q (available: pdf, csv, json, parquet)", s)
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "application/pdf"
	}
}

// Render writes doc in format f.
func Render(w io.Writer, f Format, doc Document) error {
	switch f {
	case FormatPDF:
		return WritePDF(w, doc)
	case FormatCSV:
		return WriteCSV(w, doc)
	case FormatJSON:
		return WriteJSON(w, doc)
	case FormatParquet:
		return WriteParquet(w, doc)
	default:
		return fmt.Errorf("unsupported report format %q", f)
	}
}

// WriteCSV writes every row with a header line. Values are cleaned.
func WriteCSV(w io.Writer, doc Document) error {
	cols := DisplayColumns(doc.Columns, doc.Rows)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(cols))
	for _, row := range doc.Rows {
		for i, c := range cols {
			record[i] = CleanValue(row[c])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the question, SQL-free metadata and cleaned rows.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"title":     ReportTitle,
		"query":     doc.Question,
		"generated": doc.Generated,
		"total":     len(doc.Rows),
		"columns":   DisplayColumns(doc.Columns, doc.Rows),
		"data":      CleanRows(doc.Rows),
	})
}

// WriteParquet writes rows with one optional string column per result
// column.
func WriteParquet(w io.Writer, doc Document) error {
	cols := DisplayColumns(doc.Columns, doc.Rows)
	if len(cols) == 0 {
		return fmt.Errorf("parquet export needs at least one column")
	}

	group := make(parquet.Group, len(cols))
	for _, c := range cols {
		group[c] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("result", group)

	// Leaf order follows the schema, not the result.
	index := make([]int, len(cols))
	for i, c := range cols {
		leaf, ok := schema.Lookup(c)
		if !ok {
			return fmt.Errorf("parquet column %q missing from schema", c)
		}
		index[i] = leaf.ColumnIndex
	}

	writer := parquet.NewWriter(w, schema)
	rows := make([]parquet.Row, 0, len(doc.Rows))
	for _, r := range doc.Rows {
		row := make(parquet.Row, len(cols))
		for i, c := range cols {
			v := r[c]
			if v == nil {
				row[index[i]] = parquet.NullValue().Level(0, 0, index[i])
				continue
			}
			row[index[i]] = parquet.ByteArrayValue([]byte(CleanValue(v))).Level(0, 1, index[i])
		}
		rows = append(rows, row)
	}
	if _, err := writer.WriteRows(rows); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
