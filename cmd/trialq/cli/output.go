package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/trialq/trialq/internal/model"
	"github.com/trialq/trialq/internal/repair"
	"github.com/trialq/trialq/internal/report"
)

// Output formats accepted by --format on ask.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputCSV   = "csv"
)

// chatPreviewRows is how many records chat prints per answer.
const chatPreviewRows = 10

// writeTable renders rows as a borderless table in column order, without
// the id column.
func writeTable(w io.Writer, columns []string, rows []model.Row) error {
	cols := report.DisplayColumns(columns, rows)

	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}

	t := table.NewWriter()
	t.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, len(cols))
		for i, c := range cols {
			r[i] = report.CleanValue(row[c])
		}
		t.AppendRow(r)
	}
	t.SetStyle(table.StyleLight)
	t.Style().Format = table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}
	t.Style().Options.DrawBorder = false

	_, err := io.WriteString(w, t.Render()+"\n")
	return err
}

// writeKeyValues renders two-column name/value tables (stats, settings).
func writeKeyValues(w io.Writer, header [2]string, pairs [][2]interface{}) error {
	t := table.NewWriter()
	t.AppendHeader(table.Row{header[0], header[1]})
	for _, p := range pairs {
		t.AppendRow(table.Row{p[0], p[1]})
	}
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	_, err := io.WriteString(w, t.Render()+"\n")
	return err
}

type answerJSON struct {
	SQL      string      `json:"sql"`
	Attempts int         `json:"attempts"`
	RowCount int         `json:"rowCount"`
	Columns  []string    `json:"columns"`
	Data     []model.Row `json:"data"`
}

// writeAnswer prints a successful answer in the requested format.
func writeAnswer(w io.Writer, format string, ans repair.Answer) error {
	res := ans.Result
	switch strings.ToLower(format) {
	case "", outputTable:
		if res.RowCount == 0 {
			_, err := fmt.Fprintln(w, "No matching records found.")
			return err
		}
		return writeTable(w, res.Columns, res.Rows)
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(answerJSON{
			SQL:      ans.FinalSQL,
			Attempts: ans.AttemptsUsed,
			RowCount: res.RowCount,
			Columns:  report.DisplayColumns(res.Columns, res.Rows),
			Data:     report.CleanRows(res.Rows),
		})
	case outputCSV:
		return report.WriteCSV(w, report.Document{Columns: res.Columns, Rows: res.Rows})
	default:
		return fmt.Errorf("unsupported output format %q; use table, json or csv", format)
	}
}

// writeRecords prints up to limit rows as numbered records, skipping the
// id column and empty values.
func writeRecords(w io.Writer, columns []string, rows []model.Row, limit int) {
	n := len(rows)
	if limit > 0 && n > limit {
		n = limit
	}
	for i, row := range rows[:n] {
		fmt.Fprintf(w, "\nRecord %d:\n", i+1)
		for _, c := range model.OrderedColumns(row, columns) {
			if c == "id" {
				continue
			}
			if v := report.CleanValue(row[c]); v != "" {
				fmt.Fprintf(w, "  %s: %s\n", c, v)
			}
		}
	}
	if len(rows) > n {
		fmt.Fprintf(w, "\n... and %d more records\n", len(rows)-n)
	}
}

// writeStats prints per-table row counts in table name order.
func writeStats(w io.Writer, stats map[string]int64) error {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([][2]interface{}, len(names))
	for i, name := range names {
		pairs[i] = [2]interface{}{name, stats[name]}
	}
	return writeKeyValues(w, [2]string{"TABLE", "RECORDS"}, pairs)
}
