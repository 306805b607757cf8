package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/trialq/trialq/internal/model"
)

// PDF layout, in points on an A4 landscape page.
const (
	pdfMargin      = 40.0
	pdfMaxColumns  = 8
	pdfMaxRows     = 20
	pdfMaxColWidth = 100.0

	// ReportTitle heads every PDF report.
	ReportTitle = "Clinical Trial Query Report"
)

// Document is a result set prepared for rendering.
type Document struct {
	Question  string
	Columns   []string
	Rows      []model.Row
	Generated time.Time
}

// WritePDF renders doc as a one-table PDF report. At most eight columns
// and twenty rows are drawn; the header row repeats on every page.
func WritePDF(w io.Writer, doc Document) error {
	pdf := fpdf.New("L", "pt", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	width, height := pdf.GetPageSize()
	generated := doc.Generated
	if generated.IsZero() {
		generated = time.Now()
	}

	pdf.AddPage()
	y := pdfMargin

	text := func(x, y float64, style string, size float64, s string) {
		pdf.SetFont("Helvetica", style, size)
		pdf.Text(x, y+size, tr(s))
	}

	pdf.SetTextColor(51, 51, 153)
	text(pdfMargin, y, "B", 18, ReportTitle)
	y += 30

	pdf.SetTextColor(102, 102, 102)
	text(pdfMargin, y, "", 10, "Generated: "+generated.Format("1/2/2006, 3:04:05 PM"))
	y += 30

	pdf.SetTextColor(0, 0, 0)
	text(pdfMargin, y, "B", 12, "Query:")
	y += 18

	text(pdfMargin, y, "", 10, truncate(doc.Question, 100, 100, "..."))
	y += 30

	text(pdfMargin, y, "B", 12, fmt.Sprintf("Total Results: %d", len(doc.Rows)))
	y += 30

	if len(doc.Rows) > 0 {
		headers := DisplayColumns(doc.Columns, doc.Rows)
		if len(headers) > pdfMaxColumns {
			headers = headers[:pdfMaxColumns]
		}
		colWidth := pdfMaxColWidth
		if len(headers) > 0 {
			if cw := (width - 2*pdfMargin) / float64(len(headers)); cw < colWidth {
				colWidth = cw
			}
		}

		drawHeaders := func() {
			for i, h := range headers {
				text(pdfMargin+float64(i)*colWidth, y, "B", 9, truncate(h, 12, 10, ".."))
			}
			y += 20
		}
		drawHeaders()

		rows := doc.Rows
		if len(rows) > pdfMaxRows {
			rows = rows[:pdfMaxRows]
		}
		for _, row := range rows {
			if y > height-pdfMargin-20 {
				pdf.AddPage()
				y = pdfMargin
				drawHeaders()
			}
			for i, h := range headers {
				text(pdfMargin+float64(i)*colWidth, y, "", 8, truncate(CleanValue(row[h]), 15, 13, ".."))
			}
			y += 15
		}

		if len(doc.Rows) > pdfMaxRows {
			y += 10
			pdf.SetTextColor(128, 128, 128)
			text(pdfMargin, y, "", 9, fmt.Sprintf("... and %d more records", len(doc.Rows)-pdfMaxRows))
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
