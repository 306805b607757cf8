// Package importer loads clinical-trial CSV extracts into a SQLite store.
// Every column is stored as TEXT next to an autoincrement id.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/trialq/trialq/internal/connector"
	"github.com/trialq/trialq/internal/query"
)

// KnownTables maps SDTM domain file names to the table names the prompts
// refer to.
var KnownTables = map[string]string{
	"ae": "adverse_events",
	"dm": "demographics",
	"lb": "laboratory",
	"vs": "vital_signs",
	"cm": "medications",
	"mh": "medical_history",
}

// ErrNoHeader is returned for a CSV file without a header row.
var ErrNoHeader = errors.New("csv file has no header row")

// TableResult reports one imported table.
type TableResult struct {
	File  string `json:"file"`
	Table string `json:"table"`
	Rows  int    `json:"rows"`
}

// Importer writes CSV files into db.
type Importer struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// New returns an Importer writing to db.
func New(db *sqlx.DB, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{db: db, logger: logger}
}

// TableName derives the target table for a CSV path.
func TableName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if t, ok := KnownTables[strings.ToLower(base)]; ok {
		return t
	}
	return query.NormalizeIdentifier(base)
}

// ImportDir imports every *.csv file in dir, in file name order.
func (im *Importer) ImportDir(ctx context.Context, dir string) ([]TableResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read import dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no csv files found in %s", dir)
	}

	results := make([]TableResult, 0, len(files))
	for _, f := range files {
		res, err := im.ImportFile(ctx, f, TableName(f))
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// ImportFile replaces table with the contents of the CSV file at path.
func (im *Importer) ImportFile(ctx context.Context, path, table string) (TableResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return TableResult{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	n, err := im.Import(ctx, f, table)
	if err != nil {
		return TableResult{}, fmt.Errorf("import %s: %w", filepath.Base(path), err)
	}
	im.logger.Info("imported table", "file", filepath.Base(path), "table", table, "rows", n)
	return TableResult{File: filepath.Base(path), Table: table, Rows: n}, nil
}

// Import drops and recreates table from CSV data in a single transaction
// and returns the number of rows inserted. Empty cells are stored as NULL.
func (im *Importer) Import(ctx context.Context, r io.Reader, table string) (int, error) {
	if err := query.ValidateIdentifier(table); err != nil {
		return 0, err
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return 0, ErrNoHeader
	}
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	columns := headerColumns(header)

	quoted := make([]string, len(columns))
	defs := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = connector.QuoteDouble(c)
		defs[i] = quoted[i] + " TEXT"
		placeholders[i] = "?"
	}
	qt := connector.QuoteDouble(table)

	tx, err := im.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+qt); err != nil {
		return 0, fmt.Errorf("drop table: %w", err)
	}
	create := fmt.Sprintf("CREATE TABLE %s (id INTEGER PRIMARY KEY AUTOINCREMENT, %s)", qt, strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return 0, fmt.Errorf("create table: %w", err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", qt, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	stmt, err := tx.PreparexContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	rows := 0
	args := make([]interface{}, len(columns))
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read row %d: %w", rows+1, err)
		}
		for i := range args {
			args[i] = nil
			if i < len(record) && record[i] != "" {
				args[i] = record[i]
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", rows+1, err)
		}
		rows++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return rows, nil
}

// headerColumns fills blank header cells and de-duplicates names, which
// SQLite would otherwise reject. The reserved id column is renamed too.
func headerColumns(header []string) []string {
	seen := map[string]int{"id": 1}
	out := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		key := strings.ToLower(name)
		if n, ok := seen[key]; ok {
			seen[key] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
			key = strings.ToLower(name)
		}
		seen[key] = 1
		out[i] = name
	}
	return out
}
