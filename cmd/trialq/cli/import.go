package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trialq/trialq/internal/connector"
	"github.com/trialq/trialq/internal/connector/sqlite"
	"github.com/trialq/trialq/internal/importer"
)

func newImportCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "import <dir|file.csv>",
		Short: "Import clinical trial CSV files into the trial database",
		Long: `Load CSV extracts into the SQLite trial database. Each file becomes one
table; existing tables of the same name are replaced. SDTM domain files are
renamed: ae.csv → adverse_events, dm.csv → demographics, lb.csv → laboratory,
vs.csv → vital_signs, cm.csv → medications, mh.csv → medical_history.`,
		Example: `  trialq import ./data
  trialq import ./data/dm.csv --db ./trials.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], dbPath)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database to import into (default: the configured sqlite database or <data-dir>/trials.db)")

	return cmd
}

// importTarget picks the sqlite file to write. Only the sqlite trial store
// is writable by import.
func importTarget(dbPath, driver, dsn string) (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	switch driver {
	case "", "sqlite":
		if dsn != "" {
			return dsn, nil
		}
		return defaultTrialsPath(), nil
	default:
		return "", fmt.Errorf("import writes sqlite databases only; database.driver is %q, pass --db", driver)
	}
}

func runImport(cmd *cobra.Command, path, dbPath string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging)

	target, err := importTarget(dbPath, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(resolveDataDir(), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	conn := sqlite.New()
	if err := conn.Connect(connector.ConnectionConfig{Driver: "sqlite", DSN: target}); err != nil {
		return err
	}
	defer conn.Disconnect()

	im := importer.New(conn.DB(), logger)
	ctx := cmd.Context()

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	var results []importer.TableResult
	if info.IsDir() {
		results, err = im.ImportDir(ctx, path)
	} else {
		var res importer.TableResult
		res, err = im.ImportFile(ctx, path, importer.TableName(path))
		results = append(results, res)
	}
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No CSV files found in %s\n", path)
		return nil
	}
	pairs := make([][2]interface{}, len(results))
	for i, r := range results {
		pairs[i] = [2]interface{}{r.Table, r.Rows}
	}
	if err := writeKeyValues(cmd.OutOrStdout(), [2]string{"TABLE", "ROWS"}, pairs); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nImported %d table(s) into %s\n", len(results), target)
	return nil
}
