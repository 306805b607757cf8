package duckdb

import (
	"context"
	"fmt"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/trialq/trialq/internal/connector"
)

// DuckDBConnector implements connector.Connector for DuckDB database files.
// An empty DSN opens an in-memory database.
type DuckDBConnector struct {
	connector.Pool
	schemaName string
}

// New creates a new DuckDBConnector using the main schema.
func New() connector.Connector {
	return &DuckDBConnector{schemaName: "main"}
}

func (c *DuckDBConnector) Connect(cfg connector.ConnectionConfig) error {
	db, err := connector.Open("duckdb", "duckdb", cfg.DSN, cfg)
	if err != nil {
		return err
	}
	if cfg.SchemaName != "" {
		c.schemaName = cfg.SchemaName
	}
	c.Pool = connector.NewPool(db)
	return nil
}

// TableNames returns the base tables of the configured schema.
func (c *DuckDBConnector) TableNames(ctx context.Context) ([]string, error) {
	var names []string
	err := c.DB().SelectContext(ctx, &names, `SELECT table_name FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name`, c.schemaName)
	if err != nil {
		return nil, fmt.Errorf("get table names: %w", err)
	}
	return names, nil
}

// ColumnNames returns the columns of table in ordinal order.
func (c *DuckDBConnector) ColumnNames(ctx context.Context, table string) ([]string, error) {
	var names []string
	err := c.DB().SelectContext(ctx, &names, `SELECT column_name FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, c.schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("get columns for %s: %w", table, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("table %q not found in schema %q", table, c.schemaName)
	}
	return names, nil
}

func (c *DuckDBConnector) CountRows(ctx context.Context, table string) (int64, error) {
	return connector.CountTable(ctx, c.DB(), c.QuoteIdentifier(c.schemaName)+"."+c.QuoteIdentifier(table))
}

func (c *DuckDBConnector) DriverName() string { return "duckdb" }

func (c *DuckDBConnector) QuoteIdentifier(name string) string {
	return connector.QuoteDouble(name)
}
