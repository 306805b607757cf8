package postgres

import (
	"context"
	"fmt"

	"github.com/trialq/trialq/internal/connector"
)

// TableNames returns the base tables of the configured schema.
func (c *PostgresConnector) TableNames(ctx context.Context) ([]string, error) {
	const query = `SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	var names []string
	if err := c.DB().SelectContext(ctx, &names, query, c.schemaName); err != nil {
		return nil, fmt.Errorf("get table names: %w", err)
	}
	return names, nil
}

// ColumnNames returns the columns of table in ordinal order.
func (c *PostgresConnector) ColumnNames(ctx context.Context, table string) ([]string, error) {
	const query = `SELECT column_name FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`

	var names []string
	if err := c.DB().SelectContext(ctx, &names, query, c.schemaName, table); err != nil {
		return nil, fmt.Errorf("get columns for %s: %w", table, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("table %q not found in schema %q", table, c.schemaName)
	}
	return names, nil
}

// CountRows returns the number of rows in schema.table.
func (c *PostgresConnector) CountRows(ctx context.Context, table string) (int64, error) {
	ref := c.QuoteIdentifier(c.schemaName) + "." + c.QuoteIdentifier(table)
	return connector.CountTable(ctx, c.DB(), ref)
}
