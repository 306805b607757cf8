package mysql

import (
	"context"
	"fmt"

	"github.com/trialq/trialq/internal/connector"
)

// TableNames returns the base tables of the configured database.
func (c *MySQLConnector) TableNames(ctx context.Context) ([]string, error) {
	const query = `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`

	var names []string
	if err := c.DB().SelectContext(ctx, &names, query, c.schemaName); err != nil {
		return nil, fmt.Errorf("get table names: %w", err)
	}
	return names, nil
}

// ColumnNames returns the columns of table in ordinal order.
func (c *MySQLConnector) ColumnNames(ctx context.Context, table string) ([]string, error) {
	const query = `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`

	var names []string
	if err := c.DB().SelectContext(ctx, &names, query, c.schemaName, table); err != nil {
		return nil, fmt.Errorf("get columns for %s: %w", table, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("table %q not found in %q", table, c.schemaName)
	}
	return names, nil
}

// CountRows returns the number of rows in table.
func (c *MySQLConnector) CountRows(ctx context.Context, table string) (int64, error) {
	ref := c.QuoteIdentifier(table)
	if c.schemaName != "" {
		ref = c.QuoteIdentifier(c.schemaName) + "." + ref
	}
	return connector.CountTable(ctx, c.DB(), ref)
}
