package oracle

import (
	"context"
	"fmt"

	"github.com/trialq/trialq/internal/connector"
)

// TableNames returns the tables owned by the configured schema.
func (c *OracleConnector) TableNames(ctx context.Context) ([]string, error) {
	const query = `SELECT table_name FROM all_tables
		WHERE owner = :1
		ORDER BY table_name`

	var names []string
	if err := c.DB().SelectContext(ctx, &names, query, c.schemaName); err != nil {
		return nil, fmt.Errorf("get table names: %w", err)
	}
	return names, nil
}

// ColumnNames returns the columns of table in column_id order.
func (c *OracleConnector) ColumnNames(ctx context.Context, table string) ([]string, error) {
	const query = `SELECT column_name FROM all_tab_columns
		WHERE owner = :1 AND table_name = :2
		ORDER BY column_id`

	var names []string
	if err := c.DB().SelectContext(ctx, &names, query, c.schemaName, table); err != nil {
		return nil, fmt.Errorf("get columns for %s: %w", table, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("table %q not found in schema %q", table, c.schemaName)
	}
	return names, nil
}

// CountRows returns the number of rows in owner.table.
func (c *OracleConnector) CountRows(ctx context.Context, table string) (int64, error) {
	ref := c.QuoteIdentifier(c.schemaName) + "." + c.QuoteIdentifier(table)
	return connector.CountTable(ctx, c.DB(), ref)
}
