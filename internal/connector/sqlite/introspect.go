package sqlite

import (
	"context"
	"fmt"

	"github.com/trialq/trialq/internal/connector"
)

// tableInfoRow holds a row from PRAGMA table_info().
type tableInfoRow struct {
	CID     int     `db:"cid"`
	Name    string  `db:"name"`
	Type    string  `db:"type"`
	NotNull int     `db:"notnull"`
	Default *string `db:"dflt_value"`
	PK      int     `db:"pk"`
}

// TableNames returns the user tables in name order, skipping SQLite's
// internal sqlite_* tables.
func (c *SQLiteConnector) TableNames(ctx context.Context) ([]string, error) {
	const query = `SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	var names []string
	if err := c.DB().SelectContext(ctx, &names, query); err != nil {
		return nil, fmt.Errorf("get table names: %w", err)
	}
	return names, nil
}

// ColumnNames returns the columns of table in declaration order.
func (c *SQLiteConnector) ColumnNames(ctx context.Context, table string) ([]string, error) {
	var cols []tableInfoRow
	query := fmt.Sprintf("PRAGMA table_info(%s)", c.QuoteIdentifier(table))
	if err := c.DB().SelectContext(ctx, &cols, query); err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %q not found", table)
	}

	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}
	return names, nil
}

// CountRows returns the number of rows in table.
func (c *SQLiteConnector) CountRows(ctx context.Context, table string) (int64, error) {
	return connector.CountTable(ctx, c.DB(), c.QuoteIdentifier(table))
}
