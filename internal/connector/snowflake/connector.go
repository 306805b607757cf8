package snowflake

import (
	"context"
	"fmt"

	"github.com/trialq/trialq/internal/connector"
)

// SnowflakeConnector implements connector.Connector for Snowflake warehouses.
type SnowflakeConnector struct {
	connector.Pool
	schemaName string
}

// New creates a new SnowflakeConnector using the PUBLIC schema.
func New() connector.Connector {
	return &SnowflakeConnector{schemaName: "PUBLIC"}
}

// Connect opens a Snowflake pool. A PrivateKeyPath switches the DSN to
// key-pair authentication.
func (c *SnowflakeConnector) Connect(cfg connector.ConnectionConfig) error {
	dsn := cfg.DSN
	if cfg.PrivateKeyPath != "" {
		var err error
		if dsn, err = keyPairDSN(cfg.DSN, cfg.PrivateKeyPath); err != nil {
			return fmt.Errorf("snowflake key-pair auth: %w", err)
		}
	}

	db, err := connector.Open("snowflake", "snowflake", dsn, cfg)
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
func (c *SnowflakeConnector) TableNames(ctx context.Context) ([]string, error) {
	var names []string
	err := c.DB().SelectContext(ctx, &names, `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`, c.schemaName)
	if err != nil {
		return nil, fmt.Errorf("get table names: %w", err)
	}
	return names, nil
}

// ColumnNames returns the columns of table in ordinal order.
func (c *SnowflakeConnector) ColumnNames(ctx context.Context, table string) ([]string, error) {
	var names []string
	err := c.DB().SelectContext(ctx, &names, `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`, c.schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("get columns for %s: %w", table, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("table %q not found in schema %q", table, c.schemaName)
	}
	return names, nil
}

func (c *SnowflakeConnector) CountRows(ctx context.Context, table string) (int64, error) {
	return connector.CountTable(ctx, c.DB(), c.QuoteIdentifier(c.schemaName)+"."+c.QuoteIdentifier(table))
}

func (c *SnowflakeConnector) DriverName() string { return "snowflake" }

// QuoteIdentifier double-quotes name. Quoted Snowflake identifiers are
// case-sensitive.
func (c *SnowflakeConnector) QuoteIdentifier(name string) string {
	return connector.QuoteDouble(name)
}
