package postgres

import (
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/trialq/trialq/internal/connector"
)

// PostgresConnector implements connector.Connector for PostgreSQL databases.
type PostgresConnector struct {
	connector.Pool
	schemaName string
}

// New creates a new PostgresConnector introspecting the public schema.
func New() connector.Connector {
	return &PostgresConnector{schemaName: "public"}
}

// Connect opens a pgx-backed pool.
func (c *PostgresConnector) Connect(cfg connector.ConnectionConfig) error {
	db, err := connector.Open("pgx", "postgres", cfg.DSN, cfg)
	if err != nil {
		return err
	}
	if cfg.SchemaName != "" {
		c.schemaName = cfg.SchemaName
	}
	c.Pool = connector.NewPool(db)
	return nil
}

func (c *PostgresConnector) DriverName() string { return "postgres" }

func (c *PostgresConnector) QuoteIdentifier(name string) string {
	return connector.QuoteDouble(name)
}
