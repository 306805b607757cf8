package mssql

import (
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/trialq/trialq/internal/connector"
)

// MSSQLConnector implements connector.Connector for SQL Server.
type MSSQLConnector struct {
	connector.Pool
	schemaName string
}

// New creates a new MSSQLConnector using the dbo schema.
func New() connector.Connector {
	return &MSSQLConnector{schemaName: "dbo"}
}

func (c *MSSQLConnector) Connect(cfg connector.ConnectionConfig) error {
	db, err := connector.Open("sqlserver", "mssql", cfg.DSN, cfg)
	if err != nil {
		return err
	}
	if cfg.SchemaName != "" {
		c.schemaName = cfg.SchemaName
	}
	c.Pool = connector.NewPool(db)
	return nil
}

func (c *MSSQLConnector) DriverName() string { return "mssql" }

// QuoteIdentifier uses T-SQL brackets.
func (c *MSSQLConnector) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}
