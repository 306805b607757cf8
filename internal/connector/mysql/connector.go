package mysql

import (
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/trialq/trialq/internal/connector"
)

// MySQLConnector implements connector.Connector for MySQL and MariaDB.
type MySQLConnector struct {
	connector.Pool
	schemaName string
}

func New() connector.Connector {
	return &MySQLConnector{}
}

// Connect opens the pool. Without an explicit schema the database selected
// by the DSN is introspected.
func (c *MySQLConnector) Connect(cfg connector.ConnectionConfig) error {
	db, err := connector.Open("mysql", "mysql", cfg.DSN, cfg)
	if err != nil {
		return err
	}

	c.schemaName = cfg.SchemaName
	if c.schemaName == "" {
		var current string
		if err := db.Get(&current, "SELECT DATABASE()"); err == nil {
			c.schemaName = current
		}
	}
	c.Pool = connector.NewPool(db)
	return nil
}

func (c *MySQLConnector) DriverName() string { return "mysql" }

// QuoteIdentifier uses backticks.
func (c *MySQLConnector) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
