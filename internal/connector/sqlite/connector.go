package sqlite

import (
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/trialq/trialq/internal/connector"
)

// SQLiteConnector implements connector.Connector for SQLite trial databases,
// the store produced by "trialq import".
type SQLiteConnector struct {
	connector.Pool
}

func New() connector.Connector {
	return &SQLiteConnector{}
}

// Connect opens the database file named by the DSN. ":memory:" opens a
// private in-memory database pinned to a single connection so every query
// sees the same data.
func (c *SQLiteConnector) Connect(cfg connector.ConnectionConfig) error {
	db, err := connector.Open("sqlite", "sqlite", cfg.DSN, cfg)
	if err != nil {
		return err
	}
	if strings.Contains(cfg.DSN, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return fmt.Errorf("sqlite enable wal: %w", err)
	}
	c.Pool = connector.NewPool(db)
	return nil
}

func (c *SQLiteConnector) DriverName() string { return "sqlite" }

func (c *SQLiteConnector) QuoteIdentifier(name string) string {
	return connector.QuoteDouble(name)
}
