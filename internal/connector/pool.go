package connector

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/trialq/trialq/internal/model"
)

var errNotConnected = errors.New("database is not connected")

// Pool is the sqlx pool behind a driver connector. Drivers embed it and get
// Disconnect, Ping, DB and ExecuteQuery; they still supply Connect,
// introspection and quoting.
type Pool struct {
	db *sqlx.DB
}

// NewPool wraps an open pool.
func NewPool(db *sqlx.DB) Pool {
	return Pool{db: db}
}

// Open connects with the named database/sql driver and applies the pool
// limits from cfg. label prefixes connect errors.
func Open(driverName, label, dsn string, cfg ConnectionConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", label, err)
	}
	ApplyPool(db, cfg)
	return db, nil
}

// Disconnect closes the pool. It is safe on a connector that never connected.
func (p *Pool) Disconnect() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

func (p *Pool) Ping(ctx context.Context) error {
	if p.db == nil {
		return errNotConnected
	}
	return p.db.PingContext(ctx)
}

func (p *Pool) DB() *sqlx.DB { return p.db }

// ExecuteQuery runs query and reports engine failures in the result.
func (p *Pool) ExecuteQuery(ctx context.Context, query string) model.QueryResult {
	return Execute(ctx, p.db, query)
}

// ApplyPool sets the pool limits on db for every value greater than zero.
func ApplyPool(db *sqlx.DB, cfg ConnectionConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}
