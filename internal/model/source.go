package model

import "time"

// SourceConfig describes a trial data source: one database the repair loop
// can translate questions against.
type SourceConfig struct {
	ID             int64      `json:"id" db:"id"`
	Name           string     `json:"name" db:"name"`
	Label          string     `json:"label" db:"label"`
	Driver         string     `json:"driver" db:"driver"` // sqlite, duckdb, postgres, mysql, mssql, snowflake, oracle
	DSN            string     `json:"dsn,omitempty" db:"dsn"`
	PrivateKeyPath string     `json:"private_key_path,omitempty" db:"private_key_path"`
	Schema         string     `json:"schema" db:"schema_name"`
	ReadOnly       bool       `json:"read_only" db:"read_only"`
	Pool           PoolConfig `json:"pool"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// PoolConfig controls the connection pool for a source.
type PoolConfig struct {
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
}

// DefaultPoolConfig returns the pool settings used when a source does not
// specify its own.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}
