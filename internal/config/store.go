package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/trialq/trialq/internal/model"
)

// StateFile is the name of the state database inside the data directory.
const StateFile = "trialq.db"

// Store keeps trialq's own state in SQLite: registered sources, query
// history, generated reports and free-form settings.
type Store struct {
	db *sqlx.DB
}

// NewStore opens (or creates) the state store. Pass empty string for
// in-memory.
func NewStore(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, StateFile) + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}

	db.SetMaxOpenConns(1) // single writer

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate state database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Sources
// ---------------------------------------------------------------------------

// sourceRow flattens model.SourceConfig's nested pool for scanning.
type sourceRow struct {
	ID                int64     `db:"id"`
	Name              string    `db:"name"`
	Label             string    `db:"label"`
	Driver            string    `db:"driver"`
	DSN               string    `db:"dsn"`
	PrivateKeyPath    string    `db:"private_key_path"`
	SchemaName        string    `db:"schema_name"`
	ReadOnly          bool      `db:"read_only"`
	MaxOpenConns      int       `db:"max_open_conns"`
	MaxIdleConns      int       `db:"max_idle_conns"`
	ConnMaxLifetimeMs int64     `db:"conn_max_lifetime_ms"`
	ConnMaxIdleTimeMs int64     `db:"conn_max_idle_time_ms"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func sourceRowFromModel(src *model.SourceConfig) sourceRow {
	return sourceRow{
		ID:                src.ID,
		Name:              src.Name,
		Label:             src.Label,
		Driver:            src.Driver,
		DSN:               src.DSN,
		PrivateKeyPath:    src.PrivateKeyPath,
		SchemaName:        src.Schema,
		ReadOnly:          src.ReadOnly,
		MaxOpenConns:      src.Pool.MaxOpenConns,
		MaxIdleConns:      src.Pool.MaxIdleConns,
		ConnMaxLifetimeMs: src.Pool.ConnMaxLifetime.Milliseconds(),
		ConnMaxIdleTimeMs: src.Pool.ConnMaxIdleTime.Milliseconds(),
		CreatedAt:         src.CreatedAt,
		UpdatedAt:         src.UpdatedAt,
	}
}

func (r sourceRow) toModel() model.SourceConfig {
	return model.SourceConfig{
		ID:             r.ID,
		Name:           r.Name,
		Label:          r.Label,
		Driver:         r.Driver,
		DSN:            r.DSN,
		PrivateKeyPath: r.PrivateKeyPath,
		Schema:         r.SchemaName,
		ReadOnly:       r.ReadOnly,
		Pool: model.PoolConfig{
			MaxOpenConns:    r.MaxOpenConns,
			MaxIdleConns:    r.MaxIdleConns,
			ConnMaxLifetime: time.Duration(r.ConnMaxLifetimeMs) * time.Millisecond,
			ConnMaxIdleTime: time.Duration(r.ConnMaxIdleTimeMs) * time.Millisecond,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// CreateSource registers a new source. ID, CreatedAt and UpdatedAt are set
// on src after the insert.
func (s *Store) CreateSource(ctx context.Context, src *model.SourceConfig) error {
	now := time.Now().UTC()
	src.CreatedAt = now
	src.UpdatedAt = now

	const q = `INSERT INTO sources
		(name, label, driver, dsn, private_key_path, schema_name, read_only,
		 max_open_conns, max_idle_conns, conn_max_lifetime_ms, conn_max_idle_time_ms,
		 created_at, updated_at)
		VALUES
		(:name, :label, :driver, :dsn, :private_key_path, :schema_name, :read_only,
		 :max_open_conns, :max_idle_conns, :conn_max_lifetime_ms, :conn_max_idle_time_ms,
		 :created_at, :updated_at)`

	result, err := s.db.NamedExecContext(ctx, q, sourceRowFromModel(src))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("source %q: %w", src.Name, ErrDuplicate)
		}
		return fmt.Errorf("insert source: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get source id: %w", err)
	}
	src.ID = id
	return nil
}

// GetSourceByName returns a source by its unique name.
func (s *Store) GetSourceByName(ctx context.Context, name string) (*model.SourceConfig, error) {
	var row sourceRow
	if err := s.db.GetContext(ctx, &row, "SELECT * FROM sources WHERE name = ?", name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get source: %w", err)
	}
	src := row.toModel()
	return &src, nil
}

// ListSources returns every registered source ordered by name.
func (s *Store) ListSources(ctx context.Context) ([]model.SourceConfig, error) {
	var rows []sourceRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM sources ORDER BY name"); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	sources := make([]model.SourceConfig, len(rows))
	for i, r := range rows {
		sources[i] = r.toModel()
	}
	return sources, nil
}

// UpdateSource rewrites an existing source, matched by ID.
func (s *Store) UpdateSource(ctx context.Context, src *model.SourceConfig) error {
	src.UpdatedAt = time.Now().UTC()

	const q = `UPDATE sources SET
		name = :name, label = :label, driver = :driver, dsn = :dsn, private_key_path = :private_key_path,
		schema_name = :schema_name, read_only = :read_only,
		max_open_conns = :max_open_conns, max_idle_conns = :max_idle_conns,
		conn_max_lifetime_ms = :conn_max_lifetime_ms, conn_max_idle_time_ms = :conn_max_idle_time_ms,
		updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, sourceRowFromModel(src))
	if err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	return expectAffected(result, "update source")
}

// DeleteSource removes a source by name.
func (s *Store) DeleteSource(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sources WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	return expectAffected(result, "delete source")
}

// ---------------------------------------------------------------------------
// Query history
// ---------------------------------------------------------------------------

// AppendHistory stores a finished question. ID and CreatedAt are set on e.
func (s *Store) AppendHistory(ctx context.Context, e *model.HistoryEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	const q = `INSERT INTO query_history
		(source, question, final_sql, success, row_count, attempts, error, duration_ms, created_at)
		VALUES
		(:source, :question, :final_sql, :success, :row_count, :attempts, :error, :duration_ms, :created_at)`

	result, err := s.db.NamedExecContext(ctx, q, e)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get history id: %w", err)
	}
	e.ID = id
	return nil
}

// ListHistory returns entries newest first. A limit <= 0 returns everything.
func (s *Store) ListHistory(ctx context.Context, limit, offset int) ([]model.HistoryEntry, error) {
	q := "SELECT * FROM query_history ORDER BY id DESC"
	var args []interface{}
	if limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	entries := []model.HistoryEntry{}
	if err := s.db.SelectContext(ctx, &entries, q, args...); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// CountHistory returns the number of stored entries.
func (s *Store) CountHistory(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM query_history"); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

// GetHistory returns a single entry by ID.
func (s *Store) GetHistory(ctx context.Context, id int64) (*model.HistoryEntry, error) {
	var e model.HistoryEntry
	if err := s.db.GetContext(ctx, &e, "SELECT * FROM query_history WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get history: %w", err)
	}
	return &e, nil
}

// ClearHistory deletes every entry and returns how many were removed.
func (s *Store) ClearHistory(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM query_history")
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return result.RowsAffected()
}

// ---------------------------------------------------------------------------
// Reports
// ---------------------------------------------------------------------------

// AddReport records a generated report artifact.
func (s *Store) AddReport(ctx context.Context, r *model.ReportRecord) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO reports (filename, format, location, question, row_count, created_at)
		VALUES (:filename, :format, :location, :question, :row_count, :created_at)`

	result, err := s.db.NamedExecContext(ctx, q, r)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get report id: %w", err)
	}
	r.ID = id
	return nil
}

// ListReports returns report records newest first.
func (s *Store) ListReports(ctx context.Context) ([]model.ReportRecord, error) {
	reports := []model.ReportRecord{}
	if err := s.db.SelectContext(ctx, &reports, "SELECT * FROM reports ORDER BY id DESC"); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// GetSetting returns the value stored under key, or ErrNotFound.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	if err := s.db.GetContext(ctx, &value, "SELECT value FROM settings WHERE key = ?", key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}

// SetSetting upserts a key/value pair.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

func expectAffected(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
