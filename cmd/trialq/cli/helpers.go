package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/trialq/trialq/internal/config"
	"github.com/trialq/trialq/internal/connector"
	"github.com/trialq/trialq/internal/connector/duckdb"
	"github.com/trialq/trialq/internal/connector/mssql"
	"github.com/trialq/trialq/internal/connector/mysql"
	"github.com/trialq/trialq/internal/connector/oracle"
	"github.com/trialq/trialq/internal/connector/postgres"
	"github.com/trialq/trialq/internal/connector/snowflake"
	"github.com/trialq/trialq/internal/connector/sqlite"
	"github.com/trialq/trialq/internal/llm"
	"github.com/trialq/trialq/internal/model"
	"github.com/trialq/trialq/internal/report"
	"github.com/trialq/trialq/internal/secrets"
	"github.com/trialq/trialq/internal/service"
)

const (
	// defaultSourceName is the source built from the database config section.
	defaultSourceName = "trials"
	// defaultSourceSetting holds the source chosen with "trialq source default".
	defaultSourceSetting = "default_source"
	trialsFile           = "trials.db"
)

var (
	// dataDir holds the --data-dir persistent flag value (set on root command).
	dataDir string
	// devMode holds the --dev persistent flag value.
	devMode bool
)

// resolveDataDir returns the data directory from --data-dir flag,
// TRIALQ_DATA_DIR env var, or ~/.trialq as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("TRIALQ_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".trialq")
}

// openConfigStore opens the SQLite state store in the data directory.
func openConfigStore() (*config.Store, error) {
	return config.NewStore(resolveDataDir())
}

// newRegistry creates a connector registry with all supported database drivers registered.
func newRegistry() *connector.Registry {
	registry := connector.NewRegistry()
	registry.RegisterDriver("sqlite", sqlite.New)
	registry.RegisterDriver("duckdb", duckdb.New)
	registry.RegisterDriver("postgres", postgres.New)
	registry.RegisterDriver("mysql", mysql.New)
	registry.RegisterDriver("mssql", mssql.New)
	registry.RegisterDriver("snowflake", snowflake.New)
	registry.RegisterDriver("oracle", oracle.New)
	return registry
}

// loadAppConfig reads the config file viper found (if any) and layers
// environment variables and bound flags on top.
func loadAppConfig() (*config.AppConfig, error) {
	cfg := config.DefaultAppConfig()
	if path := viper.ConfigFileUsed(); path != "" {
		loaded, err := config.LoadAppConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	applyOverrides(cfg)
	return cfg, nil
}

func applyOverrides(cfg *config.AppConfig) {
	strs := map[string]*string{
		"server.host":             &cfg.Server.Host,
		"server.max_body_size":    &cfg.Server.MaxBodySize,
		"server.shutdown_timeout": &cfg.Server.ShutdownTimeout,
		"database.driver":         &cfg.Database.Driver,
		"database.dsn":            &cfg.Database.DSN,
		"database.schema":         &cfg.Database.Schema,
		"llm.provider":            &cfg.LLM.Provider,
		"llm.base_url":            &cfg.LLM.BaseURL,
		"llm.model":               &cfg.LLM.Model,
		"llm.api_key":             &cfg.LLM.APIKey,
		"llm.timeout":             &cfg.LLM.Timeout,
		"reports.dir":             &cfg.Reports.Dir,
		"reports.sink":            &cfg.Reports.Sink,
		"reports.s3.endpoint":     &cfg.Reports.S3.Endpoint,
		"reports.s3.region":       &cfg.Reports.S3.Region,
		"reports.s3.bucket":       &cfg.Reports.S3.Bucket,
		"reports.s3.prefix":       &cfg.Reports.S3.Prefix,
		"reports.s3.access_key":   &cfg.Reports.S3.AccessKey,
		"reports.s3.secret_key":   &cfg.Reports.S3.SecretKey,
		"mcp.transport":           &cfg.MCP.Transport,
		"logging.level":           &cfg.Logging.Level,
		"logging.format":          &cfg.Logging.Format,
	}
	for key, dst := range strs {
		if viper.IsSet(key) {
			// viper does not expand ${VAR} references the way LoadAppConfig does.
			*dst = os.ExpandEnv(viper.GetString(key))
		}
	}

	ints := map[string]*int{
		"server.port":       &cfg.Server.Port,
		"server.rate_limit": &cfg.Server.RateLimit,
		"llm.max_tokens":    &cfg.LLM.MaxTokens,
		"mcp.port":          &cfg.MCP.Port,
	}
	for key, dst := range ints {
		if viper.IsSet(key) {
			*dst = viper.GetInt(key)
		}
	}

	bools := map[string]*bool{
		"database.read_only":       &cfg.Database.ReadOnly,
		"reports.s3.use_ssl":       &cfg.Reports.S3.UseSSL,
		"reports.s3.create_bucket": &cfg.Reports.S3.CreateBucket,
	}
	for key, dst := range bools {
		if viper.IsSet(key) {
			*dst = viper.GetBool(key)
		}
	}

	if viper.IsSet("llm.temperature") {
		cfg.LLM.Temperature = viper.GetFloat64("llm.temperature")
	}
	if viper.IsSet("server.cors.origins") {
		cfg.Server.CORS.Origins = viper.GetStringSlice("server.cors.origins")
	}
}

// newLogger builds the process logger. Logs always go to stderr; stdout
// carries command output and MCP stdio frames.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if devMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// quietLogger is used by interactive commands, where info lines would
// interleave with the conversation.
func quietLogger(cfg config.LoggingConfig) *slog.Logger {
	if devMode || strings.EqualFold(cfg.Level, "debug") {
		return newLogger(cfg)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// app bundles what a command needs to answer questions.
type app struct {
	cfg        *config.AppConfig
	logger     *slog.Logger
	store      *config.Store
	svc        *service.TrialService
	reportsDir string
}

func (a *app) Close() {
	a.svc.Close()
	a.store.Close()
}

// defaultTrialsPath is the sqlite file used when database.dsn is empty.
func defaultTrialsPath() string {
	return filepath.Join(resolveDataDir(), trialsFile)
}

// reportsDir resolves reports.dir against the data directory.
func reportsDir(cfg *config.AppConfig) string {
	dir := cfg.Reports.Dir
	if dir == "" {
		dir = "reports"
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(resolveDataDir(), dir)
}

// defaultSource describes the trial store configured in the database section.
func defaultSource(cfg *config.AppConfig) model.SourceConfig {
	src := model.SourceConfig{
		Name:     defaultSourceName,
		Label:    "Clinical trials",
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.DSN,
		Schema:   cfg.Database.Schema,
		ReadOnly: cfg.Database.ReadOnly,
		Pool:     model.DefaultPoolConfig(),
	}
	if src.Driver == "" {
		src.Driver = "sqlite"
	}
	if src.Driver == "sqlite" && src.DSN == "" {
		src.DSN = defaultTrialsPath()
	}
	return src
}

// resolveAPIKey prefers the configured key and falls back to the OS keyring.
func resolveAPIKey(cfg config.LLMConfig, logger *slog.Logger) string {
	if cfg.APIKey != "" {
		return cfg.APIKey
	}
	if !strings.EqualFold(cfg.Provider, llm.ProviderOpenAI) {
		return ""
	}
	ring, err := secrets.Open()
	if err != nil {
		logger.Debug("keyring unavailable", "error", err)
		return ""
	}
	key, err := ring.LLMKey()
	if err != nil {
		if !errors.Is(err, secrets.ErrNotSet) {
			logger.Warn("failed to read api key from keyring", "error", err)
		}
		return ""
	}
	return key
}

func newCompleter(cfg config.LLMConfig, logger *slog.Logger) (llm.Completer, error) {
	var timeout time.Duration
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse llm.timeout: %w", err)
		}
		timeout = d
	}
	completer, err := llm.New(llm.Config{
		Provider: cfg.Provider,
		BaseURL:  cfg.BaseURL,
		APIKey:   resolveAPIKey(cfg, logger),
		Model:    cfg.Model,
		Timeout:  timeout,
	})
	if err != nil {
		return nil, err
	}
	if m, ok := completer.(interface{ Model() string }); ok {
		logger.Debug("llm completer ready", "provider", cfg.Provider, "model", m.Model())
	}
	return completer, nil
}

func newReportGenerator(ctx context.Context, cfg *config.AppConfig) (*report.Generator, string, error) {
	dir := reportsDir(cfg)
	switch strings.ToLower(cfg.Reports.Sink) {
	case "", "local":
		sink, err := report.NewLocalSink(dir)
		if err != nil {
			return nil, "", err
		}
		return report.NewGenerator(sink), dir, nil
	case "s3":
		s3 := cfg.Reports.S3
		sink, err := report.NewS3Sink(ctx, report.S3Config{
			Endpoint:         s3.Endpoint,
			Region:           s3.Region,
			Bucket:           s3.Bucket,
			Prefix:           s3.Prefix,
			AccessKeyID:      s3.AccessKey,
			SecretAccessKey:  s3.SecretKey,
			UseSSL:           s3.UseSSL,
			AutoCreateBucket: s3.CreateBucket,
		})
		if err != nil {
			return nil, "", err
		}
		// Nothing to serve locally.
		return report.NewGenerator(sink), "", nil
	default:
		return nil, "", fmt.Errorf("unsupported reports.sink %q; use 'local' or 's3'", cfg.Reports.Sink)
	}
}

// buildApp opens the state store, connects the configured default source
// plus every stored source, and wires the trial service.
func buildApp(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*app, error) {
	store, err := openConfigStore()
	if err != nil {
		return nil, fmt.Errorf("init state store: %w", err)
	}
	logger.Debug("state store initialized", "path", resolveDataDir())

	completer, err := newCompleter(cfg.LLM, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	reports, dir, err := newReportGenerator(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init report sink: %w", err)
	}

	registry := newRegistry()
	svc := service.NewTrialService(registry, service.Options{
		Completer:   completer,
		Store:       store,
		Reports:     reports,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Logger:      logger,
	})

	if err := svc.AddSource(defaultSource(cfg)); err != nil {
		logger.Warn("failed to connect default source", "source", defaultSourceName, "error", err)
	}

	stored, err := store.ListSources(ctx)
	if err != nil {
		logger.Warn("failed to load sources from state store", "error", err)
	}
	for _, src := range stored {
		if src.Name == defaultSourceName {
			logger.Warn("stored source shadowed by the configured database", "source", src.Name)
			continue
		}
		if err := svc.AddSource(src); err != nil {
			logger.Error("failed to connect source", "source", src.Name, "error", err)
		}
	}

	if name, err := store.GetSetting(ctx, defaultSourceSetting); err == nil && name != "" {
		if err := svc.SetDefault(name); err != nil {
			logger.Warn("default source unavailable", "source", name, "error", err)
		}
	} else if err != nil && !errors.Is(err, config.ErrNotFound) {
		logger.Warn("failed to read default source setting", "error", err)
	}

	return &app{cfg: cfg, logger: logger, store: store, svc: svc, reportsDir: dir}, nil
}

// setupApp is the common prologue of commands that answer questions.
func setupApp(ctx context.Context, quiet bool) (*app, error) {
	cfg, err := loadAppConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Logging)
	if quiet {
		logger = quietLogger(cfg.Logging)
	}
	return buildApp(ctx, cfg, logger)
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
