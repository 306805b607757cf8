// Package service ties trial sources, the repair loop, history and report
// generation together for the HTTP, MCP and CLI front ends.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/trialq/trialq/internal/config"
	"github.com/trialq/trialq/internal/connector"
	"github.com/trialq/trialq/internal/llm"
	"github.com/trialq/trialq/internal/model"
	"github.com/trialq/trialq/internal/nl2sql"
	"github.com/trialq/trialq/internal/query"
	"github.com/trialq/trialq/internal/repair"
	"github.com/trialq/trialq/internal/report"
	"github.com/trialq/trialq/internal/schema"
)

var (
	ErrSourceNotFound  = errors.New("source not found")
	ErrNoSources       = errors.New("no trial sources configured")
	ErrReportsDisabled = errors.New("report generation is not configured")
)

// Options configures a TrialService. Store and Reports are optional.
type Options struct {
	Completer   llm.Completer
	Store       *config.Store
	Reports     *report.Generator
	Temperature float64
	MaxTokens   int
	Logger      *slog.Logger
}

type sourceState struct {
	readOnly bool
	loop     *repair.Loop
}

// TrialService owns one repair loop per registered source.
type TrialService struct {
	registry *connector.Registry
	opts     Options
	logger   *slog.Logger

	mu         sync.Mutex
	sources    map[string]*sourceState
	defaultSrc string
}

// NewTrialService returns a service over the sources open in registry.
func NewTrialService(registry *connector.Registry, opts Options) *TrialService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TrialService{
		registry: registry,
		opts:     opts,
		logger:   logger,
		sources:  make(map[string]*sourceState),
	}
}

// AddSource connects src and makes it available by name. The first source
// added becomes the default.
func (s *TrialService) AddSource(src model.SourceConfig) error {
	if err := s.registry.Connect(src.Name, connector.ConfigFromSource(src)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[src.Name] = &sourceState{readOnly: src.ReadOnly}
	if s.defaultSrc == "" {
		s.defaultSrc = src.Name
	}
	s.logger.Info("source connected", "source", src.Name, "driver", src.Driver, "read_only", src.ReadOnly)
	return nil
}

// SetDefault selects the source used when a request names none.
func (s *TrialService) SetDefault(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sources[name]; !ok {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}
	s.defaultSrc = name
	return nil
}

// DefaultSource returns the default source name.
func (s *TrialService) DefaultSource() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaultSrc
}

// Sources lists registered source names in order.
func (s *TrialService) Sources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.sources))
	for n := range s.sources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *TrialService) resolve(name string) (string, connector.Connector, *sourceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		name = s.defaultSrc
	}
	if name == "" {
		return "", nil, nil, ErrNoSources
	}
	st, ok := s.sources[name]
	if !ok {
		return "", nil, nil, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}
	conn, err := s.registry.Get(name)
	if err != nil {
		return "", nil, nil, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}
	return name, conn, st, nil
}

// Loop returns the repair loop bound to the named source, building it on
// first use.
func (s *TrialService) Loop(name string) (*repair.Loop, string, error) {
	name, conn, st, err := s.resolve(name)
	if err != nil {
		return nil, "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st.loop == nil {
		tr := nl2sql.NewTranslator(s.opts.Completer,
			nl2sql.WithDialect(conn.DriverName()),
			nl2sql.WithTemperature(s.temperature()),
			nl2sql.WithMaxTokens(s.opts.MaxTokens),
			nl2sql.WithLogger(s.logger),
		)
		st.loop = repair.NewLoop(
			query.NewGuard(conn, st.readOnly),
			schema.NewDescriber(conn),
			tr,
			repair.WithLogger(s.logger.With("source", name)),
			repair.WithRecorder(s.recorder(name)),
		)
	}
	return st.loop, name, nil
}

func (s *TrialService) temperature() float64 {
	if s.opts.Temperature > 0 {
		return s.opts.Temperature
	}
	return nl2sql.DefaultTemperature
}

func (s *TrialService) recorder(source string) repair.RecordFunc {
	return func(ctx context.Context, question string, ans repair.Answer, err error, elapsed time.Duration) {
		if s.opts.Store == nil {
			return
		}
		entry := &model.HistoryEntry{
			Source:     source,
			Question:   question,
			FinalSQL:   ans.FinalSQL,
			Success:    err == nil,
			RowCount:   ans.Result.RowCount,
			Attempts:   ans.AttemptsUsed,
			DurationMs: elapsed.Milliseconds(),
		}
		if err != nil {
			entry.Error = err.Error()
			var ex *repair.ExhaustedError
			if errors.As(err, &ex) {
				entry.Error = ex.LastError
			}
		}
		if err := s.opts.Store.AppendHistory(context.WithoutCancel(ctx), entry); err != nil {
			s.logger.Warn("failed to record history", "error", err)
		}
	}
}

// Ask answers question against the named source ("" for the default).
func (s *TrialService) Ask(ctx context.Context, source, question string) (repair.Answer, error) {
	loop, _, err := s.Loop(source)
	if err != nil {
		return repair.Answer{}, err
	}
	return loop.AnswerQuery(ctx, question)
}

// Describe returns the schema description of the named source.
func (s *TrialService) Describe(ctx context.Context, source string) (model.SchemaDescription, error) {
	_, conn, _, err := s.resolve(source)
	if err != nil {
		return model.SchemaDescription{}, err
	}
	return schema.NewDescriber(conn).Describe(ctx)
}

// Stats returns row counts per table of the named source.
func (s *TrialService) Stats(ctx context.Context, source string) (map[string]int64, error) {
	_, conn, _, err := s.resolve(source)
	if err != nil {
		return nil, err
	}
	return schema.NewDescriber(conn).Stats(ctx)
}

// GenerateReport renders doc and records the artifact in the store.
func (s *TrialService) GenerateReport(ctx context.Context, format report.Format, doc report.Document) (report.Artifact, error) {
	if s.opts.Reports == nil {
		return report.Artifact{}, ErrReportsDisabled
	}
	art, err := s.opts.Reports.Generate(ctx, format, doc)
	if err != nil {
		return report.Artifact{}, err
	}
	if s.opts.Store != nil {
		rec := &model.ReportRecord{
			Filename: art.Filename,
			Format:   string(art.Format),
			Location: art.Location,
			Question: doc.Question,
			RowCount: len(doc.Rows),
		}
		if err := s.opts.Store.AddReport(ctx, rec); err != nil {
			s.logger.Warn("failed to record report", "error", err)
		}
	}
	s.logger.Info("report generated", "file", art.Filename, "location", art.Location, "rows", len(doc.Rows))
	return art, nil
}

// Store returns the state store, which may be nil.
func (s *TrialService) Store() *config.Store { return s.opts.Store }

// Ping checks every registered source.
func (s *TrialService) Ping(ctx context.Context) map[string]error {
	out := make(map[string]error)
	for _, name := range s.Sources() {
		conn, err := s.registry.Get(name)
		if err != nil {
			out[name] = err
			continue
		}
		out[name] = conn.Ping(ctx)
	}
	return out
}

// Close disconnects every source.
func (s *TrialService) Close() {
	s.registry.CloseAll()
}
