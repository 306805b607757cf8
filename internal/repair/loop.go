// Package repair runs the translate, execute and refine cycle that answers a
// natural-language question with a bounded number of repair attempts.
package repair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/trialq/trialq/internal/model"
	"github.com/trialq/trialq/internal/observability"
)

// MaxRetries bounds refinement calls per question. A question is executed
// at most MaxRetries+1 times.
const MaxRetries = 2

// ErrExhaustedRetries is matched by every *ExhaustedError.
var ErrExhaustedRetries = errors.New("exhausted repair retries")

// Executor runs SQL against the owned store handle.
type Executor interface {
	ExecuteQuery(ctx context.Context, query string) model.QueryResult
}

// SchemaSource produces the description passed to the model.
type SchemaSource interface {
	Describe(ctx context.Context) (model.SchemaDescription, error)
}

// SQLTranslator produces candidate SQL. Errors it returns end the run
// without retries.
type SQLTranslator interface {
	Translate(ctx context.Context, question string, schema model.SchemaDescription) (string, error)
	Refine(ctx context.Context, failedSQL, errMsg string, schema model.SchemaDescription) (string, error)
}

// Attempt is one executed candidate.
type Attempt struct {
	Index  int               `json:"index"`
	SQL    string            `json:"sql"`
	Result model.QueryResult `json:"-"`
}

// Answer is the outcome of AnswerQuery. AttemptsUsed counts executions.
type Answer struct {
	FinalSQL     string
	Result       model.QueryResult
	AttemptsUsed int
	Attempts     []Attempt
}

// ExhaustedError reports that every allowed execution failed.
type ExhaustedError struct {
	Attempts  int
	LastSQL   string
	LastError string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("query failed after %d attempts: %s", e.Attempts, e.LastError)
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrExhaustedRetries }

// RecordFunc receives every finished run, successful or not.
type RecordFunc func(ctx context.Context, question string, ans Answer, err error, elapsed time.Duration)

// Loop answers questions against a single store handle. Runs are
// serialized: one question is processed start to finish before the next.
type Loop struct {
	mu         sync.Mutex
	exec       Executor
	schema     SchemaSource
	translator SQLTranslator
	maxRetries int
	record     RecordFunc
	logger     *slog.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithRecorder installs a hook called after every run.
func WithRecorder(fn RecordFunc) Option {
	return func(l *Loop) { l.record = fn }
}

// WithLogger sets the attempt logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMaxRetries overrides MaxRetries. Negative values are ignored.
func WithMaxRetries(n int) Option {
	return func(l *Loop) {
		if n >= 0 {
			l.maxRetries = n
		}
	}
}

// NewLoop binds a loop to an executor, its schema source and a translator.
func NewLoop(exec Executor, schema SchemaSource, tr SQLTranslator, opts ...Option) *Loop {
	l := &Loop{
		exec:       exec,
		schema:     schema,
		translator: tr,
		maxRetries: MaxRetries,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AnswerQuery translates the question, executes the SQL and refines it on
// execution failure. A zero-row result is a success. On exhaustion the
// returned Answer holds the last attempt and the error is an
// *ExhaustedError. Translation and schema errors are returned as is.
func (l *Loop) AnswerQuery(ctx context.Context, question string) (Answer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Now()
	ans, err := l.run(ctx, question)

	switch {
	case err == nil:
		observability.ObserveAnswer(observability.OutcomeSuccess, ans.AttemptsUsed)
	case errors.Is(err, ErrExhaustedRetries):
		observability.ObserveAnswer(observability.OutcomeExhausted, ans.AttemptsUsed)
	default:
		observability.ObserveAnswer(observability.OutcomeTranslationError, ans.AttemptsUsed)
	}
	if l.record != nil {
		l.record(ctx, question, ans, err, time.Since(start))
	}
	return ans, err
}

func (l *Loop) run(ctx context.Context, question string) (Answer, error) {
	var ans Answer

	desc, err := l.schema.Describe(ctx)
	if err != nil {
		return ans, err
	}

	sql, err := l.translator.Translate(ctx, question, desc)
	if err != nil {
		l.logger.Warn("translation failed", "question", question, "error", err)
		return ans, err
	}

	for retries := 0; ; retries++ {
		result := l.exec.ExecuteQuery(ctx, sql)
		observability.ObserveExecution(result.Success)

		ans.Attempts = append(ans.Attempts, Attempt{Index: len(ans.Attempts) + 1, SQL: sql, Result: result})
		ans.AttemptsUsed = len(ans.Attempts)
		ans.FinalSQL = sql
		ans.Result = result

		if result.Success {
			l.logger.Info("query succeeded", "attempt", ans.AttemptsUsed, "sql", sql, "rows", result.RowCount)
			return ans, nil
		}
		l.logger.Info("query failed", "attempt", ans.AttemptsUsed, "sql", sql, "error", result.Error)

		if retries >= l.maxRetries {
			return ans, &ExhaustedError{Attempts: ans.AttemptsUsed, LastSQL: sql, LastError: result.Error}
		}

		sql, err = l.translator.Refine(ctx, sql, result.Error, desc)
		if err != nil {
			l.logger.Warn("refinement failed", "attempt", ans.AttemptsUsed, "error", err)
			return ans, err
		}
	}
}
