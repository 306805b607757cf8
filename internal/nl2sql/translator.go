// Package nl2sql turns natural-language questions into SQL with a language
// model, and asks the same model to repair SQL the store rejected.
package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/trialq/trialq/internal/llm"
	"github.com/trialq/trialq/internal/model"
	"github.com/trialq/trialq/internal/observability"
)

// Sampling defaults. Only one short statement is expected back.
const (
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 100
)

// Stages reported in TranslationError and the llm metrics.
const (
	StageTranslate = "translate"
	StageRefine    = "refine"
)

// ErrEmptySQL means the completion contained no statement after cleaning.
var ErrEmptySQL = errors.New("no SQL statement in model output")

// TranslationError wraps a failure to obtain SQL from the model. It is never
// retried by the repair loop.
type TranslationError struct {
	Stage string
	Err   error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// Translator builds prompts, calls the completer and cleans its output.
type Translator struct {
	completer   llm.Completer
	temperature float64
	maxTokens   int
	dialect     string
	logger      *slog.Logger
}

// Option configures a Translator.
type Option func(*Translator)

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) Option {
	return func(tr *Translator) { tr.temperature = t }
}

// WithMaxTokens overrides the output length cap.
func WithMaxTokens(n int) Option {
	return func(tr *Translator) {
		if n > 0 {
			tr.maxTokens = n
		}
	}
}

// WithDialect adds a dialect hint to both prompts for non-SQLite stores.
func WithDialect(driver string) Option {
	return func(tr *Translator) { tr.dialect = driver }
}

// WithLogger sets the logger used for prompt and completion debug output.
func WithLogger(l *slog.Logger) Option {
	return func(tr *Translator) {
		if l != nil {
			tr.logger = l
		}
	}
}

// NewTranslator returns a Translator over the given completer.
func NewTranslator(c llm.Completer, opts ...Option) *Translator {
	tr := &Translator{
		completer:   c,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(tr)
	}
	return tr
}

// Translate converts a question into a single SQL statement.
func (t *Translator) Translate(ctx context.Context, question string, schema model.SchemaDescription) (string, error) {
	prompt := translatePrompt(schema.String(), question, t.dialect)
	return t.run(ctx, StageTranslate, prompt)
}

// Refine asks for a corrected statement given the failed SQL and the
// store's error text.
func (t *Translator) Refine(ctx context.Context, failedSQL, errMsg string, schema model.SchemaDescription) (string, error) {
	prompt := refinePrompt(schema.String(), failedSQL, errMsg, t.dialect)
	return t.run(ctx, StageRefine, prompt)
}

func (t *Translator) run(ctx context.Context, stage, prompt string) (string, error) {
	start := time.Now()
	raw, err := t.completer.Complete(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: t.temperature,
		MaxTokens:   t.maxTokens,
	})
	observability.ObserveLLMCall(stage, err, time.Since(start))
	if err != nil {
		t.logger.Warn("model call failed", "stage", stage, "error", err)
		return "", &TranslationError{Stage: stage, Err: err}
	}

	sql := Clean(raw)
	t.logger.Debug("model output", "stage", stage, "raw", raw, "sql", sql)
	if sql == ";" {
		return "", &TranslationError{Stage: stage, Err: ErrEmptySQL}
	}
	return sql, nil
}
