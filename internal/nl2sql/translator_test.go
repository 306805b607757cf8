package nl2sql

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/trialq/trialq/internal/llm"
	"github.com/trialq/trialq/internal/model"
)

type fakeCompleter struct {
	replies []string
	err     error
	reqs    []llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func testSchema() model.SchemaDescription {
	return model.SchemaDescription{
		Tables: []model.TableDescriptor{
			{Name: "demographics", Columns: []string{"USUBJID", "AGE", "SEX"}, TotalColumns: 3, RowCount: 306},
		},
		Patterns: model.DefaultQueryPatterns,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTranslate(t *testing.T) {
	fc := &fakeCompleter{replies: []string{"```sql\nSELECT * FROM demographics WHERE AGE > 65\n```"}}
	tr := NewTranslator(fc, WithLogger(quietLogger()))

	sql, err := tr.Translate(context.Background(), "Find patients over 65", testSchema())
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if sql != "SELECT * FROM demographics WHERE AGE > 65;" {
		t.Errorf("sql = %q", sql)
	}

	if len(fc.reqs) != 1 {
		t.Fatalf("expected 1 completion call, got %d", len(fc.reqs))
	}
	req := fc.reqs[0]
	if req.Temperature != DefaultTemperature || req.MaxTokens != DefaultMaxTokens {
		t.Errorf("sampling = (%v, %d)", req.Temperature, req.MaxTokens)
	}
	for _, want := range []string{
		"You are a SQL query generator.",
		"TABLE: DEMOGRAPHICS (306 records)",
		"Use LIKE '%text%' for text search (with single quotes)",
		"Use USUBJID to join tables",
		"Query: \"Find patients over 65\"",
	} {
		if !strings.Contains(req.Prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.HasSuffix(req.Prompt, "\n\nSQL:") {
		t.Errorf("prompt should end with the SQL: cue, got %q", req.Prompt[len(req.Prompt)-20:])
	}
	if strings.Contains(req.Prompt, "SQL syntax") {
		t.Error("sqlite prompt should not carry a dialect rule")
	}
}

func TestRefinePromptCarriesErrorVerbatim(t *testing.T) {
	fc := &fakeCompleter{replies: []string{"SELECT * FROM demographics WHERE AGE > 65;"}}
	tr := NewTranslator(fc, WithLogger(quietLogger()))

	sql, err := tr.Refine(context.Background(), "SELECT * FROM demog WHERE AGE > 65;", "no such table: demog", testSchema())
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if sql != "SELECT * FROM demographics WHERE AGE > 65;" {
		t.Errorf("sql = %q", sql)
	}
	prompt := fc.reqs[0].Prompt
	for _, want := range []string{
		"Fix this SQL query.",
		"Failed SQL:\nSELECT * FROM demog WHERE AGE > 65;",
		"Error:\nno such table: demog",
		"Corrected SQL:",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestDialectRule(t *testing.T) {
	fc := &fakeCompleter{replies: []string{"SELECT 1"}}
	tr := NewTranslator(fc, WithDialect("postgres"), WithLogger(quietLogger()))
	if _, err := tr.Translate(context.Background(), "q", testSchema()); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if !strings.Contains(fc.reqs[0].Prompt, "- Use PostgreSQL SQL syntax\n") {
		t.Errorf("missing dialect rule in %q", fc.reqs[0].Prompt)
	}
}

func TestOptionsOverrideSampling(t *testing.T) {
	fc := &fakeCompleter{replies: []string{"SELECT 1"}}
	tr := NewTranslator(fc, WithTemperature(0), WithMaxTokens(256), WithLogger(quietLogger()))
	if _, err := tr.Translate(context.Background(), "q", testSchema()); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if fc.reqs[0].Temperature != 0 || fc.reqs[0].MaxTokens != 256 {
		t.Errorf("sampling = (%v, %d)", fc.reqs[0].Temperature, fc.reqs[0].MaxTokens)
	}
}

func TestTranslationErrors(t *testing.T) {
	boom := errors.New("connection refused")
	tests := []struct {
		name    string
		fc      *fakeCompleter
		wantErr error
	}{
		{name: "completer failure", fc: &fakeCompleter{err: boom}, wantErr: boom},
		{name: "nothing left after cleaning", fc: &fakeCompleter{replies: []string{"```\n```"}}, wantErr: ErrEmptySQL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTranslator(tt.fc, WithLogger(quietLogger()))
			_, err := tr.Translate(context.Background(), "q", testSchema())
			var te *TranslationError
			if !errors.As(err, &te) {
				t.Fatalf("expected *TranslationError, got %v", err)
			}
			if te.Stage != StageTranslate {
				t.Errorf("stage = %q", te.Stage)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v to wrap %v", err, tt.wantErr)
			}
		})
	}
}
