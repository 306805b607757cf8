package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/trialq/trialq/internal/config"
	"github.com/trialq/trialq/internal/connector"
	"github.com/trialq/trialq/internal/connector/sqlite"
	"github.com/trialq/trialq/internal/llm"
	"github.com/trialq/trialq/internal/model"
	"github.com/trialq/trialq/internal/repair"
	"github.com/trialq/trialq/internal/report"
)

type scriptedCompleter struct {
	mu      sync.Mutex
	replies []string
	prompts []string
}

func (c *scriptedCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, req.Prompt)
	if len(c.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := c.replies[0]
	c.replies = c.replies[1:]
	return r, nil
}

func newTestService(t *testing.T, c llm.Completer, withReports bool) *TrialService {
	t.Helper()

	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	registry := connector.NewRegistry()
	registry.RegisterDriver("sqlite", sqlite.New)

	opts := Options{
		Completer: c,
		Store:     store,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if withReports {
		sink, err := report.NewLocalSink(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		opts.Reports = report.NewGenerator(sink)
	}
	svc := NewTrialService(registry, opts)
	t.Cleanup(svc.Close)

	if err := svc.AddSource(model.SourceConfig{Name: "trials", Driver: "sqlite", DSN: ":memory:", ReadOnly: true}); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	conn, err := registry.Get("trials")
	if err != nil {
		t.Fatal(err)
	}
	for _, stmt := range []string{
		`CREATE TABLE demographics (id INTEGER PRIMARY KEY AUTOINCREMENT, "USUBJID" TEXT, "AGE" TEXT)`,
		`INSERT INTO demographics ("USUBJID", "AGE") VALUES ('01-701-1015', '63'), ('01-701-1028', '71')`,
	} {
		if _, err := conn.DB().Exec(stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return svc
}

func TestAskRecordsHistory(t *testing.T) {
	c := &scriptedCompleter{replies: []string{
		"SELECT * FROM demog WHERE AGE > 65",
		"```sql\nSELECT * FROM demographics WHERE AGE > 65\n```",
	}}
	svc := newTestService(t, c, false)
	ctx := context.Background()

	ans, err := svc.Ask(ctx, "", "Find patients over 65")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.AttemptsUsed != 2 || ans.Result.RowCount != 1 {
		t.Errorf("unexpected answer %+v", ans)
	}
	if len(c.prompts) != 2 || !strings.Contains(c.prompts[1], "no such table: demog") {
		t.Errorf("refine prompt should carry the engine error, prompts=%q", c.prompts)
	}

	hist, err := svc.Store().ListHistory(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(hist) != 1 || !hist[0].Success || hist[0].Attempts != 2 || hist[0].Source != "trials" {
		t.Errorf("unexpected history %+v", hist)
	}
}

func TestAskReadOnlyGuard(t *testing.T) {
	c := &scriptedCompleter{replies: []string{
		"DELETE FROM demographics",
		"DROP TABLE demographics",
		"UPDATE demographics SET AGE = 0",
	}}
	svc := newTestService(t, c, false)

	ans, err := svc.Ask(context.Background(), "trials", "remove everyone")
	if !errors.Is(err, repair.ErrExhaustedRetries) {
		t.Fatalf("expected exhausted retries, got %v", err)
	}
	if !strings.Contains(ans.Result.Error, "read-only source") {
		t.Errorf("Result.Error = %q", ans.Result.Error)
	}
	stats, err := svc.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["demographics"] != 2 {
		t.Errorf("rows were modified: %v", stats)
	}

	hist, _ := svc.Store().ListHistory(context.Background(), 0, 0)
	if len(hist) != 1 || hist[0].Success || !strings.Contains(hist[0].Error, "read-only") {
		t.Errorf("unexpected history %+v", hist)
	}
}

func TestUnknownSource(t *testing.T) {
	svc := newTestService(t, &scriptedCompleter{}, false)
	if _, err := svc.Ask(context.Background(), "nope", "q"); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("expected ErrSourceNotFound, got %v", err)
	}
	if err := svc.SetDefault("nope"); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("expected ErrSourceNotFound, got %v", err)
	}
	if got := svc.Sources(); len(got) != 1 || got[0] != "trials" {
		t.Errorf("Sources = %v", got)
	}
}

func TestDescribe(t *testing.T) {
	svc := newTestService(t, &scriptedCompleter{}, false)
	desc, err := svc.Describe(context.Background(), "")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if !strings.Contains(desc.String(), "TABLE: DEMOGRAPHICS (2 records)") {
		t.Errorf("unexpected description %q", desc.String())
	}
}

func TestGenerateReport(t *testing.T) {
	svc := newTestService(t, &scriptedCompleter{}, true)
	ctx := context.Background()
	doc := report.Document{
		Question: "Find patients over 65",
		Rows:     []model.Row{{"USUBJID": "01-701-1028", "AGE": "71"}},
	}
	art, err := svc.GenerateReport(ctx, report.FormatPDF, doc)
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if !strings.HasPrefix(art.Filename, "report_") || !strings.HasSuffix(art.Filename, ".pdf") {
		t.Errorf("Filename = %q", art.Filename)
	}
	recs, err := svc.Store().ListReports(ctx)
	if err != nil || len(recs) != 1 || recs[0].RowCount != 1 {
		t.Errorf("reports = %+v, %v", recs, err)
	}

	noReports := newTestService(t, &scriptedCompleter{}, false)
	if _, err := noReports.GenerateReport(ctx, report.FormatPDF, doc); !errors.Is(err, ErrReportsDisabled) {
		t.Errorf("expected ErrReportsDisabled, got %v", err)
	}
}

func TestPing(t *testing.T) {
	svc := newTestService(t, &scriptedCompleter{}, false)
	checks := svc.Ping(context.Background())
	if err, ok := checks["trials"]; !ok || err != nil {
		t.Errorf("Ping = %v", checks)
	}
}
