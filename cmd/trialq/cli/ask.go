package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trialq/trialq/internal/repair"
	"github.com/trialq/trialq/internal/report"
)

func newAskCmd() *cobra.Command {
	var (
		source       string
		format       string
		withReport   bool
		reportFormat string
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question",
		Long: `Translate a question into SQL, run it against a trial source and print the
result. Failed queries are repaired from the database error up to two times.`,
		Example: `  trialq ask "Find patients over 65"
  trialq ask --format json "serious adverse events in the placebo arm"
  trialq ask --report "lab results for patient 01-701-1015"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, source, strings.Join(args, " "), format, withReport, reportFormat)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Trial source to query (default source when empty)")
	cmd.Flags().StringVarP(&format, "format", "f", outputTable, "Output format: table, json or csv")
	cmd.Flags().BoolVar(&withReport, "report", false, "Also save a report of the result")
	cmd.Flags().StringVar(&reportFormat, "report-format", "pdf", "Report format: pdf, csv, json or parquet")

	return cmd
}

func runAsk(cmd *cobra.Command, source, question, format string, withReport bool, reportFormat string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return fmt.Errorf("question is required")
	}
	rf, err := report.ParseFormat(reportFormat)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := setupApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	ans, err := a.svc.Ask(ctx, source, question)
	var exhausted *repair.ExhaustedError
	if errors.As(err, &exhausted) {
		fmt.Fprintf(errOut, "Query failed after %d attempts\n", exhausted.Attempts)
		fmt.Fprintf(errOut, "Last SQL: %s\n", exhausted.LastSQL)
		return fmt.Errorf("query failed: %s", exhausted.LastError)
	}
	if err != nil {
		return err
	}

	if strings.EqualFold(format, outputTable) || format == "" {
		fmt.Fprintf(out, "SQL: %s\n", ans.FinalSQL)
		fmt.Fprintf(out, "Found %d record(s) in %d attempt(s)\n\n", ans.Result.RowCount, ans.AttemptsUsed)
	}
	if err := writeAnswer(out, format, ans); err != nil {
		return err
	}

	if withReport && ans.Result.RowCount > 0 {
		art, err := a.svc.GenerateReport(ctx, rf, report.Document{
			Question: question,
			Columns:  ans.Result.Columns,
			Rows:     ans.Result.Rows,
		})
		if err != nil {
			return fmt.Errorf("generate report: %w", err)
		}
		fmt.Fprintf(errOut, "Report saved: %s\n", art.Location)
	}
	return nil
}
