package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trialq/trialq/internal/repair"
	"github.com/trialq/trialq/internal/report"
	"github.com/trialq/trialq/internal/service"
)

var (
	titleStyle  = pterm.NewStyle(pterm.FgLightCyan, pterm.Bold)
	promptStyle = pterm.NewStyle(pterm.FgCyan, pterm.Bold)
	sqlStyle    = pterm.NewStyle(pterm.FgLightBlue)
	okStyle     = pterm.NewStyle(pterm.FgGreen, pterm.Bold)
	warnStyle   = pterm.NewStyle(pterm.FgYellow)
	failStyle   = pterm.NewStyle(pterm.FgRed, pterm.Bold)
)

const separatorWidth = 70

func newChatCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask questions interactively",
		Long: `Start an interactive session. Type a question to get an answer, or one of
the commands schema, stats, help, exit and quit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setupApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			s := newChatSession(a.svc, source, cmd.InOrStdin(), cmd.OutOrStdout())
			s.spinner = term.IsTerminal(int(os.Stdout.Fd()))
			return s.run(ctx)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Trial source to query (default source when empty)")

	return cmd
}

// chatSession is one interactive conversation. Questions are answered one
// at a time.
type chatSession struct {
	svc     *service.TrialService
	source  string
	in      *bufio.Reader
	out     io.Writer
	spinner bool
}

func newChatSession(svc *service.TrialService, source string, in io.Reader, out io.Writer) *chatSession {
	return &chatSession{svc: svc, source: source, in: bufio.NewReader(in), out: out}
}

func (s *chatSession) run(ctx context.Context) error {
	s.printWelcome()
	for {
		fmt.Fprint(s.out, promptStyle.Sprint("\n💬 Your question (or \"exit\" to quit): "))
		line, err := s.in.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out, "\n👋 Goodbye!")
				return nil
			}
			return err
		}
		if done := s.handle(ctx, strings.TrimSpace(line)); done {
			fmt.Fprintln(s.out, "\n👋 Goodbye!")
			return nil
		}
	}
}

// handle processes one input line and reports whether the session ended.
func (s *chatSession) handle(ctx context.Context, line string) bool {
	if line == "" {
		return false
	}
	switch strings.ToLower(line) {
	case "exit", "quit":
		return true
	case "help":
		s.printHelp()
	case "schema":
		desc, err := s.svc.Describe(ctx, s.source)
		if err != nil {
			fmt.Fprintln(s.out, failStyle.Sprint("\n❌ Error: "+err.Error()))
			return false
		}
		fmt.Fprintln(s.out, "\n"+desc.String())
	case "stats":
		stats, err := s.svc.Stats(ctx, s.source)
		if err != nil {
			fmt.Fprintln(s.out, failStyle.Sprint("\n❌ Error: "+err.Error()))
			return false
		}
		fmt.Fprintln(s.out, titleStyle.Sprint("\n📊 Database Statistics:\n"))
		writeStats(s.out, stats)
	default:
		s.answer(ctx, line)
	}
	return false
}

func (s *chatSession) answer(ctx context.Context, question string) {
	var spin *pterm.SpinnerPrinter
	if s.spinner {
		spin, _ = pterm.DefaultSpinner.WithWriter(s.out).Start("🤔 Thinking...")
	} else {
		fmt.Fprintln(s.out, "\n🤔 Thinking...")
	}
	ans, err := s.svc.Ask(ctx, s.source, question)
	if spin != nil {
		spin.Stop()
	}

	s.printAttempts(ans)

	var exhausted *repair.ExhaustedError
	switch {
	case errors.As(err, &exhausted):
		fmt.Fprintln(s.out, failStyle.Sprintf("❌ Query failed: %s\n", exhausted.LastError))
		return
	case err != nil:
		fmt.Fprintln(s.out, failStyle.Sprintf("\n❌ Error: %s\n", err))
		return
	}

	res := ans.Result
	fmt.Fprintln(s.out, okStyle.Sprintf("✅ Found %d record(s)\n", res.RowCount))
	if res.RowCount == 0 {
		fmt.Fprintln(s.out, "No matching records found.")
		return
	}

	shown := res.RowCount
	if shown > chatPreviewRows {
		shown = chatPreviewRows
	}
	fmt.Fprintf(s.out, "📊 Showing first %d results:\n\n", shown)
	fmt.Fprintln(s.out, strings.Repeat("─", separatorWidth))
	writeRecords(s.out, res.Columns, res.Rows, chatPreviewRows)
	fmt.Fprintln(s.out, "\n"+strings.Repeat("─", separatorWidth))

	s.offerReport(ctx, question, ans)
}

// printAttempts replays the SQL tried for the question, with the error of
// every failed attempt.
func (s *chatSession) printAttempts(ans repair.Answer) {
	for i, at := range ans.Attempts {
		label := "📝 Generated SQL:"
		if i > 0 {
			label = "📝 Refined SQL:"
		}
		fmt.Fprintf(s.out, "\n%s\n%s\n\n", label, sqlStyle.Sprint(at.SQL))
		if !at.Result.Success {
			fmt.Fprintln(s.out, warnStyle.Sprintf("⚠️  Error: %s", at.Result.Error))
			if i < len(ans.Attempts)-1 {
				fmt.Fprintln(s.out, "🔧 Trying to fix the query...")
			}
		}
	}
}

func (s *chatSession) offerReport(ctx context.Context, question string, ans repair.Answer) {
	fmt.Fprint(s.out, promptStyle.Sprint("\n📄 Generate PDF report? (yes/no): "))
	reply, _ := s.in.ReadString('\n')
	reply = strings.ToLower(strings.TrimSpace(reply))
	if reply != "yes" && reply != "y" {
		return
	}

	art, err := s.svc.GenerateReport(ctx, report.FormatPDF, report.Document{
		Question: question,
		Columns:  ans.Result.Columns,
		Rows:     ans.Result.Rows,
	})
	if err != nil {
		fmt.Fprintln(s.out, failStyle.Sprintf("\n❌ Error: %s", err))
		return
	}
	fmt.Fprintln(s.out, okStyle.Sprintf("\n✅ PDF report saved: %s", art.Location))
}

func (s *chatSession) printWelcome() {
	fmt.Fprintln(s.out, titleStyle.Sprint("🏥 MEDICAL DATA CHATBOT"))
	fmt.Fprintln(s.out, strings.Repeat("=", separatorWidth))
	fmt.Fprintln(s.out, "\nAsk questions about your clinical trial data!")
	fmt.Fprintln(s.out, "\nExamples:")
	fmt.Fprintln(s.out, "  - Find patients over 65")
	fmt.Fprintln(s.out, "  - Show me adverse events for patients over 60")
	fmt.Fprintln(s.out, "  - What medications are in the database?")
	fmt.Fprintln(s.out, "  - Get lab results for patient XYZ")
	fmt.Fprintln(s.out, "\nSpecial commands:")
	fmt.Fprintln(s.out, `  - "schema" - Show database structure`)
	fmt.Fprintln(s.out, `  - "stats" - Show database statistics`)
	fmt.Fprintln(s.out, `  - "help" - Show this help`)
	fmt.Fprintln(s.out, `  - "exit" or "quit" - Exit chatbot`)
	fmt.Fprintln(s.out, "\n"+strings.Repeat("=", separatorWidth))
}

func (s *chatSession) printHelp() {
	fmt.Fprintln(s.out, titleStyle.Sprint("\n📚 Help:\n"))
	fmt.Fprintln(s.out, "Ask any question about the clinical trial data.")
	fmt.Fprintln(s.out, "The chatbot will convert your question to SQL and return results.")
	fmt.Fprintln(s.out, "\nExample queries:")
	fmt.Fprintln(s.out, `  - "Find all patients over 70"`)
	fmt.Fprintln(s.out, `  - "Show serious adverse events"`)
	fmt.Fprintln(s.out, `  - "Get patients with diabetes"`)
}
