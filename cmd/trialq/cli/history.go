package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past questions",
		Long:  "List, show and clear the questions answered by trialq, with the final SQL and outcome of each.",
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryClearCmd())

	return cmd
}

// ---------- history list ----------

func newHistoryListCmd() *cobra.Command {
	var (
		limit      int
		offset     int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List recent questions, newest first",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openConfigStore()
			if err != nil {
				return fmt.Errorf("open state store: %w", err)
			}
			defer store.Close()

			entries, err := store.ListHistory(cmd.Context(), limit, offset)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No questions recorded yet. Try 'trialq ask'.")
				return nil
			}

			t := table.NewWriter()
			t.AppendHeader(table.Row{"ID", "WHEN", "SOURCE", "OK", "ROWS", "ATTEMPTS", "QUESTION"})
			for _, e := range entries {
				ok := "yes"
				if !e.Success {
					ok = "no"
				}
				t.AppendRow(table.Row{e.ID, e.CreatedAt.Local().Format(time.DateTime), e.Source, ok, e.RowCount, e.Attempts, truncateText(e.Question, 60)})
			}
			t.SetStyle(table.StyleLight)
			t.Style().Options.DrawBorder = false
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 25, "Maximum number of entries")
	cmd.Flags().IntVar(&offset, "offset", 0, "Entries to skip")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// ---------- history show ----------

func newHistoryShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one question with its SQL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid history id %q", args[0])
			}

			store, err := openConfigStore()
			if err != nil {
				return fmt.Errorf("open state store: %w", err)
			}
			defer store.Close()

			e, err := store.GetHistory(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get history %d: %w", id, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:        %d\n", e.ID)
			fmt.Fprintf(out, "When:      %s\n", e.CreatedAt.Local().Format(time.DateTime))
			fmt.Fprintf(out, "Source:    %s\n", e.Source)
			fmt.Fprintf(out, "Question:  %s\n", e.Question)
			fmt.Fprintf(out, "Success:   %t\n", e.Success)
			fmt.Fprintf(out, "Rows:      %d\n", e.RowCount)
			fmt.Fprintf(out, "Attempts:  %d\n", e.Attempts)
			fmt.Fprintf(out, "Duration:  %s\n", time.Duration(e.DurationMs)*time.Millisecond)
			if e.Error != "" {
				fmt.Fprintf(out, "Error:     %s\n", e.Error)
			}
			fmt.Fprintf(out, "\n%s\n", e.FinalSQL)
			return nil
		},
	}

	return cmd
}

// ---------- history clear ----------

func newHistoryClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every history entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openConfigStore()
			if err != nil {
				return fmt.Errorf("open state store: %w", err)
			}
			defer store.Close()

			n, err := store.ClearHistory(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear history: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d history entries\n", n)
			return nil
		},
	}

	return cmd
}

func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
