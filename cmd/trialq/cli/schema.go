package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the schema description sent to the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setupApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			desc, err := a.svc.Describe(ctx, source)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), desc.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Trial source (default source when empty)")

	return cmd
}

func newStatsCmd() *cobra.Command {
	var (
		source     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print record counts per table",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setupApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.svc.Stats(ctx, source)
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			return writeStats(cmd.OutOrStdout(), stats)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Trial source (default source when empty)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
