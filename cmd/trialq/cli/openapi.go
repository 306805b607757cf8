package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/trialq/trialq/internal/openapi"
)

func newOpenAPICmd() *cobra.Command {
	var (
		baseURL    string
		format     string
		outputFile string
		sources    []string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI specification of the REST API",
		Long:  "Generate an OpenAPI 3.1 document describing the trialq REST API served by 'trialq serve'.",
		Example: `  trialq openapi                         # JSON to stdout
  trialq openapi --format yaml -o api.yaml
  trialq openapi --base-url https://trials.example.com --source trials --source study42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := openapi.Generate(openapi.Options{
				BaseURL: baseURL,
				Version: versionString(),
				Sources: sources,
			})

			var (
				data []byte
				err  error
			)
			switch strings.ToLower(format) {
			case "json":
				data, err = json.MarshalIndent(doc, "", "  ")
			case "yaml", "yml":
				// Round-trip through JSON so the yaml keys follow the json tags.
				var raw []byte
				raw, err = json.Marshal(doc)
				if err == nil {
					var generic interface{}
					if err = yaml.Unmarshal(raw, &generic); err == nil {
						data, err = yaml.Marshal(generic)
					}
				}
			default:
				return fmt.Errorf("unsupported format %q; use json or yaml", format)
			}
			if err != nil {
				return fmt.Errorf("encode spec: %w", err)
			}

			if outputFile != "" {
				if err := os.WriteFile(outputFile, data, 0644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", outputFile)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:3000", "Server URL written into the spec")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write spec to file instead of stdout")
	cmd.Flags().StringSliceVar(&sources, "source", nil, "Source names to enumerate in request schemas")

	return cmd
}
