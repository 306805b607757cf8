package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trialq/trialq/internal/secrets"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the language model API key",
		Long: `Store the API key of the language model provider in the OS keyring
(macOS Keychain, Windows Credential Manager, Secret Service or KWallet on
Linux). A key set in llm.api_key or TRIALQ_LLM_API_KEY takes precedence.`,
	}

	cmd.AddCommand(newKeySetCmd())
	cmd.AddCommand(newKeyDeleteCmd())
	cmd.AddCommand(newKeyStatusCmd())

	return cmd
}

// ---------- key set ----------

func newKeySetCmd() *cobra.Command {
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the API key in the OS keyring",
		Example: `  trialq key set                    # prompted, input hidden
  echo "$OPENAI_API_KEY" | trialq key set --stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := readAPIKey(fromStdin)
			if err != nil {
				return err
			}

			ring, err := secrets.Open()
			if err != nil {
				return err
			}
			if err := ring.SetLLMKey(key); err != nil {
				return fmt.Errorf("store api key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored API key %s in the OS keyring\n", secrets.Mask(key))
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the key from stdin instead of prompting")

	return cmd
}

func readAPIKey(fromStdin bool) (string, error) {
	if fromStdin || !term.IsTerminal(int(os.Stdin.Fd())) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read api key: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Print("API key: ")
	keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read api key: %w", err)
	}
	fmt.Println()
	return strings.TrimSpace(string(keyBytes)), nil
}

// ---------- key delete ----------

func newKeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete",
		Aliases: []string{"rm"},
		Short:   "Remove the API key from the OS keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			ring, err := secrets.Open()
			if err != nil {
				return err
			}
			if err := ring.DeleteLLMKey(); err != nil {
				return fmt.Errorf("delete api key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Removed API key from the OS keyring")
			return nil
		},
	}

	return cmd
}

// ---------- key status ----------

func newKeyStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show where the API key comes from",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAppConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Provider: %s\n", cfg.LLM.Provider)

			if cfg.LLM.APIKey != "" {
				fmt.Fprintf(out, "API key:  %s (config or environment)\n", secrets.Mask(cfg.LLM.APIKey))
				return nil
			}

			ring, err := secrets.Open()
			if err != nil {
				fmt.Fprintf(out, "API key:  not set (keyring unavailable: %v)\n", err)
				return nil
			}
			key, err := ring.LLMKey()
			switch {
			case errors.Is(err, secrets.ErrNotSet):
				fmt.Fprintln(out, "API key:  not set")
			case err != nil:
				return fmt.Errorf("read api key: %w", err)
			default:
				fmt.Fprintf(out, "API key:  %s (OS keyring)\n", secrets.Mask(key))
			}
			return nil
		},
	}

	return cmd
}
