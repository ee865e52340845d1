package cmd

import (
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/otherjamesbrown/meeting-insights/credentials"
)

// CredentialsCommandDeps holds the dependencies for credential commands.
// Prompting and storage are injectable so tests run without a terminal or a
// system keyring.
type CredentialsCommandDeps struct {
	ReadSecret func() (string, error)
	Store      func(name, secret string) error
	Delete     func(name string) error
}

// DefaultCredentialsDeps returns the production dependencies.
func DefaultCredentialsDeps() *CredentialsCommandDeps {
	return &CredentialsCommandDeps{
		ReadSecret: func() (string, error) {
			data, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return "", fmt.Errorf("reading secret: %w", err)
			}
			return strings.TrimSpace(string(data)), nil
		},
		Store:  credentials.Store,
		Delete: credentials.Delete,
	}
}

// NewCredentialsCommand creates the credentials command group.
func NewCredentialsCommand(deps *CredentialsCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultCredentialsDeps()
	}

	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage API keys in the system keyring",
		Long: `Manage API keys stored in the system keyring (macOS Keychain,
Windows Credential Manager, or Linux Secret Service).

Keys can also come from environment variables, which take precedence:
  transcription        INSIGHTS_TRANSCRIPTION_API_KEY
  embedding            INSIGHTS_EMBEDDING_API_KEY
  provider-<name>      INSIGHTS_PROVIDER_<NAME>_API_KEY

Examples:
  # Store the transcription API key (prompts for the secret)
  insights credentials set transcription

  # Store an LLM provider key
  insights credentials set provider-mistral-local

  # Remove a stored key
  insights credentials delete transcription`,
	}

	cmd.AddCommand(newCredentialsSetCommand(deps))
	cmd.AddCommand(newCredentialsDeleteCommand(deps))
	return cmd
}

func newCredentialsSetCommand(deps *CredentialsCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "set <name>",
		Short: "Store an API key in the system keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCredentialsSet(deps, args[0], cmd.OutOrStdout())
		},
	}
}

func newCredentialsDeleteCommand(deps *CredentialsCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove an API key from the system keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deps.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted credential %q.\n", args[0])
			return nil
		},
	}
}

func runCredentialsSet(deps *CredentialsCommandDeps, name string, out io.Writer) error {
	fmt.Fprintf(out, "Enter secret for %q: ", name)
	secret, err := deps.ReadSecret()
	fmt.Fprintln(out)
	if err != nil {
		return err
	}
	if err := deps.Store(name, secret); err != nil {
		return err
	}
	fmt.Fprintf(out, "Stored credential %q. %s takes precedence if set.\n", name, credentials.EnvVar(name))
	return nil
}
