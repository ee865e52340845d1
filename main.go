// Package main provides the insights CLI entry point.
// insights turns meeting recordings into searchable, queryable knowledge.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/meeting-insights/cmd"
	"github.com/otherjamesbrown/meeting-insights/config"
	"github.com/otherjamesbrown/meeting-insights/pkg/buildinfo"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "insights",
	Short: "Meeting insights - recordings in, structured knowledge out",
	Long: `insights processes meeting recordings into structured, searchable
knowledge: transcripts, topics, decisions, action items, sentiment, and
summaries, all indexed for semantic search and conversational querying.

COMMON WORKFLOWS:
  Process a recording:  insights process ./standup.mp3 --project roadmap
  Check progress:       insights status <meeting-id>
  Find content:         insights search "launch date" --type decision
  Ask questions:        insights chat "what did we decide last week?"
  Inspect the index:    insights stats

CONFIGURATION:
  Settings live in ~/.meeting-insights/config.yaml. LLM providers,
  transcription, and embedding endpoints are configured there; API keys
  come from environment variables or the system keyring (see
  'insights credentials --help').

DISCOVERY:
  insights <command> --help   Subcommands, flags, and examples`,
	SilenceUsage: true,
}

// Version command flags.
var versionOutputJSON bool

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the version, commit hash, and build time of the insights CLI.

Examples:
  insights version
  insights version --output-json`,
	RunE: func(c *cobra.Command, args []string) error {
		info := buildinfo.Get("meeting-insights")
		out := c.OutOrStdout()
		if versionOutputJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}
		fmt.Fprintf(out, "insights version %s\n", info.Version)
		fmt.Fprintf(out, "  commit:     %s\n", info.Commit)
		fmt.Fprintf(out, "  built:      %s\n", info.BuildTime)
		fmt.Fprintf(out, "  go:         %s\n", info.GoVersion)
		return nil
	},
}

// Config command flags.
var configInit bool

// configCmd shows the resolved configuration paths.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration file location",
	Long: `Show the resolved configuration file location.

With --init, create the configuration directory and write a commented
starter config file. An existing file is never overwritten.

Examples:
  insights config
  insights config --init`,
	RunE: func(c *cobra.Command, args []string) error {
		out := c.OutOrStdout()
		if configInit {
			path, created, err := config.InitConfigFile()
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(out, "Created config file: %s\n", path)
			} else {
				fmt.Fprintf(out, "Config file already exists: %s\n", path)
			}
			return nil
		}
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Config file: %s", path)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			fmt.Fprint(out, " (not created yet, run 'insights config --init')")
		}
		fmt.Fprintln(out)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionOutputJSON, "output-json", false, "Output as JSON")
	configCmd.Flags().BoolVar(&configInit, "init", false, "Create a starter config file")

	rootCmd.AddGroup(
		&cobra.Group{ID: "pipeline", Title: "Processing Commands:"},
		&cobra.Group{ID: "query", Title: "Query Commands:"},
		&cobra.Group{ID: "manage", Title: "Management Commands:"},
	)

	processCmd := cmd.NewProcessCommand(nil)
	processCmd.GroupID = "pipeline"
	rootCmd.AddCommand(processCmd)

	statusCmd := cmd.NewStatusCommand(nil)
	statusCmd.GroupID = "pipeline"
	rootCmd.AddCommand(statusCmd)

	searchCmd := cmd.NewSearchCommand(nil)
	searchCmd.GroupID = "query"
	rootCmd.AddCommand(searchCmd)

	chatCmd := cmd.NewChatCommand(nil)
	chatCmd.GroupID = "query"
	rootCmd.AddCommand(chatCmd)

	statsCmd := cmd.NewStatsCommand(nil)
	statsCmd.GroupID = "manage"
	rootCmd.AddCommand(statsCmd)

	deleteCmd := cmd.NewDeleteCommand(nil)
	deleteCmd.GroupID = "manage"
	rootCmd.AddCommand(deleteCmd)

	credentialsCmd := cmd.NewCredentialsCommand(nil)
	credentialsCmd.GroupID = "manage"
	rootCmd.AddCommand(credentialsCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
