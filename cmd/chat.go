package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/meeting-insights/pkg/rag"
)

// Chat command flags.
var (
	chatProject string
	chatContext string
	chatOutput  string
	chatSources bool
)

// NewChatCommand creates the chat command.
func NewChatCommand(deps *AppDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultAppDeps()
	}

	cmd := &cobra.Command{
		Use:   "chat <question>",
		Short: "Ask a question about your meetings",
		Long: `Ask a natural-language question grounded in your indexed meetings.

The question is answered by an LLM with relevant meeting content
retrieved from the search index and injected as context. When nothing
relevant is indexed, the model answers from general knowledge and the
response is marked as not using meeting data.

Examples:
  # Ask across all meetings
  insights chat "what did we decide about the rollout?"

  # Scope retrieval to one project
  insights chat "who owns the migration tasks?" --project roadmap-2026

  # Show the sources behind the answer
  insights chat "what were the main concerns?" --sources

  # Machine-readable output
  insights chat "summarize last week" -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), deps, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&chatProject, "project", "", "Project id to scope retrieval")
	cmd.Flags().StringVar(&chatContext, "context", "", "Extra context about what you are looking at")
	cmd.Flags().BoolVar(&chatSources, "sources", false, "Show the meeting sources behind the answer")
	cmd.Flags().StringVarP(&chatOutput, "output", "o", "", "Output format (text, json, yaml)")

	return cmd
}

func runChat(ctx context.Context, deps *AppDeps, message string, out io.Writer) error {
	app, format, err := deps.setup(ctx, chatOutput)
	if err != nil {
		return err
	}
	defer app.Close()

	composer, err := app.RequireComposer()
	if err != nil {
		return err
	}

	answer, err := composer.Ask(ctx, rag.Request{
		Message:   message,
		UIContext: chatContext,
		ProjectID: chatProject,
	})
	if err != nil {
		return err
	}

	return renderOutput(out, format, answer, func(w io.Writer) error {
		fmt.Fprintln(w, answer.Response)
		if !answer.UsedRAG {
			fmt.Fprintln(w, "\n(answered without meeting context)")
		}
		if chatSources && len(answer.Sources) > 0 {
			fmt.Fprintln(w, "\nSources:")
			for _, src := range answer.Sources {
				fmt.Fprintf(w, "  [%.3f] %s / %s: %s\n",
					src.Similarity, src.MeetingID, src.SegmentType, oneLine(src.Text, 120))
			}
		}
		return nil
	})
}
