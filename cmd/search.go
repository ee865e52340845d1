package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/meeting-insights/pkg/vector"
)

// Search command flags.
var (
	searchTypes    []string
	searchMeetings []string
	searchProject  string
	searchTopK     int
	searchMinScore float64
	searchPage     int
	searchPageSize int
	searchOutput   string
)

// NewSearchCommand creates the search command.
func NewSearchCommand(deps *AppDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultAppDeps()
	}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed meetings by semantic similarity",
		Long: `Search indexed meeting content by semantic similarity.

Every processed meeting is indexed as transcript chunks plus its derived
insights (topics, decisions, action items, summary), each tagged with a
segment type. Results are scored by embedding distance; a score of 1.0
means an exact semantic match.

Examples:
  # Basic search across everything
  insights search "database migration plan"

  # Only decisions and action items
  insights search "launch date" --type decision,action_item

  # Restrict to specific meetings or a project
  insights search "budget" --meeting standup_call_20260823_103000
  insights search "budget" --project roadmap-2026

  # Tune result count and quality floor
  insights search "refactor" --top-k 25 --min-score 0.4

  # Page through a large result set
  insights search "status" --page 2 --page-size 10

  # Machine-readable output
  insights search "open questions" -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), deps, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringSliceVar(&searchTypes, "type", nil, "Filter by segment type (transcript, topic, decision, action_item, summary)")
	cmd.Flags().StringSliceVar(&searchMeetings, "meeting", nil, "Filter by meeting id")
	cmd.Flags().StringVar(&searchProject, "project", "", "Filter by project id")
	cmd.Flags().IntVar(&searchTopK, "top-k", 10, "Number of results per page when --page-size is unset")
	cmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "Minimum similarity score (0-1)")
	cmd.Flags().IntVar(&searchPage, "page", 1, "Result page, 1-based")
	cmd.Flags().IntVar(&searchPageSize, "page-size", 0, "Results per page (defaults to top-k)")
	cmd.Flags().StringVarP(&searchOutput, "output", "o", "", "Output format (text, json, yaml)")

	return cmd
}

func runSearch(ctx context.Context, deps *AppDeps, query string, out io.Writer) error {
	app, format, err := deps.setup(ctx, searchOutput)
	if err != nil {
		return err
	}
	defer app.Close()

	resp, err := app.Index.Search(ctx, vector.Query{
		Query:        query,
		TopK:         searchTopK,
		SegmentTypes: searchTypes,
		MeetingIDs:   searchMeetings,
		ProjectID:    searchProject,
		MinScore:     searchMinScore,
		Page:         searchPage,
		PageSize:     searchPageSize,
	})
	if err != nil {
		return err
	}

	return renderOutput(out, format, resp, func(w io.Writer) error {
		printSearchResults(w, query, resp)
		return nil
	})
}

func printSearchResults(w io.Writer, query string, resp *vector.Response) {
	if resp.TotalCount == 0 {
		fmt.Fprintf(w, "No matches for %q.\n", query)
		return
	}

	fmt.Fprintf(w, "%d match(es) for %q (page %d, %d per page)\n\n",
		resp.TotalCount, query, resp.Page, resp.PageSize)
	for i, r := range resp.Results {
		fmt.Fprintf(w, "%d. [%.3f] %s / %s", i+1, r.Similarity, r.MeetingID, r.SegmentType)
		if r.Timestamp != nil {
			fmt.Fprintf(w, " @ %.1fs", *r.Timestamp)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "   %s\n\n", oneLine(r.Text, 160))
	}
}

// oneLine flattens text to a single line trimmed to max runes.
func oneLine(text string, max int) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= max {
		return flat
	}
	return string(runes[:max]) + "..."
}
