package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/meeting-insights/pkg/db"
	"github.com/otherjamesbrown/meeting-insights/pkg/vector"
)

// Stats command flags.
var statsOutput string

// StatsReport is the command's output document.
type StatsReport struct {
	Index      vector.Stats    `json:"index" yaml:"index"`
	Meetings   []string        `json:"stored_meetings" yaml:"stored_meetings"`
	ActiveJobs map[string]int  `json:"active_jobs,omitempty" yaml:"active_jobs,omitempty"`
	Database   *DatabaseHealth `json:"database,omitempty" yaml:"database,omitempty"`
}

// DatabaseHealth reports the Postgres connection state when the results
// store is database-backed.
type DatabaseHealth struct {
	Healthy       bool    `json:"healthy" yaml:"healthy"`
	PingMS        float64 `json:"ping_ms" yaml:"ping_ms"`
	TotalConns    int32   `json:"total_conns" yaml:"total_conns"`
	IdleConns     int32   `json:"idle_conns" yaml:"idle_conns"`
	AcquiredConns int32   `json:"acquired_conns" yaml:"acquired_conns"`
	Error         string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(deps *AppDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultAppDeps()
	}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index and storage statistics",
		Long: `Show search index and result storage statistics: vector counts by
meeting, segment type, and project, plus the stored meeting list.

Examples:
  insights stats
  insights stats -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context(), deps, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&statsOutput, "output", "o", "", "Output format (text, json, yaml)")
	return cmd
}

func runStats(ctx context.Context, deps *AppDeps, out io.Writer) error {
	app, format, err := deps.setup(ctx, statsOutput)
	if err != nil {
		return err
	}
	defer app.Close()

	meetings, err := app.Store.ListMeetings(ctx)
	if err != nil {
		return err
	}
	sort.Strings(meetings)

	report := &StatsReport{
		Index:      app.Index.Stats(),
		Meetings:   meetings,
		ActiveJobs: app.Tracker.CountByStatus(),
	}

	if app.pool != nil {
		health := db.Check(ctx, app.pool)
		report.Database = &DatabaseHealth{
			Healthy:       health.Healthy,
			PingMS:        float64(health.Latency.Microseconds()) / 1000,
			TotalConns:    health.TotalConns,
			IdleConns:     health.IdleConns,
			AcquiredConns: health.AcquiredConns,
		}
		if health.Error != nil {
			report.Database.Error = health.Error.Error()
		}
	}

	return renderOutput(out, format, report, func(w io.Writer) error {
		printStatsReport(w, report)
		return nil
	})
}

func printStatsReport(w io.Writer, report *StatsReport) {
	idx := report.Index
	fmt.Fprintf(w, "Vectors:    %d (dim %d)\n", idx.TotalVectors, idx.EmbeddingDimension)
	fmt.Fprintf(w, "Meetings:   %d indexed, %d stored\n", len(idx.Meetings), len(report.Meetings))
	if dbh := report.Database; dbh != nil {
		if dbh.Healthy {
			fmt.Fprintf(w, "Database:   healthy (ping %.1fms, conns %d total / %d idle / %d acquired)\n",
				dbh.PingMS, dbh.TotalConns, dbh.IdleConns, dbh.AcquiredConns)
		} else {
			fmt.Fprintf(w, "Database:   unhealthy (%s)\n", dbh.Error)
		}
	}

	if len(idx.SegmentTypes) > 0 {
		fmt.Fprintln(w, "\nBy segment type:")
		for _, name := range sortedKeys(idx.SegmentTypes) {
			fmt.Fprintf(w, "  %-12s %d\n", name, idx.SegmentTypes[name])
		}
	}
	if len(idx.Projects) > 0 {
		fmt.Fprintln(w, "\nBy project:")
		for _, name := range sortedKeys(idx.Projects) {
			fmt.Fprintf(w, "  %-12s %d\n", name, idx.Projects[name])
		}
	}
	if len(report.Meetings) > 0 {
		fmt.Fprintln(w, "\nStored meetings:")
		for _, id := range report.Meetings {
			fmt.Fprintf(w, "  %s\n", id)
		}
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
