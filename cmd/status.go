package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	pferrors "github.com/otherjamesbrown/meeting-insights/pkg/errors"
	"github.com/otherjamesbrown/meeting-insights/pkg/pipeline"
)

// Status command flags.
var statusOutput string

// StatusReport is the command's output document.
type StatusReport struct {
	MeetingID string        `json:"meeting_id" yaml:"meeting_id"`
	Job       *pipeline.Job `json:"job,omitempty" yaml:"job,omitempty"`
	Stored    bool          `json:"stored" yaml:"stored"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(deps *AppDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultAppDeps()
	}

	cmd := &cobra.Command{
		Use:   "status <meeting-id>",
		Short: "Show processing status for a meeting",
		Long: `Show the processing status for a meeting.

Status is read from the in-process tracker first, then the shared Redis
cache when configured, so a job started by another process is still
visible. A meeting with stored results but no live job is reported as
completed.

Examples:
  insights status standup_call_20260823_103000
  insights status standup_call_20260823_103000 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), deps, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&statusOutput, "output", "o", "", "Output format (text, json, yaml)")
	return cmd
}

func runStatus(ctx context.Context, deps *AppDeps, meetingID string, out io.Writer) error {
	app, format, err := deps.setup(ctx, statusOutput)
	if err != nil {
		return err
	}
	defer app.Close()

	report := &StatusReport{MeetingID: meetingID}

	job, err := app.Tracker.Get(meetingID)
	if err != nil && app.StatusCache != nil {
		job, err = app.StatusCache.GetJob(ctx, meetingID)
	}
	if err == nil {
		report.Job = job
	} else if !errors.Is(err, pferrors.ErrNotFound) {
		return err
	}

	if _, loadErr := app.Store.LoadResult(ctx, meetingID); loadErr == nil {
		report.Stored = true
	}

	if report.Job == nil && !report.Stored {
		return fmt.Errorf("meeting %s: %w", meetingID, pferrors.ErrNotFound)
	}

	return renderOutput(out, format, report, func(w io.Writer) error {
		printStatusReport(w, report)
		return nil
	})
}

func printStatusReport(w io.Writer, report *StatusReport) {
	fmt.Fprintf(w, "Meeting:  %s\n", report.MeetingID)
	if job := report.Job; job != nil {
		fmt.Fprintf(w, "Status:   %s (%.0f%%)\n", job.Status, job.Progress)
		if job.Stage != "" {
			fmt.Fprintf(w, "Stage:    %s\n", job.Stage)
		}
		if job.Error != "" {
			fmt.Fprintf(w, "Error:    %s\n", job.Error)
		}
		fmt.Fprintf(w, "Updated:  %s\n", job.UpdatedAt.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Fprintln(w, "Status:   completed (results stored)")
	}
	if report.Stored {
		fmt.Fprintln(w, "Results:  stored")
	}
}
