package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/meeting-insights/config"
	pferrors "github.com/otherjamesbrown/meeting-insights/pkg/errors"
	"github.com/otherjamesbrown/meeting-insights/pkg/insights"
	"github.com/otherjamesbrown/meeting-insights/pkg/logging"
	"github.com/otherjamesbrown/meeting-insights/pkg/pipeline"
)

// Process command flags.
var (
	processProject string
	processOutput  string
	processQuiet   bool
)

// ProcessReport is the command's output document.
type ProcessReport struct {
	Job      pipeline.Job            `json:"job" yaml:"job"`
	Insights *insights.InsightBundle `json:"insights,omitempty" yaml:"insights,omitempty"`
	Degraded []string                `json:"degraded_agents,omitempty" yaml:"degraded_agents,omitempty"`
}

// NewProcessCommand creates the process command.
func NewProcessCommand(deps *AppDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultAppDeps()
	}

	cmd := &cobra.Command{
		Use:   "process <audio-file>",
		Short: "Transcribe a meeting recording and generate insights",
		Long: `Process a meeting recording end to end: transcription, insight
generation, result storage, and search indexing.

The command blocks until processing finishes, printing progress as the
pipeline advances. Insight generation degrades gracefully: if an LLM
provider is unreachable, the affected sections fall back to local
heuristics and the job still completes.

Examples:
  # Process a recording
  insights process ./standup.mp3

  # Attach the meeting to a project for scoped search and chat
  insights process ./standup.mp3 --project roadmap-2026

  # Machine-readable output
  insights process ./standup.mp3 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd.Context(), deps, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&processProject, "project", "", "Project id to associate with the meeting")
	cmd.Flags().StringVarP(&processOutput, "output", "o", "", "Output format (text, json, yaml)")
	cmd.Flags().BoolVarP(&processQuiet, "quiet", "q", false, "Suppress progress output")

	return cmd
}

func runProcess(ctx context.Context, deps *AppDeps, audioPath string, out io.Writer) error {
	if _, err := os.Stat(audioPath); err != nil {
		return fmt.Errorf("audio file %s: %w", audioPath, err)
	}

	app, format, err := deps.setup(ctx, processOutput)
	if err != nil {
		return err
	}
	defer app.Close()

	runner, err := app.RequireRunner()
	if err != nil {
		return err
	}

	taken := func(id string) bool {
		if _, err := app.Tracker.Get(id); err == nil {
			return true
		}
		_, err := app.Store.LoadResult(ctx, id)
		return err == nil
	}
	meetingID, jobUUID := pipeline.NewMeetingID(filepath.Base(audioPath), time.Now(), taken)

	handle, err := runner.Process(ctx, meetingID, jobUUID, processProject, audioPath)
	if err != nil {
		if errors.Is(err, pferrors.ErrAlreadyProcessing) {
			return fmt.Errorf("meeting %s is already being processed", meetingID)
		}
		return err
	}

	if !processQuiet && format == config.OutputFormatText {
		fmt.Fprintf(out, "Processing %s as %s\n", audioPath, meetingID)
	}

	runErr := followJob(ctx, app, handle, format, out)

	job, jobErr := app.Tracker.Get(meetingID)
	if jobErr != nil {
		return jobErr
	}
	mirrorJob(ctx, app, job)

	report := &ProcessReport{Job: *job}
	if result := handle.Result(); result != nil && result.Insights != nil {
		report.Insights = result.Insights
		report.Degraded = result.Insights.DegradedAgents()
	}

	if err := renderOutput(out, format, report, func(w io.Writer) error {
		printProcessReport(w, report)
		return nil
	}); err != nil {
		return err
	}
	return runErr
}

// followJob waits for the pipeline, relaying progress for text output and
// mirroring snapshots into the status cache along the way.
func followJob(ctx context.Context, app *App, handle *pipeline.Handle, format config.OutputFormat, out io.Writer) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastStage := ""
	for {
		select {
		case <-handle.Done():
			return handle.Err()
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			job, err := app.Tracker.Get(handle.MeetingID)
			if err != nil {
				continue
			}
			mirrorJob(ctx, app, job)
			if !processQuiet && format == config.OutputFormatText && job.Stage != lastStage {
				fmt.Fprintf(out, "  %5.1f%%  %s\n", job.Progress, job.Stage)
				lastStage = job.Stage
			}
		}
	}
}

// mirrorJob copies a job snapshot into Redis when a status cache is
// configured. Cache failures are logged, never fatal.
func mirrorJob(ctx context.Context, app *App, job *pipeline.Job) {
	if app.StatusCache == nil {
		return
	}
	if err := app.StatusCache.SetJob(ctx, job); err != nil {
		app.Logger.Warn("mirroring job status failed", logging.Err(err))
	}
}

func printProcessReport(w io.Writer, report *ProcessReport) {
	job := report.Job
	fmt.Fprintf(w, "\nMeeting:  %s\n", job.MeetingID)
	fmt.Fprintf(w, "Status:   %s (%.0f%%)\n", job.Status, job.Progress)
	if job.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", job.Error)
	}

	bundle := report.Insights
	if bundle == nil {
		return
	}

	if topics, ok := bundle.Topics.Payload.([]insights.TopicSegment); ok && len(topics) > 0 {
		fmt.Fprintf(w, "\nTopics (%d):\n", len(topics))
		for _, topic := range topics {
			fmt.Fprintf(w, "  [%6.1fs - %6.1fs] %s\n", topic.Start, topic.End, topic.Topic)
		}
	}
	if decisions, ok := bundle.Decisions.Payload.([]insights.Decision); ok && len(decisions) > 0 {
		fmt.Fprintf(w, "\nDecisions (%d):\n", len(decisions))
		for _, d := range decisions {
			fmt.Fprintf(w, "  - %s\n", d.Decision)
		}
	}
	if actions, ok := bundle.ActionItems.Payload.([]insights.ActionItem); ok && len(actions) > 0 {
		fmt.Fprintf(w, "\nAction items (%d):\n", len(actions))
		for _, a := range actions {
			line := a.Action
			if a.Assignee != nil {
				line += " (" + *a.Assignee + ")"
			}
			fmt.Fprintf(w, "  - %s\n", line)
		}
	}
	if sentiment, ok := bundle.Sentiment.Payload.(insights.SentimentReport); ok {
		fmt.Fprintf(w, "\nSentiment: %s\n", sentiment.Overall)
	}
	if summary, ok := bundle.Summary.Payload.(insights.SummaryReport); ok {
		fmt.Fprintf(w, "\nSummary:\n%s\n", summary.Summary)
	}

	if len(report.Degraded) > 0 {
		fmt.Fprintf(w, "\nNote: fallback heuristics used for: %s\n", strings.Join(report.Degraded, ", "))
	}
}
