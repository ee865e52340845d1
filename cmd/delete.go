package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	pferrors "github.com/otherjamesbrown/meeting-insights/pkg/errors"
	"github.com/otherjamesbrown/meeting-insights/pkg/logging"
)

// Delete command flags.
var deleteForce bool

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(deps *AppDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultAppDeps()
	}

	cmd := &cobra.Command{
		Use:   "delete <meeting-id>",
		Short: "Delete a meeting's results and index entries",
		Long: `Delete a meeting: stored results, search index entries, and any
cached status. Prompts for confirmation unless --force is given.

Examples:
  insights delete standup_call_20260823_103000
  insights delete standup_call_20260823_103000 --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd.Context(), deps, args[0], cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip the confirmation prompt")
	return cmd
}

func runDelete(ctx context.Context, deps *AppDeps, meetingID string, in io.Reader, out io.Writer) error {
	app, _, err := deps.setup(ctx, "")
	if err != nil {
		return err
	}
	defer app.Close()

	if !deleteForce {
		fmt.Fprintf(out, "Delete meeting %s and its index entries? [y/N]: ", meetingID)
		reader := bufio.NewReader(in)
		line, _ := reader.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	removedStore := true
	if err := app.Store.DeleteMeeting(ctx, meetingID); err != nil {
		if !errors.Is(err, pferrors.ErrNotFound) {
			return err
		}
		removedStore = false
	}

	removedIndex, err := app.Index.DeleteMeeting(meetingID)
	if err != nil {
		return err
	}

	if app.StatusCache != nil {
		if err := app.StatusCache.DeleteJob(ctx, meetingID); err != nil {
			app.Logger.Warn("removing cached status failed", logging.Err(err))
		}
	}

	if !removedStore && !removedIndex {
		return fmt.Errorf("meeting %s: %w", meetingID, pferrors.ErrNotFound)
	}
	fmt.Fprintf(out, "Deleted %s (results: %v, index: %v)\n", meetingID, removedStore, removedIndex)
	return nil
}
