package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/ethpandaops/buildhistory/pkg/tasks"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Command flags need to be global for cobra
var (
	triggerCause   string
	triggerTimeout time.Duration
)

// triggerCmd represents the trigger command
//
//nolint:gochecknoglobals // Cobra commands are typically global
var triggerCmd = &cobra.Command{
	Use:   "trigger JOB",
	Short: "Queue a build of a job",
	Long: `Queue a build of a configured job. The build gets the next sequence id
of the job and is picked up by any running worker.

Examples:
  # Queue a build
  buildhistory trigger deploy

  # Queue a build with a cause shown in the history
  buildhistory trigger deploy --cause "Release 1.2"`,
	Args: cobra.ExactArgs(1),
	RunE: runTrigger,
}

func init() {
	rootCmd.AddCommand(triggerCmd)

	triggerCmd.Flags().StringVar(&triggerCause, "cause", "Started by CLI", "Cause recorded as the build description")
	triggerCmd.Flags().DurationVar(&triggerTimeout, "timeout", 10*time.Second, "Timeout for queueing the build")
}

func runTrigger(cmd *cobra.Command, args []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	client, closeFn, err := openClient()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), triggerTimeout)
	defer cancel()

	entry, err := client.Builds.Trigger(ctx, args[0], triggerCause, tasks.TriggerManual)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Queued %s build with sequence %s\n", entry.Job, entry.ID)

	return nil
}
