package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/ethpandaops/buildhistory/pkg/jobs"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List configured jobs and validate the job graph",
	RunE:  runJobs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)

	jobsCmd.Flags().Bool("dot", false, "Output the trigger graph in DOT format for graphviz")
}

func runJobs(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	graph := jobs.NewGraph()
	if err := graph.Build(cfg.Jobs); err != nil {
		return fmt.Errorf("invalid jobs: %w", err)
	}

	if dot, _ := cmd.Flags().GetBool("dot"); dot {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), graph.DOT())
		return nil
	}

	printJobs(cmd, graph)

	return nil
}

func printJobs(cmd *cobra.Command, graph *jobs.Graph) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "JOB\tLEVEL\tSCHEDULE\tTIMEOUT\tTRIGGERS\tTRIGGERED BY")

	levels := graph.Levels()
	for _, job := range graph.Jobs() {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
			job.Name,
			levels[job.Name],
			orDash(job.Schedule),
			job.Timeout,
			orDash(strings.Join(graph.Downstream(job.Name), ",")),
			orDash(strings.Join(graph.Upstream(job.Name), ",")))
	}
	_ = w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
