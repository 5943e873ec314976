package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ethpandaops/buildhistory/pkg/builds"
	"github.com/ethpandaops/buildhistory/pkg/history"
	"github.com/ethpandaops/buildhistory/pkg/search"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Command flags need to be global for cobra
var (
	historyNewerThan int64
	historyOlderThan int64
	historySearch    string
	historyLimit     int
)

// historyCmd represents the history command
//
//nolint:gochecknoglobals // Cobra commands are typically global
var historyCmd = &cobra.Command{
	Use:   "history JOB",
	Short: "Show a page of build history",
	Long: `Show one page of the build history of a job, newest first. Queued builds
are listed before execution records.

Examples:
  # Latest page
  buildhistory history deploy

  # Page back using the oldest sequence of the previous page
  buildhistory history deploy --older-than 41

  # Failed builds only
  buildhistory history deploy --search "result: failure"`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Int64Var(&historyNewerThan, "newer-than", 0, "Show the page of builds newer than this sequence id")
	historyCmd.Flags().Int64Var(&historyOlderThan, "older-than", 0, "Show the page of builds older than this sequence id")
	historyCmd.Flags().StringVar(&historySearch, "search", "", "Search terms ("+searchTermsHelp()+")")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Entries per page (default from config)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	client, closeFn, err := openClient()
	if err != nil {
		return err
	}
	defer closeFn()

	query := builds.Query{
		Search: historySearch,
		Limit:  historyLimit,
	}

	if cmd.Flags().Changed("newer-than") {
		id := history.SequenceID(historyNewerThan)
		query.NewerThan = &id
	}

	if cmd.Flags().Changed("older-than") {
		id := history.SequenceID(historyOlderThan)
		query.OlderThan = &id
	}

	page, err := client.Builds.History(context.Background(), args[0], query)
	if err != nil {
		return err
	}

	printPage(cmd.OutOrStdout(), page)

	return nil
}

func printPage(out io.Writer, page *history.Page) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SEQ\tBUILD\tSTATUS\tSTARTED\tDURATION\tDESCRIPTION")

	for _, entry := range page.Queued {
		_, _ = fmt.Fprintf(w, "%s\t-\tqueued\t%s\t-\t%s\n",
			entry.ID, entry.EnqueuedAt.Local().Format("2006-01-02 15:04:05"), entry.Cause)
	}

	for _, entry := range page.Completed {
		status, duration := "running", "-"
		if !entry.Running() {
			status = string(*entry.Result)
			duration = entry.Duration.String()
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			entry.ID, entry.DisplayName, status,
			entry.StartedAt.Local().Format("2006-01-02 15:04:05"), duration, entry.Description)
	}
	_ = w.Flush()

	if page.Empty() {
		_, _ = fmt.Fprintln(out, "No builds")
		return
	}

	if page.HasNewerPage {
		_, _ = fmt.Fprintf(out, "Newer: --newer-than %d\n", int64(page.NewestShown))
	}

	if page.HasOlderPage {
		_, _ = fmt.Fprintf(out, "Older: --older-than %d\n", int64(page.OldestShown))
	}
}

func searchTermsHelp() string {
	terms := search.KnownTerms()
	for i, term := range terms {
		terms[i] = term + ":"
	}

	return strings.Join(terms, ", ")
}
