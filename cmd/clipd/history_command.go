package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"clipd/internal/history"
	"clipd/internal/timespec"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent trim runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			journal, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history journal: %w", err)
			}
			defer journal.Close()

			records, err := journal.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No trim runs recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					fmt.Sprintf("%d", rec.ID),
					rec.FinishedAt.Local().Format(time.DateTime),
					fmt.Sprintf("%d", rec.UserID),
					rec.FileName,
					fmt.Sprintf("%s - %s", timespec.Format(rec.Start), timespec.Format(rec.End)),
					formatOutputSize(rec),
					formatOutcome(rec),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Finished", "User", "File", "Clip", "Size", "Outcome"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))

			summary, err := journal.Summarize(cmd.Context())
			if err != nil {
				return fmt.Errorf("summarize history: %w", err)
			}
			fmt.Fprintf(out, "%d runs: %d completed, %d failed\n", summary.Total, summary.Completed, summary.Failed)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	return cmd
}

func formatOutputSize(rec history.Record) string {
	if rec.OutputBytes <= 0 {
		return "-"
	}
	return humanize.Bytes(uint64(rec.OutputBytes))
}

func formatOutcome(rec history.Record) string {
	if rec.Outcome == history.OutcomeFailed && rec.FailureKind != "" {
		return fmt.Sprintf("failed (%s)", rec.FailureKind)
	}
	return string(rec.Outcome)
}
