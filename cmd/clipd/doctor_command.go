package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"clipd/internal/deps"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and external tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if !ctx.fromFile {
				fmt.Fprintln(out, "Config file did not exist; defaults and environment were used")
			}
			fmt.Fprintf(out, "Staging dir: %s\n", cfg.Paths.StagingDir)
			fmt.Fprintf(out, "Log dir:     %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "Size limit:  %s\n", humanize.Bytes(uint64(cfg.MaxFileSizeBytes())))
			fmt.Fprintln(out)

			statuses := deps.CheckBinaries(deps.Requirements(cfg.Trim.FFmpegBinary))
			rows := make([][]string, 0, len(statuses))
			healthy := true
			for _, status := range statuses {
				state := "ok"
				detail := status.Description
				if !status.Available {
					state = "missing"
					detail = status.Detail
					if !status.Optional {
						healthy = false
					}
				}
				rows = append(rows, []string{status.Name, state, detail})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Tool", "Status", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))

			if !healthy {
				return fmt.Errorf("%w: install the missing tools listed above", deps.ErrMissingTool)
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}
