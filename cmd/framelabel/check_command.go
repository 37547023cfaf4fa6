package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"framelabel/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var targets preflight.Targets

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify that inputs are readable and outputs writable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			targets.LogDir = cfg.Paths.LogDir
			targets.MetricsListen = cfg.Metrics.Listen

			runCtx, stop := ctx.runContext(cmd)
			defer stop()

			results := preflight.RunAll(runCtx, targets)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				if !r.Passed {
					status = "FAIL"
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable("Preflight", []string{"Check", "Status", "Detail"}, rows))
			return preflight.Failed(results)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&targets.FramesRoot, "frames-root", "", "Frames directory to check")
	flags.StringVar(&targets.Annotations, "annotations", "", "Annotations JSON file to check")
	flags.StringVar(&targets.ClassMapping, "class-mapping", "", "Class mapping file to check")
	flags.StringVar(&targets.Output, "output", "", "Output path to check")
	return cmd
}
