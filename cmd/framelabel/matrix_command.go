package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"framelabel/internal/matrix"
	"framelabel/internal/metrics"
	"framelabel/internal/preflight"
)

func newMatrixCommand(ctx *commandContext) *cobra.Command {
	var (
		dataset datasetFlags
		verify  bool
	)

	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Write one dense frame-by-category label matrix per video",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg := *base
			dataset.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			runCtx, stop := ctx.runContext(cmd)
			defer stop()

			if err := preflight.Failed(preflight.RunAll(runCtx, preflight.Targets{
				FramesRoot:   dataset.framesRoot,
				Annotations:  dataset.annotations,
				ClassMapping: dataset.classMapping,
				Output:       dataset.output,
			})); err != nil {
				return err
			}
			idx, mapping, err := dataset.load(cfg.Ingest.FramesPerSecond)
			if err != nil {
				return err
			}

			result, err := matrix.Run(runCtx, matrix.RunOptions{
				FramesRoot:      dataset.framesRoot,
				Index:           idx,
				Mapping:         mapping,
				FramesPerSecond: cfg.Ingest.FramesPerSecond,
				Output:          dataset.output,
				Verify:          verify,
				Logger:          logger,
				Metrics:         metrics.New(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderMatrixSummary(dataset.output, mapping.Len(), verify, result))
			return nil
		},
	}

	dataset.register(cmd)
	cmd.Flags().BoolVar(&verify, "verify", false, "Recompute every frame through the per-frame resolver and fail on any difference")
	return cmd
}

func renderMatrixSummary(output string, categories int, verified bool, result matrix.Result) string {
	rows := [][]string{
		{"Output", output},
		{"Videos", strconv.Itoa(result.Videos)},
		{"Categories", strconv.Itoa(categories)},
		{"Frames", humanize.Comma(int64(result.Frames))},
		{"Intervals stamped", humanize.Comma(int64(result.Intervals))},
		{"Intervals clipped", strconv.Itoa(result.Clipped)},
		{"Labeled cells", humanize.Comma(int64(result.Ones))},
		{"Verified", yesNo(verified)},
	}
	if len(result.SkippedVideos) > 0 {
		rows = append(rows, []string{"Videos without frames", strconv.Itoa(len(result.SkippedVideos))})
	}
	if len(result.Unmapped) > 0 {
		rows = append(rows, []string{"Unmapped categories", strconv.Itoa(len(result.Unmapped))})
	}
	return renderTable("Label matrices", []string{"Field", "Value"}, rows)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
