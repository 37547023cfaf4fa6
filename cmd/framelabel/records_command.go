package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"framelabel/internal/frames"
	"framelabel/internal/ingest"
	"framelabel/internal/kvstore"
	"framelabel/internal/logging"
	"framelabel/internal/metrics"
	"framelabel/internal/preflight"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	var (
		dataset       datasetFlags
		resizeHeight  int
		resizeWidth   int
		workers       int
		batchSize     int
		backend       string
		metricsListen string
	)

	cmd := &cobra.Command{
		Use:   "records",
		Short: "Write one labeled record per frame into a key-value store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg := *base
			dataset.apply(cmd, &cfg)
			flags := cmd.Flags()
			if flags.Changed("resize-height") {
				cfg.Ingest.ResizeHeight = resizeHeight
			}
			if flags.Changed("resize-width") {
				cfg.Ingest.ResizeWidth = resizeWidth
			}
			if flags.Changed("workers") {
				cfg.Ingest.Workers = workers
			}
			if flags.Changed("batch-size") {
				cfg.Ingest.BatchSize = batchSize
			}
			if flags.Changed("backend") {
				cfg.Output.Backend = strings.ToLower(strings.TrimSpace(backend))
			}
			if flags.Changed("metrics-listen") {
				cfg.Metrics.Listen = strings.TrimSpace(metricsListen)
			}
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

			m := metrics.New()
			if cfg.Metrics.Listen != "" {
				if _, err := metrics.Serve(runCtx, cfg.Metrics.Listen, m, logger); err != nil {
					return fmt.Errorf("start metrics endpoint: %w", err)
				}
			}

			progress := newProgressReporter(cmd.ErrOrStderr(), logging.WithContext(runCtx, logger), "records")
			result, err := ingest.Run(runCtx, ingest.RunOptions{
				FramesRoot:      dataset.framesRoot,
				Index:           idx,
				Mapping:         mapping,
				FramesPerSecond: cfg.Ingest.FramesPerSecond,
				BatchSize:       cfg.Ingest.BatchSize,
				Store: kvstore.Options{
					Backend: cfg.Output.Backend,
					Path:    dataset.output,
					MapSize: cfg.MapSizeBytes(),
				},
				Loader: frames.LoaderOptions{
					Workers:      cfg.Ingest.Workers,
					ResizeHeight: cfg.Ingest.ResizeHeight,
					ResizeWidth:  cfg.Ingest.ResizeWidth,
					Filter:       cfg.Ingest.ResizeFilter,
					ChannelOrder: cfg.Ingest.ChannelOrder,
				},
				Logger:   logger,
				Metrics:  m,
				Progress: progress.update,
			})
			progress.finish()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRecordsSummary(dataset.output, cfg.Output.Backend, result))
			return nil
		},
	}

	dataset.register(cmd)
	flags := cmd.Flags()
	flags.IntVar(&resizeHeight, "resize-height", 0, "Resize frames to this height (requires --resize-width)")
	flags.IntVar(&resizeWidth, "resize-width", 0, "Resize frames to this width (requires --resize-height)")
	flags.IntVar(&workers, "workers", 0, "Decode workers (0 = one per CPU)")
	flags.IntVar(&batchSize, "batch-size", 0, "Frames per committed transaction (default ingest.batch_size)")
	flags.StringVar(&backend, "backend", "", "Store backend: sqlite or bolt (default output.backend)")
	flags.StringVar(&metricsListen, "metrics-listen", "", "Serve Prometheus metrics on this address during the run")
	return cmd
}

func renderRecordsSummary(output, backend string, result ingest.Result) string {
	rows := [][]string{
		{"Output", fmt.Sprintf("%s (%s)", output, backend)},
		{"Videos", strconv.Itoa(result.Videos)},
		{"Frames", humanize.Comma(int64(result.Frames))},
		{"Batches", strconv.Itoa(result.Batches)},
		{"Labeled frames", humanize.Comma(int64(result.Labeled))},
		{"Labels written", humanize.Comma(int64(result.LabelsWritten))},
		{"Record bytes", humanize.Bytes(uint64(result.RecordBytes))},
		{"Store size", humanize.Bytes(uint64(result.Store.FileBytes))},
		{"Elapsed", result.Elapsed.Round(10 * time.Millisecond).String()},
	}
	if len(result.Unannotated) > 0 {
		rows = append(rows, []string{"Unannotated videos", strconv.Itoa(len(result.Unannotated))})
	}
	if len(result.Unknown) > 0 {
		dropped := 0
		for _, n := range result.Unknown {
			dropped += n
		}
		rows = append(rows, []string{"Unknown labels dropped", fmt.Sprintf("%d across %d categories", dropped, len(result.Unknown))})
	}
	return renderTable("Records", []string{"Field", "Value"}, rows)
}
