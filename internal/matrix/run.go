package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"framelabel/internal/annotation"
	"framelabel/internal/frames"
	"framelabel/internal/logging"
	"framelabel/internal/metrics"
)

// ErrVerifyMismatch reports stamped matrices that disagree with the
// frame-by-frame reference.
var ErrVerifyMismatch = errors.New("label matrix differs from per-frame labels")

// RunOptions describes one matrix run.
type RunOptions struct {
	FramesRoot      string
	Index           *annotation.Index
	Mapping         *annotation.ClassMapping
	FramesPerSecond float64
	Output          string
	Verify          bool
	Logger          *slog.Logger
	Metrics         *metrics.Ingest
}

// Result is the outcome of Run.
type Result struct {
	Stats
	Frames int
	Ones   int
}

// Run discovers frame counts under FramesRoot, builds one matrix per video
// and writes them all to the array file at Output.
func Run(ctx context.Context, opts RunOptions) (Result, error) {
	logger := logging.WithContext(ctx, logging.NewComponentLogger(opts.Logger, "matrix"))
	if opts.Index == nil || opts.Mapping == nil {
		return Result{}, errors.New("matrix: annotations and class mapping are required")
	}
	if opts.FramesPerSecond <= 0 {
		return Result{}, fmt.Errorf("matrix: frames per second must be positive, got %v", opts.FramesPerSecond)
	}

	listing, err := frames.Discover(opts.FramesRoot)
	if err != nil {
		return Result{}, err
	}
	if len(listing.Frames) == 0 {
		return Result{}, fmt.Errorf("no frames found under %s", opts.FramesRoot)
	}
	if err := listing.CheckContiguous(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	matrices, stats := Build(opts.Index, opts.Mapping, listing.Counts, opts.FramesPerSecond)
	result := Result{Stats: stats, Frames: len(listing.Frames)}
	for _, m := range matrices {
		result.Ones += m.Ones()
	}
	logger.Info("label matrices built",
		logging.Int("videos", stats.Videos),
		logging.Int("intervals", stats.Intervals),
		logging.Int("clipped", stats.Clipped),
	)
	if len(stats.SkippedVideos) > 0 {
		logging.WarnWithContext(logger, "annotated videos have no frames on disk", "matrix_videos_skipped",
			logging.Int("videos", len(stats.SkippedVideos)),
			logging.Int("intervals", stats.SkippedIntervals),
			logging.String("example", stats.SkippedVideos[0]),
			logging.String(logging.FieldErrorHint, "extract frames for these videos or drop their annotations"),
			logging.String(logging.FieldImpact, "no matrix is written for them"),
		)
	}
	for _, category := range stats.Unmapped {
		logging.WarnWithContext(logger, "category missing from class mapping", "unknown_category",
			logging.String(logging.FieldCategory, category),
			logging.String(logging.FieldErrorHint, "add the category to the class mapping file"),
			logging.String(logging.FieldImpact, "intervals of this category are not stamped"),
		)
	}

	if opts.Verify {
		reference := Reference(opts.Index, opts.Mapping, listing.Counts, opts.FramesPerSecond)
		if video := Mismatch(matrices, reference); video != "" {
			return result, fmt.Errorf("%w: video %s", ErrVerifyMismatch, video)
		}
		logger.Info("label matrices match per-frame labels")
	}

	file, err := Create(ctx, opts.Output)
	if err != nil {
		return result, err
	}
	attrs := map[string]string{
		AttrCategories:      strings.Join(opts.Mapping.Names(), "\n"),
		AttrFramesPerSecond: strconv.FormatFloat(opts.FramesPerSecond, 'f', -1, 64),
	}
	if err := file.WriteAll(ctx, matrices, attrs); err != nil {
		_ = file.Close()
		return result, err
	}
	for range matrices {
		opts.Metrics.MatrixWritten()
	}
	if err := file.Close(); err != nil {
		return result, err
	}
	return result, nil
}
