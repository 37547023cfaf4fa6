package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"framelabel/internal/annotation"
	"framelabel/internal/frames"
	"framelabel/internal/kvstore"
	"framelabel/internal/labels"
	"framelabel/internal/logging"
	"framelabel/internal/metrics"
)

// ErrNoFrames reports a frames root without any frame<N>.png files.
var ErrNoFrames = errors.New("no frames found")

// RunOptions describes one records run.
type RunOptions struct {
	FramesRoot      string
	Index           *annotation.Index
	Mapping         *annotation.ClassMapping
	FramesPerSecond float64
	BatchSize       int
	Store           kvstore.Options
	// Loader configures decoding. QueueSize defaults to the batch size.
	Loader   frames.LoaderOptions
	Logger   *slog.Logger
	Metrics  *metrics.Ingest
	Progress ProgressFunc
	// OnListing runs once frames are discovered, before decoding starts.
	OnListing func(*frames.Listing)
}

// Result is the outcome of Run.
type Result struct {
	Summary
	Videos int
	Store  kvstore.Stats
}

// Run discovers frames under FramesRoot, decodes them in parallel and writes
// labeled records to the configured store.
func Run(ctx context.Context, opts RunOptions) (Result, error) {
	logger := logging.WithContext(ctx, logging.NewComponentLogger(opts.Logger, "records"))
	if opts.Index == nil || opts.Mapping == nil {
		return Result{}, errors.New("records: annotations and class mapping are required")
	}
	if opts.FramesPerSecond <= 0 {
		return Result{}, fmt.Errorf("records: frames per second must be positive, got %v", opts.FramesPerSecond)
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	loaderOpts := opts.Loader
	if loaderOpts.QueueSize == 0 {
		loaderOpts.QueueSize = batchSize
	}
	loader, err := frames.NewLoader(loaderOpts)
	if err != nil {
		return Result{}, err
	}

	listing, err := frames.Discover(opts.FramesRoot)
	if err != nil {
		return Result{}, err
	}
	if len(listing.Frames) == 0 {
		return Result{}, fmt.Errorf("%w under %s", ErrNoFrames, opts.FramesRoot)
	}
	if len(listing.Ignored) > 0 {
		logging.WarnWithContext(logger, "files ignored during frame discovery", "frames_ignored",
			logging.Int("count", len(listing.Ignored)),
			logging.String("example", listing.Ignored[0]),
			logging.String(logging.FieldErrorHint, "frame files must be named frame<N>.png"),
			logging.String(logging.FieldImpact, "ignored files are not written"),
		)
	}
	logger.Info("frames discovered",
		logging.Int("frames", len(listing.Frames)),
		logging.Int("videos", len(listing.Counts)),
	)
	if opts.OnListing != nil {
		opts.OnListing(listing)
	}

	store, err := kvstore.Open(ctx, opts.Store)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Error("close store failed", logging.Error(closeErr))
		}
	}()

	resolver := labels.NewResolver(opts.Index, opts.Mapping, opts.FramesPerSecond)
	writer, err := NewWriter(store, resolver, Options{
		BatchSize: batchSize,
		Logger:    opts.Logger,
		Metrics:   opts.Metrics,
		Progress:  opts.Progress,
	})
	if err != nil {
		return Result{}, err
	}

	if err := loader.Start(ctx, listing.Paths()); err != nil {
		return Result{}, err
	}
	defer loader.Close()

	summary, writeErr := writer.Write(ctx, listing.Frames, loader)
	reportUnknown(logger, opts.Metrics, summary.Unknown)

	result := Result{Summary: summary, Videos: len(listing.Counts)}
	if stats, err := store.Stats(ctx); err == nil {
		result.Store = stats
	}
	return result, writeErr
}

func reportUnknown(logger *slog.Logger, m *metrics.Ingest, unknown map[string]int) {
	if len(unknown) == 0 {
		return
	}
	m.UnknownLabels(unknown)
	categories := make([]string, 0, len(unknown))
	for category := range unknown {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		logging.WarnWithContext(logger, "category missing from class mapping", "unknown_category",
			logging.String(logging.FieldCategory, category),
			logging.Int("frames", unknown[category]),
			logging.String(logging.FieldErrorHint, "add the category to the class mapping file"),
			logging.String(logging.FieldImpact, "label dropped from affected frames"),
		)
	}
}
