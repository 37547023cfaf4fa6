package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"framelabel/internal/frames"
	"framelabel/internal/kvstore"
	"framelabel/internal/labels"
	"framelabel/internal/logging"
	"framelabel/internal/metrics"
	"framelabel/internal/record"
)

// DefaultBatchSize is the number of frames per store transaction.
const DefaultBatchSize = 10000

// Source yields decoded frames. *frames.Loader satisfies it.
type Source interface {
	Next(ctx context.Context) (frames.Decoded, error)
}

// depthReporter is implemented by sources that can report their backlog.
type depthReporter interface {
	Pending() int
}

// ProgressFunc is called after every staged frame with the number of frames
// staged so far and the total.
type ProgressFunc func(done, total int)

// Options configures a Writer.
type Options struct {
	BatchSize int
	Logger    *slog.Logger
	Metrics   *metrics.Ingest
	Progress  ProgressFunc
	// AfterCommit runs after each batch commits with the 1-based batch number.
	// Returning an error stops the run; committed batches stay.
	AfterCommit func(batch int) error
}

// Summary describes a finished or aborted run.
type Summary struct {
	Frames        int
	Batches       int
	Labeled       int
	LabelsWritten int
	RecordBytes   int64
	Unknown       map[string]int
	Unannotated   []string
	Elapsed       time.Duration
}

// Writer persists frame records in batches.
type Writer struct {
	store     kvstore.Store
	resolver  *labels.Resolver
	batchSize int
	logger    *slog.Logger
	metrics   *metrics.Ingest
	progress  ProgressFunc
	after     func(int) error
}

// NewWriter returns a Writer over store. The resolver supplies labels.
func NewWriter(store kvstore.Store, resolver *labels.Resolver, opts Options) (*Writer, error) {
	if store == nil {
		return nil, errors.New("ingest: store is required")
	}
	if resolver == nil {
		return nil, errors.New("ingest: resolver is required")
	}
	if opts.BatchSize < 0 {
		return nil, fmt.Errorf("ingest: batch size must not be negative, got %d", opts.BatchSize)
	}
	size := opts.BatchSize
	if size == 0 {
		size = DefaultBatchSize
	}
	return &Writer{
		store:     store,
		resolver:  resolver,
		batchSize: size,
		logger:    logging.NewComponentLogger(opts.Logger, "ingest"),
		metrics:   opts.Metrics,
		progress:  opts.Progress,
		after:     opts.AfterCommit,
	}, nil
}

// Write drains len(listing) frames from src and stores them. Frames are
// matched to their keys by path, never by arrival order. On error the open
// batch is rolled back; the returned Summary covers committed batches only.
func (w *Writer) Write(ctx context.Context, listing []frames.Frame, src Source) (Summary, error) {
	started := time.Now()
	keys := make(map[string]frames.Key, len(listing))
	for _, f := range listing {
		keys[f.Path] = f.Key
	}
	total := len(listing)
	logger := logging.WithContext(ctx, w.logger)
	seenVideo := make(map[string]bool)

	var summary Summary
	for offset := 0; offset < total; offset += w.batchSize {
		if err := ctx.Err(); err != nil {
			return w.finish(summary, started), err
		}
		n := min(w.batchSize, total-offset)
		batch := summary.Batches + 1
		staged, err := w.writeBatch(ctx, logger, src, keys, n, offset, total, seenVideo)
		if err != nil {
			return w.finish(summary, started), fmt.Errorf("batch %d: %w", batch, err)
		}
		summary.Batches = batch
		summary.Frames += n
		summary.Labeled += staged.labeled
		summary.LabelsWritten += staged.labels
		summary.RecordBytes += staged.bytes
		summary.Unannotated = append(summary.Unannotated, staged.unannotated...)

		logger.Info("batch committed",
			logging.Int(logging.FieldBatch, batch),
			logging.Int("frames", n),
			logging.Int("frames_total", summary.Frames),
		)
		if w.after != nil {
			if err := w.after(batch); err != nil {
				return w.finish(summary, started), err
			}
		}
	}
	return w.finish(summary, started), nil
}

type batchResult struct {
	labeled     int
	labels      int
	bytes       int64
	unannotated []string
}

func (w *Writer) writeBatch(ctx context.Context, logger *slog.Logger, src Source, keys map[string]frames.Key, n, offset, total int, seenVideo map[string]bool) (res batchResult, err error) {
	opened := time.Now()
	txn, err := w.store.Begin(ctx)
	if err != nil {
		return res, err
	}
	defer func() {
		if err != nil {
			if rbErr := txn.Rollback(); rbErr != nil {
				logger.Error("batch rollback failed", logging.Error(rbErr))
			}
		}
	}()

	for i := 0; i < n; i++ {
		decoded, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, frames.ErrLoaderClosed) {
				return res, fmt.Errorf("frame source ended after %d of %d frames", offset+i, total)
			}
			return res, err
		}
		if decoded.Err != nil {
			w.metrics.DecodeFailed()
			return res, fmt.Errorf("decode %s: %w", decoded.Path, decoded.Err)
		}
		key, ok := keys[decoded.Path]
		if !ok {
			return res, fmt.Errorf("decoded frame %s is not in the listing", decoded.Path)
		}

		if !seenVideo[key.VideoID] {
			seenVideo[key.VideoID] = true
			if !w.resolver.HasAnnotations(key.VideoID) {
				res.unannotated = append(res.unannotated, key.VideoID)
				logger.Debug("no annotations for video; frames get empty label sets", logging.String(logging.FieldVideo, key.VideoID))
			}
		}

		rec := record.FrameRecord{
			VideoID:    key.VideoID,
			FrameIndex: key.Index,
			Image:      decoded.Image,
			Labels:     w.resolver.Labels(key.VideoID, key.Index),
		}
		if err := rec.Image.Validate(); err != nil {
			return res, fmt.Errorf("frame %s: %w", key, err)
		}
		data := record.Marshal(rec)
		if err := txn.Put(key.String(), data); err != nil {
			return res, err
		}

		if len(rec.Labels) > 0 {
			res.labeled++
			res.labels += len(rec.Labels)
		}
		res.bytes += int64(len(data))
		w.metrics.FrameWritten(len(data))
		if reporter, ok := src.(depthReporter); ok {
			w.metrics.QueueDepth(reporter.Pending())
		}
		if w.progress != nil {
			w.progress(offset+i+1, total)
		}
	}

	if err := txn.Commit(); err != nil {
		return res, err
	}
	w.metrics.BatchCommitted(time.Since(opened))
	return res, nil
}

func (w *Writer) finish(summary Summary, started time.Time) Summary {
	summary.Elapsed = time.Since(started)
	summary.Unknown = w.resolver.Unknown()
	return summary
}
