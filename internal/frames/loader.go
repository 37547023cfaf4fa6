package frames

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"framelabel/internal/record"
)

var (
	// ErrConfiguration reports invalid loader or decode options.
	ErrConfiguration = errors.New("frame loader configuration")
	// ErrLoaderClosed is returned by Next once every frame has been handed out.
	ErrLoaderClosed = errors.New("frame loader drained")
)

// DefaultQueueSize bounds the decoded-frame queue when no size is given.
const DefaultQueueSize = 10000

// DecodeFunc turns a frame path into an image buffer.
type DecodeFunc func(path string) (record.Image, error)

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	Workers      int
	QueueSize    int
	ResizeHeight int
	ResizeWidth  int
	Filter       string
	ChannelOrder string
	// Decode replaces file decoding. Resize and channel options are ignored
	// when it is set.
	Decode DecodeFunc
}

// Decoded is one loader result. Err is set when the frame could not be read.
type Decoded struct {
	Path  string
	Image record.Image
	Err   error
}

// Loader decodes frames on a worker pool and hands them to a single consumer
// through a bounded queue.
type Loader struct {
	workers int
	decode  DecodeFunc
	queue   chan Decoded

	started   atomic.Bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewLoader validates opts and returns an idle loader.
func NewLoader(opts LoaderOptions) (*Loader, error) {
	if opts.Workers < 0 {
		return nil, fmt.Errorf("%w: workers must not be negative", ErrConfiguration)
	}
	if opts.QueueSize < 0 {
		return nil, fmt.Errorf("%w: queue size must not be negative", ErrConfiguration)
	}
	decodeOpts := DecodeOptions{
		ResizeHeight: opts.ResizeHeight,
		ResizeWidth:  opts.ResizeWidth,
		Filter:       opts.Filter,
		ChannelOrder: opts.ChannelOrder,
	}
	if err := decodeOpts.validate(); err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	size := opts.QueueSize
	if size == 0 {
		size = DefaultQueueSize
	}
	decode := opts.Decode
	if decode == nil {
		decode = func(path string) (record.Image, error) {
			return DecodeFile(path, decodeOpts)
		}
	}
	return &Loader{
		workers: workers,
		decode:  decode,
		queue:   make(chan Decoded, size),
	}, nil
}

// Start launches the worker pool over paths. It may be called once.
func (l *Loader) Start(ctx context.Context, paths []string) error {
	if !l.started.CompareAndSwap(false, true) {
		return errors.New("frame loader already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	var next atomic.Int64
	workers := min(l.workers, max(len(paths), 1))
	l.wg.Add(workers)
	for range workers {
		go func() {
			defer l.wg.Done()
			for {
				i := int(next.Add(1) - 1)
				if i >= len(paths) || ctx.Err() != nil {
					return
				}
				img, err := l.decode(paths[i])
				select {
				case l.queue <- Decoded{Path: paths[i], Image: img, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		l.wg.Wait()
		close(l.queue)
	}()
	return nil
}

// Next blocks until a decoded frame is available. It returns ErrLoaderClosed
// after the last frame and ctx.Err() if ctx ends first.
func (l *Loader) Next(ctx context.Context) (Decoded, error) {
	if !l.started.Load() {
		return Decoded{}, errors.New("frame loader not started")
	}
	select {
	case d, ok := <-l.queue:
		if !ok {
			return Decoded{}, ErrLoaderClosed
		}
		return d, nil
	case <-ctx.Done():
		return Decoded{}, ctx.Err()
	}
}

// Pending reports how many decoded frames are waiting in the queue.
func (l *Loader) Pending() int {
	return len(l.queue)
}

// Capacity reports the queue bound.
func (l *Loader) Capacity() int {
	return cap(l.queue)
}

// Close stops the workers, waits for them to exit and discards any frames
// still queued.
func (l *Loader) Close() {
	l.closeOnce.Do(func() {
		if !l.started.Load() {
			return
		}
		l.cancel()
		l.wg.Wait()
		for range l.queue {
		}
	})
}
