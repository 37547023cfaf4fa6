package kvstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// GiB is the unit of the configured map size.
const GiB int64 = 1 << 30

var (
	// ErrMapFull reports that a write would push the store past its declared capacity.
	ErrMapFull = errors.New("store capacity exceeded")
	// ErrLocked reports that another process holds the store lock.
	ErrLocked = errors.New("store is locked by another process")
	// ErrTxnDone reports use of a committed or rolled back transaction.
	ErrTxnDone = errors.New("transaction already finished")
	// ErrSchemaMismatch indicates the store was written by an incompatible version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
	// ErrUnknownBackend reports an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown store backend")
)

// Options configures Open.
type Options struct {
	Backend string
	Path    string
	// MapSize is the capacity in bytes. Zero means unbounded.
	MapSize int64
	// ReadOnly opens an existing store without taking the write lock.
	ReadOnly bool
}

// Stats summarizes store contents.
type Stats struct {
	Records   int
	FileBytes int64
}

// Txn stages writes until Commit. A Txn belongs to the goroutine that began it.
type Txn interface {
	Put(key string, value []byte) error
	Commit() error
	Rollback() error
}

// Store is an opened key-value sink.
type Store interface {
	Begin(ctx context.Context) (Txn, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Scan visits records in key order until fn returns an error or limit
	// records have been visited. A limit <= 0 visits every record.
	Scan(ctx context.Context, limit int, fn func(key string, value []byte) error) error
	Stats(ctx context.Context) (Stats, error)
	Path() string
	Close() error
}

// NormalizeBackend lowercases a backend name and defaults it to sqlite.
func NormalizeBackend(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "":
		return BackendSQLite, nil
	case BackendSQLite, BackendBolt:
		return name, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// Open opens or creates the store described by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	backend, err := NormalizeBackend(opts.Backend)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("store path is required")
	}
	if opts.MapSize < 0 {
		return nil, fmt.Errorf("map size must not be negative, got %d", opts.MapSize)
	}
	if opts.ReadOnly {
		if _, err := os.Stat(opts.Path); err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		return openBackend(ctx, backend, opts, nil)
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	lock := flock.New(opts.Path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, opts.Path)
	}
	store, err := openBackend(ctx, backend, opts, lock)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return store, nil
}

func openBackend(ctx context.Context, backend string, opts Options, lock *flock.Flock) (Store, error) {
	switch backend {
	case BackendBolt:
		return openBolt(opts, lock)
	default:
		return openSQLite(ctx, opts, lock)
	}
}

func releaseLock(lock *flock.Flock) error {
	if lock == nil {
		return nil
	}
	if err := lock.Unlock(); err != nil {
		return fmt.Errorf("release store lock: %w", err)
	}
	return nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
