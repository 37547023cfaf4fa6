package matrix

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const (
	fileSchemaVersion = 1
	dtypeUint8        = "uint8"
	// AttrCategories holds the newline-separated class names, column order.
	AttrCategories = "categories"
	// AttrFramesPerSecond holds the frame rate the matrices were built at.
	AttrFramesPerSecond = "frames_per_second"
)

var (
	// ErrNotFound reports a dataset name missing from the file.
	ErrNotFound = errors.New("dataset not found")
	// ErrLocked reports that another process is writing the file.
	ErrLocked = errors.New("array file is locked by another process")
	// ErrNotArrayFile reports a file without the datasets schema.
	ErrNotArrayFile = errors.New("not an array file")
)

// File is an array-file container: one named uint8 dataset per video plus
// string attributes, kept in a single SQLite file.
type File struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Create truncates or creates the file at path and holds a write lock on it
// until Close.
func Create(ctx context.Context, path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create array file directory: %w", err)
	}
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire array file lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			_ = lock.Unlock()
			return nil, fmt.Errorf("truncate array file: %w", err)
		}
	}
	f, err := open(ctx, path, lock, true)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return f, nil
}

// Open opens an existing file for reading.
func Open(ctx context.Context, path string) (*File, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open array file: %w", err)
	}
	return open(ctx, path, nil, false)
}

func open(ctx context.Context, path string, lock *flock.Flock, create bool) (*File, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	f := &File{db: db, path: path, lock: lock}
	if err := f.initSchema(ctx, create); err != nil {
		_ = db.Close()
		return nil, err
	}
	return f, nil
}

func (f *File) initSchema(ctx context.Context, create bool) error {
	if create {
		tx, err := f.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", fileSchemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit schema: %w", err)
		}
		return nil
	}

	var version int
	err := f.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotArrayFile, f.path, err)
	}
	if version != fileSchemaVersion {
		return fmt.Errorf("%w: %s has version %d, expected %d", ErrNotArrayFile, f.path, version, fileSchemaVersion)
	}
	return nil
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Write stores m under name, replacing any previous dataset of that name.
func (f *File) Write(ctx context.Context, name string, m *LabelMatrix) error {
	return f.WriteAll(ctx, map[string]*LabelMatrix{name: m}, nil)
}

// WriteAll stores every matrix and attribute in one transaction.
func (f *File) WriteAll(ctx context.Context, matrices map[string]*LabelMatrix, attrs map[string]string) error {
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO datasets (name, rows, cols, dtype, data) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare dataset insert: %w", err)
	}
	defer stmt.Close()
	for name, m := range matrices {
		if strings.TrimSpace(name) == "" {
			return errors.New("dataset name is empty")
		}
		if err := m.validate(); err != nil {
			return fmt.Errorf("dataset %s: %w", name, err)
		}
		if _, err := stmt.ExecContext(ctx, name, m.Rows, m.Cols, dtypeUint8, m.Data); err != nil {
			return fmt.Errorf("write dataset %s: %w", name, err)
		}
	}
	for key, value := range attrs {
		if _, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO attrs (key, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("write attr %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit write: %w", err)
	}
	return nil
}

// Read loads the dataset stored under name.
func (f *File) Read(ctx context.Context, name string) (*LabelMatrix, error) {
	var (
		m     LabelMatrix
		dtype string
	)
	err := f.db.QueryRowContext(ctx, "SELECT rows, cols, dtype, data FROM datasets WHERE name = ?", name).Scan(&m.Rows, &m.Cols, &dtype, &m.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", name, err)
	}
	if dtype != dtypeUint8 {
		return nil, fmt.Errorf("dataset %s has dtype %q, expected %s", name, dtype, dtypeUint8)
	}
	if m.Data == nil {
		m.Data = []uint8{}
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}
	return &m, nil
}

// Names lists dataset names in sorted order.
func (f *File) Names(ctx context.Context) ([]string, error) {
	rows, err := f.db.QueryContext(ctx, "SELECT name FROM datasets ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan dataset name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Attr returns a string attribute.
func (f *File) Attr(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := f.db.QueryRowContext(ctx, "SELECT value FROM attrs WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read attr %s: %w", key, err)
	}
	return value, true, nil
}

// Close releases the database and the write lock.
func (f *File) Close() error {
	if f == nil || f.db == nil {
		return nil
	}
	err := f.db.Close()
	if f.lock != nil {
		if unlockErr := f.lock.Unlock(); err == nil && unlockErr != nil {
			err = fmt.Errorf("release array file lock: %w", unlockErr)
		}
	}
	return err
}
