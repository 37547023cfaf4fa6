package kvstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever the table layout changes.
const schemaVersion = 1

const (
	sqliteBusyCode          = 5
	sqliteFullCode          = 13
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

type sqliteStore struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

func openSQLite(ctx context.Context, opts Options, lock *flock.Flock) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas such as max_page_count are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &sqliteStore{db: db, path: opts.Path, lock: lock}
	if err := store.initSchema(ctx, !opts.ReadOnly); err != nil {
		_ = db.Close()
		return nil, err
	}
	if opts.MapSize > 0 {
		if err := store.limitPages(ctx, opts.MapSize); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return store, nil
}

func (s *sqliteStore) initSchema(ctx context.Context, create bool) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		if !create {
			return fmt.Errorf("%w: %s is not a frame store", ErrSchemaMismatch, s.path)
		}
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: store has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *sqliteStore) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func (s *sqliteStore) limitPages(ctx context.Context, mapSize int64) error {
	var pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return fmt.Errorf("read page size: %w", err)
	}
	pages := max(mapSize/pageSize, 1)
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA max_page_count = %d", pages)); err != nil {
		return fmt.Errorf("apply max_page_count: %w", err)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	return sqliteCode(err, sqliteBusyCode, "SQLITE_BUSY", "database is locked")
}

func isSQLiteFull(err error) bool {
	return sqliteCode(err, sqliteFullCode, "SQLITE_FULL", "database or disk is full")
}

func sqliteCode(err error, code int, markers ...string) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == code {
		return true
	}
	msg := err.Error()
	for _, marker := range markers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func wrapFull(err error) error {
	if isSQLiteFull(err) {
		return fmt.Errorf("%w: %v", ErrMapFull, err)
	}
	return err
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *sqliteStore) Begin(ctx context.Context) (Txn, error) {
	var tx *sql.Tx
	if err := retryOnBusy(ctx, func() error {
		var beginErr error
		tx, beginErr = s.db.BeginTx(ctx, nil)
		return beginErr
	}); err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO frames (key, value) VALUES (?, ?)")
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("prepare put: %w", err)
	}
	return &sqliteTxn{ctx: ctx, tx: tx, put: stmt}, nil
}

func (s *sqliteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM frames WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *sqliteStore) Scan(ctx context.Context, limit int, fn func(key string, value []byte) error) error {
	query := "SELECT key, value FROM frames ORDER BY key"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("scan frames: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scan frame row: %w", err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *sqliteStore) Stats(ctx context.Context) (Stats, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM frames").Scan(&count); err != nil {
		return Stats{}, fmt.Errorf("count frames: %w", err)
	}
	return Stats{Records: count, FileBytes: fileSize(s.path) + fileSize(s.path+"-wal")}, nil
}

func (s *sqliteStore) Path() string {
	return s.path
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if lockErr := releaseLock(s.lock); err == nil {
		err = lockErr
	}
	return err
}

type sqliteTxn struct {
	ctx  context.Context
	tx   *sql.Tx
	put  *sql.Stmt
	done bool
}

func (t *sqliteTxn) Put(key string, value []byte) error {
	if t.done {
		return ErrTxnDone
	}
	if _, err := t.put.ExecContext(t.ctx, key, value); err != nil {
		return fmt.Errorf("put %s: %w", key, wrapFull(err))
	}
	return nil
}

func (t *sqliteTxn) Commit() error {
	if t.done {
		return ErrTxnDone
	}
	t.done = true
	_ = t.put.Close()
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", wrapFull(err))
	}
	return nil
}

func (t *sqliteTxn) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	_ = t.put.Close()
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback batch: %w", err)
	}
	return nil
}
