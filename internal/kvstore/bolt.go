package kvstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	bolt "go.etcd.io/bbolt"
)

var (
	framesBucket = []byte("frames")
	metaBucket   = []byte("meta")
	versionKey   = []byte("schema_version")
)

type boltStore struct {
	db      *bolt.DB
	path    string
	lock    *flock.Flock
	mapSize int64
	// used counts key and value bytes of committed records.
	used int64
}

func openBolt(opts Options, lock *flock.Flock) (*boltStore, error) {
	db, err := bolt.Open(opts.Path, 0o644, &bolt.Options{
		Timeout:  time.Second,
		ReadOnly: opts.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	store := &boltStore{db: db, path: opts.Path, lock: lock, mapSize: opts.MapSize}
	if err := store.initSchema(!opts.ReadOnly); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.measure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *boltStore) initSchema(create bool) error {
	check := func(tx *bolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		if meta == nil || tx.Bucket(framesBucket) == nil {
			return fmt.Errorf("%w: %s is not a frame store", ErrSchemaMismatch, s.path)
		}
		raw := meta.Get(versionKey)
		if len(raw) != 8 {
			return fmt.Errorf("%w: missing schema version", ErrSchemaMismatch)
		}
		if version := binary.BigEndian.Uint64(raw); version != schemaVersion {
			return fmt.Errorf("%w: store has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
		}
		return nil
	}
	if !create {
		return s.db.View(check)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(metaBucket) == nil {
			meta, err := tx.CreateBucket(metaBucket)
			if err != nil {
				return fmt.Errorf("create meta bucket: %w", err)
			}
			var raw [8]byte
			binary.BigEndian.PutUint64(raw[:], schemaVersion)
			if err := meta.Put(versionKey, raw[:]); err != nil {
				return fmt.Errorf("record schema version: %w", err)
			}
		}
		if _, err := tx.CreateBucketIfNotExists(framesBucket); err != nil {
			return fmt.Errorf("create frames bucket: %w", err)
		}
		return check(tx)
	})
}

func (s *boltStore) measure() error {
	return s.db.View(func(tx *bolt.Tx) error {
		var used int64
		err := tx.Bucket(framesBucket).ForEach(func(k, v []byte) error {
			used += int64(len(k) + len(v))
			return nil
		})
		s.used = used
		return err
	})
}

func (s *boltStore) Begin(ctx context.Context) (Txn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx, err := s.db.Begin(true)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	return &boltTxn{store: s, tx: tx, bucket: tx.Bucket(framesBucket)}, nil
}

func (s *boltStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var (
		value []byte
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(framesBucket).Get([]byte(key)); v != nil {
			value = append([]byte(nil), v...)
			found = true
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, found, nil
}

var errStopScan = errors.New("stop scan")

func (s *boltStore) Scan(ctx context.Context, limit int, fn func(key string, value []byte) error) error {
	err := s.db.View(func(tx *bolt.Tx) error {
		visited := 0
		c := tx.Bucket(framesBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if limit > 0 && visited >= limit {
				return errStopScan
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(string(k), append([]byte(nil), v...)); err != nil {
				return err
			}
			visited++
		}
		return nil
	})
	if errors.Is(err, errStopScan) {
		return nil
	}
	return err
}

func (s *boltStore) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(framesBucket).Stats().KeyN
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("count frames: %w", err)
	}
	return Stats{Records: count, FileBytes: fileSize(s.path)}, nil
}

func (s *boltStore) Path() string {
	return s.path
}

func (s *boltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if lockErr := releaseLock(s.lock); err == nil {
		err = lockErr
	}
	return err
}

type boltTxn struct {
	store  *boltStore
	tx     *bolt.Tx
	bucket *bolt.Bucket
	delta  int64
	done   bool
}

func (t *boltTxn) Put(key string, value []byte) error {
	if t.done {
		return ErrTxnDone
	}
	k := []byte(key)
	change := int64(len(k) + len(value))
	if old := t.bucket.Get(k); old != nil {
		change -= int64(len(k) + len(old))
	}
	if limit := t.store.mapSize; limit > 0 && t.store.used+t.delta+change > limit {
		return fmt.Errorf("put %s: %w: %d of %d bytes in use", key, ErrMapFull, t.store.used+t.delta, limit)
	}
	if err := t.bucket.Put(k, value); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	t.delta += change
	return nil
}

func (t *boltTxn) Commit() error {
	if t.done {
		return ErrTxnDone
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	t.store.used += t.delta
	return nil
}

func (t *boltTxn) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("rollback batch: %w", err)
	}
	return nil
}
