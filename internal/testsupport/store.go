package testsupport

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"framelabel/internal/kvstore"
	"framelabel/internal/record"
)

// MustOpenStore opens a kvstore backend in a temp dir and registers cleanup.
func MustOpenStore(t testing.TB, backend string) kvstore.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "frames."+backend)
	store, err := kvstore.Open(context.Background(), kvstore.Options{Backend: backend, Path: path})
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// StoredRecords decodes every record in store, keyed by store key.
func StoredRecords(t testing.TB, store kvstore.Store) map[string]record.FrameRecord {
	t.Helper()

	out := make(map[string]record.FrameRecord)
	err := store.Scan(context.Background(), 0, func(key string, value []byte) error {
		rec, err := record.Unmarshal(value)
		if err != nil {
			return err
		}
		out[key] = rec
		return nil
	})
	if err != nil {
		t.Fatalf("scan store: %v", err)
	}
	return out
}

// StoredKeys lists the keys in store in sorted order.
func StoredKeys(t testing.TB, store kvstore.Store) []string {
	t.Helper()

	records := StoredRecords(t, store)
	keys := make([]string, 0, len(records))
	for key := range records {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
