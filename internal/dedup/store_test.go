package dedup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreRegisterAndCheckWithinRun(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "state.json"), 7, true, nil)
	store.Load()

	if store.IsDuplicate("fp-1") {
		t.Fatalf("empty store reported a duplicate")
	}

	store.Register("fp-1", time.Now())
	if !store.IsDuplicate("fp-1") {
		t.Fatalf("fingerprint registered in the same run was not detected")
	}
}

func TestStorePersistAndReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")

	store := NewStore(path, 7, true, nil)
	store.Load()
	store.Register("fp-1", time.Now())
	store.Register("fp-2", time.Now())
	if err := store.Persist(); err != nil {
		t.Fatalf("persist: %v", err)
	}

	reloaded := NewStore(path, 7, true, nil)
	reloaded.Load()

	if !reloaded.IsDuplicate("fp-1") || !reloaded.IsDuplicate("fp-2") {
		t.Fatalf("persisted fingerprints missing after reload")
	}
	if reloaded.Len() != 2 {
		t.Fatalf("expected 2 records after reload, got %d", reloaded.Len())
	}
}

func TestStoreRegisterIsIdempotent(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "state.json"), 7, true, nil)
	store.Load()

	first := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	store.Register("fp-1", first)
	store.Register("fp-1", first.AddDate(0, 0, 5))

	if store.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", store.Len())
	}
	if store.records["fp-1"] != first {
		t.Fatalf("re-registering overwrote first-seen date: %v", store.records["fp-1"])
	}
}

func TestStoreEvictExpired(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "state.json"), 7, true, nil)
	store.Load()

	now := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	store.Register("old", now.AddDate(0, 0, -8))
	store.Register("boundary", now.AddDate(0, 0, -7))
	store.Register("fresh", now.AddDate(0, 0, -1))

	store.EvictExpired(now)

	if store.IsDuplicate("old") {
		t.Fatalf("record older than the lookback window survived eviction")
	}
	if !store.IsDuplicate("boundary") {
		t.Fatalf("record exactly at the cutoff was evicted")
	}
	if !store.IsDuplicate("fresh") {
		t.Fatalf("fresh record was evicted")
	}
}

func TestStoreCorruptStateTreatedAsEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	store := NewStore(path, 7, true, nil)
	store.Load()

	if store.Len() != 0 {
		t.Fatalf("corrupt state produced %d records, want 0", store.Len())
	}
	if _, err := os.Stat(path + ".corrupt"); err != nil {
		t.Fatalf("corrupt file was not moved aside: %v", err)
	}

	store.Register("fp-1", time.Now())
	if err := store.Persist(); err != nil {
		t.Fatalf("persist after corrupt load: %v", err)
	}
}

func TestStoreDisabled(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	store := NewStore(path, 7, false, nil)
	store.Load()

	store.Register("fp-1", time.Now())
	if store.IsDuplicate("fp-1") {
		t.Fatalf("disabled store reported a duplicate")
	}

	if err := store.Persist(); err != nil {
		t.Fatalf("disabled persist errored: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("disabled store wrote a state file")
	}
}
