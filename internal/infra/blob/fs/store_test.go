package fs

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"claimledger/internal/blob/blobtest"
	"claimledger/internal/blob/core"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestFilesystemStoreConformance(t *testing.T) {
	blobtest.Run(t, newTempStore(t))
}

func TestFilesystemStoreLayout(t *testing.T) {
	store := newTempStore(t)
	ctx := context.Background()
	if _, err := store.Put(ctx, "events/0001.json", bytes.NewReader([]byte("[]")), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	data := filepath.Join(store.Root(), "events", "0001.json")
	if _, err := os.Stat(data); err != nil {
		t.Fatalf("expected data file: %v", err)
	}
	if _, err := os.Stat(data + ".meta"); err != nil {
		t.Fatalf("expected sidecar: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(data))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected temp file cleaned up, got %d entries", len(entries))
	}
}

func TestFilesystemStoreRejectsBadKeys(t *testing.T) {
	store := newTempStore(t)
	ctx := context.Background()
	for _, key := range []string{"", "  ", "/abs", "../escape", "a/../../b", "x.meta"} {
		if _, err := store.Put(ctx, key, bytes.NewReader(nil), core.PutOptions{}); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
		if _, err := store.Head(ctx, key); err == nil {
			t.Fatalf("expected head %q to be rejected", key)
		}
		if _, _, err := store.Get(ctx, key); err == nil {
			t.Fatalf("expected get %q to be rejected", key)
		}
		if _, err := store.Delete(ctx, key); err == nil {
			t.Fatalf("expected delete %q to be rejected", key)
		}
	}
}

func TestFilesystemStoreCorruptSidecar(t *testing.T) {
	store := newTempStore(t)
	ctx := context.Background()
	if _, err := store.Put(ctx, "a", bytes.NewReader([]byte("x")), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.Root(), "a.meta"), []byte("{"), 0o600); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	_, err := store.Head(ctx, "a")
	if err == nil || errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if _, err := store.List(ctx, ""); err == nil {
		t.Fatalf("expected list to surface decode error")
	}
}

func TestNewDefaultsRoot(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	dir := t.TempDir()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	store, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if store.Root() != "./blobdata" || store.Driver() != core.DriverFilesystem {
		t.Fatalf("unexpected store %s %s", store.Root(), store.Driver())
	}
	if _, err := os.Stat(filepath.Join(dir, "blobdata")); err != nil {
		t.Fatalf("expected default root created: %v", err)
	}
}

func TestFilesystemStoreSidecarFailureLeavesKeyFree(t *testing.T) {
	store := newTempStore(t)
	ctx := context.Background()
	data := filepath.Join(store.Root(), "snapshots", "1.json")
	// a directory squatting on the sidecar path makes the final rename fail
	if err := os.MkdirAll(data+".meta", 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := store.Put(ctx, "snapshots/1.json", bytes.NewReader([]byte("{}")), core.PutOptions{}); err == nil {
		t.Fatalf("expected sidecar placement failure")
	}
	if _, err := os.Stat(data); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected data file removed after failed put, got %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(data))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the squatting dir left, got %d entries", len(entries))
	}

	if err := os.Remove(data + ".meta"); err != nil {
		t.Fatalf("remove squatter: %v", err)
	}
	info, err := store.Put(ctx, "snapshots/1.json", bytes.NewReader([]byte("{}")), core.PutOptions{})
	if err != nil {
		t.Fatalf("retry put: %v", err)
	}
	if _, err := store.Head(ctx, info.Key); err != nil {
		t.Fatalf("expected retried blob visible: %v", err)
	}
}
