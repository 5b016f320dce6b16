// Package blobtest holds a behavioural suite every blob backend must pass.
package blobtest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"claimledger/internal/blob/core"
)

// Run exercises store against the core.Store contract. The store must start
// empty.
func Run(t *testing.T, store core.Store) {
	t.Helper()
	ctx := context.Background()

	info, err := store.Put(ctx, "snapshots/0001.json", bytes.NewReader([]byte(`{"a":1}`)), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"kind": "snapshot"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "snapshots/0001.json" || info.Size != 7 {
		t.Fatalf("unexpected put info %+v", info)
	}

	_, err = store.Put(ctx, "snapshots/0001.json", bytes.NewReader([]byte("other")), core.PutOptions{})
	if !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists on duplicate put, got %v", err)
	}

	head, err := store.Head(ctx, "snapshots/0001.json")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.ContentType != "application/json" {
		t.Fatalf("expected content type to round trip, got %+v", head)
	}

	got, rc, err := store.Get(ctx, "snapshots/0001.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != `{"a":1}` {
		t.Fatalf("expected original body, got %q", body)
	}
	if got.Key != "snapshots/0001.json" {
		t.Fatalf("unexpected get info %+v", got)
	}

	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}

	for _, key := range []string{"snapshots/0002.json", "events/0001.json"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte("x")), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	list, err := store.List(ctx, "snapshots/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "snapshots/0001.json" || list[1].Key != "snapshots/0002.json" {
		t.Fatalf("unexpected list %+v", list)
	}
	all, err := store.List(ctx, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 blobs, got %d (%v)", len(all), err)
	}

	removed, err := store.Delete(ctx, "snapshots/0001.json")
	if err != nil || !removed {
		t.Fatalf("delete: removed=%v err=%v", removed, err)
	}
	removed, err = store.Delete(ctx, "snapshots/0001.json")
	if err != nil || removed {
		t.Fatalf("second delete: removed=%v err=%v", removed, err)
	}
	if _, err := store.Put(ctx, "snapshots/0001.json", bytes.NewReader([]byte("again")), core.PutOptions{}); err != nil {
		t.Fatalf("put after delete: %v", err)
	}
}
