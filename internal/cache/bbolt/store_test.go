package bbolt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/yinruiqing/granola-lite-sub000/internal/cache"
)

func TestPutAndGetRoundTrip(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	snapshot := cache.Snapshot{
		Status: 200,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   []byte(`{"ok":true}`),
	}
	key := cache.Key("GET", "/api/meetings")
	if err := store.Put(ctx, "granola-dynamic-v1", key, snapshot); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(ctx, "granola-dynamic-v1", key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != 200 {
		t.Fatalf("status = %d, want 200", got.Status)
	}
	if string(got.Body) != `{"ok":true}` {
		t.Fatalf("body = %q, want %q", got.Body, `{"ok":true}`)
	}
	if got.Header["Content-Type"][0] != "application/json" {
		t.Fatalf("content-type = %q, want %q", got.Header["Content-Type"][0], "application/json")
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	store := openTempStore(t)

	_, err := store.Get(context.Background(), "granola-dynamic-v1", "GET /missing")
	if !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, cache.ErrNotFound)
	}
}

func TestKeysFollowInsertionOrder(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		key := cache.Key("GET", fmt.Sprintf("/api/notes/%d", i))
		if err := store.Put(ctx, "granola-dynamic-v1", key, cache.Snapshot{Status: 200}); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
	// Re-reading and overwriting must not refresh position.
	if _, err := store.Get(ctx, "granola-dynamic-v1", cache.Key("GET", "/api/notes/0")); err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := store.Put(ctx, "granola-dynamic-v1", cache.Key("GET", "/api/notes/0"), cache.Snapshot{Status: 304}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	keys, err := store.Keys(ctx, "granola-dynamic-v1")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	want := []string{"GET /api/notes/0", "GET /api/notes/1", "GET /api/notes/2"}
	if len(keys) != len(want) {
		t.Fatalf("keys len = %d, want %d", len(keys), len(want))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestTrimEvictsOldestFirst(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	for i := 0; i < cache.MaxDynamicEntries+1; i++ {
		key := cache.Key("GET", fmt.Sprintf("/api/meetings/%d", i))
		if err := store.Put(ctx, "granola-dynamic-v1", key, cache.Snapshot{Status: 200}); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}

	evicted, err := store.Trim(ctx, "granola-dynamic-v1", cache.MaxDynamicEntries)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if len(evicted) != 1 {
		t.Fatalf("evicted = %d entries, want 1", len(evicted))
	}
	if evicted[0] != "GET /api/meetings/0" {
		t.Fatalf("evicted[0] = %q, want oldest entry", evicted[0])
	}

	keys, err := store.Keys(ctx, "granola-dynamic-v1")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != cache.MaxDynamicEntries {
		t.Fatalf("keys len = %d, want %d", len(keys), cache.MaxDynamicEntries)
	}
	if keys[0] != "GET /api/meetings/1" {
		t.Fatalf("keys[0] = %q, want second-oldest entry", keys[0])
	}
}

func TestTrimUnderLimitIsNoop(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "granola-dynamic-v1", "GET /api/notes", cache.Snapshot{Status: 200}); err != nil {
		t.Fatalf("put: %v", err)
	}
	evicted, err := store.Trim(ctx, "granola-dynamic-v1", cache.MaxDynamicEntries)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if len(evicted) != 0 {
		t.Fatalf("evicted = %v, want none", evicted)
	}
}

func TestDeleteRemovesEntryAndOrder(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "granola-dynamic-v1", "GET /api/a", cache.Snapshot{Status: 200}); err != nil {
		t.Fatalf("put a: %v", err)
	}
	if err := store.Put(ctx, "granola-dynamic-v1", "GET /api/b", cache.Snapshot{Status: 200}); err != nil {
		t.Fatalf("put b: %v", err)
	}
	if err := store.Delete(ctx, "granola-dynamic-v1", "GET /api/a"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := store.Get(ctx, "granola-dynamic-v1", "GET /api/a"); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("get deleted: err = %v, want %v", err, cache.ErrNotFound)
	}
	keys, err := store.Keys(ctx, "granola-dynamic-v1")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "GET /api/b" {
		t.Fatalf("keys = %v, want [GET /api/b]", keys)
	}
}

func TestNamespaceLifecycle(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.EnsureNamespaces(ctx, "granola-static-v1", "granola-dynamic-v1", "granola-cache"); err != nil {
		t.Fatalf("ensure namespaces: %v", err)
	}
	names, err := store.Namespaces(ctx)
	if err != nil {
		t.Fatalf("namespaces: %v", err)
	}
	if len(names) != 3 {
		t.Fatalf("namespaces = %v, want 3 names", names)
	}

	if err := store.DeleteNamespace(ctx, "granola-cache"); err != nil {
		t.Fatalf("delete namespace: %v", err)
	}
	// Deleting an absent namespace is a no-op.
	if err := store.DeleteNamespace(ctx, "granola-cache"); err != nil {
		t.Fatalf("re-delete namespace: %v", err)
	}

	names, err = store.Namespaces(ctx)
	if err != nil {
		t.Fatalf("namespaces after delete: %v", err)
	}
	for _, name := range names {
		if name == "granola-cache" {
			t.Fatalf("legacy namespace survived deletion: %v", names)
		}
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}
