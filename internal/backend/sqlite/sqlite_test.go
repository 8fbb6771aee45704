package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/docgrep/docgrep/internal/backend/kvtest"
	"github.com/docgrep/docgrep/internal/store"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestKVContract(t *testing.T) {
	kvtest.Run(t, openTestDB(t).Namespace("texts"))
}

func TestNamespaceIsolation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	a := db.Namespace("a")
	b := db.Namespace("b")

	if err := a.Put(ctx, "shared-key", []byte("from a")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := b.Get(ctx, "shared-key"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("namespace b sees namespace a's key: %v", err)
	}

	if err := b.Put(ctx, "shared-key", []byte("from b")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := a.Get(ctx, "shared-key")
	if err != nil || string(got) != "from a" {
		t.Errorf("namespace a value clobbered: %q, %v", got, err)
	}

	keys, err := a.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("namespace a keys: got %v", keys)
	}
}
