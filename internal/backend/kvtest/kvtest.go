// Package kvtest runs the KV contract against any backend implementation.
package kvtest

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/docgrep/docgrep/internal/store"
)

// Run exercises the behavior every KV backend must provide: round trips,
// overwrites, ErrNotFound on missing keys, and key enumeration with the
// awkward characters chunk keys contain.
func Run(t *testing.T, kv store.KV) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		if _, err := kv.Get(ctx, "absent"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Get(absent): got %v, want ErrNotFound", err)
		}
	})

	t.Run("delete missing", func(t *testing.T) {
		if err := kv.Delete(ctx, "absent"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Delete(absent): got %v, want ErrNotFound", err)
		}
	})

	t.Run("round trip and overwrite", func(t *testing.T) {
		if err := kv.Put(ctx, "k", []byte("first")); err != nil {
			t.Fatalf("put: %v", err)
		}
		if err := kv.Put(ctx, "k", []byte("second")); err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		got, err := kv.Get(ctx, "k")
		if err != nil || string(got) != "second" {
			t.Errorf("get after overwrite: %q, %v", got, err)
		}
		if err := kv.Delete(ctx, "k"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := kv.Get(ctx, "k"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("get after delete: got %v, want ErrNotFound", err)
		}
	})

	t.Run("awkward keys", func(t *testing.T) {
		keys := []string{
			"notes chunk 0",
			"dir/sub/file.metadata",
			"plain",
		}
		for _, key := range keys {
			if err := kv.Put(ctx, key, []byte("v:"+key)); err != nil {
				t.Fatalf("put %q: %v", key, err)
			}
		}
		listed, err := kv.Keys(ctx)
		if err != nil {
			t.Fatalf("keys: %v", err)
		}
		sort.Strings(listed)
		sort.Strings(keys)
		if len(listed) != len(keys) {
			t.Fatalf("keys: got %v, want %v", listed, keys)
		}
		for i := range keys {
			if listed[i] != keys[i] {
				t.Errorf("keys[%d]: got %q, want %q", i, listed[i], keys[i])
			}
		}
		for _, key := range keys {
			got, err := kv.Get(ctx, key)
			if err != nil || string(got) != "v:"+key {
				t.Errorf("get %q: %q, %v", key, got, err)
			}
			if err := kv.Delete(ctx, key); err != nil {
				t.Errorf("delete %q: %v", key, err)
			}
		}
	})
}
