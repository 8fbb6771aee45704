// Package store implements the keyed record stores underneath the document
// engine: raw chunk text, vector embeddings with change-detection checksums,
// the chunk-to-parent index, and per-document metadata. Each store is a pure
// keyed repository with no knowledge of the others; the engine owns all
// cross-store sequencing.
package store

import "context"

// KV is a durable keyed byte-record repository. Backends (in-memory, flat
// file, SQLite) implement this; the concrete choice is opaque to the stores
// built on top.
//
// Get and Delete return ErrNotFound when the key is absent, which lets
// callers distinguish orphaned references from clean deletes.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}
