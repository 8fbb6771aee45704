package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Key prefixes inside the chunk index namespace. The forward entry maps a
// document id to its ordered chunk keys; reverse entries map each chunk key
// back to its parent document id.
const (
	forwardPrefix = "doc:"
	reversePrefix = "chunk:"
)

// ChunkIndex persists, for each parent document, the ordered list of its
// chunk keys, and supports reverse lookup from any chunk key to its parent.
//
// Removing an entry deletes the forward and reverse records only; callers
// must delete the associated text and embedding records for each chunk key
// first, so child records never outlive their parent pointer.
type ChunkIndex struct {
	kv KV
}

// NewChunkIndex creates a chunk index over the given backend.
func NewChunkIndex(kv KV) *ChunkIndex {
	return &ChunkIndex{kv: kv}
}

// Store writes the ordered chunk key list for documentID, overwriting any
// previous entry, and reconciles the reverse chunk-to-parent records: new
// keys gain one, keys dropped by this version lose theirs.
func (ix *ChunkIndex) Store(ctx context.Context, documentID string, chunkKeys []string) error {
	old, err := ix.Get(ctx, documentID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	data, err := json.Marshal(chunkKeys)
	if err != nil {
		return fmt.Errorf("encode chunk list for %q: %w", documentID, err)
	}
	if err := ix.kv.Put(ctx, forwardPrefix+documentID, data); err != nil {
		return err
	}

	current := make(map[string]bool, len(chunkKeys))
	for _, key := range chunkKeys {
		current[key] = true
		if err := ix.kv.Put(ctx, reversePrefix+key, []byte(documentID)); err != nil {
			return err
		}
	}
	for _, key := range old {
		if current[key] {
			continue
		}
		if err := ix.kv.Delete(ctx, reversePrefix+key); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}

// Get returns the ordered chunk keys for documentID, or ErrNotFound.
func (ix *ChunkIndex) Get(ctx context.Context, documentID string) ([]string, error) {
	data, err := ix.kv.Get(ctx, forwardPrefix+documentID)
	if err != nil {
		return nil, fmt.Errorf("chunk index %q: %w", documentID, err)
	}
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("decode chunk list for %q: %w", documentID, err)
	}
	return keys, nil
}

// Parent resolves the parent document id of chunkKey, or ErrNotFound.
func (ix *ChunkIndex) Parent(ctx context.Context, chunkKey string) (string, error) {
	data, err := ix.kv.Get(ctx, reversePrefix+chunkKey)
	if err != nil {
		return "", fmt.Errorf("parent of chunk %q: %w", chunkKey, err)
	}
	return string(data), nil
}

// Remove deletes the forward entry and reverse records for documentID.
// Removing an absent document is a no-op.
func (ix *ChunkIndex) Remove(ctx context.Context, documentID string) error {
	keys, err := ix.Get(ctx, documentID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := ix.kv.Delete(ctx, reversePrefix+key); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	if err := ix.kv.Delete(ctx, forwardPrefix+documentID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// Documents lists every indexed document id, sorted.
func (ix *ChunkIndex) Documents(ctx context.Context) ([]string, error) {
	keys, err := ix.kv.Keys(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, key := range keys {
		if strings.HasPrefix(key, forwardPrefix) {
			ids = append(ids, strings.TrimPrefix(key, forwardPrefix))
		}
	}
	sort.Strings(ids)
	return ids, nil
}
