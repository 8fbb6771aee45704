package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// MetadataStore persists per-document descriptive metadata keyed by document
// id.
type MetadataStore struct {
	kv KV
}

// NewMetadataStore creates a metadata store over the given backend.
func NewMetadataStore(kv KV) *MetadataStore {
	return &MetadataStore{kv: kv}
}

// Get returns the metadata for id. A missing id yields a zero record with
// just the ID populated rather than an error, so callers probing for
// existence stay simple; use Exists for an explicit check.
func (s *MetadataStore) Get(ctx context.Context, id string) (DocumentMetadata, error) {
	data, err := s.kv.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return DocumentMetadata{ID: id}, nil
	}
	if err != nil {
		return DocumentMetadata{}, err
	}
	var meta DocumentMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return DocumentMetadata{}, fmt.Errorf("decode metadata %q: %w", id, err)
	}
	return meta, nil
}

// Exists reports whether metadata is stored for id.
func (s *MetadataStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.kv.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Put stores meta under its ID, fully replacing any previous record.
func (s *MetadataStore) Put(ctx context.Context, meta DocumentMetadata) error {
	if meta.ID == "" {
		return fmt.Errorf("metadata has empty document id")
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata %q: %w", meta.ID, err)
	}
	return s.kv.Put(ctx, meta.ID, data)
}

// Delete removes the metadata for id. Deleting an absent id is a no-op.
func (s *MetadataStore) Delete(ctx context.Context, id string) error {
	err := s.kv.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// IDs lists every document id with stored metadata, sorted.
func (s *MetadataStore) IDs(ctx context.Context) ([]string, error) {
	ids, err := s.kv.Keys(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}
