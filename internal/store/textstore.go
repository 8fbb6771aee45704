package store

import (
	"context"
	"fmt"
)

// TextStore persists raw chunk text keyed by chunk key.
type TextStore struct {
	kv KV
}

// NewTextStore creates a text store over the given backend.
func NewTextStore(kv KV) *TextStore {
	return &TextStore{kv: kv}
}

// Get returns the text stored under key, or ErrNotFound.
func (s *TextStore) Get(ctx context.Context, key string) (string, error) {
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("text %q: %w", key, err)
	}
	return string(data), nil
}

// Put stores text under key, overwriting any previous value.
func (s *TextStore) Put(ctx context.Context, key, text string) error {
	return s.kv.Put(ctx, key, []byte(text))
}

// Delete removes the text stored under key. Returns ErrNotFound when the key
// is absent so callers can surface orphaned references.
func (s *TextStore) Delete(ctx context.Context, key string) error {
	return s.kv.Delete(ctx, key)
}

// Keys lists every stored chunk key.
func (s *TextStore) Keys(ctx context.Context) ([]string, error) {
	return s.kv.Keys(ctx)
}
