// Package memory provides an in-memory KV backend, used for tests and
// throwaway engines.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/docgrep/docgrep/internal/store"
)

var _ store.KV = (*KV)(nil)

// KV is a map-backed keyed record store guarded by a RWMutex.
type KV struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// New creates an empty in-memory KV.
func New() *KV {
	return &KV{records: make(map[string][]byte)}
}

func (s *KV) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("%q: %w", key, store.ErrNotFound)
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *KV) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	s.records[key] = stored
	return nil
}

func (s *KV) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return fmt.Errorf("%q: %w", key, store.ErrNotFound)
	}
	delete(s.records, key)
	return nil
}

func (s *KV) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	return keys, nil
}
