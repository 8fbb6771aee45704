// Package file provides a flat-file KV backend: one file per key inside a
// directory, with keys base64url-encoded into file names so arbitrary chunk
// keys (spaces, slashes, dots) stay filesystem-safe.
package file

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/docgrep/docgrep/internal/store"
)

var _ store.KV = (*KV)(nil)

// KV stores each record as a single file under dir.
type KV struct {
	dir string
}

// New creates (if needed) dir and returns a flat-file KV rooted there.
func New(dir string) (*KV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &KV{dir: dir}, nil
}

func (s *KV) path(key string) string {
	name := base64.RawURLEncoding.EncodeToString([]byte(key))
	return filepath.Join(s.dir, name)
}

func (s *KV) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%q: %w", key, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *KV) Put(_ context.Context, key string, value []byte) error {
	// Write-then-rename keeps a record readable while it is replaced.
	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *KV) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%q: %w", key, store.ErrNotFound)
	}
	return err
}

func (s *KV) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) == ".tmp" {
			continue
		}
		decoded, err := base64.RawURLEncoding.DecodeString(entry.Name())
		if err != nil {
			// Not one of ours; ignore stray files.
			continue
		}
		keys = append(keys, string(decoded))
	}
	return keys, nil
}
