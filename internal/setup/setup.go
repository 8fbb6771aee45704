// Package setup constructs the full document system from configuration: the
// KV backend, the four stores, the embedding generator, the engine and the
// matcher. Both binaries go through Build so they wire identically.
package setup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/docgrep/docgrep/internal/backend/file"
	"github.com/docgrep/docgrep/internal/backend/memory"
	"github.com/docgrep/docgrep/internal/backend/qdrant"
	"github.com/docgrep/docgrep/internal/backend/sqlite"
	"github.com/docgrep/docgrep/internal/binary"
	"github.com/docgrep/docgrep/internal/config"
	"github.com/docgrep/docgrep/internal/embedding"
	"github.com/docgrep/docgrep/internal/engine"
	"github.com/docgrep/docgrep/internal/matcher"
	"github.com/docgrep/docgrep/internal/store"
)

// System bundles the constructed components and their cleanup.
type System struct {
	Engine  *engine.Engine
	Matcher *matcher.Matcher
	Texts   *store.TextStore
	Config  *config.Config

	health  func(ctx context.Context) error
	closers []io.Closer
}

// Close releases backend resources. Safe to call once after use.
func (s *System) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Health checks the storage backend, when it has a liveness probe.
func (s *System) Health(ctx context.Context) error {
	if s.health == nil {
		return nil
	}
	return s.health(ctx)
}

// Build constructs the system from cfg. The OPENAI_API_KEY environment
// variable must be set; the storage backend comes from cfg.Storage.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*System, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sys := &System{Config: cfg}

	textKV, metaKV, indexKV, embedKV, err := openBackend(cfg, sys)
	if err != nil {
		return nil, err
	}

	client, err := embedding.NewClient()
	if err != nil {
		sys.Close()
		return nil, err
	}
	gen := embedding.NewGenerator(client, cfg.Embedder.Model)

	var repo store.VectorRepo
	if q := cfg.Storage.Qdrant; q != nil {
		qr, err := qdrant.New(q.Host, q.Port, q.Collection)
		if err != nil {
			sys.Close()
			return nil, fmt.Errorf("connecting to qdrant at %s:%d: %w", q.Host, q.Port, err)
		}
		sys.closers = append(sys.closers, qr)
		sys.health = qr.Health
		repo = qr
	} else {
		repo = store.NewKVVectorRepo(embedKV)
	}

	texts := store.NewTextStore(textKV)
	meta := store.NewMetadataStore(metaKV)
	index := store.NewChunkIndex(indexKV)
	embeds := store.NewEmbeddingStore(repo, gen, logger)

	eng := engine.New(texts, meta, index, embeds, &engine.Options{
		TokensPerChunk: cfg.Chunking.TokensPerChunk,
		Separator:      cfg.Chunking.LineSeparator,
		Binary:         binary.NewOpenAIAdapter(client.Client()),
		Logger:         logger,
	})
	m := matcher.New(embeds, index, texts, gen, cfg.Matcher.MaxQueryTokens, logger)

	sys.Engine = eng
	sys.Matcher = m
	sys.Texts = texts
	return sys, nil
}

// openBackend creates the four KV namespaces for the configured backend. The
// embedding namespace is only used when no Qdrant backend is configured.
func openBackend(cfg *config.Config, sys *System) (texts, meta, index, embeds store.KV, err error) {
	switch cfg.Storage.Backend {
	case "memory":
		return memory.New(), memory.New(), memory.New(), memory.New(), nil

	case "file":
		dir := cfg.Storage.DataDir
		kvs := make([]store.KV, 0, 4)
		for _, ns := range []string{"texts", "metadata", "index", "embeddings"} {
			kv, err := file.New(filepath.Join(dir, ns))
			if err != nil {
				return nil, nil, nil, nil, fmt.Errorf("opening file backend %s: %w", ns, err)
			}
			kvs = append(kvs, kv)
		}
		return kvs[0], kvs[1], kvs[2], kvs[3], nil

	case "sqlite":
		db, err := sqlite.Open(filepath.Join(cfg.Storage.DataDir, "docgrep.db"))
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("opening sqlite backend: %w", err)
		}
		sys.closers = append(sys.closers, db)
		return db.Namespace("texts"), db.Namespace("metadata"), db.Namespace("index"), db.Namespace("embeddings"), nil

	default:
		return nil, nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
