// Package engine orchestrates the chunk, text, embedding and index stores to
// implement the document lifecycle: store, retrieve, move, delete, list, and
// bulk re-embedding. There is no cross-store transaction; every multi-step
// operation is an explicit ordered sequence, and the chunk index is always
// written last so a cancelled store never leaves the index pointing at
// records that were never written.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docgrep/docgrep/internal/binary"
	"github.com/docgrep/docgrep/internal/chunker"
	"github.com/docgrep/docgrep/internal/store"
)

// DefaultMimeType is assumed when the caller supplies none.
const DefaultMimeType = "text/plain"

// Engine owns all write access to the four stores.
type Engine struct {
	texts  *store.TextStore
	meta   *store.MetadataStore
	index  *store.ChunkIndex
	embeds *store.EmbeddingStore

	adapter binary.Adapter
	logger  *slog.Logger

	tokensPerChunk int
	separator      string
}

// Options tunes engine behavior. The zero value is usable.
type Options struct {
	// TokensPerChunk is the per-chunk token budget for splitting. Defaults
	// to chunker.DefaultTokensPerChunk.
	TokensPerChunk int

	// Separator is the line separator for splitting. Defaults to "\n".
	Separator string

	// Binary handles binary content. StoreBinary fails without one.
	Binary binary.Adapter

	Logger *slog.Logger
}

// New creates an engine over the four stores.
func New(texts *store.TextStore, meta *store.MetadataStore, index *store.ChunkIndex, embeds *store.EmbeddingStore, opts *Options) *Engine {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tokensPerChunk := opts.TokensPerChunk
	if tokensPerChunk <= 0 {
		tokensPerChunk = chunker.DefaultTokensPerChunk
	}
	separator := opts.Separator
	if separator == "" {
		separator = chunker.DefaultSeparator
	}
	return &Engine{
		texts:          texts,
		meta:           meta,
		index:          index,
		embeds:         embeds,
		adapter:        opts.Binary,
		logger:         logger,
		tokensPerChunk: tokensPerChunk,
		separator:      separator,
	}
}

// StoreOptions qualifies a Store call. The zero value means: infer the MIME
// type, no tags, split into chunks.
type StoreOptions struct {
	MimeType     string
	OriginalPath string
	Tags         map[string]string

	// NoSplit stores the content as a single chunk regardless of size.
	NoSplit bool
}

// Store persists a text document under id and indexes it for retrieval.
// An empty id gets a generated UUID; the effective id is returned.
//
// Sub-steps run in a fixed order (metadata record, metadata chunk, content
// chunks, stale-chunk cleanup, index entry) and any embedding failure aborts
// the whole call before the index is touched. Retrying the call is safe:
// checksums make re-embedding of unchanged chunks a no-op.
func (e *Engine) Store(ctx context.Context, id, content string, opts *StoreOptions) (string, error) {
	if opts == nil {
		opts = &StoreOptions{}
	}
	if id == "" {
		id = uuid.New().String()
	}
	mimeType := opts.MimeType
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	meta := store.DocumentMetadata{
		ID:           id,
		OriginalPath: opts.OriginalPath,
		MimeType:     mimeType,
		SizeBytes:    int64(len(content)),
		CreatedAt:    time.Now().UTC(),
		Tags:         opts.Tags,
	}
	if err := e.write(ctx, meta, content, !opts.NoSplit); err != nil {
		return "", err
	}
	return id, nil
}

// StoreBinary persists binary content. The binary adapter extracts chunkable
// text and, for binary MIME types, generates a summary that both populates
// the metadata and leads the chunked content, so early chunks rank on it.
func (e *Engine) StoreBinary(ctx context.Context, id string, data []byte, mimeType string, opts *StoreOptions) (string, error) {
	if e.adapter == nil {
		return "", fmt.Errorf("no binary content adapter configured")
	}
	if opts == nil {
		opts = &StoreOptions{}
	}
	if id == "" {
		id = uuid.New().String()
	}
	if mimeType == "" {
		mimeType = DefaultMimeType
	}

	extracted, err := e.adapter.Extract(ctx, data, mimeType)
	if err != nil {
		return "", fmt.Errorf("extracting content for %q: %w", id, err)
	}

	meta := store.DocumentMetadata{
		ID:           id,
		OriginalPath: opts.OriginalPath,
		MimeType:     mimeType,
		SizeBytes:    int64(len(data)),
		CreatedAt:    time.Now().UTC(),
		IsBinary:     e.adapter.IsBinary(mimeType),
		Tags:         opts.Tags,
	}

	content := extracted
	if meta.IsBinary {
		summary, err := e.adapter.Summarize(ctx, data, mimeType)
		if err != nil {
			return "", fmt.Errorf("summarizing content for %q: %w", id, err)
		}
		meta.Summary = summary
		content = summary + "\n\n" + extracted
	}

	if err := e.write(ctx, meta, content, !opts.NoSplit); err != nil {
		return "", err
	}
	return id, nil
}

// write performs the shared store sequence for a prepared metadata record.
func (e *Engine) write(ctx context.Context, meta store.DocumentMetadata, content string, split bool) error {
	id := meta.ID

	var chunkTexts []string
	if split {
		chunkTexts = chunker.Split(content, e.separator, e.tokensPerChunk)
	}

	if err := e.meta.Put(ctx, meta); err != nil {
		return fmt.Errorf("storing metadata for %q: %w", id, err)
	}

	metaKey := store.MetadataKey(id)
	keys := []string{metaKey}
	if err := e.putChunk(ctx, metaKey, meta.SearchableText()); err != nil {
		return err
	}

	if len(chunkTexts) > 1 {
		for i, text := range chunkTexts {
			key := store.ChunkKey(id, i)
			if err := e.putChunk(ctx, key, text); err != nil {
				return err
			}
			keys = append(keys, key)
		}
	} else {
		if err := e.putChunk(ctx, id, content); err != nil {
			return err
		}
		keys = append(keys, id)
	}

	// Chunks a previous version produced but this one did not must not
	// linger as unreachable records.
	old, err := e.index.Get(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	current := make(map[string]bool, len(keys))
	for _, key := range keys {
		current[key] = true
	}
	for _, key := range old {
		if current[key] {
			continue
		}
		if err := e.deleteChunk(ctx, key); err != nil {
			return err
		}
	}

	// Index write is always the last step.
	if err := e.index.Store(ctx, id, keys); err != nil {
		return fmt.Errorf("storing chunk index for %q: %w", id, err)
	}
	e.logger.Info("stored document", "id", id, "chunks", len(keys)-1)
	return nil
}

// putChunk writes the text record then its embedding. An embedding failure
// aborts the caller; the text record it leaves behind is harmless because
// the index has not been written yet.
func (e *Engine) putChunk(ctx context.Context, key, text string) error {
	if err := e.texts.Put(ctx, key, text); err != nil {
		return fmt.Errorf("storing text for %q: %w", key, err)
	}
	if err := e.embeds.StoreEmbedding(ctx, key, text); err != nil {
		return err
	}
	return nil
}

// deleteChunk removes a chunk's text and embedding records. Missing records
// are orphans: logged and skipped, never fatal.
func (e *Engine) deleteChunk(ctx context.Context, key string) error {
	if err := e.texts.Delete(ctx, key); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		e.logger.Warn("orphaned chunk: no text record", "key", key)
	}
	if err := e.embeds.Delete(ctx, key); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		e.logger.Warn("orphaned chunk: no embedding record", "key", key)
	}
	return nil
}

// Get returns a document's full text when it is stored as a single chunk
// under its own id. Split documents fail with ErrNotFound; use
// GetDocumentWithChunks for those.
func (e *Engine) Get(ctx context.Context, id string) (string, error) {
	return e.texts.Get(ctx, id)
}

// GetChunk returns the text of one chunk by chunk key.
func (e *Engine) GetChunk(ctx context.Context, chunkKey string) (string, error) {
	return e.texts.Get(ctx, chunkKey)
}

// GetMetadata returns the metadata record for id. Missing ids yield a zero
// record, not an error.
func (e *Engine) GetMetadata(ctx context.Context, id string) (store.DocumentMetadata, error) {
	return e.meta.Get(ctx, id)
}

// Document bundles everything known about a stored document.
type Document struct {
	// Content is the full text when the document is addressable as a single
	// Get, empty otherwise.
	Content   string
	Metadata  store.DocumentMetadata
	ChunkKeys []string
}

// GetDocumentWithChunks returns a document's metadata, chunk key list and,
// for single-chunk documents, its content. Unknown ids fail with ErrNotFound.
func (e *Engine) GetDocumentWithChunks(ctx context.Context, id string) (*Document, error) {
	keys, err := e.index.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	meta, err := e.meta.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	content, err := e.texts.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		content = ""
	}
	return &Document{Content: content, Metadata: meta, ChunkKeys: keys}, nil
}

// Content reconstructs a document's full text: directly for single-chunk
// documents, by concatenating content chunks in index order for split ones.
// Chunking is lossless, so the reconstruction is exact.
func (e *Engine) Content(ctx context.Context, id string) (string, error) {
	text, err := e.texts.Get(ctx, id)
	if err == nil {
		return text, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	keys, err := e.index.Get(ctx, id)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, key := range keys {
		if store.IsMetadataKey(key) {
			continue
		}
		chunk, err := e.texts.Get(ctx, key)
		if err != nil {
			return "", err
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}

// Move re-stores the document under newID and then removes every record
// under oldID. Ordering is strict write-new-then-delete-old: a failure
// writing newID leaves oldID fully intact. Metadata (tags, MIME type,
// summary, creation time) carries over.
func (e *Engine) Move(ctx context.Context, oldID, newID string, split bool) error {
	if oldID == newID {
		return fmt.Errorf("move source and destination are both %q", oldID)
	}
	if newID == "" {
		return fmt.Errorf("move destination id is empty")
	}

	content, err := e.Content(ctx, oldID)
	if err != nil {
		return err
	}
	meta, err := e.meta.Get(ctx, oldID)
	if err != nil {
		return err
	}
	meta.ID = newID

	if err := e.write(ctx, meta, content, split); err != nil {
		return fmt.Errorf("moving %q to %q: %w", oldID, newID, err)
	}
	return e.Remove(ctx, oldID)
}

// Remove deletes every record belonging to id: each chunk's text and
// embedding, the chunk index entry, and the metadata record. Removing an
// absent id is a no-op.
func (e *Engine) Remove(ctx context.Context, id string) error {
	keys, err := e.index.Get(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	for _, key := range keys {
		if err := e.deleteChunk(ctx, key); err != nil {
			return err
		}
	}
	if err := e.index.Remove(ctx, id); err != nil {
		return err
	}
	return e.meta.Delete(ctx, id)
}

// List enumerates stored document ids, optionally scoped to a folder prefix
// in the path-like id naming scheme. Without recursive, ids nested below the
// folder are excluded.
func (e *Engine) List(ctx context.Context, folder string, recursive bool) ([]string, error) {
	ids, err := e.meta.IDs(ctx)
	if err != nil {
		return nil, err
	}
	prefix := folder
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	var out []string
	for _, id := range ids {
		if prefix != "" && !strings.HasPrefix(id, prefix) {
			continue
		}
		rest := strings.TrimPrefix(id, prefix)
		if !recursive && strings.Contains(rest, "/") {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// Embed ensures every chunk of id has an up-to-date embedding. Chunks whose
// text is unchanged since the last embedding are skipped via checksum.
func (e *Engine) Embed(ctx context.Context, id string) error {
	keys, err := e.index.Get(ctx, id)
	if err != nil {
		return err
	}
	for _, key := range keys {
		text, err := e.texts.Get(ctx, key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				e.logger.Warn("orphaned chunk: no text record", "key", key)
				continue
			}
			return err
		}
		if err := e.embeds.StoreEmbedding(ctx, key, text); err != nil {
			return err
		}
	}
	return nil
}

// UpdateEmbeddings re-embeds every chunk in the store whose text checksum
// has changed since its embedding was generated. With no content changes it
// performs zero provider calls.
func (e *Engine) UpdateEmbeddings(ctx context.Context) error {
	ids, err := e.index.Documents(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := e.Embed(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
