// Package ingest pulls markdown documents out of a GitHub repository and
// stores them through the document engine, annotating each section with its
// header hierarchy first so chunks rank on their context.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docgrep/docgrep/internal/engine"
	"github.com/docgrep/docgrep/internal/markdown"
	"github.com/docgrep/docgrep/internal/source/github"
)

// Result summarizes one ingestion run.
type Result struct {
	TotalDocs      int
	SuccessfulDocs int
	FailedDocs     []FailedDoc
	CommitSHA      string
	Duration       time.Duration
}

// FailedDoc names a document that could not be ingested and why.
type FailedDoc struct {
	Path   string
	Reason string
}

// Pipeline wires the fetcher, annotator and engine together.
type Pipeline struct {
	fetcher   *github.Fetcher
	annotator *markdown.Annotator
	engine    *engine.Engine
	logger    *slog.Logger
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(fetcher *github.Fetcher, annotator *markdown.Annotator, eng *engine.Engine, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{fetcher: fetcher, annotator: annotator, engine: eng, logger: logger}
}

// Run fetches every markdown document from the repository and stores it under
// its relative path as document id. Per-document failures are collected, not
// fatal.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}

	commitSHA, err := p.fetcher.LatestCommitSHA(ctx)
	if err != nil {
		return nil, fmt.Errorf("get commit SHA: %w", err)
	}
	result.CommitSHA = commitSHA
	p.logger.Info("starting ingestion", "repository", p.fetcher.Repository(), "commit", commitSHA)

	paths, err := p.fetcher.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list docs: %w", err)
	}
	result.TotalDocs = len(paths)
	p.logger.Info("found documents", "count", len(paths))

	for _, path := range paths {
		if err := p.ingestDocument(ctx, path, commitSHA); err != nil {
			p.logger.Warn("failed to ingest document", "path", path, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedDoc{Path: path, Reason: err.Error()})
			continue
		}
		result.SuccessfulDocs++
	}

	result.Duration = time.Since(start)
	p.logger.Info("ingestion complete",
		"successful", result.SuccessfulDocs,
		"failed", len(result.FailedDocs),
		"duration", result.Duration,
	)
	return result, nil
}

func (p *Pipeline) ingestDocument(ctx context.Context, path, commitSHA string) error {
	doc, err := p.fetcher.Fetch(ctx, path)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	annotated, err := p.annotator.Annotate([]byte(doc.Content))
	if err != nil {
		return fmt.Errorf("annotate: %w", err)
	}

	_, err = p.engine.Store(ctx, doc.Path, annotated, &engine.StoreOptions{
		MimeType:     "text/markdown",
		OriginalPath: doc.Path,
		Tags: map[string]string{
			"repository": p.fetcher.Repository(),
			"commit_sha": commitSHA,
			"url":        doc.URL,
		},
	})
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	p.logger.Debug("ingested document", "path", doc.Path, "size", len(doc.Content))
	return nil
}
