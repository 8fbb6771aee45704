package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/docgrep/docgrep/internal/engine"
	"github.com/docgrep/docgrep/internal/matcher"
	"github.com/docgrep/docgrep/internal/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// makeQueryHandler creates the query_docs tool handler. Query flow:
// 1. Rank every stored chunk against the query embedding
// 2. Drop matches below the score threshold
// 3. Select chunks in rank order within the token budget
func makeQueryHandler(m *matcher.Matcher) func(
	context.Context, *mcp.CallToolRequest, QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input QueryInput) (
		*mcp.CallToolResult, QueryOutput, error,
	) {
		maxTokens := input.MaxTokens
		if maxTokens <= 0 {
			maxTokens = matcher.DefaultMaxTotalTokens
		}

		matches, err := m.Query(ctx, input.Query)
		if err != nil {
			return nil, QueryOutput{}, fmt.Errorf("query failed: %w", err)
		}

		if input.MinScore != 0 {
			kept := matches[:0]
			for _, match := range matches {
				if match.Similarity >= input.MinScore {
					kept = append(kept, match)
				}
			}
			matches = kept
		}

		selections, err := m.TakeTop(ctx, matches, maxTokens)
		if err != nil {
			return nil, QueryOutput{}, fmt.Errorf("selecting matches: %w", err)
		}

		if len(selections) == 0 {
			return nil, QueryOutput{
				Results: []QueryResult{},
				Message: "No matching chunks found. Try broader search terms.",
			}, nil
		}

		results := make([]QueryResult, len(selections))
		for i, sel := range selections {
			results[i] = QueryResult{
				Document:   sel.Match.DocumentID,
				ChunkKey:   sel.Match.ChunkKey,
				Similarity: sel.Match.Similarity,
				Content:    sel.Text,
			}
		}
		return nil, QueryOutput{Results: results}, nil
	}
}

// makeRelevantDocsHandler creates the relevant_docs tool handler: distinct
// parent documents of the query's matches, in rank order, with metadata.
func makeRelevantDocsHandler(m *matcher.Matcher, eng *engine.Engine) func(
	context.Context, *mcp.CallToolRequest, RelevantDocsInput,
) (*mcp.CallToolResult, RelevantDocsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RelevantDocsInput) (
		*mcp.CallToolResult, RelevantDocsOutput, error,
	) {
		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = 10
		}

		ids, err := m.RelevantItems(ctx, input.Query)
		if err != nil {
			return nil, RelevantDocsOutput{}, fmt.Errorf("query failed: %w", err)
		}
		if len(ids) > maxResults {
			ids = ids[:maxResults]
		}

		docs := make([]DocumentInfo, 0, len(ids))
		for _, id := range ids {
			meta, err := eng.GetMetadata(ctx, id)
			if err != nil {
				continue
			}
			docs = append(docs, documentInfo(meta))
		}

		if len(docs) == 0 {
			return nil, RelevantDocsOutput{
				Documents: []DocumentInfo{},
				Message:   "No matching documents found.",
			}, nil
		}
		return nil, RelevantDocsOutput{Documents: docs}, nil
	}
}

// makeFetchHandler creates the fetch_doc tool handler, returning the full
// reconstructed document content.
func makeFetchHandler(eng *engine.Engine) func(
	context.Context, *mcp.CallToolRequest, FetchDocInput,
) (*mcp.CallToolResult, FetchDocOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input FetchDocInput) (
		*mcp.CallToolResult, FetchDocOutput, error,
	) {
		content, err := eng.Content(ctx, input.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, FetchDocOutput{ID: input.ID, Found: false}, nil
			}
			return nil, FetchDocOutput{}, fmt.Errorf("fetching document: %w", err)
		}
		meta, err := eng.GetMetadata(ctx, input.ID)
		if err != nil {
			return nil, FetchDocOutput{}, fmt.Errorf("fetching metadata: %w", err)
		}
		return nil, FetchDocOutput{
			ID:       input.ID,
			Content:  content,
			Metadata: documentInfo(meta),
			Found:    true,
		}, nil
	}
}

// makeStoreHandler creates the store_doc tool handler.
func makeStoreHandler(eng *engine.Engine) func(
	context.Context, *mcp.CallToolRequest, StoreDocInput,
) (*mcp.CallToolResult, StoreDocOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StoreDocInput) (
		*mcp.CallToolResult, StoreDocOutput, error,
	) {
		id, err := eng.Store(ctx, input.ID, input.Content, &engine.StoreOptions{
			Tags: input.Tags,
		})
		if err != nil {
			return nil, StoreDocOutput{}, fmt.Errorf("storing document: %w", err)
		}
		return nil, StoreDocOutput{ID: id}, nil
	}
}

// makeListHandler creates the list_docs tool handler.
func makeListHandler(eng *engine.Engine) func(
	context.Context, *mcp.CallToolRequest, ListDocsInput,
) (*mcp.CallToolResult, ListDocsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListDocsInput) (
		*mcp.CallToolResult, ListDocsOutput, error,
	) {
		ids, err := eng.List(ctx, input.Folder, input.Recursive)
		if err != nil {
			return nil, ListDocsOutput{}, fmt.Errorf("listing documents: %w", err)
		}
		if ids == nil {
			ids = []string{}
		}
		return nil, ListDocsOutput{IDs: ids, Count: len(ids)}, nil
	}
}

func documentInfo(meta store.DocumentMetadata) DocumentInfo {
	return DocumentInfo{
		ID:        meta.ID,
		MimeType:  meta.MimeType,
		SizeBytes: meta.SizeBytes,
		CreatedAt: meta.CreatedAt,
		Summary:   meta.Summary,
		Tags:      meta.Tags,
	}
}
