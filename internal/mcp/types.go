// Package mcp exposes the document store over the Model Context Protocol.
package mcp

import "time"

// QueryInput defines the input parameters for the query_docs tool.
type QueryInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"required,description=The semantic search query"`
	// MaxTokens caps the total rendered size of the returned chunks.
	MaxTokens int `json:"max_tokens,omitempty" jsonschema:"minimum=1,default=8000,description=Token budget for the returned chunk texts"`
	// MinScore drops matches below this similarity.
	MinScore float64 `json:"min_score,omitempty" jsonschema:"minimum=-1,maximum=1,description=Minimum cosine similarity to include a chunk"`
}

// QueryOutput contains the token-budgeted ranked chunks.
type QueryOutput struct {
	Results []QueryResult `json:"results"`
	Message string        `json:"message,omitempty"`
}

// QueryResult is one selected chunk.
type QueryResult struct {
	Document   string  `json:"document"`
	ChunkKey   string  `json:"chunk_key"`
	Similarity float64 `json:"similarity"`
	// Content is the rendered chunk text, header included.
	Content string `json:"content"`
}

// RelevantDocsInput defines the input for the relevant_docs tool.
type RelevantDocsInput struct {
	Query string `json:"query" jsonschema:"required,description=The semantic search query"`
	// MaxResults caps the number of documents returned.
	MaxResults int `json:"max_results,omitempty" jsonschema:"minimum=1,maximum=50,default=10,description=Maximum number of documents to return"`
}

// RelevantDocsOutput lists matching documents, most relevant first.
type RelevantDocsOutput struct {
	Documents []DocumentInfo `json:"documents"`
	Message   string         `json:"message,omitempty"`
}

// DocumentInfo is a document id with its descriptive metadata.
type DocumentInfo struct {
	ID        string            `json:"id"`
	MimeType  string            `json:"mime_type,omitempty"`
	SizeBytes int64             `json:"size_bytes,omitempty"`
	CreatedAt time.Time         `json:"created_at,omitempty"`
	Summary   string            `json:"summary,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// FetchDocInput defines the input for the fetch_doc tool.
type FetchDocInput struct {
	ID string `json:"id" jsonschema:"required,description=The document id to retrieve"`
}

// FetchDocOutput contains the retrieved document.
type FetchDocOutput struct {
	ID       string       `json:"id"`
	Content  string       `json:"content"`
	Metadata DocumentInfo `json:"metadata"`
	Found    bool         `json:"found"`
}

// StoreDocInput defines the input for the store_doc tool.
type StoreDocInput struct {
	// ID is the document id; empty generates one.
	ID      string            `json:"id,omitempty" jsonschema:"description=Document id; generated when omitted"`
	Content string            `json:"content" jsonschema:"required,description=The document text to store"`
	Tags    map[string]string `json:"tags,omitempty" jsonschema:"description=Custom string tags attached to the document"`
}

// StoreDocOutput reports the stored document id.
type StoreDocOutput struct {
	ID string `json:"id"`
}

// ListDocsInput defines the input for the list_docs tool.
type ListDocsInput struct {
	// Folder scopes the listing to a path prefix.
	Folder string `json:"folder,omitempty" jsonschema:"description=Folder prefix to scope the listing to"`
	// Recursive includes documents nested below the folder.
	Recursive bool `json:"recursive,omitempty" jsonschema:"default=true,description=Include documents in nested folders"`
}

// ListDocsOutput contains the matching document ids.
type ListDocsOutput struct {
	IDs   []string `json:"ids"`
	Count int      `json:"count"`
}
