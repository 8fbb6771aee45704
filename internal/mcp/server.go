package mcp

import (
	"context"

	"github.com/docgrep/docgrep/internal/engine"
	"github.com/docgrep/docgrep/internal/matcher"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with its dependencies.
type Server struct {
	server  *mcp.Server
	engine  *engine.Engine
	matcher *matcher.Matcher
}

// Config holds server dependencies.
type Config struct {
	Engine  *engine.Engine
	Matcher *matcher.Matcher
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "docgrep-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_docs",
		Description: "Semantic search over stored documents. Returns ranked chunks within a token budget.",
	}, makeQueryHandler(cfg.Matcher))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "relevant_docs",
		Description: "Semantic search returning distinct matching documents with metadata, most relevant first. Use fetch_doc for full content.",
	}, makeRelevantDocsHandler(cfg.Matcher, cfg.Engine))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "fetch_doc",
		Description: "Retrieve a stored document by id. Returns full content and metadata.",
	}, makeFetchHandler(cfg.Engine))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "store_doc",
		Description: "Store a text document and index it for semantic search.",
	}, makeStoreHandler(cfg.Engine))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_docs",
		Description: "List stored document ids, optionally scoped to a folder prefix.",
	}, makeListHandler(cfg.Engine))

	return &Server{server: server, engine: cfg.Engine, matcher: cfg.Matcher}
}

// Run starts the server with stdio transport (blocks until client
// disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance for transport
// handlers that need to wrap it.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
