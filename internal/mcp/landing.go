package mcp

import "net/http"

const landingPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>docgrep MCP server</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
         max-width: 640px; margin: 4rem auto; padding: 0 1rem; color: #1a1a2e; }
  code { background: #f0f0f5; padding: 0.15rem 0.4rem; border-radius: 4px; }
  h1 { font-size: 1.6rem; }
  table { border-collapse: collapse; margin-top: 1rem; }
  td, th { text-align: left; padding: 0.3rem 1rem 0.3rem 0; }
</style>
</head>
<body>
<h1>docgrep MCP server</h1>
<p>Semantic document retrieval over the Model Context Protocol.</p>
<table>
<tr><th>Endpoint</th><th>Purpose</th></tr>
<tr><td><code>/mcp</code></td><td>MCP Streamable HTTP transport</td></tr>
<tr><td><code>/health</code></td><td>Liveness and storage status</td></tr>
</table>
<p>Tools: <code>query_docs</code>, <code>relevant_docs</code>, <code>fetch_doc</code>,
<code>store_doc</code>, <code>list_docs</code>.</p>
</body>
</html>
`

// NewLandingHandler serves a small informational page at the server root.
func NewLandingHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(landingPage))
	})
}
