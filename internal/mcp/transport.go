package mcp

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// HTTPHandlerOptions configures the streamable HTTP transport.
type HTTPHandlerOptions struct {
	// Stateless disables session management.
	Stateless bool
}

// NewHTTPHandler serves server over streamable HTTP; the API mounts it at /mcp.
func NewHTTPHandler(server *Server, opts *HTTPHandlerOptions) http.Handler {
	if opts == nil {
		opts = &HTTPHandlerOptions{}
	}

	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server.MCPServer()
	}, &mcp.StreamableHTTPOptions{
		Stateless: opts.Stateless,
	})
}
