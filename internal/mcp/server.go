package mcp

import (
	"context"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/pdfindex/internal/indexer"
)

const (
	// ServerName is the MCP server name
	ServerName = "pdfindex"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	builder *indexer.Builder
	opts    indexer.Options
	lock    indexer.RunLock
	logger  *slog.Logger
}

// NewServer creates a server that rebuilds the index described by opts.
// Force in opts is ignored; callers request it per tool call.
func NewServer(builder *indexer.Builder, opts indexer.Options, version string) *Server {
	if version == "" {
		version = ServerVersion
	}
	opts.Force = false

	s := &Server{
		mcp:     server.NewMCPServer(ServerName, version, server.WithToolCapabilities(false)),
		builder: builder,
		opts:    opts,
		logger:  slog.Default().With("component", "mcp"),
	}
	s.registerTools()
	return s
}

// Serve runs the MCP protocol over in/out until ctx is cancelled or in is closed
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("serving MCP over stdio", "source_dir", s.opts.SourceDir, "store_dir", s.opts.StoreDir)
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(rebuildIndexTool(), s.handleRebuildIndex)
	s.mcp.AddTool(indexStatusTool(), s.handleIndexStatus)
}
