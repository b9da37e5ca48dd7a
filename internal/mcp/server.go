package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"pagebuilder/internal/app"
)

// Server is the MCP server for the page builder.
// It exposes tools and resources so AI agents can build pages section by
// section through the same controller the CLI uses.
type Server struct {
	mcp    *server.MCPServer
	app    *app.App
	logger *zap.Logger
}

// Deps holds all dependencies passed from the command layer to the MCP server.
type Deps struct {
	App    *app.App
	Logger *zap.Logger
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{app: deps.App, logger: logger}

	s.mcp = server.NewMCPServer(
		"pagebuilder-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.registerPageTools()
	s.registerSectionTools()
	s.registerEditorTools()
	s.registerMediaTools()
	s.registerResources()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// MCPServer exposes the underlying server, e.g. for an HTTP transport.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// ── Helpers ────────────────────────────────────────────────

// requireOpenPage opens pageId from the arguments when given and differs
// from the open page.
func (s *Server) requireOpenPage(ctx context.Context, req mcp.CallToolRequest) error {
	pageID := req.GetString("pageId", "")
	if pageID == "" {
		if s.app.PageID() == "" {
			return fmt.Errorf("no pageId provided and no page open (use open_page first)")
		}
		return nil
	}
	if pageID == s.app.PageID() {
		return nil
	}
	_, err := s.app.OpenPage(ctx, pageID)
	return err
}

func boolPtr(v bool) *bool { return &v }
