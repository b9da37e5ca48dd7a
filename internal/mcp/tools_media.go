package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerMediaTools() {
	// ── list_media ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_media",
		mcp.WithDescription("List assets in the media library"),
	), s.handleListMedia)

	// ── import_media ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("import_media",
		mcp.WithDescription("Add an image, audio or video file to the media library from a base64 data URL"),
		mcp.WithString("name", mcp.Description("Display name")),
		mcp.WithString("dataUrl", mcp.Description("data:<mime>;base64,<payload>"), mcp.Required()),
	), s.handleImportMedia)

	// ── attach_media ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("attach_media",
		mcp.WithDescription(`Write an asset's URL into the draft at a settings path, e.g. "image.url"`),
		mcp.WithString("path", mcp.Description("Dotted settings path"), mcp.Required()),
		mcp.WithString("assetId", mcp.Description("Asset ID from list_media or import_media"), mcp.Required()),
	), s.handleAttachMedia)
}

func (s *Server) handleListMedia(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lib := s.app.Media()
	if lib == nil {
		return nil, fmt.Errorf("media library unavailable")
	}
	return jsonResult(lib.List())
}

func (s *Server) handleImportMedia(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dataURL, err := req.RequireString("dataUrl")
	if err != nil {
		return nil, err
	}
	asset, err := s.app.ImportMedia(req.GetString("name", ""), dataURL)
	if err != nil {
		return nil, fmt.Errorf("import media: %w", err)
	}
	return jsonResult(asset)
}

func (s *Server) handleAttachMedia(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return nil, err
	}
	assetID, err := req.RequireString("assetId")
	if err != nil {
		return nil, err
	}
	if err := s.app.AttachMedia(path, assetID); err != nil {
		return nil, err
	}
	return jsonResult(s.draftState())
}
