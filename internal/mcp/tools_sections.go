package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"pagebuilder/internal/builder"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/recovery"
)

func sectionTypeList() string {
	types := domain.SectionTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func (s *Server) registerSectionTools() {
	// ── list_sections ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_sections",
		mcp.WithDescription("List the sections of a page in order"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to the open page)")),
	), s.handleListSections)

	// ── add_section ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_section",
		mcp.WithDescription("Append a section with default content and settings"),
		mcp.WithString("type", mcp.Description("Section type: "+sectionTypeList()), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to the open page)")),
	), s.handleAddSection)

	// ── move_section ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_section",
		mcp.WithDescription("Swap a section with its neighbour. Moving past either end does nothing."),
		mcp.WithString("sectionId", mcp.Description("Section ID"), mcp.Required()),
		mcp.WithString("direction", mcp.Description("up or down"), mcp.Required(), mcp.Enum("up", "down")),
	), s.handleMoveSection)

	// ── delete_section (destructive) ───────────────────
	s.mcp.AddTool(mcp.NewTool("delete_section",
		mcp.WithDescription("🛑 DESTRUCTIVE: Remove a section from the open page"),
		mcp.WithString("sectionId", mcp.Description("Section ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteSection)

	// ── duplicate_section ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("duplicate_section",
		mcp.WithDescription("Copy a section directly after itself with a new ID"),
		mcp.WithString("sectionId", mcp.Description("Section ID"), mcp.Required()),
	), s.handleDuplicateSection)

	// ── select_section ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("select_section",
		mcp.WithDescription("Select a section, or clear the selection with an empty ID"),
		mcp.WithString("sectionId", mcp.Description("Section ID, empty to clear")),
	), s.handleSelectSection)

	// ── set_realtime_preview ───────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_realtime_preview",
		mcp.WithDescription("Turn real-time preview on or off. When on, editor changes are committed as they are made."),
		mcp.WithBoolean("enabled", mcp.Description("Preview on or off"), mcp.Required()),
	), s.handleSetRealtimePreview)

	// ── recover_section ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("recover_section",
		mcp.WithDescription("Run a recovery action on a section that failed to render"),
		mcp.WithString("sectionId", mcp.Description("Section ID"), mcp.Required()),
		mcp.WithString("action", mcp.Description("retry, reset, fallback or dismiss"), mcp.Required(),
			mcp.Enum("retry", "reset", "fallback", "dismiss")),
	), s.handleRecoverSection)
}

func (s *Server) handleListSections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.requireOpenPage(ctx, req); err != nil {
		return nil, err
	}
	secs, err := s.app.Sections()
	if err != nil {
		return nil, err
	}
	return jsonResult(secs)
}

func (s *Server) handleAddSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ, err := req.RequireString("type")
	if err != nil {
		return nil, err
	}
	if err := s.requireOpenPage(ctx, req); err != nil {
		return nil, err
	}
	id, err := s.app.AddSection(domain.SectionType(typ))
	if err != nil {
		return nil, fmt.Errorf("add section: %w", err)
	}
	return jsonResult(map[string]string{"sectionId": id, "type": typ})
}

func (s *Server) handleMoveSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("sectionId")
	if err != nil {
		return nil, err
	}
	dir := builder.Direction(req.GetString("direction", ""))
	if dir != builder.Up && dir != builder.Down {
		return nil, fmt.Errorf("direction must be up or down")
	}
	moved, err := s.app.MoveSection(id, dir)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]bool{"moved": moved})
}

func (s *Server) handleDeleteSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("sectionId")
	if err != nil {
		return nil, err
	}
	deleted, err := s.app.DeleteSection(id)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]bool{"deleted": deleted})
}

func (s *Server) handleDuplicateSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("sectionId")
	if err != nil {
		return nil, err
	}
	newID, err := s.app.DuplicateSection(id)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]string{"sectionId": newID})
}

func (s *Server) handleSelectSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("sectionId", "")
	if err := s.app.SelectSection(id); err != nil {
		return nil, err
	}
	if id == "" {
		return textResult("Selection cleared"), nil
	}
	return textResult(fmt.Sprintf("Selected %s", id)), nil
}

func (s *Server) handleSetRealtimePreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	on, err := req.RequireBool("enabled")
	if err != nil {
		return nil, err
	}
	if err := s.app.SetRealTimePreview(on); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Real-time preview %t", on)), nil
}

func (s *Server) handleRecoverSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("sectionId")
	if err != nil {
		return nil, err
	}
	action, err := req.RequireString("action")
	if err != nil {
		return nil, err
	}
	if err := s.app.InvokeRecovery(id, recovery.ActionType(action)); err != nil {
		return nil, fmt.Errorf("recover section: %w", err)
	}
	return textResult(fmt.Sprintf("Ran %s on %s", action, id)), nil
}
