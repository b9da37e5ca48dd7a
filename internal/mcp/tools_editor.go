package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"pagebuilder/internal/validation"
)

func (s *Server) registerEditorTools() {
	// ── edit_section ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("edit_section",
		mcp.WithDescription("Open an edit session on a section. Edits are drafted until save_section, or committed live when real-time preview is on."),
		mcp.WithString("sectionId", mcp.Description("Section ID"), mcp.Required()),
	), s.handleEditSection)

	// ── update_content ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_content",
		mcp.WithDescription("Replace the draft's content (headline, body text, title, depending on the section type)"),
		mcp.WithString("content", mcp.Description("New content"), mcp.Required()),
	), s.handleUpdateContent)

	// ── update_setting ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_setting",
		mcp.WithDescription(`Set one draft setting by dotted path rooted at the section type, e.g. "hero.buttonUrl" or "gallery.images.0.url". Missing levels are created. An object value is merged into the existing settings at that path.`),
		mcp.WithString("path", mcp.Description("Dotted settings path"), mcp.Required()),
		mcp.WithString("value", mcp.Description("JSON value; text that is not JSON is stored as a string"), mcp.Required()),
	), s.handleUpdateSetting)

	// ── update_fields ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_fields",
		mcp.WithDescription("Merge several top-level settings of the draft at once"),
		mcp.WithString("fields", mcp.Description(`JSON object, e.g. {"buttonText":"Book","buttonUrl":"/book"}`), mcp.Required()),
	), s.handleUpdateFields)

	// ── get_setting ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_setting",
		mcp.WithDescription("Read one draft setting by dotted path"),
		mcp.WithString("path", mcp.Description("Dotted settings path"), mcp.Required()),
	), s.handleGetSetting)

	// ── save_section ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_section",
		mcp.WithDescription("Validate and commit the draft. On validation errors nothing is committed and the errors are returned."),
	), s.handleSaveSection)

	// ── cancel_edit ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("cancel_edit",
		mcp.WithDescription("Discard the draft. Changes already committed by real-time preview stay."),
	), s.handleCancelEdit)
}

func (s *Server) handleEditSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("sectionId")
	if err != nil {
		return nil, err
	}
	if err := s.app.OpenEditor(id); err != nil {
		return nil, fmt.Errorf("edit section: %w", err)
	}
	return jsonResult(s.draftState())
}

func (s *Server) handleUpdateContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return nil, err
	}
	if err := s.app.UpdateContent(content); err != nil {
		return nil, err
	}
	return jsonResult(s.draftState())
}

func (s *Server) handleUpdateSetting(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return nil, err
	}
	raw, err := req.RequireString("value")
	if err != nil {
		return nil, err
	}
	if err := s.app.UpdateConfig(path, parseValue(raw)); err != nil {
		return nil, err
	}
	return jsonResult(s.draftState())
}

func (s *Server) handleUpdateFields(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("fields")
	if err != nil {
		return nil, err
	}
	fields, err := parseObject(raw)
	if err != nil {
		return nil, err
	}
	if err := s.app.UpdateSectionFields(fields); err != nil {
		return nil, err
	}
	return jsonResult(s.draftState())
}

func (s *Server) handleGetSetting(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return nil, err
	}
	sess := s.app.Editor()
	if sess == nil {
		return nil, fmt.Errorf("no section is being edited (use edit_section first)")
	}
	v, ok := sess.Setting(path)
	if !ok {
		return nil, fmt.Errorf("no setting at %s", path)
	}
	return jsonResult(v)
}

func (s *Server) handleSaveSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	err := s.app.SaveEditor()
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return jsonResult(map[string]any{"saved": false, "errors": verrs})
	}
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"saved": true})
}

func (s *Server) handleCancelEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.app.CancelEditor(); err != nil {
		return nil, err
	}
	return textResult("Edit cancelled"), nil
}

type draftView struct {
	Section any               `json:"section"`
	Errors  validation.Errors `json:"errors"`
}

// draftState reports the active draft and its validation errors.
func (s *Server) draftState() draftView {
	sess := s.app.Editor()
	if sess == nil {
		return draftView{}
	}
	errs := sess.Errors()
	if errs == nil {
		errs = validation.Errors{}
	}
	return draftView{Section: sess.Draft(), Errors: errs}
}
