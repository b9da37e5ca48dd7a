package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPageTools() {
	// ── list_pages ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List all pages"),
	), s.handleListPages)

	// ── create_page ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_page",
		mcp.WithDescription("Create a new draft page and open it"),
		mcp.WithString("title", mcp.Description("Page title; the slug is derived from it"), mcp.Required()),
	), s.handleCreatePage)

	// ── open_page ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("open_page",
		mcp.WithDescription("Open a page for editing. Tools that accept pageId default to the open page."),
		mcp.WithString("pageId", mcp.Description("ID of the page to open"), mcp.Required()),
	), s.handleOpenPage)

	// ── save_page ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_page",
		mcp.WithDescription("Persist the open page's sections and record a revision"),
	), s.handleSavePage)

	// ── publish_page ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("publish_page",
		mcp.WithDescription("Save and publish the open page"),
	), s.handlePublishPage)

	// ── render_page ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("render_page",
		mcp.WithDescription("Render the open page to HTML. Failed sections render as error cards and are listed."),
		mcp.WithBoolean("preview", mcp.Description("Render the editor preview (placeholders for empty media)")),
	), s.handleRenderPage)

	// ── list_revisions ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_revisions",
		mcp.WithDescription("List saved revisions of the open page, newest first"),
	), s.handleListRevisions)

	// ── restore_revision ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("restore_revision",
		mcp.WithDescription("🛑 DESTRUCTIVE: Replace the open page's sections with a saved revision"),
		mcp.WithString("revisionId", mcp.Description("Revision ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRestoreRevision)
}

func (s *Server) handleListPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pages, err := s.app.ListPages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return jsonResult(pages)
}

func (s *Server) handleCreatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return nil, err
	}
	page, err := s.app.CreatePage(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	// Auto-open the new page
	if _, err := s.app.OpenPage(ctx, page.ID); err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	return jsonResult(page)
}

func (s *Server) handleOpenPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := req.RequireString("pageId")
	if err != nil {
		return nil, err
	}
	secs, err := s.app.OpenPage(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	return jsonResult(secs)
}

func (s *Server) handleSavePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.app.SavePage(ctx); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Saved page %s", s.app.PageID())), nil
}

func (s *Server) handlePublishPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := s.app.PublishPage(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(page)
}

type renderOutput struct {
	HTML   string         `json:"html"`
	Failed []failedRender `json:"failed,omitempty"`
}

type failedRender struct {
	SectionID string   `json:"sectionId"`
	Component string   `json:"component"`
	Message   string   `json:"message"`
	Actions   []string `json:"actions"`
}

func (s *Server) handleRenderPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blocks, err := s.app.RenderPage(req.GetBool("preview", false))
	if err != nil {
		return nil, err
	}
	var out renderOutput
	for _, b := range blocks {
		out.HTML += string(b.HTML)
		if !b.Failed() {
			continue
		}
		f := failedRender{SectionID: b.SectionID, Component: b.Err.Component, Message: b.Err.Message}
		for _, a := range b.Actions {
			f.Actions = append(f.Actions, string(a.Type))
		}
		out.Failed = append(out.Failed, f)
	}
	return jsonResult(out)
}

func (s *Server) handleListRevisions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID := s.app.PageID()
	if pageID == "" {
		return nil, fmt.Errorf("no page open (use open_page first)")
	}
	revs, err := s.app.Pages().Revisions(pageID)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}

	type revisionSummary struct {
		ID        string `json:"id"`
		Label     string `json:"label"`
		CreatedAt string `json:"createdAt"`
	}
	out := make([]revisionSummary, len(revs))
	for i, r := range revs {
		out[i] = revisionSummary{ID: r.ID, Label: r.Label, CreatedAt: r.CreatedAt.Format("2006-01-02 15:04:05")}
	}
	return jsonResult(out)
}

func (s *Server) handleRestoreRevision(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	revID, err := req.RequireString("revisionId")
	if err != nil {
		return nil, err
	}
	secs, err := s.app.RestoreRevision(ctx, revID)
	if err != nil {
		return nil, err
	}
	return jsonResult(secs)
}
