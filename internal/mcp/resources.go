package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	pagesURI      = "pagebuilder://pages"
	pageURIPrefix = "pagebuilder://page/"
	sectionsPart  = "/sections"
)

func (s *Server) registerResources() {
	// ── pagebuilder://pages ────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		pagesURI,
		"All Pages",
		mcp.WithMIMEType("application/json"),
	), s.handlePagesResource)

	// ── pagebuilder://page/{pageId}/sections ───────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			pageURIPrefix+"{pageId}"+sectionsPart,
			"Sections on a Page",
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handlePageSectionsResource,
	)
}

func (s *Server) handlePagesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	pages, err := s.app.ListPages()
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(pages, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      pagesURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// handlePageSectionsResource reads the saved sections, not the open Store.
func (s *Server) handlePageSectionsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	pageID := extractPageIDFromURI(uri)
	if pageID == "" {
		return nil, fmt.Errorf("could not extract pageId from URI: %s", uri)
	}

	secs, err := s.app.Pages().LoadPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(secs, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// extractPageIDFromURI extracts the page ID from "pagebuilder://page/{id}/sections".
func extractPageIDFromURI(uri string) string {
	if !strings.HasPrefix(uri, pageURIPrefix) || !strings.HasSuffix(uri, sectionsPart) {
		return ""
	}
	id := strings.TrimSuffix(strings.TrimPrefix(uri, pageURIPrefix), sectionsPart)
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
