package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerResources() {
	// ── pagebuilder://page ─────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"pagebuilder://page",
		"Open Page",
		mcp.WithResourceDescription("The page document being edited"),
		mcp.WithMIMEType("application/json"),
	), s.handlePageResource)

	// ── pagebuilder://section/{sectionId}/nodes ────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"pagebuilder://section/{sectionId}/nodes",
			"Elements of a Section",
		),
		s.handleSectionNodesResource,
	)
}

func (s *Server) handlePageResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(s.pages.Editor().Page(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal page: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "pagebuilder://page",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleSectionNodesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	sectionID := sectionIDFromURI(uri)
	if sectionID == "" {
		return nil, fmt.Errorf("could not extract sectionId from URI: %s", uri)
	}
	sec := s.pages.Editor().Page().Section(sectionID)
	if sec == nil {
		return nil, fmt.Errorf("section %s not found", sectionID)
	}

	data, _ := json.MarshalIndent(summarizeSection(sec), "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// sectionIDFromURI extracts the id from pagebuilder://section/{id}/nodes.
func sectionIDFromURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, "pagebuilder://section/")
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	return id
}
