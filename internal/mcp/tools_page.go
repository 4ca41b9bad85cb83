package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPageTools() {
	// ── get_page ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_page",
		mcp.WithDescription("Return the open page document as JSON: sections, grids, nodes and locales"),
	), s.handleGetPage)

	// ── sync_status ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("sync_status",
		mcp.WithDescription("Report whether the staging copy matches the live page, plus the undo/redo stacks"),
	), s.handleSyncStatus)

	// ── set_page_title ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_page_title",
		mcp.WithDescription("Change the page title"),
		mcp.WithString("title",
			mcp.Description("New title"),
			mcp.Required(),
		),
	), s.handleSetPageTitle)

	// ── undo / redo ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the most recent change"),
	), s.handleUndo)
	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the most recently undone change"),
	), s.handleRedo)

	// ── publish ────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("publish",
		mcp.WithDescription("Publish a page to the live site. Requires user approval."),
		mcp.WithString("slug",
			mcp.Description("Slug to publish. Defaults to the open page."),
		),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handlePublish)
}

func (s *Server) handleGetPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.pages.Editor().Page())
}

func (s *Server) handleSyncStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{
		"slug":    s.pages.Slug(),
		"status":  s.pages.Status(),
		"history": s.pages.History(),
	})
}

func (s *Server) handleSetPageTitle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("title", "")
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if err := s.pages.Editor().SetPageTitle(title); err != nil {
		return nil, fmt.Errorf("set page title: %w", err)
	}
	return textResult(fmt.Sprintf("Title set to %q", title)), nil
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	undo, _ := s.pages.Editor().HistoryLabels()
	if len(undo) == 0 {
		return textResult("Nothing to undo"), nil
	}
	if err := s.pages.Editor().Undo(); err != nil {
		return nil, fmt.Errorf("undo: %w", err)
	}
	return textResult("Undid: " + undo[0]), nil
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, redo := s.pages.Editor().HistoryLabels()
	if len(redo) == 0 {
		return textResult("Nothing to redo"), nil
	}
	if err := s.pages.Editor().Redo(); err != nil {
		return nil, fmt.Errorf("redo: %w", err)
	}
	return textResult("Redid: " + redo[0]), nil
}

func (s *Server) handlePublish(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug := req.GetString("slug", s.pages.Slug())
	if err := s.approval.Request(ctx, "publish", fmt.Sprintf("Publish %s to the live site", slug),
		fmt.Sprintf(`{"slug":%q}`, slug)); err != nil {
		return nil, err
	}
	if err := s.pages.PublishSlug(ctx, slug); err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	return textResult(fmt.Sprintf("Published %s", slug)), nil
}
