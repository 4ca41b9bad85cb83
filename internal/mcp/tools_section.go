package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSectionTools() {
	// ── list_presets ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_presets",
		mcp.WithDescription("List the section presets add_section accepts"),
	), s.handleListPresets)

	// ── add_section ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_section",
		mcp.WithDescription("Append a section to the page, empty or from a preset"),
		mcp.WithString("preset",
			mcp.Description("Preset key from list_presets. Omit for an empty section."),
		),
	), s.handleAddSection)

	// ── set_section_grid ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_section_grid",
		mcp.WithDescription("Change the virtual grid of a section. Elements keep their on-screen position."),
		mcp.WithString("sectionId",
			mcp.Description("ID of the section"),
			mcp.Required(),
		),
		mcp.WithNumber("cols",
			mcp.Description("Column count (12-240)"),
			mcp.Required(),
		),
		mcp.WithNumber("aspectNum",
			mcp.Description("Aspect ratio width term"),
		),
		mcp.WithNumber("aspectDen",
			mcp.Description("Aspect ratio height term"),
		),
	), s.handleSetSectionGrid)

	// ── delete_section ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_section",
		mcp.WithDescription("Delete a section and everything in it. Requires user approval."),
		mcp.WithString("sectionId",
			mcp.Description("ID of the section"),
			mcp.Required(),
		),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteSection)
}

func (s *Server) handleListPresets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.pages.Editor().PresetKeys())
}

func (s *Server) handleAddSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ed := s.pages.Editor()
	var id string
	var err error
	if preset := req.GetString("preset", ""); preset != "" {
		id, err = ed.AddSectionPreset(preset)
	} else {
		id, err = ed.AddSection()
	}
	if err != nil {
		return nil, fmt.Errorf("add section: %w", err)
	}
	return jsonResult(ed.Page().Section(id))
}

func (s *Server) handleSetSectionGrid(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sectionID := req.GetString("sectionId", "")
	sec := s.pages.Editor().Page().Section(sectionID)
	if sec == nil {
		return nil, fmt.Errorf("section %s not found", sectionID)
	}
	args := req.GetArguments()
	g := sec.Grid()
	cols := intArgOr(args, "cols", g.Cols)
	num := intArgOr(args, "aspectNum", g.Aspect.Num)
	den := intArgOr(args, "aspectDen", g.Aspect.Den)
	if err := s.pages.Editor().SetSectionGrid(sectionID, cols, num, den); err != nil {
		return nil, fmt.Errorf("set section grid: %w", err)
	}
	return jsonResult(s.pages.Editor().Page().Section(sectionID).Grid())
}

func (s *Server) handleDeleteSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sectionID := req.GetString("sectionId", "")
	sec := s.pages.Editor().Page().Section(sectionID)
	if sec == nil {
		return nil, fmt.Errorf("section %s not found", sectionID)
	}
	if err := s.approval.Request(ctx, "delete_section", fmt.Sprintf("Delete section %q", sec.Name()),
		fmt.Sprintf(`{"sectionId":%q}`, sectionID)); err != nil {
		return nil, err
	}
	if err := s.pages.Editor().DeleteSection(sectionID); err != nil {
		return nil, fmt.Errorf("delete section: %w", err)
	}
	return textResult(fmt.Sprintf("Deleted section %s", sectionID)), nil
}
