package mcpserver

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/layout"
)

func (s *Server) registerNodeTools() {
	types := make([]string, len(domain.NodeTypes))
	for i, t := range domain.NodeTypes {
		types[i] = string(t)
	}

	// ── list_nodes ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_nodes",
		mcp.WithDescription("List the elements of the page with their grid units (xu, yu, wu, hu)"),
		mcp.WithString("sectionId",
			mcp.Description("Only list this section (optional)"),
		),
	), s.handleListNodes)

	// ── add_element ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_element",
		mcp.WithDescription("Add an element to the last section. Without xu/yu it is placed in the first free spot of its container."),
		mcp.WithString("type",
			mcp.Description("Element type: "+strings.Join(types, ", ")),
			mcp.Required(),
			mcp.Enum(types...),
		),
		mcp.WithNumber("xu", mcp.Description("Column (optional)")),
		mcp.WithNumber("yu", mcp.Description("Row (optional)")),
		mcp.WithNumber("wu", mcp.Description("Width in columns (optional, type default)")),
		mcp.WithNumber("hu", mcp.Description("Height in rows (optional, type default)")),
	), s.handleAddElement)

	// ── move_node ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_node",
		mcp.WithDescription("Move an element to a grid position. It is clamped to its parent; containers carry their children."),
		mcp.WithString("nodeId", mcp.Description("ID of the element"), mcp.Required()),
		mcp.WithNumber("xu", mcp.Description("New column"), mcp.Required()),
		mcp.WithNumber("yu", mcp.Description("New row"), mcp.Required()),
	), s.handleMoveNode)

	// ── resize_node ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("resize_node",
		mcp.WithDescription("Resize an element in grid units, keeping its top-left corner"),
		mcp.WithString("nodeId", mcp.Description("ID of the element"), mcp.Required()),
		mcp.WithNumber("wu", mcp.Description("New width in columns"), mcp.Required()),
		mcp.WithNumber("hu", mcp.Description("New height in rows"), mcp.Required()),
	), s.handleResizeNode)

	// ── center_node ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("center_node",
		mcp.WithDescription("Center an element inside its parent"),
		mcp.WithString("nodeId", mcp.Description("ID of the element"), mcp.Required()),
		mcp.WithString("axis",
			mcp.Description("horizontal, vertical or both (default)"),
			mcp.Enum(string(editor.AxisHorizontal), string(editor.AxisVertical), string(editor.AxisBoth)),
		),
	), s.handleCenterNode)

	// ── set_prop ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_prop",
		mcp.WithDescription("Set a prop of an element (text html, button label, image src, ...). Non-default locales store an override."),
		mcp.WithString("nodeId", mcp.Description("ID of the element"), mcp.Required()),
		mcp.WithString("key", mcp.Description("Prop name"), mcp.Required()),
		mcp.WithString("value", mcp.Description("JSON value, or plain text for strings"), mcp.Required()),
		mcp.WithString("locale", mcp.Description("Locale to write (optional, defaults to the active locale)")),
	), s.handleSetProp)

	// ── delete_node ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_node",
		mcp.WithDescription("Delete an element and its children. Requires user approval."),
		mcp.WithString("nodeId", mcp.Description("ID of the element"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteNode)
}

// nodeSummary is a compact representation of a node for agents.
type nodeSummary struct {
	ID        string       `json:"id"`
	Type      string       `json:"type"`
	Label     string       `json:"label"`
	SectionID string       `json:"sectionId"`
	ParentID  string       `json:"parentId,omitempty"`
	Depth     int          `json:"depth"`
	Units     domain.Units `json:"units"`
}

func summarizeSection(sec *domain.Section) []nodeSummary {
	eff := sec.EffectiveUnits()
	var out []nodeSummary
	domain.Walk(sec.Children, func(n, parent *domain.Node, depth int) bool {
		sum := nodeSummary{
			ID:        n.ID,
			Type:      string(n.Type),
			Label:     n.Label(),
			SectionID: sec.ID,
			Depth:     depth,
			Units:     eff[n.ID],
		}
		if parent != nil {
			sum.ParentID = parent.ID
		}
		out = append(out, sum)
		return true
	})
	return out
}

func (s *Server) handleListNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := s.pages.Editor().Page()
	sectionID := req.GetString("sectionId", "")
	out := []nodeSummary{}
	for _, sec := range page.Sections {
		if sectionID != "" && sec.ID != sectionID {
			continue
		}
		out = append(out, summarizeSection(sec)...)
	}
	return jsonResult(out)
}

func (s *Server) handleAddElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	t := domain.NodeType(req.GetString("type", ""))
	ed := s.pages.Editor()

	id, err := ed.AddElement(t)
	if err != nil {
		return nil, fmt.Errorf("add element: %w", err)
	}
	sec, _, err := s.locate(id)
	if err != nil {
		return nil, err
	}
	bounds, err := layout.ParentBounds(sec, id)
	if err != nil {
		return nil, fmt.Errorf("add element: %w", err)
	}
	cur := sec.EffectiveUnits()[id]
	wu, hu := intArgOr(args, "wu", cur.WU), intArgOr(args, "hu", cur.HU)

	target := domain.Units{XU: cur.XU, YU: cur.YU, WU: wu, HU: hu}
	_, hasX := intArg(args, "xu")
	_, hasY := intArg(args, "yu")
	if hasX || hasY {
		target.XU, target.YU = intArgOr(args, "xu", cur.XU), intArgOr(args, "yu", cur.YU)
	} else {
		slot, ok := s.placer.NextSlot(bounds, siblingUnits(sec, id), wu, hu)
		if !ok {
			log.Printf("mcp: no free slot for %s in %s, placing below", id, sec.ID)
		}
		target = slot
	}
	if target != cur {
		if err := ed.UpdateNodeLayout(sec.ID, id, target); err != nil {
			return nil, fmt.Errorf("place element: %w", err)
		}
	}
	return s.nodeResult(id)
}

func (s *Server) handleMoveNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id := req.GetString("nodeId", "")
	sec, _, err := s.locate(id)
	if err != nil {
		return nil, err
	}
	xu, okX := intArg(args, "xu")
	yu, okY := intArg(args, "yu")
	if !okX || !okY {
		return nil, fmt.Errorf("xu and yu are required")
	}
	u := sec.EffectiveUnits()[id]
	u.XU, u.YU = xu, yu
	if err := s.pages.Editor().UpdateNodeLayout(sec.ID, id, u); err != nil {
		return nil, fmt.Errorf("move node: %w", err)
	}
	return s.nodeResult(id)
}

func (s *Server) handleResizeNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id := req.GetString("nodeId", "")
	sec, _, err := s.locate(id)
	if err != nil {
		return nil, err
	}
	wu, okW := intArg(args, "wu")
	hu, okH := intArg(args, "hu")
	if !okW || !okH {
		return nil, fmt.Errorf("wu and hu are required")
	}
	u := sec.EffectiveUnits()[id]
	u.WU, u.HU = wu, hu
	if err := s.pages.Editor().UpdateNodeLayout(sec.ID, id, u); err != nil {
		return nil, fmt.Errorf("resize node: %w", err)
	}
	return s.nodeResult(id)
}

func (s *Server) handleCenterNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("nodeId", "")
	sec, _, err := s.locate(id)
	if err != nil {
		return nil, err
	}
	axis := editor.Axis(req.GetString("axis", string(editor.AxisBoth)))
	if err := s.pages.Editor().CenterNode(sec.ID, id, axis); err != nil {
		return nil, fmt.Errorf("center node: %w", err)
	}
	return s.nodeResult(id)
}

func (s *Server) handleSetProp(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("nodeId", "")
	key := req.GetString("key", "")
	if key == "" {
		return nil, fmt.Errorf("key is required")
	}
	sec, _, err := s.locate(id)
	if err != nil {
		return nil, err
	}
	ed := s.pages.Editor()

	if locale := req.GetString("locale", ""); locale != "" {
		prev := ed.State().ActiveLocale
		if err := ed.SetActiveLocale(locale); err != nil {
			return nil, fmt.Errorf("set prop: %w", err)
		}
		defer func() {
			if err := ed.SetActiveLocale(prev); err != nil {
				log.Printf("mcp: restore locale %s: %v", prev, err)
			}
		}()
	}
	if err := ed.SetProp(sec.ID, id, key, parseValue(req.GetString("value", ""))); err != nil {
		return nil, fmt.Errorf("set prop: %w", err)
	}
	return s.nodeResult(id)
}

func (s *Server) handleDeleteNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("nodeId", "")
	sec, n, err := s.locate(id)
	if err != nil {
		return nil, err
	}
	desc := fmt.Sprintf("Delete %s %q from section %q", n.Type, n.Label(), sec.Name())
	if err := s.approval.Request(ctx, "delete_node", desc,
		fmt.Sprintf(`{"sectionId":%q,"nodeId":%q}`, sec.ID, id)); err != nil {
		return nil, err
	}
	if err := s.pages.Editor().DeleteNode(sec.ID, id); err != nil {
		return nil, fmt.Errorf("delete node: %w", err)
	}
	return textResult(fmt.Sprintf("Deleted %s", id)), nil
}

// nodeResult reports a node as it is after a change.
func (s *Server) nodeResult(id string) (*mcp.CallToolResult, error) {
	sec, n, err := s.locate(id)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{
		"id":        n.ID,
		"type":      n.Type,
		"sectionId": sec.ID,
		"units":     sec.EffectiveUnits()[id],
		"props":     n.Props,
		"i18n":      n.I18n,
	})
}
