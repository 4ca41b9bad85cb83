package editor

import (
	"slices"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/layout"
)

// ContentID is the DOM id of a section's content root, used by the canvas
// for geometric queries.
func ContentID(sectionID string) string { return "section-content-" + sectionID }

// View is a read-only snapshot for the canvas renderer.
type View struct {
	Slug            string                `json:"slug"`
	Title           string                `json:"title"`
	StyleTokens     map[string]any        `json:"styleTokens,omitempty"`
	Locales         []string              `json:"locales"`
	DefaultLocale   string                `json:"defaultLocale"`
	ActiveLocale    string                `json:"activeLocale"`
	Sections        []SectionView         `json:"sections"`
	Selection       *domain.Selection     `json:"selection"`
	HoveredNodeID   string                `json:"hoveredNodeId,omitempty"`
	HighlightNodeID string                `json:"highlightNodeId,omitempty"`
	InspectorNodeID string                `json:"inspectorNodeId,omitempty"`
	Editing         bool                  `json:"editing"`
	AdjustingGrid   []string              `json:"adjustingGrid"`
	PaddingOverlay  map[string][4]float64 `json:"paddingOverlay"`
	CanUndo         bool                  `json:"canUndo"`
	CanRedo         bool                  `json:"canRedo"`
}

// SectionView is one resolved section.
type SectionView struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	ContentID   string             `json:"contentId"`
	Grid        domain.BuilderGrid `json:"grid"`
	Background  *domain.Background `json:"background,omitempty"`
	StyleTokens map[string]any     `json:"styleTokens,omitempty"`
	Width       float64            `json:"width"`
	Height      float64            `json:"height"`
	CellPx      float64            `json:"cellPx"`
	Nodes       []NodeView         `json:"nodes"`
	Error       string             `json:"error,omitempty"`
}

// NodeView is one node in paint order with its props resolved for the
// active locale and the DOM attributes the canvas must set.
type NodeView struct {
	layout.Placement
	Props       map[string]any    `json:"props"`
	Style       map[string]any    `json:"style,omitempty"`
	Attrs       map[string]string `json:"attrs"`
	Selected    bool              `json:"selected,omitempty"`
	Hovered     bool              `json:"hovered,omitempty"`
	Highlighted bool              `json:"highlighted,omitempty"`
	Padding     *[4]float64       `json:"padding,omitempty"`
}

// View resolves the whole page for rendering.
func (e *Editor) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.page.Clone()
	st := e.state
	v := View{
		Slug:            p.Slug,
		Title:           p.Title,
		StyleTokens:     p.StyleTokens,
		Locales:         p.Locales,
		DefaultLocale:   p.DefaultLocale,
		ActiveLocale:    st.ActiveLocale,
		Selection:       st.Selection.Clone(),
		HoveredNodeID:   st.HoveredNodeID,
		HighlightNodeID: st.HighlightNodeID,
		InspectorNodeID: st.InspectorNodeID,
		Editing:         st.Editing,
		PaddingOverlay:  make(map[string][4]float64, len(st.PaddingOverlay)),
		CanUndo:         e.history.CanUndo(),
		CanRedo:         e.history.CanRedo(),
	}
	for id, pad := range st.PaddingOverlay {
		v.PaddingOverlay[id] = pad
	}
	for id := range st.AdjustingGrid {
		v.AdjustingGrid = append(v.AdjustingGrid, id)
	}
	slices.Sort(v.AdjustingGrid)
	pixels := pixelSource(st.PixelCache)
	for _, s := range p.Sections {
		v.Sections = append(v.Sections, e.sectionView(s, pixels, p.DefaultLocale))
	}
	return v
}

func (e *Editor) sectionView(s *domain.Section, pixels pixelSource, defaultLocale string) SectionView {
	width := e.width(s.ID)
	sv := SectionView{
		ID:          s.ID,
		Name:        s.Name(),
		ContentID:   ContentID(s.ID),
		Grid:        s.Grid(),
		Background:  s.Background,
		StyleTokens: s.StyleTokens,
		Width:       width,
	}
	l, err := e.engine.Resolve(s, width, pixels)
	if err != nil {
		sv.Error = err.Error()
	}
	sv.Height = l.Height
	sv.CellPx = l.Transform.CellPx
	sel := e.state.Selection
	for _, pl := range l.Placements {
		n := s.FindNode(pl.NodeID)
		nv := NodeView{
			Placement: pl,
			Props:     e.resolvedProps(n, defaultLocale),
			Style:     n.Style,
			Attrs: map[string]string{
				"data-node-id":   n.ID,
				"data-node-type": string(n.Type),
				"data-draggable": "true",
			},
			Selected:    sel != nil && sel.SectionID == s.ID && sel.NodeID == n.ID,
			Hovered:     e.state.HoveredNodeID == n.ID,
			Highlighted: e.state.HighlightNodeID == n.ID,
		}
		if pad, ok := e.state.PaddingOverlay[n.ID]; ok {
			nv.Padding = &pad
		}
		sv.Nodes = append(sv.Nodes, nv)
	}
	return sv
}

func (e *Editor) resolvedProps(n *domain.Node, defaultLocale string) map[string]any {
	out := make(map[string]any, len(n.Props))
	for k, v := range n.Props {
		out[k] = v
	}
	if e.state.ActiveLocale != defaultLocale {
		for key := range n.I18n[e.state.ActiveLocale] {
			if v := domain.ResolveProp(n, key, e.state.ActiveLocale, defaultLocale); v != nil {
				out[key] = v
			}
		}
	}
	if n.Type == domain.NodeImage {
		if src, ok := out["src"].(string); ok {
			out["src"] = domain.ImageURL(src, e.assetBase)
		}
	}
	return out
}

// HitTest returns the topmost node at a point in a section's content
// coordinates.
func (e *Editor) HitTest(sectionID string, x, y float64) (layout.Placement, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.page.Section(sectionID)
	if s == nil {
		return layout.Placement{}, false
	}
	l, _ := e.engine.Resolve(s, e.width(sectionID), pixelSource(e.state.PixelCache))
	return layout.HitTest(l, x, y)
}

// ── Renderer callbacks ─────────────────────────────────────

// OnNodeClick selects a node.
func (e *Editor) OnNodeClick(sectionID, nodeID string) error {
	return e.Select(sectionID, nodeID)
}

// OnNodeDoubleClick selects a node and opens the element inspector.
func (e *Editor) OnNodeDoubleClick(sectionID, nodeID string) error {
	if err := e.Select(sectionID, nodeID); err != nil {
		return err
	}
	return e.do(func() error {
		e.state.InspectorNodeID = nodeID
		e.mark(ChangeState)
		return nil
	})
}

// OnNodeHover tracks the hovered node; empty means none.
func (e *Editor) OnNodeHover(nodeID string) {
	e.SetHover(nodeID)
}

// OnUpdateNodeLayout commits a drag or resize finished by the renderer.
func (e *Editor) OnUpdateNodeLayout(sectionID, nodeID string, u domain.Units) error {
	return e.UpdateNodeLayout(sectionID, nodeID, u)
}
