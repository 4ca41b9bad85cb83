package layout

import (
	"pagebuilder/internal/domain"
	"pagebuilder/internal/grid"
)

// Measurer reports the measured content width of a section. The desktop
// shell feeds it from the canvas size observer; tests stub it.
type Measurer interface {
	ContainerWidth(sectionID string) (float64, bool)
}

// PixelSource supplies cached pixel rectangles that override units while
// a section's grid is being adjusted.
type PixelSource interface {
	CachedRect(sectionID, nodeID string) (grid.Rect, bool)
}

// Placement is one resolved node. Units and Rect are section-relative.
type Placement struct {
	NodeID    string          `json:"nodeId"`
	Type      domain.NodeType `json:"type"`
	ParentID  string          `json:"parentId,omitempty"`
	Depth     int             `json:"depth"`
	Units     domain.Units    `json:"units"`
	Bounds    domain.Units    `json:"bounds"`
	Rect      grid.Rect       `json:"rect"`
	FromCache bool            `json:"fromCache,omitempty"`
}

// SectionLayout is the resolved geometry of one section. Placements are
// in paint order: parents before children, earlier siblings first.
type SectionLayout struct {
	SectionID  string         `json:"sectionId"`
	Transform  grid.Transform `json:"transform"`
	Height     float64        `json:"height"`
	Placements []Placement    `json:"placements"`

	index map[string]int
}

// Placement looks up a resolved node.
func (l *SectionLayout) Placement(nodeID string) (Placement, bool) {
	i, ok := l.index[nodeID]
	if !ok {
		return Placement{}, false
	}
	return l.Placements[i], true
}

// Engine resolves section geometry. It is safe for concurrent use.
type Engine struct {
	transforms *grid.Cache
}

func NewEngine(cache *grid.Cache) *Engine {
	if cache == nil {
		cache = grid.NewCache(0)
	}
	return &Engine{transforms: cache}
}

// Transform returns the memoized transform of s at the given width.
func (e *Engine) Transform(s *domain.Section, widthPx float64) (grid.Transform, error) {
	g := s.Grid()
	return e.transforms.Get(widthPx, g.Cols, g.Aspect.Num, g.Aspect.Den)
}

// Resolve computes every node's pixel rectangle. On invalid geometry the
// layout is still produced with a one-pixel cell and the error returned
// alongside it.
func (e *Engine) Resolve(s *domain.Section, widthPx float64, pixels PixelSource) (*SectionLayout, error) {
	t, err := e.Transform(s, widthPx)
	if err != nil {
		g := s.Grid()
		t, _ = grid.NewOrFallback(widthPx, g.Cols, g.Aspect.Num, g.Aspect.Den)
	}
	out := &SectionLayout{
		SectionID: s.ID,
		Transform: t,
		Height:    t.VirtualHeight(),
		index:     make(map[string]int),
	}
	var visit func(nodes []*domain.Node, parentID string, origin, bounds domain.Units, depth int)
	visit = func(nodes []*domain.Node, parentID string, origin, bounds domain.Units, depth int) {
		for _, n := range nodes {
			u := n.UnitsAt(origin.XU, origin.YU)
			p := Placement{
				NodeID:   n.ID,
				Type:     n.Type,
				ParentID: parentID,
				Depth:    depth,
				Units:    u,
				Bounds:   bounds,
				Rect:     t.ToPx(u),
			}
			if pixels != nil {
				if r, ok := pixels.CachedRect(s.ID, n.ID); ok {
					p.Rect, p.FromCache = r, true
				}
			}
			out.index[n.ID] = len(out.Placements)
			out.Placements = append(out.Placements, p)
			inner := bounds
			if n.IsContainer() {
				inner = u
			}
			visit(n.Children, n.ID, u, inner, depth+1)
		}
	}
	visit(s.Children, "", domain.Units{}, t.Bounds(), 0)
	return out, err
}

// RootBounds is the parent rectangle of top-level nodes.
func RootBounds(s *domain.Section) domain.Units {
	g := s.Grid()
	return domain.Units{WU: g.Cols, HU: g.Rows()}
}

// ParentBounds returns the rectangle a node must stay inside: the units
// of its nearest container ancestor, or the section grid at the root.
func ParentBounds(s *domain.Section, nodeID string) (domain.Units, error) {
	bounds := RootBounds(s)
	var found bool
	var visit func(nodes []*domain.Node, origin, b domain.Units) bool
	visit = func(nodes []*domain.Node, origin, b domain.Units) bool {
		for _, n := range nodes {
			if n.ID == nodeID {
				bounds, found = b, true
				return true
			}
			u := n.UnitsAt(origin.XU, origin.YU)
			inner := b
			if n.IsContainer() {
				inner = u
			}
			if visit(n.Children, u, inner) {
				return true
			}
		}
		return false
	}
	visit(s.Children, domain.Units{}, bounds)
	if !found {
		return domain.Units{}, domain.Errorf(domain.KindUnknownNode, "parent bounds", "node %s not in section %s", nodeID, s.ID)
	}
	return bounds, nil
}

// ClampMove keeps u inside parent, shrinking nothing.
func ClampMove(u, parent domain.Units) domain.Units {
	u = u.Sanitize()
	u.XU = clamp(u.XU, parent.XU, parent.XU+max(0, parent.WU-u.WU))
	u.YU = clamp(u.YU, parent.YU, parent.YU+max(0, parent.HU-u.HU))
	return u
}

// ClampResize limits the size of u to the parent extent remaining from
// its origin, then clamps the position.
func ClampResize(u, parent domain.Units) domain.Units {
	u = u.Sanitize()
	u.XU = clamp(u.XU, parent.XU, parent.XU+max(0, parent.WU-1))
	u.YU = clamp(u.YU, parent.YU, parent.YU+max(0, parent.HU-1))
	u.WU = clamp(u.WU, 1, max(1, parent.XU+parent.WU-u.XU))
	u.HU = clamp(u.HU, 1, max(1, parent.YU+parent.HU-u.YU))
	return ClampMove(u, parent)
}

// CenterHorizontal centers u across the parent width.
func CenterHorizontal(u, parent domain.Units) domain.Units {
	u.XU = parent.XU + grid.Round(float64(max(0, parent.WU-u.WU))/2)
	return u
}

// CenterVertical centers u across the parent height.
func CenterVertical(u, parent domain.Units) domain.Units {
	u.YU = parent.YU + grid.Round(float64(max(0, parent.HU-u.HU))/2)
	return u
}

// HitTest returns the topmost node under (x, y). Children paint above
// their container and later siblings above earlier ones, so the last
// matching placement wins.
func HitTest(l *SectionLayout, x, y float64) (Placement, bool) {
	for i := len(l.Placements) - 1; i >= 0; i-- {
		p := l.Placements[i]
		r := p.Rect
		if x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H {
			return p, true
		}
	}
	return Placement{}, false
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
