package editor

import (
	"maps"
	"reflect"
	"strings"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/grid"
	"pagebuilder/internal/history"
	"pagebuilder/internal/layout"
)

// Handle names the resize handle being dragged.
type Handle string

const (
	HandleN  Handle = "n"
	HandleS  Handle = "s"
	HandleE  Handle = "e"
	HandleW  Handle = "w"
	HandleNE Handle = "ne"
	HandleNW Handle = "nw"
	HandleSE Handle = "se"
	HandleSW Handle = "sw"
)

func (h Handle) has(edge byte) bool {
	return strings.IndexByte(string(h), edge) >= 0
}

// gesture is an in-flight drag or resize. The working copy in the page is
// updated on every pointer move; history only sees the final result.
type gesture struct {
	sectionID   string
	nodeID      string
	resize      Handle
	prev        domain.Units
	bounds      domain.Units
	descendants map[string]domain.Units
	transform   grid.Transform
}

// gridAdjust is an in-flight grid change of one section.
type gridAdjust struct {
	prevGrid *domain.BuilderGrid
	prev     domain.BuilderGrid
}

// nodeEdit coalesces prop and style writes on one node into one entry.
type nodeEdit struct {
	sectionID string
	prev      *domain.Node
}

var errEditing = domain.Errorf(domain.KindInvalidInput, "begin drag", "node is being edited in place")

// ── Drag and resize ────────────────────────────────────────

// BeginDrag starts moving a node. It is refused while text is edited in
// place.
func (e *Editor) BeginDrag(sectionID, nodeID string) error {
	return e.do(func() error { return e.beginGesture(sectionID, nodeID, "") })
}

// BeginResize starts resizing a node from the given handle.
func (e *Editor) BeginResize(sectionID, nodeID string, h Handle) error {
	if h == "" {
		h = HandleSE
	}
	return e.do(func() error { return e.beginGesture(sectionID, nodeID, h) })
}

func (e *Editor) beginGesture(sectionID, nodeID string, h Handle) error {
	if e.state.Editing {
		return errEditing
	}
	e.cancelGesture()
	s, n, err := e.lookup(sectionID, nodeID)
	if err != nil {
		return err
	}
	t, err := e.transform(s)
	if err != nil {
		return err
	}
	bounds, err := layout.ParentBounds(s, nodeID)
	if err != nil {
		return err
	}
	eff := s.EffectiveUnits()
	g := &gesture{
		sectionID:   sectionID,
		nodeID:      nodeID,
		resize:      h,
		prev:        eff[nodeID],
		bounds:      bounds,
		descendants: make(map[string]domain.Units),
		transform:   t,
	}
	n.SetUnits(g.prev)
	for _, d := range n.Descendants() {
		d.SetUnits(eff[d.ID])
		g.descendants[d.ID] = eff[d.ID]
	}
	e.gesture = g
	return nil
}

// DragTo moves the working copy by a pointer delta in pixels measured
// from where the gesture started.
func (e *Editor) DragTo(dxPx, dyPx float64) error {
	return e.do(func() error {
		g := e.gesture
		if g == nil {
			return nil
		}
		_, n, err := e.lookup(g.sectionID, g.nodeID)
		if err != nil {
			e.gesture = nil
			return err
		}
		dx, dy := g.transform.DeltaUnits(dxPx, dyPx)
		var next domain.Units
		if g.resize != "" {
			next = resizeUnits(g.prev, g.bounds, g.resize, dx, dy)
		} else {
			next = layout.ClampMove(g.prev.Translate(dx, dy), g.bounds)
		}
		if next == n.Units() {
			return nil
		}
		n.SetUnits(next)
		if g.resize == "" && n.IsContainer() {
			mx, my := next.XU-g.prev.XU, next.YU-g.prev.YU
			for _, d := range n.Descendants() {
				d.SetUnits(g.descendants[d.ID].Translate(mx, my).Sanitize())
			}
		}
		e.mark(ChangeDocument)
		return nil
	})
}

// resizeUnits moves the edges named by h. West and north edges keep the
// opposite edge fixed; sizes never drop below one cell.
func resizeUnits(prev, bounds domain.Units, h Handle, dx, dy int) domain.Units {
	u := prev
	right, bottom := prev.XU+prev.WU, prev.YU+prev.HU
	if h.has('w') {
		u.XU = min(max(prev.XU+dx, bounds.XU), right-1)
		u.WU = right - u.XU
	}
	if h.has('n') {
		u.YU = min(max(prev.YU+dy, bounds.YU), bottom-1)
		u.HU = bottom - u.YU
	}
	if h.has('e') {
		u.WU = prev.WU + dx
	}
	if h.has('s') {
		u.HU = prev.HU + dy
	}
	return layout.ClampResize(u, bounds)
}

// EndDrag commits the gesture as one history entry. A moved container is
// recorded together with its shifted descendants.
func (e *Editor) EndDrag() error {
	return e.do(func() error {
		g := e.gesture
		e.gesture = nil
		if g == nil {
			return nil
		}
		_, n, err := e.lookup(g.sectionID, g.nodeID)
		if err != nil {
			return err
		}
		e.recordLayout(g.sectionID, n, g.prev, g.descendants)
		return nil
	})
}

// CancelDrag restores the node and its descendants to where the gesture
// started.
func (e *Editor) CancelDrag() {
	_ = e.do(func() error {
		e.cancelGesture()
		return nil
	})
}

func (e *Editor) cancelGesture() {
	g := e.gesture
	if g == nil {
		return
	}
	e.gesture = nil
	s := e.page.Section(g.sectionID)
	if s == nil {
		return
	}
	if n := s.FindNode(g.nodeID); n != nil {
		n.SetUnits(g.prev)
		for _, d := range n.Descendants() {
			if u, ok := g.descendants[d.ID]; ok {
				d.SetUnits(u)
			}
		}
	}
	e.mark(ChangeDocument)
}

// recordLayout pushes the change of n from prev (and of its descendants
// from prevDesc) to their current units.
func (e *Editor) recordLayout(sectionID string, n *domain.Node, prev domain.Units, prevDesc map[string]domain.Units) {
	next := n.Units()
	if next == prev {
		return
	}
	main := &history.LayoutAction{SectionID: sectionID, NodeID: n.ID, Prev: prev, Next: next}
	var steps []history.Action
	for _, d := range n.Descendants() {
		before, ok := prevDesc[d.ID]
		if !ok || before == d.Units() {
			continue
		}
		steps = append(steps, &history.LayoutAction{SectionID: sectionID, NodeID: d.ID, Prev: before, Next: d.Units()})
	}
	if len(steps) == 0 {
		e.record(main)
		return
	}
	e.record(&history.Group{Name: "Move container", Actions: append([]history.Action{main}, steps...)})
}

// UpdateNodeLayout commits a layout change made by the renderer in one
// step. The result is clamped to the parent; moving a container carries
// its descendants.
func (e *Editor) UpdateNodeLayout(sectionID, nodeID string, u domain.Units) error {
	return e.do(func() error { return e.updateNodeLayout(sectionID, nodeID, u) })
}

func (e *Editor) updateNodeLayout(sectionID, nodeID string, u domain.Units) error {
	e.cancelGesture()
	s, n, err := e.lookup(sectionID, nodeID)
	if err != nil {
		return err
	}
	bounds, err := layout.ParentBounds(s, nodeID)
	if err != nil {
		return err
	}
	eff := s.EffectiveUnits()
	prev := eff[nodeID]
	var next domain.Units
	if u.WU != prev.WU || u.HU != prev.HU {
		next = layout.ClampResize(u, bounds)
	} else {
		next = layout.ClampMove(u, bounds)
	}
	if next == prev {
		return nil
	}
	prevDesc := make(map[string]domain.Units)
	for _, d := range n.Descendants() {
		prevDesc[d.ID] = eff[d.ID]
		d.SetUnits(eff[d.ID])
	}
	n.SetUnits(next)
	if n.IsContainer() {
		n.ShiftDescendants(next.XU-prev.XU, next.YU-prev.YU)
	}
	e.recordLayout(sectionID, n, prev, prevDesc)
	e.mark(ChangeDocument)
	return nil
}

// Axis selects the centering direction.
type Axis string

const (
	AxisHorizontal Axis = "horizontal"
	AxisVertical   Axis = "vertical"
	AxisBoth       Axis = "both"
)

// CenterNode centers a node inside its parent bounds.
func (e *Editor) CenterNode(sectionID, nodeID string, axis Axis) error {
	return e.do(func() error {
		s, _, err := e.lookup(sectionID, nodeID)
		if err != nil {
			return err
		}
		bounds, err := layout.ParentBounds(s, nodeID)
		if err != nil {
			return err
		}
		u := s.EffectiveUnits()[nodeID]
		switch axis {
		case AxisHorizontal:
			u = layout.CenterHorizontal(u, bounds)
		case AxisVertical:
			u = layout.CenterVertical(u, bounds)
		case AxisBoth, "":
			u = layout.CenterVertical(layout.CenterHorizontal(u, bounds), bounds)
		default:
			return domain.Errorf(domain.KindInvalidInput, "center node", "axis %q", axis)
		}
		return e.updateNodeLayout(sectionID, nodeID, u)
	})
}

// ── Grid adjustment ────────────────────────────────────────

// BeginGridAdjust freezes the pixel rectangles of every node in the
// section so they stay put while the grid resolution changes.
func (e *Editor) BeginGridAdjust(sectionID string) error {
	return e.do(func() error { return e.beginGridAdjust(sectionID) })
}

func (e *Editor) beginGridAdjust(sectionID string) error {
	if e.grids[sectionID] != nil {
		return nil
	}
	s := e.page.Section(sectionID)
	if s == nil {
		return domain.Errorf(domain.KindUnknownNode, "begin grid adjust", "section %s", sectionID)
	}
	l, err := e.engine.Resolve(s, e.width(sectionID), nil)
	if err != nil {
		return err
	}
	ga := &gridAdjust{prev: s.Grid()}
	if s.BuilderGrid != nil {
		g := *s.BuilderGrid
		ga.prevGrid = &g
	}
	for _, p := range l.Placements {
		e.state.PixelCache[p.NodeID] = CachedPixels{SectionID: sectionID, Rect: p.Rect}
	}
	e.grids[sectionID] = ga
	e.state.AdjustingGrid[sectionID] = true
	e.mark(ChangeState)
	return nil
}

// AdjustGrid changes the grid of a section being adjusted. The new values
// are clamped; rendering keeps using the frozen rectangles.
func (e *Editor) AdjustGrid(sectionID string, cols, aspectNum, aspectDen int) error {
	return e.do(func() error {
		if err := e.beginGridAdjust(sectionID); err != nil {
			return err
		}
		s := e.page.Section(sectionID)
		g := s.Grid()
		g.Cols, g.Aspect = cols, domain.Aspect{Num: aspectNum, Den: aspectDen}
		g = g.Clamp()
		s.BuilderGrid = &g
		e.mark(ChangeDocument)
		return nil
	})
}

// SetShowGrid toggles the grid overlay of a section. It is a document
// change recorded like any other grid change.
func (e *Editor) SetShowGrid(sectionID string, show bool) error {
	return e.do(func() error {
		s := e.page.Section(sectionID)
		if s == nil {
			return domain.Errorf(domain.KindUnknownNode, "show grid", "section %s", sectionID)
		}
		prev := s.Grid()
		if prev.ShowGrid == show {
			return nil
		}
		next := prev
		next.ShowGrid = show
		s.BuilderGrid = &next
		e.record(&history.GridAction{SectionID: sectionID, Prev: prev, Next: next})
		e.mark(ChangeDocument)
		return nil
	})
}

// EndGridAdjust snaps every frozen rectangle to the new grid, clears the
// cache and records the grid change with the unit rewrites as one entry.
func (e *Editor) EndGridAdjust(sectionID string) error {
	return e.do(func() error { return e.endGridAdjust(sectionID) })
}

func (e *Editor) endGridAdjust(sectionID string) error {
	ga := e.grids[sectionID]
	if ga == nil {
		return nil
	}
	s := e.page.Section(sectionID)
	cached := e.takePixelCache(sectionID)
	if s == nil {
		return nil
	}
	t, err := e.transform(s)
	if err != nil {
		e.restoreGrid(s, ga)
		return err
	}
	next := s.Grid()
	if next == ga.prev {
		return nil
	}
	steps := []history.Action{&history.GridAction{SectionID: sectionID, Prev: ga.prev, Next: next}}
	eff := s.EffectiveUnits()
	domain.Walk(s.Children, func(n, _ *domain.Node, _ int) bool {
		c, ok := cached[n.ID]
		if !ok {
			return true
		}
		before := eff[n.ID]
		after := t.ToUnits(c.Rect).Sanitize()
		n.SetUnits(after)
		if after != before {
			steps = append(steps, &history.LayoutAction{SectionID: sectionID, NodeID: n.ID, Prev: before, Next: after})
		}
		return true
	})
	e.record(&history.Group{Name: "Change grid", Actions: steps})
	e.mark(ChangeDocument)
	return nil
}

// CancelGridAdjust restores the grid the section had when the adjustment
// started and discards the cache.
func (e *Editor) CancelGridAdjust(sectionID string) {
	_ = e.do(func() error {
		e.cancelGridAdjust(sectionID)
		return nil
	})
}

func (e *Editor) cancelGridAdjust(sectionID string) {
	ga := e.grids[sectionID]
	if ga == nil {
		return
	}
	e.takePixelCache(sectionID)
	if s := e.page.Section(sectionID); s != nil {
		e.restoreGrid(s, ga)
	}
}

func (e *Editor) restoreGrid(s *domain.Section, ga *gridAdjust) {
	s.BuilderGrid = ga.prevGrid
	e.mark(ChangeDocument)
}

// takePixelCache removes and returns the cache entries of a section and
// ends its adjustment.
func (e *Editor) takePixelCache(sectionID string) map[string]CachedPixels {
	out := make(map[string]CachedPixels)
	for id, c := range e.state.PixelCache {
		if c.SectionID == sectionID {
			out[id] = c
			delete(e.state.PixelCache, id)
		}
	}
	delete(e.grids, sectionID)
	delete(e.state.AdjustingGrid, sectionID)
	e.mark(ChangeState)
	return out
}

// SetSectionGrid changes a section grid in one step, keeping every node
// where it was on screen.
func (e *Editor) SetSectionGrid(sectionID string, cols, aspectNum, aspectDen int) error {
	if err := e.BeginGridAdjust(sectionID); err != nil {
		return err
	}
	if err := e.AdjustGrid(sectionID, cols, aspectNum, aspectDen); err != nil {
		e.CancelGridAdjust(sectionID)
		return err
	}
	return e.EndGridAdjust(sectionID)
}

// abortInteractions cancels every in-flight gesture and grid adjustment
// and clears the pixel cache. It records nothing.
func (e *Editor) abortInteractions() {
	e.cancelGesture()
	for id := range maps.Clone(e.grids) {
		e.cancelGridAdjust(id)
	}
	if len(e.state.PixelCache) > 0 {
		clear(e.state.PixelCache)
		e.mark(ChangeState)
	}
}

// ── Node edit sessions ─────────────────────────────────────

// BeginNodeEdit opens an edit session: every prop and style write on the
// node until EndNodeEdit becomes one history entry.
func (e *Editor) BeginNodeEdit(sectionID, nodeID string) error {
	return e.do(func() error { return e.beginEdit(sectionID, nodeID) })
}

func (e *Editor) beginEdit(sectionID, nodeID string) error {
	if e.edit != nil && e.edit.sectionID == sectionID && e.edit.prev.ID == nodeID {
		return nil
	}
	e.commitEdit()
	_, n, err := e.lookup(sectionID, nodeID)
	if err != nil {
		return err
	}
	e.edit = &nodeEdit{sectionID: sectionID, prev: n.Clone()}
	return nil
}

// EndNodeEdit closes the session and records it if anything changed.
func (e *Editor) EndNodeEdit() {
	_ = e.do(func() error {
		e.commitEdit()
		return nil
	})
}

func (e *Editor) commitEdit() {
	ed := e.edit
	if ed == nil {
		return
	}
	e.edit = nil
	_, n, err := e.lookup(ed.sectionID, ed.prev.ID)
	if err != nil || sameContent(ed.prev, n) {
		return
	}
	e.record(&history.NodeAction{SectionID: ed.sectionID, NodeID: n.ID, Prev: ed.prev, Next: n.Clone()})
}

func (e *Editor) inEdit(sectionID, nodeID string) bool {
	return e.edit != nil && e.edit.sectionID == sectionID && e.edit.prev.ID == nodeID
}

func sameContent(a, b *domain.Node) bool {
	return reflect.DeepEqual(a.Props, b.Props) &&
		reflect.DeepEqual(a.Style, b.Style) &&
		reflect.DeepEqual(a.I18n, b.I18n)
}

// SetEditing toggles in-place text editing of the selected node. While on,
// drags are refused and writes coalesce into one entry.
func (e *Editor) SetEditing(on bool) error {
	return e.do(func() error {
		if e.state.Editing == on {
			return nil
		}
		if on {
			sel := e.state.Selection
			if sel == nil || sel.NodeID == "" {
				return domain.Errorf(domain.KindInvalidInput, "edit", "no node selected")
			}
			e.cancelGesture()
			if err := e.beginEdit(sel.SectionID, sel.NodeID); err != nil {
				return err
			}
		} else {
			e.commitEdit()
		}
		e.state.Editing = on
		e.mark(ChangeState)
		return nil
	})
}
