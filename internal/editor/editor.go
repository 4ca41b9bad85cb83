package editor

import (
	"log"
	"slices"
	"sync"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/grid"
	"pagebuilder/internal/history"
	"pagebuilder/internal/layout"
)

// DefaultContainerWidth is used for sections the canvas has not measured yet.
const DefaultContainerWidth = 1200

// Change tells listeners what part of the editor moved.
type Change uint8

const (
	ChangeDocument Change = 1 << iota
	ChangeState
	ChangeHistory
)

func (c Change) Has(flag Change) bool { return c&flag != 0 }

// Listener is called after a change, outside the editor lock.
type Listener func(Change)

// Options configures an Editor. Zero values get sensible defaults.
type Options struct {
	HistoryLimit int
	NewID        domain.IDFunc
	Presets      map[string]domain.Preset
	Clipboard    SystemClipboard
	Measurer     layout.Measurer
	Engine       *layout.Engine
	AssetBaseURL string
}

// Editor is the single coordinator that owns the document, the transient
// editor state and the history. All methods are safe for concurrent use;
// mutations are serialized and listeners run after the lock is released.
type Editor struct {
	mu        sync.Mutex
	page      *domain.Page
	state     State
	history   *history.Stack
	engine    *layout.Engine
	newID     domain.IDFunc
	presets   map[string]domain.Preset
	clipboard SystemClipboard
	measurer  layout.Measurer
	assetBase string

	gesture *gesture
	grids   map[string]*gridAdjust
	edit    *nodeEdit

	changed   Change
	listeners []Listener
}

// New creates an editor over p. A nil page starts from an empty draft.
func New(p *domain.Page, opts Options) *Editor {
	if opts.NewID == nil {
		opts.NewID = domain.NewID
	}
	if opts.Presets == nil {
		opts.Presets = domain.BuiltinPresets()
	}
	if opts.Engine == nil {
		opts.Engine = layout.NewEngine(nil)
	}
	if p == nil {
		p = domain.NewPage("", opts.NewID)
	}
	p.Migrate()
	return &Editor{
		page:      p,
		state:     newState(p.DefaultLocale),
		history:   history.New(opts.HistoryLimit),
		engine:    opts.Engine,
		newID:     opts.NewID,
		presets:   opts.Presets,
		clipboard: opts.Clipboard,
		measurer:  opts.Measurer,
		assetBase: opts.AssetBaseURL,
		grids:     make(map[string]*gridAdjust),
	}
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (e *Editor) Subscribe(fn Listener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
	idx := len(e.listeners) - 1
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if idx < len(e.listeners) {
			e.listeners[idx] = nil
		}
	}
}

// do runs fn under the lock and notifies listeners of whatever fn marked
// as changed, even when fn fails part way.
func (e *Editor) do(fn func() error) error {
	e.mu.Lock()
	err := fn()
	changed := e.changed
	e.changed = 0
	listeners := slices.Clone(e.listeners)
	e.mu.Unlock()
	if changed != 0 {
		for _, l := range listeners {
			if l != nil {
				l(changed)
			}
		}
	}
	return err
}

func (e *Editor) mark(c Change) { e.changed |= c }

// record pushes a onto the history unless recording is suspended.
func (e *Editor) record(a history.Action) {
	if e.history.Push(a) {
		e.mark(ChangeHistory)
	}
}

// ── Read access ────────────────────────────────────────────

// Page returns a deep copy of the current document.
func (e *Editor) Page() *domain.Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page.Clone()
}

// State returns a copy of the transient editor state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// Selection returns the current selection or nil.
func (e *Editor) Selection() *domain.Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Selection.Clone()
}

// CanUndo and CanRedo report whether history has entries to apply.
func (e *Editor) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanUndo()
}

func (e *Editor) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanRedo()
}

// HistoryLabels lists undo and redo entries, most recent first.
func (e *Editor) HistoryLabels() (undo, redo []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Labels()
}

// ContainerWidth implements layout.Measurer from the widths reported by
// the canvas.
func (e *Editor) ContainerWidth(sectionID string) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.state.ContainerWidths[sectionID]
	return w, ok
}

// ── Document replacement ───────────────────────────────────

// Replace swaps in a freshly loaded document. History, gestures and
// selection are reset because they refer to the old tree.
func (e *Editor) Replace(p *domain.Page) {
	_ = e.do(func() error {
		p = p.Clone()
		p.Migrate()
		e.abortInteractions()
		e.page = p
		e.history.Clear()
		widths := e.state.ContainerWidths
		clip := e.state.Clipboard
		e.state = newState(p.DefaultLocale)
		e.state.ContainerWidths = widths
		e.state.Clipboard = clip
		e.mark(ChangeDocument | ChangeState | ChangeHistory)
		return nil
	})
}

// ── Undo / redo ────────────────────────────────────────────

// Undo reverts the most recent entry. A failed application is rolled back
// and reported as InternalInvariant.
func (e *Editor) Undo() error {
	return e.do(func() error { return e.applyHistory("undo", e.history.Undo) })
}

// Redo reapplies the most recently undone entry.
func (e *Editor) Redo() error {
	return e.do(func() error { return e.applyHistory("redo", e.history.Redo) })
}

func (e *Editor) applyHistory(op string, step func(history.Target) (history.Action, error)) error {
	e.commitEdit()
	e.abortInteractions()
	page := e.page.Clone()
	state := e.state.clone()
	a, err := step(e)
	if a == nil && err == nil {
		return nil
	}
	if err == nil {
		err = e.page.Validate()
		if err != nil {
			// the action already moved stacks; move it back
			_, _ = e.reverse(op)
		}
	}
	if err != nil {
		e.page = page
		e.state = state
		log.Printf("editor: %s %q failed, rolled back: %v", op, a.Label(), err)
		e.mark(ChangeDocument | ChangeState)
		return domain.Wrap(domain.KindInternalInvariant, op, err)
	}
	e.dropStaleState()
	e.mark(ChangeHistory)
	return nil
}

// reverse moves the last applied entry back without touching the page,
// which the caller restores from its snapshot.
func (e *Editor) reverse(op string) (history.Action, error) {
	noop := noopTarget{}
	if op == "undo" {
		return e.history.Redo(noop)
	}
	return e.history.Undo(noop)
}

type noopTarget struct{}

func (noopTarget) ApplyLayout(string, string, domain.Units, bool) error { return nil }
func (noopTarget) ApplyNode(string, *domain.Node) error                { return nil }
func (noopTarget) ApplyGrid(string, domain.BuilderGrid) error          { return nil }
func (noopTarget) ApplySelection(*domain.Selection) error              { return nil }
func (noopTarget) ApplyDocument(*domain.Page, *domain.Selection) error { return nil }

// ── history.Target ─────────────────────────────────────────

func (e *Editor) ApplyLayout(sectionID, nodeID string, u domain.Units, cascade bool) error {
	_, n, err := e.lookup(sectionID, nodeID)
	if err != nil {
		return err
	}
	if !u.Valid() {
		return domain.Errorf(domain.KindInternalInvariant, "apply layout", "units %s for %s", u, nodeID)
	}
	if cascade && n.IsContainer() {
		n.MoveTo(u)
	} else {
		n.SetUnits(u)
	}
	e.mark(ChangeDocument)
	return nil
}

func (e *Editor) ApplyNode(sectionID string, snap *domain.Node) error {
	if snap == nil {
		return domain.Errorf(domain.KindInternalInvariant, "apply node", "empty snapshot")
	}
	_, n, err := e.lookup(sectionID, snap.ID)
	if err != nil {
		return err
	}
	n.Props = snap.Props
	n.Style = snap.Style
	n.I18n = snap.I18n
	n.Extra = snap.Extra
	e.mark(ChangeDocument)
	return nil
}

func (e *Editor) ApplyGrid(sectionID string, g domain.BuilderGrid) error {
	s := e.page.Section(sectionID)
	if s == nil {
		return domain.Errorf(domain.KindUnknownNode, "apply grid", "section %s", sectionID)
	}
	g = g.Clamp()
	s.BuilderGrid = &g
	e.mark(ChangeDocument)
	return nil
}

func (e *Editor) ApplySelection(sel *domain.Selection) error {
	e.setSelection(sel)
	return nil
}

func (e *Editor) ApplyDocument(p *domain.Page, sel *domain.Selection) error {
	if p == nil {
		return domain.Errorf(domain.KindInternalInvariant, "apply document", "empty snapshot")
	}
	if err := p.Validate(); err != nil {
		return err
	}
	e.page = p
	e.setSelection(sel)
	e.mark(ChangeDocument)
	return nil
}

// ── Internal helpers ───────────────────────────────────────

func (e *Editor) lookup(sectionID, nodeID string) (*domain.Section, *domain.Node, error) {
	s := e.page.Section(sectionID)
	if s == nil {
		return nil, nil, domain.Errorf(domain.KindUnknownNode, "lookup", "section %s", sectionID)
	}
	n := s.FindNode(nodeID)
	if n == nil {
		return nil, nil, domain.Errorf(domain.KindUnknownNode, "lookup", "node %s in section %s", nodeID, sectionID)
	}
	return s, n, nil
}

// setSelection changes the selection without recording it. A different
// selection aborts gestures and discards the pixel cache.
func (e *Editor) setSelection(sel *domain.Selection) {
	if e.state.Selection.Equal(sel) {
		return
	}
	e.commitEdit()
	e.abortInteractions()
	e.state.Selection = sel.Clone()
	e.state.Editing = false
	e.mark(ChangeState)
}

// selectRecorded changes the selection and records the transition.
func (e *Editor) selectRecorded(sel *domain.Selection) {
	prev := e.state.Selection.Clone()
	if prev.Equal(sel) {
		return
	}
	e.setSelection(sel)
	e.record(&history.SelectAction{Prev: prev, Next: sel.Clone()})
}

// dropStaleState clears references to nodes that no longer exist.
func (e *Editor) dropStaleState() {
	if sel := e.state.Selection; sel != nil {
		s := e.page.Section(sel.SectionID)
		if s == nil || (sel.NodeID != "" && s.FindNode(sel.NodeID) == nil) {
			e.state.Selection = nil
			e.state.Editing = false
			e.mark(ChangeState)
		}
	}
	exists := func(id string) bool {
		_, n := e.page.FindNode(id)
		return n != nil
	}
	if e.state.HoveredNodeID != "" && !exists(e.state.HoveredNodeID) {
		e.state.HoveredNodeID = ""
		e.mark(ChangeState)
	}
	if e.state.HighlightNodeID != "" && !exists(e.state.HighlightNodeID) {
		e.state.HighlightNodeID = ""
		e.mark(ChangeState)
	}
	if e.state.InspectorNodeID != "" && !exists(e.state.InspectorNodeID) {
		e.state.InspectorNodeID = ""
		e.mark(ChangeState)
	}
	for id := range e.state.PaddingOverlay {
		if !exists(id) {
			delete(e.state.PaddingOverlay, id)
			e.mark(ChangeState)
		}
	}
	if !e.page.HasLocale(e.state.ActiveLocale) {
		e.state.ActiveLocale = e.page.DefaultLocale
		e.mark(ChangeState)
	}
}

// width returns the container width for a section: measured by the
// canvas, then the external measurer, then the default.
func (e *Editor) width(sectionID string) float64 {
	if w, ok := e.state.ContainerWidths[sectionID]; ok && w > 0 {
		return w
	}
	if e.measurer != nil {
		if w, ok := e.measurer.ContainerWidth(sectionID); ok && w > 0 {
			return w
		}
	}
	return DefaultContainerWidth
}

func (e *Editor) transform(s *domain.Section) (grid.Transform, error) {
	return e.engine.Transform(s, e.width(s.ID))
}
