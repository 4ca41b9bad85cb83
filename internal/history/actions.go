package history

import (
	"fmt"

	"pagebuilder/internal/domain"
)

// Target is what actions are applied to. The editor implements it; each
// method must leave the document unchanged when it returns an error.
type Target interface {
	ApplyLayout(sectionID, nodeID string, u domain.Units, cascade bool) error
	ApplyNode(sectionID string, snapshot *domain.Node) error
	ApplyGrid(sectionID string, g domain.BuilderGrid) error
	ApplySelection(sel *domain.Selection) error
	ApplyDocument(p *domain.Page, sel *domain.Selection) error
}

// Action is one undoable entry.
type Action interface {
	Label() string
	Undo(t Target) error
	Redo(t Target) error
}

// LayoutAction records one node's unit rectangle change. With Cascade set
// the target re-applies the container translation to descendants.
type LayoutAction struct {
	SectionID string
	NodeID    string
	Prev      domain.Units
	Next      domain.Units
	Cascade   bool
}

func (a *LayoutAction) Label() string {
	if a.Prev.WU != a.Next.WU || a.Prev.HU != a.Next.HU {
		return "Resize element"
	}
	return "Move element"
}

func (a *LayoutAction) Undo(t Target) error {
	return t.ApplyLayout(a.SectionID, a.NodeID, a.Prev, a.Cascade)
}

func (a *LayoutAction) Redo(t Target) error {
	return t.ApplyLayout(a.SectionID, a.NodeID, a.Next, a.Cascade)
}

// NodeAction records a props, style or i18n change by snapshot.
type NodeAction struct {
	SectionID string
	NodeID    string
	Prev      *domain.Node
	Next      *domain.Node
	Name      string
}

func (a *NodeAction) Label() string {
	if a.Name != "" {
		return a.Name
	}
	return "Edit element"
}

func (a *NodeAction) Undo(t Target) error { return t.ApplyNode(a.SectionID, a.Prev.Clone()) }
func (a *NodeAction) Redo(t Target) error { return t.ApplyNode(a.SectionID, a.Next.Clone()) }

// GridAction records a section grid change. It is always grouped with
// the unit rewrites that kept nodes in place.
type GridAction struct {
	SectionID string
	Prev      domain.BuilderGrid
	Next      domain.BuilderGrid
}

func (a *GridAction) Label() string { return "Change grid" }

func (a *GridAction) Undo(t Target) error { return t.ApplyGrid(a.SectionID, a.Prev) }
func (a *GridAction) Redo(t Target) error { return t.ApplyGrid(a.SectionID, a.Next) }

// SelectAction records a selection transition.
type SelectAction struct {
	Prev *domain.Selection
	Next *domain.Selection
}

func (a *SelectAction) Label() string { return "Select" }

func (a *SelectAction) Undo(t Target) error { return t.ApplySelection(a.Prev.Clone()) }
func (a *SelectAction) Redo(t Target) error { return t.ApplySelection(a.Next.Clone()) }

// DocumentAction records a structural change (sections or subtrees added,
// removed, reordered) as whole-page snapshots together with the selection
// on either side.
type DocumentAction struct {
	Name          string
	Prev          *domain.Page
	Next          *domain.Page
	PrevSelection *domain.Selection
	NextSelection *domain.Selection
}

func (a *DocumentAction) Label() string { return a.Name }

func (a *DocumentAction) Undo(t Target) error {
	return t.ApplyDocument(a.Prev.Clone(), a.PrevSelection.Clone())
}

func (a *DocumentAction) Redo(t Target) error {
	return t.ApplyDocument(a.Next.Clone(), a.NextSelection.Clone())
}

// Group is one interaction that touched several nodes. Undo runs the
// members in reverse.
type Group struct {
	Name    string
	Actions []Action
}

func (g *Group) Label() string { return g.Name }

func (g *Group) Undo(t Target) error {
	for i := len(g.Actions) - 1; i >= 0; i-- {
		if err := g.Actions[i].Undo(t); err != nil {
			return fmt.Errorf("undo %s step %d: %w", g.Name, i, err)
		}
	}
	return nil
}

func (g *Group) Redo(t Target) error {
	for i, a := range g.Actions {
		if err := a.Redo(t); err != nil {
			return fmt.Errorf("redo %s step %d: %w", g.Name, i, err)
		}
	}
	return nil
}
