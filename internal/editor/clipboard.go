package editor

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/atotto/clipboard"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/layout"
)

// SystemClipboard mirrors copied nodes to the operating system so they
// can be pasted into another editor window.
type SystemClipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// OSClipboard is the SystemClipboard backed by the host clipboard.
type OSClipboard struct{}

var errNoClipboard = errors.New("no clipboard utility available")

func (OSClipboard) ReadAll() (string, error) {
	if clipboard.Unsupported {
		return "", errNoClipboard
	}
	return clipboard.ReadAll()
}

func (OSClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return errNoClipboard
	}
	return clipboard.WriteAll(text)
}

// clipboardEnvelope marks clipboard text as a builder node.
type clipboardEnvelope struct {
	Kind string       `json:"kind"`
	Node *domain.Node `json:"node"`
}

const clipboardKind = "pagebuilder/node"

// CopySelected copies the selected node and its subtree. Ids are kept;
// fresh ones are generated on paste.
func (e *Editor) CopySelected() error {
	return e.do(func() error { return e.copySelected() })
}

func (e *Editor) copySelected() error {
	sel := e.state.Selection
	if sel == nil || sel.NodeID == "" {
		return nil
	}
	s, n, err := e.lookup(sel.SectionID, sel.NodeID)
	if err != nil {
		return err
	}
	eff := s.EffectiveUnits()
	clip := n.Clone()
	clip.SetUnits(eff[clip.ID])
	for _, d := range clip.Descendants() {
		d.SetUnits(eff[d.ID])
	}
	e.state.Clipboard = clip
	e.mark(ChangeState)
	if e.clipboard != nil {
		data, err := json.Marshal(clipboardEnvelope{Kind: clipboardKind, Node: clip})
		if err == nil {
			err = e.clipboard.WriteAll(string(data))
		}
		if err != nil {
			log.Printf("editor: mirror copy to system clipboard: %v", err)
		}
	}
	return nil
}

// readSystemClipboard returns a node copied by another builder instance,
// or nil when the clipboard holds anything else.
func (e *Editor) readSystemClipboard() *domain.Node {
	if e.clipboard == nil {
		return nil
	}
	text, err := e.clipboard.ReadAll()
	if err != nil || text == "" {
		return nil
	}
	var env clipboardEnvelope
	if err := json.Unmarshal([]byte(text), &env); err != nil || env.Kind != clipboardKind || env.Node == nil {
		return nil
	}
	valid := true
	domain.Walk([]*domain.Node{env.Node}, func(n, _ *domain.Node, _ int) bool {
		valid = n.Type.Valid()
		return valid
	})
	if !valid {
		return nil
	}
	return env.Node
}

// PasteClipboard inserts a copy of the clipboard with fresh ids into the
// selected container (or the selected node's parent, or the section
// root), offset by one cell so it does not cover the original. It
// returns the new node id, or "" when there was nothing to paste.
func (e *Editor) PasteClipboard() (string, error) {
	var id string
	err := e.do(func() error {
		var err error
		id, err = e.paste()
		return err
	})
	return id, err
}

func (e *Editor) paste() (string, error) {
	clip := e.state.Clipboard
	if clip == nil {
		clip = e.readSystemClipboard()
	}
	if clip == nil || len(e.page.Sections) == 0 {
		return "", nil
	}
	var id string
	err := e.mutate("Paste", func(p *domain.Page) (*domain.Selection, error) {
		s := p.Sections[len(p.Sections)-1]
		var parent *domain.Node
		if sel := e.state.Selection; sel != nil && p.Section(sel.SectionID) != nil {
			s = p.Section(sel.SectionID)
			if sel.NodeID != "" {
				if n := s.FindNode(sel.NodeID); n != nil && n.IsContainer() {
					parent = n
				} else if n != nil {
					parent, _ = s.FindParent(n.ID)
				}
			}
		}
		bounds := layout.RootBounds(s)
		if parent != nil {
			bounds = s.EffectiveUnits()[parent.ID]
		}
		n := clip.Clone()
		n.ReassignIDs(e.newID)
		n.MoveTo(layout.ClampMove(n.Units().Translate(1, 1), bounds))
		if parent != nil {
			parent.Children = append(parent.Children, n)
		} else {
			s.Children = append(s.Children, n)
		}
		id = n.ID
		return &domain.Selection{SectionID: s.ID, NodeID: n.ID}, nil
	})
	return id, err
}
