package domain

import "slices"

// Walk visits nodes depth-first, parents before children. parent is nil
// for section roots. Returning false from fn stops the walk.
func Walk(nodes []*Node, fn func(n, parent *Node, depth int) bool) bool {
	return walk(nodes, nil, 0, fn)
}

func walk(nodes []*Node, parent *Node, depth int, fn func(n, parent *Node, depth int) bool) bool {
	for _, n := range nodes {
		if !fn(n, parent, depth) {
			return false
		}
		if !walk(n.Children, n, depth+1, fn) {
			return false
		}
	}
	return true
}

// FindNode returns the node with the given id anywhere in s.
func (s *Section) FindNode(id string) *Node {
	var found *Node
	Walk(s.Children, func(n, _ *Node, _ int) bool {
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindParent returns the parent of id. ok is false when id is not in s;
// a nil parent with ok true means id is a section root.
func (s *Section) FindParent(id string) (parent *Node, ok bool) {
	Walk(s.Children, func(n, p *Node, _ int) bool {
		if n.ID == id {
			parent, ok = p, true
			return false
		}
		return true
	})
	return parent, ok
}

// FirstContainer returns the first container in depth-first order.
func (s *Section) FirstContainer() *Node {
	var found *Node
	Walk(s.Children, func(n, _ *Node, _ int) bool {
		if n.IsContainer() {
			found = n
			return false
		}
		return true
	})
	return found
}

// RemoveNode detaches id from its parent list and returns it.
func (s *Section) RemoveNode(id string) *Node {
	parent, ok := s.FindParent(id)
	if !ok {
		return nil
	}
	list := &s.Children
	if parent != nil {
		list = &parent.Children
	}
	i := slices.IndexFunc(*list, func(n *Node) bool { return n.ID == id })
	removed := (*list)[i]
	*list = slices.Delete(*list, i, i+1)
	return removed
}

// ReplaceNode swaps the node with n.ID for n, keeping its position.
func (s *Section) ReplaceNode(n *Node) bool {
	parent, ok := s.FindParent(n.ID)
	if !ok {
		return false
	}
	list := s.Children
	if parent != nil {
		list = parent.Children
	}
	for i := range list {
		if list[i].ID == n.ID {
			list[i] = n
			return true
		}
	}
	return false
}

// Descendants returns every node below n in depth-first order.
func (n *Node) Descendants() []*Node {
	var out []*Node
	Walk(n.Children, func(d, _ *Node, _ int) bool {
		out = append(out, d)
		return true
	})
	return out
}

// ShiftDescendants translates every descendant of n by (dx, dy) cells,
// stopping at the section edge.
// n is expected to already sit at its new position. Descendants without
// explicit units get their defaults materialized first.
func (n *Node) ShiftDescendants(dx, dy int) {
	if dx == 0 && dy == 0 {
		return
	}
	n.materializeChildren(n.Units().Translate(-dx, -dy))
	for _, d := range n.Descendants() {
		d.SetUnits(d.Units().Translate(dx, dy).Sanitize())
	}
}

func (n *Node) materializeChildren(origin Units) {
	for _, c := range n.Children {
		u := c.UnitsAt(origin.XU, origin.YU)
		c.SetUnits(u)
		c.materializeChildren(u)
	}
}

// MoveTo sets n's position and carries its descendants along.
func (n *Node) MoveTo(u Units) {
	prev := n.Units()
	n.materializeChildren(prev)
	n.SetUnits(u)
	for _, d := range n.Descendants() {
		d.SetUnits(d.Units().Translate(u.XU-prev.XU, u.YU-prev.YU).Sanitize())
	}
}

// EffectiveUnits returns the units of every node in s, resolving
// defaults against each node's parent.
func (s *Section) EffectiveUnits() map[string]Units {
	out := make(map[string]Units)
	var visit func(nodes []*Node, origin Units)
	visit = func(nodes []*Node, origin Units) {
		for _, n := range nodes {
			u := n.UnitsAt(origin.XU, origin.YU)
			out[n.ID] = u
			visit(n.Children, u)
		}
	}
	visit(s.Children, Units{})
	return out
}

// ReassignIDs gives n and its whole subtree fresh ids.
func (n *Node) ReassignIDs(newID func() string) {
	n.ID = newID()
	for _, c := range n.Children {
		c.ReassignIDs(newID)
	}
}

// IDs returns every section and node id of the page in document order.
func (p *Page) IDs() []string {
	var ids []string
	for _, s := range p.Sections {
		ids = append(ids, s.ID)
		Walk(s.Children, func(n, _ *Node, _ int) bool {
			ids = append(ids, n.ID)
			return true
		})
	}
	return ids
}
