package domain

import (
	"encoding/json"
	"fmt"
)

// Units is a rectangle measured in virtual grid cells. It is the only
// persisted layout; pixels are always derived.
type Units struct {
	XU int `json:"xu"`
	YU int `json:"yu"`
	WU int `json:"wu"`
	HU int `json:"hu"`
}

func (u Units) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", u.XU, u.YU, u.WU, u.HU)
}

// Valid reports whether u satisfies the non-negativity invariant.
func (u Units) Valid() bool {
	return u.XU >= 0 && u.YU >= 0 && u.WU >= 1 && u.HU >= 1
}

// Sanitize forces u into the valid range.
func (u Units) Sanitize() Units {
	u.XU = max(0, u.XU)
	u.YU = max(0, u.YU)
	u.WU = max(1, u.WU)
	u.HU = max(1, u.HU)
	return u
}

// Translate moves u by (dx, dy) without touching its size.
func (u Units) Translate(dx, dy int) Units {
	u.XU += dx
	u.YU += dy
	return u
}

// Layout is the persisted layout record of a node.
type Layout struct {
	Units *Units `json:"units,omitempty"`
	Extra Extra  `json:"-"`
}

func (l *Layout) UnmarshalJSON(data []byte) error {
	type plain Layout
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := splitExtra(data, "units")
	if err != nil {
		return err
	}
	*l = Layout(p)
	l.Extra = extra
	return nil
}

func (l Layout) MarshalJSON() ([]byte, error) {
	type plain Layout
	return joinExtra(plain(l), l.Extra)
}

// DefaultUnits returns the size a node of type t gets when it carries no
// explicit units. Types whose position is unspecified are placed at the
// given origin (the parent's top-left cell).
func DefaultUnits(t NodeType, originXU, originYU int) Units {
	switch t {
	case NodeContainer:
		return Units{XU: 0, YU: 0, WU: 12, HU: 8}
	case NodeText:
		return Units{XU: originXU, YU: originYU, WU: 8, HU: 2}
	case NodeButton:
		return Units{XU: originXU, YU: originYU, WU: 4, HU: 1}
	case NodeImage, NodeEventList:
		return Units{XU: originXU, YU: originYU, WU: 12, HU: 8}
	case NodeMap:
		return Units{XU: originXU, YU: originYU, WU: 12, HU: 6}
	case NodePaypal:
		return Units{XU: originXU, YU: originYU, WU: 6, HU: 3}
	}
	return Units{XU: originXU, YU: originYU, WU: 4, HU: 2}
}
