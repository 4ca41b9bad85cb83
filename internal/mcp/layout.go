package mcpserver

import (
	"pagebuilder/internal/domain"
)

// Gap is the number of free grid cells kept between auto-placed siblings.
const Gap = 1

// Placer finds free spots for elements created by agents so that they
// don't land on top of existing siblings.
type Placer struct {
	gap int
}

func NewPlacer() *Placer {
	return &Placer{gap: Gap}
}

func intersects(a, b domain.Units) bool {
	return a.XU < b.XU+b.WU && a.XU+a.WU > b.XU &&
		a.YU < b.YU+b.HU && a.YU+a.HU > b.YU
}

// NextSlot finds the first position inside bounds, scanning rows
// top-to-bottom and columns left-to-right, where a wu×hu rectangle does
// not touch any occupied rectangle. When nothing fits it returns the
// spot below the lowest sibling and ok=false; the caller clamps it.
func (pl *Placer) NextSlot(bounds domain.Units, occupied []domain.Units, wu, hu int) (domain.Units, bool) {
	wu, hu = max(1, min(wu, bounds.WU)), max(1, min(hu, bounds.HU))
	candidate := domain.Units{XU: bounds.XU, YU: bounds.YU, WU: wu, HU: hu}
	if len(occupied) == 0 {
		return candidate, true
	}

	for y := bounds.YU; y+hu <= bounds.YU+bounds.HU; y++ {
		for x := bounds.XU; x+wu <= bounds.XU+bounds.WU; x++ {
			candidate.XU, candidate.YU = x, y
			if pl.free(candidate, occupied) {
				return candidate, true
			}
		}
	}

	bottom := bounds.YU
	for _, o := range occupied {
		bottom = max(bottom, o.YU+o.HU)
	}
	candidate.XU, candidate.YU = bounds.XU, bottom+pl.gap
	return candidate, false
}

func (pl *Placer) free(c domain.Units, occupied []domain.Units) bool {
	for _, o := range occupied {
		padded := domain.Units{
			XU: o.XU - pl.gap,
			YU: o.YU - pl.gap,
			WU: o.WU + pl.gap*2,
			HU: o.HU + pl.gap*2,
		}
		if intersects(c, padded) {
			return false
		}
	}
	return true
}

// siblingUnits returns the effective units of the other children of the
// node's parent.
func siblingUnits(s *domain.Section, nodeID string) []domain.Units {
	eff := s.EffectiveUnits()
	siblings := s.Children
	if parent, ok := s.FindParent(nodeID); ok && parent != nil {
		siblings = parent.Children
	}
	var out []domain.Units
	for _, n := range siblings {
		if n.ID != nodeID {
			out = append(out, eff[n.ID])
		}
	}
	return out
}
