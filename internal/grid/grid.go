package grid

import (
	"math"

	"pagebuilder/internal/domain"
)

// Rect is a pixel rectangle relative to the section content root.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Transform maps unit rectangles to pixels for one container width and
// grid configuration. The zero value is unusable; use New.
type Transform struct {
	ContainerWidth float64 `json:"containerWidth"`
	Cols           int     `json:"cols"`
	Rows           int     `json:"rows"`
	CellPx         float64 `json:"cellPx"`
}

// New builds the transform for a container. Widths, column counts and
// aspect terms must be positive.
func New(containerWidthPx float64, cols, aspectNum, aspectDen int) (Transform, error) {
	const op = "grid transform"
	switch {
	case !(containerWidthPx > 0) || math.IsInf(containerWidthPx, 0):
		return Transform{}, domain.Errorf(domain.KindInvalidGeometry, op, "container width %v", containerWidthPx)
	case cols <= 0:
		return Transform{}, domain.Errorf(domain.KindInvalidGeometry, op, "cols %d", cols)
	case aspectNum <= 0 || aspectDen <= 0:
		return Transform{}, domain.Errorf(domain.KindInvalidGeometry, op, "aspect %d:%d", aspectNum, aspectDen)
	}
	return Transform{
		ContainerWidth: containerWidthPx,
		Cols:           cols,
		Rows:           Round(float64(cols) * float64(aspectDen) / float64(aspectNum)),
		CellPx:         containerWidthPx / float64(cols),
	}, nil
}

// ForSection builds the transform for a section's effective grid.
func ForSection(s *domain.Section, containerWidthPx float64) (Transform, error) {
	g := s.Grid()
	return New(containerWidthPx, g.Cols, g.Aspect.Num, g.Aspect.Den)
}

// NewOrFallback is New for renderers: on invalid geometry it still returns
// a usable transform with a cell size of one pixel, alongside the error.
func NewOrFallback(containerWidthPx float64, cols, aspectNum, aspectDen int) (Transform, error) {
	t, err := New(containerWidthPx, cols, aspectNum, aspectDen)
	if err == nil {
		return t, nil
	}
	cols = max(cols, 1)
	rows := cols
	if aspectNum > 0 && aspectDen > 0 {
		rows = Round(float64(cols) * float64(aspectDen) / float64(aspectNum))
	}
	return Transform{ContainerWidth: float64(cols), Cols: cols, Rows: rows, CellPx: 1}, err
}

// VirtualHeight is the canvas height reserved for the section.
func (t Transform) VirtualHeight() float64 {
	return t.CellPx * float64(t.Rows)
}

// Bounds is the unit rectangle of the whole grid.
func (t Transform) Bounds() domain.Units {
	return domain.Units{WU: t.Cols, HU: t.Rows}
}

func (t Transform) ToPx(u domain.Units) Rect {
	return Rect{
		X: float64(u.XU) * t.CellPx,
		Y: float64(u.YU) * t.CellPx,
		W: float64(u.WU) * t.CellPx,
		H: float64(u.HU) * t.CellPx,
	}
}

// ToUnits snaps a pixel rectangle to the nearest cells. Sizes never drop
// below one cell.
func (t Transform) ToUnits(r Rect) domain.Units {
	return domain.Units{
		XU: Round(r.X / t.CellPx),
		YU: Round(r.Y / t.CellPx),
		WU: max(1, Round(r.W/t.CellPx)),
		HU: max(1, Round(r.H/t.CellPx)),
	}
}

// DeltaUnits converts a pointer movement in pixels to whole cells.
func (t Transform) DeltaUnits(dxPx, dyPx float64) (int, int) {
	return Round(dxPx / t.CellPx), Round(dyPx / t.CellPx)
}

// Round rounds halves up, like Math.round in the browser, so pointer
// deltas snap the same way on both sides.
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}
