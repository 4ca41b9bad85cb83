package domain

import (
	"encoding/json"
	"math"
)

// Grid limits. Values outside are clamped on input.
const (
	MinCols      = 16
	MaxCols      = 128
	MinAspect    = 1
	MaxAspect    = 32
	MinHeightPct = 10
	MaxHeightPct = 200

	DefaultCols = 64
)

// Aspect is a width:height ratio of the section canvas.
type Aspect struct {
	Num int `json:"num"`
	Den int `json:"den"`
}

// BuilderGrid configures the virtual grid of a section.
type BuilderGrid struct {
	Cols     int    `json:"cols"`
	Aspect   Aspect `json:"aspect"`
	ShowGrid bool   `json:"showGrid"`
}

// DefaultGrid is the grid a section gets when it has none.
func DefaultGrid() BuilderGrid {
	return BuilderGrid{Cols: DefaultCols, Aspect: Aspect{Num: 16, Den: 9}, ShowGrid: true}
}

// Clamp forces cols and aspect terms into their allowed ranges.
func (g BuilderGrid) Clamp() BuilderGrid {
	g.Cols = clampInt(g.Cols, MinCols, MaxCols)
	g.Aspect.Num = clampInt(g.Aspect.Num, MinAspect, MaxAspect)
	g.Aspect.Den = clampInt(g.Aspect.Den, MinAspect, MaxAspect)
	return g
}

// Rows is the virtual row count, round(cols·den/num).
func (g BuilderGrid) Rows() int {
	if g.Aspect.Num <= 0 {
		return 0
	}
	return int(math.Floor(float64(g.Cols)*float64(g.Aspect.Den)/float64(g.Aspect.Num) + 0.5))
}

// Background describes a section background as utility classes plus
// inline CSS properties.
type Background struct {
	ClassName string         `json:"className,omitempty"`
	Style     map[string]any `json:"style,omitempty"`
}

// Section is a full-width band of the page with its own grid and node tree.
type Section struct {
	ID            string         `json:"id"`
	Kind          string         `json:"kind"`
	StyleTokens   map[string]any `json:"styleTokens,omitempty"`
	Background    *Background    `json:"background,omitempty"`
	BuilderGrid   *BuilderGrid   `json:"builderGrid,omitempty"`
	HeightPercent *int           `json:"heightPercent,omitempty"`
	Children      []*Node        `json:"children"`
	Extra         Extra          `json:"-"`
}

const SectionKind = "section"

var sectionKeys = []string{"id", "kind", "styleTokens", "background", "builderGrid", "heightPercent", "children"}

func (s *Section) UnmarshalJSON(data []byte) error {
	type plain Section
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := splitExtra(data, sectionKeys...)
	if err != nil {
		return err
	}
	*s = Section(p)
	s.Extra = extra
	return nil
}

func (s Section) MarshalJSON() ([]byte, error) {
	type plain Section
	p := plain(s)
	if p.Children == nil {
		p.Children = []*Node{}
	}
	return joinExtra(p, s.Extra)
}

// Grid returns the effective, clamped grid of s.
func (s *Section) Grid() BuilderGrid {
	if s.BuilderGrid == nil {
		return DefaultGrid()
	}
	return s.BuilderGrid.Clamp()
}

// Name is the sidebar label of the section.
func (s *Section) Name() string {
	name, _ := s.StyleTokens["name"].(string)
	if name == "" {
		return "Section"
	}
	return name
}

// Clone returns a deep copy of s.
func (s *Section) Clone() *Section {
	if s == nil {
		return nil
	}
	c := &Section{
		ID:          s.ID,
		Kind:        s.Kind,
		StyleTokens: cloneMap(s.StyleTokens),
		Extra:       s.Extra.clone(),
	}
	if s.Background != nil {
		c.Background = &Background{
			ClassName: s.Background.ClassName,
			Style:     cloneMap(s.Background.Style),
		}
	}
	if s.BuilderGrid != nil {
		g := *s.BuilderGrid
		c.BuilderGrid = &g
	}
	if s.HeightPercent != nil {
		h := *s.HeightPercent
		c.HeightPercent = &h
	}
	c.Children = make([]*Node, len(s.Children))
	for i, n := range s.Children {
		c.Children[i] = n.Clone()
	}
	return c
}

// migrate folds the legacy heightPercent into the grid aspect. When both
// are present the aspect wins and heightPercent is dropped.
func (s *Section) migrate() {
	if s.Kind == "" {
		s.Kind = SectionKind
	}
	if s.Children == nil {
		s.Children = []*Node{}
	}
	if s.BuilderGrid == nil && s.HeightPercent != nil {
		g := DefaultGrid()
		g.Aspect = aspectForHeight(clampInt(*s.HeightPercent, MinHeightPct, MaxHeightPct))
		s.BuilderGrid = &g
	}
	s.HeightPercent = nil
	if s.BuilderGrid != nil {
		g := s.BuilderGrid.Clamp()
		s.BuilderGrid = &g
	}
	Walk(s.Children, func(n, _ *Node, _ int) bool {
		if n.Style != nil {
			NormalizePadding(n.Style)
		}
		if n.Children == nil {
			n.Children = []*Node{}
		}
		return true
	})
}

// aspectForHeight picks the num:den pair within limits closest to a
// section whose height is pct percent of its width.
func aspectForHeight(pct int) Aspect {
	want := 100 / float64(pct)
	best := Aspect{Num: 16, Den: 9}
	bestErr := math.Inf(1)
	for den := MinAspect; den <= MaxAspect; den++ {
		for num := MinAspect; num <= MaxAspect; num++ {
			if e := math.Abs(float64(num)/float64(den) - want); e < bestErr-1e-12 {
				best, bestErr = Aspect{Num: num, Den: den}, e
			}
		}
	}
	return best
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
