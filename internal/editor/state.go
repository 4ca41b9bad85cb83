package editor

import (
	"maps"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/grid"
)

// CachedPixels is a node rectangle frozen while its section's grid is
// being adjusted.
type CachedPixels struct {
	SectionID string    `json:"sectionId"`
	Rect      grid.Rect `json:"rect"`
}

// State is the transient editor state. None of it is persisted, and only
// selection changes are recorded in history.
type State struct {
	Selection       *domain.Selection       `json:"selection"`
	HoveredNodeID   string                  `json:"hoveredNodeId,omitempty"`
	HighlightNodeID string                  `json:"highlightNodeId,omitempty"`
	InspectorNodeID string                  `json:"inspectorNodeId,omitempty"`
	Editing         bool                    `json:"editing"`
	AdjustingGrid   map[string]bool         `json:"adjustingGrid"`
	PixelCache      map[string]CachedPixels `json:"pixelCache"`
	PaddingOverlay  map[string][4]float64   `json:"paddingOverlay"`
	Clipboard       *domain.Node            `json:"clipboard"`
	ActiveLocale    string                  `json:"activeLocale"`
	ContainerWidths map[string]float64      `json:"containerWidths"`
}

func newState(locale string) State {
	return State{
		AdjustingGrid:   make(map[string]bool),
		PixelCache:      make(map[string]CachedPixels),
		PaddingOverlay:  make(map[string][4]float64),
		ContainerWidths: make(map[string]float64),
		ActiveLocale:    locale,
	}
}

func (s State) clone() State {
	c := s
	c.Selection = s.Selection.Clone()
	c.AdjustingGrid = maps.Clone(s.AdjustingGrid)
	c.PixelCache = maps.Clone(s.PixelCache)
	c.PaddingOverlay = maps.Clone(s.PaddingOverlay)
	c.ContainerWidths = maps.Clone(s.ContainerWidths)
	c.Clipboard = s.Clipboard.Clone()
	return c
}

// pixelSource adapts the pixel cache for the layout engine.
type pixelSource map[string]CachedPixels

func (p pixelSource) CachedRect(sectionID, nodeID string) (grid.Rect, bool) {
	c, ok := p[nodeID]
	if !ok || c.SectionID != sectionID {
		return grid.Rect{}, false
	}
	return c.Rect, true
}
