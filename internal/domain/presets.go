package domain

import "sort"

// Preset is a ready-made section tree. Ids in the template are
// placeholders; Instantiate replaces them.
type Preset struct {
	Key     string   `json:"key" yaml:"key"`
	Name    string   `json:"name" yaml:"name"`
	Section *Section `json:"section" yaml:"-"`
}

// Instantiate returns a fresh copy of the preset section with new ids.
func (p Preset) Instantiate(newID func() string) *Section {
	s := p.Section.Clone()
	s.ID = newID()
	s.migrate()
	for _, n := range s.Children {
		n.ReassignIDs(newID)
	}
	if s.StyleTokens == nil {
		s.StyleTokens = map[string]any{}
	}
	if _, ok := s.StyleTokens["name"]; !ok {
		s.StyleTokens["name"] = p.Name
	}
	return s
}

func presetNode(t NodeType, u Units, props map[string]any, children ...*Node) *Node {
	n := NewNode("tpl", t, u)
	for k, v := range props {
		n.Props[k] = v
	}
	n.Children = append(n.Children, children...)
	return n
}

func presetSection(name string, grid BuilderGrid, children ...*Node) *Section {
	return &Section{
		ID:          "tpl",
		Kind:        SectionKind,
		StyleTokens: map[string]any{"name": name},
		BuilderGrid: &grid,
		Children:    children,
	}
}

// BuiltinPresets returns the presets shipped with the builder, keyed by
// preset key.
func BuiltinPresets() map[string]Preset {
	wide := BuilderGrid{Cols: DefaultCols, Aspect: Aspect{Num: 16, Den: 9}, ShowGrid: true}
	band := BuilderGrid{Cols: DefaultCols, Aspect: Aspect{Num: 4, Den: 1}, ShowGrid: true}
	list := []Preset{
		{Key: "hero", Name: "Hero", Section: presetSection("Hero", wide,
			presetNode(NodeContainer, Units{XU: 8, YU: 6, WU: 48, HU: 24}, map[string]any{"maxWidth": "xl"},
				presetNode(NodeText, Units{XU: 12, YU: 9, WU: 40, HU: 6},
					map[string]any{"html": "<h1>Welcome</h1>", "align": "center", "variant": "h1"}),
				presetNode(NodeText, Units{XU: 16, YU: 16, WU: 32, HU: 4},
					map[string]any{"html": "<p>Tell visitors what this page is about.</p>", "align": "center", "variant": "lead"}),
				presetNode(NodeButton, Units{XU: 28, YU: 22, WU: 8, HU: 3},
					map[string]any{"label": "Get started", "href": "#"}),
			))},
		{Key: "events", Name: "Events", Section: presetSection("Events", wide,
			presetNode(NodeContainer, Units{XU: 4, YU: 2, WU: 56, HU: 32}, nil,
				presetNode(NodeEventList, Units{XU: 6, YU: 4, WU: 52, HU: 28},
					map[string]any{"title": "Upcoming events", "showFilters": true, "showTitle": true}),
			))},
		{Key: "text", Name: "Text", Section: presetSection("Text", band,
			presetNode(NodeContainer, Units{XU: 8, YU: 2, WU: 48, HU: 12}, map[string]any{"maxWidth": "lg"},
				presetNode(NodeText, Units{XU: 10, YU: 3, WU: 44, HU: 10},
					map[string]any{"html": "<p>Write something here.</p>", "align": "left", "variant": "p"}),
			))},
		{Key: "gallery", Name: "Gallery", Section: presetSection("Gallery", wide,
			presetNode(NodeContainer, Units{XU: 2, YU: 2, WU: 60, HU: 32}, nil,
				presetNode(NodeImage, Units{XU: 4, YU: 4, WU: 18, HU: 28}, map[string]any{"alt": "Image 1"}),
				presetNode(NodeImage, Units{XU: 23, YU: 4, WU: 18, HU: 28}, map[string]any{"alt": "Image 2"}),
				presetNode(NodeImage, Units{XU: 42, YU: 4, WU: 18, HU: 28}, map[string]any{"alt": "Image 3"}),
			))},
		{Key: "map", Name: "Map", Section: presetSection("Map", wide,
			presetNode(NodeContainer, Units{XU: 4, YU: 2, WU: 56, HU: 32}, nil,
				presetNode(NodeText, Units{XU: 6, YU: 3, WU: 52, HU: 3},
					map[string]any{"html": "<h2>Find us</h2>", "align": "left", "variant": "h2"}),
				presetNode(NodeMap, Units{XU: 6, YU: 7, WU: 52, HU: 25}, nil),
			))},
		{Key: "donate", Name: "Donate", Section: presetSection("Donate", band,
			presetNode(NodeContainer, Units{XU: 16, YU: 2, WU: 32, HU: 12}, nil,
				presetNode(NodeText, Units{XU: 18, YU: 3, WU: 28, HU: 3},
					map[string]any{"html": "<h2>Support us</h2>", "align": "center", "variant": "h2"}),
				presetNode(NodePaypal, Units{XU: 26, YU: 8, WU: 12, HU: 4}, nil),
			))},
	}
	out := make(map[string]Preset, len(list))
	for _, p := range list {
		out[p.Key] = p
	}
	return out
}

// PresetKeys returns the keys of m in sorted order.
func PresetKeys(m map[string]Preset) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
