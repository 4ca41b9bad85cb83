package domain

import (
	"encoding/json"
	"fmt"
	"slices"
)

// PageVersion is the only document version this engine reads and writes.
const PageVersion = 2

const DefaultLocale = "en"

// Page is the versioned document tree edited by the builder.
type Page struct {
	Version       int            `json:"version"`
	Slug          string         `json:"slug"`
	Title         string         `json:"title"`
	Visible       *bool          `json:"visible,omitempty"`
	DefaultLocale string         `json:"defaultLocale"`
	Locales       []string       `json:"locales"`
	StyleTokens   map[string]any `json:"styleTokens,omitempty"`
	Sections      []*Section     `json:"sections"`
	Extra         Extra          `json:"-"`
}

var pageKeys = []string{"version", "slug", "title", "visible", "defaultLocale", "locales", "styleTokens", "sections"}

func (p *Page) UnmarshalJSON(data []byte) error {
	type plain Page
	var pl plain
	if err := json.Unmarshal(data, &pl); err != nil {
		return err
	}
	extra, err := splitExtra(data, pageKeys...)
	if err != nil {
		return err
	}
	*p = Page(pl)
	p.Extra = extra
	return nil
}

func (p Page) MarshalJSON() ([]byte, error) {
	type plain Page
	pl := plain(p)
	if pl.Sections == nil {
		pl.Sections = []*Section{}
	}
	return joinExtra(pl, p.Extra)
}

// ParsePage decodes page JSON and migrates legacy shapes.
func ParsePage(data []byte) (*Page, error) {
	var p Page
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, Wrap(KindInvalidInput, "parse page", err)
	}
	p.Migrate()
	return &p, nil
}

// NewPage seeds a draft with one default section.
func NewPage(slug string, newID func() string) *Page {
	p := &Page{
		Version:       PageVersion,
		Slug:          slug,
		Title:         slug,
		DefaultLocale: DefaultLocale,
		Locales:       []string{DefaultLocale},
		StyleTokens:   map[string]any{},
		Sections:      []*Section{NewSection(newID)},
	}
	return p
}

// NewSection builds a default section holding one empty container.
func NewSection(newID func() string) *Section {
	g := DefaultGrid()
	return &Section{
		ID:          newID(),
		Kind:        SectionKind,
		StyleTokens: map[string]any{"name": "Section"},
		BuilderGrid: &g,
		Children:    []*Node{NewNode(newID(), NodeContainer, DefaultUnits(NodeContainer, 0, 0))},
	}
}

// IsVisible reports the visibility flag, which defaults to true.
func (p *Page) IsVisible() bool { return p.Visible == nil || *p.Visible }

// LocaleSet returns the page locale set used for per-locale writes.
func (p *Page) LocaleSet() LocaleSet {
	return LocaleSet{Default: p.DefaultLocale, All: slices.Clone(p.Locales)}
}

// HasLocale reports whether code is one of the page locales.
func (p *Page) HasLocale(code string) bool { return slices.Contains(p.Locales, code) }

// Section returns the section with the given id.
func (p *Page) Section(id string) *Section {
	for _, s := range p.Sections {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// SectionIndex returns the position of a section, or -1.
func (p *Page) SectionIndex(id string) int {
	return slices.IndexFunc(p.Sections, func(s *Section) bool { return s.ID == id })
}

// FindNode searches every section for a node id.
func (p *Page) FindNode(id string) (*Section, *Node) {
	for _, s := range p.Sections {
		if n := s.FindNode(id); n != nil {
			return s, n
		}
	}
	return nil, nil
}

// Clone returns a deep copy of p.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	c := &Page{
		Version:       p.Version,
		Slug:          p.Slug,
		Title:         p.Title,
		DefaultLocale: p.DefaultLocale,
		Locales:       slices.Clone(p.Locales),
		StyleTokens:   cloneMap(p.StyleTokens),
		Extra:         p.Extra.clone(),
	}
	if p.Visible != nil {
		v := *p.Visible
		c.Visible = &v
	}
	c.Sections = make([]*Section, len(p.Sections))
	for i, s := range p.Sections {
		c.Sections[i] = s.Clone()
	}
	return c
}

// Migrate normalizes a freshly loaded page: version, locale defaults,
// legacy section sizing and padding shorthands.
func (p *Page) Migrate() {
	p.Version = PageVersion
	if p.DefaultLocale == "" {
		p.DefaultLocale = DefaultLocale
	}
	if !slices.Contains(p.Locales, p.DefaultLocale) {
		p.Locales = append([]string{p.DefaultLocale}, p.Locales...)
	}
	if p.Sections == nil {
		p.Sections = []*Section{}
	}
	for _, s := range p.Sections {
		s.migrate()
	}
	p.repairIDs()
	p.dropStrayOverrides()
}

// repairIDs gives empty and repeated ids a suffixed replacement so a stored
// document that breaks uniqueness can still be edited.
func (p *Page) repairIDs() {
	seen := make(map[string]bool)
	unique := func(id, fallback string) string {
		if id == "" {
			id = fallback
		}
		if !seen[id] {
			seen[id] = true
			return id
		}
		for i := 2; ; i++ {
			cand := fmt.Sprintf("%s-%d", id, i)
			if !seen[cand] {
				seen[cand] = true
				return cand
			}
		}
	}
	for _, s := range p.Sections {
		s.ID = unique(s.ID, "section")
		Walk(s.Children, func(n, _ *Node, _ int) bool {
			n.ID = unique(n.ID, string(n.Type))
			return true
		})
	}
}

// dropStrayOverrides removes i18n entries for the default locale or for
// locales the page does not enable.
func (p *Page) dropStrayOverrides() {
	for _, s := range p.Sections {
		Walk(s.Children, func(n, _ *Node, _ int) bool {
			for loc := range n.I18n {
				if loc == p.DefaultLocale || !slices.Contains(p.Locales, loc) {
					delete(n.I18n, loc)
				}
			}
			if len(n.I18n) == 0 {
				n.I18n = nil
			}
			return true
		})
	}
}
