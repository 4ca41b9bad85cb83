package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/domain"
)

const legacyPage = `{
	"version": 1,
	"slug": "about",
	"title": "About",
	"locales": ["es"],
	"publishedBy": "someone",
	"sections": [{
		"id": "s1",
		"kind": "section",
		"heightPercent": 50,
		"cachedHeight": 412,
		"children": [{
			"id": "c1",
			"type": "container",
			"props": {"maxWidth": "lg"},
			"style": {"paddingX": 4, "paddingLeft": 2},
			"layout": {"units": {"xu": 0, "yu": 0, "wu": 12, "hu": 8}, "px": {"x": 3}},
			"children": [{"id": "t1", "type": "text", "props": {"html": "<p>Hi</p>"}}]
		}]
	}]
}`

func TestParsePage_MigratesLegacyShapes(t *testing.T) {
	p, err := domain.ParsePage([]byte(legacyPage))
	require.NoError(t, err)

	assert.Equal(t, domain.PageVersion, p.Version)
	assert.Equal(t, "en", p.DefaultLocale)
	assert.Equal(t, []string{"en", "es"}, p.Locales)

	s := p.Sections[0]
	assert.Nil(t, s.HeightPercent)
	require.NotNil(t, s.BuilderGrid)
	assert.Equal(t, domain.Aspect{Num: 2, Den: 1}, s.BuilderGrid.Aspect)
	assert.Equal(t, 32, s.Grid().Rows())

	c := s.FindNode("c1")
	require.NotNil(t, c)
	assert.NotContains(t, c.Style, "paddingX")
	assert.EqualValues(t, 2, c.Style["paddingLeft"])
	assert.EqualValues(t, 4, c.Style["paddingRight"])

	text := s.FindNode("t1")
	require.NotNil(t, text)
	assert.False(t, text.HasUnits())
	assert.Equal(t, domain.Units{WU: 8, HU: 2}, text.Units())
}

func TestPage_JSONPreservesUnknownFields(t *testing.T) {
	p, err := domain.ParsePage([]byte(legacyPage))
	require.NoError(t, err)

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "someone", raw["publishedBy"])

	sec := raw["sections"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 412, sec["cachedHeight"])
	node := sec["children"].([]any)[0].(map[string]any)
	layout := node["layout"].(map[string]any)
	assert.Contains(t, layout, "px")
	assert.Contains(t, layout, "units")
}

const strayPage = `{
	"version": 2,
	"slug": "home",
	"locales": ["en", "es"],
	"defaultLocale": "en",
	"sections": [{
		"id": "s1",
		"children": [
			{"id": "t1", "type": "text", "props": {"html": "Hi"},
			 "i18n": {"fr": {"html": "Salut"}, "en": {"html": "Hello"}, "es": {"html": "Hola"}}},
			{"id": "t1", "type": "text", "props": {"html": "Again"}, "i18n": {"fr": {"html": "Encore"}}},
			{"id": "", "type": "button"}
		]
	}]
}`

func TestParsePage_RepairsInvariantViolations(t *testing.T) {
	p, err := domain.ParsePage([]byte(strayPage))
	require.NoError(t, err)
	require.NoError(t, p.Validate())

	kids := p.Sections[0].Children
	assert.Equal(t, "t1", kids[0].ID)
	assert.Equal(t, "t1-2", kids[1].ID)
	assert.Equal(t, "button", kids[2].ID)

	assert.Equal(t, map[string]map[string]any{"es": {"html": "Hola"}}, kids[0].I18n)
	assert.Nil(t, kids[1].I18n)
}

func TestPage_ExplicitAspectWinsOverHeightPercent(t *testing.T) {
	p, err := domain.ParsePage([]byte(`{"slug":"x","sections":[{"id":"s","heightPercent":100,
		"builderGrid":{"cols":500,"aspect":{"num":4,"den":0},"showGrid":true},"children":[]}]}`))
	require.NoError(t, err)
	g := p.Sections[0].BuilderGrid
	assert.Equal(t, domain.MaxCols, g.Cols)
	assert.Equal(t, domain.Aspect{Num: 4, Den: 1}, g.Aspect)
	assert.Nil(t, p.Sections[0].HeightPercent)
}

func TestNewPage_SeedsDefaultSection(t *testing.T) {
	p := domain.NewPage("home", domain.SequentialIDs("n"))
	require.Len(t, p.Sections, 1)
	s := p.Sections[0]
	require.Len(t, s.Children, 1)
	c := s.Children[0]
	assert.Equal(t, domain.NodeContainer, c.Type)
	assert.Equal(t, domain.Units{WU: 12, HU: 8}, c.Units())
	assert.Equal(t, 36, s.Grid().Rows())
	assert.NoError(t, p.Validate())
}

func TestValidate_ReportsInvariantViolations(t *testing.T) {
	p := domain.NewPage("home", domain.SequentialIDs("n"))
	c := p.Sections[0].Children[0]
	dup := domain.NewNode(c.ID, domain.NodeText, domain.Units{WU: 0, HU: 1})
	dup.I18n = map[string]map[string]any{"fr": {"html": "Salut"}}
	c.Children = append(c.Children, dup)

	err := p.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInternalInvariant)
	assert.Contains(t, err.Error(), "duplicate id")
	assert.Contains(t, err.Error(), "invalid units")
	assert.Contains(t, err.Error(), `locale "fr"`)
}

// ── Locales ────────────────────────────────────────────────

func TestResolveProp_OverrideFallback(t *testing.T) {
	locales := domain.LocaleSet{Default: "en", All: []string{"en", "es"}}
	n := domain.NewNode("t", domain.NodeText, domain.Units{WU: 8, HU: 2})
	n.Props["html"] = "Hello"

	assert.Equal(t, "Hello", domain.ResolveProp(n, "html", "es", "en"))

	require.NoError(t, domain.WriteProp(n, "html", "Hola", "es", locales))
	assert.Equal(t, "Hola", domain.ResolveProp(n, "html", "es", "en"))
	assert.Equal(t, "Hello", domain.ResolveProp(n, "html", "en", "en"))
	assert.Equal(t, "Hello", n.Props["html"])
}

func TestWriteProp_RoundTrip(t *testing.T) {
	locales := domain.LocaleSet{Default: "en", All: []string{"en", "es", "de"}}
	for _, loc := range []string{"", "en", "es", "de"} {
		n := domain.NewNode("b", domain.NodeButton, domain.Units{WU: 4, HU: 1})
		require.NoError(t, domain.WriteProp(n, "label", "v-"+loc, loc, locales))
		assert.Equal(t, "v-"+loc, domain.ResolveProp(n, "label", loc, "en"), "locale %q", loc)
		assert.Equal(t, n.Props["label"], domain.ResolveProp(n, "label", "en", "en"))
	}
}

func TestWriteProp_UnknownLocale(t *testing.T) {
	n := domain.NewNode("t", domain.NodeText, domain.Units{WU: 8, HU: 2})
	err := domain.WriteProp(n, "html", "Bonjour", "fr", domain.LocaleSet{Default: "en", All: []string{"en"}})
	assert.ErrorIs(t, err, domain.ErrInvalidLocale)
	assert.Nil(t, n.I18n)
}

func TestEnsurePageLocale(t *testing.T) {
	p := domain.NewPage("home", domain.SequentialIDs("n"))
	c := p.Sections[0].Children[0]
	hello := domain.NewNode("t1", domain.NodeText, domain.Units{WU: 8, HU: 2})
	hello.Props["html"] = "Hello"
	other := domain.NewNode("t2", domain.NodeText, domain.Units{WU: 8, HU: 2})
	other.Props["html"] = "Untranslated"
	btn := domain.NewNode("b1", domain.NodeButton, domain.Units{WU: 4, HU: 1})
	btn.Props["label"] = "Hello"
	c.Children = append(c.Children, hello, other, btn)

	pairs := domain.CollectTranslatablePairs(p.Sections)
	assert.Equal(t, []string{"Hello", "Untranslated"}, domain.UniqueValues(pairs))

	out := domain.EnsurePageLocale(p.Sections, "es", map[string]string{"Hello": "Hola"})
	assert.Equal(t, "Hola", out[0].FindNode("t1").I18n["es"]["html"])
	assert.Equal(t, "Hola", out[0].FindNode("b1").I18n["es"]["label"])
	assert.Nil(t, out[0].FindNode("t2").I18n)
	assert.Nil(t, hello.I18n, "input tree must not change")
}

// ── In-sync projection ─────────────────────────────────────

func samplePage() *domain.Page {
	p := domain.NewPage("home", domain.SequentialIDs("n"))
	c := p.Sections[0].Children[0]
	c.Children = append(c.Children,
		domain.NewNode("t1", domain.NodeText, domain.Units{XU: 1, YU: 1, WU: 8, HU: 2}))
	return p
}

func TestInSync_IgnoresVolatileFields(t *testing.T) {
	live := samplePage()
	assert.True(t, domain.InSync(live, live))

	staging := live.Clone()
	staging.Extra = domain.Extra{"updatedAt": json.RawMessage(`"2024-01-01"`)}
	staging.Sections[0].ID = "other"
	staging.Sections[0].StyleTokens["name"] = "Renamed"
	staging.Sections[0].Children[0].ReassignIDs(domain.SequentialIDs("fresh"))
	assert.True(t, domain.InSync(staging, live))
}

func TestInSync_DetectsStructuralChanges(t *testing.T) {
	live := samplePage()
	cases := map[string]func(p *domain.Page){
		"units": func(p *domain.Page) {
			p.Sections[0].Children[0].Children[0].SetUnits(domain.Units{XU: 2, YU: 1, WU: 8, HU: 2})
		},
		"props": func(p *domain.Page) { p.Sections[0].Children[0].Children[0].Props["align"] = "center" },
		"type":  func(p *domain.Page) { p.Sections[0].Children[0].Children[0].Type = domain.NodeButton },
		"children": func(p *domain.Page) {
			p.Sections[0].Children[0].Children = nil
		},
		"section": func(p *domain.Page) {
			p.Sections = append(p.Sections, domain.NewSection(domain.SequentialIDs("x")))
		},
		"title": func(p *domain.Page) { p.Title = "New" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			staging := live.Clone()
			mutate(staging)
			assert.False(t, domain.InSync(staging, live))
		})
	}
	assert.False(t, domain.InSync(live, nil))
}

func TestInSync_DefaultUnitsEqualMaterialized(t *testing.T) {
	a := samplePage()
	b := a.Clone()
	a.Sections[0].Children[0].Layout = nil
	assert.True(t, domain.InSync(a, b))
}

// ── Misc ───────────────────────────────────────────────────

func TestPreset_InstantiateGivesFreshIDs(t *testing.T) {
	presets := domain.BuiltinPresets()
	assert.Equal(t, []string{"donate", "events", "gallery", "hero", "map", "text"}, domain.PresetKeys(presets))

	ids := domain.SequentialIDs("p")
	p := domain.NewPage("home", domain.SequentialIDs("n"))
	p.Sections = append(p.Sections, presets["hero"].Instantiate(ids), presets["hero"].Instantiate(ids))
	assert.NoError(t, p.Validate())
	assert.Equal(t, "Hero", p.Sections[1].Name())
}

func TestSetBackground_StripsConflictingUtilities(t *testing.T) {
	s := domain.NewSection(domain.SequentialIDs("s"))
	err := s.SetBackground(domain.Background{
		ClassName: "bg-red-500 bg-cover bg-gradient-to-r from-pink-500 text-white",
		Style:     map[string]any{"backgroundColor": "#fff"},
	})
	assert.ErrorIs(t, err, domain.ErrConflictingBackground)
	assert.Equal(t, "bg-cover bg-gradient-to-r from-pink-500 text-white", s.Background.ClassName)

	err = s.SetBackground(domain.Background{ClassName: "bg-red-500"})
	assert.NoError(t, err)
	assert.Equal(t, "bg-red-500", s.Background.ClassName)
}

func TestParsePage_BackgroundStyleKeepsNonStringValues(t *testing.T) {
	p, err := domain.ParsePage([]byte(`{"slug": "home", "sections": [{"id": "s1",
		"background": {"className": "bg-cover", "style": {"backgroundColor": "#fff", "opacity": 0.5}},
		"children": []}]}`))
	require.NoError(t, err)
	bg := p.Sections[0].Background
	require.NotNil(t, bg)
	assert.Equal(t, 0.5, bg.Style["opacity"])

	clone := p.Clone()
	clone.Sections[0].Background.Style["opacity"] = 1.0
	assert.Equal(t, 0.5, bg.Style["opacity"])

	data, err := json.Marshal(p)
	require.NoError(t, err)
	again, err := domain.ParsePage(data)
	require.NoError(t, err)
	assert.Equal(t, bg.Style, again.Sections[0].Background.Style)

	// a numeric value alone is not a color and leaves utilities alone
	s := domain.NewSection(domain.SequentialIDs("s"))
	require.NoError(t, s.SetBackground(domain.Background{ClassName: "bg-red-500", Style: map[string]any{"opacity": 0.5}}))
	assert.Equal(t, "bg-red-500", s.Background.ClassName)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Hello world & more", domain.PlainText("<h1>Hello</h1><p>world &amp; <b>more</b></p><script>x()</script>"))
	assert.Equal(t, "plain text", domain.PlainText("  plain \n text "))
}

func TestNormalizeImageSrc(t *testing.T) {
	const base = "https://cdn.example.com/assets"
	assert.Equal(t, "abc123", domain.NormalizeImageSrc("https://cdn.example.com/assets/abc123", base))
	assert.Equal(t, "https://other.example.com/a.png", domain.NormalizeImageSrc("https://other.example.com/a.png", base))
	assert.Equal(t, "https://cdn.example.com/assets/abc123", domain.ImageURL("abc123", base))
	assert.Equal(t, "https://x/y.png", domain.ImageURL("https://x/y.png", base))
}
