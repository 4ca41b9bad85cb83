package domain

import (
	"encoding/json"
	"reflect"
)

// Normalize projects p onto the fields that decide whether two copies of
// a page are the same publication: version, slug, title, visibility and
// the section trees. Nodes keep only type, defined props, units and
// children. Ids, unknown members, cached pixels and sidebar names drop.
func Normalize(p *Page) map[string]any {
	if p == nil {
		return nil
	}
	sections := make([]any, len(p.Sections))
	for i, s := range p.Sections {
		sections[i] = normalizeSection(s)
	}
	proj := map[string]any{
		"version":  PageVersion,
		"slug":     p.Slug,
		"title":    p.Title,
		"visible":  p.IsVisible(),
		"sections": sections,
	}
	return canonical(proj)
}

func normalizeSection(s *Section) map[string]any {
	out := map[string]any{
		"builderGrid": s.Grid(),
		"children":    normalizeNodes(s.Children, Units{}),
	}
	if s.Background != nil {
		out["background"] = s.Background
	}
	tokens := cloneMap(s.StyleTokens)
	delete(tokens, "name")
	if len(tokens) > 0 {
		out["styleTokens"] = tokens
	}
	return out
}

func normalizeNodes(nodes []*Node, origin Units) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		props := map[string]any{}
		for k, v := range n.Props {
			if v != nil {
				props[k] = v
			}
		}
		u := n.UnitsAt(origin.XU, origin.YU)
		out[i] = map[string]any{
			"type":     n.Type,
			"props":    props,
			"units":    u,
			"children": normalizeNodes(n.Children, u),
		}
	}
	return out
}

// canonical round-trips v through JSON so numbers, structs and maps
// compare by value regardless of how they were built.
func canonical(v map[string]any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// InSync reports whether staging and live normalize to the same value.
// A missing copy is never in sync.
func InSync(staging, live *Page) bool {
	if staging == nil || live == nil {
		return false
	}
	return reflect.DeepEqual(Normalize(staging), Normalize(live))
}

// SameDocument reports whether a and b serialize to the same JSON once
// migrated, including ids, styles, overrides and unknown members.
func SameDocument(a, b *Page) bool {
	if a == nil || b == nil {
		return a == b
	}
	return reflect.DeepEqual(documentValue(a), documentValue(b))
}

func documentValue(p *Page) any {
	c := p.Clone()
	c.Migrate()
	data, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
