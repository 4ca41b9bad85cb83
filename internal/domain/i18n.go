package domain

import (
	"slices"

	"github.com/samber/lo"
)

// LocaleSet is the locale configuration needed to route a prop write.
type LocaleSet struct {
	Default string
	All     []string
}

func (l LocaleSet) overrides(active string) bool {
	return active != "" && active != l.Default
}

// ResolveProp returns the value of key as seen in activeLocale: the
// locale override when one exists, the base prop otherwise.
func ResolveProp(n *Node, key, activeLocale, defaultLocale string) any {
	if activeLocale != "" && activeLocale != defaultLocale {
		if vals, ok := n.I18n[activeLocale]; ok {
			if v, ok := vals[key]; ok {
				return v
			}
		}
	}
	return n.Props[key]
}

// WriteProp stores value for key. Non-default locales write an override
// into i18n; the default locale writes the base prop.
func WriteProp(n *Node, key string, value any, activeLocale string, locales LocaleSet) error {
	if !locales.overrides(activeLocale) {
		if n.Props == nil {
			n.Props = map[string]any{}
		}
		n.Props[key] = value
		return nil
	}
	if !slices.Contains(locales.All, activeLocale) {
		return Errorf(KindInvalidLocale, "write prop", "locale %q is not enabled on this page", activeLocale)
	}
	if n.I18n == nil {
		n.I18n = map[string]map[string]any{}
	}
	if n.I18n[activeLocale] == nil {
		n.I18n[activeLocale] = map[string]any{}
	}
	n.I18n[activeLocale][key] = value
	return nil
}

// ClearOverride drops the override of key in locale, pruning empty maps.
func ClearOverride(n *Node, key, locale string) {
	vals, ok := n.I18n[locale]
	if !ok {
		return
	}
	delete(vals, key)
	if len(vals) == 0 {
		delete(n.I18n, locale)
	}
	if len(n.I18n) == 0 {
		n.I18n = nil
	}
}

// TranslatablePair is one piece of copy that a translator can localize.
type TranslatablePair struct {
	NodeID string `json:"nodeId"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// CollectTranslatablePairs lists the non-empty copy of every node.
func CollectTranslatablePairs(sections []*Section) []TranslatablePair {
	var out []TranslatablePair
	for _, s := range sections {
		Walk(s.Children, func(n, _ *Node, _ int) bool {
			for _, key := range TranslatableKeys[n.Type] {
				if v, ok := n.Props[key].(string); ok && v != "" {
					out = append(out, TranslatablePair{NodeID: n.ID, Key: key, Value: v})
				}
			}
			return true
		})
	}
	return out
}

// UniqueValues returns the distinct source strings of pairs, in order.
func UniqueValues(pairs []TranslatablePair) []string {
	return lo.Uniq(lo.Map(pairs, func(p TranslatablePair, _ int) string { return p.Value }))
}

// EnsurePageLocale returns a copy of sections where every translatable
// prop with an entry in translations gets an override in locale. Nodes
// without a mapping are left untouched.
func EnsurePageLocale(sections []*Section, locale string, translations map[string]string) []*Section {
	out := make([]*Section, len(sections))
	for i, s := range sections {
		c := s.Clone()
		Walk(c.Children, func(n, _ *Node, _ int) bool {
			for _, key := range TranslatableKeys[n.Type] {
				src, ok := n.Props[key].(string)
				if !ok {
					continue
				}
				tr, ok := translations[src]
				if !ok {
					continue
				}
				if n.I18n == nil {
					n.I18n = map[string]map[string]any{}
				}
				if n.I18n[locale] == nil {
					n.I18n[locale] = map[string]any{}
				}
				n.I18n[locale][key] = tr
			}
			return true
		})
		out[i] = c
	}
	return out
}
