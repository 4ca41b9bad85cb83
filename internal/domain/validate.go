package domain

import (
	"errors"
	"fmt"
	"slices"
)

// Validate checks the invariants every page must hold after a mutation:
// unique ids, valid units, i18n only for enabled non-default locales and
// clamped grids. Violations are reported as InternalInvariant.
func (p *Page) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	checkID := func(id, what string) {
		if id == "" {
			errs = append(errs, fmt.Errorf("%s with empty id", what))
			return
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("duplicate id %q", id))
		}
		seen[id] = true
	}
	if !slices.Contains(p.Locales, p.DefaultLocale) {
		errs = append(errs, fmt.Errorf("default locale %q missing from locales", p.DefaultLocale))
	}
	for _, s := range p.Sections {
		checkID(s.ID, "section")
		if s.BuilderGrid != nil && *s.BuilderGrid != s.BuilderGrid.Clamp() {
			errs = append(errs, fmt.Errorf("section %s: grid out of range", s.ID))
		}
		Walk(s.Children, func(n, _ *Node, _ int) bool {
			checkID(n.ID, "node")
			if n.HasUnits() && !n.Layout.Units.Valid() {
				errs = append(errs, fmt.Errorf("node %s: invalid units %s", n.ID, n.Layout.Units))
			}
			for loc := range n.I18n {
				if loc == p.DefaultLocale || !slices.Contains(p.Locales, loc) {
					errs = append(errs, fmt.Errorf("node %s: override for locale %q", n.ID, loc))
				}
			}
			return true
		})
	}
	if len(errs) == 0 {
		return nil
	}
	return Wrap(KindInternalInvariant, "validate page", errors.Join(errs...))
}
