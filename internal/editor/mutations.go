package editor

import (
	"context"
	"log"
	"regexp"
	"slices"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/history"
	"pagebuilder/internal/layout"
)

// Translator seeds a new locale from the existing copy. Implementations
// call an external translation service.
type Translator interface {
	Translate(ctx context.Context, locale string, texts []string) (map[string]string, error)
}

// mutate applies a structural change to the page and records it as one
// DocumentAction. fn may return the selection to set afterwards (nil keeps
// the current one). On error, or if the result breaks an invariant, the
// page is restored.
func (e *Editor) mutate(label string, fn func(p *domain.Page) (*domain.Selection, error)) error {
	e.commitEdit()
	e.abortInteractions()
	prev := e.page.Clone()
	prevSel := e.state.Selection.Clone()
	nextSel, err := fn(e.page)
	if err == nil {
		if verr := e.page.Validate(); verr != nil {
			log.Printf("editor: %s broke the document: %v", label, verr)
			err = verr
		}
	}
	if err != nil {
		e.page = prev
		return err
	}
	if nextSel != nil {
		e.setSelection(nextSel)
	}
	e.dropStaleState()
	e.record(&history.DocumentAction{
		Name:          label,
		Prev:          prev,
		Next:          e.page.Clone(),
		PrevSelection: prevSel,
		NextSelection: e.state.Selection.Clone(),
	})
	e.mark(ChangeDocument)
	return nil
}

// ── Sections ───────────────────────────────────────────────

// AddSection appends a default section holding one empty container.
func (e *Editor) AddSection() (string, error) {
	var id string
	err := e.do(func() error {
		return e.mutate("Add section", func(p *domain.Page) (*domain.Selection, error) {
			s := domain.NewSection(e.newID)
			p.Sections = append(p.Sections, s)
			id = s.ID
			return &domain.Selection{SectionID: s.ID}, nil
		})
	})
	return id, err
}

// AddSectionPreset appends a copy of a preset section.
func (e *Editor) AddSectionPreset(key string) (string, error) {
	var id string
	err := e.do(func() error {
		preset, ok := e.presets[key]
		if !ok {
			return domain.Errorf(domain.KindInvalidInput, "add preset", "unknown preset %q", key)
		}
		return e.mutate("Add "+preset.Name, func(p *domain.Page) (*domain.Selection, error) {
			s := preset.Instantiate(e.newID)
			p.Sections = append(p.Sections, s)
			id = s.ID
			return &domain.Selection{SectionID: s.ID}, nil
		})
	})
	return id, err
}

// PresetKeys lists the presets AddSectionPreset accepts.
func (e *Editor) PresetKeys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.PresetKeys(e.presets)
}

// DeleteSection removes a section. Confirmation is the caller's concern.
func (e *Editor) DeleteSection(sectionID string) error {
	return e.do(func() error {
		return e.mutate("Delete section", func(p *domain.Page) (*domain.Selection, error) {
			i := p.SectionIndex(sectionID)
			if i < 0 {
				return nil, domain.Errorf(domain.KindUnknownNode, "delete section", "section %s", sectionID)
			}
			p.Sections = slices.Delete(p.Sections, i, i+1)
			return nil, nil
		})
	})
}

// MoveSection shifts a section up (negative delta) or down the page.
func (e *Editor) MoveSection(sectionID string, delta int) error {
	return e.do(func() error {
		i := e.page.SectionIndex(sectionID)
		if i < 0 {
			return domain.Errorf(domain.KindUnknownNode, "move section", "section %s", sectionID)
		}
		j := min(max(i+delta, 0), len(e.page.Sections)-1)
		if i == j {
			return nil
		}
		return e.mutate("Move section", func(p *domain.Page) (*domain.Selection, error) {
			s := p.Sections[i]
			p.Sections = slices.Delete(p.Sections, i, i+1)
			p.Sections = slices.Insert(p.Sections, j, s)
			return nil, nil
		})
	})
}

// DuplicateSection inserts a copy of a section right after it.
func (e *Editor) DuplicateSection(sectionID string) (string, error) {
	var id string
	err := e.do(func() error {
		return e.mutate("Duplicate section", func(p *domain.Page) (*domain.Selection, error) {
			i := p.SectionIndex(sectionID)
			if i < 0 {
				return nil, domain.Errorf(domain.KindUnknownNode, "duplicate section", "section %s", sectionID)
			}
			c := p.Sections[i].Clone()
			c.ID = e.newID()
			for _, n := range c.Children {
				n.ReassignIDs(e.newID)
			}
			if c.StyleTokens == nil {
				c.StyleTokens = map[string]any{}
			}
			c.StyleTokens["name"] = p.Sections[i].Name() + " copy"
			p.Sections = slices.Insert(p.Sections, i+1, c)
			id = c.ID
			return &domain.Selection{SectionID: c.ID}, nil
		})
	})
	return id, err
}

// RenameSection sets the sidebar label of a section.
func (e *Editor) RenameSection(sectionID, name string) error {
	return e.SetSectionToken(sectionID, "name", name)
}

// SetSectionFont sets the font family of a section. An empty family
// falls back to the page default.
func (e *Editor) SetSectionFont(sectionID, family string) error {
	if family == "" {
		return e.SetSectionToken(sectionID, "fontFamily", nil)
	}
	return e.SetSectionToken(sectionID, "fontFamily", family)
}

// SetSectionToken writes one section style token; nil removes it.
func (e *Editor) SetSectionToken(sectionID, key string, value any) error {
	return e.do(func() error {
		return e.mutate("Edit section", func(p *domain.Page) (*domain.Selection, error) {
			s := p.Section(sectionID)
			if s == nil {
				return nil, domain.Errorf(domain.KindUnknownNode, "edit section", "section %s", sectionID)
			}
			if s.StyleTokens == nil {
				s.StyleTokens = map[string]any{}
			}
			if value == nil {
				delete(s.StyleTokens, key)
			} else {
				s.StyleTokens[key] = value
			}
			return nil, nil
		})
	})
}

// SetSectionBackground replaces a section background. Utility classes
// that conflict with an inline background are stripped; the returned
// ConflictingBackground error is a notice and the write still happens.
func (e *Editor) SetSectionBackground(sectionID string, bg domain.Background) error {
	var notice error
	err := e.do(func() error {
		return e.mutate("Edit background", func(p *domain.Page) (*domain.Selection, error) {
			s := p.Section(sectionID)
			if s == nil {
				return nil, domain.Errorf(domain.KindUnknownNode, "set background", "section %s", sectionID)
			}
			notice = s.SetBackground(bg)
			return nil, nil
		})
	})
	if err != nil {
		return err
	}
	return notice
}

// ── Page ───────────────────────────────────────────────────

// SetPageTitle renames the page.
func (e *Editor) SetPageTitle(title string) error {
	return e.do(func() error {
		if e.page.Title == title {
			return nil
		}
		return e.mutate("Rename page", func(p *domain.Page) (*domain.Selection, error) {
			p.Title = title
			return nil, nil
		})
	})
}

// SetPageVisible shows or hides the live page.
func (e *Editor) SetPageVisible(visible bool) error {
	return e.do(func() error {
		return e.mutate("Change visibility", func(p *domain.Page) (*domain.Selection, error) {
			if visible {
				p.Visible = nil
			} else {
				p.Visible = &visible
			}
			return nil, nil
		})
	})
}

// SetPageStyleToken writes one page-wide style token; nil removes it.
func (e *Editor) SetPageStyleToken(key string, value any) error {
	return e.do(func() error {
		return e.mutate("Edit page style", func(p *domain.Page) (*domain.Selection, error) {
			if p.StyleTokens == nil {
				p.StyleTokens = map[string]any{}
			}
			if value == nil {
				delete(p.StyleTokens, key)
			} else {
				p.StyleTokens[key] = value
			}
			return nil, nil
		})
	})
}

// ── Nodes ──────────────────────────────────────────────────

// AddElement appends a default node of type t to the first container of
// the last section and selects it. The node lands at the container origin
// with the type's default size.
func (e *Editor) AddElement(t domain.NodeType) (string, error) {
	var id string
	err := e.do(func() error {
		if !t.Valid() {
			return domain.Errorf(domain.KindInvalidInput, "add element", "unknown type %q", t)
		}
		return e.mutate("Add "+string(t), func(p *domain.Page) (*domain.Selection, error) {
			if len(p.Sections) == 0 {
				p.Sections = append(p.Sections, domain.NewSection(e.newID))
			}
			s := p.Sections[len(p.Sections)-1]
			n := domain.NewNode(e.newID(), t, domain.DefaultUnits(t, 0, 0))
			if parent := s.FirstContainer(); parent != nil {
				origin := s.EffectiveUnits()[parent.ID]
				u := domain.DefaultUnits(t, origin.XU, origin.YU)
				if t == domain.NodeContainer {
					u = u.Translate(origin.XU, origin.YU)
				}
				n.SetUnits(layout.ClampMove(u, origin))
				parent.Children = append(parent.Children, n)
			} else {
				s.Children = append(s.Children, n)
			}
			id = n.ID
			return &domain.Selection{SectionID: s.ID, NodeID: n.ID}, nil
		})
	})
	return id, err
}

// DeleteNode removes a node and its subtree.
func (e *Editor) DeleteNode(sectionID, nodeID string) error {
	return e.do(func() error { return e.deleteNode(sectionID, nodeID) })
}

func (e *Editor) deleteNode(sectionID, nodeID string) error {
	return e.mutate("Delete element", func(p *domain.Page) (*domain.Selection, error) {
		s := p.Section(sectionID)
		if s == nil || s.RemoveNode(nodeID) == nil {
			return nil, domain.Errorf(domain.KindUnknownNode, "delete node", "node %s in section %s", nodeID, sectionID)
		}
		return nil, nil
	})
}

// SetProp writes one prop of a node in the active locale. Inside an edit
// session the write joins the session entry; otherwise it is recorded on
// its own.
func (e *Editor) SetProp(sectionID, nodeID, key string, value any) error {
	return e.do(func() error {
		return e.editNode(sectionID, nodeID, "Edit "+key, func(n *domain.Node) error {
			if err := domain.ValidateProp(n.Type, key, value); err != nil {
				return err
			}
			if n.Type == domain.NodeImage && key == "src" {
				if src, ok := value.(string); ok {
					value = domain.NormalizeImageSrc(src, e.assetBase)
				}
			}
			return domain.WriteProp(n, key, value, e.state.ActiveLocale, e.page.LocaleSet())
		})
	})
}

// ClearOverride removes the active locale's override of key, falling back
// to the default-locale prop.
func (e *Editor) ClearOverride(sectionID, nodeID, key string) error {
	return e.do(func() error {
		locale := e.state.ActiveLocale
		return e.editNode(sectionID, nodeID, "Clear translation", func(n *domain.Node) error {
			domain.ClearOverride(n, key, locale)
			return nil
		})
	})
}

// SetStyle writes one style key of a node; nil removes it. Padding
// shorthands are expanded into split sides.
func (e *Editor) SetStyle(sectionID, nodeID, key string, value any) error {
	return e.do(func() error {
		return e.editNode(sectionID, nodeID, "Edit style", func(n *domain.Node) error {
			if err := domain.ValidateStyle(key, value); err != nil {
				return err
			}
			if n.Style == nil {
				n.Style = map[string]any{}
			}
			if value == nil {
				delete(n.Style, key)
				return nil
			}
			switch key {
			case "paddingX":
				delete(n.Style, "paddingLeft")
				delete(n.Style, "paddingRight")
			case "paddingY":
				delete(n.Style, "paddingTop")
				delete(n.Style, "paddingBottom")
			}
			n.Style[key] = value
			domain.NormalizePadding(n.Style)
			return nil
		})
	})
}

// editNode applies fn to a node, coalescing into the open edit session
// when there is one for that node.
func (e *Editor) editNode(sectionID, nodeID, label string, fn func(n *domain.Node) error) error {
	_, n, err := e.lookup(sectionID, nodeID)
	if err != nil {
		return err
	}
	prev := n.Clone()
	if err := fn(n); err != nil {
		n.Props, n.Style, n.I18n = prev.Props, prev.Style, prev.I18n
		return err
	}
	if sameContent(prev, n) {
		return nil
	}
	e.mark(ChangeDocument)
	if e.inEdit(sectionID, nodeID) {
		return nil
	}
	e.record(&history.NodeAction{SectionID: sectionID, NodeID: nodeID, Prev: prev, Next: n.Clone(), Name: label})
	return nil
}

// ── Locales ────────────────────────────────────────────────

var localeCode = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z0-9]{2,8})*$`)

// AddLocale enables a locale on the page. With a translator, existing
// copy is seeded into the new locale's overrides. A translation failure
// still adds the locale, unseeded, and is returned.
func (e *Editor) AddLocale(ctx context.Context, code string, tr Translator) error {
	if !localeCode.MatchString(code) {
		return domain.Errorf(domain.KindInvalidLocale, "add locale", "malformed locale %q", code)
	}
	e.mu.Lock()
	exists := e.page.HasLocale(code)
	texts := domain.UniqueValues(domain.CollectTranslatablePairs(e.page.Sections))
	e.mu.Unlock()
	if exists {
		return nil
	}

	var translations map[string]string
	var trErr error
	if tr != nil && len(texts) > 0 {
		translations, trErr = tr.Translate(ctx, code, texts)
		if trErr != nil {
			trErr = domain.Wrap(domain.KindNetworkTransient, "translate", trErr)
			log.Printf("editor: seeding locale %s failed: %v", code, trErr)
		}
	}

	err := e.do(func() error {
		if e.page.HasLocale(code) {
			return nil
		}
		return e.mutate("Add language "+code, func(p *domain.Page) (*domain.Selection, error) {
			p.Locales = append(p.Locales, code)
			if len(translations) > 0 {
				p.Sections = domain.EnsurePageLocale(p.Sections, code, translations)
			}
			return nil, nil
		})
	})
	if err != nil {
		return err
	}
	return trErr
}

// RemoveLocale disables a non-default locale and drops its overrides.
func (e *Editor) RemoveLocale(code string) error {
	return e.do(func() error {
		if code == e.page.DefaultLocale {
			return domain.Errorf(domain.KindInvalidLocale, "remove locale", "%s is the default locale", code)
		}
		if !e.page.HasLocale(code) {
			return nil
		}
		return e.mutate("Remove language "+code, func(p *domain.Page) (*domain.Selection, error) {
			p.Locales = slices.DeleteFunc(p.Locales, func(l string) bool { return l == code })
			for _, s := range p.Sections {
				domain.Walk(s.Children, func(n, _ *domain.Node, _ int) bool {
					delete(n.I18n, code)
					if len(n.I18n) == 0 {
						n.I18n = nil
					}
					return true
				})
			}
			return nil, nil
		})
	})
}

// SetActiveLocale switches the locale props are read and written in. It
// changes editor state only.
func (e *Editor) SetActiveLocale(code string) error {
	return e.do(func() error {
		if code == "" {
			code = e.page.DefaultLocale
		}
		if !e.page.HasLocale(code) {
			return domain.Errorf(domain.KindInvalidLocale, "set active locale", "locale %q is not enabled on this page", code)
		}
		if e.state.ActiveLocale == code {
			return nil
		}
		e.commitEdit()
		e.state.ActiveLocale = code
		e.mark(ChangeState)
		return nil
	})
}

// ── Transient state ────────────────────────────────────────

// Select changes the selection and records the transition. An empty
// sectionID clears it.
func (e *Editor) Select(sectionID, nodeID string) error {
	return e.do(func() error {
		if sectionID == "" {
			e.selectRecorded(nil)
			return nil
		}
		s := e.page.Section(sectionID)
		if s == nil {
			return domain.Errorf(domain.KindUnknownNode, "select", "section %s", sectionID)
		}
		if nodeID != "" && s.FindNode(nodeID) == nil {
			return domain.Errorf(domain.KindUnknownNode, "select", "node %s in section %s", nodeID, sectionID)
		}
		e.selectRecorded(&domain.Selection{SectionID: sectionID, NodeID: nodeID})
		return nil
	})
}

// ClearSelection deselects everything.
func (e *Editor) ClearSelection() {
	_ = e.Select("", "")
}

// SetHover marks the node under the pointer; empty clears it.
func (e *Editor) SetHover(nodeID string) {
	_ = e.do(func() error {
		if e.state.HoveredNodeID != nodeID {
			e.state.HoveredNodeID = nodeID
			e.mark(ChangeState)
		}
		return nil
	})
}

// SetHighlight marks a node to flash, e.g. from the sidebar.
func (e *Editor) SetHighlight(nodeID string) {
	_ = e.do(func() error {
		if e.state.HighlightNodeID != nodeID {
			e.state.HighlightNodeID = nodeID
			e.mark(ChangeState)
		}
		return nil
	})
}

// SetPaddingOverlay shows padding guides for a node; nil hides them.
func (e *Editor) SetPaddingOverlay(nodeID string, padding *[4]float64) {
	_ = e.do(func() error {
		if padding == nil {
			delete(e.state.PaddingOverlay, nodeID)
		} else {
			e.state.PaddingOverlay[nodeID] = *padding
		}
		e.mark(ChangeState)
		return nil
	})
}

// SetContainerWidth records a measured section width from the canvas.
func (e *Editor) SetContainerWidth(sectionID string, px float64) error {
	return e.do(func() error {
		if !(px > 0) {
			return domain.Errorf(domain.KindInvalidGeometry, "set container width", "section %s: %v", sectionID, px)
		}
		if e.state.ContainerWidths[sectionID] != px {
			e.state.ContainerWidths[sectionID] = px
			e.mark(ChangeState)
		}
		return nil
	})
}

// CloseInspector hides the element inspector.
func (e *Editor) CloseInspector() {
	_ = e.do(func() error {
		if e.state.InspectorNodeID != "" {
			e.commitEdit()
			e.state.InspectorNodeID = ""
			e.mark(ChangeState)
		}
		return nil
	})
}
