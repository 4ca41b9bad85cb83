package domain

import (
	"encoding/json"
	"fmt"
	"slices"
)

type NodeType string

const (
	NodeContainer NodeType = "container"
	NodeText      NodeType = "text"
	NodeButton    NodeType = "button"
	NodeImage     NodeType = "image"
	NodeEventList NodeType = "eventList"
	NodeMap       NodeType = "map"
	NodePaypal    NodeType = "paypal"
)

// NodeTypes lists every element type the builder can create.
var NodeTypes = []NodeType{NodeContainer, NodeText, NodeButton, NodeImage, NodeEventList, NodeMap, NodePaypal}

func (t NodeType) Valid() bool { return slices.Contains(NodeTypes, t) }

// Node is an element inside a section. Coordinates in Layout are always
// section-relative, including for nodes nested in containers.
type Node struct {
	ID       string                    `json:"id"`
	Type     NodeType                  `json:"type"`
	Props    map[string]any            `json:"props,omitempty"`
	Style    map[string]any            `json:"style,omitempty"`
	Layout   *Layout                   `json:"layout,omitempty"`
	I18n     map[string]map[string]any `json:"i18n,omitempty"`
	Children []*Node                   `json:"children"`
	Extra    Extra                     `json:"-"`
}

var nodeKeys = []string{"id", "type", "props", "style", "layout", "i18n", "children"}

func (n *Node) UnmarshalJSON(data []byte) error {
	type plain Node
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := splitExtra(data, nodeKeys...)
	if err != nil {
		return err
	}
	*n = Node(p)
	n.Extra = extra
	return nil
}

func (n Node) MarshalJSON() ([]byte, error) {
	type plain Node
	p := plain(n)
	if p.Children == nil {
		p.Children = []*Node{}
	}
	return joinExtra(p, n.Extra)
}

// NewNode builds a node of type t with default props and explicit units.
func NewNode(id string, t NodeType, units Units) *Node {
	return &Node{
		ID:       id,
		Type:     t,
		Props:    DefaultProps(t),
		Style:    map[string]any{},
		Layout:   &Layout{Units: &units},
		Children: []*Node{},
	}
}

// IsContainer reports whether n may carry children.
func (n *Node) IsContainer() bool { return n.Type == NodeContainer }

// HasUnits reports whether n carries an explicit unit rectangle.
func (n *Node) HasUnits() bool { return n.Layout != nil && n.Layout.Units != nil }

// Units returns the explicit units of n or the type defaults at the
// section origin. Nested nodes should use UnitsAt with their parent.
func (n *Node) Units() Units {
	return n.UnitsAt(0, 0)
}

// UnitsAt returns the explicit units of n, or the type defaults placed at
// the given parent origin.
func (n *Node) UnitsAt(originXU, originYU int) Units {
	if n.HasUnits() {
		return *n.Layout.Units
	}
	return DefaultUnits(n.Type, originXU, originYU)
}

// SetUnits stores u as the explicit layout of n.
func (n *Node) SetUnits(u Units) {
	if n.Layout == nil {
		n.Layout = &Layout{}
	}
	n.Layout.Units = &u
}

// Clone returns a deep copy of n and its subtree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		ID:    n.ID,
		Type:  n.Type,
		Props: cloneMap(n.Props),
		Style: cloneMap(n.Style),
		Extra: n.Extra.clone(),
	}
	if n.Layout != nil {
		l := Layout{Extra: n.Layout.Extra.clone()}
		if n.Layout.Units != nil {
			u := *n.Layout.Units
			l.Units = &u
		}
		c.Layout = &l
	}
	if n.I18n != nil {
		c.I18n = make(map[string]map[string]any, len(n.I18n))
		for loc, vals := range n.I18n {
			c.I18n[loc] = cloneMap(vals)
		}
	}
	c.Children = make([]*Node, len(n.Children))
	for i, ch := range n.Children {
		c.Children[i] = ch.Clone()
	}
	return c
}

// Label is a short human-readable summary used by the sidebar and tools.
func (n *Node) Label() string {
	var s string
	switch n.Type {
	case NodeText:
		s, _ = n.Props["html"].(string)
		s = PlainText(s)
	case NodeButton:
		s, _ = n.Props["label"].(string)
	case NodeImage:
		s, _ = n.Props["alt"].(string)
	case NodeEventList:
		s, _ = n.Props["title"].(string)
	case NodeMap:
		s, _ = n.Props["place"].(string)
	}
	if s == "" {
		return string(n.Type)
	}
	if r := []rune(s); len(r) > 40 {
		return string(r[:39]) + "…"
	}
	return s
}

// ── Typed props ────────────────────────────────────────────

type TextProps struct {
	HTML    string `json:"html"`
	Align   string `json:"align"`
	Variant string `json:"variant,omitempty"`
}

type ButtonProps struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

type ImageProps struct {
	Src       string `json:"src"`
	Alt       string `json:"alt"`
	ObjectFit string `json:"objectFit"`
}

type ContainerProps struct {
	MaxWidth string `json:"maxWidth"`
	PaddingX int    `json:"paddingX"`
	PaddingY int    `json:"paddingY"`
}

type EventListProps struct {
	Title       string `json:"title"`
	ShowFilters bool   `json:"showFilters"`
	ShowTitle   bool   `json:"showTitle"`
}

type MapProps struct {
	EmbedURL string `json:"embedUrl"`
	Place    string `json:"place"`
}

type PaypalProps struct {
	HostedButtonID string `json:"hostedButtonId"`
}

// PropsAs decodes the props of n into a typed view.
func PropsAs[T any](n *Node) (T, error) {
	var out T
	if err := decodeInto(n.Props, &out); err != nil {
		return out, fmt.Errorf("decode %s props: %w", n.Type, err)
	}
	return out, nil
}

// DefaultProps returns fresh default props for a node type.
func DefaultProps(t NodeType) map[string]any {
	switch t {
	case NodeText:
		return map[string]any{"html": "<p>New text</p>", "align": "left", "variant": "p"}
	case NodeButton:
		return map[string]any{"label": "Button", "href": "#"}
	case NodeImage:
		return map[string]any{"src": "", "alt": "", "objectFit": "cover"}
	case NodeContainer:
		return map[string]any{"maxWidth": "full", "paddingX": 0, "paddingY": 0}
	case NodeEventList:
		return map[string]any{"title": "Upcoming events", "showFilters": true, "showTitle": true}
	case NodeMap:
		return map[string]any{"embedUrl": "", "place": ""}
	case NodePaypal:
		return map[string]any{"hostedButtonId": ""}
	}
	return map[string]any{}
}

var (
	textAligns   = []string{"left", "center", "right"}
	textVariants = []string{"h1", "h2", "h3", "p", "lead"}
	objectFits   = []string{"cover", "contain", "fill", "none", "scale-down"}
	maxWidths    = []string{"sm", "md", "lg", "xl", "2xl", "full"}
	textStyles   = []string{"bold", "italic", "underline"}
)

// TranslatableKeys lists, per type, the props that carry user-facing copy.
var TranslatableKeys = map[NodeType][]string{
	NodeText:   {"html"},
	NodeButton: {"label"},
	NodeImage:  {"alt"},
}

// ValidateProp checks a single prop value for node type t.
func ValidateProp(t NodeType, key string, value any) error {
	const op = "validate prop"
	oneOf := func(allowed []string) error {
		s, ok := value.(string)
		if !ok || !slices.Contains(allowed, s) {
			return Errorf(KindInvalidInput, op, "%s.%s: %v not in %v", t, key, value, allowed)
		}
		return nil
	}
	switch {
	case t == NodeText && key == "align":
		return oneOf(textAligns)
	case t == NodeText && key == "variant":
		return oneOf(textVariants)
	case t == NodeImage && key == "objectFit":
		return oneOf(objectFits)
	case t == NodeContainer && key == "maxWidth":
		return oneOf(maxWidths)
	case t == NodeContainer && (key == "paddingX" || key == "paddingY"):
		f, ok := toFloat(value)
		if !ok || f < 0 || f > 12 {
			return Errorf(KindInvalidInput, op, "%s.%s: %v not in [0,12]", t, key, value)
		}
	}
	return nil
}

// ValidateStyle checks the style keys that have constrained values.
func ValidateStyle(key string, value any) error {
	if key != "textStyles" {
		return nil
	}
	items, ok := toStrings(value)
	if !ok {
		return Errorf(KindInvalidInput, "validate style", "textStyles: %v is not a list", value)
	}
	for _, s := range items {
		if !slices.Contains(textStyles, s) {
			return Errorf(KindInvalidInput, "validate style", "textStyles: %q not in %v", s, textStyles)
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toStrings(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
