package domain

import (
	"slices"
	"strings"
)

// NormalizePadding expands the paddingX/paddingY shorthands into the
// canonical split sides. Explicit sides win over the shorthand.
func NormalizePadding(style map[string]any) {
	expand := func(short string, sides ...string) {
		v, ok := style[short]
		if !ok {
			return
		}
		for _, side := range sides {
			if _, set := style[side]; !set {
				style[side] = v
			}
		}
		delete(style, short)
	}
	expand("paddingX", "paddingLeft", "paddingRight")
	expand("paddingY", "paddingTop", "paddingBottom")
}

// Padding returns [top, right, bottom, left] from a normalized style.
func Padding(style map[string]any) [4]float64 {
	var out [4]float64
	for i, k := range []string{"paddingTop", "paddingRight", "paddingBottom", "paddingLeft"} {
		out[i], _ = toFloat(style[k])
	}
	return out
}

// inline properties that conflict with background utility classes
const (
	bgShorthand = "background"
	bgImage     = "backgroundImage"
	bgColor     = "backgroundColor"
)

// Background utilities that do not paint anything themselves and can
// coexist with an inline background.
var bgLayoutTokens = []string{
	"bg-auto", "bg-cover", "bg-contain", "bg-fixed", "bg-local", "bg-scroll",
	"bg-repeat", "bg-no-repeat", "bg-repeat-x", "bg-repeat-y", "bg-repeat-round", "bg-repeat-space",
	"bg-center", "bg-top", "bg-bottom", "bg-left", "bg-right",
	"bg-left-top", "bg-left-bottom", "bg-right-top", "bg-right-bottom",
}

func isBgImageToken(tok string) bool {
	return strings.HasPrefix(tok, "bg-[url") || strings.HasPrefix(tok, "bg-gradient-") ||
		tok == "bg-none" || strings.HasPrefix(tok, "from-") || strings.HasPrefix(tok, "via-") ||
		strings.HasPrefix(tok, "to-")
}

func isBgColorToken(tok string) bool {
	if !strings.HasPrefix(tok, "bg-") || isBgImageToken(tok) || slices.Contains(bgLayoutTokens, tok) {
		return false
	}
	for _, p := range []string{"bg-clip-", "bg-origin-", "bg-blend-", "bg-opacity-"} {
		if strings.HasPrefix(tok, p) {
			return false
		}
	}
	return true
}

// NormalizeBackground strips utility classes that paint the same thing
// as the inline style. It returns the cleaned background and the removed
// tokens; a non-empty removal corresponds to a recovered
// ConflictingBackground.
func NormalizeBackground(bg Background) (Background, []string) {
	hasColor := styleSet(bg.Style, bgColor) || styleSet(bg.Style, bgShorthand)
	hasImage := styleSet(bg.Style, bgImage) || styleSet(bg.Style, bgShorthand)
	if !hasColor && !hasImage {
		return bg, nil
	}
	var kept, removed []string
	for _, tok := range strings.Fields(bg.ClassName) {
		if (hasColor && isBgColorToken(tok)) || (hasImage && isBgImageToken(tok)) {
			removed = append(removed, tok)
			continue
		}
		kept = append(kept, tok)
	}
	bg.ClassName = strings.Join(kept, " ")
	return bg, removed
}

// styleSet reports whether key holds a usable value. Only strings can be
// blank; numbers and other JSON values always count.
func styleSet(style map[string]any, key string) bool {
	v, ok := style[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// BackgroundConflict reports the conflict as an error value for callers
// that surface notices, or nil when nothing was stripped.
func BackgroundConflict(sectionID string, removed []string) error {
	if len(removed) == 0 {
		return nil
	}
	return Errorf(KindConflictingBackground, "set background",
		"section %s: stripped %s", sectionID, strings.Join(removed, " "))
}

// SetBackground replaces the section background, stripping utility
// classes that conflict with the inline style. The returned error is a
// ConflictingBackground notice; the write has already happened.
func (s *Section) SetBackground(bg Background) error {
	clean, removed := NormalizeBackground(bg)
	if clean.ClassName == "" && len(clean.Style) == 0 {
		s.Background = nil
	} else {
		s.Background = &clean
	}
	return BackgroundConflict(s.ID, removed)
}
