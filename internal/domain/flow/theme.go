package flow

import (
	"sort"
	"strings"
)

// Appearance is the host's light or dark mode
type Appearance string

const (
	Light Appearance = "light"
	Dark  Appearance = "dark"
)

// ColorPair is a color that may differ per appearance
type ColorPair struct {
	Light string `json:"light"`
	Dark  string `json:"dark,omitempty"`
}

// For picks the color for an appearance; dark falls back to light
func (c ColorPair) For(a Appearance) string {
	if a == Dark && c.Dark != "" {
		return c.Dark
	}
	return c.Light
}

// Theme holds named colors referenced from element styles as "$name"
type Theme struct {
	Colors     map[string]ColorPair `json:"colors,omitempty"`
	FontFamily string               `json:"fontFamily,omitempty"`
}

// Color resolves a style color. Literal colors pass through; "$name"
// references resolve through the theme and report false when undefined.
func (t *Theme) Color(ref string, a Appearance) (string, bool) {
	name, isRef := strings.CutPrefix(strings.TrimSpace(ref), "$")
	if !isRef {
		return ref, ref != ""
	}
	if t == nil {
		return "", false
	}
	pair, ok := t.Colors[name]
	if !ok {
		return "", false
	}
	c := pair.For(a)
	return c, c != ""
}

// Names returns the defined color names in sorted order
func (t *Theme) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.Colors))
	for n := range t.Colors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func decodeTheme(dc *DecodeContext, n Node) *Theme {
	raw, ok := n.Lookup("theme")
	if !ok {
		return nil
	}
	obj, ok := AsNode(raw)
	if !ok {
		dc.Warn("theme", "expected object, got %T", raw)
		return nil
	}
	t := &Theme{Colors: make(map[string]ColorPair)}
	t.FontFamily, _ = obj.String("fontFamily", "font_family", "font")

	colors, ok := obj.Object("variables", "colors")
	if !ok {
		return t
	}
	for name, v := range colors {
		switch c := v.(type) {
		case string:
			t.Colors[name] = ColorPair{Light: c}
		default:
			pair, ok := AsNode(v)
			if !ok {
				dc.Warn("theme."+name, "expected color or {light, dark}, got %T", v)
				continue
			}
			light, _ := pair.String("light", "value", "default")
			dark, _ := pair.String("dark")
			if light == "" && dark == "" {
				dc.Warn("theme."+name, "no color values")
				continue
			}
			if light == "" {
				light = dark
			}
			t.Colors[name] = ColorPair{Light: light, Dark: dark}
		}
	}
	return t
}
