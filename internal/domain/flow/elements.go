package flow

import (
	"strconv"
	"strings"
)

// Axis is the direction a container stacks its children
type Axis string

const (
	AxisVertical   Axis = "vertical"
	AxisHorizontal Axis = "horizontal"
)

func parseAxis(s string) (Axis, bool) {
	switch NormalizeTag(s) {
	case "vertical", "column", "col", "v", "y":
		return AxisVertical, true
	case "horizontal", "row", "h", "x":
		return AxisHorizontal, true
	}
	return "", false
}

// Distribution spreads children along the container axis
type Distribution string

// Alignment positions children across the container axis
type Alignment string

var distributions = map[string]Distribution{
	"start": "start", "leading": "start", "top": "start", "flexstart": "start",
	"center": "center", "middle": "center",
	"end": "end", "trailing": "end", "bottom": "end", "flexend": "end",
	"spacebetween": "space_between", "spacearound": "space_around",
	"spaceevenly": "space_evenly", "fill": "fill", "equal": "fill",
}

var alignments = map[string]Alignment{
	"start": "leading", "leading": "leading", "left": "leading", "top": "leading",
	"center": "center", "middle": "center",
	"end": "trailing", "trailing": "trailing", "right": "trailing", "bottom": "trailing",
	"stretch": "stretch", "fill": "stretch",
}

// Container stacks child elements along an axis
type Container struct {
	Base
	Axis         Axis         `json:"axis"`
	Spacing      *UnitValue   `json:"spacing,omitempty"`
	Distribution Distribution `json:"distribution,omitempty"`
	Alignment    Alignment    `json:"alignment,omitempty"`
	Wrap         bool         `json:"wrap,omitempty"`
	Children     []Element    `json:"children"`
}

func (*Container) Kind() Kind                   { return KindContainer }
func (c *Container) ChildElements() []Element { return c.Children }

func decodeContainer(dc *DecodeContext, n Node, base Base) (Element, error) {
	c := &Container{Base: base}

	if s, ok := n.String("axis", "direction", "orientation", "layout"); ok {
		if axis, ok := parseAxis(s); ok {
			c.Axis = axis
		}
	}
	if c.Axis == "" {
		// Tag-implied axis for the shorthand stacks
		switch NormalizeTag(base.Type) {
		case "vstack", "column":
			c.Axis = AxisVertical
		case "hstack", "row":
			c.Axis = AxisHorizontal
		}
	}
	if c.Axis == "" {
		return nil, missingField("axis")
	}

	c.Spacing = unitPtr(n, "spacing", "gap")
	if s, ok := n.String("distribution", "justify", "justifyContent"); ok {
		if d, known := distributions[NormalizeTag(s)]; known {
			c.Distribution = d
		} else {
			dc.Warn("distribution", "unknown value %q", s)
		}
	}
	if s, ok := n.String("alignment", "align", "alignItems"); ok {
		if a, known := alignments[NormalizeTag(s)]; known {
			c.Alignment = a
		} else {
			dc.Warn("alignment", "unknown value %q", s)
		}
	}
	c.Wrap, _ = n.Bool("wrap")
	c.Children = dc.Elements(n, "children", "elements", "components")
	return c, nil
}

// TextAlign positions text within its box
type TextAlign string

var textAligns = map[string]TextAlign{
	"left": "left", "leading": "left", "start": "left",
	"center": "center", "centre": "center", "middle": "center",
	"right": "right", "trailing": "right", "end": "right",
	"justify": "justify", "justified": "justify",
}

// Text displays a run of text
type Text struct {
	Base
	Content    string     `json:"content"`
	FontSize   *UnitValue `json:"fontSize,omitempty"`
	FontWeight string     `json:"fontWeight,omitempty"`
	FontFamily string     `json:"fontFamily,omitempty"`
	Color      string     `json:"color,omitempty"`
	Alignment  TextAlign  `json:"alignment,omitempty"`
	LineHeight *float64   `json:"lineHeight,omitempty"`
	MaxLines   *int       `json:"maxLines,omitempty"`
}

func (*Text) Kind() Kind { return KindText }

func decodeText(dc *DecodeContext, n Node, base Base) (Element, error) {
	t := &Text{Base: base}
	if content, ok := n.Text("content", "text", "value"); ok {
		t.Content = dc.Clean(content)
	}
	t.FontSize = unitPtr(n, "fontSize", "font_size", "size")
	t.FontWeight = fontWeight(n)
	t.FontFamily, _ = n.String("fontFamily", "font_family", "font")
	t.Color, _ = n.String("color", "textColor", "text_color")
	if s, ok := n.String("alignment", "textAlign", "text_align", "align"); ok {
		if a, known := textAligns[NormalizeTag(s)]; known {
			t.Alignment = a
		} else {
			dc.Warn("alignment", "unknown value %q", s)
		}
	}
	t.LineHeight = numPtr(n, "lineHeight", "line_height")
	t.MaxLines = intPtr(dc, n, "maxLines", "max_lines", "numberOfLines")
	return t, nil
}

// fontWeight accepts 100..900 numbers, numeric strings and names
func fontWeight(n Node) string {
	raw, ok := n.Lookup("fontWeight", "font_weight", "weight")
	if !ok {
		return ""
	}
	if f, ok := toFloat(raw); ok {
		return strconv.Itoa(int(f))
	}
	if s, ok := raw.(string); ok {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return ""
}

func intPtr(dc *DecodeContext, n Node, keys ...string) *int {
	f, ok := n.Number(keys...)
	if !ok {
		return nil
	}
	if f < 0 || f != float64(int(f)) {
		dc.Warn(keys[0], "expected non-negative integer, got %v", f)
		return nil
	}
	i := int(f)
	return &i
}

// ObjectFit controls how an image fills its frame
type ObjectFit string

var objectFits = map[string]ObjectFit{
	"cover": "cover", "fill": "cover", "aspectfill": "cover",
	"contain": "contain", "fit": "contain", "aspectfit": "contain",
	"stretch": "stretch", "scaletofill": "stretch",
	"none": "none", "center": "none",
	"scaledown": "scale_down",
}

// Image displays a remote image
type Image struct {
	Base
	URL          string     `json:"url"`
	Alt          string     `json:"alt,omitempty"`
	ObjectFit    ObjectFit  `json:"objectFit,omitempty"`
	CornerRadius *UnitValue `json:"cornerRadius,omitempty"`
	AspectRatio  *float64   `json:"aspectRatio,omitempty"`
}

func (*Image) Kind() Kind { return KindImage }

func decodeImage(dc *DecodeContext, n Node, base Base) (Element, error) {
	url, _ := n.String("url", "src", "imageUrl", "image_url")
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, missingField("url")
	}
	img := &Image{Base: base, URL: url}
	img.Alt, _ = n.String("alt", "accessibilityLabel")
	img.Alt = dc.Clean(img.Alt)
	if s, ok := n.String("objectFit", "object_fit", "contentMode", "fit", "resizeMode"); ok {
		if f, known := objectFits[NormalizeTag(s)]; known {
			img.ObjectFit = f
		} else {
			dc.Warn("objectFit", "unknown value %q", s)
		}
	}
	img.CornerRadius = unitPtr(n, "cornerRadius", "corner_radius", "radius")
	if ar := numPtr(n, "aspectRatio", "aspect_ratio"); ar != nil {
		if *ar <= 0 {
			dc.Warn("aspectRatio", "must be positive, got %v", *ar)
		} else {
			img.AspectRatio = ar
		}
	}
	return img, nil
}

// ButtonStyle is the visual treatment of a button
type ButtonStyle string

var buttonStyles = map[string]ButtonStyle{
	"primary": "primary", "filled": "primary", "solid": "primary",
	"secondary": "secondary", "tonal": "secondary",
	"outline": "outline", "outlined": "outline", "bordered": "outline",
	"text": "text", "plain": "text", "link": "text", "ghost": "text",
}

// Button is tappable, labelled either with text or child elements
type Button struct {
	Base
	Label     string      `json:"label,omitempty"`
	Children  []Element   `json:"children,omitempty"`
	Action    string      `json:"action,omitempty"`
	Variant   ButtonStyle `json:"variant,omitempty"`
	TextColor string      `json:"textColor,omitempty"`
	FontSize  *UnitValue  `json:"fontSize,omitempty"`
}

func (*Button) Kind() Kind                   { return KindButton }
func (b *Button) ChildElements() []Element { return b.Children }

func decodeButton(dc *DecodeContext, n Node, base Base) (Element, error) {
	b := &Button{Base: base}
	if label, ok := n.Text("label", "text", "title"); ok {
		b.Label = dc.Clean(label)
	}
	if n.Has("children", "elements") {
		b.Children = dc.Elements(n, "children", "elements")
	}
	b.Action, _ = n.String("action")
	if s, ok := n.String("variant", "buttonStyle", "style"); ok {
		if v, known := buttonStyles[NormalizeTag(s)]; known {
			b.Variant = v
		} else {
			dc.Warn("variant", "unknown value %q", s)
		}
	}
	b.TextColor, _ = n.String("textColor", "text_color", "color", "foregroundColor")
	b.FontSize = unitPtr(n, "fontSize", "font_size")

	// Legacy buttons carried a single action string instead of behaviors.
	if len(b.TapBehaviors) == 0 && b.Action != "" {
		behavior := TapBehavior{Kind: ParseBehaviorKind(b.Action)}
		behavior.Target, _ = n.String("target", "targetScreen", "targetScreenId")
		behavior.URL, _ = n.String("url", "href")
		b.TapBehaviors = []TapBehavior{behavior}
	}
	return b, nil
}

// ProgressBar shows how far through the flow the user is
type ProgressBar struct {
	Base
	// Value is the fraction complete; nil means derive it from the screen position
	Value      *float64 `json:"value,omitempty"`
	Color      string   `json:"color,omitempty"`
	TrackColor string   `json:"trackColor,omitempty"`
}

func (*ProgressBar) Kind() Kind { return KindProgressBar }

// Fraction returns Value, or the position-derived fraction
func (p *ProgressBar) Fraction(screenIndex, screenCount int) float64 {
	if p.Value != nil {
		return *p.Value
	}
	if screenCount <= 0 {
		return 0
	}
	return float64(screenIndex+1) / float64(screenCount)
}

func decodeProgressBar(dc *DecodeContext, n Node, base Base) (Element, error) {
	p := &ProgressBar{Base: base}
	if v, ok := n.Number("value", "progress"); ok {
		switch {
		case v >= 0 && v <= 1:
			p.Value = &v
		case v > 1 && v <= 100:
			frac := v / 100
			p.Value = &frac
		default:
			dc.Warn("value", "out of range: %v", v)
		}
	}
	p.Color, _ = n.String("color", "fillColor", "tintColor")
	p.TrackColor, _ = n.String("trackColor", "track_color", "backgroundTrack")
	return p, nil
}
