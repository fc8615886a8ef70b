package flow

// Style holds the styling shared by every element kind. Every field is
// optional and decoded independently; a malformed field is left nil.
type Style struct {
	Width     *UnitValue `json:"width,omitempty"`
	Height    *UnitValue `json:"height,omitempty"`
	MinWidth  *UnitValue `json:"minWidth,omitempty"`
	MaxWidth  *UnitValue `json:"maxWidth,omitempty"`
	MinHeight *UnitValue `json:"minHeight,omitempty"`
	MaxHeight *UnitValue `json:"maxHeight,omitempty"`

	Padding *Spacing `json:"padding,omitempty"`
	Margin  *Spacing `json:"margin,omitempty"`

	Background string   `json:"background,omitempty"`
	Opacity    *float64 `json:"opacity,omitempty"`

	Border    *Border    `json:"border,omitempty"`
	Shadow    *Shadow    `json:"shadow,omitempty"`
	Transform *Transform `json:"transform,omitempty"`
	Animation *Animation `json:"animation,omitempty"`
}

// Border describes an element outline
type Border struct {
	Width  *UnitValue `json:"width,omitempty"`
	Color  string     `json:"color,omitempty"`
	Radius *UnitValue `json:"radius,omitempty"`
	Style  string     `json:"style,omitempty"`
}

// Shadow describes a drop shadow
type Shadow struct {
	X      UnitValue `json:"x"`
	Y      UnitValue `json:"y"`
	Blur   UnitValue `json:"blur"`
	Spread UnitValue `json:"spread"`
	Color  string    `json:"color,omitempty"`
}

// Transform is applied after layout
type Transform struct {
	Rotate     *float64   `json:"rotate,omitempty"`
	ScaleX     *float64   `json:"scaleX,omitempty"`
	ScaleY     *float64   `json:"scaleY,omitempty"`
	TranslateX *UnitValue `json:"translateX,omitempty"`
	TranslateY *UnitValue `json:"translateY,omitempty"`
}

// Animation describes an entrance animation
type Animation struct {
	Type       string   `json:"type"`
	DurationMs *float64 `json:"durationMs,omitempty"`
	DelayMs    *float64 `json:"delayMs,omitempty"`
	Easing     string   `json:"easing,omitempty"`
}

func unitPtr(n Node, keys ...string) *UnitValue {
	raw, ok := n.Lookup(keys...)
	if !ok {
		return nil
	}
	u := DecodeUnit(raw)
	return &u
}

func numPtr(n Node, keys ...string) *float64 {
	f, ok := n.Number(keys...)
	if !ok {
		return nil
	}
	return &f
}

func spacingPtr(n Node, keys ...string) *Spacing {
	raw, ok := n.Lookup(keys...)
	if !ok {
		return nil
	}
	s := DecodeSpacing(raw)
	return &s
}

// decodeStyle reads styling from flat keys on the element and from a nested
// "style" object (the nested object wins when both carry a key).
func decodeStyle(dc *DecodeContext, n Node) Style {
	src := n
	if nested, ok := n.Object("style"); ok {
		src = n.Overlay(nested)
	}

	s := Style{
		Width:     unitPtr(src, "width"),
		Height:    unitPtr(src, "height"),
		MinWidth:  unitPtr(src, "minWidth", "min_width"),
		MaxWidth:  unitPtr(src, "maxWidth", "max_width"),
		MinHeight: unitPtr(src, "minHeight", "min_height"),
		MaxHeight: unitPtr(src, "maxHeight", "max_height"),
		Padding:   spacingPtr(src, "padding"),
		Margin:    spacingPtr(src, "margin"),
	}

	if bg, ok := src.String("background", "backgroundColor", "background_color"); ok {
		s.Background = bg
	}
	if op := numPtr(src, "opacity"); op != nil {
		if *op < 0 || *op > 1 {
			dc.Warn("opacity", "out of range: %v", *op)
		} else {
			s.Opacity = op
		}
	}

	s.Border = decodeBorder(src)
	if raw, ok := src.Lookup("shadow"); ok {
		if obj, ok := AsNode(raw); ok {
			s.Shadow = &Shadow{
				X:      unitOr(obj, Px(0), "x", "offsetX"),
				Y:      unitOr(obj, Px(0), "y", "offsetY"),
				Blur:   unitOr(obj, Px(0), "blur", "radius"),
				Spread: unitOr(obj, Px(0), "spread"),
			}
			s.Shadow.Color, _ = obj.String("color")
		} else {
			dc.Warn("shadow", "expected object, got %T", raw)
		}
	}
	if obj, ok := src.Object("transform"); ok {
		s.Transform = &Transform{
			Rotate:     numPtr(obj, "rotate", "rotation"),
			ScaleX:     numPtr(obj, "scaleX", "scale"),
			ScaleY:     numPtr(obj, "scaleY", "scale"),
			TranslateX: unitPtr(obj, "translateX", "x"),
			TranslateY: unitPtr(obj, "translateY", "y"),
		}
	}
	if obj, ok := src.Object("animation"); ok {
		if kind, ok := obj.String("type", "name"); ok && kind != "" {
			s.Animation = &Animation{
				Type:       kind,
				DurationMs: numPtr(obj, "durationMs", "duration"),
				DelayMs:    numPtr(obj, "delayMs", "delay"),
			}
			s.Animation.Easing, _ = obj.String("easing", "curve")
		} else {
			dc.Warn("animation", "missing type")
		}
	}
	return s
}

func decodeBorder(src Node) *Border {
	var b Border
	found := false
	if obj, ok := src.Object("border"); ok {
		b.Width = unitPtr(obj, "width")
		b.Color, _ = obj.String("color")
		b.Radius = unitPtr(obj, "radius", "cornerRadius")
		b.Style, _ = obj.String("style")
		found = true
	}
	// Older payloads flatten border fields onto the element.
	if w := unitPtr(src, "borderWidth", "border_width"); w != nil {
		b.Width, found = w, true
	}
	if c, ok := src.String("borderColor", "border_color"); ok {
		b.Color, found = c, true
	}
	if r := unitPtr(src, "borderRadius", "border_radius"); r != nil {
		b.Radius, found = r, true
	}
	if !found {
		return nil
	}
	return &b
}

func unitOr(n Node, fallback UnitValue, keys ...string) UnitValue {
	if u := unitPtr(n, keys...); u != nil {
		return *u
	}
	return fallback
}
