package flow

// Spacing holds per-side padding or margin
type Spacing struct {
	Top    UnitValue `json:"top"`
	Right  UnitValue `json:"right"`
	Bottom UnitValue `json:"bottom"`
	Left   UnitValue `json:"left"`
}

// Uniform returns the same value on every side
func Uniform(u UnitValue) Spacing {
	return Spacing{Top: u, Right: u, Bottom: u, Left: u}
}

// DecodeSpacing reads {top,right,bottom,left}; every missing side is zero
// pixels. A scalar applies to all sides and horizontal/vertical fill the
// matching pair when the explicit side is absent. Never fails.
func DecodeSpacing(raw any) Spacing {
	zero := Px(0)
	obj, ok := AsNode(raw)
	if !ok {
		switch raw.(type) {
		case string, float64, float32, int, int64:
			return Uniform(DecodeUnit(raw))
		}
		return Uniform(zero)
	}

	side := func(key, axis string) UnitValue {
		if v, ok := obj[key]; ok && v != nil {
			return DecodeUnit(v)
		}
		if v, ok := obj[axis]; ok && v != nil {
			return DecodeUnit(v)
		}
		if v, ok := obj["all"]; ok && v != nil {
			return DecodeUnit(v)
		}
		return zero
	}

	return Spacing{
		Top:    side("top", "vertical"),
		Right:  side("right", "horizontal"),
		Bottom: side("bottom", "vertical"),
		Left:   side("left", "horizontal"),
	}
}

// Edges are resolved per-side pixel amounts
type Edges struct {
	Top, Right, Bottom, Left float64
}

// Resolve converts each side to pixels; auto and fill sides count as zero
func (s Spacing) Resolve(ref Reference) Edges {
	px := func(u UnitValue) float64 {
		v, _ := u.Resolve(ref)
		return v
	}
	return Edges{Top: px(s.Top), Right: px(s.Right), Bottom: px(s.Bottom), Left: px(s.Left)}
}

// Insets stacks padding (inner) and margin (outer) additively
func Insets(padding, margin *Spacing, ref Reference) Edges {
	var out Edges
	for _, s := range []*Spacing{padding, margin} {
		if s == nil {
			continue
		}
		e := s.Resolve(ref)
		out.Top += e.Top
		out.Right += e.Right
		out.Bottom += e.Bottom
		out.Left += e.Left
	}
	return out
}
