package flow

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// UnitKind is the unit a UnitValue is expressed in
type UnitKind uint8

const (
	UnitAuto UnitKind = iota
	UnitPixels
	UnitPercent
	UnitRootRelative
	UnitEmRelative
	UnitViewportWidth
	UnitViewportHeight
	UnitFill
)

var unitSuffixes = [...]string{
	UnitAuto:           "auto",
	UnitPixels:         "px",
	UnitPercent:        "%",
	UnitRootRelative:   "rem",
	UnitEmRelative:     "em",
	UnitViewportWidth:  "vw",
	UnitViewportHeight: "vh",
	UnitFill:           "fill",
}

// String returns the wire unit string
func (k UnitKind) String() string {
	if int(k) < len(unitSuffixes) {
		return unitSuffixes[k]
	}
	return "auto"
}

// suffixOrder lists string suffixes longest first so "rem" wins over "em".
var suffixOrder = []struct {
	suffix string
	kind   UnitKind
}{
	{"rem", UnitRootRelative},
	{"px", UnitPixels},
	{"em", UnitEmRelative},
	{"vw", UnitViewportWidth},
	{"vh", UnitViewportHeight},
	{"%", UnitPercent},
}

// unitNames maps the unit field of the structured form
var unitNames = map[string]UnitKind{
	"px":       UnitPixels,
	"pixel":    UnitPixels,
	"pixels":   UnitPixels,
	"%":        UnitPercent,
	"percent":  UnitPercent,
	"rem":      UnitRootRelative,
	"em":       UnitEmRelative,
	"vw":       UnitViewportWidth,
	"vh":       UnitViewportHeight,
	"auto":     UnitAuto,
	"fill":     UnitFill,
	"fill_max": UnitFill,
}

// UnitValue is a quantity tagged with its unit. Magnitude is meaningless for
// auto and fill. The zero value is auto.
type UnitValue struct {
	Kind      UnitKind
	Magnitude float64
}

// Px returns a pixel quantity
func Px(v float64) UnitValue { return UnitValue{Kind: UnitPixels, Magnitude: v} }

// Percent returns a percentage quantity
func Percent(v float64) UnitValue { return UnitValue{Kind: UnitPercent, Magnitude: v} }

// Rem returns a root-relative quantity
func Rem(v float64) UnitValue { return UnitValue{Kind: UnitRootRelative, Magnitude: v} }

// Em returns a font-relative quantity
func Em(v float64) UnitValue { return UnitValue{Kind: UnitEmRelative, Magnitude: v} }

// Auto is the host-decides unit
func Auto() UnitValue { return UnitValue{Kind: UnitAuto} }

// Fill expands to the available space
func Fill() UnitValue { return UnitValue{Kind: UnitFill} }

func newUnit(kind UnitKind, magnitude float64) UnitValue {
	if kind == UnitAuto || kind == UnitFill {
		return UnitValue{Kind: kind}
	}
	return UnitValue{Kind: kind, Magnitude: magnitude}
}

// HasMagnitude reports whether the magnitude is meaningful
func (u UnitValue) HasMagnitude() bool {
	return u.Kind != UnitAuto && u.Kind != UnitFill
}

// Equal compares two values, ignoring magnitude for auto and fill
func (u UnitValue) Equal(o UnitValue) bool {
	if u.Kind != o.Kind {
		return false
	}
	return !u.HasMagnitude() || u.Magnitude == o.Magnitude
}

// String renders the CSS-like string grammar ("16px", "2rem", "auto")
func (u UnitValue) String() string {
	if !u.HasMagnitude() {
		return u.Kind.String()
	}
	return strconv.FormatFloat(u.Magnitude, 'f', -1, 64) + u.Kind.String()
}

// Reference carries the render-time context needed to resolve relative units
type Reference struct {
	Container      float64 // length of the containing box along the relevant axis
	RootFontSize   float64
	FontSize       float64
	ViewportWidth  float64
	ViewportHeight float64
}

// Resolve converts to absolute pixels. ok is false for auto and fill, which
// the host layout decides.
func (u UnitValue) Resolve(ref Reference) (px float64, ok bool) {
	switch u.Kind {
	case UnitPixels:
		return u.Magnitude, true
	case UnitPercent:
		return u.Magnitude / 100 * ref.Container, true
	case UnitRootRelative:
		return u.Magnitude * ref.RootFontSize, true
	case UnitEmRelative:
		return u.Magnitude * ref.FontSize, true
	case UnitViewportWidth:
		return u.Magnitude / 100 * ref.ViewportWidth, true
	case UnitViewportHeight:
		return u.Magnitude / 100 * ref.ViewportHeight, true
	default:
		return 0, false
	}
}

type unitWire struct {
	Value *float64 `json:"value,omitempty"`
	Unit  string   `json:"unit"`
}

// MarshalJSON always writes the structured form so every kind round-trips
func (u UnitValue) MarshalJSON() ([]byte, error) {
	w := unitWire{Unit: u.Kind.String()}
	if u.HasMagnitude() {
		m := u.Magnitude
		w.Value = &m
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts every wire representation DecodeUnit accepts
func (u *UnitValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*u = Auto()
		return nil
	}
	*u = DecodeUnit(raw)
	return nil
}

// DecodeUnit converts loosely typed wire data into a UnitValue. It never
// fails: input it cannot interpret yields auto. The structured object form
// is tried first, then "auto"/"fill", suffixed strings, plain numeric
// strings and finally bare numbers.
func DecodeUnit(raw any) UnitValue {
	if obj, ok := AsNode(raw); ok {
		if u, ok := decodeUnitObject(obj); ok {
			return u
		}
		return Auto()
	}
	if s, ok := raw.(string); ok {
		return decodeUnitString(s)
	}
	if f, ok := toFloat(raw); ok {
		return Px(f)
	}
	return Auto()
}

func decodeUnitObject(obj Node) (UnitValue, bool) {
	unitRaw, hasUnit := obj["unit"]
	magnitude, hasValue := toFloat(obj["value"])

	kind := UnitPixels
	if hasUnit {
		if name, ok := unitRaw.(string); ok {
			if k, known := unitNames[strings.ToLower(strings.TrimSpace(name))]; known {
				kind = k
			}
		}
	}
	if kind == UnitAuto || kind == UnitFill {
		return UnitValue{Kind: kind}, true
	}
	if !hasValue {
		return UnitValue{}, false
	}
	return newUnit(kind, magnitude), true
}

func decodeUnitString(s string) UnitValue {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	switch trimmed {
	case "auto":
		return Auto()
	case "fill":
		return Fill()
	}
	for _, sx := range suffixOrder {
		if num, ok := strings.CutSuffix(trimmed, sx.suffix); ok {
			if f, ok := parseFinite(strings.TrimSpace(num)); ok {
				return newUnit(sx.kind, f)
			}
		}
	}
	if f, ok := parseFinite(trimmed); ok {
		return Px(f)
	}
	return Auto()
}

func parseFinite(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toFloat accepts JSON numbers and numeric strings
func toFloat(raw any) (float64, bool) {
	var f float64
	switch t := raw.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		v, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = v
	case string:
		return parseFinite(strings.TrimSpace(t))
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
