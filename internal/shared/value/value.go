// Package value defines the closed set of scalar values exchanged with the
// resolution backend: targeting properties and collected flow responses.
//
// A Value is one of string, number, boolean or (for multi-select responses) a
// list of strings. It encodes as the matching native JSON type.
package value

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Kind identifies the dynamic type held by a Value
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindStrings
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindStrings:
		return "list"
	default:
		return "null"
	}
}

// Value is an immutable tagged scalar. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	n    float64
	b    bool
	list []string
}

// String wraps a string
func String(s string) Value { return Value{kind: KindString, s: s} }

// Number wraps a finite float; non-finite input yields null
func Number(n float64) Value {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, n: n}
}

// Int wraps an integer
func Int(n int) Value { return Value{kind: KindNumber, n: float64(n)} }

// Bool wraps a boolean
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Strings wraps a list of strings (copied)
func Strings(items ...string) Value {
	return Value{kind: KindStrings, list: slices.Clone(items)}
}

// Kind returns the dynamic kind
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v holds nothing
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsScalar reports whether v is a string, number or boolean
func (v Value) IsScalar() bool {
	return v.kind == KindString || v.kind == KindNumber || v.kind == KindBool
}

// Str returns the string payload
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Num returns the number payload
func (v Value) Num() (float64, bool) { return v.n, v.kind == KindNumber }

// Boolean returns the boolean payload
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// List returns a copy of the list payload
func (v Value) List() ([]string, bool) {
	return slices.Clone(v.list), v.kind == KindStrings
}

// Text renders the value as text for comparisons and display
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindStrings:
		return strings.Join(v.list, ",")
	default:
		return ""
	}
}

// String implements fmt.Stringer
func (v Value) String() string {
	if v.kind == KindString {
		return strconv.Quote(v.s)
	}
	if v.kind == KindNull {
		return "null"
	}
	return v.Text()
}

// Equal reports deep equality
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindNumber:
		return v.n == o.n
	case KindBool:
		return v.b == o.b
	case KindStrings:
		return slices.Equal(v.list, o.list)
	default:
		return true
	}
}

// Contains reports whether v contains needle: list membership for lists,
// substring match for strings.
func (v Value) Contains(needle Value) bool {
	switch v.kind {
	case KindStrings:
		return slices.Contains(v.list, needle.Text())
	case KindString:
		return strings.Contains(v.s, needle.Text())
	default:
		return false
	}
}

// Compare orders two values numerically when both are numbers (or numeric
// strings). ok is false when they are not comparable.
func (v Value) Compare(o Value) (cmp int, ok bool) {
	a, okA := v.number()
	b, okB := o.number()
	if !okA || !okB {
		return 0, false
	}
	switch {
	case a < b:
		return -1, true
	case a > b:
		return 1, true
	default:
		return 0, true
	}
}

func (v Value) number() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.n, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Any returns the payload as a plain Go value
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return v.n
	case KindBool:
		return v.b
	case KindStrings:
		return slices.Clone(v.list)
	default:
		return nil
	}
}

// MarshalJSON encodes the value as its native JSON type
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// UnmarshalJSON decodes any JSON scalar or string array
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FromAny converts decoded JSON (or plain Go scalars) into a Value
func FromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Int(t), nil
	case int64:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t, err)
		}
		return Number(f), nil
	case []string:
		return Strings(t...), nil
	case []any:
		items := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return Value{}, fmt.Errorf("list element %d is %T, want string", i, item)
			}
			items = append(items, s)
		}
		return Strings(items...), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

// Map is a string-keyed bag of values
type Map map[string]Value

// Clone returns a shallow copy (values are immutable)
func (m Map) Clone() Map {
	if m == nil {
		return Map{}
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Plain converts the map into plain Go values
func (m Map) Plain() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Any()
	}
	return out
}

// ScalarsOnly returns an error naming the first key holding a non-scalar value
func (m Map) ScalarsOnly() error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if v := m[k]; !v.IsScalar() {
			return fmt.Errorf("property %q must be string, number or boolean, got %s", k, v.Kind())
		}
	}
	return nil
}
