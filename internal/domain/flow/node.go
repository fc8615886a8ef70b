package flow

import (
	"strconv"
	"strings"
	"time"
)

// Node is one JSON object of the wire payload. Accessors take several keys
// because older schema generations named the same field differently; the
// first key holding a usable value wins.
type Node map[string]any

// AsNode converts raw decoded JSON into a Node
func AsNode(raw any) (Node, bool) {
	switch t := raw.(type) {
	case map[string]any:
		return Node(t), true
	case Node:
		return t, true
	default:
		return nil, false
	}
}

// Lookup returns the first non-null value among keys
func (n Node) Lookup(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := n[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Has reports whether any key holds a non-null value
func (n Node) Has(keys ...string) bool {
	_, ok := n.Lookup(keys...)
	return ok
}

// String returns the first value that is a JSON string
func (n Node) String(keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := n[k].(string); ok {
			return s, true
		}
	}
	return "", false
}

// Text is like String but also renders numbers and booleans
func (n Node) Text(keys ...string) (string, bool) {
	for _, k := range keys {
		switch t := n[k].(type) {
		case string:
			return t, true
		case bool:
			return strconv.FormatBool(t), true
		default:
			if f, ok := toFloat(t); ok {
				return strconv.FormatFloat(f, 'f', -1, 64), true
			}
		}
	}
	return "", false
}

// Number returns the first finite number (numeric strings included)
func (n Node) Number(keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := n[k]; ok && v != nil {
			if f, ok := toFloat(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// Bool returns the first boolean; "true"/"false" strings and 0/1 numbers count
func (n Node) Bool(keys ...string) (bool, bool) {
	for _, k := range keys {
		switch t := n[k].(type) {
		case bool:
			return t, true
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
				return b, true
			}
		case float64:
			if t == 0 || t == 1 {
				return t == 1, true
			}
		}
	}
	return false, false
}

// List returns the first array value
func (n Node) List(keys ...string) ([]any, bool) {
	for _, k := range keys {
		if l, ok := n[k].([]any); ok {
			return l, true
		}
	}
	return nil, false
}

// Object returns the first object value
func (n Node) Object(keys ...string) (Node, bool) {
	for _, k := range keys {
		if obj, ok := AsNode(n[k]); ok {
			return obj, true
		}
	}
	return nil, false
}

// Time parses RFC 3339 timestamps, plain dates, or unix seconds
func (n Node) Time(keys ...string) (time.Time, bool) {
	for _, k := range keys {
		if t, ok := parseTime(n[k]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// Overlay returns a copy of n with the keys of top written over it
func (n Node) Overlay(top Node) Node {
	out := make(Node, len(n)+len(top))
	for k, v := range n {
		out[k] = v
	}
	for k, v := range top {
		out[k] = v
	}
	return out
}

func parseTime(raw any) (time.Time, bool) {
	switch t := raw.(type) {
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", time.DateOnly} {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
	case float64:
		if t > 0 {
			return time.Unix(int64(t), 0).UTC(), true
		}
	}
	return time.Time{}, false
}

// NormalizeTag folds case and drops separators so that "email_input",
// "emailInput" and "Email-Input" compare equal.
func NormalizeTag(tag string) string {
	var b strings.Builder
	b.Grow(len(tag))
	for _, r := range strings.ToLower(strings.TrimSpace(tag)) {
		switch r {
		case '_', '-', ' ', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
