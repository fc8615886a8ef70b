package flow

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/GriffinCanCode/onboard/internal/shared/id"
)

var (
	// ErrMissingType is returned for a node without a type discriminator
	ErrMissingType = errors.New("element has no type")
	// ErrMissingField is returned when a kind's required field is absent or unusable
	ErrMissingField = errors.New("required field missing")
	// ErrStructural is returned for documents that cannot be decoded at all
	ErrStructural = errors.New("malformed flow document")
	// ErrTooDeep is returned when element nesting exceeds the decoder limit
	ErrTooDeep = errors.New("element nesting too deep")
)

const defaultMaxDepth = 256

func missingField(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, name)
}

// Diagnostic records one degradation applied while decoding
type Diagnostic struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func (d Diagnostic) String() string {
	if d.Path == "" {
		return d.Reason
	}
	return d.Path + ": " + d.Reason
}

// Decoder turns wire nodes into the element model
type Decoder struct {
	registry *Registry
	ids      *id.Generator
	sanitize func(string) string
	maxDepth int
}

// DecoderOption configures a Decoder
type DecoderOption func(*Decoder)

// WithRegistry swaps the tag registry
func WithRegistry(r *Registry) DecoderOption {
	return func(d *Decoder) { d.registry = r }
}

// WithIDGenerator sets the generator used for synthesized ids
func WithIDGenerator(g *id.Generator) DecoderOption {
	return func(d *Decoder) { d.ids = g }
}

// WithSanitizer strips HTML markup from text content, labels and placeholders
func WithSanitizer() DecoderOption {
	policy := bluemonday.StrictPolicy()
	return func(d *Decoder) {
		d.sanitize = func(s string) string {
			return html.UnescapeString(policy.Sanitize(s))
		}
	}
}

// WithMaxDepth bounds element nesting
func WithMaxDepth(depth int) DecoderOption {
	return func(d *Decoder) {
		if depth > 0 {
			d.maxDepth = depth
		}
	}
}

// NewDecoder creates a decoder over the built-in registry
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{maxDepth: defaultMaxDepth}
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		d.registry = NewRegistry()
	}
	if d.ids == nil {
		d.ids = id.Default()
	}
	return d
}

// Registry exposes the tag registry
func (d *Decoder) Registry() *Registry { return d.registry }

// DecodeContext carries the decode position for diagnostics. Custom
// DecodeFuncs use it to recurse and to report degradations.
type DecodeContext struct {
	dec   *Decoder
	path  string
	depth int
	diags *[]Diagnostic
}

func (d *Decoder) newContext(path string) *DecodeContext {
	return &DecodeContext{dec: d, path: path, diags: new([]Diagnostic)}
}

// Path is the position of the node being decoded
func (dc *DecodeContext) Path() string { return dc.path }

// Diagnostics returns everything recorded so far
func (dc *DecodeContext) Diagnostics() []Diagnostic { return *dc.diags }

// Child returns a context one segment deeper
func (dc *DecodeContext) Child(segment string) *DecodeContext {
	return &DecodeContext{dec: dc.dec, path: joinPath(dc.path, segment), depth: dc.depth, diags: dc.diags}
}

// Warn records a field-level degradation
func (dc *DecodeContext) Warn(field, format string, args ...any) {
	*dc.diags = append(*dc.diags, Diagnostic{
		Path:   joinPath(dc.path, field),
		Reason: fmt.Sprintf(format, args...),
	})
}

// Clean applies the configured sanitizer to display text
func (dc *DecodeContext) Clean(s string) string {
	if dc.dec.sanitize == nil {
		return s
	}
	return dc.dec.sanitize(s)
}

// OptionID synthesizes an id for a choice option
func (dc *DecodeContext) OptionID() string {
	return dc.dec.ids.Option().String()
}

// Elements decodes the first list found under keys. A node that fails to
// decode is replaced by an Unknown placeholder so siblings keep their
// positions.
func (dc *DecodeContext) Elements(n Node, keys ...string) []Element {
	for _, key := range keys {
		raw, ok := n[key]
		if !ok || raw == nil {
			continue
		}
		list, ok := raw.([]any)
		if !ok {
			dc.Warn(key, "expected array, got %T", raw)
			return nil
		}
		return dc.decodeList(key, list)
	}
	return nil
}

func (dc *DecodeContext) decodeList(field string, list []any) []Element {
	out := make([]Element, 0, len(list))
	for i, raw := range list {
		child := dc.Child(fmt.Sprintf("%s[%d]", field, i))
		child.depth = dc.depth + 1
		out = append(out, child.decodeOrPlaceholder(raw))
	}
	return out
}

func (dc *DecodeContext) decodeOrPlaceholder(raw any) Element {
	el, err := dc.decode(raw)
	if err == nil {
		return el
	}
	dc.Warn("", "%v", err)
	return dc.placeholder(raw, err)
}

func (dc *DecodeContext) decode(raw any) (Element, error) {
	if dc.depth > dc.dec.maxDepth {
		return nil, ErrTooDeep
	}
	n, ok := AsNode(raw)
	if !ok {
		return nil, fmt.Errorf("%w: element is %T, not an object", ErrMissingType, raw)
	}
	tag, _ := n.String("type", "kind", "elementType", "component")
	if strings.TrimSpace(tag) == "" {
		return nil, ErrMissingType
	}

	base := Base{ID: dc.elementID(n), Type: tag}
	_, decode, known := dc.dec.registry.Lookup(tag)
	if !known {
		return &Unknown{Base: base, Tag: tag, raw: n}, nil
	}
	base.Style = decodeStyle(dc, n)
	base.TapBehaviors = decodeBehaviors(dc, n)

	el, err := decode(dc, n, base)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tag, err)
	}
	return el, nil
}

func (dc *DecodeContext) placeholder(raw any, cause error) *Unknown {
	n, _ := AsNode(raw)
	u := &Unknown{Reason: cause.Error(), raw: n}
	u.Tag, _ = n.String("type", "kind", "elementType", "component")
	u.Type = u.Tag
	u.ID = dc.elementID(n)
	return u
}

// elementID keeps a usable wire id and synthesizes one otherwise
func (dc *DecodeContext) elementID(n Node) string {
	if s, ok := n.String("id"); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return dc.dec.ids.Element().String()
}

func joinPath(base, segment string) string {
	switch {
	case segment == "":
		return base
	case base == "":
		return segment
	case strings.HasPrefix(segment, "["):
		return base + segment
	default:
		return base + "." + segment
	}
}

// DecodeElement decodes a single node. Unlike list members, a failing root
// node is reported as an error rather than a placeholder.
func (d *Decoder) DecodeElement(raw any) (Element, []Diagnostic, error) {
	dc := d.newContext("")
	el, err := dc.decode(raw)
	if err != nil {
		return nil, dc.Diagnostics(), err
	}
	return el, dc.Diagnostics(), nil
}
