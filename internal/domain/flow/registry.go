package flow

import (
	"fmt"
	"sort"
	"sync"
)

// DecodeFunc builds one element kind from its wire node. base already holds
// the id, original tag, style and tap behaviors. Returning an error degrades
// the node to an Unknown placeholder.
type DecodeFunc func(dc *DecodeContext, n Node, base Base) (Element, error)

type registration struct {
	kind   Kind
	decode DecodeFunc
}

// Registry maps wire type tags onto decode functions
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registration
}

// NewRegistry returns a registry holding every built-in kind
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[string]registration)}
	for _, b := range builtins {
		if err := r.Register(b.kind, b.decode, b.tags...); err != nil {
			panic(err)
		}
	}
	return r
}

var builtins = []struct {
	kind   Kind
	decode DecodeFunc
	tags   []string
}{
	{KindContainer, decodeContainer, []string{"container", "stack", "vstack", "hstack", "row", "column"}},
	{KindText, decodeText, []string{"text", "label", "heading"}},
	{KindImage, decodeImage, []string{"image", "img"}},
	{KindButton, decodeButton, []string{"button", "cta"}},
	{KindTextInput, decodeTextInput, []string{"input", "text_input", "text_field"}},
	{KindEmailInput, decodeEmailInput, []string{"email_input", "email"}},
	{KindPhoneInput, decodePhoneInput, []string{"phone_input", "phone"}},
	{KindNumberInput, decodeNumberInput, []string{"number_input", "number"}},
	{KindDatePicker, decodeDatePicker, []string{"date_picker", "date"}},
	{KindToggle, decodeToggle, []string{"toggle", "switch", "checkbox"}},
	{KindSingleChoice, decodeSingleChoice, []string{"single_choice", "radio", "select"}},
	{KindMultiChoice, decodeMultiChoice, []string{"multi_choice", "checkbox_group"}},
	{KindProgressBar, decodeProgressBar, []string{"progress_bar", "progress"}},
}

// Register binds tags to a decode function. A tag already bound is
// replaced, which lets callers override a built-in kind.
func (r *Registry) Register(kind Kind, fn DecodeFunc, tags ...string) error {
	if kind == "" || kind == KindUnknown {
		return fmt.Errorf("invalid kind %q", kind)
	}
	if fn == nil {
		return fmt.Errorf("kind %s: decode function is nil", kind)
	}
	if len(tags) == 0 {
		tags = []string{string(kind)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tag := range tags {
		norm := NormalizeTag(tag)
		if norm == "" {
			return fmt.Errorf("kind %s: empty tag", kind)
		}
		r.entries[norm] = registration{kind: kind, decode: fn}
	}
	return nil
}

// Unregister removes a tag binding
func (r *Registry) Unregister(tag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, NormalizeTag(tag))
}

// Lookup resolves a wire tag
func (r *Registry) Lookup(tag string) (Kind, DecodeFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[NormalizeTag(tag)]
	return e.kind, e.decode, ok
}

// Tags returns every registered (normalized) tag in sorted order
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.entries))
	for t := range r.entries {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}
