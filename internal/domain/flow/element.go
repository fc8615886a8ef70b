package flow

import (
	"encoding/json"
)

// Kind identifies the decoded variant of an element
type Kind string

const (
	KindContainer    Kind = "container"
	KindText         Kind = "text"
	KindImage        Kind = "image"
	KindButton       Kind = "button"
	KindTextInput    Kind = "text_input"
	KindEmailInput   Kind = "email_input"
	KindPhoneInput   Kind = "phone_input"
	KindNumberInput  Kind = "number_input"
	KindDatePicker   Kind = "date_picker"
	KindToggle       Kind = "toggle"
	KindSingleChoice Kind = "single_choice"
	KindMultiChoice  Kind = "multi_choice"
	KindProgressBar  Kind = "progress_bar"
	KindUnknown      Kind = "unknown"
)

// Element is one node of a screen's element tree
type Element interface {
	ElementID() string
	Kind() Kind
	Attrs() *Base
}

// Parent is implemented by elements that own child elements
type Parent interface {
	Element
	ChildElements() []Element
}

// Collector is implemented by elements that record a response
type Collector interface {
	Element
	ResponseKey() string
}

// Base carries the fields every element kind shares
type Base struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Style
	TapBehaviors []TapBehavior `json:"tapBehaviors,omitempty"`
}

// ElementID returns the element identifier
func (b *Base) ElementID() string { return b.ID }

// Attrs exposes the shared fields
func (b *Base) Attrs() *Base { return b }

// Unknown is the inert placeholder for a node this decoder cannot classify
// or could not decode. Renderers treat it as an empty view.
type Unknown struct {
	Base
	// Tag is the original discriminator, empty when the node had none
	Tag string `json:"-"`
	// Reason is set when a known kind failed to decode
	Reason string `json:"-"`
	raw    Node
}

// Kind implements Element
func (*Unknown) Kind() Kind { return KindUnknown }

// Raw returns the original wire node
func (u *Unknown) Raw() Node { return u.raw }

// MarshalJSON writes the original node back (with its id) so a newer
// decoder reading a cached document can still recognise it.
func (u *Unknown) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.raw)+2)
	for k, v := range u.raw {
		out[k] = v
	}
	out["id"] = u.ID
	if u.Tag != "" {
		out["type"] = u.Tag
	}
	return json.Marshal(out)
}

// Walk visits elements depth-first in document order. Returning false from
// fn stops the walk.
func Walk(elements []Element, fn func(Element) bool) bool {
	for _, el := range elements {
		if el == nil {
			continue
		}
		if !fn(el) {
			return false
		}
		if p, ok := el.(Parent); ok {
			if !Walk(p.ChildElements(), fn) {
				return false
			}
		}
	}
	return true
}

// Find returns the element with the given id
func Find(elements []Element, id string) (Element, bool) {
	var found Element
	Walk(elements, func(el Element) bool {
		if el.ElementID() == id {
			found = el
			return false
		}
		return true
	})
	return found, found != nil
}
