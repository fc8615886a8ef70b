package flow

import (
	"strings"
	"time"

	"github.com/GriffinCanCode/onboard/internal/shared/value"
)

// InputField holds what every free-form input collects
type InputField struct {
	VariableKey string `json:"variableKey"`
	Label       string `json:"label,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Required    bool   `json:"required,omitempty"`
	MaxLength   *int   `json:"maxLength,omitempty"`
	Multiline   bool   `json:"multiline,omitempty"`
}

// ResponseKey implements Collector
func (f *InputField) ResponseKey() string { return f.VariableKey }

// TextInput collects free text
type TextInput struct {
	Base
	InputField
}

// EmailInput collects an email address
type EmailInput struct {
	Base
	InputField
}

// PhoneInput collects a phone number
type PhoneInput struct {
	Base
	InputField
	DefaultCountry string `json:"defaultCountry,omitempty"`
}

// NumberInput collects a number within optional bounds
type NumberInput struct {
	Base
	InputField
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Step *float64 `json:"step,omitempty"`
}

func (*TextInput) Kind() Kind   { return KindTextInput }
func (*EmailInput) Kind() Kind  { return KindEmailInput }
func (*PhoneInput) Kind() Kind  { return KindPhoneInput }
func (*NumberInput) Kind() Kind { return KindNumberInput }

// variableKey reads the response key. Payloads that predate variable keys
// used the element id, so an explicit wire id is accepted as the key.
func variableKey(n Node) (string, error) {
	if k, ok := n.String("variableKey", "variable_key", "variable", "responseKey", "key"); ok {
		if k = strings.TrimSpace(k); k != "" {
			return k, nil
		}
	}
	if id, ok := n.String("id"); ok && strings.TrimSpace(id) != "" {
		return strings.TrimSpace(id), nil
	}
	return "", missingField("variableKey")
}

func decodeInputField(dc *DecodeContext, n Node) (InputField, error) {
	key, err := variableKey(n)
	if err != nil {
		return InputField{}, err
	}
	f := InputField{VariableKey: key}
	if label, ok := n.Text("label", "title"); ok {
		f.Label = dc.Clean(label)
	}
	if ph, ok := n.Text("placeholder", "hint"); ok {
		f.Placeholder = dc.Clean(ph)
	}
	f.Required, _ = n.Bool("required", "isRequired")
	f.MaxLength = intPtr(dc, n, "maxLength", "max_length", "maxChars")
	f.Multiline, _ = n.Bool("multiline", "multiLine")
	return f, nil
}

func decodeTextInput(dc *DecodeContext, n Node, base Base) (Element, error) {
	f, err := decodeInputField(dc, n)
	if err != nil {
		return nil, err
	}
	return &TextInput{Base: base, InputField: f}, nil
}

func decodeEmailInput(dc *DecodeContext, n Node, base Base) (Element, error) {
	f, err := decodeInputField(dc, n)
	if err != nil {
		return nil, err
	}
	return &EmailInput{Base: base, InputField: f}, nil
}

func decodePhoneInput(dc *DecodeContext, n Node, base Base) (Element, error) {
	f, err := decodeInputField(dc, n)
	if err != nil {
		return nil, err
	}
	p := &PhoneInput{Base: base, InputField: f}
	if cc, ok := n.String("defaultCountry", "default_country", "countryCode", "region"); ok {
		p.DefaultCountry = strings.ToUpper(strings.TrimSpace(cc))
	}
	return p, nil
}

func decodeNumberInput(dc *DecodeContext, n Node, base Base) (Element, error) {
	f, err := decodeInputField(dc, n)
	if err != nil {
		return nil, err
	}
	in := &NumberInput{
		Base:       base,
		InputField: f,
		Min:        numPtr(n, "min", "minimum", "minValue"),
		Max:        numPtr(n, "max", "maximum", "maxValue"),
		Step:       numPtr(n, "step", "increment"),
	}
	if in.Min != nil && in.Max != nil && *in.Min > *in.Max {
		dc.Warn("min", "min %v exceeds max %v, bounds dropped", *in.Min, *in.Max)
		in.Min, in.Max = nil, nil
	}
	if in.Step != nil && *in.Step <= 0 {
		dc.Warn("step", "must be positive, got %v", *in.Step)
		in.Step = nil
	}
	return in, nil
}

// DateMode selects what a date picker asks for
type DateMode string

const (
	DateModeDate     DateMode = "date"
	DateModeTime     DateMode = "time"
	DateModeDateTime DateMode = "datetime"
)

// DatePicker collects a date, time or both
type DatePicker struct {
	Base
	VariableKey string     `json:"variableKey"`
	Label       string     `json:"label,omitempty"`
	Mode        DateMode   `json:"mode"`
	MinDate     *time.Time `json:"minDate,omitempty"`
	MaxDate     *time.Time `json:"maxDate,omitempty"`
	Required    bool       `json:"required,omitempty"`
}

func (*DatePicker) Kind() Kind             { return KindDatePicker }
func (d *DatePicker) ResponseKey() string { return d.VariableKey }

func decodeDatePicker(dc *DecodeContext, n Node, base Base) (Element, error) {
	key, err := variableKey(n)
	if err != nil {
		return nil, err
	}
	d := &DatePicker{Base: base, VariableKey: key, Mode: DateModeDate}
	if label, ok := n.Text("label", "title"); ok {
		d.Label = dc.Clean(label)
	}
	if s, ok := n.String("mode", "pickerMode", "dateMode"); ok {
		switch NormalizeTag(s) {
		case "date":
		case "time":
			d.Mode = DateModeTime
		case "datetime", "dateandtime":
			d.Mode = DateModeDateTime
		default:
			dc.Warn("mode", "unknown value %q", s)
		}
	}
	if t, ok := n.Time("minDate", "min_date", "minimumDate"); ok {
		d.MinDate = &t
	} else if n.Has("minDate", "min_date", "minimumDate") {
		dc.Warn("minDate", "unparseable date")
	}
	if t, ok := n.Time("maxDate", "max_date", "maximumDate"); ok {
		d.MaxDate = &t
	} else if n.Has("maxDate", "max_date", "maximumDate") {
		dc.Warn("maxDate", "unparseable date")
	}
	if d.MinDate != nil && d.MaxDate != nil && d.MinDate.After(*d.MaxDate) {
		dc.Warn("minDate", "after maxDate, bounds dropped")
		d.MinDate, d.MaxDate = nil, nil
	}
	d.Required, _ = n.Bool("required", "isRequired")
	return d, nil
}

// Toggle collects a boolean
type Toggle struct {
	Base
	VariableKey string `json:"variableKey"`
	Label       string `json:"label,omitempty"`
	DefaultOn   bool   `json:"defaultOn,omitempty"`
	OnColor     string `json:"onColor,omitempty"`
}

func (*Toggle) Kind() Kind             { return KindToggle }
func (t *Toggle) ResponseKey() string { return t.VariableKey }

func decodeToggle(dc *DecodeContext, n Node, base Base) (Element, error) {
	key, err := variableKey(n)
	if err != nil {
		return nil, err
	}
	t := &Toggle{Base: base, VariableKey: key}
	if label, ok := n.Text("label", "title"); ok {
		t.Label = dc.Clean(label)
	}
	t.DefaultOn, _ = n.Bool("defaultOn", "defaultValue", "default", "isOn", "checked")
	t.OnColor, _ = n.String("onColor", "tintColor", "activeColor")
	return t, nil
}

// Option is one answer of a choice group
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
	Icon  string `json:"icon,omitempty"`
}

// ChoiceGroup holds the fields single and multi choice share
type ChoiceGroup struct {
	VariableKey string   `json:"variableKey"`
	Label       string   `json:"label,omitempty"`
	Options     []Option `json:"options"`
	Layout      string   `json:"layout,omitempty"`
	Required    bool     `json:"required,omitempty"`
}

// ResponseKey implements Collector
func (g *ChoiceGroup) ResponseKey() string { return g.VariableKey }

// Option returns the option with the given id or value
func (g *ChoiceGroup) Option(ref string) (Option, bool) {
	for _, o := range g.Options {
		if o.ID == ref || o.Value == ref {
			return o, true
		}
	}
	return Option{}, false
}

// SingleChoice collects one option value
type SingleChoice struct {
	Base
	ChoiceGroup
}

// MultiChoice collects a set of option values
type MultiChoice struct {
	Base
	ChoiceGroup
	MinSelections *int `json:"minSelections,omitempty"`
	MaxSelections *int `json:"maxSelections,omitempty"`
}

func (*SingleChoice) Kind() Kind { return KindSingleChoice }
func (*MultiChoice) Kind() Kind  { return KindMultiChoice }

func decodeChoiceGroup(dc *DecodeContext, n Node) (ChoiceGroup, error) {
	key, err := variableKey(n)
	if err != nil {
		return ChoiceGroup{}, err
	}
	g := ChoiceGroup{VariableKey: key}
	if label, ok := n.Text("label", "title", "question"); ok {
		g.Label = dc.Clean(label)
	}
	if s, ok := n.String("layout", "display", "appearance"); ok {
		g.Layout = strings.ToLower(strings.TrimSpace(s))
	}
	g.Required, _ = n.Bool("required", "isRequired")

	list, _ := n.List("options", "choices", "items")
	opts := dc.Child("options")
	g.Options = make([]Option, 0, len(list))
	for i, raw := range list {
		if o, ok := decodeOption(opts, raw); ok {
			g.Options = append(g.Options, o)
		} else {
			opts.Warn("", "option %d has neither label nor value, dropped", i)
		}
	}
	return g, nil
}

func decodeOption(dc *DecodeContext, raw any) (Option, bool) {
	var o Option
	switch t := raw.(type) {
	case string:
		o.Label, o.Value = t, t
	default:
		obj, ok := AsNode(raw)
		if !ok {
			// Bare numbers and booleans are their own label.
			if v, err := value.FromAny(raw); err == nil && v.IsScalar() {
				o.Label, o.Value = v.Text(), v.Text()
			}
			break
		}
		o.ID, _ = obj.String("id")
		o.Label, _ = obj.Text("label", "text", "title")
		o.Value, _ = obj.Text("value", "key")
		o.Icon, _ = obj.String("icon", "emoji", "image")
	}
	if o.Label == "" && o.Value == "" {
		return Option{}, false
	}
	if o.Label == "" {
		o.Label = o.Value
	}
	if o.Value == "" {
		o.Value = o.Label
	}
	o.Label = dc.Clean(o.Label)
	if strings.TrimSpace(o.ID) == "" {
		o.ID = dc.OptionID()
	}
	return o, true
}

func decodeSingleChoice(dc *DecodeContext, n Node, base Base) (Element, error) {
	g, err := decodeChoiceGroup(dc, n)
	if err != nil {
		return nil, err
	}
	return &SingleChoice{Base: base, ChoiceGroup: g}, nil
}

func decodeMultiChoice(dc *DecodeContext, n Node, base Base) (Element, error) {
	g, err := decodeChoiceGroup(dc, n)
	if err != nil {
		return nil, err
	}
	m := &MultiChoice{
		Base:          base,
		ChoiceGroup:   g,
		MinSelections: intPtr(dc, n, "minSelections", "min_selections", "minSelected"),
		MaxSelections: intPtr(dc, n, "maxSelections", "max_selections", "maxSelected"),
	}
	if m.MinSelections != nil && m.MaxSelections != nil && *m.MinSelections > *m.MaxSelections {
		dc.Warn("minSelections", "exceeds maxSelections, bounds dropped")
		m.MinSelections, m.MaxSelections = nil, nil
	}
	return m, nil
}
