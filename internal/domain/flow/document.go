package flow

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/onboard/internal/shared/value"
)

// Document is a decoded onboarding flow
type Document struct {
	FlowID    string     `json:"flowId,omitempty"`
	FlowName  string     `json:"flowName,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`

	Version   int        `json:"version"`
	Screens   []*Screen  `json:"screens"`
	Theme     *Theme     `json:"theme,omitempty"`
	Variables []Variable `json:"variables,omitempty"`

	// Diagnostics lists every degradation applied while decoding
	Diagnostics []Diagnostic `json:"-"`
}

// ScreenType is informational only; renderers may style by it
type ScreenType string

const (
	ScreenInformational ScreenType = "informational"
	ScreenQuestion      ScreenType = "question"
	ScreenUnknown       ScreenType = "unknown"
)

// Screen is one step of a flow
type Screen struct {
	ID           string
	Name         string
	Type         ScreenType
	ShowProgress bool
	// Elements is the screen's element list. With a container Root it holds
	// the root's children.
	Elements []Element
	Root     Element
	Routes   []Route
}

type screenWire struct {
	ID           string     `json:"id"`
	Name         string     `json:"name,omitempty"`
	Type         ScreenType `json:"type"`
	ShowProgress bool       `json:"showProgress"`
	Root         Element    `json:"root,omitempty"`
	Elements     []Element  `json:"elements,omitempty"`
	Routes       []Route    `json:"routes,omitempty"`
}

// MarshalJSON writes root when the screen came from the evolved schema,
// the flat element list otherwise
func (s *Screen) MarshalJSON() ([]byte, error) {
	w := screenWire{
		ID:           s.ID,
		Name:         s.Name,
		Type:         s.Type,
		ShowProgress: s.ShowProgress,
		Routes:       s.Routes,
	}
	if s.Root != nil {
		w.Root = s.Root
	} else {
		w.Elements = s.Elements
		if w.Elements == nil {
			w.Elements = []Element{}
		}
	}
	return json.Marshal(w)
}

// Find returns the element with the given id anywhere on the screen
func (s *Screen) Find(id string) (Element, bool) {
	return Find(s.Elements, id)
}

// Collectors returns the response-collecting elements in document order
func (s *Screen) Collectors() []Collector {
	var out []Collector
	Walk(s.Elements, func(el Element) bool {
		if c, ok := el.(Collector); ok {
			out = append(out, c)
		}
		return true
	})
	return out
}

// NextRoute returns the target of the first matching route
func (s *Screen) NextRoute(responses value.Map) (string, bool) {
	for _, r := range s.Routes {
		if r.Matches(responses) {
			return r.Target, true
		}
	}
	return "", false
}

// VariableType is the declared type of a collected variable
type VariableType string

const (
	VarString  VariableType = "string"
	VarNumber  VariableType = "number"
	VarBoolean VariableType = "boolean"
	VarDate    VariableType = "date"
	VarList    VariableType = "list"
)

var variableTypes = map[string]VariableType{
	"string": VarString, "text": VarString,
	"number": VarNumber, "int": VarNumber, "integer": VarNumber, "float": VarNumber,
	"boolean": VarBoolean, "bool": VarBoolean,
	"date": VarDate, "datetime": VarDate,
	"list": VarList, "array": VarList, "strings": VarList,
}

// Variable declares a typed value the flow collects
type Variable struct {
	Key     string       `json:"key"`
	Type    VariableType `json:"type"`
	Default *value.Value `json:"default,omitempty"`
}

// ScreenIndex returns the position of the screen with the given id
func (d *Document) ScreenIndex(id string) int {
	for i, s := range d.Screens {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Variable returns the declaration for key
func (d *Document) Variable(key string) (Variable, bool) {
	for _, v := range d.Variables {
		if v.Key == key {
			return v, true
		}
	}
	return Variable{}, false
}

// Defaults returns the declared default values keyed by variable
func (d *Document) Defaults() value.Map {
	out := make(value.Map)
	for _, v := range d.Variables {
		if v.Default != nil {
			out[v.Key] = *v.Default
		}
	}
	return out
}

// UnmarshalJSON decodes through the default decoder so cached documents
// read back into the same model
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := defaultDecoder().Parse(data)
	if err != nil {
		return err
	}
	*d = *doc
	return nil
}

var (
	sharedDecoder     *Decoder
	sharedDecoderOnce sync.Once
)

func defaultDecoder() *Decoder {
	sharedDecoderOnce.Do(func() { sharedDecoder = NewDecoder() })
	return sharedDecoder
}

// Parse decodes a JSON flow document with the default decoder
func Parse(data []byte) (*Document, error) {
	return defaultDecoder().Parse(data)
}

// Parse decodes a JSON flow document
func (d *Decoder) Parse(data []byte) (*Document, error) {
	var raw any
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStructural, err)
	}
	return d.DecodeDocument(raw)
}

// DecodeDocument decodes an already-parsed document. Configuration nested
// under "config" is preferred over top-level fields; either is sufficient.
func (d *Decoder) DecodeDocument(raw any) (*Document, error) {
	root, ok := AsNode(raw)
	if !ok {
		return nil, fmt.Errorf("%w: document is %T, not an object", ErrStructural, raw)
	}
	src := root
	if nested, ok := root.Object("config", "flowConfig", "flow_config"); ok {
		src = root.Overlay(nested)
	}

	screensRaw, ok := src["screens"]
	if !ok || screensRaw == nil {
		return nil, fmt.Errorf("%w: screens missing", ErrStructural)
	}
	screens, ok := screensRaw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: screens is %T, not an array", ErrStructural, screensRaw)
	}

	dc := d.newContext("")
	doc := &Document{Version: decodeVersion(dc, src)}
	doc.FlowID, _ = src.Text("flowId", "flow_id")
	doc.FlowName, _ = src.String("flowName", "flow_name")
	if doc.FlowName == "" {
		doc.FlowName, _ = src.String("name")
	}
	if t, ok := src.Time("updatedAt", "updated_at"); ok {
		doc.UpdatedAt = &t
	}

	seen := make(map[string]bool, len(screens))
	doc.Screens = make([]*Screen, 0, len(screens))
	for i, raw := range screens {
		sc := dc.Child(fmt.Sprintf("screens[%d]", i))
		n, ok := AsNode(raw)
		if !ok {
			sc.Warn("", "screen is %T, not an object, dropped", raw)
			continue
		}
		s := sc.decodeScreen(n)
		if seen[s.ID] {
			sc.Warn("id", "duplicate screen id %q", s.ID)
		}
		seen[s.ID] = true
		doc.Screens = append(doc.Screens, s)
	}

	doc.Theme = decodeTheme(dc, src)
	doc.Variables = decodeVariables(dc, src)
	doc.Diagnostics = dc.Diagnostics()
	return doc, nil
}

func decodeVersion(dc *DecodeContext, n Node) int {
	v, ok := n.Number("version", "schemaVersion")
	if !ok {
		if n.Has("version", "schemaVersion") {
			dc.Warn("version", "not a number, using 1")
		}
		return 1
	}
	if v < 1 || v != float64(int(v)) {
		dc.Warn("version", "invalid version %v, using 1", v)
		return 1
	}
	return int(v)
}

func (dc *DecodeContext) decodeScreen(n Node) *Screen {
	s := &Screen{ShowProgress: true}
	if sid, ok := n.String("id", "screenId"); ok && strings.TrimSpace(sid) != "" {
		s.ID = sid
	} else {
		s.ID = dc.dec.ids.Screen().String()
	}
	s.Name, _ = n.Text("name", "title")

	s.Type = ScreenInformational
	if t, ok := n.String("type", "screenType"); ok {
		switch NormalizeTag(t) {
		case "informational", "info", "content", "welcome":
		case "question", "form", "input", "survey":
			s.Type = ScreenQuestion
		default:
			dc.Warn("type", "unknown screen type %q", t)
			s.Type = ScreenUnknown
		}
	}
	if show, ok := n.Bool("showProgress", "progressIndicator", "show_progress"); ok {
		s.ShowProgress = show
	}

	if rawRoot, ok := n.Lookup("root", "rootElement"); ok {
		rc := dc.Child("root")
		rc.depth = dc.depth + 1
		s.Root = rc.decodeOrPlaceholder(rawRoot)
		if c, ok := s.Root.(*Container); ok {
			s.Elements = c.Children
		} else {
			s.Elements = []Element{s.Root}
		}
	} else {
		s.Elements = dc.Elements(n, "elements", "components", "children")
	}
	if s.Elements == nil {
		s.Elements = []Element{}
	}
	s.Routes = decodeRoutes(dc, n)
	return s
}

func decodeVariables(dc *DecodeContext, n Node) []Variable {
	raw, ok := n.Lookup("variables")
	if !ok {
		return nil
	}
	var out []Variable
	switch t := raw.(type) {
	case []any:
		for i, item := range t {
			obj, ok := AsNode(item)
			if !ok {
				dc.Warn(fmt.Sprintf("variables[%d]", i), "expected object, got %T", item)
				continue
			}
			key, _ := obj.String("key", "name", "id")
			if key == "" {
				dc.Warn(fmt.Sprintf("variables[%d]", i), "missing key")
				continue
			}
			out = append(out, decodeVariable(dc.Child("variables."+key), key, obj))
		}
	default:
		obj, ok := AsNode(raw)
		if !ok {
			dc.Warn("variables", "expected list or object, got %T", raw)
			return nil
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range keys {
			switch def := obj[key].(type) {
			case string:
				out = append(out, decodeVariable(dc.Child("variables."+key), key, Node{"type": def}))
			default:
				body, _ := AsNode(def)
				out = append(out, decodeVariable(dc.Child("variables."+key), key, body))
			}
		}
	}
	return out
}

func decodeVariable(dc *DecodeContext, key string, n Node) Variable {
	v := Variable{Key: key, Type: VarString}
	if t, ok := n.String("type"); ok {
		if vt, known := variableTypes[NormalizeTag(t)]; known {
			v.Type = vt
		} else {
			dc.Warn("type", "unknown variable type %q, using string", t)
		}
	}
	if raw, ok := n.Lookup("default", "defaultValue"); ok {
		def, err := value.FromAny(raw)
		if err != nil {
			dc.Warn("default", "%v", err)
		} else {
			v.Default = &def
		}
	}
	return v
}
