package flow

import (
	"github.com/GriffinCanCode/onboard/internal/shared/value"
)

// BehaviorKind names what a tap does
type BehaviorKind string

const (
	BehaviorNavigate BehaviorKind = "navigate"
	BehaviorNext     BehaviorKind = "next"
	BehaviorBack     BehaviorKind = "back"
	BehaviorComplete BehaviorKind = "complete"
	BehaviorSkip     BehaviorKind = "skip"
	BehaviorHaptic   BehaviorKind = "haptic"
	BehaviorBump     BehaviorKind = "bump"
	BehaviorOpenURL  BehaviorKind = "open_url"
)

var behaviorAliases = map[string]BehaviorKind{
	"navigate":         BehaviorNavigate,
	"navigatetoscreen": BehaviorNavigate,
	"goto":             BehaviorNavigate,
	"gotoscreen":       BehaviorNavigate,
	"next":             BehaviorNext,
	"continue":         BehaviorNext,
	"nextscreen":       BehaviorNext,
	"back":             BehaviorBack,
	"goback":           BehaviorBack,
	"previous":         BehaviorBack,
	"complete":         BehaviorComplete,
	"completeflow":     BehaviorComplete,
	"finish":           BehaviorComplete,
	"done":             BehaviorComplete,
	"skip":             BehaviorSkip,
	"dismiss":          BehaviorSkip,
	"close":            BehaviorSkip,
	"haptic":           BehaviorHaptic,
	"hapticfeedback":   BehaviorHaptic,
	"vibrate":          BehaviorHaptic,
	"bump":             BehaviorBump,
	"visualbump":       BehaviorBump,
	"scalebump":        BehaviorBump,
	"openurl":          BehaviorOpenURL,
	"link":             BehaviorOpenURL,
}

// ParseBehaviorKind maps wire spellings onto a BehaviorKind. Unrecognised
// kinds are kept under their normalized name so hosts can still act on them.
func ParseBehaviorKind(s string) BehaviorKind {
	norm := NormalizeTag(s)
	if k, ok := behaviorAliases[norm]; ok {
		return k
	}
	return BehaviorKind(norm)
}

// IsNavigation reports whether the behavior moves through the flow
func (k BehaviorKind) IsNavigation() bool {
	switch k {
	case BehaviorNavigate, BehaviorNext, BehaviorBack, BehaviorComplete, BehaviorSkip:
		return true
	}
	return false
}

// TapBehavior is one effect fired when an element is tapped
type TapBehavior struct {
	Kind      BehaviorKind `json:"type"`
	Target    string       `json:"target,omitempty"`
	DelayMs   *float64     `json:"delayMs,omitempty"`
	Intensity string       `json:"intensity,omitempty"`
	URL       string       `json:"url,omitempty"`
}

func decodeBehaviors(dc *DecodeContext, n Node) []TapBehavior {
	list, ok := n.List("tapBehaviors", "tap_behaviors", "onTap", "actions")
	if !ok {
		if single, ok := n.Object("onTap", "tapBehavior"); ok {
			list = []any{map[string]any(single)}
		}
	}
	if len(list) == 0 {
		return nil
	}

	out := make([]TapBehavior, 0, len(list))
	for i, raw := range list {
		b, ok := decodeBehavior(raw)
		if !ok {
			dc.Warn("tapBehaviors", "entry %d has no recognisable type", i)
			continue
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func decodeBehavior(raw any) (TapBehavior, bool) {
	if s, ok := raw.(string); ok && s != "" {
		return TapBehavior{Kind: ParseBehaviorKind(s)}, true
	}
	obj, ok := AsNode(raw)
	if !ok {
		return TapBehavior{}, false
	}
	kind, ok := obj.String("type", "kind", "action", "behavior")
	if !ok || NormalizeTag(kind) == "" {
		return TapBehavior{}, false
	}
	b := TapBehavior{
		Kind:    ParseBehaviorKind(kind),
		DelayMs: numPtr(obj, "delayMs", "delay"),
	}
	b.Target, _ = obj.String("target", "targetScreen", "targetScreenId", "screenId")
	b.Intensity, _ = obj.Text("intensity", "strength")
	b.URL, _ = obj.String("url", "href")
	return b, true
}

// Operator compares a collected response against a route condition
type Operator string

const (
	OpEquals    Operator = "equals"
	OpNotEquals Operator = "not_equals"
	OpContains  Operator = "contains"
	OpExists    Operator = "exists"
	OpGreater   Operator = "gt"
	OpLess      Operator = "lt"
)

var operatorAliases = map[string]Operator{
	"equals": OpEquals, "eq": OpEquals, "is": OpEquals, "==": OpEquals,
	"notequals": OpNotEquals, "neq": OpNotEquals, "isnot": OpNotEquals, "!=": OpNotEquals,
	"contains": OpContains, "includes": OpContains,
	"exists": OpExists, "isset": OpExists, "answered": OpExists,
	"gt": OpGreater, "greaterthan": OpGreater, ">": OpGreater,
	"lt": OpLess, "lessthan": OpLess, "<": OpLess,
}

// Condition tests one response variable
type Condition struct {
	Variable string      `json:"variable"`
	Operator Operator    `json:"operator"`
	Value    value.Value `json:"value"`
}

// Match evaluates the condition against collected responses
func (c Condition) Match(responses value.Map) bool {
	got, present := responses[c.Variable]
	present = present && !got.IsNull()
	switch c.Operator {
	case OpExists:
		return present
	case OpNotEquals:
		return !present || !got.Equal(c.Value)
	case OpContains:
		return present && got.Contains(c.Value)
	case OpGreater:
		cmp, ok := got.Compare(c.Value)
		return present && ok && cmp > 0
	case OpLess:
		cmp, ok := got.Compare(c.Value)
		return present && ok && cmp < 0
	default:
		if !present {
			return false
		}
		if got.Equal(c.Value) {
			return true
		}
		// "3" and 3 are the same answer.
		cmp, ok := got.Compare(c.Value)
		return ok && cmp == 0
	}
}

// Route sends navigation to Target when When matches (or unconditionally)
type Route struct {
	When   *Condition `json:"when,omitempty"`
	Target string     `json:"target"`
}

// Matches reports whether the route applies
func (r Route) Matches(responses value.Map) bool {
	return r.When == nil || r.When.Match(responses)
}

func decodeRoutes(dc *DecodeContext, n Node) []Route {
	list, ok := n.List("routes", "routing", "conditions")
	if !ok {
		return nil
	}
	out := make([]Route, 0, len(list))
	for i, raw := range list {
		obj, ok := AsNode(raw)
		if !ok {
			dc.Warn("routes", "entry %d is not an object", i)
			continue
		}
		target, _ := obj.String("target", "targetScreen", "targetScreenId", "screenId")
		if target == "" {
			dc.Warn("routes", "entry %d has no target", i)
			continue
		}
		route := Route{Target: target}
		cond := obj
		if when, ok := obj.Object("when", "condition", "if"); ok {
			cond = when
		}
		if variable, ok := cond.String("variable", "key", "field"); ok && variable != "" {
			c := &Condition{Variable: variable, Operator: OpEquals}
			if op, ok := cond.String("operator", "op"); ok {
				parsed, known := operatorAliases[NormalizeTag(op)]
				if !known {
					dc.Warn("routes", "entry %d has unknown operator %q", i, op)
					continue
				}
				c.Operator = parsed
			}
			if raw, ok := cond.Lookup("value", "equals"); ok {
				v, err := value.FromAny(raw)
				if err != nil {
					dc.Warn("routes", "entry %d value: %v", i, err)
					continue
				}
				c.Value = v
			}
			route.When = c
		}
		out = append(out, route)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
