package flow

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/onboard/internal/shared/id"
	"github.com/GriffinCanCode/onboard/internal/shared/value"
)

const nestedFlow = `{
	"flowId": "f_1",
	"flowName": "Welcome",
	"updatedAt": "2026-03-01T10:00:00Z",
	"config": {
		"version": "2",
		"theme": {"variables": {"brand": {"light": "#111", "dark": "#eee"}, "accent": "#f00"}},
		"variables": [{"key": "name_input", "type": "string"}, {"key": "age", "type": "int", "default": 30}],
		"screens": [
			{
				"id": "welcome",
				"type": "informational",
				"root": {"type": "vstack", "children": [
					{"type": "text", "content": "Hello", "color": "$brand"},
					{"type": "button", "label": "Start", "tapBehaviors": [{"type": "next"}]}
				]}
			},
			{
				"id": "ask",
				"type": "question",
				"showProgress": false,
				"elements": [
					{"type": "text_input", "variableKey": "name_input"},
					{"type": "single_choice", "variableKey": "plan", "options": ["free", "pro"]}
				],
				"routes": [
					{"when": {"variable": "plan", "operator": "equals", "value": "pro"}, "target": "upsell"},
					{"target": "done"}
				]
			},
			{"id": "upsell", "components": [{"type": "text", "content": "Pro!"}]},
			{"id": "done", "elements": []}
		]
	}
}`

func TestParseNestedConfig(t *testing.T) {
	doc, err := Parse([]byte(nestedFlow))
	require.NoError(t, err)

	assert.Equal(t, "f_1", doc.FlowID)
	assert.Equal(t, "Welcome", doc.FlowName)
	require.NotNil(t, doc.UpdatedAt)
	assert.Equal(t, 2026, doc.UpdatedAt.Year())
	assert.Equal(t, 2, doc.Version)
	require.Len(t, doc.Screens, 4)
	assert.Empty(t, doc.Diagnostics)

	welcome := doc.Screens[0]
	assert.Equal(t, ScreenInformational, welcome.Type)
	assert.True(t, welcome.ShowProgress)
	require.IsType(t, &Container{}, welcome.Root)
	require.Len(t, welcome.Elements, 2, "root children become the element list")
	assert.Equal(t, KindText, welcome.Elements[0].Kind())

	ask := doc.Screens[1]
	assert.Equal(t, ScreenQuestion, ask.Type)
	assert.False(t, ask.ShowProgress)
	assert.Nil(t, ask.Root)
	keys := []string{}
	for _, c := range ask.Collectors() {
		keys = append(keys, c.ResponseKey())
	}
	assert.Equal(t, []string{"name_input", "plan"}, keys)

	target, ok := ask.NextRoute(value.Map{"plan": value.String("pro")})
	require.True(t, ok)
	assert.Equal(t, "upsell", target)
	target, _ = ask.NextRoute(value.Map{"plan": value.String("free")})
	assert.Equal(t, "done", target)

	assert.Len(t, doc.Screens[2].Elements, 1, "legacy components key")
	assert.Equal(t, 3, doc.ScreenIndex("done"))
	assert.Equal(t, -1, doc.ScreenIndex("nope"))

	color, ok := doc.Theme.Color("$brand", Dark)
	require.True(t, ok)
	assert.Equal(t, "#eee", color)
	color, _ = doc.Theme.Color("$accent", Dark)
	assert.Equal(t, "#f00", color, "dark falls back to light")
	_, ok = doc.Theme.Color("$missing", Light)
	assert.False(t, ok)
	color, _ = doc.Theme.Color("#123", Light)
	assert.Equal(t, "#123", color)

	age, ok := doc.Variable("age")
	require.True(t, ok)
	assert.Equal(t, VarNumber, age.Type)
	assert.True(t, doc.Defaults()["age"].Equal(value.Int(30)))
}

func TestParseFlatConfig(t *testing.T) {
	doc, err := Parse([]byte(`{"version": 1, "screens": [{"elements": [{"type": "text", "content": "x"}]}]}`))
	require.NoError(t, err)
	require.Len(t, doc.Screens, 1)
	assert.True(t, id.IsSynthesized(doc.Screens[0].ID, id.ScreenPrefix))
	assert.Nil(t, doc.Theme)
	assert.Nil(t, doc.Variables)
}

func TestNestedConfigPreferred(t *testing.T) {
	doc, err := Parse([]byte(`{
		"version": 1,
		"screens": [{"id": "flat"}],
		"config": {"version": 3, "screens": [{"id": "nested"}]}
	}`))
	require.NoError(t, err)
	assert.Equal(t, 3, doc.Version)
	assert.Equal(t, "nested", doc.Screens[0].ID)

	// Fields missing from the nested object come from the top level
	doc, err = Parse([]byte(`{"version": 4, "config": {"screens": []}}`))
	require.NoError(t, err)
	assert.Equal(t, 4, doc.Version)
}

func TestStructuralFailures(t *testing.T) {
	for _, src := range []string{
		`{"version": 1}`,
		`{"screens": {"id": "x"}}`,
		`[1, 2]`,
		`{not json`,
		`{"config": {"screens": null}}`,
	} {
		_, err := Parse([]byte(src))
		assert.ErrorIs(t, err, ErrStructural, src)
	}
}

func TestScreenLevelDegradation(t *testing.T) {
	doc, err := Parse([]byte(`{"version": "x", "screens": [
		"bogus",
		{"id": "a", "type": "carousel", "elements": [{"type": "image"}, {"type": "text", "content": "ok"}]},
		{"id": "a", "root": {"type": "text", "content": "solo"}}
	]}`))
	require.NoError(t, err)

	assert.Equal(t, 1, doc.Version)
	require.Len(t, doc.Screens, 2, "non-object screen dropped")

	a := doc.Screens[0]
	assert.Equal(t, ScreenUnknown, a.Type)
	require.Len(t, a.Elements, 2)
	assert.IsType(t, &Unknown{}, a.Elements[0])
	assert.Equal(t, "ok", a.Elements[1].(*Text).Content)

	solo := doc.Screens[1]
	require.Len(t, solo.Elements, 1)
	assert.Same(t, solo.Root, solo.Elements[0])

	paths := make([]string, 0, len(doc.Diagnostics))
	for _, d := range doc.Diagnostics {
		paths = append(paths, d.Path)
	}
	assert.ElementsMatch(t, []string{
		"version", "screens[0]", "screens[1].type", "screens[1].elements[0]", "screens[2].id",
	}, paths)
}

func TestVariablesMapForm(t *testing.T) {
	doc, err := Parse([]byte(`{"screens": [], "variables": {
		"zeta": "boolean",
		"alpha": {"type": "list", "default": ["a"]},
		"mid": {"type": "mystery"}
	}}`))
	require.NoError(t, err)
	require.Len(t, doc.Variables, 3)
	assert.Equal(t, "alpha", doc.Variables[0].Key)
	assert.Equal(t, VarList, doc.Variables[0].Type)
	assert.True(t, doc.Variables[0].Default.Equal(value.Strings("a")))
	assert.Equal(t, VarString, doc.Variables[1].Type)
	assert.Equal(t, VarBoolean, doc.Variables[2].Type)
	assert.Len(t, doc.Diagnostics, 1)
}

func TestDocumentRoundTrip(t *testing.T) {
	first, err := Parse([]byte(nestedFlow))
	require.NoError(t, err)

	data, err := json.Marshal(first)
	require.NoError(t, err)

	var second Document
	require.NoError(t, json.Unmarshal(data, &second))

	opts := cmp.Options{
		cmpopts.IgnoreUnexported(Unknown{}),
		cmpopts.IgnoreFields(Document{}, "Diagnostics"),
	}
	if diff := cmp.Diff(first, &second, opts); diff != "" {
		t.Errorf("document changed across encode/decode (-first +second):\n%s", diff)
	}
}
