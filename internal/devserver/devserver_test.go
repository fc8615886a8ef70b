package devserver

import (
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/onboard/internal/domain/flow"
	"github.com/GriffinCanCode/onboard/internal/domain/placement"
	"github.com/GriffinCanCode/onboard/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/onboard/internal/shared/value"
)

const campaignsYAML = `
campaigns:
  - id: welcome_q3
    placement: home
    audience:
      plan: [free, trial]
    holdoutPercent: 10
    sticky: true
    variants:
      - id: a
        weight: 1
        flow: welcome
      - id: b
        weight: 3
        flow: nested/short
`

const campaignsTOML = `
[[campaigns]]
id = "welcome_q3"
placement = "home"
holdoutPercent = 10.0
sticky = true

[campaigns.audience]
plan = ["free", "trial"]

[[campaigns.variants]]
id = "a"
weight = 1
flow = "welcome"

[[campaigns.variants]]
id = "b"
weight = 3
flow = "nested/short"
`

var fixtures = fstest.MapFS{
	"welcome.json": {Data: []byte(`{
		"flowId": "welcome",
		"flowName": "Welcome",
		"screens": [{"id": "intro", "elements": [{"type": "text", "content": "Hi"}]}]
	}`)},
	"nested/short.json": {Data: []byte(`{
		"config": {"screens": [{"id": "only", "elements": [{"type": "mystery"}]}]}
	}`)},
	"README.md": {Data: []byte("not a flow")},
}

func loadFixtures(t *testing.T) Flows {
	t.Helper()
	flows, err := LoadFlowsFS(fixtures, nil, nil)
	require.NoError(t, err)
	return flows
}

func newBackend(t *testing.T, src string, opts Options) *Backend {
	t.Helper()
	cat, err := ParseCatalog(".yaml", []byte(src))
	require.NoError(t, err)
	b, err := New(cat, loadFixtures(t), opts)
	require.NoError(t, err)
	return b
}

func TestLoadFlows(t *testing.T) {
	flows := loadFixtures(t)
	require.Len(t, flows, 2)

	welcome := flows["welcome"]
	require.NotNil(t, welcome)
	assert.Equal(t, "Welcome", welcome.Name)
	assert.Equal(t, "welcome.json", welcome.Path)

	short := flows["nested/short"]
	require.NotNil(t, short, "id falls back to the path")
	assert.Contains(t, short.Config, "screens", "nested config is unwrapped")
	assert.Equal(t, flow.KindUnknown, short.Document.Screens[0].Elements[0].Kind())
}

func TestLoadFlowsRejectsStructuralFailures(t *testing.T) {
	bad := fstest.MapFS{
		"ok.json":     {Data: []byte(`{"screens": []}`)},
		"broken.json": {Data: []byte(`{"screens": 3}`)},
		"dupe.json":   {Data: []byte(`{"flowId": "ok", "screens": []}`)},
	}
	_, err := LoadFlowsFS(bad, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, flow.ErrStructural)
	assert.Contains(t, err.Error(), "broken.json")
	assert.Contains(t, err.Error(), `flow id "ok" already defined`)
}

func TestCatalogFormatsAgree(t *testing.T) {
	fromYAML, err := ParseCatalog(".yaml", []byte(campaignsYAML))
	require.NoError(t, err)
	fromTOML, err := ParseCatalog("toml", []byte(campaignsTOML))
	require.NoError(t, err)

	if diff := cmp.Diff(fromYAML, fromTOML,
		cmpopts.IgnoreFields(Campaign{}, "Audience"),
		cmp.AllowUnexported(Campaign{}),
	); diff != "" {
		t.Errorf("catalogs differ (-yaml +toml):\n%s", diff)
	}

	_, err = ParseCatalog(".ini", nil)
	assert.Error(t, err)
}

func TestCatalogValidate(t *testing.T) {
	cat, err := ParseCatalog(".yaml", []byte(`
campaigns:
  - id: one
    placement: "bad placement!"
    holdoutPercent: 120
    variants:
      - {id: a, weight: 0, flow: missing}
  - id: one
    placement: home
`))
	require.NoError(t, err)

	err = cat.Validate(loadFixtures(t))
	require.Error(t, err)
	for _, want := range []string{
		"holdoutPercent", "weights sum to zero", `unknown flow "missing"`, "duplicate id", "no variants",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestAudienceMatching(t *testing.T) {
	cat, err := ParseCatalog(".yaml", []byte(`
campaigns:
  - id: c
    placement: home
    audience: {plan: [free, trial], seats: 3}
    variants: [{id: a, weight: 1, flow: welcome}]
`))
	require.NoError(t, err)
	c := cat.Campaigns[0]

	tests := []struct {
		name  string
		props value.Map
		want  bool
	}{
		{"all match", value.Map{"plan": value.String("trial"), "seats": value.Int(3)}, true},
		{"numeric text", value.Map{"plan": value.String("free"), "seats": value.String("3")}, true},
		{"wrong plan", value.Map{"plan": value.String("pro"), "seats": value.Int(3)}, false},
		{"missing key", value.Map{"plan": value.String("free")}, false},
		{"nothing", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Matches(tt.props))
		})
	}
}

func TestProgrammaticCatalogHonorsAudience(t *testing.T) {
	cat := &Catalog{Campaigns: []*Campaign{{
		ID:        "pro_only",
		Placement: "home",
		Audience:  map[string]any{"plan": "pro", "region": []string{"eu", "us"}},
		Variants:  []Variant{{ID: "a", Weight: 1, Flow: "welcome"}},
	}}}
	b, err := New(cat, loadFixtures(t), Options{})
	require.NoError(t, err)

	body, err := b.Resolve(placement.Request{
		Placement:  "home",
		UserID:     "u_1",
		Properties: value.Map{"plan": value.String("free"), "region": value.String("eu")},
	})
	require.NoError(t, err)
	assert.Nil(t, body["flowId"])
	assert.Equal(t, placement.ReasonNoFlow, body["message"])

	body, err = b.Resolve(placement.Request{
		Placement:  "home",
		UserID:     "u_1",
		Properties: value.Map{"plan": value.String("pro"), "region": value.String("us")},
	})
	require.NoError(t, err)
	assert.Equal(t, "welcome", body["flowId"])

	_, err = New(&Catalog{Campaigns: []*Campaign{{
		ID:        "bad",
		Placement: "home",
		Audience:  map[string]any{"plan": map[string]any{"nested": true}},
		Variants:  []Variant{{ID: "a", Weight: 1, Flow: "welcome"}},
	}}}, loadFixtures(t), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `audience "plan"`)
}

func TestStickyAssignmentIsIdempotent(t *testing.T) {
	b := newBackend(t, campaignsYAML, Options{})
	req := placement.Request{
		Placement:  "home",
		UserID:     "u_42",
		Properties: value.Map{"plan": value.String("free")},
	}

	first, err := b.Resolve(req)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := b.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, first["variantId"], again["variantId"])
		assert.Equal(t, first["isControl"], again["isControl"])
	}
}

func TestStickyAssignmentSpreadsSubjects(t *testing.T) {
	b := newBackend(t, campaignsYAML, Options{})
	c := b.catalog.Campaigns[0]

	counts := map[string]int{}
	for i := 0; i < 2000; i++ {
		a := b.Assign(c, placement.Subject("", fmt.Sprintf("device_%d", i)))
		if a.Control {
			counts["control"]++
			continue
		}
		counts[a.Variant.ID]++
	}
	assert.Greater(t, counts["control"], 0)
	assert.Greater(t, counts["b"], counts["a"], "b carries three times the weight")
}

func TestNonStickyUsesDraw(t *testing.T) {
	src := `
campaigns:
  - id: c
    placement: home
    holdoutPercent: 50
    variants:
      - {id: a, weight: 1, flow: welcome}
      - {id: b, weight: 1, flow: welcome}
`
	draws := []uint32{4999, 6000, 1}
	b := newBackend(t, src, Options{Draw: func(n uint32) uint32 {
		d := draws[0] % n
		draws = draws[1:]
		return d
	}})
	c := b.catalog.Campaigns[0]

	assert.True(t, b.Assign(c, "user:x").Control)
	a := b.Assign(c, "user:x")
	require.False(t, a.Control)
	assert.Equal(t, "b", a.Variant.ID)
}

func TestResolveOutcomes(t *testing.T) {
	metrics := monitoring.NewMetrics()
	b := newBackend(t, campaignsYAML, Options{Metrics: metrics})

	_, err := b.Resolve(placement.Request{Placement: "settings", UserID: "u_1"})
	assert.ErrorIs(t, err, ErrUnknownPlacement)

	body, err := b.Resolve(placement.Request{Placement: "home", UserID: "u_1"})
	require.NoError(t, err)
	assert.Nil(t, body["flowId"])
	assert.Equal(t, placement.ReasonNoFlow, body["message"], "audience not met")

	req := placement.Request{Placement: "home", UserID: "u_1", Properties: value.Map{"plan": value.String("free")}}
	body, err = b.Resolve(req)
	require.NoError(t, err)
	if body["isControl"] != true {
		assert.Equal(t, "welcome_q3", body["campaignId"])
		assert.NotNil(t, body["config"])
	}

	b.RecordCompletion(placement.Completion{UserID: "u_1", Placement: "home", FlowID: "welcome"})
	body, err = b.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, ReasonCompleted, body["message"])

	rec, ok := b.Completion("user:u_1", "home")
	require.True(t, ok)
	assert.False(t, rec.CompletedAt.IsZero())

	b.ResetCompletion("user:u_1", "home")
	body, err = b.Resolve(req)
	require.NoError(t, err)
	assert.NotEqual(t, ReasonCompleted, body["message"])
}

func TestResolvedBodyDecodes(t *testing.T) {
	b := newBackend(t, `
campaigns:
  - id: c
    placement: home
    variants: [{id: a, weight: 1, flow: welcome}]
`, Options{})
	body, err := b.Resolve(placement.Request{Placement: "home", DeviceID: "d_1"})
	require.NoError(t, err)

	res, err := placement.Decode(nil, "home", body)
	require.NoError(t, err)
	assert.False(t, res.Empty())
	assert.Equal(t, "welcome", res.FlowID)
	assert.Equal(t, placement.Linkage{PlacementID: "home", CampaignID: "c", VariantID: "a"}, res.Linkage)
	assert.Equal(t, "intro", res.Document.Screens[0].ID)
}

func TestEventBufferIsBounded(t *testing.T) {
	b := newBackend(t, campaignsYAML, Options{EventBuffer: 3})
	for _, typ := range []placement.EventType{
		placement.EventFlowViewed, placement.EventScreenViewed, placement.EventScreenViewed, placement.EventFlowCompleted,
	} {
		b.TrackEvent(placement.Event{Type: typ})
	}
	events := b.Events()
	require.Len(t, events, 3)
	assert.Equal(t, placement.EventScreenViewed, events[0].Type)
	assert.Equal(t, placement.EventFlowCompleted, events[2].Type)
	assert.Equal(t, 3, b.Stats()["events"])
}
