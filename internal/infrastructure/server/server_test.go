package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/onboard/internal/cache"
	"github.com/GriffinCanCode/onboard/internal/client"
	"github.com/GriffinCanCode/onboard/internal/domain/onboarding"
	"github.com/GriffinCanCode/onboard/internal/domain/placement"
	"github.com/GriffinCanCode/onboard/internal/infrastructure/config"
	"github.com/GriffinCanCode/onboard/internal/infrastructure/logging"
	"github.com/GriffinCanCode/onboard/internal/shared/value"
	"github.com/GriffinCanCode/onboard/internal/storage"
)

const apiKey = "sk_test_123"

const campaigns = `
campaigns:
  - id: welcome_q3
    placement: home
    sticky: true
    variants:
      - {id: long, weight: 1, flow: welcome}
      - {id: short, weight: 1, flow: welcome_short}
`

const welcomeFlow = `{
	"flowId": "welcome",
	"flowName": "Welcome",
	"screens": [
		{"id": "intro", "elements": [{"type": "text", "content": "Hi"}]},
		{"id": "name", "elements": [{"id": "name_field", "type": "input", "variableKey": "name_input"}]}
	]
}`

const shortFlow = `{
	"flowId": "welcome_short",
	"screens": [
		{"id": "name", "elements": [{"id": "name_field", "type": "input", "variableKey": "name_input"}]}
	]
}`

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func newTestServer(t *testing.T, campaignsFile string) (*Server, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "flows", "welcome.json"), welcomeFlow)
	writeFile(t, filepath.Join(dir, "flows", "variants", "short.json"), shortFlow)
	writeFile(t, filepath.Join(dir, "campaigns.yaml"), campaignsFile)

	cfg := config.Default()
	cfg.DevServer.CampaignsFile = filepath.Join(dir, "campaigns.yaml")
	cfg.DevServer.FlowsDir = filepath.Join(dir, "flows")
	cfg.DevServer.APIKey = apiKey

	srv, err := NewServer(cfg, logging.NewNop())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func newClient(t *testing.T, url, key string) *client.Client {
	t.Helper()
	c, err := client.New(client.Options{
		BaseURL:           url,
		APIKey:            key,
		SDKVersion:        "1.0.0",
		Platform:          "go",
		CompletionRetries: 0,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Close(ctx)
	})
	return c
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHealthAndMetrics(t *testing.T) {
	_, ts := newTestServer(t, campaigns)

	status, body := get(t, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"campaigns":1`)
	assert.Contains(t, body, `"flows":2`)

	status, body = get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "onboard_http_requests_total")
}

func TestAPIKeyRequired(t *testing.T) {
	_, ts := newTestServer(t, campaigns)

	resp, err := http.Post(ts.URL+"/v1/placements/home/resolve", "application/json", strings.NewReader(`{"userId":"u_1"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"), "rejected requests are traced too")

	_, err = newClient(t, ts.URL, "wrong").Resolve(context.Background(), placement.Request{Placement: "home", UserID: "u_1"})
	assert.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestStickyResolutionThroughClient(t *testing.T) {
	_, ts := newTestServer(t, campaigns)
	c := newClient(t, ts.URL, apiKey)

	req := placement.Request{Placement: "home", UserID: "u_sticky"}
	first, err := c.Resolve(context.Background(), req)
	require.NoError(t, err)
	require.False(t, first.Empty())
	assert.Equal(t, "welcome_q3", first.Linkage.CampaignID)

	for i := 0; i < 5; i++ {
		again, err := c.Resolve(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, first.Linkage.VariantID, again.Linkage.VariantID)
		assert.Equal(t, first.FlowID, again.FlowID)
	}
}

func TestUnknownPlacementIsEmpty(t *testing.T) {
	_, ts := newTestServer(t, campaigns)
	c := newClient(t, ts.URL, apiKey)

	res, err := c.Resolve(context.Background(), placement.Request{Placement: "settings", DeviceID: "d_1"})
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Equal(t, "placement not found", res.Reason)
}

func TestOnboardingAgainstSandbox(t *testing.T) {
	srv, ts := newTestServer(t, campaigns)
	c := newClient(t, ts.URL, apiKey)

	newController := func() *onboarding.Controller {
		ctrl, err := onboarding.New(onboarding.Options{
			Resolver: c,
			Cache:    cache.New(storage.NewMemoryStore(), cache.Options{Namespace: "user:u_1"}),
			UserID:   "u_1",
		})
		require.NoError(t, err)
		t.Cleanup(ctrl.Wait)
		return ctrl
	}

	ctrl := newController()
	state, err := ctrl.Present(context.Background(), "home", nil)
	require.NoError(t, err)
	require.Equal(t, onboarding.Presenting, state)

	require.NoError(t, ctrl.SetResponse("name_input", value.String("Ada")))
	require.NoError(t, ctrl.Complete(context.Background()))
	assert.Equal(t, onboarding.Completed, ctrl.State())

	rec, ok := srv.Backend().Completion("user:u_1", "home")
	require.True(t, ok)
	assert.Equal(t, "Ada", rec.Responses["name_input"].Text())
	assert.Equal(t, "welcome_q3", rec.CampaignID)
	assert.Equal(t, ctrl.Resolution().FlowID, rec.FlowID)

	// Drain events before inspecting them
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Close(ctx))

	var types []placement.EventType
	for _, ev := range srv.Backend().Events() {
		types = append(types, ev.Type)
	}
	assert.Equal(t, placement.EventFlowViewed, types[0])
	assert.Equal(t, placement.EventFlowCompleted, types[len(types)-1])
	assert.Contains(t, types, placement.EventScreenViewed)

	// A fresh device cache still sees the backend's completion
	again := newController()
	state, err = again.Present(context.Background(), "home", nil)
	require.NoError(t, err)
	assert.Equal(t, onboarding.Dismissed, state)
	assert.Equal(t, "already completed", again.Resolution().Reason)
}

func TestNewServerRejectsUnknownFlows(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "flows", "welcome.json"), welcomeFlow)
	writeFile(t, filepath.Join(dir, "campaigns.toml"), `
[[campaigns]]
id = "c"
placement = "home"

[[campaigns.variants]]
id = "a"
weight = 1
flow = "missing"
`)

	cfg := config.Default()
	cfg.DevServer.CampaignsFile = filepath.Join(dir, "campaigns.toml")
	cfg.DevServer.FlowsDir = filepath.Join(dir, "flows")

	_, err := NewServer(cfg, logging.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown flow "missing"`)
}
