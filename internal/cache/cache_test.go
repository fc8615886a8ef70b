package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/onboard/internal/domain/flow"
	"github.com/GriffinCanCode/onboard/internal/domain/placement"
	"github.com/GriffinCanCode/onboard/internal/infrastructure/config"
	"github.com/GriffinCanCode/onboard/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/onboard/internal/shared/value"
	"github.com/GriffinCanCode/onboard/internal/storage"
)

const welcome = `{
	"flowId": "f_welcome",
	"campaignId": "c_1",
	"variantId": "v_a",
	"config": {
		"version": 2,
		"screens": [
			{"id": "intro", "elements": [{"type": "text", "content": "Hi"}]},
			{"id": "name", "type": "question", "elements": [{"type": "input", "variableKey": "name_input"}]}
		]
	}
}`

func resolution(t *testing.T, p string) *placement.Resolution {
	t.Helper()
	res, err := placement.Parse(nil, p, []byte(welcome))
	require.NoError(t, err)
	return res
}

type brokenStore struct{}

var errDisk = errors.New("disk full")

func (brokenStore) Get(string) ([]byte, error) { return nil, errDisk }
func (brokenStore) Set(string, []byte) error   { return errDisk }
func (brokenStore) Delete(string) error        { return errDisk }
func (brokenStore) Clear(string) error         { return errDisk }

func TestSaveLoad(t *testing.T) {
	metrics := monitoring.NewMetrics()
	c := New(storage.NewMemoryStore(), Options{Namespace: "user:42", Metrics: metrics})

	_, ok := c.Load("home")
	assert.False(t, ok)

	saved := resolution(t, "home")
	c.Save(saved)

	got, ok := c.Load("home")
	require.True(t, ok)
	assert.Equal(t, placement.SourceCache, got.Source)
	assert.Equal(t, "f_welcome", got.FlowID)
	assert.Equal(t, saved.Linkage, got.Linkage)
	require.Len(t, got.Document.Screens, 2)

	// Element ids survive the round trip
	origID := saved.Document.Screens[0].Elements[0].ElementID()
	assert.Equal(t, origID, got.Document.Screens[0].Elements[0].ElementID())
	input, ok := got.Document.Screens[1].Elements[0].(*flow.TextInput)
	require.True(t, ok)
	assert.Equal(t, "name_input", input.VariableKey)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("miss")))
}

func TestFileBackedRoundTrip(t *testing.T) {
	fs, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer fs.Close()

	New(fs, Options{Namespace: "device:d1"}).Save(resolution(t, "home"))

	// A fresh cache over the same directory sees the entry
	got, ok := New(fs, Options{Namespace: "device:d1"}).Load("home")
	require.True(t, ok)
	assert.Equal(t, "intro", got.Document.Screens[0].ID)
}

func TestSaveEmptyForgets(t *testing.T) {
	c := New(storage.NewMemoryStore(), Options{})
	c.Save(resolution(t, "home"))
	c.Save(placement.NoFlow("home", placement.ReasonNoFlow))

	_, ok := c.Load("home")
	assert.False(t, ok)
}

func TestNamespacesAreIsolated(t *testing.T) {
	store := storage.NewMemoryStore()
	a := New(store, Options{Namespace: "user:a"})
	b := New(store, Options{Namespace: "user:b"})

	a.Save(resolution(t, "home"))
	a.MarkCompleted("home")

	_, ok := b.Load("home")
	assert.False(t, ok)
	assert.False(t, b.CompletionState("home").Completed)

	a.ClearAll()
	_, ok = a.Load("home")
	assert.False(t, ok)
	assert.False(t, a.CompletionState("home").Completed)
}

func TestCompletionState(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New(storage.NewMemoryStore(), Options{Now: func() time.Time { return now }})

	st := c.CompletionState("home")
	assert.False(t, st.Completed)
	assert.Empty(t, st.Responses)

	c.SaveResponse("home", "name_input", value.String("Ada"))
	c.SaveResponses("home", value.Map{"age": value.Int(36), "tags": value.Strings("a", "b")})
	c.MarkCompleted("home")

	st = c.CompletionState("home")
	assert.True(t, st.Completed)
	require.NotNil(t, st.CompletedAt)
	assert.Equal(t, now, *st.CompletedAt)
	assert.True(t, value.String("Ada").Equal(st.Responses["name_input"]))
	assert.True(t, value.Int(36).Equal(st.Responses["age"]))
	assert.True(t, value.Strings("a", "b").Equal(st.Responses["tags"]))

	// Other placements are untouched
	assert.False(t, c.CompletionState("settings").Completed)

	c.ResetCompletion("home")
	st = c.CompletionState("home")
	assert.False(t, st.Completed)
	assert.Empty(t, st.Responses)
}

func TestDisabledCacheAlwaysMisses(t *testing.T) {
	store := storage.NewMemoryStore()
	c := New(store, Options{Disabled: true})
	assert.False(t, c.Enabled())

	c.Save(resolution(t, "home"))
	c.SaveResponse("home", "k", value.String("v"))
	c.MarkCompleted("home")

	_, ok := c.Load("home")
	assert.False(t, ok)
	assert.False(t, c.CompletionState("home").Completed)
	assert.Empty(t, store.Keys())
}

func TestMaxAgeExpires(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New(storage.NewMemoryStore(), Options{
		MaxAge: time.Hour,
		Now:    func() time.Time { return now },
	})
	c.Save(resolution(t, "home"))

	_, ok := c.Load("home")
	assert.True(t, ok)

	now = now.Add(2 * time.Hour)
	_, ok = c.Load("home")
	assert.False(t, ok)
}

func TestStorageFailuresAreSwallowed(t *testing.T) {
	metrics := monitoring.NewMetrics()
	c := New(brokenStore{}, Options{Metrics: metrics})

	assert.NotPanics(t, func() {
		c.Save(resolution(t, "home"))
		c.SaveResponse("home", "k", value.String("v"))
		c.MarkCompleted("home")
		c.ResetCompletion("home")
		c.ClearAll()
	})

	_, ok := c.Load("home")
	assert.False(t, ok)
	assert.False(t, c.CompletionState("home").Completed)
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.CacheWriteFails))
}

func TestCorruptEntryIsAMiss(t *testing.T) {
	store := storage.NewMemoryStore()
	c := New(store, Options{Namespace: "user:1"})
	require.NoError(t, store.Set("user:1/flow:home", []byte("{not json")))
	require.NoError(t, store.Set("user:1/state:home", []byte("[]")))

	_, ok := c.Load("home")
	assert.False(t, ok)
	_, err := store.Get("user:1/flow:home")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	st := c.CompletionState("home")
	assert.False(t, st.Completed)
	assert.NotNil(t, st.Responses)
}

func TestOpenPersistsAcrossInstances(t *testing.T) {
	cfg := config.CacheConfig{Dir: t.TempDir()}

	first, err := Open(cfg, Options{Namespace: "user:u_1"})
	require.NoError(t, err)
	first.Save(resolution(t, "home"))
	first.MarkCompleted("home")
	require.NoError(t, first.Close())

	second, err := Open(cfg, Options{Namespace: "user:u_1"})
	require.NoError(t, err)
	defer second.Close()
	res, ok := second.Load("home")
	require.True(t, ok)
	assert.Equal(t, "f_welcome", res.FlowID)
	assert.True(t, second.CompletionState("home").Completed)
}

func TestOpenWithoutDirIsMemory(t *testing.T) {
	c, err := Open(config.CacheConfig{}, Options{})
	require.NoError(t, err)
	assert.True(t, c.Enabled())
	assert.NoError(t, c.Close())

	c, err = Open(config.CacheConfig{Dir: t.TempDir(), Disabled: true}, Options{})
	require.NoError(t, err)
	assert.False(t, c.Enabled())
}
