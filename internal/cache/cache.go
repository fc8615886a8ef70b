// Package cache keeps the last-known-good resolution and the local
// completion state for each placement.
//
// The cache is a best-effort side channel. Reads may miss and writes may
// fail; both are logged at debug, counted, and otherwise ignored so a
// broken disk never changes what the session controller does.
package cache

import (
	"errors"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/onboard/internal/domain/placement"
	"github.com/GriffinCanCode/onboard/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/onboard/internal/shared/value"
	"github.com/GriffinCanCode/onboard/internal/storage"
)

const anonymous = "anonymous"

// Options configures a Cache
type Options struct {
	// Namespace scopes every key, normally placement.Subject(user, device)
	Namespace string
	// Disabled makes every read miss and every write a no-op
	Disabled bool
	// MaxAge expires cached resolutions; zero keeps them forever
	MaxAge time.Duration

	Logger  *zap.Logger
	Metrics *monitoring.Metrics
	Now     func() time.Time
}

// CompletionState is the locally persisted progress for one placement
type CompletionState struct {
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Responses   value.Map  `json:"responses,omitempty"`
}

type entry struct {
	SavedAt    time.Time             `json:"savedAt"`
	Resolution *placement.Resolution `json:"resolution"`
}

// Cache stores resolutions and completion state in a storage.Store
type Cache struct {
	store   storage.Store
	opts    Options
	log     *zap.Logger
	metrics *monitoring.Metrics

	// serializes read-modify-write of completion records
	mu sync.Mutex
}

// New creates a cache over store
func New(store storage.Store, opts Options) *Cache {
	if opts.Namespace == "" {
		opts.Namespace = anonymous
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}
	return &Cache{
		store:   store,
		opts:    opts,
		log:     log.Named("cache").With(zap.String("namespace", opts.Namespace)),
		metrics: opts.Metrics,
	}
}

// Enabled reports whether the cache does anything
func (c *Cache) Enabled() bool { return !c.opts.Disabled }

func (c *Cache) prefix() string { return c.opts.Namespace + "/" }

func (c *Cache) flowKey(p string) string { return c.prefix() + "flow:" + p }

func (c *Cache) stateKey(p string) string { return c.prefix() + "state:" + p }

// Save stores res as the last-known-good resolution for its placement.
// An empty resolution forgets the entry instead.
func (c *Cache) Save(res *placement.Resolution) {
	if c.opts.Disabled || res == nil || res.Placement == "" {
		return
	}
	if res.Empty() {
		c.Forget(res.Placement)
		return
	}
	data, err := sonic.Marshal(entry{SavedAt: c.opts.Now().UTC(), Resolution: res})
	if err != nil {
		c.writeFailed("encode resolution", res.Placement, err)
		return
	}
	if err := c.store.Set(c.flowKey(res.Placement), data); err != nil {
		c.writeFailed("save resolution", res.Placement, err)
	}
}

// Load returns the cached resolution, marked as coming from the cache
func (c *Cache) Load(p string) (*placement.Resolution, bool) {
	if c.opts.Disabled {
		return nil, false
	}
	res, ok := c.load(p)
	c.metrics.RecordCacheLookup(ok)
	return res, ok
}

func (c *Cache) load(p string) (*placement.Resolution, bool) {
	data, err := c.store.Get(c.flowKey(p))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.log.Debug("cache read failed", zap.String("placement", p), zap.Error(err))
		}
		return nil, false
	}

	var e entry
	if err := sonic.Unmarshal(data, &e); err != nil {
		c.log.Debug("discarding unreadable cache entry", zap.String("placement", p), zap.Error(err))
		c.Forget(p)
		return nil, false
	}
	if e.Resolution.Empty() {
		return nil, false
	}
	if c.opts.MaxAge > 0 && c.opts.Now().Sub(e.SavedAt) > c.opts.MaxAge {
		c.log.Debug("cache entry expired", zap.String("placement", p), zap.Time("saved_at", e.SavedAt))
		return nil, false
	}

	res := e.Resolution
	res.Placement = p
	res.Source = placement.SourceCache
	return res, true
}

// Forget drops the cached resolution for a placement
func (c *Cache) Forget(p string) {
	if c.opts.Disabled {
		return
	}
	if err := c.store.Delete(c.flowKey(p)); err != nil {
		c.writeFailed("forget resolution", p, err)
	}
}

// ClearAll wipes every resolution and completion record in the namespace
func (c *Cache) ClearAll() {
	if c.opts.Disabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Clear(c.prefix()); err != nil {
		c.writeFailed("clear", "", err)
	}
}

// CompletionState returns the stored state, or an empty one on a miss
func (c *Cache) CompletionState(p string) CompletionState {
	if c.opts.Disabled {
		return CompletionState{Responses: value.Map{}}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readState(p)
}

// SaveResponse records one collected answer under its variable key
func (c *Cache) SaveResponse(p, key string, v value.Value) {
	if c.opts.Disabled || key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.readState(p)
	st.Responses[key] = v
	c.writeState(p, st)
}

// SaveResponses merges several answers in one write
func (c *Cache) SaveResponses(p string, responses value.Map) {
	if c.opts.Disabled || len(responses) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.readState(p)
	for k, v := range responses {
		st.Responses[k] = v
	}
	c.writeState(p, st)
}

// MarkCompleted sets the local completion flag, keeping responses
func (c *Cache) MarkCompleted(p string) {
	if c.opts.Disabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.readState(p)
	now := c.opts.Now().UTC()
	st.Completed = true
	st.CompletedAt = &now
	c.writeState(p, st)
}

// ResetCompletion clears the flag and the collected responses
func (c *Cache) ResetCompletion(p string) {
	if c.opts.Disabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Delete(c.stateKey(p)); err != nil {
		c.writeFailed("reset completion", p, err)
	}
}

func (c *Cache) readState(p string) CompletionState {
	st := CompletionState{}
	data, err := c.store.Get(c.stateKey(p))
	switch {
	case err == nil:
		if err := sonic.Unmarshal(data, &st); err != nil {
			c.log.Debug("discarding unreadable completion state", zap.String("placement", p), zap.Error(err))
			st = CompletionState{}
		}
	case !errors.Is(err, storage.ErrNotFound):
		c.log.Debug("completion state read failed", zap.String("placement", p), zap.Error(err))
	}
	if st.Responses == nil {
		st.Responses = value.Map{}
	}
	return st
}

func (c *Cache) writeState(p string, st CompletionState) {
	data, err := sonic.Marshal(st)
	if err != nil {
		c.writeFailed("encode completion state", p, err)
		return
	}
	if err := c.store.Set(c.stateKey(p), data); err != nil {
		c.writeFailed("save completion state", p, err)
	}
}

func (c *Cache) writeFailed(op, p string, err error) {
	c.metrics.IncCacheWriteFailures()
	c.log.Debug("cache write failed", zap.String("op", op), zap.String("placement", p), zap.Error(err))
}
