package onboarding

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/onboard/internal/cache"
	"github.com/GriffinCanCode/onboard/internal/domain/flow"
	"github.com/GriffinCanCode/onboard/internal/domain/placement"
	"github.com/GriffinCanCode/onboard/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/onboard/internal/shared/value"
	"github.com/GriffinCanCode/onboard/internal/storage"
)

const (
	refreshTimeout = 30 * time.Second

	reasonCompletedLocally = "completed locally"
	reasonAbandoned        = "abandoned"
)

// Resolver fetches the flow assigned to a placement
type Resolver interface {
	Resolve(ctx context.Context, req placement.Request) (*placement.Resolution, error)
}

// CompletionRecorder confirms a completion with the backend
type CompletionRecorder interface {
	RecordCompletion(ctx context.Context, rec placement.Completion) error
}

// EventTracker accepts fire-and-forget analytics events. TrackEvent must
// not block.
type EventTracker interface {
	TrackEvent(ev placement.Event)
}

// Options configures a Controller
type Options struct {
	Resolver Resolver
	// Recorder and Events default to Resolver when it implements them
	Recorder CompletionRecorder
	Events   EventTracker
	// Cache defaults to an in-memory cache scoped to the subject
	Cache *cache.Cache
	// Effects receives taps the controller does not handle itself
	Effects Effects

	Policy Policy
	// RespectLocalCompletion dismisses placements already completed on
	// this device without asking the backend
	RespectLocalCompletion bool

	UserID   string
	DeviceID string

	Logger  *zap.Logger
	Metrics *monitoring.Metrics
	Now     func() time.Time
}

// Controller runs one presentation lifecycle at a time for a subject. All
// state sits behind one mutex; network calls run without it, and a
// generation counter discards results that arrive after the lifecycle
// moved on.
type Controller struct {
	resolver Resolver
	recorder CompletionRecorder
	events   EventTracker
	cache    *cache.Cache
	effects  Effects

	policy      Policy
	respectDone bool
	userID      string
	deviceID    string

	log     *zap.Logger
	metrics *monitoring.Metrics
	now     func() time.Time

	refreshes sync.WaitGroup

	mu         sync.Mutex
	state      State
	generation uint64
	placement  string
	res        *placement.Resolution
	index      int
	history    []int
	responses  value.Map
	err        error
}

// New creates an idle controller
func New(opts Options) (*Controller, error) {
	if opts.Resolver == nil {
		return nil, errors.New("resolver is required")
	}
	policy, err := ParsePolicy(string(opts.Policy))
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.UserID == "" && opts.DeviceID == "" {
		opts.DeviceID = uuid.NewString()
		log.Debug("no identity supplied, using an ephemeral device id", zap.String("device_id", opts.DeviceID))
	}
	if opts.Recorder == nil {
		opts.Recorder, _ = opts.Resolver.(CompletionRecorder)
	}
	if opts.Events == nil {
		opts.Events, _ = opts.Resolver.(EventTracker)
	}
	if opts.Cache == nil {
		opts.Cache = cache.New(storage.NewMemoryStore(), cache.Options{
			Namespace: placement.Subject(opts.UserID, opts.DeviceID),
			Logger:    log,
			Metrics:   opts.Metrics,
		})
	}
	if opts.Effects == nil {
		opts.Effects = EffectsFunc(func(context.Context, flow.TapBehavior, flow.Element) {})
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Controller{
		resolver:    opts.Resolver,
		recorder:    opts.Recorder,
		events:      opts.Events,
		cache:       opts.Cache,
		effects:     opts.Effects,
		policy:      policy,
		respectDone: opts.RespectLocalCompletion,
		userID:      opts.UserID,
		deviceID:    opts.DeviceID,
		log:         log.Named("session"),
		metrics:     opts.Metrics,
		now:         opts.Now,
	}, nil
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error behind the Failed state
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Resolution returns the resolution of the current lifecycle, if any
func (c *Controller) Resolution() *placement.Resolution {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.res
}

// Flow returns the document being presented, nil outside Presenting
func (c *Controller) Flow() *flow.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Presenting {
		return nil
	}
	return c.res.Document
}

// Screen returns the current screen, nil outside Presenting
func (c *Controller) Screen() *flow.Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Presenting {
		return nil
	}
	return c.res.Document.Screens[c.index]
}

// ScreenIndex returns the position of the current screen
func (c *Controller) ScreenIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Responses returns a copy of the collected responses
func (c *Controller) Responses() value.Map {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.responses.Clone()
}

// ShouldProceed tells the host whether to continue without blocking on a
// flow. Only an active presentation holds the user.
func (c *Controller) ShouldProceed() bool {
	return c.State() != Presenting
}

// Wait blocks until background cache refreshes finish
func (c *Controller) Wait() {
	c.refreshes.Wait()
}

// Present resolves a placement and starts presenting its flow. It is valid
// from Idle and from Failed. An empty resolution ends in Dismissed with a
// nil error; a failed one ends in Failed and returns the error so the host
// can report it and let the user in.
func (c *Controller) Present(ctx context.Context, name string, props placement.Properties) (State, error) {
	c.mu.Lock()
	if c.state != Idle && c.state != Failed {
		defer c.mu.Unlock()
		return c.state, invalid("present", c.state)
	}
	c.generation++
	gen := c.generation
	c.placement = name
	c.res = nil
	c.err = nil
	c.index = 0
	c.history = nil
	c.responses = value.Map{}
	c.transition(Resolving)
	c.mu.Unlock()

	req := placement.Request{Placement: name, UserID: c.userID, DeviceID: c.deviceID, Properties: props}
	if c.tracksCompletion() && c.respectDone && c.cache.CompletionState(name).Completed {
		return c.settle(gen, placement.NoFlow(name, reasonCompletedLocally), nil)
	}

	res, err := c.resolve(ctx, req)
	return c.settle(gen, res, err)
}

// tracksCompletion reports whether completion state and responses persist
// locally. It holds under every policy; NetworkOnly bypasses only cached
// resolutions.
func (c *Controller) tracksCompletion() bool {
	return c.cache.Enabled()
}

func (c *Controller) resolve(ctx context.Context, req placement.Request) (*placement.Resolution, error) {
	switch c.policy {
	case CacheFirst:
		if cached, ok := c.cache.Load(req.Placement); ok {
			c.refresh(ctx, req)
			return cached, nil
		}
		res, err := c.resolver.Resolve(ctx, req)
		if err == nil {
			c.cache.Save(res)
		}
		return res, err

	case NetworkFirst:
		res, err := c.resolver.Resolve(ctx, req)
		if err == nil {
			c.cache.Save(res)
			return res, nil
		}
		if cached, ok := c.cache.Load(req.Placement); ok {
			c.log.Info("backend unavailable, presenting cached flow",
				zap.String("placement", req.Placement), zap.Error(err))
			return cached, nil
		}
		return nil, err

	default:
		return c.resolver.Resolve(ctx, req)
	}
}

// refresh re-resolves in the background and writes only to the cache. The
// live presentation is never touched.
func (c *Controller) refresh(ctx context.Context, req placement.Request) {
	c.refreshes.Add(1)
	go func() {
		defer c.refreshes.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		res, err := c.resolver.Resolve(ctx, req)
		if err != nil {
			c.log.Debug("background refresh failed", zap.String("placement", req.Placement), zap.Error(err))
			return
		}
		c.cache.Save(res)
	}()
}

// settle applies a resolution outcome if the lifecycle is still current
func (c *Controller) settle(gen uint64, res *placement.Resolution, err error) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.state != Resolving {
		c.log.Debug("discarding stale resolution", zap.String("placement", c.placement))
		return c.state, ErrSuperseded
	}

	switch {
	case err != nil:
		c.err = err
		c.metrics.RecordResolution(string(placement.SourceNetwork), "failed")
		c.transition(Failed)
		c.emit(placement.EventFlowFailed, nil, value.Map{"error": value.String(err.Error())})
		return Failed, err

	case res.Empty():
		c.res = res
		c.metrics.RecordResolution(string(res.Source), "dismissed")
		c.transition(Dismissed)
		c.emit(placement.EventFlowDismissed, nil, value.Map{"reason": value.String(res.Reason)})
		return Dismissed, nil
	}

	c.res = res
	c.responses = res.Document.Defaults()
	if c.tracksCompletion() {
		for k, v := range c.cache.CompletionState(c.placement).Responses {
			c.responses[k] = v
		}
	}
	c.metrics.RecordResolution(string(res.Source), "presenting")
	c.transition(Presenting)
	c.emit(placement.EventFlowViewed, nil, value.Map{"source": value.String(string(res.Source))})
	c.enterScreen(0)
	return Presenting, nil
}

// SetResponse records a collected answer under its variable key. Writes
// are serialized, so concurrent inputs never lose updates.
func (c *Controller) SetResponse(key string, v value.Value) error {
	if key == "" {
		return errors.New("response key is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Presenting {
		return invalid("set response", c.state)
	}
	c.responses[key] = v
	if c.tracksCompletion() {
		c.cache.SaveResponse(c.placement, key, v)
	}
	return nil
}

// Complete finishes the flow: the local flag is persisted, the completion
// is recorded remotely, then flow_completed is emitted. A remote failure is
// logged and returned but the state stays Completed.
func (c *Controller) Complete(ctx context.Context) error {
	c.mu.Lock()
	job, err := c.beginComplete()
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.finishComplete(ctx, job)
}

// Skip ends the presentation without completing. The local completion
// flag is left alone so the flow may be offered again.
func (c *Controller) Skip() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.skip()
}

func (c *Controller) skip() error {
	if c.state != Presenting {
		return invalid("skip", c.state)
	}
	c.generation++
	c.transition(Skipped)
	idx := c.index
	c.emit(placement.EventFlowSkipped, &idx, nil)
	return nil
}

// Abandon ends the lifecycle from Resolving or Presenting, for example when
// the host navigates away. In-flight calls finish but their results are
// discarded.
func (c *Controller) Abandon() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Resolving && c.state != Presenting {
		return invalid("abandon", c.state)
	}
	wasPresenting := c.state == Presenting
	c.generation++
	c.transition(Dismissed)
	if wasPresenting {
		idx := c.index
		c.emit(placement.EventFlowDismissed, &idx, value.Map{"reason": value.String(reasonAbandoned)})
	}
	return nil
}

// Reset returns to Idle from any state so the controller can be reused
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.res = nil
	c.err = nil
	c.index = 0
	c.history = nil
	c.responses = nil
	c.placement = ""
	c.transition(Idle)
}

// ResetCompletion clears the local completion flag and saved responses for
// a placement so it can be presented again
func (c *Controller) ResetCompletion(name string) {
	c.cache.ResetCompletion(name)
}

type completionJob struct {
	rec placement.Completion
	ev  placement.Event
}

// beginComplete performs the locked half of completion. Caller holds mu.
func (c *Controller) beginComplete() (*completionJob, error) {
	if c.state != Presenting {
		return nil, invalid("complete", c.state)
	}
	c.generation++
	responses := c.responses.Clone()
	if c.tracksCompletion() {
		c.cache.SaveResponses(c.placement, responses)
		c.cache.MarkCompleted(c.placement)
	}
	c.transition(Completed)

	now := c.now().UTC()
	idx := c.index
	return &completionJob{
		rec: placement.Completion{
			UserID:      c.userID,
			DeviceID:    c.deviceID,
			FlowID:      c.res.FlowID,
			Placement:   c.placement,
			Linkage:     c.res.Linkage,
			Responses:   responses,
			CompletedAt: now,
		},
		ev: c.event(placement.EventFlowCompleted, &idx, value.Map{"responses": value.Int(len(responses))}),
	}, nil
}

// finishComplete performs the network half of completion without the lock
func (c *Controller) finishComplete(ctx context.Context, job *completionJob) error {
	var err error
	if c.recorder != nil {
		err = c.recorder.RecordCompletion(ctx, job.rec)
	}
	if err != nil {
		c.metrics.RecordCompletion("failed")
		c.log.Warn("completion not recorded remotely",
			zap.String("placement", job.rec.Placement),
			zap.String("flow_id", job.rec.FlowID),
			zap.Error(err))
	} else {
		c.metrics.RecordCompletion("recorded")
	}
	c.track(job.ev)
	return err
}

// transition changes state. Caller holds mu.
func (c *Controller) transition(to State) {
	from := c.state
	c.state = to
	c.metrics.RecordTransition(from.String(), to.String())
	c.log.Debug("state changed",
		zap.String("placement", c.placement),
		zap.Stringer("from", from),
		zap.Stringer("to", to))
}

// event builds an event for the current lifecycle. Caller holds mu.
func (c *Controller) event(typ placement.EventType, screen *int, meta value.Map) placement.Event {
	ev := placement.Event{
		Type:        typ,
		UserID:      c.userID,
		DeviceID:    c.deviceID,
		Placement:   c.placement,
		ScreenIndex: screen,
		Metadata:    meta,
		Timestamp:   c.now().UTC(),
	}
	if c.res != nil {
		ev.FlowID = c.res.FlowID
		ev.Linkage = c.res.Linkage
	}
	return ev
}

// emit sends an event while mu is held, which keeps per-lifecycle order
func (c *Controller) emit(typ placement.EventType, screen *int, meta value.Map) {
	c.track(c.event(typ, screen, meta))
}

func (c *Controller) track(ev placement.Event) {
	if c.events != nil {
		c.events.TrackEvent(ev)
	}
}
