package devserver

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/onboard/internal/domain/placement"
	"github.com/GriffinCanCode/onboard/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/onboard/internal/shared/utils"
)

const (
	// Buckets is the assignment resolution: holdout percentages map onto
	// hundredths of a percent.
	Buckets = 10000

	ReasonCompleted = "already completed"

	defaultEventBuffer = 1000
)

// ErrUnknownPlacement is returned when no campaign targets a placement
var ErrUnknownPlacement = errors.New("placement not found")

// Assignment is the outcome of bucketing a subject into a campaign
type Assignment struct {
	Campaign *Campaign
	Variant  *Variant
	Control  bool
}

// Options configures a Backend
type Options struct {
	// EventBuffer bounds the events kept for inspection
	EventBuffer int
	Logger      *zap.Logger
	Metrics     *monitoring.Metrics
	// Draw returns a uniform value in [0, n) for non-sticky campaigns
	Draw func(n uint32) uint32
	Now  func() time.Time
}

// Backend is an in-memory implementation of the resolution contract
type Backend struct {
	catalog *Catalog
	flows   Flows
	hasher  *utils.Hasher
	log     *zap.Logger
	metrics *monitoring.Metrics
	draw    func(n uint32) uint32
	now     func() time.Time

	mu          sync.RWMutex
	completions map[string]placement.Completion
	events      []placement.Event
	eventCap    int
}

// New creates a backend over a validated catalog
func New(catalog *Catalog, flows Flows, opts Options) (*Backend, error) {
	if catalog == nil {
		catalog = &Catalog{}
	}
	if err := catalog.Validate(flows); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Draw == nil {
		opts.Draw = rand.Uint32N
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	return &Backend{
		catalog:     catalog,
		flows:       flows,
		hasher:      utils.DefaultHasher(),
		log:         opts.Logger.Named("devserver"),
		metrics:     opts.Metrics,
		draw:        opts.Draw,
		now:         opts.Now,
		completions: make(map[string]placement.Completion),
		eventCap:    opts.EventBuffer,
	}, nil
}

// Resolve answers which flow a placement shows. The body mirrors the
// production backend: a flow configuration, a control marker or a message
// explaining why nothing is shown.
func (b *Backend) Resolve(req placement.Request) (map[string]any, error) {
	campaigns := b.catalog.ForPlacement(req.Placement)
	if len(campaigns) == 0 {
		return nil, ErrUnknownPlacement
	}
	subject := req.Subject()

	b.mu.RLock()
	_, done := b.completions[completionKey(subject, req.Placement)]
	b.mu.RUnlock()
	if done {
		return map[string]any{"flowId": nil, "message": ReasonCompleted}, nil
	}

	for _, c := range campaigns {
		if !c.Matches(req.Properties) {
			continue
		}
		a := b.Assign(c, subject)
		if a.Control {
			b.metrics.RecordAssignment(c.ID, "control")
			return map[string]any{
				"flowId":      nil,
				"placementId": c.Placement,
				"campaignId":  c.ID,
				"isControl":   true,
				"isSticky":    c.Sticky,
				"message":     placement.ReasonControl,
			}, nil
		}
		f := b.flows[a.Variant.Flow]
		b.metrics.RecordAssignment(c.ID, a.Variant.ID)
		b.log.Debug("assigned",
			zap.String("placement", req.Placement),
			zap.String("campaign", c.ID),
			zap.String("variant", a.Variant.ID),
			zap.String("subject", subject))
		return map[string]any{
			"flowId":      f.ID,
			"flowName":    f.Name,
			"placementId": c.Placement,
			"campaignId":  c.ID,
			"variantId":   a.Variant.ID,
			"isSticky":    c.Sticky,
			"config":      f.Config,
		}, nil
	}
	return map[string]any{"flowId": nil, "message": placement.ReasonNoFlow}, nil
}

// Assign buckets a subject. Sticky campaigns hash the campaign and subject
// so repeated calls agree; others draw at random. The holdout is carved from
// the bottom of the range before variants are weighed.
func (b *Backend) Assign(c *Campaign, subject string) Assignment {
	var slot uint32
	if c.Sticky {
		slot = b.hasher.Bucket(Buckets, c.ID, subject)
	} else {
		slot = b.draw(Buckets)
	}
	if slot < uint32(c.HoldoutPercent*Buckets/100) {
		return Assignment{Campaign: c, Control: true}
	}

	total := uint32(c.totalWeight())
	var pick uint32
	if c.Sticky {
		pick = b.hasher.Bucket(total, c.ID, "variant", subject)
	} else {
		pick = b.draw(total)
	}
	for i := range c.Variants {
		v := &c.Variants[i]
		if v.Weight <= 0 {
			continue
		}
		if pick < uint32(v.Weight) {
			return Assignment{Campaign: c, Variant: v}
		}
		pick -= uint32(v.Weight)
	}
	// Unreachable with a validated catalog
	return Assignment{Campaign: c, Variant: &c.Variants[len(c.Variants)-1]}
}

// RecordCompletion stores a completion so later resolves for the subject
// and placement come back empty
func (b *Backend) RecordCompletion(rec placement.Completion) {
	subject := placement.Subject(rec.UserID, rec.DeviceID)
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = b.now().UTC()
	}
	b.mu.Lock()
	b.completions[completionKey(subject, rec.Placement)] = rec
	b.mu.Unlock()
	b.log.Info("completion recorded",
		zap.String("subject", subject),
		zap.String("placement", rec.Placement),
		zap.String("flow_id", rec.FlowID),
		zap.Int("responses", len(rec.Responses)))
}

// Completion returns the stored completion for a subject and placement
func (b *Backend) Completion(subject, name string) (placement.Completion, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.completions[completionKey(subject, name)]
	return rec, ok
}

// ResetCompletion forgets a stored completion
func (b *Backend) ResetCompletion(subject, name string) {
	b.mu.Lock()
	delete(b.completions, completionKey(subject, name))
	b.mu.Unlock()
}

// TrackEvent keeps the most recent events
func (b *Backend) TrackEvent(ev placement.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) >= b.eventCap {
		copy(b.events, b.events[1:])
		b.events = b.events[:len(b.events)-1]
	}
	b.events = append(b.events, ev)
}

// Events returns a copy of the buffered events, oldest first
func (b *Backend) Events() []placement.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]placement.Event(nil), b.events...)
}

// Stats summarizes the backend for the health endpoint
func (b *Backend) Stats() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return map[string]int{
		"campaigns":   len(b.catalog.Campaigns),
		"flows":       len(b.flows),
		"completions": len(b.completions),
		"events":      len(b.events),
	}
}

func completionKey(subject, name string) string {
	return subject + "|" + name
}
