package onboarding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/onboard/internal/domain/flow"
	"github.com/GriffinCanCode/onboard/internal/domain/placement"
	"github.com/GriffinCanCode/onboard/internal/shared/value"
)

// Effects performs tap behaviors the controller does not own: haptics,
// visual bumps, opening links and any kind the host registered itself.
// It is called without the controller lock held.
type Effects interface {
	Perform(ctx context.Context, b flow.TapBehavior, el flow.Element)
}

// EffectsFunc adapts a function to Effects
type EffectsFunc func(ctx context.Context, b flow.TapBehavior, el flow.Element)

// Perform calls f
func (f EffectsFunc) Perform(ctx context.Context, b flow.TapBehavior, el flow.Element) {
	f(ctx, b, el)
}

// Next advances from the current screen: the first matching route wins,
// otherwise the following screen. Advancing past the last screen completes
// the flow.
func (c *Controller) Next(ctx context.Context) (State, error) {
	c.mu.Lock()
	job, err := c.next()
	state := c.state
	c.mu.Unlock()
	if err != nil {
		return state, err
	}
	if job != nil {
		return state, c.finishComplete(ctx, job)
	}
	return state, nil
}

// Back returns to the previously shown screen
func (c *Controller) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.back()
}

// GoTo jumps to the screen with the given id
func (c *Controller) GoTo(screenID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goTo(screenID)
}

// Tap fires every behavior of an element on the current screen, in
// declaration order. Navigation is applied here; other behaviors go to
// Effects with the lock released, so an effect sees the screen as left by
// the behaviors declared before it.
func (c *Controller) Tap(ctx context.Context, elementID string) (State, error) {
	c.mu.Lock()
	if c.state != Presenting {
		defer c.mu.Unlock()
		return c.state, invalid("tap", c.state)
	}
	el, ok := c.currentScreen().Find(elementID)
	if !ok {
		defer c.mu.Unlock()
		return c.state, fmt.Errorf("%w: %s", ErrUnknownElement, elementID)
	}

	gen := c.generation
	var job *completionJob
	for _, b := range el.Attrs().TapBehaviors {
		if !b.Kind.IsNavigation() {
			c.mu.Unlock()
			c.effects.Perform(ctx, b, el)
			c.mu.Lock()
			continue
		}
		if c.generation != gen || c.state != Presenting {
			// An earlier behavior or another caller already ended the flow.
			continue
		}
		var err error
		switch b.Kind {
		case flow.BehaviorNavigate:
			err = c.goTo(b.Target)
		case flow.BehaviorNext:
			job, err = c.next()
		case flow.BehaviorBack:
			err = c.back()
		case flow.BehaviorComplete:
			job, err = c.beginComplete()
		case flow.BehaviorSkip:
			err = c.skip()
		}
		gen = c.generation
		if err != nil {
			c.log.Debug("tap behavior ignored",
				zap.String("element", elementID),
				zap.String("behavior", string(b.Kind)),
				zap.Error(err))
		}
	}
	state := c.state
	c.mu.Unlock()

	if job != nil {
		return state, c.finishComplete(ctx, job)
	}
	return state, nil
}

func (c *Controller) currentScreen() *flow.Screen {
	return c.res.Document.Screens[c.index]
}

// next moves forward. Caller holds mu. A non-nil job means the flow
// completed and the remote half is still pending.
func (c *Controller) next() (*completionJob, error) {
	if c.state != Presenting {
		return nil, invalid("advance", c.state)
	}
	doc := c.res.Document
	if target, ok := c.currentScreen().NextRoute(c.responses); ok {
		if idx := doc.ScreenIndex(target); idx >= 0 {
			c.push(idx)
			return nil, nil
		}
		c.log.Warn("route targets a missing screen, continuing linearly",
			zap.String("placement", c.placement),
			zap.String("target", target))
	}
	if c.index+1 >= len(doc.Screens) {
		return c.beginComplete()
	}
	c.push(c.index + 1)
	return nil, nil
}

func (c *Controller) back() error {
	if c.state != Presenting {
		return invalid("go back", c.state)
	}
	if len(c.history) == 0 {
		return ErrAtFirstScreen
	}
	prev := c.history[len(c.history)-1]
	c.history = c.history[:len(c.history)-1]
	c.enterScreen(prev)
	return nil
}

func (c *Controller) goTo(screenID string) error {
	if c.state != Presenting {
		return invalid("navigate", c.state)
	}
	idx := c.res.Document.ScreenIndex(screenID)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownScreen, screenID)
	}
	c.push(idx)
	return nil
}

func (c *Controller) push(idx int) {
	c.history = append(c.history, c.index)
	c.enterScreen(idx)
}

// enterScreen makes idx current and emits screen_viewed. Caller holds mu.
func (c *Controller) enterScreen(idx int) {
	c.index = idx
	screen := c.res.Document.Screens[idx]
	c.emit(placement.EventScreenViewed, &idx, value.Map{"screenId": value.String(screen.ID)})
}
