package client

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/onboard/internal/domain/placement"
	"github.com/GriffinCanCode/onboard/internal/infrastructure/monitoring"
)

const (
	defaultQueueSize = 256
	sendTimeout      = 10 * time.Second
)

// dispatcher delivers events from a buffered queue with a single worker,
// so events leave in the order they were queued.
type dispatcher struct {
	queue   chan placement.Event
	send    func(context.Context, placement.Event) error
	log     *zap.Logger
	metrics *monitoring.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

func newDispatcher(size int, send func(context.Context, placement.Event) error, log *zap.Logger, metrics *monitoring.Metrics) *dispatcher {
	if size <= 0 {
		size = defaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &dispatcher{
		queue:   make(chan placement.Event, size),
		send:    send,
		log:     log.Named("events"),
		metrics: metrics,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) enqueue(ev placement.Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(ev, "dispatcher closed")
		return false
	}
	select {
	case d.queue <- ev:
		return true
	default:
		d.drop(ev, "queue full")
		return false
	}
}

func (d *dispatcher) drop(ev placement.Event, reason string) {
	d.metrics.IncEventsDropped()
	d.log.Debug("event dropped", zap.String("event", string(ev.Type)), zap.String("reason", reason))
}

func (d *dispatcher) run() {
	defer close(d.done)
	for ev := range d.queue {
		ctx, cancel := context.WithTimeout(d.ctx, sendTimeout)
		err := d.send(ctx, ev)
		cancel()
		if err != nil {
			d.metrics.IncEventsFailed()
			d.log.Warn("event delivery failed",
				zap.String("event", string(ev.Type)),
				zap.String("placement", ev.Placement),
				zap.Error(err))
			continue
		}
		d.metrics.IncEventsSent()
	}
}

// close stops intake and waits for the queue to drain. If ctx ends first
// the in-flight and remaining sends are cancelled.
func (d *dispatcher) close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-d.done
		return ctx.Err()
	}
}
