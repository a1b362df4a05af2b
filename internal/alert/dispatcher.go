package alert

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/logger"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/metrics"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/session"
)

// Publisher delivers an event to one remote log.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Listener is notified in-process of every event, before remote delivery.
type Listener func(Event)

// Dispatcher queues events and delivers them from a worker goroutine so a
// slow or unreachable backend never stalls the frame loop.
type Dispatcher struct {
	publishers []Publisher
	module     string
	timeout    time.Duration
	metrics    *metrics.Metrics
	log        logger.Module

	queue chan Event
	wg    sync.WaitGroup

	mu        sync.Mutex
	listeners []Listener
	closed    bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithQueueSize sets the number of events buffered before drops start.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Event, n)
		}
	}
}

// WithPublishTimeout bounds each Publish call.
func WithPublishTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.timeout = t }
}

// WithModuleName sets the module_name stamped on events.
func WithModuleName(name string) DispatcherOption {
	return func(d *Dispatcher) {
		if name != "" {
			d.module = name
		}
	}
}

// NewDispatcher starts the delivery worker.
func NewDispatcher(m *metrics.Metrics, publishers []Publisher, opts ...DispatcherOption) *Dispatcher {
	if m == nil {
		m = metrics.New()
	}
	d := &Dispatcher{
		publishers: publishers,
		module:     DefaultModuleName,
		timeout:    3 * time.Second,
		metrics:    m,
		log:        logger.For("Alert"),
		queue:      make(chan Event, 64),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.wg.Add(1)
	go d.run()
	return d
}

// Listen registers an in-process listener.
func (d *Dispatcher) Listen(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// OnFrame implements session.Sink and forwards alert edges only.
func (d *Dispatcher) OnFrame(r *session.Report) {
	if !r.Output.AlertFired {
		return
	}
	d.Dispatch(FromReport(d.module, r))
}

// Dispatch queues e for remote delivery without blocking, then notifies
// listeners. It reports whether the event was queued.
func (d *Dispatcher) Dispatch(e Event) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	listeners := append([]Listener(nil), d.listeners...)
	queued := false
	select {
	case d.queue <- e:
		queued = true
	default:
	}
	d.mu.Unlock()

	if queued {
		d.metrics.AlertsDispatched.Add(1)
	} else {
		d.metrics.AlertsDropped.Add(1)
		d.log.Warnf("Alert queue full, dropped %s", e.ID)
	}
	for _, l := range listeners {
		l(e)
	}
	return queued
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for e := range d.queue {
		d.deliver(e)
	}
}

func (d *Dispatcher) deliver(e Event) {
	for _, p := range d.publishers {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := p.Publish(ctx, e)
		cancel()
		if err != nil {
			d.metrics.AlertPublishErrors.Add(1)
			d.log.Warnf("Failed to log alert %s to %s: %v", e.ID, p.Name(), err)
			continue
		}
		d.log.Debugf("Alert %s logged to %s", e.ID, p.Name())
	}
}

// Close drains the queue and closes every publisher.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()

	var errs []error
	for _, p := range d.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
