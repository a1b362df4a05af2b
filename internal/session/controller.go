package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/logger"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/metrics"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/pkg/types"
)

// ErrAlreadyRunning is returned by Start while a session is active.
var ErrAlreadyRunning = errors.New("session already running")

// ErrClosed is returned once the controller has been closed.
var ErrClosed = errors.New("session controller closed")

// Info is a point-in-time view of the controller.
type Info struct {
	Running       bool      `json:"running"`
	SessionID     string    `json:"session_id,omitempty"`
	StartedAt     time.Time `json:"started_at,omitzero"`
	Sessions      int       `json:"sessions"`
	Frames        uint64    `json:"last_frames"`
	LastEnd       EndReason `json:"last_end,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	LastErrorKind string    `json:"last_error_kind,omitempty"`
}

// Controller owns the lifecycle of monitoring sessions for the dashboard:
// at most one session runs at a time.
type Controller struct {
	runner *Runner
	m      *metrics.Metrics
	log    logger.Module

	mu       sync.Mutex
	settings Settings
	opts     Options
	cancel   context.CancelFunc
	done     chan struct{}
	info     Info
	closed   bool
	hooks    []func(Info)
}

// NewController creates a stopped controller.
func NewController(runner *Runner, settings Settings, opts Options) *Controller {
	return &Controller{
		runner:   runner,
		m:        runner.metrics,
		log:      logger.For("Controller"),
		settings: settings,
		opts:     opts,
	}
}

// OnChange registers a hook called after every lifecycle transition.
// Hooks run without the controller lock held.
func (c *Controller) OnChange(fn func(Info)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// Start launches a session with the current settings.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.cancel != nil {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	if err := c.settings.Validate(); err != nil {
		c.mu.Unlock()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.info.Running = true
	c.info.LastError = ""
	c.info.LastErrorKind = ""
	metrics.SetBool(&c.m.SessionActive, true)
	c.mu.Unlock()

	go c.loop(ctx, cancel, done)
	return nil
}

func (c *Controller) loop(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	defer cancel()

	for {
		c.mu.Lock()
		settings, opts := c.settings, c.opts
		id := uuid.NewString()
		c.info.SessionID = id
		c.info.StartedAt = time.Now()
		c.info.Sessions++
		c.mu.Unlock()
		c.notify()

		summary := c.runner.Run(ctx, id, settings, opts)

		c.mu.Lock()
		c.info.Frames = summary.Frames
		c.info.LastEnd = summary.Reason
		if summary.Err != nil {
			c.info.LastError = summary.Err.Error()
			c.info.LastErrorKind = types.FailureKind(summary.Err)
		}
		restart := summary.Reason == EndExhausted && opts.RestartOnExhaustion && ctx.Err() == nil
		if !restart {
			c.markStoppedLocked()
		}
		c.mu.Unlock()

		if !restart {
			c.notify()
			return
		}

		c.log.Infof("Restarting after %d frames", summary.Frames)
		select {
		case <-ctx.Done():
		case <-time.After(opts.RestartDelay):
		}

		// Stopped during the restart pause: do not reopen the camera.
		if ctx.Err() != nil {
			c.mu.Lock()
			c.info.LastEnd = EndStopped
			c.markStoppedLocked()
			c.mu.Unlock()
			c.notify()
			return
		}
	}
}

func (c *Controller) markStoppedLocked() {
	c.info.Running = false
	c.cancel = nil
	metrics.SetBool(&c.m.SessionActive, false)
	metrics.SetBool(&c.m.Alerting, false)
}

// Stop ends the running session and waits until the camera is released.
// Stopping an idle controller is a no-op.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Reset stops any session, waits for the device to settle and clears the
// last error. The next Start opens the camera afresh.
func (c *Controller) Reset() {
	c.Stop()
	c.mu.Lock()
	delay := c.opts.ResetDelay
	c.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	c.mu.Lock()
	c.info.LastError = ""
	c.info.LastErrorKind = ""
	c.info.LastEnd = ""
	c.mu.Unlock()
	c.log.Infof("Camera reset")
	c.notify()
}

// Running reports whether a session is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info.Running
}

// Info returns the current lifecycle view.
func (c *Controller) Info() Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// Settings returns the settings the next session will use.
func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// UpdateSettings validates and stores s for the next session.
func (c *Controller) UpdateSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.settings = s
	running := c.info.Running
	c.mu.Unlock()
	if running {
		c.log.Infof("Settings updated; they apply to the next session")
	}
	return nil
}

// Wait blocks until the current session loop exits or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops any session and refuses further starts.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.Stop()
}

func (c *Controller) notify() {
	c.mu.Lock()
	info := c.info
	hooks := slices.Clone(c.hooks)
	c.mu.Unlock()
	for _, fn := range hooks {
		fn(info)
	}
}
