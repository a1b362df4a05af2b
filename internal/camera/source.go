// Package camera defines how the monitoring loop obtains frames.
//
// A Source is opened once per session and closed on every exit path. The
// gocv-backed implementations live in internal/vision; Scripted serves
// in-memory frames for tests and dry runs.
package camera

import (
	"fmt"
	"sync"
	"time"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/pkg/types"
)

// Source yields frames one at a time.
//
// NextFrame returns types.ErrEndOfStream (possibly wrapped) when a finite
// source is exhausted, and an error wrapping types.ErrReadFailure when the
// device stops producing frames.
type Source interface {
	NextFrame() (*types.Frame, error)
	Close() error
}

// Opener acquires a Source for a camera index. Failures wrap
// types.ErrSourceUnavailable.
type Opener interface {
	Open(index int) (Source, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(index int) (Source, error)

// Open calls f.
func (f OpenerFunc) Open(index int) (Source, error) {
	return f(index)
}

// Step is one scripted NextFrame answer.
type Step struct {
	Gray  types.Image
	Color types.Renderable
	Err   error
}

// Scripted replays a fixed list of steps and then reports end of stream.
type Scripted struct {
	mu     sync.Mutex
	steps  []Step
	seq    uint64
	clock  func() time.Time
	closed int
}

// NewScripted creates a Scripted source. clock may be nil.
func NewScripted(clock func() time.Time, steps ...Step) *Scripted {
	if clock == nil {
		clock = time.Now
	}
	return &Scripted{steps: steps, clock: clock}
}

// NextFrame returns the next scripted frame or error.
func (s *Scripted) NextFrame() (*types.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed > 0 {
		return nil, fmt.Errorf("%w: source closed", types.ErrReadFailure)
	}
	if len(s.steps) == 0 {
		return nil, types.ErrEndOfStream
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	if step.Err != nil {
		return nil, step.Err
	}
	s.seq++
	return &types.Frame{Seq: s.seq, Timestamp: s.clock(), Gray: step.Gray, Color: step.Color}, nil
}

// Close records the release.
func (s *Scripted) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// CloseCount returns how many times Close was called.
func (s *Scripted) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Remaining returns the number of unconsumed steps.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}
