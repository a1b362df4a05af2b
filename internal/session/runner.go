// Package session runs the frame polling loop: acquire a frame, detect
// faces and eyes, step the drowsiness machine, report to the sinks.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/camera"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/detector"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/drowsiness"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/logger"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/metrics"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/pkg/types"
)

// FrameDetector turns a grayscale frame into a detection result.
type FrameDetector interface {
	Detect(gray types.Image) (detector.Result, error)
}

// DetectorFactory builds a detector for one session's sensitivity.
type DetectorFactory func(sensitivity int) (FrameDetector, error)

// Report is what the loop hands to sinks for every processed frame.
// Frame is closed as soon as OnFrame returns; sinks must copy what they keep.
type Report struct {
	SessionID    string
	Frame        *types.Frame
	Detection    detector.Result
	Output       drowsiness.Output
	State        drowsiness.State
	EyesDetected int
	ClosedFor    time.Duration
	Settings     Settings
}

// Sink consumes per-frame reports. It runs on the loop goroutine and must
// not block.
type Sink interface {
	OnFrame(r *Report)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(r *Report)

// OnFrame calls f.
func (f SinkFunc) OnFrame(r *Report) { f(r) }

// MultiSink fans a report out in order.
type MultiSink []Sink

// OnFrame forwards r to every non-nil sink.
func (m MultiSink) OnFrame(r *Report) {
	for _, s := range m {
		if s != nil {
			s.OnFrame(r)
		}
	}
}

// EndReason says why a session stopped.
type EndReason string

const (
	EndStopped     EndReason = "stopped"
	EndExhausted   EndReason = "max_frames"
	EndEndOfStream EndReason = "end_of_stream"
	EndFailed      EndReason = "failed"
)

// Summary describes a finished session.
type Summary struct {
	ID          string
	Reason      EndReason
	Err         error
	Frames      uint64
	TotalAlerts int
	StartedAt   time.Time
	EndedAt     time.Time
}

// Runner executes sessions. It holds no per-session state, so one Runner
// can run sessions back to back.
type Runner struct {
	opener      camera.Opener
	newDetector DetectorFactory
	sink        Sink
	metrics     *metrics.Metrics
	clock       func() time.Time
	log         logger.Module
}

// NewRunner wires a runner. sink and m may be nil.
func NewRunner(opener camera.Opener, newDetector DetectorFactory, sink Sink, m *metrics.Metrics) *Runner {
	if m == nil {
		m = metrics.New()
	}
	return &Runner{
		opener:      opener,
		newDetector: newDetector,
		sink:        sink,
		metrics:     m,
		clock:       time.Now,
		log:         logger.For("Session"),
	}
}

// Run executes one session until ctx is cancelled, the frame budget is
// spent, the source ends, or a failure occurs. The camera is released
// before Run returns on every path.
func (r *Runner) Run(ctx context.Context, id string, settings Settings, opts Options) (summary Summary) {
	summary = Summary{ID: id, StartedAt: r.clock()}
	defer func() { summary.EndedAt = r.clock() }()

	fail := func(err error) Summary {
		summary.Reason = EndFailed
		summary.Err = err
		r.metrics.SessionsFailed.Add(1)
		r.log.Errorf("Session %s failed: %v", shortID(id), err)
		return summary
	}

	if err := settings.Validate(); err != nil {
		return fail(err)
	}

	det, err := r.newDetector(settings.Sensitivity)
	if err != nil {
		if !errors.Is(err, types.ErrMatcherFault) {
			err = fmt.Errorf("%w: %w", types.ErrMatcherFault, err)
		}
		return fail(err)
	}

	src, err := r.opener.Open(settings.CameraIndex)
	if err != nil {
		r.metrics.SourceFailures.Add(1)
		if !errors.Is(err, types.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", types.ErrSourceUnavailable, err)
		}
		return fail(err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			r.log.Warnf("Camera release for session %s: %v", shortID(id), cerr)
		}
	}()
	defer func() {
		if p := recover(); p != nil {
			summary = fail(fmt.Errorf("session loop panic: %v", p))
		}
	}()

	r.metrics.SessionsStarted.Add(1)
	r.log.Infof("Session %s started (camera=%d threshold=%.1fs sensitivity=%d max_frames=%d)",
		shortID(id), settings.CameraIndex, settings.ThresholdSeconds(), settings.Sensitivity, opts.MaxFrames)

	var state drowsiness.State
	for opts.MaxFrames <= 0 || summary.Frames < uint64(opts.MaxFrames) {
		if ctx.Err() != nil {
			summary.Reason = EndStopped
			r.log.Infof("Session %s stopped after %d frames", shortID(id), summary.Frames)
			return summary
		}

		frame, err := src.NextFrame()
		if err != nil {
			if errors.Is(err, types.ErrEndOfStream) {
				summary.Reason = EndEndOfStream
				r.log.Infof("Session %s reached end of stream after %d frames", shortID(id), summary.Frames)
				return summary
			}
			r.metrics.ReadErrors.Add(1)
			if !errors.Is(err, types.ErrReadFailure) {
				err = fmt.Errorf("%w: %w", types.ErrReadFailure, err)
			}
			return fail(err)
		}
		r.metrics.FramesRead.Add(1)
		summary.Frames++

		state, err = r.processAndRelease(id, det, frame, state, settings)
		summary.TotalAlerts = state.TotalAlerts
		if err != nil {
			r.metrics.MatcherFaults.Add(1)
			return fail(err)
		}

		if opts.FrameDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(opts.FrameDelay):
			}
		}
	}

	summary.Reason = EndExhausted
	r.log.Infof("Session %s reached max frames (%d)", shortID(id), opts.MaxFrames)
	return summary
}

// processAndRelease runs process and closes frame even if a sink panics.
func (r *Runner) processAndRelease(id string, det FrameDetector, frame *types.Frame, state drowsiness.State, settings Settings) (drowsiness.State, error) {
	defer func() {
		if cerr := frame.Close(); cerr != nil {
			r.log.Debugf("Frame %d release: %v", frame.Seq, cerr)
		}
	}()
	return r.process(id, det, frame, state, settings)
}

func (r *Runner) process(id string, det FrameDetector, frame *types.Frame, state drowsiness.State, settings Settings) (drowsiness.State, error) {
	start := time.Now()
	result, err := det.Detect(frame.Gray)
	if err != nil {
		if !errors.Is(err, types.ErrMatcherFault) {
			err = fmt.Errorf("%w: %w", types.ErrMatcherFault, err)
		}
		return state, err
	}
	r.metrics.UpdateProcessLatency(time.Since(start))
	r.metrics.FramesProcessed.Add(1)

	now := frame.Timestamp
	if now.IsZero() {
		now = r.clock()
	}
	state, out := drowsiness.Step(state, result.EyesOpen(), now, settings.Threshold)

	eyes := result.EyesDetected()
	r.metrics.FacesDetected.Store(uint64(len(result.Faces)))
	r.metrics.EyesDetected.Store(uint64(eyes))
	metrics.SetBool(&r.metrics.Alerting, state.Alerting)
	if out.AlertFired {
		r.metrics.AlertsTotal.Add(1)
		r.log.Warnf("Drowsiness alert #%d in session %s (eyes closed %.1fs)",
			state.TotalAlerts, shortID(id), state.ClosedFor(now).Seconds())
	}

	if r.sink != nil {
		r.sink.OnFrame(&Report{
			SessionID:    id,
			Frame:        frame,
			Detection:    result,
			Output:       out,
			State:        state,
			EyesDetected: eyes,
			ClosedFor:    state.ClosedFor(now),
			Settings:     settings,
		})
	}
	return state, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
