package webmonitor

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/alert"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/drowsiness"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/logger"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/metrics"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/overlay"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/recorder"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/session"
)

// Monitor is the dashboard's session sink. It keeps the latest status,
// renders annotated frames for viewers and the recorder, and collects the
// alert history.
//
// Frames are only rendered when someone consumes them: an MJPEG viewer, an
// active recording, or an alert snapshot.
type Monitor struct {
	cfg       Config
	recorder  *recorder.Recorder
	snapshots *recorder.Snapshotter
	metrics   *metrics.Metrics
	log       logger.Module
	render    overlay.Options

	frames *Fanout[[]byte]
	alerts *Fanout[*SerializedEvent]

	mu          sync.Mutex
	latest      DrowsinessStatus
	totalAlerts int
	history     []alert.Event
	pushers     []Pusher
	onChange    []func()
	fpsStart    time.Time
	fpsFrames   int
}

// NewMonitor creates a Monitor. rec and snaps may be nil.
func NewMonitor(cfg Config, rec *recorder.Recorder, snaps *recorder.Snapshotter, m *metrics.Metrics) *Monitor {
	cfg = cfg.withDefaults()
	if m == nil {
		m = metrics.New()
	}
	render := overlay.DefaultOptions()
	render.MaxWidth = cfg.MJPEGMaxWidth
	render.JPEGQuality = cfg.JPEGQuality

	mon := &Monitor{
		cfg:       cfg,
		recorder:  rec,
		snapshots: snaps,
		metrics:   m,
		log:       logger.For("Monitor"),
		render:    render,
		frames:    NewFanout[[]byte]("FrameBroadcaster"),
		alerts:    NewFanout[*SerializedEvent]("AlertBroadcaster"),
		latest:    idleStatus(),
	}
	mon.frames.onCount = func(n int) { m.StreamClients.Store(int64(n)) }
	return mon
}

func idleStatus() DrowsinessStatus {
	return DrowsinessStatus{
		Status: string(drowsiness.StatusSafe),
		Label:  LabelSafe,
		Phase:  drowsiness.Awake.String(),
	}
}

// AddPusher registers a message-oriented client set for alert pushes.
func (m *Monitor) AddPusher(p Pusher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushers = append(m.pushers, p)
}

// OnChange registers fn to run whenever the alert state flips.
func (m *Monitor) OnChange(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// OnFrame implements session.Sink.
func (m *Monitor) OnFrame(r *session.Report) {
	if m.update(r) {
		m.mu.Lock()
		hooks := append([]func(){}, m.onChange...)
		m.mu.Unlock()
		for _, fn := range hooks {
			fn()
		}
	}

	wantStream := m.frames.ClientCount() > 0
	wantRecord := m.recorder != nil && m.recorder.IsRecording()
	wantSnapshot := m.snapshots != nil && r.Output.AlertFired
	if !wantStream && !wantRecord && !wantSnapshot {
		return
	}
	if r.Frame == nil || r.Frame.Color == nil {
		return
	}

	src, err := r.Frame.Color.ToImage()
	if err != nil {
		m.log.Debugf("Frame %d not renderable: %v", r.Frame.Seq, err)
		return
	}
	ts := frameTime(r)
	opts := m.render
	opts.Caption = fmt.Sprintf("Frame: %d  Time: %s", r.Frame.Seq, ts.Format("2006/01/02 15:04:05"))
	rendered := overlay.Render(src, overlay.Annotation{Faces: r.Detection.Faces, Alerting: r.State.Alerting}, opts)

	if wantStream || wantRecord {
		data, err := overlay.EncodeJPEG(rendered, opts.JPEGQuality)
		if err != nil {
			m.log.Warnf("Frame %d: %v", r.Frame.Seq, err)
		} else {
			if wantStream {
				m.frames.Broadcast(data)
			}
			if wantRecord {
				m.recorder.SendFrame(data)
			}
		}
	}

	if wantSnapshot {
		go m.saveSnapshot(rendered, ts, r.State.TotalAlerts)
	}
}

func (m *Monitor) saveSnapshot(img image.Image, at time.Time, n int) {
	path, err := m.snapshots.Save(img, at, n)
	if err != nil {
		m.log.Warnf("Alert snapshot: %v", err)
		return
	}
	m.log.Infof("Alert snapshot saved: %s", path)
}

// update stores the report's status and returns whether alerting flipped.
func (m *Monitor) update(r *session.Report) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.Output.AlertFired {
		m.totalAlerts++
	}
	ts := frameTime(r)
	if m.fpsStart.IsZero() || ts.Before(m.fpsStart) {
		m.fpsStart = ts
		m.fpsFrames = 0
	}
	m.fpsFrames++
	fps := m.latest.CurrentFPS
	if elapsed := ts.Sub(m.fpsStart); elapsed >= time.Second {
		fps = float64(m.fpsFrames-1) / elapsed.Seconds()
		m.fpsStart = ts
		m.fpsFrames = 1
	}

	label := LabelSafe
	if r.State.Alerting {
		label = LabelAlert
	}
	var seq uint64
	if r.Frame != nil {
		seq = r.Frame.Seq
	}

	was := m.latest.Alerting
	m.latest = DrowsinessStatus{
		Status:           string(r.Output.Status),
		Label:            label,
		Phase:            r.Output.Phase.String(),
		Alerting:         r.State.Alerting,
		PlayAlarm:        r.State.Alerting && r.Settings.SoundEnabled,
		EyesDetected:     r.EyesDetected,
		Faces:            len(r.Detection.Faces),
		SessionAlerts:    r.State.TotalAlerts,
		TotalAlerts:      m.totalAlerts,
		ClosedForMS:      r.ClosedFor.Milliseconds(),
		FrameNumber:      seq,
		CurrentFPS:       fps,
		LastFrameSeconds: unixSeconds(ts),
	}
	return was != m.latest.Alerting
}

func frameTime(r *session.Report) time.Time {
	if r.Frame != nil && !r.Frame.Timestamp.IsZero() {
		return r.Frame.Timestamp
	}
	return time.Now()
}

// OnAlert records a dispatched alert and pushes it to live clients. It is
// registered as an alert.Listener.
func (m *Monitor) OnAlert(e alert.Event) {
	m.mu.Lock()
	m.history = append([]alert.Event{e}, m.history...)
	if len(m.history) > m.cfg.HistorySize {
		m.history = m.history[:m.cfg.HistorySize]
	}
	pushers := append([]Pusher(nil), m.pushers...)
	m.mu.Unlock()

	event, err := serializeEvent(e)
	if err != nil {
		m.log.Errorf("Serialize alert: %v", err)
		return
	}
	m.alerts.Broadcast(event)

	if len(pushers) == 0 {
		return
	}
	msg, err := encodeEnvelope(MessageAlert, e)
	if err != nil {
		m.log.Errorf("Alert envelope: %v", err)
		return
	}
	for _, p := range pushers {
		p.Broadcast(msg)
	}
}

// SessionChanged clears the live alert state when a session ends, so the
// dashboard stops sounding the alarm. Cumulative totals are kept.
func (m *Monitor) SessionChanged(info session.Info) {
	if info.Running {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	latest := idleStatus()
	latest.TotalAlerts = m.totalAlerts
	latest.FrameNumber = m.latest.FrameNumber
	m.latest = latest
	m.fpsStart = time.Time{}
}

// Snapshot returns the latest status and the alert history, newest first.
func (m *Monitor) Snapshot() (DrowsinessStatus, []alert.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	history := make([]alert.Event, len(m.history))
	copy(history, m.history)
	return m.latest, history
}

// Frames returns the MJPEG fanout.
func (m *Monitor) Frames() *Fanout[[]byte] { return m.frames }

// Alerts returns the alert event fanout.
func (m *Monitor) Alerts() *Fanout[*SerializedEvent] { return m.alerts }

// Close disconnects all frame and alert subscribers.
func (m *Monitor) Close() {
	m.frames.Close()
	m.alerts.Close()
}
