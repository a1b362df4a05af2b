package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Frame loop counters
	FramesRead      atomic.Uint64
	FramesProcessed atomic.Uint64

	// Latest per-frame detection figures
	FacesDetected atomic.Uint64
	EyesDetected  atomic.Uint64

	// Error counters
	ReadErrors     atomic.Uint64
	MatcherFaults  atomic.Uint64
	SourceFailures atomic.Uint64

	// Session lifecycle
	SessionsStarted atomic.Uint64
	SessionsFailed  atomic.Uint64
	SessionActive   atomic.Uint64 // 0 = stopped, 1 = running
	AlertsTotal     atomic.Uint64
	Alerting        atomic.Uint64 // 0 = safe, 1 = alert

	ProcessLatencyMs atomic.Uint64

	// Alert forwarding
	AlertsDispatched   atomic.Uint64
	AlertsDropped      atomic.Uint64
	AlertPublishErrors atomic.Uint64

	// Client tracking
	StreamClients    atomic.Int64
	WebSocketClients atomic.Int64
	WebRTCClients    atomic.Int64

	// Recording state
	RecordingActive atomic.Uint64 // 0 = inactive, 1 = active
	RecordingBytes  atomic.Uint64
	RecordingFrames atomic.Uint64
	SnapshotsSaved  atomic.Uint64

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

type gauge struct {
	name, help string
	value      func() float64
}

func u64(v *atomic.Uint64) func() float64 { return func() float64 { return float64(v.Load()) } }
func i64(v *atomic.Int64) func() float64  { return func() float64 { return float64(v.Load()) } }

func (m *Metrics) registerPrometheusMetrics() {
	gauges := []gauge{
		{"drowsiness_frames_read_total", "Total frames read from the camera", u64(&m.FramesRead)},
		{"drowsiness_frames_processed_total", "Total frames run through detection", u64(&m.FramesProcessed)},
		{"drowsiness_faces_detected", "Faces found in the latest frame", u64(&m.FacesDetected)},
		{"drowsiness_eyes_detected", "Eyes found in the latest frame", u64(&m.EyesDetected)},
		{"drowsiness_read_errors_total", "Total camera read failures", u64(&m.ReadErrors)},
		{"drowsiness_matcher_faults_total", "Total cascade matcher faults", u64(&m.MatcherFaults)},
		{"drowsiness_source_failures_total", "Total failures to open the camera", u64(&m.SourceFailures)},
		{"drowsiness_sessions_started_total", "Total monitoring sessions started", u64(&m.SessionsStarted)},
		{"drowsiness_sessions_failed_total", "Total monitoring sessions ended by an error", u64(&m.SessionsFailed)},
		{"drowsiness_session_active", "Session running (0=stopped, 1=running)", u64(&m.SessionActive)},
		{"drowsiness_alerts_total", "Total drowsiness alerts fired", u64(&m.AlertsTotal)},
		{"drowsiness_alerting", "Alert currently active (0=safe, 1=alert)", u64(&m.Alerting)},
		{"drowsiness_process_latency_ms", "Detection latency of the latest frame in milliseconds", u64(&m.ProcessLatencyMs)},
		{"drowsiness_alerts_dispatched_total", "Alert events handed to remote publishers", u64(&m.AlertsDispatched)},
		{"drowsiness_alerts_dropped_total", "Alert events dropped because the queue was full", u64(&m.AlertsDropped)},
		{"drowsiness_alert_publish_errors_total", "Remote alert publish failures", u64(&m.AlertPublishErrors)},
		{"drowsiness_stream_clients", "Connected MJPEG and SSE clients", i64(&m.StreamClients)},
		{"drowsiness_websocket_clients", "Connected WebSocket clients", i64(&m.WebSocketClients)},
		{"drowsiness_webrtc_clients", "Connected WebRTC data channel clients", i64(&m.WebRTCClients)},
		{"drowsiness_recording_active", "Recording active (0=inactive, 1=active)", u64(&m.RecordingActive)},
		{"drowsiness_recording_bytes", "Total bytes written to recording", u64(&m.RecordingBytes)},
		{"drowsiness_recording_frames", "Total frames written to recording", u64(&m.RecordingFrames)},
		{"drowsiness_snapshots_saved_total", "Alert snapshots written to disk", u64(&m.SnapshotsSaved)},
	}
	for _, g := range gauges {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			g.value,
		))
	}
}

// UpdateProcessLatency records how long the latest frame took to process
func (m *Metrics) UpdateProcessLatency(duration time.Duration) {
	m.ProcessLatencyMs.Store(uint64(duration.Milliseconds()))
}

// SetBool stores 1 or 0.
func SetBool(v *atomic.Uint64, b bool) {
	if b {
		v.Store(1)
		return
	}
	v.Store(0)
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the private registry for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// NewServer returns an HTTP server exposing /metrics on addr
func (m *Metrics) NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
