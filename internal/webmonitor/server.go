// Package webmonitor serves the drowsiness dashboard: the live annotated
// feed, status and alert streams, session controls and settings.
package webmonitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/logger"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/metrics"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/recorder"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/session"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/webrtc"
)

// Deps are the collaborators the dashboard drives. Recorder and WebRTC
// may be nil; their endpoints then answer 503.
type Deps struct {
	Controller *session.Controller
	Monitor    *Monitor
	Recorder   *recorder.Recorder
	WebRTC     *webrtc.Server
	Metrics    *metrics.Metrics
}

// Server serves the dashboard endpoints.
type Server struct {
	cfg        Config
	controller *session.Controller
	monitor    *Monitor
	recorder   *recorder.Recorder
	rtc        *webrtc.Server
	metrics    *metrics.Metrics
	hub        *Hub
	status     *StatusBroadcaster
	started    time.Time
}

// NewServer wires the dashboard to the controller and monitor.
func NewServer(cfg Config, deps Deps) *Server {
	cfg = cfg.withDefaults()
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	s := &Server{
		cfg:        cfg,
		controller: deps.Controller,
		monitor:    deps.Monitor,
		recorder:   deps.Recorder,
		rtc:        deps.WebRTC,
		metrics:    deps.Metrics,
		started:    time.Now(),
	}
	s.hub = NewHub(func() any { return s.statusPayload() }, deps.Metrics)

	pushers := []Pusher{s.hub}
	if s.rtc != nil {
		pushers = append(pushers, s.rtc)
	}
	s.status = NewStatusBroadcaster(s.statusPayload, cfg.StatusInterval, pushers...)
	for _, p := range pushers {
		s.monitor.AddPusher(p)
	}

	s.monitor.OnChange(s.status.Poke)
	s.controller.OnChange(func(info session.Info) {
		s.monitor.SessionChanged(info)
		s.status.Poke()
	})
	return s
}

// Start launches the status broadcaster.
func (s *Server) Start() {
	s.status.Start()
}

// Close disconnects streaming clients.
func (s *Server) Close() {
	s.status.Stop()
	s.hub.Close()
}

// Handler exposes the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/assets/", http.StripPrefix("/assets/", newAssetHandler(s.cfg.AssetsDir)))
	mux.HandleFunc("/stream", s.handleStream)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/status/stream", s.handleStatusStream)
	mux.HandleFunc("/api/alerts/stream", s.handleAlertsStream)
	mux.Handle("/ws", s.hub)
	mux.HandleFunc("/api/session/start", s.handleSessionStart)
	mux.HandleFunc("/api/session/stop", s.handleSessionStop)
	mux.HandleFunc("/api/session/reset", s.handleSessionReset)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/recording/start", s.handleRecordingStart)
	mux.HandleFunc("/api/recording/stop", s.handleRecordingStop)
	mux.HandleFunc("/api/recording/status", s.handleRecordingStatus)
	mux.HandleFunc("/api/webrtc/offer", s.handleWebRTCOffer)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.Handle("/metrics", s.metrics.Handler())

	return mux
}

func (s *Server) statusPayload() StatusPayload {
	drowsy, history := s.monitor.Snapshot()
	return StatusPayload{
		Session:      s.controller.Info(),
		Drowsiness:   drowsy,
		Settings:     settingsPayload(s.controller.Settings()),
		AlertHistory: history,
		Clients: ClientCounts{
			MJPEG:     int(s.metrics.StreamClients.Load()),
			WebSocket: int(s.metrics.WebSocketClients.Load()),
			WebRTC:    int(s.metrics.WebRTCClients.Load()),
		},
		Timestamp: unixSeconds(time.Now()),
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id, frameCh := s.monitor.Frames().Subscribe()
	defer s.monitor.Frames().Unsubscribe(id)
	streamMJPEGFromChannel(r.Context(), w, frameCh, 5*time.Second)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.statusPayload())
}

func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	id, eventCh := s.status.Subscribe()
	defer s.status.Unsubscribe(id)

	initial, err := serializeEvent(s.statusPayload())
	if err != nil {
		logger.Error("SSE", "Initial status: %v", err)
	}
	streamEventsFromChannel(r.Context(), w, eventCh, wantsProtobuf(r), initial)
}

func (s *Server) handleAlertsStream(w http.ResponseWriter, r *http.Request) {
	id, eventCh := s.monitor.Alerts().Subscribe()
	defer s.monitor.Alerts().Unsubscribe(id)
	streamEventsFromChannel(r.Context(), w, eventCh, wantsProtobuf(r), nil)
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if err := s.controller.Start(); err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, session.ErrAlreadyRunning):
			status = http.StatusConflict
		case errors.Is(err, session.ErrClosed):
			status = http.StatusServiceUnavailable
		}
		writeError(w, err, status)
		return
	}
	writeJSON(w, map[string]any{"status": "started", "session": s.controller.Info()})
}

func (s *Server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	s.controller.Stop()
	writeJSON(w, map[string]any{"status": "stopped", "session": s.controller.Info()})
}

func (s *Server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	s.controller.Reset()
	writeJSON(w, map[string]any{"status": "reset", "session": s.controller.Info()})
}

// settingsUpdate allows partial updates: absent fields keep their value.
type settingsUpdate struct {
	Threshold    *float64 `json:"threshold_seconds"`
	Sensitivity  *int     `json:"eye_sensitivity"`
	CameraIndex  *int     `json:"camera_index"`
	SoundEnabled *bool    `json:"sound_enabled"`
}

func (u settingsUpdate) apply(p SettingsPayload) SettingsPayload {
	if u.Threshold != nil {
		p.Threshold = *u.Threshold
	}
	if u.Sensitivity != nil {
		p.Sensitivity = *u.Sensitivity
	}
	if u.CameraIndex != nil {
		p.CameraIndex = *u.CameraIndex
	}
	if u.SoundEnabled != nil {
		p.SoundEnabled = *u.SoundEnabled
	}
	return p
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, settingsPayload(s.controller.Settings()))
	case http.MethodPost:
		var update settingsUpdate
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&update); err != nil {
			writeError(w, fmt.Errorf("invalid settings: %w", err), http.StatusBadRequest)
			return
		}
		next := update.apply(settingsPayload(s.controller.Settings()))
		settings, err := next.Settings()
		if err == nil {
			err = s.controller.UpdateSettings(settings)
		}
		if err != nil {
			writeError(w, err, http.StatusBadRequest)
			return
		}
		s.status.Poke()
		writeJSON(w, map[string]any{
			"settings":     settingsPayload(s.controller.Settings()),
			"next_session": s.controller.Running(),
		})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleRecordingStart(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) || !s.recordingAvailable(w) {
		return
	}

	filename, err := s.recorder.Start()
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{
		"status":     "recording",
		"file":       filename,
		"started_at": unixSeconds(time.Now()),
	})
}

func (s *Server) handleRecordingStop(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) || !s.recordingAvailable(w) {
		return
	}

	filename, err := s.recorder.Stop()
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{
		"status":     "stopped",
		"file":       filename,
		"stats":      s.recorder.GetStatus(),
		"stopped_at": unixSeconds(time.Now()),
	})
}

func (s *Server) handleRecordingStatus(w http.ResponseWriter, r *http.Request) {
	if !s.recordingAvailable(w) {
		return
	}
	writeJSON(w, s.recorder.GetStatus())
}

func (s *Server) recordingAvailable(w http.ResponseWriter) bool {
	if s.recorder == nil {
		writeError(w, errors.New("recording is not configured"), http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (s *Server) handleWebRTCOffer(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if s.rtc == nil {
		writeError(w, errors.New("webrtc is not configured"), http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, errors.New("invalid offer data"), http.StatusBadRequest)
		return
	}

	answer, err := s.rtc.HandleOffer(body)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, webrtc.ErrTooManyClients) {
			status = http.StatusServiceUnavailable
		}
		logger.Warn("WebRTC", "Offer rejected: %v", err)
		writeError(w, err, status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(answer)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := s.controller.Info()
	writeJSON(w, map[string]any{
		"status":          "ok",
		"session_running": info.Running,
		"last_error":      info.LastError,
		"uptime_seconds":  time.Since(s.started).Seconds(),
	})
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error, status int) {
	writeJSONWithStatus(w, map[string]any{"error": err.Error()}, status)
}

func writeJSON(w http.ResponseWriter, payload any) {
	writeJSONWithStatus(w, payload, http.StatusOK)
}

func writeJSONWithStatus(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":"%s"}`, err.Error())
	}
}
