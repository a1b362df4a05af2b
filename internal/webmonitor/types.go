package webmonitor

import (
	"time"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/alert"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/session"
)

// Message types pushed over WebSocket and WebRTC.
const (
	MessageWelcome = "WELCOME"
	MessageStatus  = "STATUS"
	MessageAlert   = "ALERT"
	MessagePing    = "PING"
	MessagePong    = "PONG"
)

// Labels shown in the status box.
const (
	LabelSafe  = "👁️ Eyes Open - SAFE"
	LabelAlert = "🚨 DROWSINESS ALERT!"
)

// Pusher is a message-oriented client set: the WebSocket hub and the
// WebRTC data channel server both satisfy it.
type Pusher interface {
	Broadcast(msg []byte)
	GetClientCount() int
}

// DrowsinessStatus is the latest per-frame view.
type DrowsinessStatus struct {
	Status           string  `json:"status"`
	Label            string  `json:"label"`
	Phase            string  `json:"phase"`
	Alerting         bool    `json:"alerting"`
	PlayAlarm        bool    `json:"play_alarm"`
	EyesDetected     int     `json:"eyes_detected"`
	Faces            int     `json:"faces"`
	SessionAlerts    int     `json:"session_alerts"`
	TotalAlerts      int     `json:"total_alerts"`
	ClosedForMS      int64   `json:"closed_for_ms"`
	FrameNumber      uint64  `json:"frame_number"`
	CurrentFPS       float64 `json:"current_fps"`
	LastFrameSeconds float64 `json:"last_frame_at"`
}

// SettingsPayload is the wire form of session.Settings.
type SettingsPayload struct {
	Threshold    float64 `json:"threshold_seconds"`
	Sensitivity  int     `json:"eye_sensitivity"`
	CameraIndex  int     `json:"camera_index"`
	SoundEnabled bool    `json:"sound_enabled"`
}

func settingsPayload(s session.Settings) SettingsPayload {
	return SettingsPayload{
		Threshold:    s.ThresholdSeconds(),
		Sensitivity:  s.Sensitivity,
		CameraIndex:  s.CameraIndex,
		SoundEnabled: s.SoundEnabled,
	}
}

// Settings converts the payload back, keeping the threshold at millisecond
// resolution.
func (p SettingsPayload) Settings() (session.Settings, error) {
	threshold, err := session.ThresholdFromSeconds(p.Threshold)
	if err != nil {
		return session.Settings{}, err
	}
	return session.Settings{
		Threshold:    threshold,
		Sensitivity:  p.Sensitivity,
		CameraIndex:  p.CameraIndex,
		SoundEnabled: p.SoundEnabled,
	}, nil
}

// StatusPayload is served by /api/status and pushed on the status streams.
type StatusPayload struct {
	Session      session.Info     `json:"session"`
	Drowsiness   DrowsinessStatus `json:"drowsiness"`
	Settings     SettingsPayload  `json:"settings"`
	AlertHistory []alert.Event    `json:"alert_history"`
	Clients      ClientCounts     `json:"clients"`
	Timestamp    float64          `json:"timestamp"`
}

// ClientCounts reports connected viewers per transport.
type ClientCounts struct {
	MJPEG     int `json:"mjpeg"`
	WebSocket int `json:"websocket"`
	WebRTC    int `json:"webrtc"`
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
