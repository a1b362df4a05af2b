// Package alert forwards drowsiness alerts off the frame loop to remote
// logs: Redis, Postgres, MQTT and the process log.
package alert

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/session"
)

const (
	DefaultModuleName = "Pilot Drowsiness"
	KindDrowsiness    = "DROWSINESS_DETECTED"
)

// Event is one fired alert.
type Event struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	Module       string    `json:"module_name"`
	Alert        string    `json:"alert"`
	EyesDetected int       `json:"eyes_detected"`
	Faces        int       `json:"faces"`
	TotalAlerts  int       `json:"total_alerts"`
	ClosedForMS  int64     `json:"closed_for_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

// FromReport builds the event for a frame whose alert edge just fired.
func FromReport(module string, r *session.Report) Event {
	ts := time.Now()
	if r.Frame != nil && !r.Frame.Timestamp.IsZero() {
		ts = r.Frame.Timestamp
	}
	return Event{
		ID:           uuid.NewString(),
		SessionID:    r.SessionID,
		Module:       module,
		Alert:        KindDrowsiness,
		EyesDetected: r.EyesDetected,
		Faces:        len(r.Detection.Faces),
		TotalAlerts:  r.State.TotalAlerts,
		ClosedForMS:  r.ClosedFor.Milliseconds(),
		Timestamp:    ts,
	}
}

// JSON returns the wire form used by every publisher.
func (e Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}
