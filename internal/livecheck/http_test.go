package livecheck

import (
	"net/http"
	"strings"
	"testing"
)

func TestLiveIndex(t *testing.T) {
	client := newLiveClient(t)
	resp, body := client.get(t, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("GET / content-type = %q", resp.Header.Get("Content-Type"))
	}
	html := string(body)
	for _, needle := range []string{
		"<title>Pilot Drowsiness Monitor</title>",
		`src="/stream"`,
		"/api/status/stream",
		"/assets/alarm.wav",
	} {
		if !strings.Contains(html, needle) {
			t.Fatalf("GET / missing %q", needle)
		}
	}
}

func TestLiveAlarmAsset(t *testing.T) {
	client := newLiveClient(t)
	resp, body := client.get(t, "/assets/alarm.wav")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /assets/alarm.wav status = %d", resp.StatusCode)
	}
	if len(body) < 44 || string(body[:4]) != "RIFF" || string(body[8:12]) != "WAVE" {
		t.Fatalf("alarm.wav is not a WAV file (%d bytes)", len(body))
	}
}

func TestLiveStatus(t *testing.T) {
	client := newLiveClient(t)
	resp, body := client.get(t, "/api/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/status status = %d", resp.StatusCode)
	}
	assertStatusPayload(t, decodeJSONMap(t, body))
}

func TestLiveSettingsRoundTrip(t *testing.T) {
	client := newLiveClient(t)
	resp, body := client.get(t, "/api/settings")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/settings status = %d", resp.StatusCode)
	}
	current := decodeJSONMap(t, body)
	sensitivity := requireNumber(t, current["eye_sensitivity"], "eye_sensitivity")

	// Posting the current value back must succeed and change nothing.
	resp, body = client.postJSON(t, "/api/settings", map[string]any{"eye_sensitivity": sensitivity})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /api/settings status = %d body=%s", resp.StatusCode, body)
	}
	payload := decodeJSONMap(t, body)
	settings := requireMap(t, payload["settings"], "settings")
	if requireNumber(t, settings["eye_sensitivity"], "settings.eye_sensitivity") != sensitivity {
		t.Fatalf("eye_sensitivity changed: %v", settings["eye_sensitivity"])
	}
	requireBool(t, payload["next_session"], "next_session")

	resp, _ = client.postJSON(t, "/api/settings", map[string]any{"threshold_seconds": -1})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid threshold status = %d", resp.StatusCode)
	}
}

func TestLiveHealth(t *testing.T) {
	client := newLiveClient(t)
	resp, body := client.get(t, "/api/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/health status = %d", resp.StatusCode)
	}
	payload := decodeJSONMap(t, body)
	if requireString(t, payload["status"], "status") != "ok" {
		t.Fatalf("health status = %v", payload["status"])
	}
	requireBool(t, payload["session_running"], "session_running")
}

func TestLiveWebRTCOfferInvalid(t *testing.T) {
	client := newLiveClient(t)
	resp, body := client.postJSON(t, "/api/webrtc/offer", map[string]any{})
	switch resp.StatusCode {
	case http.StatusServiceUnavailable:
		t.Skip("webrtc disabled on this monitor")
	case http.StatusBadRequest:
	default:
		t.Fatalf("POST /api/webrtc/offer status = %d", resp.StatusCode)
	}
	requireString(t, decodeJSONMap(t, body)["error"], "error")
}
