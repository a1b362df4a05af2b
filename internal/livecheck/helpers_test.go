// Package livecheck exercises a running monitor over HTTP. Every test is
// skipped unless MONITOR_BASE_URL points at a reachable dashboard.
package livecheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

const defaultRequestTimeout = 2 * time.Second

type liveClient struct {
	baseURL string
	client  *http.Client
}

func newLiveClient(t *testing.T) *liveClient {
	t.Helper()
	baseURL := strings.TrimRight(os.Getenv("MONITOR_BASE_URL"), "/")
	if baseURL == "" {
		t.Skip("set MONITOR_BASE_URL to run live checks")
	}
	client := &http.Client{Timeout: defaultRequestTimeout}

	if !isReachable(client, baseURL+"/api/health") {
		t.Skipf("monitor not reachable at %s", baseURL)
	}
	return &liveClient{baseURL: baseURL, client: client}
}

func isReachable(client *http.Client, url string) bool {
	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *liveClient) do(t *testing.T, method, path string, body io.Reader) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	_ = resp.Body.Close()
	return resp, data
}

func (c *liveClient) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	return c.do(t, http.MethodGet, path, nil)
}

func (c *liveClient) postJSON(t *testing.T, path string, payload any) (*http.Response, []byte) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return c.do(t, http.MethodPost, path, bytes.NewReader(data))
}

// readSSEEvent returns the first complete event on url.
func readSSEEvent(url string, timeout time.Duration) (string, http.Header, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var buf []byte
	tmp := make([]byte, 512)
	for {
		n, readErr := resp.Body.Read(tmp)
		buf = append(buf, tmp[:n]...)
		if idx := bytes.Index(buf, []byte("\n\n")); idx >= 0 {
			return string(buf[:idx]), resp.Header, nil
		}
		if readErr != nil {
			return "", nil, fmt.Errorf("read sse: %w", readErr)
		}
	}
}

func parseSSEData(t *testing.T, event string) map[string]any {
	t.Helper()
	for _, line := range strings.Split(event, "\n") {
		if payload, ok := strings.CutPrefix(line, "data: "); ok {
			return decodeJSONMap(t, []byte(payload))
		}
	}
	t.Fatalf("no data line in sse event: %q", event)
	return nil
}

func decodeJSONMap(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode json: %v\nbody=%s", err, body)
	}
	return payload
}

func requireString(t *testing.T, value any, field string) string {
	t.Helper()
	str, ok := value.(string)
	if !ok {
		t.Fatalf("expected %s to be string, got %T", field, value)
	}
	return str
}

func requireNumber(t *testing.T, value any, field string) float64 {
	t.Helper()
	num, ok := value.(float64)
	if !ok {
		t.Fatalf("expected %s to be number, got %T", field, value)
	}
	return num
}

func requireBool(t *testing.T, value any, field string) bool {
	t.Helper()
	b, ok := value.(bool)
	if !ok {
		t.Fatalf("expected %s to be bool, got %T", field, value)
	}
	return b
}

func requireMap(t *testing.T, value any, field string) map[string]any {
	t.Helper()
	m, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("expected %s to be object, got %T", field, value)
	}
	return m
}

func requireSlice(t *testing.T, value any, field string) []any {
	t.Helper()
	s, ok := value.([]any)
	if !ok {
		t.Fatalf("expected %s to be array, got %T", field, value)
	}
	return s
}

func assertAlertEvent(t *testing.T, payload map[string]any, field string) {
	t.Helper()
	requireString(t, payload["id"], field+".id")
	if got := requireString(t, payload["alert"], field+".alert"); got != "DROWSINESS_DETECTED" {
		t.Fatalf("%s.alert = %q", field, got)
	}
	requireString(t, payload["module_name"], field+".module_name")
	requireNumber(t, payload["total_alerts"], field+".total_alerts")
	requireNumber(t, payload["eyes_detected"], field+".eyes_detected")
	requireNumber(t, payload["closed_for_ms"], field+".closed_for_ms")
	requireString(t, payload["timestamp"], field+".timestamp")
}

func assertStatusPayload(t *testing.T, payload map[string]any) {
	t.Helper()
	sess := requireMap(t, payload["session"], "session")
	requireBool(t, sess["running"], "session.running")
	requireNumber(t, sess["sessions"], "session.sessions")

	d := requireMap(t, payload["drowsiness"], "drowsiness")
	status := requireString(t, d["status"], "drowsiness.status")
	if status != "SAFE" && status != "ALERT" {
		t.Fatalf("drowsiness.status = %q", status)
	}
	requireString(t, d["label"], "drowsiness.label")
	requireBool(t, d["alerting"], "drowsiness.alerting")
	requireBool(t, d["play_alarm"], "drowsiness.play_alarm")
	requireNumber(t, d["eyes_detected"], "drowsiness.eyes_detected")
	requireNumber(t, d["total_alerts"], "drowsiness.total_alerts")
	requireNumber(t, d["current_fps"], "drowsiness.current_fps")

	s := requireMap(t, payload["settings"], "settings")
	requireNumber(t, s["threshold_seconds"], "settings.threshold_seconds")
	requireNumber(t, s["eye_sensitivity"], "settings.eye_sensitivity")
	requireNumber(t, s["camera_index"], "settings.camera_index")
	requireBool(t, s["sound_enabled"], "settings.sound_enabled")

	for i, raw := range requireSlice(t, payload["alert_history"], "alert_history") {
		field := fmt.Sprintf("alert_history[%d]", i)
		assertAlertEvent(t, requireMap(t, raw, field), field)
	}
	requireMap(t, payload["clients"], "clients")
	requireNumber(t, payload["timestamp"], "timestamp")
}
