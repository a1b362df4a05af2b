package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(kv map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := kv[k]
		return v, ok
	}
}

func TestDefaultsMatchDashboard(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	s := cfg.Settings()
	assert.Equal(t, 1500*time.Millisecond, s.Threshold)
	assert.Equal(t, 2, s.Sensitivity)
	assert.Equal(t, 0, s.CameraIndex)
	assert.True(t, s.SoundEnabled)

	o := cfg.Options()
	assert.Equal(t, 500, o.MaxFrames)
	assert.Equal(t, 30*time.Millisecond, o.FrameDelay)
	assert.True(t, o.RestartOnExhaustion)

	assert.Equal(t, ":8080", cfg.Monitor().Addr)
	assert.Equal(t, "drowsiness", cfg.MQTT().TopicPrefix)
}

func TestLoadFileKeepsAbsentKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
session:
  threshold_seconds: 2.5
  frame_delay: 10ms
detection:
  eye_sensitivity: 5
alerts:
  redis_addr: localhost:6379
`), 0o644))

	cfg := Default()
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, 2500*time.Millisecond, cfg.Settings().Threshold)
	assert.Equal(t, 10*time.Millisecond, cfg.Session.FrameDelay)
	assert.Equal(t, 5, cfg.Detection.EyeSensitivity)
	assert.Equal(t, "localhost:6379", cfg.Alerts.RedisAddr)
	assert.Equal(t, 500, cfg.Session.MaxFrames, "absent keys keep defaults")
	assert.Equal(t, "drowsiness_alerts", cfg.Alerts.RedisKey)
}

func TestLoadFileErrors(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session: [1, 2"), 0o644))
	assert.Error(t, cfg.LoadFile(path))
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"DROWSY_THRESHOLD_SECONDS": "3",
		"DROWSY_SOUND_ENABLED":     "false",
		"DROWSY_FRAME_DELAY":       "0s",
		"DROWSY_STUN":              "stun:a:1, stun:b:2",
		"UNRELATED":                "x",
	}))
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Settings().Threshold)
	assert.False(t, cfg.Session.SoundEnabled)
	assert.Equal(t, time.Duration(0), cfg.Session.FrameDelay)
	assert.Equal(t, []string{"stun:a:1", "stun:b:2"}, cfg.Server.STUNServers)

	err = cfg.ApplyEnv(envMap(map[string]string{"DROWSY_CAMERA_INDEX": "front"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DROWSY_CAMERA_INDEX")
}

func TestFlagsOverrideEarlierLayers(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{"DROWSY_EYE_SENSITIVITY": "7"})))

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	assert.Equal(t, "7", fs.Lookup("sensitivity").DefValue, "defaults show the effective value")

	require.NoError(t, fs.Parse([]string{"-sensitivity", "3", "-sound=false", "-camera", "1"}))
	assert.Equal(t, 3, cfg.Detection.EyeSensitivity)
	assert.False(t, cfg.Session.SoundEnabled)
	assert.Equal(t, 1, cfg.Session.CameraIndex)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero threshold", func(c *Config) { c.Session.ThresholdSeconds = 0 }},
		{"huge threshold", func(c *Config) { c.Session.ThresholdSeconds = 1e300 }},
		{"sensitivity below one", func(c *Config) { c.Detection.EyeSensitivity = 0 }},
		{"negative camera", func(c *Config) { c.Session.CameraIndex = -1 }},
		{"negative delay", func(c *Config) { c.Session.FrameDelay = -time.Millisecond }},
		{"unknown snapshot format", func(c *Config) { c.Server.SnapshotFormat = "gif" }},
		{"jpeg quality", func(c *Config) { c.Server.JPEGQuality = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "a.yaml", configPath([]string{"-config", "a.yaml"}))
	assert.Equal(t, "b.yaml", configPath([]string{"-http", ":1", "--config=b.yaml"}))
	assert.Equal(t, "", configPath([]string{"-http", ":1"}))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("detection:\n  eye_sensitivity: 4\n"), 0o644))

	cfg, err := Load("test", []string{"-config", path, "-threshold", "2"})
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Detection.EyeSensitivity)
	assert.Equal(t, 2*time.Second, cfg.Settings().Threshold)

	_, err = Load("test", []string{"-threshold", "-1"})
	assert.Error(t, err)
}
