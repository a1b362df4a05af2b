// Package config loads monitor configuration in layers: built-in defaults,
// an optional YAML file, .env files and DROWSY_* environment variables,
// then command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/alert"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/recorder"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/session"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/webmonitor"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/webrtc"
)

// EnvPrefix is prepended to every environment key.
const EnvPrefix = "DROWSY_"

type Config struct {
	Session   SessionConfig   `yaml:"session"`
	Detection DetectionConfig `yaml:"detection"`
	Server    ServerConfig    `yaml:"server"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Log       LogConfig       `yaml:"log"`
}

type SessionConfig struct {
	ThresholdSeconds    float64       `yaml:"threshold_seconds"`
	CameraIndex         int           `yaml:"camera_index"`
	SoundEnabled        bool          `yaml:"sound_enabled"`
	MaxFrames           int           `yaml:"max_frames"`
	FrameDelay          time.Duration `yaml:"frame_delay"`
	RestartOnExhaustion bool          `yaml:"restart_on_exhaustion"`
	RestartDelay        time.Duration `yaml:"restart_delay"`
	ResetDelay          time.Duration `yaml:"reset_delay"`
	// Source overrides the camera with a video file, stream URL or image
	// directory. Headless runner only.
	Source string `yaml:"source"`
	Loop   bool   `yaml:"loop"`
}

type DetectionConfig struct {
	EyeSensitivity int      `yaml:"eye_sensitivity"`
	FaceModel      string   `yaml:"face_model"`
	EyeModel       string   `yaml:"eye_model"`
	CascadeDirs    []string `yaml:"cascade_dirs"`
}

type ServerConfig struct {
	HTTPAddr         string        `yaml:"http_addr"`
	MetricsAddr      string        `yaml:"metrics_addr"`
	GRPCAddr         string        `yaml:"grpc_addr"`
	AssetsDir        string        `yaml:"assets_dir"`
	StatusInterval   time.Duration `yaml:"status_interval"`
	JPEGQuality      int           `yaml:"jpeg_quality"`
	MaxWidth         int           `yaml:"max_width"`
	HistorySize      int           `yaml:"history_size"`
	RecordingPath    string        `yaml:"recording_path"`
	SnapshotDir      string        `yaml:"snapshot_dir"`
	SnapshotFormat   string        `yaml:"snapshot_format"`
	WebRTC           bool          `yaml:"webrtc"`
	STUNServers      []string      `yaml:"stun_servers"`
	MaxWebRTCClients int           `yaml:"max_webrtc_clients"`
}

type AlertsConfig struct {
	ModuleName      string        `yaml:"module_name"`
	QueueSize       int           `yaml:"queue_size"`
	PublishTimeout  time.Duration `yaml:"publish_timeout"`
	RedisAddr       string        `yaml:"redis_addr"`
	RedisKey        string        `yaml:"redis_key"`
	PostgresDSN     string        `yaml:"postgres_dsn"`
	MQTTBroker      string        `yaml:"mqtt_broker"`
	MQTTClientID    string        `yaml:"mqtt_client_id"`
	MQTTTopicPrefix string        `yaml:"mqtt_topic_prefix"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Color bool   `yaml:"color"`
}

// Default returns the configuration used when nothing else is given.
func Default() Config {
	settings := session.DefaultSettings()
	opts := session.DefaultOptions()
	mon := webmonitor.DefaultConfig()
	rtc := webrtc.DefaultConfig()

	return Config{
		Session: SessionConfig{
			ThresholdSeconds:    settings.ThresholdSeconds(),
			CameraIndex:         settings.CameraIndex,
			SoundEnabled:        settings.SoundEnabled,
			MaxFrames:           opts.MaxFrames,
			FrameDelay:          opts.FrameDelay,
			RestartOnExhaustion: opts.RestartOnExhaustion,
			RestartDelay:        opts.RestartDelay,
			ResetDelay:          opts.ResetDelay,
		},
		Detection: DetectionConfig{
			EyeSensitivity: settings.Sensitivity,
		},
		Server: ServerConfig{
			HTTPAddr:         mon.Addr,
			MetricsAddr:      ":9090",
			GRPCAddr:         ":50051",
			AssetsDir:        mon.AssetsDir,
			StatusInterval:   mon.StatusInterval,
			JPEGQuality:      mon.JPEGQuality,
			MaxWidth:         mon.MJPEGMaxWidth,
			HistorySize:      mon.HistorySize,
			RecordingPath:    mon.RecordingOutputPath,
			SnapshotDir:      mon.SnapshotDir,
			SnapshotFormat:   mon.SnapshotFormat,
			WebRTC:           true,
			STUNServers:      rtc.STUNServers,
			MaxWebRTCClients: rtc.MaxClients,
		},
		Alerts: AlertsConfig{
			ModuleName:      alert.DefaultModuleName,
			QueueSize:       64,
			PublishTimeout:  2 * time.Second,
			RedisKey:        "drowsiness_alerts",
			MQTTClientID:    "drowsiness-monitor",
			MQTTTopicPrefix: "drowsiness",
		},
		Log: LogConfig{
			Level: "info",
			Color: true,
		},
	}
}

// LoadFile overlays the YAML file at path onto c. Keys absent from the
// file keep their current value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overlays DROWSY_* variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, b := range c.envBindings() {
		raw, ok := lookup(EnvPrefix + b.key)
		if !ok {
			continue
		}
		if err := b.value.Set(strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, b.key, err)
		}
	}
	return nil
}

type binding struct {
	key   string
	flag  string
	usage string
	value flag.Value
}

func (c *Config) envBindings() []binding {
	return []binding{
		{"THRESHOLD_SECONDS", "threshold", "Seconds of closed eyes before alerting", (*float64Value)(&c.Session.ThresholdSeconds)},
		{"EYE_SENSITIVITY", "sensitivity", "Eye detection sensitivity (min neighbors, >= 1)", (*intValue)(&c.Detection.EyeSensitivity)},
		{"CAMERA_INDEX", "camera", "Camera device index", (*intValue)(&c.Session.CameraIndex)},
		{"SOUND_ENABLED", "sound", "Play the alarm sound in the dashboard", (*boolValue)(&c.Session.SoundEnabled)},
		{"MAX_FRAMES", "max-frames", "Frames per session, 0 for unbounded", (*intValue)(&c.Session.MaxFrames)},
		{"FRAME_DELAY", "frame-delay", "Delay after each processed frame", (*durationValue)(&c.Session.FrameDelay)},
		{"RESTART", "restart", "Start a new session when max frames is reached", (*boolValue)(&c.Session.RestartOnExhaustion)},
		{"SOURCE", "source", "Video file, stream URL or image directory instead of a camera", (*stringValue)(&c.Session.Source)},
		{"LOOP", "loop", "Loop an image directory source", (*boolValue)(&c.Session.Loop)},
		{"FACE_MODEL", "face-model", "Face cascade file", (*stringValue)(&c.Detection.FaceModel)},
		{"EYE_MODEL", "eye-model", "Eye cascade file", (*stringValue)(&c.Detection.EyeModel)},
		{"CASCADE_DIRS", "cascade-dirs", "Cascade search directories (comma-separated)", (*listValue)(&c.Detection.CascadeDirs)},
		{"HTTP_ADDR", "http", "HTTP server address", (*stringValue)(&c.Server.HTTPAddr)},
		{"METRICS_ADDR", "metrics", "Metrics server address, empty to disable", (*stringValue)(&c.Server.MetricsAddr)},
		{"GRPC_ADDR", "grpc", "gRPC health address, empty to disable", (*stringValue)(&c.Server.GRPCAddr)},
		{"ASSETS_DIR", "assets", "Web assets directory", (*stringValue)(&c.Server.AssetsDir)},
		{"RECORDING_PATH", "record-path", "Recording output path", (*stringValue)(&c.Server.RecordingPath)},
		{"SNAPSHOT_DIR", "snapshot-dir", "Alert snapshot directory, empty to disable", (*stringValue)(&c.Server.SnapshotDir)},
		{"SNAPSHOT_FORMAT", "snapshot-format", "Alert snapshot format (jpg, png, webp)", (*stringValue)(&c.Server.SnapshotFormat)},
		{"WEBRTC", "webrtc", "Enable the WebRTC alert channel", (*boolValue)(&c.Server.WebRTC)},
		{"STUN", "stun", "STUN server URLs (comma-separated)", (*listValue)(&c.Server.STUNServers)},
		{"MAX_WEBRTC_CLIENTS", "max-clients", "Maximum WebRTC clients", (*intValue)(&c.Server.MaxWebRTCClients)},
		{"MODULE_NAME", "module-name", "Module name attached to alerts", (*stringValue)(&c.Alerts.ModuleName)},
		{"REDIS_ADDR", "redis", "Redis address for the alert log", (*stringValue)(&c.Alerts.RedisAddr)},
		{"POSTGRES_DSN", "postgres", "Postgres DSN for the alert log", (*stringValue)(&c.Alerts.PostgresDSN)},
		{"MQTT_BROKER", "mqtt", "MQTT broker for alert messages", (*stringValue)(&c.Alerts.MQTTBroker)},
		{"MQTT_TOPIC_PREFIX", "mqtt-prefix", "MQTT topic prefix", (*stringValue)(&c.Alerts.MQTTTopicPrefix)},
		{"LOG_LEVEL", "log-level", "Log level (debug, info, warn, error, silent)", (*stringValue)(&c.Log.Level)},
		{"LOG_COLOR", "log-color", "Enable colored log output", (*boolValue)(&c.Log.Color)},
	}
}

// RegisterFlags binds every setting to fs. Call it after the file and
// environment layers so flag defaults show the effective values.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	for _, b := range c.envBindings() {
		fs.Var(b.value, b.flag, b.usage)
	}
}

// Load resolves the full configuration for a binary. -config (or
// DROWSY_CONFIG) names the YAML file.
func Load(name string, args []string) (Config, error) {
	cfg := Default()
	if err := LoadDotEnv(".env"); err != nil {
		return cfg, err
	}

	path := configPath(args)
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("config", path, "YAML config file")
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func configPath(args []string) string {
	for i, arg := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// Validate rejects values no session could run with.
func (c Config) Validate() error {
	if _, err := session.ThresholdFromSeconds(c.Session.ThresholdSeconds); err != nil {
		return err
	}
	if err := c.Settings().Validate(); err != nil {
		return err
	}
	if c.Session.FrameDelay < 0 {
		return fmt.Errorf("frame delay must be >= 0, got %s", c.Session.FrameDelay)
	}
	if c.Session.MaxFrames < 0 {
		return fmt.Errorf("max frames must be >= 0, got %d", c.Session.MaxFrames)
	}
	if _, err := recorder.ParseFormat(c.Server.SnapshotFormat); err != nil {
		return err
	}
	if c.Server.JPEGQuality < 1 || c.Server.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be in 1..100, got %d", c.Server.JPEGQuality)
	}
	return nil
}

// Settings returns the initial session settings.
func (c Config) Settings() session.Settings {
	threshold, err := session.ThresholdFromSeconds(c.Session.ThresholdSeconds)
	if err != nil {
		// rejected by Validate
		threshold = 0
	}
	return session.Settings{
		Threshold:    threshold,
		Sensitivity:  c.Detection.EyeSensitivity,
		CameraIndex:  c.Session.CameraIndex,
		SoundEnabled: c.Session.SoundEnabled,
	}
}

// Options returns the loop options.
func (c Config) Options() session.Options {
	return session.Options{
		MaxFrames:           c.Session.MaxFrames,
		FrameDelay:          c.Session.FrameDelay,
		RestartOnExhaustion: c.Session.RestartOnExhaustion,
		RestartDelay:        c.Session.RestartDelay,
		ResetDelay:          c.Session.ResetDelay,
	}
}

// Monitor returns the dashboard configuration.
func (c Config) Monitor() webmonitor.Config {
	cfg := webmonitor.DefaultConfig()
	cfg.Addr = c.Server.HTTPAddr
	cfg.AssetsDir = c.Server.AssetsDir
	cfg.StatusInterval = c.Server.StatusInterval
	cfg.JPEGQuality = c.Server.JPEGQuality
	cfg.MJPEGMaxWidth = c.Server.MaxWidth
	cfg.HistorySize = c.Server.HistorySize
	cfg.RecordingOutputPath = c.Server.RecordingPath
	cfg.SnapshotDir = c.Server.SnapshotDir
	cfg.SnapshotFormat = c.Server.SnapshotFormat
	return cfg
}

// WebRTC returns the data-channel server configuration.
func (c Config) WebRTC() webrtc.Config {
	cfg := webrtc.DefaultConfig()
	cfg.STUNServers = c.Server.STUNServers
	cfg.MaxClients = c.Server.MaxWebRTCClients
	return cfg
}

// MQTT returns the broker settings for the alert publisher.
func (c Config) MQTT() alert.MQTTConfig {
	return alert.MQTTConfig{
		Broker:      c.Alerts.MQTTBroker,
		ClientID:    c.Alerts.MQTTClientID,
		TopicPrefix: c.Alerts.MQTTTopicPrefix,
		QoS:         1,
	}
}
