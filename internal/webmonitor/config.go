package webmonitor

import (
	"time"
)

// Config defines the runtime configuration for the web monitor server.
type Config struct {
	Addr                string
	AssetsDir           string
	StatusInterval      time.Duration
	MJPEGMaxWidth       int
	JPEGQuality         int
	HistorySize         int
	RecordingOutputPath string
	SnapshotDir         string
	SnapshotFormat      string
}

// DefaultConfig returns the dashboard defaults.
func DefaultConfig() Config {
	return Config{
		Addr:                ":8080",
		AssetsDir:           "./web_assets",
		StatusInterval:      time.Second,
		MJPEGMaxWidth:       960,
		JPEGQuality:         80,
		HistorySize:         8,
		RecordingOutputPath: "./recordings",
		SnapshotDir:         "./recordings/alerts",
		SnapshotFormat:      "jpg",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StatusInterval <= 0 {
		c.StatusInterval = d.StatusInterval
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = d.JPEGQuality
	}
	if c.HistorySize <= 0 {
		c.HistorySize = d.HistorySize
	}
	return c
}
