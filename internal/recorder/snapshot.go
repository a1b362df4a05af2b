package recorder

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/metrics"
)

// Format is a snapshot image encoding.
type Format string

const (
	FormatJPEG Format = "jpg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// ParseFormat accepts jpg, jpeg, png and webp (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	}
	return "", fmt.Errorf("unsupported snapshot format %q", s)
}

// Snapshotter saves one still per alert.
type Snapshotter struct {
	dir     string
	format  Format
	quality int
	metrics *metrics.Metrics
}

// NewSnapshotter saves into dir with the given format and lossy quality.
func NewSnapshotter(dir string, format Format, quality int, m *metrics.Metrics) *Snapshotter {
	if m == nil {
		m = metrics.New()
	}
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	if format == "" {
		format = FormatJPEG
	}
	return &Snapshotter{dir: dir, format: format, quality: quality, metrics: m}
}

// Save writes img as alert_<time>_<n>.<ext> and returns the path.
func (s *Snapshotter) Save(img image.Image, at time.Time, n int) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	name := fmt.Sprintf("alert_%s_%d.%s", at.Format("20060102_150405.000"), n, s.format)
	path := filepath.Join(s.dir, name)

	var err error
	switch s.format {
	case FormatWebP:
		err = saveWebP(path, img, s.quality)
	default:
		err = imaging.Save(img, path, imaging.JPEGQuality(s.quality))
	}
	if err != nil {
		return "", fmt.Errorf("save snapshot %s: %w", name, err)
	}
	s.metrics.SnapshotsSaved.Add(1)
	return path, nil
}

func saveWebP(path string, img image.Image, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := webp.Encode(f, img, &webp.Options{Quality: float32(quality)}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
