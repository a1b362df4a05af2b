package recorder

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/metrics"
)

func TestRecordConcatenatesFrames(t *testing.T) {
	m := metrics.New()
	r := NewRecorder(filepath.Join(t.TempDir(), "rec"), m)

	assert.False(t, r.SendFrame([]byte("ignored")), "not recording yet")

	path, err := r.Start()
	require.NoError(t, err)
	assert.Equal(t, ".mjpeg", filepath.Ext(path))
	assert.Equal(t, uint64(1), m.RecordingActive.Load())

	_, err = r.Start()
	assert.Error(t, err, "second start must fail")

	require.True(t, r.SendFrame([]byte("AAA")))
	require.True(t, r.SendFrame([]byte("BB")))

	stopped, err := r.Stop()
	require.NoError(t, err)
	assert.Equal(t, path, stopped)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "AAABB", string(data))

	status := r.GetStatus()
	assert.False(t, status.Recording)
	assert.Equal(t, uint64(2), status.FrameCount)
	assert.Equal(t, uint64(5), status.BytesWritten)
	assert.Equal(t, uint64(0), m.RecordingActive.Load())
	assert.Equal(t, uint64(5), m.RecordingBytes.Load())

	_, err = r.Stop()
	assert.Error(t, err, "stop when idle must fail")
	assert.NoError(t, r.Close())
}

func TestCloseStopsActiveRecording(t *testing.T) {
	r := NewRecorder(t.TempDir(), nil)
	_, err := r.Start()
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.False(t, r.IsRecording())
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJPEG, "JPEG": FormatJPEG, ".png": FormatPNG, "webp": FormatWebP} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("gif")
	assert.Error(t, err)
}

func TestSnapshotFormats(t *testing.T) {
	img := imaging.New(64, 48, color.NRGBA{R: 200, A: 255})
	at := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	for _, f := range []Format{FormatJPEG, FormatPNG, FormatWebP} {
		t.Run(string(f), func(t *testing.T) {
			m := metrics.New()
			s := NewSnapshotter(t.TempDir(), f, 85, m)
			path, err := s.Save(img, at, 3)
			require.NoError(t, err)
			assert.Equal(t, "alert_20250501_100000.000_3."+string(f), filepath.Base(path))
			assert.Equal(t, uint64(1), m.SnapshotsSaved.Load())

			var decoded image.Image
			if f == FormatWebP {
				fh, err := os.Open(path)
				require.NoError(t, err)
				defer fh.Close()
				decoded, err = webp.Decode(fh)
				require.NoError(t, err)
			} else {
				decoded, err = imaging.Open(path)
				require.NoError(t, err)
			}
			assert.Equal(t, 64, decoded.Bounds().Dx())
		})
	}
}
