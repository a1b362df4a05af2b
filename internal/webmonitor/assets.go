package webmonitor

import (
	"bytes"
	"encoding/binary"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const alarmAsset = "alarm.wav"

type assetHandler struct {
	assetsDir string
	alarm     func() []byte
}

func newAssetHandler(assetsDir string) *assetHandler {
	return &assetHandler{assetsDir: assetsDir, alarm: alarmWAV}
}

// ServeHTTP serves files from the assets directory. alarm.wav falls back
// to a generated tone when no custom file is present.
func (h *assetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	filename := filepath.Base(r.URL.Path)
	if h.assetsDir != "" {
		assetPath := filepath.Join(h.assetsDir, filename)
		if fileExists(assetPath) {
			http.ServeFile(w, r, assetPath)
			return
		}
	}

	if filename == alarmAsset {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		http.ServeContent(w, r, alarmAsset, time.Time{}, bytes.NewReader(h.alarm()))
		return
	}
	http.NotFound(w, r)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

var (
	alarmOnce sync.Once
	alarmData []byte
)

// alarmWAV returns a one second, 8 kHz, 8-bit mono beep pattern: four
// 880 Hz pulses of 125 ms separated by silence.
func alarmWAV() []byte {
	alarmOnce.Do(func() {
		const (
			rate  = 8000
			freq  = 880.0
			pulse = rate / 8
		)
		samples := make([]byte, rate)
		for i := range samples {
			v := 128.0
			if (i/pulse)%2 == 0 {
				v += 100 * math.Sin(2*math.Pi*freq*float64(i)/rate)
			}
			samples[i] = byte(v)
		}

		header := struct {
			ChunkID       [4]byte
			ChunkSize     uint32
			Format        [4]byte
			FmtID         [4]byte
			FmtSize       uint32
			AudioFormat   uint16
			Channels      uint16
			SampleRate    uint32
			ByteRate      uint32
			BlockAlign    uint16
			BitsPerSample uint16
			DataID        [4]byte
			DataSize      uint32
		}{
			ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
			ChunkSize:     uint32(36 + len(samples)),
			Format:        [4]byte{'W', 'A', 'V', 'E'},
			FmtID:         [4]byte{'f', 'm', 't', ' '},
			FmtSize:       16,
			AudioFormat:   1,
			Channels:      1,
			SampleRate:    rate,
			ByteRate:      rate,
			BlockAlign:    1,
			BitsPerSample: 8,
			DataID:        [4]byte{'d', 'a', 't', 'a'},
			DataSize:      uint32(len(samples)),
		}

		var buf bytes.Buffer
		_ = binary.Write(&buf, binary.LittleEndian, header)
		buf.Write(samples)
		alarmData = buf.Bytes()
	})
	return alarmData
}
