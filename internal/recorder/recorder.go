// Package recorder writes the annotated feed to disk and keeps evidence
// snapshots of alert frames.
package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/logger"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/metrics"
)

// Recorder records JPEG frames to a concatenated-JPEG (.mjpeg) file.
// Most players (ffplay, VLC) open it directly.
type Recorder struct {
	mu           sync.RWMutex
	file         *os.File
	filename     string
	basePath     string
	recording    bool
	frameCount   uint64
	bytesWritten uint64
	startTime    time.Time
	frameChan    chan []byte
	stopChan     chan struct{}
	wg           sync.WaitGroup
	metrics      *metrics.Metrics
	log          logger.Module
}

// NewRecorder creates a recorder writing under basePath.
func NewRecorder(basePath string, m *metrics.Metrics) *Recorder {
	if m == nil {
		m = metrics.New()
	}
	return &Recorder{
		basePath: basePath,
		metrics:  m,
		log:      logger.For("Recorder"),
	}
}

// Start starts recording to a new file and returns its path.
func (r *Recorder) Start() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return "", fmt.Errorf("already recording")
	}

	if err := os.MkdirAll(r.basePath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("recording_%s.mjpeg", timestamp)
	path := filepath.Join(r.basePath, filename)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	r.file = file
	r.filename = path
	r.recording = true
	r.frameCount = 0
	r.bytesWritten = 0
	r.startTime = time.Now()
	r.frameChan = make(chan []byte, 60)
	r.stopChan = make(chan struct{})
	metrics.SetBool(&r.metrics.RecordingActive, true)
	r.metrics.RecordingBytes.Store(0)
	r.metrics.RecordingFrames.Store(0)

	r.wg.Add(1)
	go r.writeFrames(r.frameChan, r.stopChan)

	r.log.Infof("Recording to %s", path)
	return path, nil
}

// Stop stops recording and returns the finished file's path.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return "", fmt.Errorf("not recording")
	}
	r.recording = false
	close(r.stopChan)
	r.mu.Unlock()

	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	metrics.SetBool(&r.metrics.RecordingActive, false)

	if r.file != nil {
		if err := r.file.Sync(); err != nil {
			return r.filename, fmt.Errorf("failed to sync file: %w", err)
		}
		if err := r.file.Close(); err != nil {
			return r.filename, fmt.Errorf("failed to close file: %w", err)
		}
		r.file = nil
	}

	r.log.Infof("Recording stopped: %s (%d frames, %d bytes)", r.filename, r.frameCount, r.bytesWritten)
	return r.filename, nil
}

// SendFrame queues an encoded JPEG (non-blocking). It returns false when
// not recording or when the queue is full.
func (r *Recorder) SendFrame(jpeg []byte) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.recording {
		return false
	}
	select {
	case r.frameChan <- jpeg:
		return true
	default:
		return false
	}
}

func (r *Recorder) writeFrames(frames <-chan []byte, stop <-chan struct{}) {
	defer r.wg.Done()

	for {
		select {
		case frame := <-frames:
			r.writeFrame(frame)
		case <-stop:
			for {
				select {
				case frame := <-frames:
					r.writeFrame(frame)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) writeFrame(frame []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return
	}
	n, err := r.file.Write(frame)
	if err != nil {
		r.log.Warnf("Write failed: %v", err)
		return
	}

	r.bytesWritten += uint64(n)
	r.frameCount++
	r.metrics.RecordingBytes.Store(r.bytesWritten)
	r.metrics.RecordingFrames.Store(r.frameCount)
}

// IsRecording returns true if currently recording
func (r *Recorder) IsRecording() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recording
}

// GetStatus returns the current recording status
func (r *Recorder) GetStatus() RecordingStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var duration time.Duration
	if r.recording {
		duration = time.Since(r.startTime)
	}

	return RecordingStatus{
		Recording:    r.recording,
		Filename:     r.filename,
		FrameCount:   r.frameCount,
		BytesWritten: r.bytesWritten,
		DurationMS:   duration.Milliseconds(),
		StartTime:    r.startTime,
	}
}

// Close stops an active recording.
func (r *Recorder) Close() error {
	if r.IsRecording() {
		_, err := r.Stop()
		return err
	}
	return nil
}

// RecordingStatus holds the current recording status
type RecordingStatus struct {
	Recording    bool      `json:"recording"`
	Filename     string    `json:"filename"`
	FrameCount   uint64    `json:"frame_count"`
	BytesWritten uint64    `json:"bytes_written"`
	DurationMS   int64     `json:"duration_ms"`
	StartTime    time.Time `json:"start_time"`
}
