package session

import (
	"fmt"
	"math"
	"time"
)

// MaxThreshold is the longest closed-eye threshold accepted.
const MaxThreshold = time.Hour

// Settings are the user-facing knobs. A running session keeps the values
// it started with; edits apply to the next session.
type Settings struct {
	Threshold    time.Duration `json:"-"`
	Sensitivity  int           `json:"eye_sensitivity"`
	CameraIndex  int           `json:"camera_index"`
	SoundEnabled bool          `json:"sound_enabled"`
}

// DefaultSettings matches the dashboard's initial slider positions.
func DefaultSettings() Settings {
	return Settings{
		Threshold:    1500 * time.Millisecond,
		Sensitivity:  2,
		CameraIndex:  0,
		SoundEnabled: true,
	}
}

// ThresholdSeconds returns the threshold as fractional seconds.
func (s Settings) ThresholdSeconds() float64 {
	return s.Threshold.Seconds()
}

// ThresholdFromSeconds converts fractional seconds to a threshold at
// millisecond resolution, rejecting values outside (0, MaxThreshold].
func ThresholdFromSeconds(sec float64) (time.Duration, error) {
	if math.IsNaN(sec) || sec <= 0 || sec > MaxThreshold.Seconds() {
		return 0, fmt.Errorf("threshold must be in (0, %g] seconds, got %g", MaxThreshold.Seconds(), sec)
	}
	return time.Duration(math.Round(sec*1000)) * time.Millisecond, nil
}

// Validate rejects values the loop cannot run with.
func (s Settings) Validate() error {
	if s.Threshold <= 0 || s.Threshold > MaxThreshold {
		return fmt.Errorf("threshold must be in (0, %s], got %s", MaxThreshold, s.Threshold)
	}
	if s.Sensitivity < 1 {
		return fmt.Errorf("eye sensitivity must be >= 1, got %d", s.Sensitivity)
	}
	if s.CameraIndex < 0 {
		return fmt.Errorf("camera index must be >= 0, got %d", s.CameraIndex)
	}
	return nil
}

// Options control the loop itself rather than detection.
type Options struct {
	// MaxFrames bounds one session; 0 means unbounded.
	MaxFrames int
	// FrameDelay is slept after every processed frame.
	FrameDelay time.Duration
	// RestartOnExhaustion starts a fresh session when MaxFrames is reached.
	RestartOnExhaustion bool
	// RestartDelay is the pause before such a restart.
	RestartDelay time.Duration
	// ResetDelay is the settle time used by Controller.Reset.
	ResetDelay time.Duration
}

// DefaultOptions mirrors the dashboard loop: 500-frame sessions, 30 ms
// between frames, automatic restart.
func DefaultOptions() Options {
	return Options{
		MaxFrames:           500,
		FrameDelay:          30 * time.Millisecond,
		RestartOnExhaustion: true,
		RestartDelay:        500 * time.Millisecond,
		ResetDelay:          500 * time.Millisecond,
	}
}
