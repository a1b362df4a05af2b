// Package drowsiness implements the eye-closure timer that decides when a
// driver has had their eyes shut for too long.
//
// The machine is a pure function over an explicit State value: the polling
// loop owns the State, passes it to Step once per frame and keeps the
// returned value. Nothing here reads the clock or touches I/O.
package drowsiness

import "time"

// Phase is the coarse state of the machine.
type Phase int

const (
	Awake Phase = iota
	EyesClosedTiming
	Alerting
)

var phaseNames = map[Phase]string{
	Awake:            "AWAKE",
	EyesClosedTiming: "EYES_CLOSED_TIMING",
	Alerting:         "ALERTING",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "UNKNOWN"
}

// Status is the label shown to the user.
type Status string

const (
	StatusSafe  Status = "SAFE"
	StatusAlert Status = "ALERT"
)

// State is the per-session machine state.
// ClosedSince is the zero time while the eyes are seen open.
type State struct {
	ClosedSince time.Time
	Alerting    bool
	TotalAlerts int
}

// Phase derives the coarse phase from the stored fields.
func (s State) Phase() Phase {
	switch {
	case s.Alerting:
		return Alerting
	case !s.ClosedSince.IsZero():
		return EyesClosedTiming
	default:
		return Awake
	}
}

// ClosedFor returns how long the eyes have been closed as of now.
func (s State) ClosedFor(now time.Time) time.Duration {
	if s.ClosedSince.IsZero() {
		return 0
	}
	return now.Sub(s.ClosedSince)
}

// Output is what a single step reports to the presentation layer.
type Output struct {
	Status     Status
	Phase      Phase
	AlertFired bool // true only on the frame where the alert edge occurs
}

// Step advances the machine by one frame.
//
// A single frame with eyes open resets the timer. The alert fires only
// when the closed interval strictly exceeds threshold, and TotalAlerts
// increments once per closed-eyes episode.
func Step(s State, eyesOpen bool, now time.Time, threshold time.Duration) (State, Output) {
	if eyesOpen {
		s.ClosedSince = time.Time{}
		s.Alerting = false
		return s, Output{Status: StatusSafe, Phase: Awake}
	}

	switch s.Phase() {
	case Awake:
		s.ClosedSince = now
	case EyesClosedTiming:
		if now.Sub(s.ClosedSince) > threshold {
			s.Alerting = true
			s.TotalAlerts++
			return s, Output{Status: StatusAlert, Phase: Alerting, AlertFired: true}
		}
	case Alerting:
		return s, Output{Status: StatusAlert, Phase: Alerting}
	}
	return s, Output{Status: StatusSafe, Phase: s.Phase()}
}
