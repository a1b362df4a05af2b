package app

import (
	"sync"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/drowsiness"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/logger"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/session"
)

// TransitionLog is a session.Sink that logs phase changes instead of
// every frame. Used by the headless runner.
type TransitionLog struct {
	mu      sync.Mutex
	session string
	phase   drowsiness.Phase
	changes int
	log     logger.Module
}

func NewTransitionLog() *TransitionLog {
	return &TransitionLog{log: logger.For("Status")}
}

func (t *TransitionLog) OnFrame(r *session.Report) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if r.SessionID != t.session {
		t.session = r.SessionID
		t.phase = drowsiness.Awake
	}
	if r.Output.Phase == t.phase {
		return
	}
	t.log.Infof("%s -> %s (frame %d, faces=%d eyes=%d)",
		t.phase, r.Output.Phase, r.Frame.Seq, len(r.Detection.Faces), r.EyesDetected)
	t.phase = r.Output.Phase
	t.changes++
}

// Changes returns how many transitions were logged.
func (t *TransitionLog) Changes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.changes
}
