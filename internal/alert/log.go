package alert

import (
	"context"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/logger"
)

// LogPublisher writes alerts to the process log. It is always enabled so
// an alert is recorded even with no remote backend configured.
type LogPublisher struct {
	log logger.Module
}

// NewLogPublisher returns a publisher tagged "AlertLog".
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{log: logger.For("AlertLog")}
}

func (p *LogPublisher) Name() string { return "log" }

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.log.Warnf("%s %s session=%s total=%d eyes=%d closed=%dms",
		e.Module, e.Alert, e.SessionID, e.TotalAlerts, e.EyesDetected, e.ClosedForMS)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
