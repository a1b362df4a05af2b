package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/detector"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/drowsiness"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/metrics"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/session"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/pkg/types"
)

type memoryPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
	block  chan struct{}
	closed bool
}

func (p *memoryPublisher) Name() string { return "memory" }

func (p *memoryPublisher) Publish(ctx context.Context, e Event) error {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *memoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *memoryPublisher) got() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

func alertReport(total int) *session.Report {
	return &session.Report{
		SessionID: "sess-1",
		Frame:     &types.Frame{Timestamp: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)},
		Detection: detector.Result{Faces: []detector.Face{{Region: types.Region{W: 50, H: 50}}}},
		Output:    drowsiness.Output{Status: drowsiness.StatusAlert, Phase: drowsiness.Alerting, AlertFired: true},
		State:     drowsiness.State{Alerting: true, TotalAlerts: total},
		ClosedFor: 1600 * time.Millisecond,
	}
}

func TestOnFrameForwardsOnlyAlertEdges(t *testing.T) {
	pub := &memoryPublisher{}
	d := NewDispatcher(metrics.New(), []Publisher{pub})

	quiet := alertReport(1)
	quiet.Output.AlertFired = false
	d.OnFrame(quiet)
	d.OnFrame(alertReport(1))
	require.NoError(t, d.Close())

	events := pub.got()
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, DefaultModuleName, e.Module)
	assert.Equal(t, KindDrowsiness, e.Alert)
	assert.Equal(t, "sess-1", e.SessionID)
	assert.Equal(t, 1, e.TotalAlerts)
	assert.Equal(t, 1, e.Faces)
	assert.Equal(t, int64(1600), e.ClosedForMS)
	assert.NotEmpty(t, e.ID)
	assert.True(t, pub.closed)
}

func TestPublishFailuresAreCountedNotPropagated(t *testing.T) {
	m := metrics.New()
	failing := &memoryPublisher{err: errors.New("unreachable")}
	ok := &memoryPublisher{}
	d := NewDispatcher(m, []Publisher{failing, ok})

	assert.True(t, d.Dispatch(FromReport("Test", alertReport(1))))
	require.NoError(t, d.Close())

	assert.Len(t, ok.got(), 1)
	assert.Equal(t, uint64(1), m.AlertPublishErrors.Load())
	assert.Equal(t, uint64(1), m.AlertsDispatched.Load())
}

func TestFullQueueDropsWithoutBlocking(t *testing.T) {
	m := metrics.New()
	pub := &memoryPublisher{block: make(chan struct{})}
	d := NewDispatcher(m, []Publisher{pub}, WithQueueSize(1), WithPublishTimeout(time.Second))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			d.Dispatch(FromReport("Test", alertReport(i+1)))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a stalled publisher")
	}
	assert.Greater(t, m.AlertsDropped.Load(), uint64(0))

	close(pub.block)
	require.NoError(t, d.Close())
}

func TestListenersSeeEveryEvent(t *testing.T) {
	d := NewDispatcher(metrics.New(), nil, WithModuleName("Cabin"))
	var seen []Event
	d.Listen(func(e Event) { seen = append(seen, e) })

	d.OnFrame(alertReport(1))
	d.OnFrame(alertReport(2))
	require.NoError(t, d.Close())

	require.Len(t, seen, 2)
	assert.Equal(t, "Cabin", seen[0].Module)
	assert.Equal(t, 2, seen[1].TotalAlerts)

	assert.False(t, d.Dispatch(seen[0]), "closed dispatcher must refuse events")
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher()
	assert.Equal(t, "log", p.Name())
	assert.NoError(t, p.Publish(context.Background(), FromReport("X", alertReport(3))))
	assert.NoError(t, p.Close())
}
