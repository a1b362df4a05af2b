package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/alert"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/config"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/detector"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/drowsiness"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/metrics"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/session"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/pkg/types"
)

type stubPublisher struct {
	name   string
	closed bool
}

func (p *stubPublisher) Name() string { return p.name }
func (p *stubPublisher) Publish(context.Context, alert.Event) error { return nil }
func (p *stubPublisher) Close() error { p.closed = true; return nil }

func TestOpenPublishersLogOnly(t *testing.T) {
	pubs, err := OpenPublishers(context.Background(), config.Default().Alerts)
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	assert.Equal(t, "log", pubs[0].Name())
	ClosePublishers(pubs)
}

func TestOpenPublishersRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default().Alerts
	cfg.RedisAddr = mr.Addr()

	pubs, err := OpenPublishers(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, pubs, 2)
	assert.Equal(t, "redis", pubs[1].Name())

	disp := NewDispatcher(cfg, metrics.New(), pubs)
	disp.Dispatch(alert.Event{ID: "a1", Alert: alert.KindDrowsiness, TotalAlerts: 1})
	require.NoError(t, disp.Close(), "the dispatcher owns its publishers")

	items, err := mr.List(cfg.RedisKey)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestOpenPublishersClosesOnFailure(t *testing.T) {
	redisStub := &stubPublisher{name: "redis"}
	origRedis, origMQTT := dialRedis, dialMQTT
	t.Cleanup(func() { dialRedis, dialMQTT = origRedis, origMQTT })

	dialRedis = func(context.Context, string, ...alert.RedisOption) (alert.Publisher, error) {
		return redisStub, nil
	}
	dialMQTT = func(context.Context, alert.MQTTConfig) (alert.Publisher, error) {
		return nil, errors.New("broker down")
	}

	cfg := config.Default().Alerts
	cfg.RedisAddr = "redis:6379"
	cfg.MQTTBroker = "mqtt:1883"

	_, err := OpenPublishers(context.Background(), cfg)
	require.EqualError(t, err, "broker down")
	assert.True(t, redisStub.closed, "already opened backends are closed")
}

func TestOpenerReplaysImageDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"001.png", "002.png"} {
		require.NoError(t, imaging.Save(imaging.New(32, 24, color.White), filepath.Join(dir, name)))
	}

	src, err := Opener(config.SessionConfig{Source: dir}).Open(3)
	require.NoError(t, err)
	defer src.Close()

	f, err := src.NextFrame()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 24), f.Gray.Bounds())
	_ = f.Close()
}

func TestDetectorFactory(t *testing.T) {
	face := types.Region{X: 0, Y: 0, W: 40, H: 40}
	faces := detector.MatcherFunc(func(types.Image, detector.Params) ([]types.Region, error) {
		return []types.Region{face}, nil
	})
	eyes := detector.MatcherFunc(func(types.Image, detector.Params) ([]types.Region, error) {
		return []types.Region{{X: 5, Y: 5, W: 10, H: 10}}, nil
	})

	factory := DetectorFactory(faces, eyes)
	_, err := factory(0)
	assert.Error(t, err)

	det, err := factory(2)
	require.NoError(t, err)
	res, err := det.Detect(types.NewGrayImage(image.NewGray(image.Rect(0, 0, 64, 64))))
	require.NoError(t, err)
	assert.True(t, res.EyesOpen())
}

func TestInitLoggerRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, InitLogger(config.LogConfig{Level: "loud"}))
	assert.NoError(t, InitLogger(config.LogConfig{Level: "info"}))
}

func phaseReport(id string, seq uint64, phase drowsiness.Phase) *session.Report {
	return &session.Report{
		SessionID: id,
		Frame:     &types.Frame{Seq: seq},
		Output:    drowsiness.Output{Phase: phase},
	}
}

func TestTransitionLogOnlyCountsChanges(t *testing.T) {
	tl := NewTransitionLog()
	tl.OnFrame(phaseReport("a", 1, drowsiness.Awake))
	tl.OnFrame(phaseReport("a", 2, drowsiness.EyesClosedTiming))
	tl.OnFrame(phaseReport("a", 3, drowsiness.EyesClosedTiming))
	tl.OnFrame(phaseReport("a", 4, drowsiness.Alerting))
	tl.OnFrame(phaseReport("a", 5, drowsiness.Alerting))
	assert.Equal(t, 2, tl.Changes())

	// A new session starts from AWAKE again.
	tl.OnFrame(phaseReport("b", 1, drowsiness.Awake))
	assert.Equal(t, 2, tl.Changes())
}

func TestNewSnapshotter(t *testing.T) {
	cfg := config.Default().Server
	cfg.SnapshotDir = ""
	snaps, err := NewSnapshotter(cfg, metrics.New())
	require.NoError(t, err)
	assert.Nil(t, snaps, "no directory, no snapshots")

	cfg.SnapshotDir = t.TempDir()
	cfg.SnapshotFormat = "gif"
	_, err = NewSnapshotter(cfg, metrics.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot format")

	cfg.SnapshotFormat = "png"
	snaps, err = NewSnapshotter(cfg, metrics.New())
	require.NoError(t, err)
	require.NotNil(t, snaps)
	path, err := snaps.Save(imaging.New(8, 8, color.Black), time.Now(), 1)
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(path))
}
