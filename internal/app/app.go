// Package app holds the wiring shared by the monitor binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/alert"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/camera"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/config"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/detector"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/health"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/logger"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/metrics"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/recorder"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/session"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/vision"
)

// InitLogger configures the global logger from cfg.
func InitLogger(cfg config.LogConfig) error {
	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger.Init(level, os.Stderr, cfg.Color)
	return nil
}

// DetectorFactory builds a detector per session from shared matchers.
func DetectorFactory(faces, eyes detector.Matcher) session.DetectorFactory {
	return func(sensitivity int) (session.FrameDetector, error) {
		d, err := detector.New(faces, eyes, sensitivity)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}

// Opener picks the frame source: a camera by default, otherwise an image
// directory or a video file/URL named by cfg.Source.
func Opener(cfg config.SessionConfig) camera.Opener {
	if cfg.Source == "" {
		return vision.DeviceOpener()
	}
	if info, err := os.Stat(cfg.Source); err == nil && info.IsDir() {
		return camera.ImageDirOpener(cfg.Source, cfg.Loop)
	}
	return vision.FileOpener(cfg.Source)
}

// dialers can be swapped in tests.
var (
	dialRedis = func(ctx context.Context, addr string, opts ...alert.RedisOption) (alert.Publisher, error) {
		return alert.DialRedis(ctx, addr, opts...)
	}
	openPostgres = func(ctx context.Context, dsn string) (alert.Publisher, error) {
		return alert.OpenPostgres(ctx, dsn)
	}
	dialMQTT = func(ctx context.Context, cfg alert.MQTTConfig) (alert.Publisher, error) {
		return alert.DialMQTT(ctx, cfg)
	}
)

// OpenPublishers connects every configured alert backend. The log
// publisher is always first. A backend that fails to connect is an error:
// the operator asked for it.
func OpenPublishers(ctx context.Context, cfg config.AlertsConfig) ([]alert.Publisher, error) {
	pubs := []alert.Publisher{alert.NewLogPublisher()}
	fail := func(err error) ([]alert.Publisher, error) {
		ClosePublishers(pubs)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if cfg.RedisAddr != "" {
		p, err := dialRedis(ctx, cfg.RedisAddr, alert.WithRedisKey(cfg.RedisKey))
		if err != nil {
			return fail(err)
		}
		pubs = append(pubs, p)
	}
	if cfg.PostgresDSN != "" {
		p, err := openPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return fail(err)
		}
		pubs = append(pubs, p)
	}
	if cfg.MQTTBroker != "" {
		p, err := dialMQTT(ctx, alert.MQTTConfig{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			TopicPrefix: cfg.MQTTTopicPrefix,
			QoS:         1,
		})
		if err != nil {
			return fail(err)
		}
		pubs = append(pubs, p)
	}

	for _, p := range pubs {
		logger.Info("Main", "Alert publisher: %s", p.Name())
	}
	return pubs, nil
}

// ClosePublishers closes every publisher, logging failures.
func ClosePublishers(pubs []alert.Publisher) {
	for _, p := range pubs {
		if err := p.Close(); err != nil {
			logger.Warn("Main", "Close %s: %v", p.Name(), err)
		}
	}
}

// NewDispatcher creates the alert dispatcher for cfg.
func NewDispatcher(cfg config.AlertsConfig, m *metrics.Metrics, pubs []alert.Publisher) *alert.Dispatcher {
	return alert.NewDispatcher(m, pubs,
		alert.WithModuleName(cfg.ModuleName),
		alert.WithQueueSize(cfg.QueueSize),
		alert.WithPublishTimeout(cfg.PublishTimeout),
	)
}

// Background runs the optional metrics and gRPC health listeners.
type Background struct {
	metricsSrv *http.Server
	health     *health.Server
}

// StartBackground starts the metrics server and gRPC health service on
// the configured addresses; empty addresses disable them.
func StartBackground(cfg config.ServerConfig, m *metrics.Metrics, ctrl *session.Controller) (*Background, error) {
	b := &Background{}

	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return nil, fmt.Errorf("grpc listen %s: %w", cfg.GRPCAddr, err)
		}
		b.health = health.NewServer()
		b.health.Track(ctrl)
		go func() {
			if err := b.health.Serve(lis); err != nil {
				logger.Error("Main", "gRPC health server: %v", err)
			}
		}()
	}

	if cfg.MetricsAddr != "" {
		b.metricsSrv = m.NewServer(cfg.MetricsAddr)
		go func() {
			logger.Info("Main", "Metrics server listening on %s", cfg.MetricsAddr)
			if err := b.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Main", "Metrics server: %v", err)
			}
		}()
	}
	return b, nil
}

// Shutdown stops the background listeners.
func (b *Background) Shutdown(ctx context.Context) {
	if b.metricsSrv != nil {
		if err := b.metricsSrv.Shutdown(ctx); err != nil {
			logger.Warn("Main", "Metrics shutdown: %v", err)
		}
	}
	if b.health != nil {
		b.health.Stop()
	}
}

// NewSnapshotter returns the alert snapshot writer, or nil when no
// snapshot directory is configured.
func NewSnapshotter(cfg config.ServerConfig, m *metrics.Metrics) (*recorder.Snapshotter, error) {
	if cfg.SnapshotDir == "" {
		return nil, nil
	}
	format, err := recorder.ParseFormat(cfg.SnapshotFormat)
	if err != nil {
		return nil, fmt.Errorf("snapshot format: %w", err)
	}
	return recorder.NewSnapshotter(cfg.SnapshotDir, format, cfg.JPEGQuality, m), nil
}
