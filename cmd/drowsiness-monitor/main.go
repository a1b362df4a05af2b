package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/alert"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/app"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/config"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/logger"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/metrics"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/recorder"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/session"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/vision"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/webmonitor"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/webrtc"
)

// Server is the dashboard process
type Server struct {
	cfg        config.Config
	metrics    *metrics.Metrics
	matchers   *vision.Matchers
	dispatcher *alert.Dispatcher
	controller *session.Controller
	monitor    *webmonitor.Monitor
	recorder   *recorder.Recorder
	webrtc     *webrtc.Server
	web        *webmonitor.Server
	background *app.Background
	httpServer *http.Server
}

func main() {
	cfg, err := config.Load("drowsiness-monitor", os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := app.InitLogger(cfg.Log); err != nil {
		log.Fatalf("%v", err)
	}

	logger.Info("Main", "Drowsiness monitor starting...")
	logger.Info("Main", "Log level: %s", cfg.Log.Level)

	srv, err := NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Main", "Shutting down...")
	srv.Shutdown()
	logger.Info("Main", "Server stopped")
}

// NewServer loads the cascades and wires every component.
func NewServer(cfg config.Config) (*Server, error) {
	m := metrics.New()

	snaps, err := app.NewSnapshotter(cfg.Server, m)
	if err != nil {
		return nil, err
	}

	matchers, err := vision.LoadMatchers(cfg.Detection.FaceModel, cfg.Detection.EyeModel, cfg.Detection.CascadeDirs)
	if err != nil {
		return nil, fmt.Errorf("load cascades: %w", err)
	}

	pubs, err := app.OpenPublishers(context.Background(), cfg.Alerts)
	if err != nil {
		matchers.Close()
		return nil, err
	}
	dispatcher := app.NewDispatcher(cfg.Alerts, m, pubs)

	monCfg := cfg.Monitor()
	rec := recorder.NewRecorder(monCfg.RecordingOutputPath, m)
	monitor := webmonitor.NewMonitor(monCfg, rec, snaps, m)
	dispatcher.Listen(monitor.OnAlert)

	runner := session.NewRunner(
		app.Opener(cfg.Session),
		app.DetectorFactory(matchers.Face, matchers.Eye),
		session.MultiSink{monitor, dispatcher},
		m,
	)
	controller := session.NewController(runner, cfg.Settings(), cfg.Options())

	var rtc *webrtc.Server
	if cfg.Server.WebRTC {
		rtc = webrtc.NewServer(cfg.WebRTC(), m)
	}

	web := webmonitor.NewServer(monCfg, webmonitor.Deps{
		Controller: controller,
		Monitor:    monitor,
		Recorder:   rec,
		WebRTC:     rtc,
		Metrics:    m,
	})

	return &Server{
		cfg:        cfg,
		metrics:    m,
		matchers:   matchers,
		dispatcher: dispatcher,
		controller: controller,
		monitor:    monitor,
		recorder:   rec,
		webrtc:     rtc,
		web:        web,
		httpServer: &http.Server{
			Addr:              monCfg.Addr,
			Handler:           web.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Start starts the listeners. Detection itself starts from the dashboard.
func (s *Server) Start() error {
	logger.Info("Main", "  HTTP server: %s", s.cfg.Server.HTTPAddr)
	logger.Info("Main", "  Metrics server: %s", s.cfg.Server.MetricsAddr)
	logger.Info("Main", "  gRPC health: %s", s.cfg.Server.GRPCAddr)
	logger.Info("Main", "  Recording path: %s", s.cfg.Server.RecordingPath)

	bg, err := app.StartBackground(s.cfg.Server, s.metrics, s.controller)
	if err != nil {
		return err
	}
	s.background = bg
	s.web.Start()

	go func() {
		logger.Info("Main", "Dashboard listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Main", "HTTP server error: %v", err)
		}
	}()
	return nil
}

// Shutdown stops the session first so the camera is released before
// anything else goes away.
func (s *Server) Shutdown() {
	s.controller.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.web.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Warn("Main", "HTTP shutdown: %v", err)
	}
	if s.background != nil {
		s.background.Shutdown(ctx)
	}
	if s.webrtc != nil {
		if err := s.webrtc.Close(); err != nil {
			logger.Warn("Main", "WebRTC close: %v", err)
		}
	}
	if err := s.recorder.Close(); err != nil {
		logger.Warn("Main", "Recorder close: %v", err)
	}
	s.monitor.Close()
	if err := s.dispatcher.Close(); err != nil {
		logger.Warn("Main", "Alert publishers: %v", err)
	}
	if err := s.matchers.Close(); err != nil {
		logger.Warn("Main", "Cascades: %v", err)
	}
}
