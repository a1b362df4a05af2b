// drowsiness-headless runs detection without the dashboard against a
// camera, a video file or stream URL, or a directory of images.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/app"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/config"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/logger"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/metrics"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/session"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/vision"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load("drowsiness-headless", os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		log.Printf("Invalid configuration: %v", err)
		return 2
	}
	if err := app.InitLogger(cfg.Log); err != nil {
		log.Printf("%v", err)
		return 2
	}

	source := cfg.Session.Source
	if source == "" {
		source = "camera"
	}
	logger.Info("Main", "Headless drowsiness detection starting (source=%s)", source)

	m := metrics.New()
	matchers, err := vision.LoadMatchers(cfg.Detection.FaceModel, cfg.Detection.EyeModel, cfg.Detection.CascadeDirs)
	if err != nil {
		logger.Error("Main", "Load cascades: %v", err)
		return 1
	}
	defer matchers.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pubs, err := app.OpenPublishers(ctx, cfg.Alerts)
	if err != nil {
		logger.Error("Main", "Alert publishers: %v", err)
		return 1
	}
	dispatcher := app.NewDispatcher(cfg.Alerts, m, pubs)
	defer func() {
		if err := dispatcher.Close(); err != nil {
			logger.Warn("Main", "Alert publishers: %v", err)
		}
	}()

	runner := session.NewRunner(
		app.Opener(cfg.Session),
		app.DetectorFactory(matchers.Face, matchers.Eye),
		session.MultiSink{app.NewTransitionLog(), dispatcher},
		m,
	)
	controller := session.NewController(runner, cfg.Settings(), cfg.Options())

	bg, err := app.StartBackground(cfg.Server, m, controller)
	if err != nil {
		logger.Error("Main", "%v", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		bg.Shutdown(shutdownCtx)
	}()

	if err := controller.Start(); err != nil {
		logger.Error("Main", "Start session: %v", err)
		return 1
	}
	if err := controller.Wait(ctx); err != nil {
		logger.Info("Main", "Interrupted, stopping session...")
	}
	controller.Close()

	info := controller.Info()
	logger.Info("Main", "Finished: sessions=%d frames=%d alerts=%d end=%s",
		info.Sessions, info.Frames, m.AlertsTotal.Load(), info.LastEnd)
	if info.LastError != "" {
		logger.Error("Main", "Session failed (%s): %s", info.LastErrorKind, info.LastError)
		return 1
	}
	return 0
}
