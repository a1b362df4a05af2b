// Package health exposes the standard gRPC health service for
// orchestrators. The overall service is SERVING while the process is up;
// SessionService follows the monitoring session.
package health

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/logger"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/session"
)

// SessionService is the health service name tracking the session loop.
const SessionService = "drowsiness.Session"

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	log    logger.Module
}

func NewServer() *Server {
	s := &Server{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
		log:    logger.For("Health"),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(SessionService, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Track mirrors the controller's session state into SessionService.
func (s *Server) Track(c *session.Controller) {
	s.SessionChanged(c.Info())
	c.OnChange(s.SessionChanged)
}

// SessionChanged updates SessionService from a lifecycle snapshot.
func (s *Server) SessionChanged(info session.Info) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if info.Running {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(SessionService, status)
}

// Serve blocks serving on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Infof("gRPC health listening on %s", lis.Addr())
	return s.grpc.Serve(lis)
}

// Stop marks everything NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
