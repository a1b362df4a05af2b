package health

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/session"
)

func dial(t *testing.T, s *Server) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 16)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func check(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthFollowsSession(t *testing.T) {
	s := NewServer()
	c := dial(t, s)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, c, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, c, SessionService))

	s.SessionChanged(session.Info{Running: true})
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, c, SessionService))

	s.SessionChanged(session.Info{Running: false, LastError: "camera gone"})
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, c, SessionService))
}

func TestUnknownService(t *testing.T) {
	c := dial(t, NewServer())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: "nope"})
	assert.Error(t, err)
}
