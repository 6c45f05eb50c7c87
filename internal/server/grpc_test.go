package server

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type flipChecker struct {
	failing atomic.Bool
}

func (f *flipChecker) Check(context.Context) map[string]string {
	if f.failing.Load() {
		return map[string]string{"postgres": "unavailable"}
	}
	return nil
}

func dialHealth(t *testing.T, s *grpc.Server) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func healthStatus(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

// servingStatus is healthStatus without test assertions, for use inside Eventually.
func servingStatus(client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN
	}
	return resp.GetStatus()
}

func TestGRPCHealth_StartsNotServing(t *testing.T) {
	s, _ := NewGRPCServer(nil)
	client := dialHealth(t, s)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, healthStatus(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, healthStatus(t, client, ServiceName))
}

func TestWatchReadiness(t *testing.T) {
	s, hs := NewGRPCServer(nil)
	client := dialHealth(t, s)
	checker := &flipChecker{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		WatchReadiness(ctx, checker, hs, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return servingStatus(client, ServiceName) == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 10*time.Millisecond)

	checker.failing.Store(true)
	assert.Eventually(t, func() bool {
		return servingStatus(client, "") == healthpb.HealthCheckResponse_NOT_SERVING
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WatchReadiness did not return after cancel")
	}
}

func TestRecoveryUnary(t *testing.T) {
	interceptor := RecoveryUnary(zap.NewNop())
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/test.Service/Panic"},
		func(ctx context.Context, req interface{}) (interface{}, error) { panic("boom") })
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestLoggingUnary_PassesThrough(t *testing.T) {
	interceptor := LoggingUnary(zap.NewNop())
	resp, err := interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "/test.Service/Ok"},
		func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
}
