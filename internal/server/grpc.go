package server

import (
	"context"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceName is the grpc.health.v1 service name reported next to the overall ("") status.
const ServiceName = "miniiam.v1.Identity"

// ReadinessChecker reports failing dependencies; an empty result means ready.
type ReadinessChecker interface {
	Check(ctx context.Context) map[string]string
}

// NewGRPCServer returns a gRPC server exposing grpc.health.v1, instrumented with otelgrpc,
// plus the health server so callers can drive its status. Both statuses start NOT_SERVING.
func NewGRPCServer(logger *zap.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("grpc")
	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(RecoveryUnary(logger), LoggingUnary(logger)),
	)
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s, hs
}

// WatchReadiness runs checker every interval and mirrors the result into hs until ctx is done.
// The first check runs immediately.
func WatchReadiness(ctx context.Context, checker ReadinessChecker, hs *health.Server, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	update := func() {
		st := healthpb.HealthCheckResponse_SERVING
		if len(checker.Check(ctx)) > 0 {
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", st)
		hs.SetServingStatus(ServiceName, st)
	}
	update()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			update()
		}
	}
}

// LoggingUnary logs each RPC with its status code and duration.
func LoggingUnary(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("duration", time.Since(start)),
		}
		if code == codes.Internal || code == codes.Unknown {
			logger.Error("rpc completed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("rpc completed", fields...)
		}
		return resp, err
	}
}

// RecoveryUnary converts a handler panic into codes.Internal.
func RecoveryUnary(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered",
					zap.String("method", info.FullMethod),
					zap.Any("error", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
