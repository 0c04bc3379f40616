package grpcx

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/dentalcare/libs/runtime"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewServer builds a gRPC server carrying tracing, request ids and access
// logs, with the standard health service registered.
func NewServer(logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			UnaryServerRequestIDInterceptor(),
			UnaryServerLogInterceptor(logger),
		),
	}
	srv := grpc.NewServer(append(base, opts...)...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	return srv, hs
}

// WatchReadiness mirrors the HTTP /readyz checks into the health service for
// service (the empty name is the overall status) until ctx is done.
func WatchReadiness(ctx context.Context, hs *health.Server, service string, every time.Duration, logger *slog.Logger, checks ...runtime.ReadyCheck) {
	if every <= 0 {
		every = 5 * time.Second
	}
	update := func() {
		st := healthpb.HealthCheckResponse_SERVING
		if failures := runtime.RunChecks(ctx, checks); len(failures) > 0 {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			logger.Warn("not ready", "failures", failures)
		}
		hs.SetServingStatus("", st)
		if service != "" {
			hs.SetServingStatus(service, st)
		}
	}

	update()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			update()
		}
	}
}
