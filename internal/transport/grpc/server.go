package grpcx

import (
	"context"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const defaultCallTimeout = 10 * time.Second

type Server struct {
	gs     *grpc.Server
	health *health.Server
}

func New(admin PresenceAdminServer, resolver IdentityResolver) *Server {
	gs := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			recoveryUnaryInterceptor(defaultCallTimeout),
			requestIDInterceptor(),
			loggingUnaryInterceptor(),
			authUnaryInterceptor(resolver),
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	gs.RegisterService(&PresenceAdminServiceDesc, admin)
	hs.SetServingStatus(adminServiceName, healthpb.HealthCheckResponse_SERVING)

	return &Server{gs: gs, health: hs}
}

// Run слушает addr и блокирует до завершения ctx.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("grpc listening", "addr", ln.Addr().String())
		errCh <- s.gs.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		s.stop()
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) stop() {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.gs.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		slog.Error("grpc graceful stop timeout; forcing stop")
		s.gs.Stop()
	}
	slog.Info("grpc stopped")
}
