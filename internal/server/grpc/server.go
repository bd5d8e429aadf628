// Package grpc exposes the standard gRPC health service so orchestrators can
// probe the server next to its HTTP surface.
package grpc

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health-checked service besides the overall "" entry.
const ServiceName = "notekeeper.Notes"

const defaultProbeInterval = 15 * time.Second

// Pinger reports whether a backing dependency is reachable. *sql.DB fits.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type GRPCServer struct {
	address       string
	logger        logging.Logger
	health        *health.Server
	db            Pinger
	probeInterval time.Duration
}

func NewGRPCServer(a string, l logging.Logger, db Pinger) *GRPCServer {
	return &GRPCServer{
		address:       a,
		logger:        l.With("module", "grpc_server"),
		health:        health.NewServer(),
		db:            db,
		probeInterval: defaultProbeInterval,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.recoveryInterceptor, s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.probe(ctx)

	go func() {
		ticker := time.NewTicker(s.probeInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info(ctx, "Stopping gRPC health server...")
				s.health.Shutdown()
				srv.GracefulStop()
				return
			case <-ticker.C:
				s.probe(ctx)
			}
		}
	}()

	s.logger.Info(ctx, "Starting gRPC health server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}

	return nil
}

// probe pings the database and publishes the result for both service names.
func (s *GRPCServer) probe(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING

	if s.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, s.probeInterval)
		err := s.db.PingContext(pingCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn(ctx, "database ping failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
