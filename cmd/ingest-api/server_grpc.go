package main

import (
	"context"
	"net"
	"time"

	grpcprometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	config "github.com/NordCoder/Tally/internal/config/ingest-api"
	"github.com/NordCoder/Tally/internal/obs"
)

const ingestService = "tally.IngestService"

func buildGRPCServer(cfg *config.Config) (*grpc.Server, *health.Server, net.Listener, error) {
	grpcMetrics := grpcprometheus.NewServerMetrics()
	grpcMetrics.EnableHandlingTimeHistogram()

	opts := obs.GRPCServerOpts()
	opts = append(opts,
		grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(grpcMetrics.StreamServerInterceptor()),
	)
	grpcServer := grpc.NewServer(opts...)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	reflection.Register(grpcServer)
	grpcMetrics.InitializeMetrics(grpcServer)
	if err := prometheus.Register(grpcMetrics); err != nil {
		return nil, nil, nil, err
	}

	ln, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return nil, nil, nil, err
	}
	return grpcServer, hs, ln, nil
}

// watchHealth flips the health status with the store's reachability until ctx is done.
func watchHealth(ctx context.Context, hs *health.Server, ping func(context.Context) error, every time.Duration, logger *zap.Logger) {
	set := func() {
		pctx, cancel := context.WithTimeout(ctx, every/2)
		defer cancel()
		status := healthpb.HealthCheckResponse_SERVING
		if err := ping(pctx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			logger.Warn("health: store unreachable", zap.Error(err))
		}
		hs.SetServingStatus("", status)
		hs.SetServingStatus(ingestService, status)
	}
	set()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-t.C:
			set()
		}
	}
}

func serveGRPC(s *grpc.Server, ln net.Listener, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("grpc listening", zap.String("addr", cfg.Server.GRPCAddr))
	return s.Serve(ln)
}

func gracefulStopGRPC(s *grpc.Server) { s.GracefulStop() }
