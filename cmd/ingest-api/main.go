package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	config "github.com/NordCoder/Tally/internal/config/ingest-api"
	"github.com/NordCoder/Tally/internal/ingest"
	"github.com/NordCoder/Tally/internal/services/ingest-api/files"
)

func main() {
	cfgPath := pflag.StringP("config", "c", "config/ingest-api.yaml", "path to config file")
	pflag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting ingest-api",
		zap.String("env", cfg.App.Env),
		zap.String("ver", cfg.App.Version),
		zap.String("storage", cfg.Storage.Driver),
	)

	otelShutdown, err := initOTel(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	st, err := initStorage(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("storage init", zap.Error(err))
	}
	defer st.close()

	events, relay, closeRelay, err := initOutbox(rootCtx, cfg, st, logger)
	if err != nil {
		logger.Fatal("outbox init", zap.Error(err))
	}
	defer func() { _ = closeRelay() }()

	pipeline := ingest.NewPipeline(ingest.Deps{
		Log:        logger,
		Records:    st.records,
		Summaries:  st.summaries,
		Transactor: st.tx,
		Events:     events,
		Validator:  cfg.Ingest.AsValidatorConfig(),
	})
	ctrl := files.NewController(logger, pipeline,
		files.NewUsecase(st.records, st.summaries, cfg.Ingest.LastValuesLimit),
		cfg.Server.MaxUploadBytes,
	)

	grpcServer, hs, grpcLn, err := buildGRPCServer(cfg)
	if err != nil {
		logger.Fatal("build grpc", zap.Error(err))
	}
	httpSrv, err := buildHTTPServer(cfg, logger, st, ctrl)
	if err != nil {
		logger.Fatal("build http", zap.Error(err))
	}

	bgCtx, bgCancel := context.WithCancel(rootCtx)
	var bg sync.WaitGroup
	bg.Add(2)
	go func() { defer bg.Done(); watchHealth(bgCtx, hs, st.ping, 5*time.Second, logger) }()
	go func() { defer bg.Done(); relay(bgCtx) }()

	grpcErrCh := make(chan error, 1)
	go func() { grpcErrCh <- serveGRPC(grpcServer, grpcLn, cfg, logger) }()

	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, cfg, logger) }()

	var runErr error
	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case runErr = <-grpcErrCh:
		if runErr != nil {
			logger.Error("grpc serve", zap.Error(runErr))
		}
	case runErr = <-httpErrCh:
		if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(runErr))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	_ = httpSrv.Shutdown(shCtx)
	gracefulStopGRPC(grpcServer)

	bgCancel()
	bg.Wait()
	logger.Info("bye")
}
