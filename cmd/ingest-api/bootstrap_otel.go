package main

import (
	"context"

	config "github.com/NordCoder/Tally/internal/config/ingest-api"
	"github.com/NordCoder/Tally/internal/obs"
	"go.uber.org/zap"
)

func initOTel(ctx context.Context, cfg *config.Config, logger *zap.Logger) (func(context.Context) error, error) {
	o, err := obs.SetupOTel(ctx, cfg.AsOTELConfig())
	if err != nil {
		return nil, err
	}
	logger.Info("otel ready", zap.Bool("export", cfg.OTEL.Enable), zap.String("endpoint", cfg.OTEL.OTLPEndpoint))
	return o.Shutdown, nil
}
