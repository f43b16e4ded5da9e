package main

import (
	config "github.com/NordCoder/Tally/internal/config/ingest-api"
	"github.com/NordCoder/Tally/internal/obs"
	"go.uber.org/zap"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	l, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(l)
	return l, nil
}
