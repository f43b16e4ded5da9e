package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	config "github.com/NordCoder/Tally/internal/config/ingest-api"
	"github.com/NordCoder/Tally/internal/obs"
	pg "github.com/NordCoder/Tally/internal/repository/postgres"
	"github.com/NordCoder/Tally/migrations"
)

const usage = `usage: migrator [--config path] [--dsn dsn] <up|status|down> [--to version]`

func main() {
	cfgPath := pflag.StringP("config", "c", "config/ingest-api.yaml", "path to config file")
	dsn := pflag.String("dsn", "", "database dsn, overrides config and DB_DSN")
	to := pflag.Int64("to", 0, "target version for down")
	pflag.Usage = func() { fmt.Fprintln(os.Stderr, usage); pflag.PrintDefaults() }
	pflag.Parse()

	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	if *dsn != "" {
		cfg.DB.DSN = *dsn
	}

	logger, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := pg.NewMigrator(cfg.DB.DSN, migrations.FS, logger)
	if err != nil {
		logger.Fatal("migrator", zap.Error(err))
	}

	switch pflag.Arg(0) {
	case "up":
		err = m.Up(ctx)
	case "status":
		err = m.Status(ctx)
	case "down":
		err = m.Down(ctx, *to)
	default:
		pflag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal("migrate", zap.String("cmd", pflag.Arg(0)), zap.Error(err))
	}
	logger.Info("migrations: done", zap.String("cmd", pflag.Arg(0)))
}
