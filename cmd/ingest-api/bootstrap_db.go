package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	config "github.com/NordCoder/Tally/internal/config/ingest-api"
	"github.com/NordCoder/Tally/internal/domain/measurement"
	"github.com/NordCoder/Tally/internal/domain/outbox"
	"github.com/NordCoder/Tally/internal/domain/tx"
	"github.com/NordCoder/Tally/internal/repository/memory"
	pg "github.com/NordCoder/Tally/internal/repository/postgres"
	"github.com/NordCoder/Tally/migrations"
)

type storage struct {
	records   measurement.RecordRepo
	summaries measurement.SummaryRepo
	outbox    outbox.Repository
	tx        tx.Transactor
	ping      func(context.Context) error
	close     func()
}

func initStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	if cfg.Storage.Driver == "memory" {
		logger.Warn("using in-memory storage; data is lost on restart")
		s := memory.New()
		return &storage{
			records:   s.Records(),
			summaries: s.Summaries(),
			outbox:    s.Outbox(),
			tx:        s,
			ping:      func(context.Context) error { return nil },
			close:     func() {},
		}, nil
	}

	if cfg.Storage.MigrateOnStart {
		m, err := pg.NewMigrator(cfg.DB.DSN, migrations.FS, logger)
		if err != nil {
			return nil, err
		}
		if err := m.Up(ctx); err != nil {
			return nil, fmt.Errorf("migrate on start: %w", err)
		}
	}

	db, err := pg.New(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	logger.Info("postgres connected", zap.String("isolation", string(db.Isolation)))
	return &storage{
		records:   pg.NewRecordRepo(db),
		summaries: pg.NewSummaryRepo(db),
		outbox:    pg.NewOutboxRepo(db),
		tx:        pg.NewTransactor(db, logger.With(zap.String("component", "pg.transactor"))),
		ping:      db.Ping,
		close:     db.Close,
	}, nil
}
