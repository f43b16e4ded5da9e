package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// Migrator applies goose migrations from an embedded FS. It opens its own
// database/sql handle because goose does not work on a pgx pool.
type Migrator struct {
	dsn     string
	fsys    fs.FS
	log     *zap.Logger
	timeout time.Duration
}

func NewMigrator(dsn string, fsys fs.FS, log *zap.Logger) (*Migrator, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty database dsn")
	}
	if fsys == nil {
		return nil, fmt.Errorf("nil migrations fs")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Migrator{dsn: dsn, fsys: fsys, log: log.With(zap.String("component", "migrator")), timeout: time.Minute}, nil
}

func (m *Migrator) Up(ctx context.Context) error {
	return m.withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		m.log.Info("applying migrations")
		if err := goose.UpContext(ctx, db, "."); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		v, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("read db version: %w", err)
		}
		m.log.Info("migrations applied", zap.Int64("version", v))
		return nil
	})
}

func (m *Migrator) Status(ctx context.Context) error {
	return m.withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		if err := goose.StatusContext(ctx, db, "."); err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		return nil
	})
}

// Down rolls back one migration, or down to target when target > 0.
func (m *Migrator) Down(ctx context.Context, target int64) error {
	return m.withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		if target > 0 {
			m.log.Info("rolling back migrations", zap.Int64("target", target))
			if err := goose.DownToContext(ctx, db, ".", target); err != nil {
				return fmt.Errorf("rollback to version %d: %w", target, err)
			}
			return nil
		}
		m.log.Info("rolling back latest migration")
		if err := goose.DownContext(ctx, db, "."); err != nil {
			return fmt.Errorf("rollback latest migration: %w", err)
		}
		return nil
	})
}

func (m *Migrator) withDB(ctx context.Context, fn func(context.Context, *sql.DB) error) error {
	goose.SetBaseFS(m.fsys)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}

	db, err := sql.Open("pgx", m.dsn)
	if err != nil {
		return fmt.Errorf("open sql connection: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sql connection: %w", err)
	}
	return fn(ctx, db)
}
