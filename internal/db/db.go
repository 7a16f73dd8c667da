// Package db opens the gorm connection, creates the schema and seeds it.
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/diewo77/garage-invoices/internal/config"
	"github.com/diewo77/garage-invoices/internal/logging"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	connectAttempts = 10
	connectDelay    = 2 * time.Second
)

// Open connects to the configured database. PostgreSQL connections are
// retried to give the server time to start; SQLite opens once.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	if log == nil {
		log = slog.Default()
	}
	gcfg := &gorm.Config{
		Logger:         logging.NewGormLogger(log, cfg.Debug),
		TranslateError: true,
	}

	var (
		conn *gorm.DB
		err  error
	)
	switch cfg.Driver {
	case config.DriverSQLite, "":
		conn, err = gorm.Open(sqlite.Open(SQLiteDSN(cfg.Path)), gcfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
		}
		if IsMemorySQLite(cfg.Path) {
			// A shared-cache memory database locks whole tables across
			// connections; one connection serializes access instead.
			sqlDB, err := conn.DB()
			if err != nil {
				return nil, err
			}
			sqlDB.SetMaxOpenConns(1)
		}
		log.Info("database opened", slog.String("driver", config.DriverSQLite), slog.String("path", cfg.Path))

	case config.DriverPostgres:
		dsn := NormalizeDSN(cfg.DSN)
		if dsn == "" {
			return nil, errors.New("DATABASE_DSN is empty, check the environment configuration")
		}
		for i := 0; i < connectAttempts; i++ {
			conn, err = gorm.Open(postgres.Open(dsn), gcfg)
			if err == nil {
				break
			}
			log.Warn("retrying database connection",
				slog.Int("attempt", i+1), slog.Any("error", err))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(connectDelay):
			}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to connect database after retries: %w", err)
		}
		log.Info("database opened", slog.String("driver", config.DriverPostgres), slog.String("dsn", MaskDSN(dsn)))

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	if err := Ping(ctx, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// Ping checks that the database answers.
func Ping(ctx context.Context, conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("db handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping failed: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Setup opens the database, builds the schema (SQL migrations when
// cfg.Migrations is set, AutoMigrate otherwise) and seeds when cfg.Seed is set.
func Setup(ctx context.Context, cfg config.DatabaseConfig, admin Admin, log *slog.Logger) (*gorm.DB, error) {
	conn, err := Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if cfg.Migrations {
		err = MigrateSQL(conn, cfg.Driver)
	} else {
		err = Migrate(conn)
	}
	if err != nil {
		_ = Close(conn)
		return nil, err
	}
	if cfg.Seed {
		if err := Seed(ctx, conn, admin); err != nil {
			_ = Close(conn)
			return nil, err
		}
	}
	return conn, nil
}
