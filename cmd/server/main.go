package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/diewo77/garage-invoices/auth"
	"github.com/diewo77/garage-invoices/internal/config"
	"github.com/diewo77/garage-invoices/internal/db"
	"github.com/diewo77/garage-invoices/internal/logging"
	"github.com/diewo77/garage-invoices/internal/services"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "server",
		Short:         "Garage invoicing API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			if err := serve(cmd.Context(), cfg, log); err != nil {
				log.Error("server stopped", slog.Any("error", err))
				return err
			}
			return nil
		},
	}
	root.AddCommand(newMigrateCmd(), newSeedCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and exit",
		Long: `Applies the schema. With MIGRATIONS=1 the embedded SQL migrations are used,
otherwise the schema is derived from the models.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			conn, err := db.Open(cmd.Context(), cfg.Database, log)
			if err != nil {
				return err
			}
			defer db.Close(conn)

			switch {
			case down:
				err = db.MigrateSQLDown(conn, cfg.Database.Driver)
			case cfg.Database.Migrations:
				err = db.MigrateSQL(conn, cfg.Database.Driver)
			default:
				err = db.Migrate(conn)
			}
			if err != nil {
				log.Error("migration failed", slog.Any("error", err))
				return err
			}
			if version, dirty, ok, verr := db.SchemaVersion(conn, cfg.Database.Driver); verr == nil && ok {
				log.Info("migrations completed", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
			} else {
				log.Info("migrations completed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back all SQL migrations")
	return cmd
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the admin account from ADMIN_EMAIL and ADMIN_PASSWORD and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			conn, err := db.Open(cmd.Context(), cfg.Database, log)
			if err != nil {
				return err
			}
			defer db.Close(conn)
			if err := db.Seed(cmd.Context(), conn, adminFrom(cfg)); err != nil {
				log.Error("seeding failed", slog.Any("error", err))
				return err
			}
			log.Info("seeding completed")
			return nil
		},
	}
}

func bootstrap() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}
	log := logging.NewLogger(cfg.App.LogFormat, cfg.App.LogLevel, os.Stderr)
	slog.SetDefault(log)
	return cfg, log, nil
}

func adminFrom(cfg *config.Config) db.Admin {
	return db.Admin{
		Name:     cfg.Auth.AdminName,
		Email:    cfg.Auth.AdminEmail,
		Password: cfg.Auth.AdminPassword,
	}
}

// serve runs the HTTP server until ctx is cancelled or SIGINT/SIGTERM arrives.
func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Setup(ctx, cfg.Database, adminFrom(cfg), log)
	if err != nil {
		return err
	}
	defer db.Close(conn)

	auth.SetSecret(cfg.Auth.SessionSecret)
	auth.SetUserVerifier(services.NewAuthService(conn).Exists)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      NewApp(conn, cfg, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(log.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("driver", cfg.Database.Driver),
			slog.Bool("dev", cfg.App.Dev),
			slog.Bool("require_auth", cfg.Auth.RequireAuth))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		log.Info("server stopped gracefully")
		return nil
	})
	return g.Wait()
}
