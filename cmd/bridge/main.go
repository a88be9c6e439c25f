package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/HammerMeetNail/playhub/internal/bridge"
	"github.com/HammerMeetNail/playhub/internal/config"
	"github.com/HammerMeetNail/playhub/internal/database"
	"github.com/HammerMeetNail/playhub/internal/logging"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Bridge error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New().WithField("component", "bridge")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
	}

	desc, err := directDescriptor(cfg.Database.DSN())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Bridge.RunMigrations {
		if err := migrate(logger, desc, cfg.Server.MigrationsPath); err != nil {
			return err
		}
	}

	executor, err := database.Open(ctx, desc, database.Options{
		Pool: database.PoolOptions{
			MaxConns:        int32(cfg.Database.MaxConns),
			MinConns:        int32(cfg.Database.MinConns),
			ApplicationName: "playhub-bridge",
		},
		QueryTimeout: cfg.Database.QueryTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer executor.Close()
	logger.Info("Connected to PostgreSQL", map[string]interface{}{"descriptor": desc.Redacted()})

	srv := bridge.NewServer(executor, bridge.Options{
		Token:     cfg.Bridge.Token,
		RateLimit: cfg.Bridge.RateLimit,
		RateBurst: cfg.Bridge.RateBurst,
		TxTimeout: cfg.Bridge.TxTimeout,
		Logger:    logger,
	})
	if cfg.Bridge.Token == "" {
		logger.Warn("BRIDGE_TOKEN is not set; the bridge accepts unauthenticated requests")
	}

	httpServer := &http.Server{
		Addr:         cfg.Bridge.Addr(),
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Bridge listening", map[string]interface{}{"addr": httpServer.Addr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("bridge server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Bridge is shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Bridge stopped")
	return nil
}

// directDescriptor parses raw and rejects anything but a direct Postgres
// descriptor; a bridge pointing at another bridge is a misconfiguration.
func directDescriptor(raw string) (database.Descriptor, error) {
	desc, err := database.ParseDescriptor(raw)
	if err != nil {
		return database.Descriptor{}, err
	}
	if desc.Transport != database.TransportDirect {
		return database.Descriptor{}, &database.ConfigurationError{Reason: "the bridge needs a postgres:// descriptor"}
	}
	return desc, nil
}

func migrate(logger *logging.Logger, desc database.Descriptor, path string) error {
	logger.Info("Running database migrations...", map[string]interface{}{"path": path})
	migrator, err := database.NewMigrator(desc.URL, path)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()
	if err := migrator.Up(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("Migrations completed")
	return nil
}
