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

	"github.com/HammerMeetNail/playhub/internal/config"
	"github.com/HammerMeetNail/playhub/internal/database"
	"github.com/HammerMeetNail/playhub/internal/handlers"
	"github.com/HammerMeetNail/playhub/internal/logging"
	"github.com/HammerMeetNail/playhub/internal/middleware"
	"github.com/HammerMeetNail/playhub/internal/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
		logger.Debug("Debug logging enabled", map[string]interface{}{"env": cfg.Server.Environment})
	}

	logger.Info("Starting PlayHub server...")

	desc, err := database.ParseDescriptor(cfg.Database.DSN())
	if err != nil {
		return err
	}

	ctx := context.Background()

	if desc.Transport == database.TransportDirect {
		if err := runMigrations(logger, desc, cfg.Server.MigrationsPath); err != nil {
			return err
		}
	} else {
		logger.Info("Skipping migrations; the bridge owns the schema", map[string]interface{}{
			"bridge": desc.Redacted(),
		})
	}

	logger.Info("Opening database", map[string]interface{}{
		"transport":  desc.Transport.String(),
		"descriptor": desc.Redacted(),
	})
	executor, err := database.Open(ctx, desc, database.Options{
		Pool: database.PoolOptions{
			MaxConns: int32(cfg.Database.MaxConns),
			MinConns: int32(cfg.Database.MinConns),
		},
		QueryTimeout: cfg.Database.QueryTimeout,
		BridgeToken:  cfg.Database.BridgeToken,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer executor.Close()
	logger.Info("Database ready")

	if !cfg.Redis.Enabled {
		return errors.New("redis is required for session lookup; set REDIS_ENABLED=true")
	}
	logger.Info("Connecting to Redis", map[string]interface{}{"addr": cfg.Redis.Addr()})
	redisDB, err := database.NewRedisDB(ctx, database.RedisOptions{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()
	logger.Info("Connected to Redis")

	userService := services.NewUserService(executor)
	sessionService := services.NewSessionService(redisDB.Client)

	a := &app{
		health:   handlers.NewHealthHandler(executor, redisDB),
		friends:  handlers.NewFriendHandler(services.NewFriendService(executor)),
		blocks:   handlers.NewBlockHandler(services.NewBlockService(executor)),
		presence: handlers.NewPresenceHandler(services.NewPresenceService(executor)),
		auth:     middleware.NewAuthMiddleware(sessionService, userService),
		logger:   middleware.NewRequestLogger(logger),
		friendRequestLimiter: middleware.NewRateLimiter(
			redisDB.Client,
			cfg.Social.FriendRequestRateLimit,
			time.Hour,
			"ratelimit:friend-requests:",
			middleware.UserKey,
			true,
		),
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      a.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{"addr": addr})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

func runMigrations(logger *logging.Logger, desc database.Descriptor, path string) error {
	logger.Info("Running database migrations...", map[string]interface{}{"path": path})
	migrator, err := database.NewMigrator(desc.URL, path)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	if err := migrator.Up(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	version, dirty, err := migrator.Version()
	if err != nil {
		return fmt.Errorf("reading migration version: %w", err)
	}
	logger.Info("Migrations completed", map[string]interface{}{"version": version, "dirty": dirty})
	return nil
}

// app holds the wired handlers for the HTTP surface.
type app struct {
	health               *handlers.HealthHandler
	friends              *handlers.FriendHandler
	blocks               *handlers.BlockHandler
	presence             *handlers.PresenceHandler
	auth                 *middleware.AuthMiddleware
	logger               *middleware.RequestLogger
	friendRequestLimiter *middleware.RateLimiter
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", a.health.Health)

	// Friend requests
	mux.Handle("POST /api/friend-requests/add", a.friendRequestLimiter.Middleware(http.HandlerFunc(a.friends.SendRequest)))
	mux.HandleFunc("POST /api/friend-requests/{id}/accept", a.friends.AcceptRequest)
	mux.HandleFunc("POST /api/friend-requests/{id}/reject", a.friends.RejectRequest)
	mux.HandleFunc("GET /api/friend-requests", a.friends.ListRequests)

	// Friends
	mux.HandleFunc("GET /api/friends", a.friends.List)
	mux.HandleFunc("DELETE /api/friends/{friendId}", a.friends.Remove)

	// Blocking
	mux.HandleFunc("POST /api/users/block", a.blocks.Block)
	mux.HandleFunc("POST /api/users/unblock", a.blocks.Unblock)
	mux.HandleFunc("GET /api/users/blocked", a.blocks.List)

	// Presence
	mux.HandleFunc("POST /api/users/{userId}/status", a.presence.SetStatus)
	mux.HandleFunc("GET /api/users/{userId}/status", a.presence.GetStatus)

	// Outermost first: logger, then auth, then routing.
	var handler http.Handler = mux
	handler = a.auth.Apply(handler)
	handler = a.logger.Apply(handler)
	return handler
}
