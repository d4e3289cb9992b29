// @title Diary API
// @version 1.0.0
// @description Account registration, login and access-gated statistics.
// @BasePath /diary
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/diary/docs"
	"github.com/kube-rca/diary/internal/config"
	"github.com/kube-rca/diary/internal/db"
	"github.com/kube-rca/diary/internal/handler"
	"github.com/kube-rca/diary/internal/security"
	"github.com/kube-rca/diary/internal/service"
	"github.com/redis/go-redis/v9"
)

type store interface {
	service.CredentialStore
	service.SessionLedger
	EnsureSchema(ctx context.Context) error
}

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	startedAt := time.Now()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	credentials, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := credentials.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	var sessions service.SessionLedger = credentials
	if cfg.Storage.SessionBackend == config.SessionsRedis {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		sessions = db.NewRedisSessions(client, cfg.Redis.KeyPrefix)
	}

	hasher, err := security.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	tokens, err := security.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL)
	if err != nil {
		return err
	}
	logger.Info("auth configured", "bcrypt_cost", hasher.Cost(), "token_ttl", tokens.TTL().String())

	authService, err := service.NewAuthService(credentials, sessions, hasher, tokens, logger)
	if err != nil {
		return err
	}
	statsService := service.NewStatsService(credentials, sessions, startedAt)

	docs.SwaggerInfo.BasePath = cfg.Server.Prefix
	docs.SwaggerInfo.Version = cfg.Server.Version

	router, err := handler.NewRouter(handler.RouterDeps{
		Prefix:         cfg.Server.Prefix,
		Version:        cfg.Server.Version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Auth:           authService,
		Stats:          statsService,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.BindAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"addr", cfg.Server.BindAddr,
			"prefix", cfg.Server.Prefix,
			"storage", cfg.Storage.Driver,
			"sessions", cfg.Storage.SessionBackend,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Config) (store, func(), error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return db.NewPostgres(pool), pool.Close, nil
	default:
		sqlite, err := db.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return sqlite, func() { _ = sqlite.Close() }, nil
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
