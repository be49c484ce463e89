package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"nextgenrdp/api/internal/cache"
	"nextgenrdp/api/internal/config"
	"nextgenrdp/api/internal/database"
	"nextgenrdp/api/internal/handlers"
	"nextgenrdp/api/internal/jobs"
	"nextgenrdp/api/internal/log"
	"nextgenrdp/api/internal/middleware"
	"nextgenrdp/api/internal/repository"
	"nextgenrdp/api/internal/security"
	"nextgenrdp/api/internal/server"
	"nextgenrdp/api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)
	if cfg.UsingFallbackSecret() {
		logger.Warn().Msg("using the built-in development JWT secret; set NEXTGENRDP_SECURITY_JWTSECRET")
	}

	ctx := context.Background()

	users, closeStore, err := openUserStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open user store")
	}

	codec, err := security.NewTokenCodec(cfg.Security.JWTSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init token codec")
	}

	var (
		redisClient *redis.Client
		cacheClient redis.UniversalClient
		revocations middleware.RevocationChecker
		authOpts    []service.Option
	)
	if cfg.Security.Revocation {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		denylist := cache.NewTokenDenylist(redisClient)
		cacheClient = redisClient
		revocations = denylist
		authOpts = append(authOpts, service.WithRevoker(denylist))
	}

	hasher := security.NewPasswordHasher(security.DefaultArgon2Params)
	authService := service.NewAuthService(users, hasher, codec, cfg.Security, logger, authOpts...)

	gate := middleware.Gate(middleware.GateConfig{
		Routes:        middleware.DefaultRouteTable(),
		Codec:         codec,
		Revocations:   revocations,
		SecureCookies: cfg.IsProduction(),
		Log:           logger,
	})

	handlerSet := handlers.NewHandlerSet(logger, cfg, authService, users, cacheClient)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet, gate)

	scheduler := jobs.NewScheduler(users, cfg.Security.LockoutReportSpec, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, closeStore, redisClient)
}

// openUserStore connects the configured driver and returns the store plus its
// closer.
func openUserStore(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (service.UserStore, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := database.NewSQLite(cfg.SQLite)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewGormUserRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		logger.Info().Str("path", cfg.SQLite.Path).Msg("using sqlite user store")
		closer := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return repo, closer, nil

	case config.DriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Postgres.AutoMigrate {
			if err := database.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
			logger.Info().Msg("postgres migrations applied")
		}
		return repository.NewUserRepository(pool), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, closeStore func(), redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop()
	closeStore()

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
