package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"code404/api/internal/cache"
	"code404/api/internal/config"
	"code404/api/internal/database"
	"code404/api/internal/handlers"
	"code404/api/internal/jobs"
	"code404/api/internal/log"
	"code404/api/internal/mail"
	"code404/api/internal/push"
	"code404/api/internal/ratelimit"
	"code404/api/internal/repository"
	"code404/api/internal/server"
	"code404/api/internal/service"
	"code404/api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	if err := database.Migrate(ctx, cfg.Postgres.DSN); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	var (
		redisClient *redis.Client
		limiter     ratelimit.CounterStore
		sweeper     *ratelimit.MemoryStore
	)
	redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, rate limiting falls back to in-memory")
		redisClient = nil
		sweeper = ratelimit.NewMemoryStore()
		limiter = sweeper
	} else {
		limiter = ratelimit.NewRedisStore(redisClient)
	}

	var mailer service.CredentialMailer
	if cfg.Mail.Host != "" {
		m, err := mail.New(cfg.Mail)
		if err != nil {
			logger.Warn().Err(err).Msg("mail transport init failed, credentials mail disabled")
		} else {
			mailer = m
		}
	}

	var avatars *storage.AvatarStore
	if cfg.Storage.Endpoint != "" {
		avatars, err = storage.NewAvatarStore(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init avatar store")
		}
		if err := avatars.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure avatar bucket failed")
		}
	}

	sender := push.NewSender(cfg.WebPush)
	if err := sender.Ready(); err != nil {
		logger.Warn().Err(err).Msg("webpush keys missing, push dispatch disabled")
	}

	members := repository.NewMemberRepository(dbPool)
	subscriptions := repository.NewSubscriptionRepository(dbPool)
	schedules := repository.NewScheduleRepository(dbPool)
	decisions := repository.NewDecisionRepository(dbPool)
	sessions := repository.NewSessionRepository(dbPool)

	authService := service.NewAuthService(members, mailer, cfg, logger)
	pushService := service.NewPushService(subscriptions, schedules, sender, cfg.WebPush.MaxConcurrent, logger)

	handlerSet := handlers.NewHandlerSet(
		logger, dbPool, redisClient, limiter, avatars,
		authService, pushService,
		members, sessions, decisions,
		cfg,
	)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(pushService, sessions, sweeper, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	scheduler.Stop()

	db.Close()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
