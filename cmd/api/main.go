package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"launchpad/api/internal/cache"
	"launchpad/api/internal/config"
	"launchpad/api/internal/database"
	"launchpad/api/internal/handlers"
	"launchpad/api/internal/jobs"
	"launchpad/api/internal/log"
	"launchpad/api/internal/mail"
	"launchpad/api/internal/payments"
	"launchpad/api/internal/repository"
	"launchpad/api/internal/security"
	"launchpad/api/internal/server"
	"launchpad/api/internal/service"
	"launchpad/api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, dbPool, logger); err != nil {
			logger.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}

	mailer, err := mail.NewSMTPMailer(cfg.Mail, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init mailer")
	}

	users := repository.NewUserRepository(dbPool)
	otps := repository.NewOTPRepository(dbPool)
	paymentRepo := repository.NewPaymentRepository(dbPool)

	hasher := security.NewPasswordHasher(cfg.Security.BcryptCost)
	sessions := security.NewTokenManager(cfg.Security.JWTSecret, cfg.Security.JWTTTL)
	resets := security.NewTokenManager(cfg.Security.ResetSecret, cfg.Security.ResetTTL)

	otpService := service.NewOTPService(users, otps, mailer, cfg.Auth.OTPTTL, logger)
	authService := service.NewAuthService(users, otpService, hasher, sessions, resets, mailer, service.AuthOptions{
		RequireVerified:   cfg.Auth.RequireVerified,
		ResetPasswordLink: cfg.Security.ResetPasswordLink,
	}, logger)
	userService := service.NewUserService(users, hasher, logger)
	uploadService := service.NewUploadService(objectStore, service.UploadOptions{
		MaxFileBytes: cfg.Storage.MaxFileBytes,
		MaxFiles:     cfg.Storage.MaxFiles,
	}, logger)
	paymentService := service.NewPaymentService(users, paymentRepo, payments.NewStripeGateway(cfg.Stripe.SecretKey), cfg.Stripe.Currency, logger)

	if _, err := userService.SeedSuperAdmin(ctx, service.SeedInput{
		Name:     cfg.Seed.Name,
		Email:    cfg.Seed.Email,
		Password: cfg.Seed.Password,
		Phone:    cfg.Seed.Phone,
	}); err != nil {
		logger.Error().Err(err).Msg("seed super admin failed")
	}

	handlerSet := handlers.NewHandlerSet(logger, cfg, handlers.Services{
		Auth:     authService,
		Users:    userService,
		Uploads:  uploadService,
		Payments: paymentService,
	}, cache.NewRateLimiter(redisClient, logger), map[string]handlers.HealthCheck{
		"database": dbPool.Ping,
		"cache":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})
	httpServer, err := server.NewHTTPServer(cfg, logger, handlerSet)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init http server")
	}

	scheduler := jobs.NewScheduler(otps, cfg.Auth.OTPSweepRetention, logger)
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
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop()

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
