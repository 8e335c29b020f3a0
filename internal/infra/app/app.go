package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jnalv414/letip-lead-system-sub002/internal/core/port"
	"github.com/jnalv414/letip-lead-system-sub002/internal/infra/config"
	"github.com/jnalv414/letip-lead-system-sub002/internal/infra/database"
	kafkainfra "github.com/jnalv414/letip-lead-system-sub002/internal/infra/kafka"
	"github.com/jnalv414/letip-lead-system-sub002/internal/infra/logger"
	redisinfra "github.com/jnalv414/letip-lead-system-sub002/internal/infra/redis"
	"github.com/jnalv414/letip-lead-system-sub002/internal/infra/security"
	"github.com/jnalv414/letip-lead-system-sub002/internal/infra/telemetry"
	postgresrepo "github.com/jnalv414/letip-lead-system-sub002/internal/repository/postgres"
	redisrepo "github.com/jnalv414/letip-lead-system-sub002/internal/repository/redis"
	"github.com/jnalv414/letip-lead-system-sub002/internal/transport/http/middleware"
	"github.com/jnalv414/letip-lead-system-sub002/internal/transport/http/routes"
	"github.com/jnalv414/letip-lead-system-sub002/internal/usecase"
)

// Application bundles the wired service with its infrastructure handles.
type Application struct {
	cfg     *config.AppConfig
	engine  *gin.Engine
	logger  *zap.Logger
	pool    *pgxpool.Pool
	redis   *redisinfra.Client
	kafka   *kafkainfra.Producer
	tracing *telemetry.TracerProvider
	sweeper *usecase.Sweeper
}

// New wires configuration into a runnable application.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var tracing *telemetry.TracerProvider
	if cfg.Telemetry.Enabled {
		tracing, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	if cfg.Postgres.MigrateOnStart {
		if err := database.MigrateUp(database.DSN(cfg.Postgres), log); err != nil {
			return nil, fmt.Errorf("migrate schema: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	codec, err := security.NewClaimsCodec([]byte(cfg.Auth.SigningKey), cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init claims codec: %w", err)
	}

	sessionRepo := postgresrepo.NewSessionRepository(pool, cfg.Auth.RefreshTokenTTL)
	userRepo := postgresrepo.NewUserRepository(pool)

	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), cfg.Redis.RateLimitPrefix, cfg.RateLimit.WindowDuration*2)
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	var kafkaProducer *kafkainfra.Producer
	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	tokenMetrics, err := telemetry.NewTokenMetrics(nil)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token metrics: %w", err)
	}

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	tokenService := usecase.NewTokenService(codec, sessionRepo, userRepo, eventPublisher, tokenMetrics, log)
	authService := usecase.NewAuthService(userRepo, tokenService, log)
	sweeper := usecase.NewSweeper(tokenService, cfg.Auth.SweepInterval, log)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Auth:        authService,
		Tokens:      tokenService,
		RateLimiter: rateLimiter,
		HTTPMetrics: httpMetrics,
		Database:    pool,
		Cache:       redisClient,
	})

	return &Application{
		cfg:     cfg,
		engine:  engine,
		logger:  log,
		pool:    pool,
		redis:   redisClient,
		kafka:   kafkaProducer,
		tracing: tracing,
		sweeper: sweeper,
	}, nil
}

// Run serves HTTP until the context is canceled, then shuts everything down.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.pool.Close()
	defer func() {
		_ = a.redis.Close()
	}()
	defer func() {
		if a.kafka != nil {
			_ = a.kafka.Close()
		}
	}()
	defer func() {
		if a.tracing != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = a.tracing.Shutdown(shutdownCtx)
		}
	}()

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go a.sweeper.Run(sweepCtx)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	return nil
}
