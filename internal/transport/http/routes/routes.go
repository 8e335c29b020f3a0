package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jnalv414/letip-lead-system-sub002/internal/infra/config"
	"github.com/jnalv414/letip-lead-system-sub002/internal/infra/redis"
	"github.com/jnalv414/letip-lead-system-sub002/internal/transport/http/handlers"
	"github.com/jnalv414/letip-lead-system-sub002/internal/transport/http/middleware"
	"github.com/jnalv414/letip-lead-system-sub002/internal/usecase"
)

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Auth        *usecase.AuthService
	Tokens      *usecase.TokenService
	RateLimiter *middleware.RateLimiter
	HTTPMetrics *middleware.HTTPMetrics
	Database    *pgxpool.Pool
	Cache       *redis.Client
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Handler())
	}

	healthHandler := handlers.NewHealthHandler(deps.Database, deps.Cache)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var loginLimiter, refreshLimiter gin.HandlerFunc
	if deps.RateLimiter != nil {
		rl := deps.Config.RateLimit
		loginLimiter = deps.RateLimiter.Limit(middleware.RateLimitRule{
			Name:   "login",
			Limit:  rl.LoginMaxAttempts,
			Window: rl.WindowDuration,
		})
		refreshLimiter = deps.RateLimiter.Limit(middleware.RateLimitRule{
			Name:   "refresh",
			Limit:  rl.RefreshMaxAttempts,
			Window: rl.WindowDuration,
		})
	}

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")

		authHandler := handlers.NewAuthHandler(deps.Auth, deps.Tokens, deps.Config.Auth.AccessTokenTTL)
		authHandler.RegisterRoutes(authGroup, loginLimiter, refreshLimiter)
	}

	return r
}
