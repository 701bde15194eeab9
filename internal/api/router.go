package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"meal-planner/internal/api/handlers/health"
	ingredientHandler "meal-planner/internal/api/handlers/ingredient"
	planningHandler "meal-planner/internal/api/handlers/planning"
	recipeHandler "meal-planner/internal/api/handlers/recipe"
	"meal-planner/internal/api/middleware"
	"meal-planner/internal/core/ingredient"
	"meal-planner/internal/core/planning"
	"meal-planner/internal/core/recipe"
	"meal-planner/internal/infrastructure/cache"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultTimeout = 120 * time.Second
	defaultMaxBody = 1 << 20
)

// Dependencies services the router serves
type Dependencies struct {
	DB           *gorm.DB
	Resolver     *ingredient.Resolver
	Recipes      *recipe.Service
	Plans        *planning.Service
	Fingerprints cache.FingerprintStore
}

// SetupRouter builds the gin engine.
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil || deps.Resolver == nil || deps.Recipes == nil || deps.Plans == nil {
		return nil, errors.New("router dependencies are incomplete")
	}

	common.LogInfo("starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	timeout := cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBody := cfg.Server.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(maxBody))

	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Set("debug", cfg.App.Debug)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			common.LogError("request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", timeout),
			)
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, common.ErrorResponse{
				Code:    common.ErrCodeGatewayTimeout,
				Message: common.ErrGatewayTimeout.Message,
			})
		}
	})

	healthHandler := health.NewHandler(cfg, deps.DB)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	api := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	if deps.Fingerprints != nil {
		api.Use(middleware.Deduplication(deps.Fingerprints, cfg.DedupWindow))
	}

	ingredientHandler.NewHandler(deps.Resolver).Register(api)
	recipeHandler.NewHandler(deps.Recipes).Register(api)
	planningHandler.NewHandler(deps.Plans).Register(api)

	common.LogInfo("router setup completed",
		zap.Duration("timeout", timeout),
		zap.Int64("max_body_size", maxBody),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Bool("deduplication", deps.Fingerprints != nil),
	)

	return router, nil
}
