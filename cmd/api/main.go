package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meal-planner/internal/api"
	"meal-planner/internal/core/generation"
	"meal-planner/internal/core/ingredient"
	"meal-planner/internal/core/planning"
	"meal-planner/internal/core/recipe"
	"meal-planner/internal/infrastructure/cache"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/infrastructure/database"
	"meal-planner/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("configuration loaded",
		zap.String("generation_model", cfg.Generation.Model),
		zap.String("generation_base_url", cfg.Generation.BaseURL),
		zap.String("database_driver", cfg.Database.Driver),
	)

	db, err := database.Open(cfg.Database)
	if err != nil {
		common.LogFatal("failed to open database", zap.Error(err))
	}
	defer database.Close(db)

	models := append(ingredient.Models(), recipe.Models()...)
	models = append(models, planning.Models()...)
	if err := database.Migrate(db, models...); err != nil {
		common.LogFatal("failed to migrate database", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var fingerprints cache.FingerprintStore
	if cfg.Redis.Enabled {
		rs, err := cache.NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			common.LogFatal("failed to connect to redis", zap.Error(err))
		}
		defer rs.Close()
		fingerprints = rs
	} else {
		ms := cache.NewMemoryStore()
		window := cfg.DedupWindow
		if window <= 0 {
			window = time.Second
		}
		ms.StartSweeper(ctx, 10*time.Minute, 10*window)
		fingerprints = ms
	}

	gen := generation.NewClient(cfg)
	store := ingredient.NewStore(db)
	resolver := ingredient.NewResolver(store, gen)
	recipes := recipe.NewService(db, store, resolver, gen)
	plans := planning.NewService(db, gen, recipes)

	router, err := api.SetupRouter(cfg, api.Dependencies{
		DB:           db,
		Resolver:     resolver,
		Recipes:      recipes,
		Plans:        plans,
		Fingerprints: fingerprints,
	})
	if err != nil {
		common.LogFatal("failed to setup router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("starting application",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("server forced to shutdown", zap.Error(err))
	}

	common.LogInfo("Server exited")
}
