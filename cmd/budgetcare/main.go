package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgetcare/internal/analytics"
	"budgetcare/internal/backend"
	"budgetcare/internal/cache"
	"budgetcare/internal/cli"
	"budgetcare/internal/config"
	"budgetcare/internal/core"
	apphttp "budgetcare/internal/http"
	"budgetcare/internal/log"
	"budgetcare/internal/services"
	"budgetcare/internal/settings"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)
	logger = cli.SetupLogger(cfg.LogLevel, log.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	// Raw lists are cached per user; writes through the service invalidate.
	rawCache := cache.NewLRUCache[[]core.Expense](cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager()
	caches.Register(rawCache)
	cleanupEvery := cfg.CacheTTL
	if cleanupEvery <= 0 {
		cleanupEvery = time.Minute
	}
	caches.StartCleanup(cleanupEvery)

	expenses := services.NewExpenseService(res.Backend, res.Publisher, rawCache)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Expenses:           expenses,
		Dashboard:          services.NewDashboardService(expenses, res.Backend, analytics.Window(cfg.DefaultWindowDays)),
		Goals:              res.Backend,
		Profiles:           settings.NewStore(res.Backend),
		Ready:              res.Ready,
		RawCache:           rawCache,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting budgetcare server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}
