package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"techpulse/internal/api"
	"techpulse/internal/config"
	"techpulse/internal/extract"
	"techpulse/internal/fetch"
	"techpulse/internal/monitoring"
	"techpulse/internal/pipeline"
	"techpulse/internal/storage"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if len(os.Args) < 2 {
		logger.Fatal("usage: extractor <github|pypi>")
	}
	source := os.Args[1]

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	// Run lock is optional; without Redis the orchestrator is the only
	// guard against overlapping runs.
	var redisStore *storage.RedisStore
	var locker pipeline.Locker
	if cfg.RedisAddr != "" {
		redisStore = storage.NewRedisStore(cfg.RedisAddr)
		locker = redisStore
	}

	delay := time.Duration(cfg.FetchDelaySeconds) * time.Second

	var warehouse *storage.Warehouse
	var runner *pipeline.Runner
	switch source {
	case "github":
		warehouse = storage.NewWarehouse(cfg.WarehouseURL, cfg.WarehouseSchema, storage.GitHubRepos, metrics, logger)
		fetcher := fetch.NewGitHubFetcher(cfg, metrics, logger)
		driver := extract.NewDriver("github", cfg.GitHubRepos, fetcher, delay, metrics, logger)
		runner = pipeline.NewGitHubRunner(cfg, driver, warehouse, locker, logger)
	case "pypi":
		warehouse = storage.NewWarehouse(cfg.WarehouseURL, cfg.WarehouseSchema, storage.PyPIPackages, metrics, logger)
		fetcher := fetch.NewPyPIFetcher(cfg, metrics, logger)
		driver := extract.NewDriver("pypi", cfg.PyPIPackages, fetcher, delay, metrics, logger)
		runner = pipeline.NewPyPIRunner(cfg, driver, warehouse, locker, logger)
	default:
		logger.Fatal("unknown source", zap.String("source", source))
	}

	// Serve /metrics and /api/health for the duration of the run.
	var server *api.Server
	if cfg.MetricsAddr != "" {
		server = api.NewServer(cfg.MetricsAddr, warehouse, redisStore, logger)
		go func() {
			if err := server.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("ops server failed", zap.Error(err))
			}
		}()
		logger.Info("ops server started", zap.String("addr", cfg.MetricsAddr))
	}

	loaded, runErr := runner.Run(context.Background())

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("ops server shutdown failed", zap.Error(err))
		}
		cancel()
	}

	// Exit status carries the run outcome to the orchestrator.
	if runErr != nil {
		logger.Error("pipeline run failed", zap.String("source", source), zap.Error(runErr))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("extractor finished", zap.String("source", source), zap.Int("loaded", loaded))
}
