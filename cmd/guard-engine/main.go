package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forecastgrid/forecast-guard/internal/api"
	"github.com/forecastgrid/forecast-guard/internal/cache"
	"github.com/forecastgrid/forecast-guard/internal/config"
	"github.com/forecastgrid/forecast-guard/internal/engine"
	"github.com/forecastgrid/forecast-guard/internal/insights"
	"github.com/forecastgrid/forecast-guard/internal/metrics"
	"github.com/forecastgrid/forecast-guard/internal/repo"
	"github.com/forecastgrid/forecast-guard/internal/services"
	"github.com/forecastgrid/forecast-guard/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting forecast-guard", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var sharedCache cache.Provider = cache.NoopProvider{}
	var valkeyCloser cache.Provider
	if cfg.Cache.Valkey.Enabled && cfg.Cache.Valkey.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Valkey.Addr,
			Username:     cfg.Cache.Valkey.Username,
			Password:     cfg.Cache.Valkey.Password,
			DB:           cfg.Cache.Valkey.DB,
			DialTimeout:  cfg.Cache.Valkey.DialTimeout,
			ReadTimeout:  cfg.Cache.Valkey.ReadTimeout,
			WriteTimeout: cfg.Cache.Valkey.WriteTimeout,
			TLS:          cfg.Cache.Valkey.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable", slog.Any("error", err))
		} else {
			sharedCache = provider
			valkeyCloser = provider
		}
	}
	if valkeyCloser != nil {
		defer valkeyCloser.Close()
	}

	coreClient := repo.NewForecastCoreClient(
		cfg.Clients.Core.BaseURL,
		cfg.Clients.Core.OptionsPath,
		cfg.Clients.Core.QueryPath,
		cfg.Clients.Core.Timeout,
		sharedCache,
		cfg.Cache.OptionsTTL,
	)

	hintEngine, err := engine.NewHintEngine(cfg.Hints.Path, logger)
	if err != nil {
		logger.Error("failed to load hint pack", slog.Any("error", err))
		os.Exit(1)
	}

	thresholds := engine.Thresholds{
		HighConfidence: cfg.Matching.HighConfidence,
		MinConfidence:  cfg.Matching.MinConfidence,
		MaxSuggestions: cfg.Matching.MaxSuggestions,
		PreviewLimit:   cfg.Matching.PreviewLimit,
	}

	optionsCache := cache.NewOptionsCache(cfg.Cache.OptionsTTL)
	validator := engine.NewFieldValidator(logger, coreClient, optionsCache, thresholds)
	diagnostic := engine.NewCombinationDiagnostic(logger, coreClient, validator, hintEngine, thresholds)
	tracker := insights.NewTracker(logger)

	guardService := services.NewGuardService(logger, coreClient, validator, diagnostic, optionsCache, sharedCache, tracker)

	handlers := api.NewHandlers(logger, guardService)
	server, err := api.NewServer(cfg.Server, logger, handlers)
	if err != nil {
		logger.Error("failed to create HTTP server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("HTTP server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("forecast-guard stopped")
}
