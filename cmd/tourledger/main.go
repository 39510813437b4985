package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"tourledger/internal/backend"
	"tourledger/internal/cli"
	apphttp "tourledger/internal/http"
	applog "tourledger/internal/log"
	"tourledger/internal/services"
)

func main() {
	bootstrap := cli.SetupLogger("info")
	if err := cli.LoadEnvFile(); err != nil {
		bootstrap.Warn("Failed to load .env file", applog.FieldError, err)
	}

	cfg := cli.MustLoadConfig(bootstrap)
	logger := cli.SetupLogger(cfg.LogLevel)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	records := services.NewRecordService(res.Store, res.Notifier)
	settlements := services.NewSettlementService(res.Store, res.Notifier, time.Now)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CORSAllowedOrigin:  cfg.CORSAllowedOrigin,
		TrustedProxies:     cfg.TrustedProxies,
		ShowCacheTTL:       cfg.ShowCacheTTL,
	}, records, settlements)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting tourledger server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
			cancel()
			return
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", applog.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
