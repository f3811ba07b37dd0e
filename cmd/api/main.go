package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/telehealth-gate/internal/api/router"
	"github.com/wolfman30/telehealth-gate/internal/app/bootstrap"
	appconfig "github.com/wolfman30/telehealth-gate/internal/config"
	"github.com/wolfman30/telehealth-gate/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/telehealth-gate/internal/http/middleware"
	"github.com/wolfman30/telehealth-gate/pkg/logging"
)

func main() {
	if err := appconfig.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting telehealth gate API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"records_backend", cfg.RecordsBackend,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, registry := setupMetrics()
	rt, err := bootstrap.BuildGate(ctx, cfg, registry, logger)
	if err != nil {
		logger.Error("failed to build gate", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("failed to close runtime", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      buildRouter(ctx, cfg, rt, metricsHandler, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("server error", "error", err)
		}
	}

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

const (
	limiterEvictInterval = 5 * time.Minute
	limiterMaxIdle       = 10 * time.Minute
)

// setupMetrics returns the /metrics handler and the registry decision
// metrics register against.
func setupMetrics() (http.Handler, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), reg
}

// buildRouter wires the gate API. Background work it starts, such as
// rate limiter eviction, stops when ctx is done.
func buildRouter(ctx context.Context, cfg *appconfig.Config, rt *bootstrap.Runtime, metricsHandler http.Handler, logger *logging.Logger) http.Handler {
	var limiter *httpmiddleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		go limiter.RunEvictor(ctx, limiterEvictInterval, limiterMaxIdle)
	}
	if cfg.ServiceJWTSecret == "" {
		logger.Warn("service auth disabled; /v1 is open")
	}
	return router.New(&router.Config{
		Logger:           logger,
		GateHandler:      handlers.NewGateHandler(rt.Service, time.Now, logger),
		MetricsHandler:   metricsHandler,
		MetricsToken:     cfg.MetricsToken,
		ServiceJWTSecret: cfg.ServiceJWTSecret,
		CORS: httpmiddleware.CORSPolicy{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			MaxAge:         cfg.CORSMaxAge,
		},
		RateLimiter: limiter,
	})
}
