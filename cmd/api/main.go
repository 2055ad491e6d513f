package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/leadcrm/internal/analytics"
	"github.com/wolfman30/leadcrm/internal/api/router"
	"github.com/wolfman30/leadcrm/internal/app/bootstrap"
	"github.com/wolfman30/leadcrm/internal/auth"
	"github.com/wolfman30/leadcrm/internal/company"
	appconfig "github.com/wolfman30/leadcrm/internal/config"
	"github.com/wolfman30/leadcrm/internal/events"
	"github.com/wolfman30/leadcrm/internal/http/handlers"
	"github.com/wolfman30/leadcrm/internal/leads"
	"github.com/wolfman30/leadcrm/internal/observability/metrics"
	"github.com/wolfman30/leadcrm/internal/realtime"
	"github.com/wolfman30/leadcrm/internal/users"
	"github.com/wolfman30/leadcrm/pkg/logging"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting leadcrm API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"public_base_url", cfg.PublicBaseURL,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "development-only-secret"
		logger.Warn("JWT_SECRET not set; using an insecure development secret")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler, cleanup, err := buildServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize server", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Create HTTP server; no write timeout so websocket sessions stay open.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// buildServer wires every component. Background workers stop when ctx is
// cancelled; cleanup releases connections.
func buildServer(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (http.Handler, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	metricsHandler, crmMetrics := setupMetrics()

	stores, err := bootstrap.BuildStores(ctx, cfg, logger)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, stores.Close)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)

	// Notification broadcaster, optionally relayed across instances
	hub := realtime.NewHub(crmMetrics, logger)
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		closers = append(closers, func() { _ = redisClient.Close() })
		relay := realtime.NewRedisRelay(redisClient, cfg.RealtimeRelayChannel, hub, logger)
		hub.SetRelay(relay)
		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error("realtime relay stopped", "error", err)
			}
		}()
	}

	publishers := events.Fanout{realtime.NewLeadPublisher(hub)}
	exportPublisher, closeExport, err := bootstrap.BuildEventExport(ctx, cfg, stores.Outbox, logger)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, closeExport)
	if exportPublisher != nil {
		publishers = append(publishers, exportPublisher)
	}

	archiver, err := bootstrap.BuildExportArchiver(ctx, cfg, logger)
	if err != nil {
		return nil, cleanup, err
	}

	leadService := leads.NewService(stores.Leads, stores.Audit, publishers, crmMetrics, logger)
	leadQuery := leads.NewQueryService(stores.Leads, stores.Audit, logger)
	userService := users.NewService(stores.Users, tokens, logger)
	analyticsService := analytics.NewService(stores.Analytics, stores.Leads, archiver, logger)

	routerCfg := &router.Config{
		Logger:             logger,
		Verifier:           tokens,
		UsersHandler:       users.NewHandler(userService, logger),
		LeadsHandler:       leads.NewHandler(leadQuery, leadService, logger),
		AnalyticsHandler:   analytics.NewHandler(analyticsService, logger),
		CompanyHandler:     company.NewHandler(bootstrap.BuildCompanyStore(redisClient), logger),
		HealthHandler:      handlers.NewHealthHandler(),
		RealtimeHandler:    realtime.NewGateway(hub, tokens, cfg.AllowedOrigins(), logger),
		RequestObserver:    crmMetrics,
		CORSAllowedOrigins: cfg.AllowedOrigins(),
		LoginRatePerSec:    cfg.LoginRatePerSec,
		LoginRateBurst:     cfg.LoginRateBurst,
	}
	if cfg.MetricsEnabled {
		routerCfg.MetricsHandler = metricsHandler
	}
	return router.New(routerCfg), cleanup, nil
}

func setupMetrics() (http.Handler, *metrics.CRMMetrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCRMMetrics(registry)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), m
}
