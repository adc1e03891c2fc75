// Package main is the entry point for the SunPump API server.
//
// It loads configuration, wires the forecast source, store and alert
// deriver, and serves the dashboard plus the /v1 JSON API on the core
// chassis. Graceful shutdown is handled via SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"

	"sunpump/internal/alerts"
	"sunpump/internal/api/handlers"
	"sunpump/internal/config"
	"sunpump/internal/core"
	"sunpump/internal/dashboard"
	"sunpump/internal/external"
	"sunpump/internal/forecasts"
	"sunpump/internal/telemetry"
	"sunpump/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// SSM is bypassed when APP_ENV=local, so the provider is only built
	// for deployed environments.
	var provider config.SecretProvider
	if os.Getenv("APP_ENV") != "local" {
		provider = config.NewSSMProvider(os.Getenv("AWS_REGION"), os.Getenv("AWS_ENDPOINT_URL"))
	}
	cfg, err := config.Load(provider)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("sunpump API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"alert_rule", string(cfg.Forecast.AlertRule),
	)

	ctx := context.Background()
	awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return err
	}

	var metrics telemetry.Recorder = telemetry.Noop{}
	if cfg.Observability.MetricsEnabled {
		cw := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		metrics = telemetry.NewCloudWatchMetrics(cw, cfg.Observability.MetricNamespace, types.NewSlogAdapter(logger))
	}

	svc, err := newForecastService(cfg, awsCfg, metrics, logger)
	if err != nil {
		return err
	}

	srv, err := buildServer(cfg, svc, metrics, logger)
	if err != nil {
		return err
	}
	return runHTTPServer(srv, cfg, logger)
}

// loadAWSConfig loads the default credential chain for the configured region.
func loadAWSConfig(ctx context.Context, c config.AWSConfig) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS SDK config: %w", err)
	}
	return awsCfg, nil
}

// newForecastService resolves FORECAST_SOURCE and builds the store, deriver
// and service on top of it. Zone-less timestamps are read in
// DISPLAY_TIMEZONE.
func newForecastService(cfg *config.Config, awsCfg aws.Config, metrics telemetry.Recorder, logger *slog.Logger) (*forecasts.Service, error) {
	loc, err := cfg.Server.Location()
	if err != nil {
		return nil, fmt.Errorf("display timezone: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			o.UsePathStyle = true
		}
	})
	httpClient := external.NewClient(
		&http.Client{Timeout: cfg.Forecast.HTTPTimeout},
		"forecast-source",
		external.DefaultRetryPolicy(),
		cfg.Forecast.UserAgent,
	)

	source, err := forecasts.NewSource(cfg.Forecast.Source, forecasts.SourceDeps{S3: s3Client, HTTP: httpClient})
	if err != nil {
		return nil, fmt.Errorf("resolving forecast source: %w", err)
	}
	logger.Info("forecast source configured", "source", source.Identity())

	store := forecasts.NewStore(source, types.NewSlogAdapter(logger),
		forecasts.WithLoadObserver(metrics),
		forecasts.WithLocation(loc),
	)
	return forecasts.NewService(store, alerts.NewDeriver(cfg.Forecast.AlertRule, alerts.WithDayLocation(loc))), nil
}

// buildServer mounts the dashboard, forecast, label and admin routes on the
// core chassis.
func buildServer(cfg *config.Config, svc *forecasts.Service, metrics core.MetricsCollector, logger *slog.Logger) (*core.Server, error) {
	loc, err := cfg.Server.Location()
	if err != nil {
		return nil, fmt.Errorf("display timezone: %w", err)
	}
	renderer, err := dashboard.NewRenderer(loc)
	if err != nil {
		return nil, fmt.Errorf("parsing dashboard templates: %w", err)
	}

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.Metrics = metrics
	srv.HealthProbes = append(srv.HealthProbes, svc)

	dashboardHandler := handlers.NewDashboardHandler(svc, renderer, logger)
	forecastHandler := handlers.NewForecastHandler(svc, logger)
	labelsHandler := handlers.NewLabelsHandler(srv.Validator)

	srv.RootRouteRegistrars = append(srv.RootRouteRegistrars, dashboardHandler.RegisterRoutes)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		forecastHandler.RegisterRoutes,
		labelsHandler.RegisterRoutes,
	)
	if !cfg.Security.AdminAPIKeyHash.IsZero() {
		guard := srv.RequireAdminKey(cfg.Security.AdminAPIKeyHash)
		srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
			forecastHandler.RegisterAdminRoutes(r, guard)
		})
	} else {
		logger.Warn("ADMIN_API_KEY_HASH not set, admin routes disabled")
	}

	srv.MountRoutes()
	return srv, nil
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 15*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a JSON slog.Logger at the given level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
