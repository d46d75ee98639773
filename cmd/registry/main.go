package main

import (
	"context"
	"log"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/schemaforge/registry-core/pkg/config"
	"github.com/schemaforge/registry-core/pkg/observability"
	"github.com/schemaforge/registry-core/pkg/registry"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("Starting schema registry core engines")
	cfg.Analytics.Logger = logger

	ctx := context.Background()
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize OpenTelemetry")
	}

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	reg, err := registry.Open(ctx, cfg.Compatibility, cfg.Analytics, cfg.Storage, metrics)
	if err != nil {
		log.Fatalf("Failed to open registry: %v", err)
	}
	logger.Info("Compatibility, lineage, analytics, and storage engines wired")

	healthChecker := observability.NewHealthChecker(
		map[string]observability.Checkable{"storage": reg.Storage},
		nil,
	)
	status := healthChecker.Check(ctx)
	logger.Infof("Startup health check: %s", status.Status)

	shutdownManager := observability.NewShutdownManager(logger, 0)
	shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
		logger.Info("Closing registry engines")
		return reg.Close()
	})
	if otelProviders != nil {
		shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
			logger.Info("Shutting down OpenTelemetry")
			return observability.ShutdownOTel(ctx, otelProviders, logger)
		})
	}

	logger.Info("Registry running, waiting for shutdown signal")
	if err := shutdownManager.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
