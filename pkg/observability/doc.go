// Package observability provides structured logging, Prometheus
// metrics, health aggregation, and OpenTelemetry tracing for the four
// core engines. It has no HTTP surface of its own: metrics and health
// are collectors and aggregators for an external caller to expose.
//
// # Structured Logging
//
// Create a logger and enrich it immutably down a call chain:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("schema_id", id).Info("schema registered")
//
// # Prometheus Metrics
//
// Register against a caller-owned registry, never the global default:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	metrics.CompatibilityChecksTotal.WithLabelValues("backward", "compatible").Inc()
//	metrics.StorageTierHitsTotal.WithLabelValues("l1").Inc()
//
// # Health Checks
//
// Aggregate the storage tiers' own HealthCheck methods:
//
//	checker := observability.NewHealthChecker(
//		map[string]observability.Checkable{"l4": relStore},
//		map[string]observability.Checkable{"l2": kvCache, "l3": objStore},
//	)
//	status := checker.Check(ctx)
//
// # OpenTelemetry
//
// Initialize tracing and metrics export:
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:        true,
//		ServiceName:    "registry-core",
//		ServiceVersion: "1.0.0",
//		Endpoint:       "otel-collector:4317",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// # Related Packages
//
//   - pkg/config: loads the settings these constructors take
//   - pkg/storage: the tiers whose spans, hits, and health this package instruments
package observability
