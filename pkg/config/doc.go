// Package config loads and validates the four core engines' tunables
// from environment variables.
//
// # Configuration Structure
//
// Compatibility engine settings:
//
//	REGISTRY_COMPAT_CACHE_SHARDS="16"
//	REGISTRY_COMPAT_CACHE_SIZE="1024"
//	REGISTRY_COMPAT_CACHE_TTL="10m"
//	REGISTRY_COMPAT_DEADLINE="25ms"
//	REGISTRY_COMPAT_TRANSITIVE_CAP="100"
//
// Lineage engine settings:
//
//	REGISTRY_LINEAGE_MAX_DEPTH="50"
//
// Analytics engine settings:
//
//	REGISTRY_ANALYTICS_BUS_BUFFER_SIZE="10000"
//	REGISTRY_ANALYTICS_RETENTION="168h"
//	REGISTRY_ANALYTICS_EVICT_INTERVAL="1h"
//
// Storage tier settings:
//
//	REGISTRY_L1_SIZE="10000"
//	REGISTRY_REDIS_ADDR="localhost:6379"
//	REGISTRY_S3_ENDPOINT="http://localhost:9000"
//	REGISTRY_S3_BUCKET="schemas"
//	REGISTRY_POSTGRES_DSN="postgres://localhost/registry"
//
// Observability settings:
//
//	REGISTRY_LOG_LEVEL="info"  # debug, info, warn, error
//	REGISTRY_METRICS_ENABLED="true"
//	REGISTRY_OTEL_ENABLED="true"
//	REGISTRY_OTEL_ENDPOINT="otel-collector:4317"
//
// There is no server/HTTP section: this module has no HTTP surface.
package config
