package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/schemaforge/registry-core/pkg/analytics"
	"github.com/schemaforge/registry-core/pkg/compatibility"
	"github.com/schemaforge/registry-core/pkg/lineage"
	"github.com/schemaforge/registry-core/pkg/observability"
	"github.com/schemaforge/registry-core/pkg/storage"
)

// Config holds the tunables for the four core engines plus the ambient
// observability settings. There is no server/HTTP section: the HTTP
// surface is out of scope for this module.
type Config struct {
	Compatibility compatibility.Config
	Lineage       LineageConfig
	Analytics     analytics.Config
	Storage       storage.Config
	Observability ObservabilityConfig
}

// LineageConfig tunes the lineage engine's traversal defaults.
type LineageConfig struct {
	MaxDepth int
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Compatibility: loadCompatibilityConfig(),
		Lineage:       loadLineageConfig(),
		Analytics:     loadAnalyticsConfig(),
		Storage:       loadStorageConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadCompatibilityConfig() compatibility.Config {
	cfg := compatibility.DefaultConfig()

	if shards := getEnvInt("REGISTRY_COMPAT_CACHE_SHARDS", 0); shards > 0 {
		cfg.CacheShards = shards
	}
	if size := getEnvInt("REGISTRY_COMPAT_CACHE_SIZE", 0); size > 0 {
		cfg.CacheSize = size
	}
	if ttl := getEnvDuration("REGISTRY_COMPAT_CACHE_TTL", 0); ttl > 0 {
		cfg.CacheTTL = ttl
	}
	if deadline := getEnvDuration("REGISTRY_COMPAT_DEADLINE", 0); deadline > 0 {
		cfg.Deadline = deadline
	}
	if cap := getEnvInt("REGISTRY_COMPAT_TRANSITIVE_CAP", 0); cap > 0 {
		cfg.TransitiveCap = cap
	}

	return cfg
}

func loadLineageConfig() LineageConfig {
	return LineageConfig{
		MaxDepth: getEnvInt("REGISTRY_LINEAGE_MAX_DEPTH", 50),
	}
}

func loadAnalyticsConfig() analytics.Config {
	cfg := analytics.DefaultConfig()

	if bufSize := getEnvInt("REGISTRY_ANALYTICS_BUS_BUFFER_SIZE", 0); bufSize > 0 {
		cfg.BusBufferSize = bufSize
	}
	if retention := getEnvDuration("REGISTRY_ANALYTICS_RETENTION", 0); retention > 0 {
		cfg.RetentionPeriod = retention
	}
	if evict := getEnvDuration("REGISTRY_ANALYTICS_EVICT_INTERVAL", 0); evict > 0 {
		cfg.EvictInterval = evict
	}

	return cfg
}

func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if l1Size := getEnvInt("REGISTRY_L1_SIZE", 0); l1Size > 0 {
		cfg.L1Size = l1Size
	}
	if l1TTL := getEnvDuration("REGISTRY_L1_TTL", 0); l1TTL > 0 {
		cfg.L1TTL = l1TTL
	}

	if redisAddr := getEnv("REGISTRY_REDIS_ADDR", ""); redisAddr != "" {
		cfg.RedisAddr = redisAddr
	}
	if redisPassword := getEnv("REGISTRY_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("REGISTRY_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisPrefix := getEnv("REGISTRY_REDIS_PREFIX", ""); redisPrefix != "" {
		cfg.RedisPrefix = redisPrefix
	}
	if l2TTL := getEnvDuration("REGISTRY_L2_TTL", 0); l2TTL > 0 {
		cfg.L2TTL = l2TTL
	}
	if l2Deadline := getEnvDuration("REGISTRY_L2_DEADLINE", 0); l2Deadline > 0 {
		cfg.L2Deadline = l2Deadline
	}

	if s3Endpoint := getEnv("REGISTRY_S3_ENDPOINT", ""); s3Endpoint != "" {
		cfg.S3Endpoint = s3Endpoint
	}
	if s3Region := getEnv("REGISTRY_S3_REGION", ""); s3Region != "" {
		cfg.S3Region = s3Region
	}
	if s3Bucket := getEnv("REGISTRY_S3_BUCKET", ""); s3Bucket != "" {
		cfg.S3Bucket = s3Bucket
	}
	if s3AccessKey := getEnv("REGISTRY_S3_ACCESS_KEY", ""); s3AccessKey != "" {
		cfg.S3AccessKey = s3AccessKey
	}
	if s3SecretKey := getEnv("REGISTRY_S3_SECRET_KEY", ""); s3SecretKey != "" {
		cfg.S3SecretKey = s3SecretKey
	}
	if usePathStyle := getEnv("REGISTRY_S3_USE_PATH_STYLE", ""); usePathStyle != "" {
		cfg.S3UsePathStyle = strings.ToLower(usePathStyle) == "true"
	}
	if l3Deadline := getEnvDuration("REGISTRY_L3_DEADLINE", 0); l3Deadline > 0 {
		cfg.L3Deadline = l3Deadline
	}

	if pgDSN := getEnv("REGISTRY_POSTGRES_DSN", ""); pgDSN != "" {
		cfg.PostgresDSN = pgDSN
	}
	if maxConns := getEnvInt("REGISTRY_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("REGISTRY_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	if l4Deadline := getEnvDuration("REGISTRY_L4_DEADLINE", 0); l4Deadline > 0 {
		cfg.L4Deadline = l4Deadline
	}

	if warmOnStart := getEnv("REGISTRY_WARM_ON_START", ""); warmOnStart != "" {
		cfg.WarmOnStart = strings.ToLower(warmOnStart) == "true"
	}
	if warmCount := getEnvInt("REGISTRY_WARM_COUNT", 0); warmCount > 0 {
		cfg.WarmCount = warmCount
	}

	return cfg
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("REGISTRY_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("REGISTRY_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("REGISTRY_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("REGISTRY_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("REGISTRY_OTEL_SERVICE_NAME", "registry-core"),
		OTelServiceVersion: getEnv("REGISTRY_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("REGISTRY_OTEL_INSECURE", true),
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Lineage.MaxDepth <= 0 {
		return fmt.Errorf("lineage max depth must be positive")
	}

	if c.Storage.PostgresDSN == "" {
		return fmt.Errorf("postgres DSN is required")
	}
	if c.Storage.S3Endpoint == "" || c.Storage.S3Bucket == "" {
		return fmt.Errorf("S3 endpoint and bucket are required")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
