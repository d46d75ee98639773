package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/schemaforge/registry-core/pkg/model"
)

// RelationalStore is the L4 persistence contract: the system of record.
// Every other tier is a rebuildable projection of what this interface
// reports.
type RelationalStore interface {
	Register(ctx context.Context, schema *model.Schema) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Schema, error)
	GetByVersion(ctx context.Context, subject string, version model.Version) (*model.Schema, error)
	ListBySubject(ctx context.Context, subject string) ([]*model.Schema, error)
	Search(ctx context.Context, query model.SearchQuery) ([]*model.Schema, error)
	UpdateState(ctx context.Context, id uuid.UUID, state model.State) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListSubjects(ctx context.Context) ([]string, error)
	LatestVersion(ctx context.Context, subject string) (*model.Schema, error)
	Statistics(ctx context.Context) (model.Statistics, error)
	BeginTx(ctx context.Context) (Tx, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

// Tx is a relational transaction scoped to the register/update-state path
// described in the persistence contract.
type Tx interface {
	Register(ctx context.Context, schema *model.Schema) error
	UpdateState(ctx context.Context, id uuid.UUID, state model.State) error
	Commit() error
	Rollback() error
}

// ObjectStore is the L3 contract: a key-value PUT/GET/HEAD/DELETE surface
// over a large, cheap, warm object tier, with a content-addressable
// secondary keying scheme for deduplication.
type ObjectStore interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	PutContentAddressed(ctx context.Context, content []byte, contentType string) (key string, err error)
	HealthCheck(ctx context.Context) error
}

// KVCache is the L2 contract: get/set/setex/del/exists over a
// network-resident key-value cache. No transactions required.
type KVCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	SetEX(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

// Config tunes tier TTLs, L1 capacity, and per-tier sub-deadlines.
type Config struct {
	// L1: in-process LRU
	L1Size int
	L1TTL  time.Duration

	// L2: network KV cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	L2TTL         time.Duration
	L2Deadline    time.Duration

	// L3: object store
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
	L3Deadline     time.Duration

	// L4: relational store
	PostgresDSN      string
	PostgresMaxConns int
	PostgresMinConns int
	L4Deadline       time.Duration

	// Search result caching and cache warming. The Engine reads none of
	// these: Search always queries L4, and Warm takes its subject list
	// from the caller.
	SearchCacheTTL time.Duration
	WarmOnStart    bool
	WarmCount      int
}

// DefaultConfig returns the sub-deadlines named by the concurrency model
// (L2 10ms, L3 100ms, L4 500ms) and a conservative L1 size.
func DefaultConfig() Config {
	return Config{
		L1Size:         10_000,
		L1TTL:          5 * time.Minute,
		RedisPrefix:    "registry:",
		L2TTL:          30 * time.Minute,
		L2Deadline:     10 * time.Millisecond,
		S3UsePathStyle: false,
		L3Deadline:     100 * time.Millisecond,
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		L4Deadline:       500 * time.Millisecond,
		SearchCacheTTL:   time.Minute,
		WarmOnStart:      false,
		WarmCount:        200,
	}
}
