package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/schemaforge/registry-core/pkg/model"
	"github.com/schemaforge/registry-core/pkg/observability"
	"github.com/schemaforge/registry-core/pkg/registryerr"
)

var engineTracer = otel.Tracer("registry-core/storage/engine")

// Engine is the multi-tier storage engine's façade. L4 is authoritative;
// L1/L2/L3 are rebuildable projections populated on read miss and
// invalidated (never exclusively relied upon) on write.
type Engine struct {
	cfg Config

	l1 *l1Cache
	l2 KVCache
	l3 ObjectStore
	l4 RelationalStore

	coalesce singleflight.Group
	metrics  *observability.Metrics
}

// WithMetrics attaches Prometheus instrumentation; the tiered read path
// starts recording per-tier hits, misses, downgrades, and latency. Safe
// to skip in tests that don't care about metrics.
func (e *Engine) WithMetrics(m *observability.Metrics) *Engine {
	e.metrics = m
	return e
}

// NewEngine wires an Engine from already-constructed tiers. L2/L3 may be
// nil (degraded mode: reads fall through to the next tier transparently).
// Accepting the tier interfaces rather than the concrete tier types lets
// a caller outside this package (an integration test, a façade's own
// test suite) wire an Engine against fakes or sqlmock/miniredis-backed
// instances without reaching into unexported fields.
func NewEngine(cfg Config, l4 RelationalStore, l3 ObjectStore, l2 KVCache) *Engine {
	return &Engine{
		cfg: cfg,
		l1:  newL1Cache(cfg.L1Size, cfg.L1TTL),
		l2:  l2,
		l3:  l3,
		l4:  l4,
	}
}

// Open builds every tier from Config and returns a running Engine.
func Open(ctx context.Context, cfg Config) (*Engine, error) {
	l4, err := newL4Store(cfg.PostgresDSN, cfg.PostgresMaxConns, cfg.PostgresMinConns, cfg.L4Deadline*10)
	if err != nil {
		return nil, fmt.Errorf("open l4: %w", err)
	}

	var l3 ObjectStore
	if cfg.S3Bucket != "" {
		store, err := newL3Store(ctx, cfg.S3Endpoint, cfg.S3Region, cfg.S3Bucket, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3UsePathStyle)
		if err != nil {
			return nil, fmt.Errorf("open l3: %w", err)
		}
		l3 = store
	}

	var l2 KVCache
	if cfg.RedisAddr != "" {
		cache, err := newL2Cache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("open l2: %w", err)
		}
		l2 = cache
	}

	return NewEngine(cfg, l4, l3, l2), nil
}

// Get serves a schema lookup by id through the four-tier read path: L1,
// then L2, then L3, then L4, populating upper tiers on a lower-tier hit.
// Concurrent misses on the same id are coalesced into a single L4/L3/L2
// fetch.
func (e *Engine) Get(ctx context.Context, id uuid.UUID) (*model.Schema, model.Tier, error) {
	ctx, span := engineTracer.Start(ctx, "Get", trace.WithAttributes(attribute.String("schema.id", id.String())))
	defer span.End()

	if schema, ok := e.l1.Get(id); ok {
		e.recordTierHit(model.TierL1)
		return schema, model.TierL1, nil
	}

	v, err, _ := e.coalesce.Do(id.String(), func() (any, error) {
		return e.fetchThroughTiers(ctx, id)
	})
	if err != nil {
		return nil, "", err
	}
	result := v.(struct {
		schema *model.Schema
		tier   model.Tier
	})
	return result.schema, result.tier, nil
}

func (e *Engine) fetchThroughTiers(ctx context.Context, id uuid.UUID) (struct {
	schema *model.Schema
	tier   model.Tier
}, error) {
	type result struct {
		schema *model.Schema
		tier   model.Tier
	}

	if e.l2 != nil {
		if schema, ok, err := e.getL2(ctx, id); err == nil && ok {
			e.l1.Put(schema)
			return result{schema, model.TierL2}, nil
		}
		e.recordTierDowngrade(model.TierL2, model.TierL3)
	}

	if e.l3 != nil {
		if schema, ok, err := e.getL3(ctx, id); err == nil && ok {
			e.populateUpper(ctx, schema)
			return result{schema, model.TierL3}, nil
		}
		e.recordTierDowngrade(model.TierL3, model.TierL4)
	}

	schema, err := e.getL4(ctx, id)
	if err != nil {
		return result{}, err
	}
	e.populateAll(ctx, schema)
	return result{schema, model.TierL4}, nil
}

func (e *Engine) recordTierHit(tier model.Tier) {
	if e.metrics != nil {
		e.metrics.StorageTierHitsTotal.WithLabelValues(string(tier)).Inc()
	}
}

func (e *Engine) recordTierMiss(tier model.Tier) {
	if e.metrics != nil {
		e.metrics.StorageTierMissesTotal.WithLabelValues(string(tier)).Inc()
	}
}

func (e *Engine) recordTierDowngrade(from, to model.Tier) {
	if e.metrics != nil {
		e.metrics.StorageTierDowngradesTotal.WithLabelValues(string(from), string(to)).Inc()
	}
}

func (e *Engine) recordTierLatency(tier model.Tier, start time.Time) {
	if e.metrics != nil {
		e.metrics.StorageTierLatency.WithLabelValues(string(tier)).Observe(time.Since(start).Seconds())
	}
}

func (e *Engine) getL2(ctx context.Context, id uuid.UUID) (*model.Schema, bool, error) {
	start := time.Now()
	defer e.recordTierLatency(model.TierL2, start)
	ctx, cancel := context.WithTimeout(ctx, e.cfg.L2Deadline)
	defer cancel()
	data, ok, err := e.l2.Get(ctx, schemaKey(id.String()))
	if err != nil || !ok {
		e.recordTierMiss(model.TierL2)
		return nil, false, err
	}
	e.recordTierHit(model.TierL2)
	return decodeSchema(data)
}

func (e *Engine) getL3(ctx context.Context, id uuid.UUID) (*model.Schema, bool, error) {
	start := time.Now()
	defer e.recordTierLatency(model.TierL3, start)
	ctx, cancel := context.WithTimeout(ctx, e.cfg.L3Deadline)
	defer cancel()
	data, err := e.l3.Get(ctx, schemaKey(id.String()))
	if err != nil {
		e.recordTierMiss(model.TierL3)
		return nil, false, nil // downgrade to L4, not fatal
	}
	schema, ok, err := decodeSchema(data)
	if err == nil && ok {
		e.recordTierHit(model.TierL3)
	} else {
		e.recordTierMiss(model.TierL3)
	}
	return schema, ok, err
}

func (e *Engine) getL4(ctx context.Context, id uuid.UUID) (*model.Schema, error) {
	start := time.Now()
	defer e.recordTierLatency(model.TierL4, start)
	ctx, cancel := context.WithTimeout(ctx, e.cfg.L4Deadline)
	defer cancel()
	schema, err := e.l4.GetByID(ctx, id)
	if err != nil {
		e.recordTierMiss(model.TierL4)
	} else {
		e.recordTierHit(model.TierL4)
	}
	return schema, err
}

// populateUpper re-fills L2/L1 from an L3 hit.
func (e *Engine) populateUpper(ctx context.Context, schema *model.Schema) {
	if e.l2 != nil {
		if data, err := encodeSchema(schema); err == nil {
			_ = e.l2.SetEX(ctx, schemaKey(schema.ID.String()), data, e.cfg.L2TTL)
		}
	}
	e.l1.Put(schema)
}

// populateAll re-fills L3/L2/L1 from an L4 hit.
func (e *Engine) populateAll(ctx context.Context, schema *model.Schema) {
	if e.l3 != nil {
		if data, err := encodeSchema(schema); err == nil {
			_ = e.l3.Put(ctx, schemaKey(schema.ID.String()), data, "application/json")
		}
	}
	e.populateUpper(ctx, schema)
}

// Register commits a new schema to L4 first; only on commit success are
// L3, L2, and L1 written, in that order. A post-commit tier failure is
// logged and non-fatal — tiers are rebuildable on next read.
func (e *Engine) Register(ctx context.Context, schema *model.Schema) error {
	ctx, span := engineTracer.Start(ctx, "Register")
	defer span.End()

	if err := e.l4.Register(ctx, schema); err != nil {
		return err
	}

	logger := observability.GetLogger(ctx).WithField("schema_id", schema.ID.String())
	if e.l3 != nil {
		if data, err := encodeSchema(schema); err == nil {
			if err := e.l3.Put(ctx, schemaKey(schema.ID.String()), data, "application/json"); err != nil {
				logger.WithError(err).Warn("l3 populate after commit failed")
			}
		}
	}
	if e.l2 != nil {
		if data, err := encodeSchema(schema); err == nil {
			if err := e.l2.SetEX(ctx, schemaKey(schema.ID.String()), data, e.cfg.L2TTL); err != nil {
				logger.WithError(err).Warn("l2 populate after commit failed")
			}
		}
	}
	e.l1.Put(schema)
	return nil
}

// UpdateState commits a state transition to L4, then invalidates L1/L2
// for the key and overwrites L3 with the refreshed serialised form.
func (e *Engine) UpdateState(ctx context.Context, id uuid.UUID, state model.State) error {
	if err := e.l4.UpdateState(ctx, id, state); err != nil {
		return err
	}
	return e.invalidateAndRefresh(ctx, id)
}

// SoftDelete commits a soft delete to L4, then invalidates/refreshes the
// upper tiers the same way UpdateState does.
func (e *Engine) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if err := e.l4.SoftDelete(ctx, id); err != nil {
		return err
	}
	return e.invalidateAndRefresh(ctx, id)
}

func (e *Engine) invalidateAndRefresh(ctx context.Context, id uuid.UUID) error {
	e.l1.Invalidate(id)
	if e.l2 != nil {
		_ = e.l2.Del(ctx, schemaKey(id.String()))
	}

	schema, err := e.l4.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e.l3 != nil {
		if data, err := encodeSchema(schema); err == nil {
			_ = e.l3.Put(ctx, schemaKey(schema.ID.String()), data, "application/json")
		}
	}
	return nil
}

// Search and ListSubjects bypass L1/L2/L3 and query L4 directly.
func (e *Engine) Search(ctx context.Context, query model.SearchQuery) ([]*model.Schema, error) {
	return e.l4.Search(ctx, query)
}

func (e *Engine) ListSubjects(ctx context.Context) ([]string, error) {
	return e.l4.ListSubjects(ctx)
}

func (e *Engine) ListBySubject(ctx context.Context, subject string) ([]*model.Schema, error) {
	return e.l4.ListBySubject(ctx, subject)
}

func (e *Engine) LatestVersion(ctx context.Context, subject string) (*model.Schema, error) {
	return e.l4.LatestVersion(ctx, subject)
}

func (e *Engine) Statistics(ctx context.Context) (model.Statistics, error) {
	return e.l4.Statistics(ctx)
}

// Warm iterates recent schemas from L4 and populates L3→L2→L1 in order,
// for a cold-start cache warmer to run against recently-hot subjects.
func (e *Engine) Warm(ctx context.Context, subjects []string) error {
	for _, subject := range subjects {
		schema, err := e.l4.LatestVersion(ctx, subject)
		if err != nil {
			if registryerr.Is(err, registryerr.NotFound) {
				continue
			}
			return err
		}
		e.populateAll(ctx, schema)
	}
	return nil
}

// HealthCheck reports L4's health only, returning an L4 failure as
// fatal. L2 and L3 are not checked here, matching the tier failure
// semantics: L2/L3 failures downgrade transparently, L4 failure is
// fatal for the request.
func (e *Engine) HealthCheck(ctx context.Context) error {
	if err := e.l4.HealthCheck(ctx); err != nil {
		return err
	}
	return nil
}

func (e *Engine) Close() error {
	var firstErr error
	if e.l2 != nil {
		if err := e.l2.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := e.l4.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
