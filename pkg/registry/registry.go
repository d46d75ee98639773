// Package registry wires the compatibility, lineage, analytics, and
// storage engines together behind one entry point for tests and the
// cmd/ entry points. It is a thin composition layer, not a fifth
// engine: every operation it exposes is a direct call sequence across
// the four engines, with no independent state of its own.
package registry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/schemaforge/registry-core/pkg/analytics"
	"github.com/schemaforge/registry-core/pkg/compatibility"
	"github.com/schemaforge/registry-core/pkg/lineage"
	"github.com/schemaforge/registry-core/pkg/model"
	"github.com/schemaforge/registry-core/pkg/observability"
	"github.com/schemaforge/registry-core/pkg/registryerr"
	"github.com/schemaforge/registry-core/pkg/storage"
)

// Registry composes the four core engines.
type Registry struct {
	Compatibility *compatibility.Engine
	Lineage       *lineage.Store
	Impact        *lineage.ImpactAnalyzer
	Analytics     *analytics.Engine
	Storage       *storage.Engine
}

// New wires already-constructed engines together. Prefer Open for the
// common case of building the storage engine from Config as well.
func New(compat *compatibility.Engine, lin *lineage.Store, an *analytics.Engine, store *storage.Engine) *Registry {
	return &Registry{
		Compatibility: compat,
		Lineage:       lin,
		Impact:        lineage.NewImpactAnalyzer(lin),
		Analytics:     an,
		Storage:       store,
	}
}

// Open builds a Registry from configuration, opening the storage
// engine's tier connections. The compatibility and analytics engines
// and the lineage store hold no external connections and are built
// in-process. A nil metrics leaves every engine uninstrumented.
func Open(ctx context.Context, compatCfg compatibility.Config, analyticsCfg analytics.Config, storageCfg storage.Config, metrics *observability.Metrics) (*Registry, error) {
	storageEngine, err := storage.Open(ctx, storageCfg)
	if err != nil {
		return nil, err
	}
	storageEngine.WithMetrics(metrics)

	analyticsCfg.Metrics = metrics

	lineageStore := lineage.NewStore().WithMetrics(metrics)
	compatEngine := compatibility.NewEngine(compatCfg).WithMetrics(metrics)
	analyticsEngine := analytics.NewEngine(analyticsCfg)

	return New(compatEngine, lineageStore, analyticsEngine, storageEngine), nil
}

// RegisterSchema checks the proposed schema for compatibility against
// its subject's prior versions, and only on a compatible result writes
// it through the storage engine, registers its lineage node, and
// publishes a usage event. An incompatible result is reported without
// any write.
func (r *Registry) RegisterSchema(ctx context.Context, schema *model.Schema, mode model.CompatibilityMode) (model.Result, error) {
	start := time.Now()

	priors, err := r.Storage.ListBySubject(ctx, schema.Subject)
	if err != nil {
		return model.Result{}, err
	}

	result, err := r.Compatibility.Check(ctx, schema, priors, mode)
	r.publish(ctx, model.OpCheckCompatibility, schema.ID, time.Since(start), err == nil && result.IsCompatible)
	if err != nil {
		return result, err
	}
	if !result.IsCompatible {
		return result, registryerr.Newf(registryerr.InvalidInput, "schema %s incompatible with subject %q under mode %s: %d violation(s)",
			schema.ID, schema.Subject, mode, len(result.Violations))
	}

	writeStart := time.Now()
	if err := r.Storage.Register(ctx, schema); err != nil {
		r.publish(ctx, model.OpWrite, schema.ID, time.Since(writeStart), false)
		return result, err
	}
	r.publish(ctx, model.OpWrite, schema.ID, time.Since(writeStart), true)

	r.Lineage.RegisterSchema(schema.ID)

	return result, nil
}

// GetSchema reads a schema through the storage engine's tier hierarchy
// and records the read as a usage event.
func (r *Registry) GetSchema(ctx context.Context, id uuid.UUID) (*model.Schema, model.Tier, error) {
	start := time.Now()
	schema, tier, err := r.Storage.Get(ctx, id)
	r.publish(ctx, model.OpRead, id, time.Since(start), err == nil)
	return schema, tier, err
}

// DeleteSchema soft-deletes a schema through the storage engine and
// records the delete as a usage event. The schema's lineage node and
// its edges are left in place.
func (r *Registry) DeleteSchema(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := r.Storage.SoftDelete(ctx, id)
	r.publish(ctx, model.OpDelete, id, time.Since(start), err == nil)
	return err
}

// AnalyzeImpact predicts the blast radius of a proposed change to an
// already-registered schema, delegating to the lineage engine's
// impact analyzer.
func (r *Registry) AnalyzeImpact(ctx context.Context, target uuid.UUID, change model.SchemaChangeKind) (model.ImpactReport, error) {
	return r.Impact.AnalyzeImpact(ctx, target, change)
}

// Close releases every engine's external resources.
func (r *Registry) Close() error {
	r.Analytics.Close()
	return r.Storage.Close()
}

func (r *Registry) publish(ctx context.Context, op model.Operation, schemaID uuid.UUID, latency time.Duration, success bool) {
	r.Analytics.PublishAsync(model.UsageEvent{
		EventID:   uuid.New(),
		SchemaID:  schemaID,
		Operation: op,
		Timestamp: time.Now(),
		LatencyMS: float64(latency.Microseconds()) / 1000,
		Success:   success,
	})
}
