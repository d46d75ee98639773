package compatibility

import (
	"context"
	"fmt"
	"time"

	"github.com/schemaforge/registry-core/pkg/model"
	"github.com/schemaforge/registry-core/pkg/observability"
	"github.com/schemaforge/registry-core/pkg/registryerr"
)

// TransitiveCap bounds how many prior versions a transitive mode compares
// against. The source caps at 100; this module orders newest-first.
const TransitiveCap = 100

// DefaultDeadline is the per-check deadline used when Config.Deadline is
// unset. It is applied on top of the caller's context, so an earlier
// deadline already on that context still wins.
const DefaultDeadline = 25 * time.Millisecond

// Config tunes the engine's cache and deadline behaviour.
type Config struct {
	CacheShards   int
	CacheSize     int // per-shard entry cap
	CacheTTL      time.Duration
	Deadline      time.Duration
	TransitiveCap int
	CustomRules   []model.CustomRule
}

// DefaultConfig returns the engine defaults named in the component design.
func DefaultConfig() Config {
	return Config{
		CacheShards:   16,
		CacheSize:     1024,
		CacheTTL:      10 * time.Minute,
		Deadline:      DefaultDeadline,
		TransitiveCap: TransitiveCap,
	}
}

// Engine is the Compatibility Engine: format-dispatched diffing, mode
// application, and a coalescing result cache.
type Engine struct {
	cfg     Config
	cache   *resultCache
	metrics *observability.Metrics
}

// NewEngine constructs an Engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	if cfg.CacheShards <= 0 {
		cfg.CacheShards = 16
	}
	if cfg.TransitiveCap <= 0 {
		cfg.TransitiveCap = TransitiveCap
	}
	return &Engine{
		cfg:   cfg,
		cache: newResultCache(cfg.CacheShards, cfg.CacheSize, cfg.CacheTTL),
	}
}

// WithMetrics attaches Prometheus instrumentation; Check and the cache
// lookups it drives start recording counters and a duration histogram.
// Safe to skip in tests that don't care about metrics.
func (e *Engine) WithMetrics(m *observability.Metrics) *Engine {
	e.metrics = m
	return e
}

// Check evaluates newSchema against priors (newest-first, already
// filtered to the same subject and live) under mode.
//
// For non-transitive modes only priors[0] is consulted. For transitive
// modes every entry up to cfg.TransitiveCap is checked and violations are
// unioned.
func (e *Engine) Check(ctx context.Context, newSchema *model.Schema, priors []*model.Schema, mode model.CompatibilityMode) (result model.Result, err error) {
	start := time.Now()

	if e.metrics != nil {
		defer func() {
			outcome := "compatible"
			if err != nil {
				outcome = "error"
			} else if !result.IsCompatible {
				outcome = "incompatible"
			}
			e.metrics.CompatibilityChecksTotal.WithLabelValues(string(mode), outcome).Inc()
			e.metrics.CompatibilityCheckDuration.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
		}()
	}

	deadline := e.cfg.Deadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	cctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	if mode == model.ModeNone {
		return model.NewResult(mode, nil, nil, elapsedMS(start)), nil
	}

	candidates := priors
	if mode.IsTransitive() && len(candidates) > e.cfg.TransitiveCap {
		candidates = candidates[:e.cfg.TransitiveCap]
	} else if !mode.IsTransitive() && len(candidates) > 1 {
		candidates = candidates[:1]
	}

	var allViolations []model.Violation
	var checked []model.Version
	base := mode.Base()

	for _, old := range candidates {
		select {
		case <-cctx.Done():
			return model.Result{}, registryerr.Wrap(registryerr.DeadlineExceeded, cctx.Err(), "compatibility check deadline exceeded")
		default:
		}

		vs, err := e.checkPair(cctx, newSchema, old, base)
		if err != nil {
			return model.Result{}, err
		}
		allViolations = append(allViolations, vs...)
		checked = append(checked, old.Version)
	}

	for _, rule := range e.cfg.CustomRules {
		for _, old := range candidates {
			vs := rule.Apply(old.Content, newSchema.Content, newSchema.Format)
			for i := range vs {
				if vs[i].Severity == "" {
					vs[i].Severity = rule.Severity
				}
				if vs[i].Kind == "" {
					vs[i].Kind = model.ViolationCustomRule
				}
			}
			allViolations = append(allViolations, vs...)
		}
	}

	return model.NewResult(mode, allViolations, checked, elapsedMS(start)), nil
}

// checkPair runs the fast paths then, on a miss, the per-format diff for
// a single (new, old) pair under a non-transitive base mode.
func (e *Engine) checkPair(ctx context.Context, newSchema, old *model.Schema, base model.CompatibilityMode) ([]model.Violation, error) {
	if newSchema.ContentHash == old.ContentHash {
		return nil, nil
	}
	if newSchema.Format != old.Format {
		return []model.Violation{{
			Kind:     model.ViolationFormatChanged,
			Path:     "$",
			Message:  fmt.Sprintf("format changed from %s to %s", old.Format, newSchema.Format),
			Severity: model.SeverityBreaking,
			OldValue: old.Format,
			NewValue: newSchema.Format,
		}}, nil
	}

	key := cacheKey{newHash: newSchema.ContentHash, oldHash: old.ContentHash, mode: base}
	if cached, ok := e.cache.get(key); ok {
		if e.metrics != nil {
			e.metrics.CompatibilityCacheHits.Inc()
		}
		return cached, nil
	}
	if e.metrics != nil {
		e.metrics.CompatibilityCacheMisses.Inc()
	}

	violations, err := e.cache.group.Do(key.String(), func() (any, error) {
		vs, err := diff(newSchema, old, base)
		if err != nil {
			return nil, err
		}
		e.cache.put(key, vs)
		return vs, nil
	})
	if err != nil {
		return nil, err
	}
	_ = ctx
	return violations.([]model.Violation), nil
}

// diff dispatches to the per-format comparator for base ∈ {backward,
// forward, full}. Forward is backward with arguments swapped; full is
// the union of both directions.
func diff(newSchema, old *model.Schema, base model.CompatibilityMode) ([]model.Violation, error) {
	switch base {
	case model.ModeBackward:
		return diffFormat(newSchema, old)
	case model.ModeForward:
		return diffFormat(old, newSchema)
	case model.ModeFull:
		back, err := diffFormat(newSchema, old)
		if err != nil {
			return nil, err
		}
		fwd, err := diffFormat(old, newSchema)
		if err != nil {
			return nil, err
		}
		return append(back, fwd...), nil
	default:
		return nil, registryerr.Newf(registryerr.InvalidInput, "unknown compatibility mode %q", base)
	}
}

// diffFormat compares newSchema against old in the "backward" direction
// (readers of newSchema can decode data written under old) using the
// comparator for newSchema.Format.
func diffFormat(newSchema, old *model.Schema) ([]model.Violation, error) {
	switch newSchema.Format {
	case model.FormatJSONSchema:
		return diffJSONSchema(old.Content, newSchema.Content)
	case model.FormatAvro:
		return diffAvro(old.Content, newSchema.Content)
	case model.FormatProtobuf:
		return diffProtobuf(old.Content, newSchema.Content)
	default:
		return nil, registryerr.Newf(registryerr.UnsupportedFormat, "unsupported schema format %q", newSchema.Format)
	}
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
