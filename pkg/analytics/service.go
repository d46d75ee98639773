package analytics

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/schemaforge/registry-core/pkg/model"
	"github.com/schemaforge/registry-core/pkg/observability"
)

// Config tunes the analytics engine's bus size, tracked periods, and
// retention.
type Config struct {
	BusBufferSize   int
	Periods         []model.Period
	HealthPeriod    model.Period
	RetentionPeriod time.Duration
	EvictInterval   time.Duration

	// Logger receives the aggregator's per-event panic recoveries. A nil
	// Logger falls back to an info-level stdout logger.
	Logger *observability.Logger

	// Metrics, if set, receives publish/drop counters and per-schema
	// health-score gauge updates.
	Metrics *observability.Metrics
}

// DefaultConfig matches the values used across the registry's other
// engines: a 10,000-event bus buffer, all four periods tracked, hourly
// health scoring, and a week of retained windows.
func DefaultConfig() Config {
	return Config{
		BusBufferSize:   10000,
		Periods:         []model.Period{model.Period1m, model.Period5m, model.Period1h, model.Period1d},
		HealthPeriod:    model.Period1h,
		RetentionPeriod: 7 * 24 * time.Hour,
		EvictInterval:   time.Hour,
	}
}

// Engine is the analytics engine's façade: event bus, windowed
// aggregation, health scoring, and anomaly detection, wired together
// with a background retention sweep.
type Engine struct {
	cfg        Config
	bus        *Bus
	aggregator *Aggregator
	health     *HealthScorer
	anomalies  *AnomalyDetector
	rollup     *RollupStore

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewEngine wires up a running analytics engine. Call Close to stop its
// background workers.
func NewEngine(cfg Config) *Engine {
	bus := NewBus(cfg.BusBufferSize)
	aggregator := NewAggregator(cfg.Logger, cfg.Periods...)

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:        cfg,
		bus:        bus,
		aggregator: aggregator,
		health:     NewHealthScorer(aggregator, cfg.HealthPeriod),
		anomalies:  NewAnomalyDetector(aggregator),
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	go aggregator.Run(ctx, bus)
	go e.runRetention(ctx)

	return e
}

// WithRollup attaches a persistent rollup sink; before evicting, every
// sweep flushes the global 1d window that contains the cutoff through it.
// Other periods and schema-scoped windows are not flushed.
func (e *Engine) WithRollup(db *sql.DB) *Engine {
	e.rollup = NewRollupStore(db)
	return e
}

func (e *Engine) runRetention(ctx context.Context) {
	defer close(e.done)
	ticker := time.NewTicker(e.cfg.EvictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-e.cfg.RetentionPeriod)
			if e.rollup != nil {
				e.flushRollups(ctx, cutoff)
			}
			e.aggregator.EvictBefore(cutoff)
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) flushRollups(ctx context.Context, cutoff time.Time) {
	for _, period := range e.cfg.Periods {
		if period != model.Period1d {
			continue
		}
		stats, ok := e.aggregator.GetStats(period, nil, floorWindow(cutoff, period))
		if ok {
			_ = e.rollup.Upsert(ctx, stats)
		}
	}
}

// Publish, PublishAsync, and TryPublish submit one usage event.
func (e *Engine) Publish(ctx context.Context, event model.UsageEvent) error {
	err := e.bus.Publish(ctx, event)
	e.recordPublish(err == nil)
	return err
}

func (e *Engine) PublishAsync(event model.UsageEvent) {
	e.bus.PublishAsync(event)
	e.recordPublish(true)
}

func (e *Engine) TryPublish(event model.UsageEvent) bool {
	accepted := e.bus.TryPublish(event)
	e.recordPublish(accepted)
	return accepted
}

func (e *Engine) recordPublish(accepted bool) {
	if e.cfg.Metrics == nil {
		return
	}
	if accepted {
		e.cfg.Metrics.AnalyticsEventsPublished.Inc()
	} else {
		e.cfg.Metrics.AnalyticsEventsDropped.Inc()
	}
}

// GetStats, Latest, and TopK query windowed statistics.
func (e *Engine) GetStats(period model.Period, schemaID *uuid.UUID, windowStart time.Time) (model.WindowStats, bool) {
	return e.aggregator.GetStats(period, schemaID, windowStart)
}
func (e *Engine) Latest(period model.Period, schemaID *uuid.UUID) (model.WindowStats, bool) {
	return e.aggregator.Latest(period, schemaID)
}
func (e *Engine) TopK(period model.Period, windowStart time.Time, k int) []model.WindowStats {
	return e.aggregator.TopK(period, windowStart, k)
}

// HealthScore scores one schema's recent health.
func (e *Engine) HealthScore(schemaID uuid.UUID) model.HealthScore {
	score := e.health.Score(schemaID)
	if e.cfg.Metrics != nil {
		e.cfg.Metrics.AnalyticsHealthScore.WithLabelValues(schemaID.String()).Set(score.Score)
	}
	return score
}

// Anomalies detects anomalies in schemaID's latest window at period.
func (e *Engine) Anomalies(period model.Period, schemaID *uuid.UUID) []model.Anomaly {
	return e.anomalies.Detect(period, schemaID)
}

// Close stops the engine's background workers and the event bus.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.cancel()
		<-e.done
		e.bus.Close()
	})
}

// RollupStore persists day-bucketed global windows to a relational
// store, for dashboards that outlive the in-memory retention window.
type RollupStore struct {
	db *sql.DB
}

// NewRollupStore binds a rollup sink to a database handle.
func NewRollupStore(db *sql.DB) *RollupStore {
	return &RollupStore{db: db}
}

// Upsert writes or updates one day's global rollup row.
func (r *RollupStore) Upsert(ctx context.Context, stats model.WindowStats) error {
	query := `
		INSERT INTO analytics_daily_rollup (
			window_start, total, success, failure, p50_ms, p95_ms, p99_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (window_start) DO UPDATE SET
			total = EXCLUDED.total,
			success = EXCLUDED.success,
			failure = EXCLUDED.failure,
			p50_ms = EXCLUDED.p50_ms,
			p95_ms = EXCLUDED.p95_ms,
			p99_ms = EXCLUDED.p99_ms
	`
	_, err := r.db.ExecContext(ctx, query,
		stats.WindowStart, stats.Total, stats.Success, stats.Failure,
		stats.P50, stats.P95, stats.P99,
	)
	return err
}
