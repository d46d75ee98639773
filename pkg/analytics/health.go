package analytics

import (
	"math"

	"github.com/google/uuid"

	"github.com/schemaforge/registry-core/pkg/model"
)

// Performance thresholds, in milliseconds, for banding P95 latency into a
// 0-100 performance score.
const (
	latencyExcellentMS = 50.0
	latencyPoorMS       = 1000.0
)

// HealthScorer combines recent windowed statistics into a compound
// health assessment per schema.
type HealthScorer struct {
	aggregator *Aggregator
	period     model.Period
}

// NewHealthScorer scores schemas using the aggregator's windows at the
// given period (typically Period1h for a stable recent-activity view).
func NewHealthScorer(aggregator *Aggregator, period model.Period) *HealthScorer {
	return &HealthScorer{aggregator: aggregator, period: period}
}

// Score computes the health of one schema from its latest window.
func (h *HealthScorer) Score(schemaID uuid.UUID) model.HealthScore {
	stats, ok := h.aggregator.Latest(h.period, &schemaID)

	health := model.HealthScore{SchemaID: schemaID}
	if !ok || stats.Total == 0 {
		health.IsZombie = true
		health.Recommendations = append(health.Recommendations,
			"no recorded activity in the current window; confirm this schema is still in use")
		return health
	}

	health.SuccessScore = stats.SuccessRate() * 100
	health.PerformanceScore = performanceScore(stats.P95)
	health.ActivityScore = activityScore(stats.Total)

	health.Score = math.Round((0.4*health.SuccessScore+0.3*health.PerformanceScore+0.3*health.ActivityScore)*10) / 10
	health.Recommendations = recommendationsFor(health, stats)

	return health
}

// performanceScore bands P95 latency into 0-100, higher is better.
// Below latencyExcellentMS scores 100; at or above latencyPoorMS scores 0;
// linear in between.
func performanceScore(p95 float64) float64 {
	if p95 <= latencyExcellentMS {
		return 100
	}
	if p95 >= latencyPoorMS {
		return 0
	}
	return 100 * (latencyPoorMS - p95) / (latencyPoorMS - latencyExcellentMS)
}

// activityScore rewards higher traffic, saturating at 100 events/window.
func activityScore(total int64) float64 {
	return math.Min(float64(total)/100*100, 100)
}

func recommendationsFor(health model.HealthScore, stats model.WindowStats) []string {
	var recs []string

	if health.SuccessScore < 95 {
		recs = append(recs, "error rate is elevated; inspect recent failures for this schema")
	}
	if health.PerformanceScore < 50 {
		recs = append(recs, "p95 latency is high; consider caching or a cheaper validation path")
	}
	if health.ActivityScore < 10 {
		recs = append(recs, "activity is low; confirm consumers are still registered to this schema")
	}
	if len(recs) == 0 {
		recs = append(recs, "schema is healthy; no action needed")
	}
	return recs
}
