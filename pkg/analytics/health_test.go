package analytics

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/schemaforge/registry-core/pkg/model"
)

func TestHealthScorer_ZombieWhenNoActivity(t *testing.T) {
	agg := NewAggregator(nil, model.Period1h)
	scorer := NewHealthScorer(agg, model.Period1h)

	health := scorer.Score(uuid.New())
	if !health.IsZombie {
		t.Fatal("expected schema with no events to be marked zombie")
	}
}

func TestHealthScorer_HighSuccessLowLatencyScoresWell(t *testing.T) {
	agg := NewAggregator(nil, model.Period1h)
	scorer := NewHealthScorer(agg, model.Period1h)
	schema := uuid.New()
	now := time.Now()

	for i := 0; i < 50; i++ {
		agg.Ingest(model.UsageEvent{SchemaID: schema, Timestamp: now, Success: true, LatencyMS: 5})
	}

	health := scorer.Score(schema)
	if health.IsZombie {
		t.Fatal("expected active schema not to be a zombie")
	}
	if health.Score < 80 {
		t.Fatalf("expected a high health score, got %v", health.Score)
	}
}

func TestHealthScorer_HighErrorRateScoresPoorly(t *testing.T) {
	agg := NewAggregator(nil, model.Period1h)
	scorer := NewHealthScorer(agg, model.Period1h)
	schema := uuid.New()
	now := time.Now()

	for i := 0; i < 10; i++ {
		agg.Ingest(model.UsageEvent{SchemaID: schema, Timestamp: now, Success: false, LatencyMS: 5})
	}

	health := scorer.Score(schema)
	if health.SuccessScore != 0 {
		t.Fatalf("expected 0%% success score, got %v", health.SuccessScore)
	}
	if health.Score >= 50 {
		t.Fatalf("expected a low health score, got %v", health.Score)
	}
}
