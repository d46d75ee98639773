package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/schemaforge/registry-core/pkg/model"
)

func TestRollupStore_UpsertExecutesOnConflictUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock database: %v", err)
	}
	defer db.Close()

	store := NewRollupStore(db)
	stats := model.WindowStats{
		Period:      model.Period1d,
		WindowStart: time.Now(),
		Total:       100,
		Success:     95,
		Failure:     5,
		P50:         10,
		P95:         50,
		P99:         90,
	}

	mock.ExpectExec("INSERT INTO analytics_daily_rollup").
		WithArgs(stats.WindowStart, stats.Total, stats.Success, stats.Failure, stats.P50, stats.P95, stats.P99).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Upsert(context.Background(), stats); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEngine_PublishAndScoreRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EvictInterval = time.Hour
	engine := NewEngine(cfg)
	defer engine.Close()

	schema := uuid.New()
	if err := engine.Publish(context.Background(), model.UsageEvent{
		SchemaID:  schema,
		Operation: model.OpRead,
		Timestamp: time.Now(),
		Success:   true,
		LatencyMS: 5,
	}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	// the aggregator consumes asynchronously off the bus; give it a beat.
	deadline := time.After(time.Second)
	for {
		if stats, ok := engine.Latest(cfg.Periods[0], &schema); ok && stats.Total > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for aggregation")
		case <-time.After(10 * time.Millisecond):
		}
	}

	health := engine.HealthScore(schema)
	if health.IsZombie {
		t.Fatal("expected freshly published schema not to be a zombie")
	}
}
