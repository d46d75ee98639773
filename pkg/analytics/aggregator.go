package analytics

import (
	"context"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/schemaforge/registry-core/pkg/model"
	"github.com/schemaforge/registry-core/pkg/observability"
)

// bucketKey identifies one aggregation window. SchemaID == uuid.Nil
// means the global (all-schemas) bucket for that period/window.
type bucketKey struct {
	period      model.Period
	windowStart int64
	schemaID    uuid.UUID
}

type bucket struct {
	total, success, failure int64
	latencies               []float64
}

// Aggregator rolls usage events up into fixed-width time windows, one
// per configured period, bucketed both globally and per schema.
type Aggregator struct {
	mu      sync.Mutex
	periods []model.Period
	buckets map[bucketKey]*bucket
	logger  *observability.Logger
}

// NewAggregator builds an aggregator tracking the given periods. A nil
// logger falls back to an info-level stdout logger so Run's per-event
// panic recovery always has somewhere to write.
func NewAggregator(logger *observability.Logger, periods ...model.Period) *Aggregator {
	if len(periods) == 0 {
		periods = []model.Period{model.Period1m, model.Period5m, model.Period1h, model.Period1d}
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, os.Stdout)
	}
	return &Aggregator{periods: periods, buckets: map[bucketKey]*bucket{}, logger: logger}
}

// Run subscribes to bus and ingests events until ctx is done. A panic
// while ingesting one event is logged and the loop keeps serving the
// rest of the stream; consumer errors never stop the pipeline.
func (a *Aggregator) Run(ctx context.Context, bus *Bus) {
	events, unsubscribe := bus.Subscribe(256)
	defer unsubscribe()
	for {
		select {
		case event := <-events:
			a.ingestRecovered(event)
		case <-ctx.Done():
			return
		}
	}
}

func (a *Aggregator) ingestRecovered(event model.UsageEvent) {
	defer observability.RecoverPanic(a.logger, "analytics aggregator ingest")
	a.Ingest(event)
}

// Ingest folds one event into every configured period's current window,
// both the global bucket and the schema-scoped one.
func (a *Aggregator) Ingest(event model.UsageEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, period := range a.periods {
		start := floorWindow(event.Timestamp, period).Unix()
		a.apply(bucketKey{period: period, windowStart: start, schemaID: uuid.Nil}, event)
		a.apply(bucketKey{period: period, windowStart: start, schemaID: event.SchemaID}, event)
	}
}

func (a *Aggregator) apply(key bucketKey, event model.UsageEvent) {
	b, ok := a.buckets[key]
	if !ok {
		b = &bucket{}
		a.buckets[key] = b
	}
	b.total++
	if event.Success {
		b.success++
	} else {
		b.failure++
	}
	b.latencies = append(b.latencies, event.LatencyMS)
}

func floorWindow(t time.Time, period model.Period) time.Time {
	secs := period.Seconds()
	if secs == 0 {
		return t.UTC()
	}
	unix := t.Unix()
	start := (unix / secs) * secs
	return time.Unix(start, 0).UTC()
}

// GetStats returns the window for (period, schemaID, windowStart).
// schemaID nil means the global bucket. ok is false if the window has no
// recorded events.
func (a *Aggregator) GetStats(period model.Period, schemaID *uuid.UUID, windowStart time.Time) (model.WindowStats, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := bucketKey{period: period, windowStart: windowStart.Unix(), schemaID: idOrNil(schemaID)}
	b, ok := a.buckets[key]
	if !ok {
		return model.WindowStats{}, false
	}
	return statsFromBucket(period, windowStart, schemaID, b), true
}

// Latest returns the current window (the one containing time.Now()) for
// (period, schemaID); ok is false if that window has no recorded events.
func (a *Aggregator) Latest(period model.Period, schemaID *uuid.UUID) (model.WindowStats, bool) {
	now := floorWindow(time.Now(), period)
	return a.GetStats(period, schemaID, now)
}

// TopK returns up to k schema-scoped windows for period/windowStart
// ranked by total event count, descending.
func (a *Aggregator) TopK(period model.Period, windowStart time.Time, k int) []model.WindowStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	var stats []model.WindowStats
	for key, b := range a.buckets {
		if key.period != period || key.windowStart != windowStart.Unix() || key.schemaID == uuid.Nil {
			continue
		}
		id := key.schemaID
		stats = append(stats, statsFromBucket(period, windowStart, &id, b))
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Total > stats[j].Total })
	if k > 0 && len(stats) > k {
		stats = stats[:k]
	}
	return stats
}

// EvictBefore drops every bucket whose window started before cutoff,
// returning the number of buckets removed.
func (a *Aggregator) EvictBefore(cutoff time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	removed := 0
	for key := range a.buckets {
		if key.windowStart < cutoff.Unix() {
			delete(a.buckets, key)
			removed++
		}
	}
	return removed
}

func statsFromBucket(period model.Period, windowStart time.Time, schemaID *uuid.UUID, b *bucket) model.WindowStats {
	return model.WindowStats{
		Period:      period,
		WindowStart: windowStart,
		SchemaID:    schemaID,
		Total:       b.total,
		Success:     b.success,
		Failure:     b.failure,
		P50:         percentile(b.latencies, 50),
		P95:         percentile(b.latencies, 95),
		P99:         percentile(b.latencies, 99),
	}
}

// percentile computes the Nth percentile of samples using a nearest-rank
// method: sort ascending, take index ceil(n/100*len)-1.
func percentile(samples []float64, n float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	idx := int(math.Ceil(n/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func idOrNil(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
