// Package analytics tracks schema usage events and turns them into
// windowed statistics, health scores, and anomaly alerts.
//
// # Overview
//
// Callers publish a UsageEvent per operation (read, write, validate,
// compatibility check, delete, state transition, search) onto a bounded
// in-memory bus. A background aggregator subscribes to the bus and rolls
// events up into fixed-width time windows (1m/5m/1h/1d), bucketed by
// schema and globally. Percentiles are computed on read from the
// window's retained latency samples rather than maintained incrementally.
//
// # Key Operations
//
// Publish / PublishAsync / TryPublish: blocking, fire-and-forget, and
// non-blocking-with-drop event submission.
//
// GetStats / Latest / TopK: windowed statistics queries.
//
// HealthScorer.Score: compound 0-100 health assessment per schema,
// combining success rate, latency, and recent activity.
//
// AnomalyDetector.Detect: flags windows whose error rate or latency
// breaches warning/critical thresholds.
//
// # Retention
//
// The engine evicts windows older than its configured retention period
// on a ticker; Close cancels the sweep and waits for it to exit before
// closing the bus.
package analytics
