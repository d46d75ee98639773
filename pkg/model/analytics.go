package model

import (
	"time"

	"github.com/google/uuid"
)

// Operation is the closed set of usage-event kinds the analytics engine
// aggregates.
type Operation string

const (
	OpRead               Operation = "read"
	OpWrite              Operation = "write"
	OpValidate           Operation = "validate"
	OpCheckCompatibility Operation = "check_compatibility"
	OpDelete             Operation = "delete"
	OpStateTransition    Operation = "state_transition"
	OpSearch             Operation = "search"
)

// Period is the closed set of aggregation window widths.
type Period string

const (
	Period1m Period = "1m"
	Period5m Period = "5m"
	Period1h Period = "1h"
	Period1d Period = "1d"
)

// Seconds reports the width of the period in seconds.
func (p Period) Seconds() int64 {
	switch p {
	case Period1m:
		return 60
	case Period5m:
		return 300
	case Period1h:
		return 3600
	case Period1d:
		return 86400
	default:
		return 0
	}
}

// UsageEvent is one append-only record of a schema operation.
type UsageEvent struct {
	EventID     uuid.UUID
	SchemaID    uuid.UUID
	Operation   Operation
	Timestamp   time.Time
	ClientID    string
	Region      string
	LatencyMS   float64
	Success     bool
	Error       string
	Metadata    map[string]string
}

// WindowStats is the read-side projection of one aggregation window: the
// counters plus whatever percentiles were requested, computed on read.
type WindowStats struct {
	Period      Period
	WindowStart time.Time
	SchemaID    *uuid.UUID // nil means global
	Total       int64
	Success     int64
	Failure     int64
	P50         float64
	P95         float64
	P99         float64
}

// SuccessRate reports Success/Total, or 1.0 for an empty window (vacuously
// successful, matching the teacher's convention of treating absence of
// traffic as healthy rather than failing).
func (w WindowStats) SuccessRate() float64 {
	if w.Total == 0 {
		return 1.0
	}
	return float64(w.Success) / float64(w.Total)
}

// ErrorRate is the complement of SuccessRate.
func (w WindowStats) ErrorRate() float64 {
	return 1.0 - w.SuccessRate()
}

// AnomalySeverity bands how far an anomalous window exceeds its threshold.
type AnomalySeverity string

const (
	AnomalyWarning  AnomalySeverity = "warning"
	AnomalyCritical AnomalySeverity = "critical"
)

// Anomaly flags one window that breached the error-rate or latency
// thresholds.
type Anomaly struct {
	SchemaID    *uuid.UUID
	WindowStart time.Time
	Reason      string
	Severity    AnomalySeverity
}

// HealthScore is the compound 0-100 health assessment for one schema.
type HealthScore struct {
	SchemaID         uuid.UUID
	Score            float64
	SuccessScore     float64
	PerformanceScore float64
	ActivityScore    float64
	IsZombie         bool
	Recommendations  []string
}
