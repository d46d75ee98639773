package analytics

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/schemaforge/registry-core/pkg/model"
)

// Error-rate and latency thresholds that band a window into warning or
// critical anomaly severity. A window is flagged once its error rate is
// above 10% or its P95 latency is above 1000ms.
const (
	errorRateWarnThreshold     = 0.10
	errorRateCriticalThreshold = 0.20
	latencyWarnMS              = 1000.0
	latencyCriticalMS          = 2000.0
)

// AnomalyDetector flags windows whose error rate or P95 latency breach
// the configured thresholds.
type AnomalyDetector struct {
	aggregator *Aggregator
}

// NewAnomalyDetector binds a detector to an aggregator.
func NewAnomalyDetector(aggregator *Aggregator) *AnomalyDetector {
	return &AnomalyDetector{aggregator: aggregator}
}

// Detect checks the latest window at period for schemaID (nil for
// global) and returns every anomaly found, most severe first.
func (d *AnomalyDetector) Detect(period model.Period, schemaID *uuid.UUID) []model.Anomaly {
	stats, ok := d.aggregator.Latest(period, schemaID)
	if !ok || stats.Total == 0 {
		return nil
	}

	var anomalies []model.Anomaly
	if errRate := stats.ErrorRate(); errRate >= errorRateCriticalThreshold {
		anomalies = append(anomalies, newAnomaly(schemaID, stats.WindowStart, model.AnomalyCritical,
			fmt.Sprintf("error rate %.1f%% exceeds critical threshold %.0f%%", errRate*100, errorRateCriticalThreshold*100)))
	} else if errRate > errorRateWarnThreshold {
		anomalies = append(anomalies, newAnomaly(schemaID, stats.WindowStart, model.AnomalyWarning,
			fmt.Sprintf("error rate %.1f%% exceeds warning threshold %.0f%%", errRate*100, errorRateWarnThreshold*100)))
	}

	if stats.P95 >= latencyCriticalMS {
		anomalies = append(anomalies, newAnomaly(schemaID, stats.WindowStart, model.AnomalyCritical,
			fmt.Sprintf("p95 latency %.0fms exceeds critical threshold %.0fms", stats.P95, latencyCriticalMS)))
	} else if stats.P95 > latencyWarnMS {
		anomalies = append(anomalies, newAnomaly(schemaID, stats.WindowStart, model.AnomalyWarning,
			fmt.Sprintf("p95 latency %.0fms exceeds warning threshold %.0fms", stats.P95, latencyWarnMS)))
	}

	return anomalies
}

func newAnomaly(schemaID *uuid.UUID, windowStart time.Time, severity model.AnomalySeverity, reason string) model.Anomaly {
	return model.Anomaly{SchemaID: schemaID, WindowStart: windowStart, Reason: reason, Severity: severity}
}
