package lineage

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/schemaforge/registry-core/pkg/model"
)

func TestImpactAnalyzer_RiskBandsByDependentCount(t *testing.T) {
	store := NewStore()
	target := uuid.New()
	for i := 0; i < 12; i++ {
		store.AddEdge(edge(uuid.New(), target))
	}

	analyzer := NewImpactAnalyzer(store)
	report, err := analyzer.AnalyzeImpact(context.Background(), target, model.ChangeFieldRemove)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if report.RiskLevel != model.RiskMedium {
		t.Fatalf("expected medium risk for 12 dependents, got %s", report.RiskLevel)
	}
	if len(report.AffectedSchemas) != 12 {
		t.Fatalf("expected 12 affected schemas, got %d", len(report.AffectedSchemas))
	}
}

func TestImpactAnalyzer_ClassifiesExternalEntitiesByType(t *testing.T) {
	store := NewStore()
	target := uuid.New()
	pipeline := uuid.New()
	store.RegisterExternal(model.ExternalEntity{ID: "pipeline-1", EntityType: model.EntityPipeline})
	store.AddEdge(model.Edge{From: pipeline, To: model.NodeID{Kind: model.NodeExternal, ExternalID: "pipeline-1"}, Relation: model.RelationConsumedBy})
	store.AddEdge(edge(pipeline, target))

	analyzer := NewImpactAnalyzer(store)
	report, err := analyzer.AnalyzeImpact(context.Background(), target, model.ChangeFieldAdd)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(report.AffectedPipelines) != 1 {
		t.Fatalf("expected pipeline to be classified, got %+v", report)
	}
}

func TestImpactAnalyzer_NoDependentsIsLowRiskWithNoRecommendationGap(t *testing.T) {
	store := NewStore()
	target := uuid.New()
	store.RegisterSchema(target)

	analyzer := NewImpactAnalyzer(store)
	report, err := analyzer.AnalyzeImpact(context.Background(), target, model.ChangeFormatChange)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if report.RiskLevel != model.RiskLow {
		t.Fatalf("expected low risk with no dependents, got %s", report.RiskLevel)
	}
	if len(report.Recommendations) != 1 {
		t.Fatalf("expected exactly one recommendation, got %+v", report.Recommendations)
	}
}
