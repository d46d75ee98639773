package lineage

import (
	"context"
	"math"

	"github.com/google/uuid"

	"github.com/schemaforge/registry-core/pkg/model"
)

// baseComplexity and baseEffortHours are the per-change-kind starting
// points the impact formulas scale from.
var baseComplexity = map[model.SchemaChangeKind]float64{
	model.ChangeFieldAdd:           0.1,
	model.ChangeOptionalToRequired: 0.5,
	model.ChangeTypeChange:         0.7,
	model.ChangeFieldRemove:        0.9,
	model.ChangeFormatChange:       1.0,
}

var baseEffortHours = map[model.SchemaChangeKind]float64{
	model.ChangeFieldAdd:           0.5,
	model.ChangeOptionalToRequired: 2,
	model.ChangeTypeChange:         3,
	model.ChangeFieldRemove:        10,
	model.ChangeFormatChange:       8,
}

// recommendations is a deterministic risk-band x change-kind lookup
// table. It exists so callers get a stable, explainable suggestion
// instead of a freeform generated one.
var recommendations = map[model.RiskLevel]map[model.SchemaChangeKind]string{
	model.RiskLow: {
		model.ChangeFieldAdd:           "safe to proceed; few consumers to notify",
		model.ChangeOptionalToRequired: "verify the small consumer set supplies the field",
		model.ChangeTypeChange:         "coordinate with the handful of affected consumers",
		model.ChangeFieldRemove:        "confirm no consumer still reads the removed field",
		model.ChangeFormatChange:       "stage a dual-read migration for affected consumers",
	},
	model.RiskMedium: {
		model.ChangeFieldAdd:           "announce in the subject's changelog before release",
		model.ChangeOptionalToRequired: "run a transitional period where the field is optional",
		model.ChangeTypeChange:         "publish a new version and deprecate the old one on a timeline",
		model.ChangeFieldRemove:        "Breaking change: field removal requires version bump",
		model.ChangeFormatChange:       "require a migration window with both formats live",
	},
	model.RiskHigh: {
		model.ChangeFieldAdd:           "notify all consuming teams; schedule a compatibility review",
		model.ChangeOptionalToRequired: "treat as a breaking change; require a major version bump",
		model.ChangeTypeChange:         "require a major version bump and a phased rollout",
		model.ChangeFieldRemove:        "require a major version bump and a cross-team sign-off",
		model.ChangeFormatChange:       "require a cross-team migration plan before scheduling",
	},
	model.RiskCritical: {
		model.ChangeFieldAdd:           "escalate to the schema governance board before proceeding",
		model.ChangeOptionalToRequired: "escalate; this affects critical consumers across the org",
		model.ChangeTypeChange:         "escalate to the schema governance board before proceeding",
		model.ChangeFieldRemove:        "escalate; consider a new subject instead of a breaking edit",
		model.ChangeFormatChange:       "escalate; a format change at this scale needs an org-wide plan",
	},
}

// ImpactAnalyzer predicts the blast radius of a proposed schema change by
// walking the lineage graph's downstream dependents.
type ImpactAnalyzer struct {
	store *Store
}

// NewImpactAnalyzer binds an analyzer to a graph store.
func NewImpactAnalyzer(store *Store) *ImpactAnalyzer {
	return &ImpactAnalyzer{store: store}
}

// AnalyzeImpact enumerates every schema and external entity transitively
// dependent on target, bands the risk level by total affected count, and
// scores migration complexity and estimated effort for proposedChange.
func (a *ImpactAnalyzer) AnalyzeImpact(ctx context.Context, target uuid.UUID, proposedChange model.SchemaChangeKind) (model.ImpactReport, error) {
	result := a.store.Transitive(target, DirectionDownstream, 0)

	// External entities are linked from a schema by its outgoing edges, so
	// collect those hanging off the target and each dependent schema.
	sources := append([]model.NodeID{{Kind: model.NodeSchema, SchemaID: target}}, result.Nodes...)
	for _, src := range sources {
		if src.Kind != model.NodeSchema {
			continue
		}
		for _, e := range a.store.Upstream(src.SchemaID) {
			key := e.To.String()
			if _, seen := result.Depth[key]; e.To.Kind == model.NodeExternal && !seen {
				result.Depth[key] = result.Depth[src.String()] + 1
				result.Nodes = append(result.Nodes, e.To)
			}
		}
	}

	report := model.ImpactReport{
		Target:         target,
		ProposedChange: proposedChange,
		DepthHistogram: map[int]int{},
	}

	maxDepth := 0
	for _, node := range result.Nodes {
		depth := result.Depth[node.String()]
		report.DepthHistogram[depth]++
		if depth > maxDepth {
			maxDepth = depth
		}

		switch node.Kind {
		case model.NodeSchema:
			report.AffectedSchemas = append(report.AffectedSchemas, node.SchemaID)
		case model.NodeExternal:
			entity := a.store.externalNodeByID(node.ExternalID)
			if entity == nil {
				report.AffectedApplications = append(report.AffectedApplications, node.ExternalID)
				continue
			}
			switch entity.EntityType {
			case model.EntityPipeline:
				report.AffectedPipelines = append(report.AffectedPipelines, node.ExternalID)
			case model.EntityModel:
				report.AffectedModels = append(report.AffectedModels, node.ExternalID)
			default:
				report.AffectedApplications = append(report.AffectedApplications, node.ExternalID)
			}
		}
	}

	total := len(report.AffectedSchemas) + len(report.AffectedApplications) + len(report.AffectedPipelines) + len(report.AffectedModels)
	report.RiskLevel = model.RiskLevelFromCount(total)

	complexity := baseComplexity[proposedChange] + math.Log(1+float64(total))/10 + float64(maxDepth)/10
	if complexity > 1 {
		complexity = 1
	}
	report.MigrationComplexity = complexity

	report.EstimatedEffortHours = baseEffortHours[proposedChange] +
		0.5*float64(len(report.AffectedSchemas)) +
		4*float64(len(report.AffectedApplications)) +
		3*float64(len(report.AffectedPipelines))

	if rec := recommendations[report.RiskLevel][proposedChange]; rec != "" {
		report.Recommendations = append(report.Recommendations, rec)
	}

	return report, ctx.Err()
}

func (s *Store) externalNodeByID(id string) *model.ExternalEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.externalNodes[id]
}
