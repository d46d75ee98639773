package model

import (
	"time"

	"github.com/google/uuid"
)

// EntityType is the closed set of non-schema node kinds a schema can be
// linked to in the lineage graph.
type EntityType string

const (
	EntityApplication EntityType = "application"
	EntityPipeline    EntityType = "pipeline"
	EntityModel       EntityType = "model"
	EntityOther       EntityType = "other"
)

// Relation is the closed set of lineage edge semantics.
type Relation string

const (
	RelationDependsOn   Relation = "depends_on"
	RelationInherits    Relation = "inherits"
	RelationComposes    Relation = "composes"
	RelationDerivedFrom Relation = "derived_from"
	RelationValidatedBy Relation = "validated_by"
	RelationUsedBy      Relation = "used_by"
	RelationProducedBy  Relation = "produced_by"
	RelationConsumedBy  Relation = "consumed_by"
	RelationTrainsModel Relation = "trains_model"
)

// NodeKind distinguishes a lineage node that is a registered schema from
// one that is an external entity.
type NodeKind string

const (
	NodeSchema   NodeKind = "schema"
	NodeExternal NodeKind = "external"
)

// ExternalEntity is a non-schema lineage node: an application, pipeline,
// model, or other system that consumes or produces a schema.
type ExternalEntity struct {
	ID         string
	EntityType EntityType
	Name       string
	Metadata   map[string]string
}

// NodeID identifies a lineage node regardless of kind.
type NodeID struct {
	Kind       NodeKind
	SchemaID   uuid.UUID // set when Kind == NodeSchema
	ExternalID string    // set when Kind == NodeExternal
}

// String renders a stable textual identifier for sorting/export.
func (n NodeID) String() string {
	if n.Kind == NodeSchema {
		return "schema:" + n.SchemaID.String()
	}
	return "external:" + n.ExternalID
}

// Edge is one relation-tagged link from a schema to another node.
type Edge struct {
	From      uuid.UUID // always a schema
	To        NodeID
	Relation  Relation
	CreatedAt time.Time
	Metadata  map[string]string
}

// RiskLevel bands the total count of entities affected by a proposed
// schema change.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskLevelFromCount bands a total-affected count into a RiskLevel using
// the 0-9/10-49/50-199/200+ thresholds.
func RiskLevelFromCount(count int) RiskLevel {
	switch {
	case count <= 9:
		return RiskLow
	case count <= 49:
		return RiskMedium
	case count <= 199:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// SchemaChangeKind is the closed set of proposed-change categories the
// impact analyzer scores.
type SchemaChangeKind string

const (
	ChangeFieldAdd          SchemaChangeKind = "field_add"
	ChangeOptionalToRequired SchemaChangeKind = "optional_to_required"
	ChangeTypeChange        SchemaChangeKind = "type_change"
	ChangeFieldRemove       SchemaChangeKind = "field_remove"
	ChangeFormatChange      SchemaChangeKind = "format_change"
)

// ImpactReport is the structured prediction of the blast radius of a
// proposed schema change.
type ImpactReport struct {
	Target               uuid.UUID
	ProposedChange        SchemaChangeKind
	AffectedSchemas       []uuid.UUID
	AffectedApplications []string
	AffectedPipelines     []string
	AffectedModels        []string
	RiskLevel             RiskLevel
	MigrationComplexity   float64
	EstimatedEffortHours  float64
	DepthHistogram        map[int]int
	Recommendations       []string
}
