// Package lineage maintains an in-memory directed graph of
// schema-to-schema and schema-to-external-entity dependencies, and
// answers reachability, shortest-path, cycle, and impact-analysis
// queries over it.
//
// # Overview
//
// The graph is process-wide state behind a many-readers/one-writer lock:
// concurrent queries proceed in parallel, mutations are serialised, and a
// writer never suspends on I/O while holding the lock.
//
// # Key Operations
//
// AddEdge / RemoveEdge: mutate the (from, to, relation) edge set,
// idempotent on add.
//
// Upstream / Downstream: direct-neighbour lookups.
//
// Transitive: BFS traversal bounded by an optional max depth, returning
// the reached nodes with their depth.
//
// DetectCycles / TopologicalSort: strongly-connected-component analysis;
// a topological sort fails with a registryerr.CyclePresent error whenever
// a cycle exists.
//
// AnalyzeImpact: given a target schema and a proposed change kind,
// enumerates transitive dependents, bands the risk level, and scores
// migration complexity and estimated effort.
//
// # Usage Example
//
//	store := lineage.NewStore()
//	store.AddEdge(model.Edge{From: schemaA, To: model.NodeID{Kind: model.NodeSchema, SchemaID: schemaB}, Relation: model.RelationDependsOn})
//	report, err := lineage.NewImpactAnalyzer(store).AnalyzeImpact(ctx, schemaA, model.ChangeFieldRemove)
package lineage
